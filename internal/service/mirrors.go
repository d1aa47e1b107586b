package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/insurance"
	"github.com/yourusername/weathershield/ledger-service/internal/models"
	"github.com/yourusername/weathershield/ledger-service/pkg/logger"
	"go.uber.org/zap"
)

// Mirror helpers copy authoritative contract state into the read model.
// Failures are logged and swallowed: the ledger call already succeeded.

func (s *LedgerService) mirrorStation(ctx context.Context, addr common.Address) {
	station, err := s.registry.GetStation(addr)
	if err != nil {
		logger.Error("failed to read station for mirror", zap.Error(err))
		return
	}
	record := &models.StationRecord{
		Address:      station.Addr.Hex(),
		Name:         station.Name,
		Location:     station.Location,
		Active:       station.Active,
		Reputation:   station.Reputation,
		TotalReports: station.TotalReports,
	}
	if err := s.repo.UpsertStation(ctx, record); err != nil {
		logger.Error("failed to mirror station", zap.String("address", record.Address), zap.Error(err))
	}
}

func (s *LedgerService) mirrorReading(ctx context.Context, id uint64) {
	reading, err := s.registry.GetReading(id)
	if err != nil {
		logger.Error("failed to read reading for mirror", zap.Error(err))
		return
	}
	record := &models.ReadingRecord{
		ReadingID:         reading.ID,
		Location:          reading.Location,
		Temperature:       reading.Temperature,
		Humidity:          reading.Humidity,
		Pressure:          reading.Pressure,
		WindSpeed:         reading.WindSpeed,
		Precipitation:     reading.Precipitation,
		WeatherType:       reading.WeatherType,
		ExternalRef:       reading.ExternalRef,
		Station:           reading.Station.Hex(),
		SubmittedAt:       reading.SubmittedAt,
		VerificationCount: reading.VerificationCount,
		Verified:          reading.Verified,
	}
	if err := s.repo.UpsertReading(ctx, record); err != nil {
		logger.Error("failed to mirror reading", zap.Uint64("reading_id", reading.ID), zap.Error(err))
	}
}

func (s *LedgerService) mirrorPolicy(ctx context.Context, id uint64) {
	policy, err := s.insurance.GetPolicy(id)
	if err != nil {
		logger.Error("failed to read policy for mirror", zap.Error(err))
		return
	}
	record := &models.PolicyRecord{
		PolicyID:  policy.ID,
		Holder:    policy.Holder.Hex(),
		Location:  policy.Location,
		EventType: policy.EventType.String(),
		Premium:   policy.Premium.String(),
		Coverage:  policy.Coverage.String(),
		Threshold: policy.Threshold,
		Start:     policy.Start,
		End:       policy.End,
		Status:    policy.Status.String(),
		Claimed:   policy.Claimed,
		ClaimPaid: policy.ClaimPaid.String(),
	}
	if err := s.repo.UpsertPolicy(ctx, record); err != nil {
		logger.Error("failed to mirror policy", zap.Uint64("policy_id", policy.ID), zap.Error(err))
	}
}

func (s *LedgerService) mirrorClaim(ctx context.Context, claim insurance.Claim) {
	record := &models.ClaimRecord{
		ClaimID:     claim.ID.Hex(),
		PolicyID:    claim.PolicyID,
		ReadingID:   claim.ReadingID,
		Amount:      claim.Amount.String(),
		SubmittedAt: claim.SubmittedAt,
		Processed:   claim.Processed,
		Approved:    claim.Approved,
	}
	if err := s.repo.UpsertClaim(ctx, record); err != nil {
		logger.Error("failed to mirror claim", zap.String("claim_id", record.ClaimID), zap.Error(err))
	}
}

func (s *LedgerService) mirrorRequest(ctx context.Context, id uint64) {
	request, err := s.emergency.GetRequest(id)
	if err != nil {
		logger.Error("failed to read request for mirror", zap.Error(err))
		return
	}
	record := &models.RequestRecord{
		RequestID:        request.ID,
		Requester:        request.Requester.Hex(),
		Location:         request.Location,
		ResourceType:     request.Type.String(),
		Quantity:         request.Quantity,
		Priority:         request.Priority.String(),
		Description:      request.Description,
		SubmittedAt:      request.SubmittedAt,
		Status:           request.Status.String(),
		ApprovedQuantity: request.ApprovedQuantity,
		RejectionReason:  request.RejectionReason,
	}
	if err := s.repo.UpsertRequest(ctx, record); err != nil {
		logger.Error("failed to mirror request", zap.Uint64("request_id", request.ID), zap.Error(err))
	}
}

func (s *LedgerService) mirrorAllocation(ctx context.Context, id uint64) {
	allocation, err := s.emergency.GetAllocation(id)
	if err != nil {
		logger.Error("failed to read allocation for mirror", zap.Error(err))
		return
	}
	record := &models.AllocationRecord{
		AllocationID: allocation.ID,
		RequestID:    allocation.RequestID,
		Supplier:     allocation.Supplier.Hex(),
		Quantity:     allocation.Quantity,
		Cost:         allocation.Cost.String(),
		AllocatedAt:  allocation.AllocatedAt,
		Delivered:    allocation.Delivered,
		TrackingInfo: allocation.TrackingInfo,
	}
	if err := s.repo.UpsertAllocation(ctx, record); err != nil {
		logger.Error("failed to mirror allocation", zap.Uint64("allocation_id", allocation.ID), zap.Error(err))
	}
}

func (s *LedgerService) mirrorResponder(ctx context.Context, addr common.Address) {
	responder, err := s.emergency.GetResponder(addr)
	if err != nil {
		logger.Error("failed to read responder for mirror", zap.Error(err))
		return
	}
	record := &models.ResponderRecord{
		Address:      responder.Addr.Hex(),
		Name:         responder.Name,
		Organization: responder.Organization,
		Active:       responder.Active,
		Level:        responder.Level,
	}
	if err := s.repo.UpsertResponder(ctx, record); err != nil {
		logger.Error("failed to mirror responder", zap.String("address", record.Address), zap.Error(err))
	}
}

func (s *LedgerService) mirrorEmergencyEvent(ctx context.Context, id common.Hash) {
	event, err := s.emergency.GetEmergencyEvent(id)
	if err != nil {
		logger.Error("failed to read emergency event for mirror", zap.Error(err))
		return
	}
	record := &models.EmergencyEventRecord{
		EventID:    event.ID.Hex(),
		Type:       event.Type,
		Location:   event.Location,
		Severity:   event.Severity,
		Start:      event.Start,
		End:        event.End,
		Active:     event.Active,
		Budget:     event.Budget.String(),
		UsedBudget: event.UsedBudget.String(),
	}
	if err := s.repo.UpsertEmergencyEvent(ctx, record); err != nil {
		logger.Error("failed to mirror emergency event", zap.String("event_id", record.EventID), zap.Error(err))
	}
}
