package service

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/emergency"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/insurance"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
	"github.com/yourusername/weathershield/ledger-service/internal/models"
	"github.com/yourusername/weathershield/ledger-service/internal/observability"
	"github.com/yourusername/weathershield/ledger-service/internal/repository"
	"github.com/yourusername/weathershield/ledger-service/pkg/logger"
	"go.uber.org/zap"
)

// Contract names used for metrics labels and the persisted event feed.
const (
	ContractRegistry  = "StationRegistry"
	ContractInsurance = "InsuranceEngine"
	ContractEmergency = "ResourceAllocator"
)

// LedgerService applies calls to the three contract state machines and
// mirrors resulting state and events into the read model. Contract state in
// memory is authoritative; mirror failures are logged, never fatal. A single
// mutex serializes state-changing calls the way a chain orders transactions
// within a block.
type LedgerService struct {
	mu        sync.Mutex
	env       *ledger.Env
	registry  *registry.StationRegistry
	insurance *insurance.InsuranceEngine
	emergency *emergency.ResourceAllocator
	repo      *repository.LedgerRepository
	metrics   *observability.Metrics

	cursors map[string]int
}

// NewLedgerService wires the contracts to the read model.
func NewLedgerService(
	env *ledger.Env,
	reg *registry.StationRegistry,
	ins *insurance.InsuranceEngine,
	emg *emergency.ResourceAllocator,
	repo *repository.LedgerRepository,
	metrics *observability.Metrics,
) *LedgerService {
	return &LedgerService{
		env:       env,
		registry:  reg,
		insurance: ins,
		emergency: emg,
		repo:      repo,
		metrics:   metrics,
		cursors:   make(map[string]int),
	}
}

// Registry returns the station registry contract.
func (s *LedgerService) Registry() *registry.StationRegistry { return s.registry }

// Insurance returns the insurance engine contract.
func (s *LedgerService) Insurance() *insurance.InsuranceEngine { return s.insurance }

// Emergency returns the resource allocator contract.
func (s *LedgerService) Emergency() *emergency.ResourceAllocator { return s.emergency }

// Env returns the shared execution environment.
func (s *LedgerService) Env() *ledger.Env { return s.env }

// --- StationRegistry operations ---

// RegisterStation registers a station and mirrors it.
func (s *LedgerService) RegisterStation(ctx context.Context, call ledger.Call, addr common.Address, name, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.registry.RegisterStation(call, addr, name, location)
	s.observe(ContractRegistry, "register_station", err)
	if err != nil {
		return err
	}
	s.mirrorStation(ctx, addr)
	s.drainEvents(ctx, ContractRegistry, s.registry.Events())
	return nil
}

// ToggleStationStatus flips a station's active flag and mirrors it.
func (s *LedgerService) ToggleStationStatus(ctx context.Context, call ledger.Call, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.registry.ToggleStationStatus(call, addr)
	s.observe(ContractRegistry, "toggle_station", err)
	if err != nil {
		return err
	}
	s.mirrorStation(ctx, addr)
	s.drainEvents(ctx, ContractRegistry, s.registry.Events())
	return nil
}

// SubmitReading stores a reading and mirrors it.
func (s *LedgerService) SubmitReading(ctx context.Context, call ledger.Call, in registry.ReadingInput) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.registry.SubmitReading(call, in)
	s.observe(ContractRegistry, "submit_reading", err)
	if err != nil {
		return 0, err
	}
	s.mirrorReading(ctx, id)
	s.mirrorStation(ctx, call.Caller)
	s.drainEvents(ctx, ContractRegistry, s.registry.Events())
	return id, nil
}

// VerifyReading records a confirmation and refreshes the reading and the
// submitter mirrors, since a quorum crossing changes both.
func (s *LedgerService) VerifyReading(ctx context.Context, call ledger.Call, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.registry.VerifyReading(call, id)
	s.observe(ContractRegistry, "verify_reading", err)
	if err != nil {
		return err
	}
	s.mirrorReading(ctx, id)
	if reading, err := s.registry.GetReading(id); err == nil {
		s.mirrorStation(ctx, reading.Station)
	}
	s.drainEvents(ctx, ContractRegistry, s.registry.Events())
	return nil
}

// --- InsuranceEngine operations ---

// CreatePolicy opens a policy and mirrors it.
func (s *LedgerService) CreatePolicy(ctx context.Context, call ledger.Call, location string, eventType insurance.EventType, coverage *big.Int, threshold int64, duration time.Duration) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.insurance.CreatePolicy(call, location, eventType, coverage, threshold, duration)
	s.observe(ContractInsurance, "create_policy", err)
	if err != nil {
		return 0, err
	}
	s.mirrorPolicy(ctx, id)
	s.drainEvents(ctx, ContractInsurance, s.insurance.Events())
	return id, nil
}

// SubmitClaim files and auto-processes a claim, mirroring the claim and the
// policy it settles.
func (s *LedgerService) SubmitClaim(ctx context.Context, call ledger.Call, policyID, readingID uint64) (insurance.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, err := s.insurance.SubmitClaim(call, policyID, readingID)
	s.observe(ContractInsurance, "submit_claim", err)
	if err != nil {
		return insurance.Claim{}, err
	}
	if claim.Approved {
		s.metrics.ClaimPayouts.Inc()
	} else {
		s.metrics.ClaimRejects.Inc()
	}
	s.mirrorClaim(ctx, claim)
	s.mirrorPolicy(ctx, policyID)
	s.drainEvents(ctx, ContractInsurance, s.insurance.Events())
	return claim, nil
}

// DepositFunds adds to the insurance pool.
func (s *LedgerService) DepositFunds(ctx context.Context, call ledger.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.insurance.DepositFunds(call)
	s.observe(ContractInsurance, "deposit_funds", err)
	if err != nil {
		return err
	}
	s.drainEvents(ctx, ContractInsurance, s.insurance.Events())
	return nil
}

// WithdrawFunds drains part of the insurance pool to the owner.
func (s *LedgerService) WithdrawFunds(ctx context.Context, call ledger.Call, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.insurance.WithdrawFunds(call, amount)
	s.observe(ContractInsurance, "withdraw_funds", err)
	if err != nil {
		return err
	}
	s.drainEvents(ctx, ContractInsurance, s.insurance.Events())
	return nil
}

// --- ResourceAllocator operations ---

// AuthorizeResponder whitelists a responder and mirrors it.
func (s *LedgerService) AuthorizeResponder(ctx context.Context, call ledger.Call, addr common.Address, name, organization string, level uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.AuthorizeResponder(call, addr, name, organization, level)
	s.observe(ContractEmergency, "authorize_responder", err)
	if err != nil {
		return err
	}
	s.mirrorResponder(ctx, addr)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// SetResponderLevel changes a responder's level and mirrors it.
func (s *LedgerService) SetResponderLevel(ctx context.Context, call ledger.Call, addr common.Address, level uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.SetResponderLevel(call, addr, level)
	s.observe(ContractEmergency, "set_responder_level", err)
	if err != nil {
		return err
	}
	s.mirrorResponder(ctx, addr)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// ToggleResponderStatus flips a responder's active flag and mirrors it.
func (s *LedgerService) ToggleResponderStatus(ctx context.Context, call ledger.Call, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.ToggleResponderStatus(call, addr)
	s.observe(ContractEmergency, "toggle_responder", err)
	if err != nil {
		return err
	}
	s.mirrorResponder(ctx, addr)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// CreateEmergencyEvent declares a disaster and mirrors it.
func (s *LedgerService) CreateEmergencyEvent(ctx context.Context, call ledger.Call, eventType, location string, severity uint8, duration time.Duration, budget *big.Int) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.emergency.CreateEmergencyEvent(call, eventType, location, severity, duration, budget)
	s.observe(ContractEmergency, "create_emergency_event", err)
	if err != nil {
		return common.Hash{}, err
	}
	s.mirrorEmergencyEvent(ctx, id)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return id, nil
}

// RequestResources files a request and mirrors it.
func (s *LedgerService) RequestResources(ctx context.Context, call ledger.Call, location string, resourceType emergency.ResourceType, quantity uint64, priority emergency.Priority, description string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.emergency.RequestResources(call, location, resourceType, quantity, priority, description)
	s.observe(ContractEmergency, "request_resources", err)
	if err != nil {
		return 0, err
	}
	s.mirrorRequest(ctx, id)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return id, nil
}

// ApproveRequest reserves inventory and mirrors the request.
func (s *LedgerService) ApproveRequest(ctx context.Context, call ledger.Call, id uint64, approvedQuantity uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.ApproveRequest(call, id, approvedQuantity)
	s.observe(ContractEmergency, "approve_request", err)
	if err != nil {
		return err
	}
	s.mirrorRequest(ctx, id)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// RejectRequest closes a pending request and mirrors it.
func (s *LedgerService) RejectRequest(ctx context.Context, call ledger.Call, id uint64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.RejectRequest(call, id, reason)
	s.observe(ContractEmergency, "reject_request", err)
	if err != nil {
		return err
	}
	s.mirrorRequest(ctx, id)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// AllocateResources dispatches reserved supplies, mirroring the allocation
// and the fulfilled request.
func (s *LedgerService) AllocateResources(ctx context.Context, call ledger.Call, requestID uint64, supplier common.Address, cost *big.Int, trackingInfo string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.emergency.AllocateResources(call, requestID, supplier, cost, trackingInfo)
	s.observe(ContractEmergency, "allocate_resources", err)
	if err != nil {
		return 0, err
	}
	s.mirrorAllocation(ctx, id)
	s.mirrorRequest(ctx, requestID)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return id, nil
}

// MarkDelivered confirms delivery and mirrors the allocation.
func (s *LedgerService) MarkDelivered(ctx context.Context, call ledger.Call, allocationID uint64, proof string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.MarkDelivered(call, allocationID, proof)
	s.observe(ContractEmergency, "mark_delivered", err)
	if err != nil {
		return err
	}
	s.mirrorAllocation(ctx, allocationID)
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// AddResources grows inventory.
func (s *LedgerService) AddResources(ctx context.Context, call ledger.Call, resourceType emergency.ResourceType, quantity uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.AddResources(call, resourceType, quantity)
	s.observe(ContractEmergency, "add_resources", err)
	if err != nil {
		return err
	}
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// DepositEmergencyFund adds to the emergency fund.
func (s *LedgerService) DepositEmergencyFund(ctx context.Context, call ledger.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emergency.DepositEmergencyFund(call)
	s.observe(ContractEmergency, "deposit_emergency_fund", err)
	if err != nil {
		return err
	}
	s.drainEvents(ctx, ContractEmergency, s.emergency.Events())
	return nil
}

// --- read-model queries ---

// ListEvents returns the newest persisted events.
func (s *LedgerService) ListEvents(ctx context.Context, contract string, limit int) ([]*models.EventRecord, error) {
	return s.repo.ListEvents(ctx, contract, limit)
}

// GetStats returns read-model statistics.
func (s *LedgerService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}

// ListPoliciesByHolder returns mirrored policies for a holder.
func (s *LedgerService) ListPoliciesByHolder(ctx context.Context, holder string, limit int) ([]*models.PolicyRecord, error) {
	return s.repo.ListPoliciesByHolder(ctx, holder, limit)
}

// ListReadingsByLocation returns mirrored readings for a location.
func (s *LedgerService) ListReadingsByLocation(ctx context.Context, location string, limit int) ([]*models.ReadingRecord, error) {
	return s.repo.ListReadingsByLocation(ctx, location, limit)
}

// ListPendingRequests returns mirrored pending requests.
func (s *LedgerService) ListPendingRequests(ctx context.Context, priority string, limit int) ([]*models.RequestRecord, error) {
	return s.repo.ListPendingRequests(ctx, priority, limit)
}

// --- internals ---

func (s *LedgerService) observe(contract, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Warn("contract call rejected",
			zap.String("contract", contract),
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	s.metrics.CallsApplied.WithLabelValues(contract, operation, outcome).Inc()
}

// drainEvents persists events emitted since the last drain of a contract.
func (s *LedgerService) drainEvents(ctx context.Context, contract string, log *ledger.EventLog) {
	fresh := log.Since(s.cursors[contract])
	s.cursors[contract] = log.Len()
	now := s.env.Now()
	for _, ev := range fresh {
		s.metrics.EventsEmitted.WithLabelValues(contract, ev.EventName()).Inc()
		payload, err := json.Marshal(ev)
		if err != nil {
			logger.Error("failed to encode event", zap.String("event", ev.EventName()), zap.Error(err))
			continue
		}
		record := &models.EventRecord{
			Contract:  contract,
			Name:      ev.EventName(),
			Payload:   string(payload),
			EmittedAt: now,
		}
		if err := s.repo.CreateEvent(ctx, record); err != nil {
			logger.Error("failed to persist event", zap.String("event", ev.EventName()), zap.Error(err))
		}
	}
}
