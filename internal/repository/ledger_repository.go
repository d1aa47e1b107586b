package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/weathershield/ledger-service/internal/models"
	"gorm.io/gorm"
)

// LedgerRepository persists contract state mirrors and the event feed for
// off-chain consumers. Contract state in memory stays authoritative; the
// database is a read model.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a repository backed by the given database.
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// UpsertStation creates or refreshes a station mirror keyed by address.
func (r *LedgerRepository) UpsertStation(ctx context.Context, record *models.StationRecord) error {
	var existing models.StationRecord
	err := r.db.WithContext(ctx).Where("address = ?", record.Address).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing station: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertReading creates or refreshes a reading mirror keyed by reading id.
func (r *LedgerRepository) UpsertReading(ctx context.Context, record *models.ReadingRecord) error {
	var existing models.ReadingRecord
	err := r.db.WithContext(ctx).Where("reading_id = ?", record.ReadingID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing reading: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertPolicy creates or refreshes a policy mirror keyed by policy id.
func (r *LedgerRepository) UpsertPolicy(ctx context.Context, record *models.PolicyRecord) error {
	var existing models.PolicyRecord
	err := r.db.WithContext(ctx).Where("policy_id = ?", record.PolicyID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing policy: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertClaim creates or refreshes a claim mirror keyed by the derived id.
func (r *LedgerRepository) UpsertClaim(ctx context.Context, record *models.ClaimRecord) error {
	var existing models.ClaimRecord
	err := r.db.WithContext(ctx).Where("claim_id = ?", record.ClaimID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing claim: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertRequest creates or refreshes a request mirror keyed by request id.
func (r *LedgerRepository) UpsertRequest(ctx context.Context, record *models.RequestRecord) error {
	var existing models.RequestRecord
	err := r.db.WithContext(ctx).Where("request_id = ?", record.RequestID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing request: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertAllocation creates or refreshes an allocation mirror.
func (r *LedgerRepository) UpsertAllocation(ctx context.Context, record *models.AllocationRecord) error {
	var existing models.AllocationRecord
	err := r.db.WithContext(ctx).Where("allocation_id = ?", record.AllocationID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing allocation: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertResponder creates or refreshes a responder mirror keyed by address.
func (r *LedgerRepository) UpsertResponder(ctx context.Context, record *models.ResponderRecord) error {
	var existing models.ResponderRecord
	err := r.db.WithContext(ctx).Where("address = ?", record.Address).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing responder: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// UpsertEmergencyEvent creates or refreshes a declared event mirror.
func (r *LedgerRepository) UpsertEmergencyEvent(ctx context.Context, record *models.EmergencyEventRecord) error {
	var existing models.EmergencyEventRecord
	err := r.db.WithContext(ctx).Where("event_id = ?", record.EventID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to check existing emergency event: %w", err)
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// CreateEvent appends one emitted contract event to the feed.
func (r *LedgerRepository) CreateEvent(ctx context.Context, record *models.EventRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetStation retrieves a station mirror by address.
func (r *LedgerRepository) GetStation(ctx context.Context, address string) (*models.StationRecord, error) {
	var record models.StationRecord
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return &record, nil
}

// GetReading retrieves a reading mirror by reading id.
func (r *LedgerRepository) GetReading(ctx context.Context, readingID uint64) (*models.ReadingRecord, error) {
	var record models.ReadingRecord
	err := r.db.WithContext(ctx).Where("reading_id = ?", readingID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}
	return &record, nil
}

// ListReadingsByLocation retrieves reading mirrors for a location, newest
// first.
func (r *LedgerRepository) ListReadingsByLocation(ctx context.Context, location string, limit int) ([]*models.ReadingRecord, error) {
	var records []*models.ReadingRecord
	err := r.db.WithContext(ctx).
		Where("location = ?", location).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	return records, nil
}

// GetPolicy retrieves a policy mirror by policy id.
func (r *LedgerRepository) GetPolicy(ctx context.Context, policyID uint64) (*models.PolicyRecord, error) {
	var record models.PolicyRecord
	err := r.db.WithContext(ctx).Where("policy_id = ?", policyID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &record, nil
}

// ListPoliciesByHolder retrieves policy mirrors for a holder, newest first.
func (r *LedgerRepository) ListPoliciesByHolder(ctx context.Context, holder string, limit int) ([]*models.PolicyRecord, error) {
	var records []*models.PolicyRecord
	err := r.db.WithContext(ctx).
		Where("holder = ?", holder).
		Order("policy_id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return records, nil
}

// ListPendingRequests retrieves pending request mirrors, optionally filtered
// by priority, oldest first.
func (r *LedgerRepository) ListPendingRequests(ctx context.Context, priority string, limit int) ([]*models.RequestRecord, error) {
	q := r.db.WithContext(ctx).Where("status = ?", "PENDING")
	if priority != "" {
		q = q.Where("priority = ?", priority)
	}
	var records []*models.RequestRecord
	err := q.Order("request_id ASC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return records, nil
}

// ListEvents retrieves the newest entries of the event feed, optionally
// filtered by contract.
func (r *LedgerRepository) ListEvents(ctx context.Context, contract string, limit int) ([]*models.EventRecord, error) {
	q := r.db.WithContext(ctx).Model(&models.EventRecord{})
	if contract != "" {
		q = q.Where("contract = ?", contract)
	}
	var records []*models.EventRecord
	err := q.Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return records, nil
}

// GetStats retrieves read-model statistics for the admin endpoint.
func (r *LedgerRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := []struct {
		key   string
		model interface{}
	}{
		{"stations", &models.StationRecord{}},
		{"readings", &models.ReadingRecord{}},
		{"policies", &models.PolicyRecord{}},
		{"claims", &models.ClaimRecord{}},
		{"requests", &models.RequestRecord{}},
		{"allocations", &models.AllocationRecord{}},
		{"events", &models.EventRecord{}},
	}
	for _, c := range counts {
		var n int64
		if err := r.db.WithContext(ctx).Model(c.model).Count(&n).Error; err != nil {
			return nil, err
		}
		stats[c.key] = n
	}

	var verified int64
	if err := r.db.WithContext(ctx).Model(&models.ReadingRecord{}).Where("verified = ?", true).Count(&verified).Error; err != nil {
		return nil, err
	}
	stats["verified_readings"] = verified

	var claimed int64
	if err := r.db.WithContext(ctx).Model(&models.PolicyRecord{}).Where("claimed = ?", true).Count(&claimed).Error; err != nil {
		return nil, err
	}
	stats["claimed_policies"] = claimed

	return stats, nil
}
