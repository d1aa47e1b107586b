package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/yourusername/weathershield/ledger-service/internal/models"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func TestUpsertStation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	record := &models.StationRecord{
		Address:    "0x0000000000000000000000000000000000000011",
		Name:       "Station One",
		Location:   "miami",
		Active:     true,
		Reputation: 100,
	}
	if err := repo.UpsertStation(ctx, record); err != nil {
		t.Fatalf("Failed to create station mirror: %v", err)
	}
	if record.ID == 0 {
		t.Error("Expected ID to be set after creation")
	}
	firstID := record.ID

	// A second upsert refreshes the same row.
	updated := &models.StationRecord{
		Address:      record.Address,
		Name:         record.Name,
		Location:     record.Location,
		Active:       true,
		Reputation:   110,
		TotalReports: 3,
	}
	if err := repo.UpsertStation(ctx, updated); err != nil {
		t.Fatalf("Failed to refresh station mirror: %v", err)
	}
	if updated.ID != firstID {
		t.Errorf("Upsert created a new row: %d != %d", updated.ID, firstID)
	}

	retrieved, err := repo.GetStation(ctx, record.Address)
	if err != nil {
		t.Fatalf("Failed to get station: %v", err)
	}
	if retrieved == nil || retrieved.Reputation != 110 {
		t.Errorf("Unexpected station mirror: %+v", retrieved)
	}
}

func TestGetStationNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)

	retrieved, err := repo.GetStation(context.Background(), "0x00000000000000000000000000000000000000ff")
	if err != nil {
		t.Fatalf("Expected nil error for missing station, got %v", err)
	}
	if retrieved != nil {
		t.Errorf("Expected nil record, got %+v", retrieved)
	}
}

func TestUpsertReadingAndListByLocation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := uint64(1); i <= 3; i++ {
		record := &models.ReadingRecord{
			ReadingID:   i,
			Location:    "miami",
			Temperature: 2500,
			WeatherType: "RAIN",
			Station:     "0x0000000000000000000000000000000000000011",
			SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.UpsertReading(ctx, record); err != nil {
			t.Fatalf("Failed to create reading mirror: %v", err)
		}
	}

	// Verification refresh keeps a single row per reading.
	refreshed := &models.ReadingRecord{
		ReadingID:         2,
		Location:          "miami",
		Temperature:       2500,
		WeatherType:       "RAIN",
		Station:           "0x0000000000000000000000000000000000000011",
		SubmittedAt:       base.Add(2 * time.Hour),
		VerificationCount: 3,
		Verified:          true,
	}
	if err := repo.UpsertReading(ctx, refreshed); err != nil {
		t.Fatalf("Failed to refresh reading mirror: %v", err)
	}

	records, err := repo.ListReadingsByLocation(ctx, "miami", 10)
	if err != nil {
		t.Fatalf("Failed to list readings: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 readings, got %d", len(records))
	}
	// Newest first.
	if records[0].ReadingID != 3 {
		t.Errorf("Expected newest reading first, got %d", records[0].ReadingID)
	}
}

func TestListPoliciesByHolder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	holder := "0x00000000000000000000000000000000000000aa"
	for i := uint64(1); i <= 2; i++ {
		record := &models.PolicyRecord{
			PolicyID:  i,
			Holder:    holder,
			Location:  "miami",
			EventType: "FLOOD",
			Premium:   "500",
			Coverage:  "10000",
			Threshold: 10000,
			Status:    "ACTIVE",
			ClaimPaid: "0",
		}
		if err := repo.UpsertPolicy(ctx, record); err != nil {
			t.Fatalf("Failed to create policy mirror: %v", err)
		}
	}

	records, err := repo.ListPoliciesByHolder(ctx, holder, 10)
	if err != nil {
		t.Fatalf("Failed to list policies: %v", err)
	}
	if len(records) != 2 || records[0].PolicyID != 2 {
		t.Errorf("Unexpected policy list: %+v", records)
	}
}

func TestListPendingRequests(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	rows := []struct {
		id       uint64
		priority string
		status   string
	}{
		{1, "CRITICAL", "PENDING"},
		{2, "LOW", "PENDING"},
		{3, "CRITICAL", "APPROVED"},
		{4, "CRITICAL", "PENDING"},
	}
	for _, row := range rows {
		record := &models.RequestRecord{
			RequestID:    row.id,
			Requester:    "0x00000000000000000000000000000000000000aa",
			Location:     "miami",
			ResourceType: "WATER",
			Quantity:     10,
			Priority:     row.priority,
			Status:       row.status,
		}
		if err := repo.UpsertRequest(ctx, record); err != nil {
			t.Fatalf("Failed to create request mirror: %v", err)
		}
	}

	records, err := repo.ListPendingRequests(ctx, "CRITICAL", 10)
	if err != nil {
		t.Fatalf("Failed to list pending requests: %v", err)
	}
	if len(records) != 2 || records[0].RequestID != 1 || records[1].RequestID != 4 {
		t.Errorf("Unexpected pending requests: %+v", records)
	}

	all, err := repo.ListPendingRequests(ctx, "", 10)
	if err != nil {
		t.Fatalf("Failed to list all pending requests: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 pending requests, got %d", len(all))
	}
}

func TestEventFeed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := &models.EventRecord{
			Contract:  "StationRegistry",
			Name:      "ReadingSubmitted",
			Payload:   fmt.Sprintf(`{"ID":%d}`, i+1),
			EmittedAt: time.Now(),
		}
		if err := repo.CreateEvent(ctx, record); err != nil {
			t.Fatalf("Failed to create event: %v", err)
		}
	}
	if err := repo.CreateEvent(ctx, &models.EventRecord{
		Contract: "InsuranceEngine", Name: "PolicyCreated", Payload: `{"ID":1}`, EmittedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	records, err := repo.ListEvents(ctx, "", 3)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(records))
	}
	// Newest first.
	if records[0].Name != "PolicyCreated" {
		t.Errorf("Expected newest event first, got %s", records[0].Name)
	}

	filtered, err := repo.ListEvents(ctx, "InsuranceEngine", 10)
	if err != nil {
		t.Fatalf("Failed to list filtered events: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected 1 insurance event, got %d", len(filtered))
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	if err := repo.UpsertReading(ctx, &models.ReadingRecord{ReadingID: 1, Location: "miami", Verified: true}); err != nil {
		t.Fatalf("Failed to create reading: %v", err)
	}
	if err := repo.UpsertReading(ctx, &models.ReadingRecord{ReadingID: 2, Location: "miami"}); err != nil {
		t.Fatalf("Failed to create reading: %v", err)
	}

	stats, err := repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats["readings"].(int64) != 2 {
		t.Errorf("Expected 2 readings, got %v", stats["readings"])
	}
	if stats["verified_readings"].(int64) != 1 {
		t.Errorf("Expected 1 verified reading, got %v", stats["verified_readings"])
	}
}
