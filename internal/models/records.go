package models

import (
	"time"
)

// StationRecord mirrors a registered station for dashboard queries.
type StationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Address      string    `gorm:"uniqueIndex;not null" json:"address"`
	Name         string    `gorm:"not null" json:"name"`
	Location     string    `gorm:"index" json:"location"`
	Active       bool      `gorm:"default:true" json:"active"`
	Reputation   uint64    `json:"reputation"`
	TotalReports uint64    `json:"total_reports"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReadingRecord mirrors a weather reading. Temperature is Celsius ×100
// (signed); wind speed and precipitation are ×100.
type ReadingRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ReadingID         uint64    `gorm:"uniqueIndex;not null" json:"reading_id"`
	Location          string    `gorm:"index;not null" json:"location"`
	Temperature       int64     `json:"temperature"`
	Humidity          uint64    `json:"humidity"`
	Pressure          uint64    `json:"pressure"`
	WindSpeed         uint64    `json:"wind_speed"`
	Precipitation     uint64    `json:"precipitation"`
	WeatherType       string    `json:"weather_type"`
	ExternalRef       string    `json:"external_ref"`
	Station           string    `gorm:"index" json:"station"`
	SubmittedAt       time.Time `gorm:"index;not null" json:"submitted_at"`
	VerificationCount uint32    `json:"verification_count"`
	Verified          bool      `gorm:"index" json:"verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PolicyRecord mirrors an insurance policy. Monetary columns hold the
// native smallest unit as decimal strings so they survive uint64 overflow.
type PolicyRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PolicyID  uint64    `gorm:"uniqueIndex;not null" json:"policy_id"`
	Holder    string    `gorm:"index;not null" json:"holder"`
	Location  string    `gorm:"index" json:"location"`
	EventType string    `json:"event_type"`
	Premium   string    `json:"premium"`
	Coverage  string    `json:"coverage"`
	Threshold int64     `json:"threshold"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    string    `gorm:"index" json:"status"`
	Claimed   bool      `json:"claimed"`
	ClaimPaid string    `json:"claim_paid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClaimRecord mirrors a claim; ClaimID is the derived keccak hash in hex.
type ClaimRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClaimID     string    `gorm:"uniqueIndex;not null" json:"claim_id"`
	PolicyID    uint64    `gorm:"index;not null" json:"policy_id"`
	ReadingID   uint64    `json:"reading_id"`
	Amount      string    `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
	Processed   bool      `json:"processed"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RequestRecord mirrors an emergency resource request.
type RequestRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RequestID        uint64    `gorm:"uniqueIndex;not null" json:"request_id"`
	Requester        string    `gorm:"index;not null" json:"requester"`
	Location         string    `gorm:"index" json:"location"`
	ResourceType     string    `json:"resource_type"`
	Quantity         uint64    `json:"quantity"`
	Priority         string    `gorm:"index" json:"priority"`
	Description      string    `json:"description"`
	SubmittedAt      time.Time `json:"submitted_at"`
	Status           string    `gorm:"index" json:"status"`
	ApprovedQuantity uint64    `json:"approved_quantity"`
	RejectionReason  string    `json:"rejection_reason"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AllocationRecord mirrors a resource allocation.
type AllocationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AllocationID uint64    `gorm:"uniqueIndex;not null" json:"allocation_id"`
	RequestID    uint64    `gorm:"index;not null" json:"request_id"`
	Supplier     string    `json:"supplier"`
	Quantity     uint64    `json:"quantity"`
	Cost         string    `json:"cost"`
	AllocatedAt  time.Time `json:"allocated_at"`
	Delivered    bool      `json:"delivered"`
	TrackingInfo string    `json:"tracking_info"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResponderRecord mirrors an authorized responder.
type ResponderRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Address      string    `gorm:"uniqueIndex;not null" json:"address"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	Active       bool      `gorm:"default:true" json:"active"`
	Level        uint8     `json:"level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmergencyEventRecord mirrors a declared disaster; EventID is the derived
// keccak hash in hex. Budget columns are bookkeeping only.
type EmergencyEventRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EventID    string    `gorm:"uniqueIndex;not null" json:"event_id"`
	Type       string    `json:"type"`
	Location   string    `gorm:"index" json:"location"`
	Severity   uint8     `json:"severity"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Active     bool      `json:"active"`
	Budget     string    `json:"budget"`
	UsedBudget string    `json:"used_budget"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EventRecord stores one emitted contract event as JSON for the dashboard
// and alerting collaborators to poll.
type EventRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Contract  string    `gorm:"index;not null" json:"contract"`
	Name      string    `gorm:"index;not null" json:"name"`
	Payload   string    `json:"payload"`
	EmittedAt time.Time `gorm:"index" json:"emitted_at"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every persisted model for migration.
func All() []interface{} {
	return []interface{}{
		&StationRecord{},
		&ReadingRecord{},
		&PolicyRecord{},
		&ClaimRecord{},
		&RequestRecord{},
		&AllocationRecord{},
		&ResponderRecord{},
		&EmergencyEventRecord{},
		&EventRecord{},
	}
}
