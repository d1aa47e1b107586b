package emergency

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ResponderAuthorized is emitted when the owner whitelists a responder.
type ResponderAuthorized struct {
	Responder    common.Address `json:"responder"`
	Name         string         `json:"name"`
	Organization string         `json:"organization"`
	Level        uint8          `json:"level"`
}

func (ResponderAuthorized) EventName() string { return "ResponderAuthorized" }

// ResponderStatusChanged is emitted when the owner toggles a responder.
type ResponderStatusChanged struct {
	Responder common.Address `json:"responder"`
	Active    bool           `json:"active"`
}

func (ResponderStatusChanged) EventName() string { return "ResponderStatusChanged" }

// ResponderLevelChanged is emitted when the owner adjusts a level.
type ResponderLevelChanged struct {
	Responder common.Address `json:"responder"`
	Level     uint8          `json:"level"`
}

func (ResponderLevelChanged) EventName() string { return "ResponderLevelChanged" }

// EmergencyEventCreated is emitted when a responder declares a disaster.
type EmergencyEventCreated struct {
	ID       common.Hash `json:"id"`
	Type     string      `json:"type"`
	Location string      `json:"location"`
	Severity uint8       `json:"severity"`
	Budget   *big.Int    `json:"budget"`
}

func (EmergencyEventCreated) EventName() string { return "EmergencyEventCreated" }

// RequestCreated is emitted for every filed resource request.
type RequestCreated struct {
	ID        uint64         `json:"id"`
	Requester common.Address `json:"requester"`
	Location  string         `json:"location"`
	Type      string         `json:"type"`
	Quantity  uint64         `json:"quantity"`
	Priority  string         `json:"priority"`
}

func (RequestCreated) EventName() string { return "RequestCreated" }

// RequestApproved is emitted when inventory is reserved for a request.
type RequestApproved struct {
	ID               uint64         `json:"id"`
	Approver         common.Address `json:"approver"`
	ApprovedQuantity uint64         `json:"approved_quantity"`
}

func (RequestApproved) EventName() string { return "RequestApproved" }

// RequestRejected is emitted when a pending request is closed.
type RequestRejected struct {
	ID       uint64         `json:"id"`
	Rejector common.Address `json:"rejector"`
	Reason   string         `json:"reason"`
}

func (RequestRejected) EventName() string { return "RequestRejected" }

// AllocationCreated is emitted when reserved supplies are dispatched.
type AllocationCreated struct {
	ID        uint64         `json:"id"`
	RequestID uint64         `json:"request_id"`
	Supplier  common.Address `json:"supplier"`
	Quantity  uint64         `json:"quantity"`
	Cost      *big.Int       `json:"cost"`
}

func (AllocationCreated) EventName() string { return "AllocationCreated" }

// AllocationDelivered is emitted when delivery is confirmed.
type AllocationDelivered struct {
	ID        uint64         `json:"id"`
	Confirmer common.Address `json:"confirmer"`
	Proof     string         `json:"proof"`
}

func (AllocationDelivered) EventName() string { return "AllocationDelivered" }

// ResourcesAdded is emitted when inventory grows.
type ResourcesAdded struct {
	Type      string `json:"type"`
	Quantity  uint64 `json:"quantity"`
	Available uint64 `json:"available"`
}

func (ResourcesAdded) EventName() string { return "ResourcesAdded" }

// FundDeposited is emitted when anyone tops up the emergency fund.
type FundDeposited struct {
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
	Fund   *big.Int       `json:"fund"`
}

func (FundDeposited) EventName() string { return "FundDeposited" }
