package emergency

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
)

const (
	// MaxResponderLevel bounds the authorization ladder.
	MaxResponderLevel = 5

	// AllocateLevel is the minimum level for allocating resources and
	// growing inventory.
	AllocateLevel = 2

	// DeclareEventLevel is the minimum level for declaring an emergency
	// event.
	DeclareEventLevel = 3
)

var (
	ErrNotOwner               = errors.New("caller is not the contract owner")
	ErrResponderExists        = errors.New("responder already authorized")
	ErrUnknownResponder       = errors.New("responder not authorized")
	ErrResponderInactive      = errors.New("responder is not active")
	ErrInsufficientLevel      = errors.New("responder level too low")
	ErrBadLevel               = errors.New("authorization level out of range")
	ErrUnknownResourceType    = errors.New("unknown resource type")
	ErrUnknownPriority        = errors.New("unknown priority")
	ErrZeroQuantity           = errors.New("quantity must be positive")
	ErrUnknownRequest         = errors.New("request id out of range")
	ErrRequestNotPending      = errors.New("request is not pending")
	ErrRequestNotApproved     = errors.New("request is not approved")
	ErrQuantityExceedsRequest = errors.New("approved quantity exceeds requested quantity")
	ErrInsufficientInventory  = errors.New("insufficient available inventory")
	ErrUnknownAllocation      = errors.New("allocation id out of range")
	ErrAlreadyDelivered       = errors.New("allocation already delivered")
	ErrCostExceedsFund        = errors.New("cost exceeds emergency fund")
	ErrZeroDeposit            = errors.New("deposit must be positive")
)

// ResourceType identifies a class of emergency supplies.
type ResourceType uint8

const (
	Food ResourceType = iota
	Water
	Medical
	Shelter
	Evacuation
	Equipment

	resourceTypeCount
)

func (t ResourceType) String() string {
	switch t {
	case Food:
		return "FOOD"
	case Water:
		return "WATER"
	case Medical:
		return "MEDICAL"
	case Shelter:
		return "SHELTER"
	case Evacuation:
		return "EVACUATION"
	case Equipment:
		return "EQUIPMENT"
	default:
		return fmt.Sprintf("RESOURCE_TYPE(%d)", uint8(t))
	}
}

// ParseResourceType maps a wire name to its ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	switch s {
	case "FOOD":
		return Food, nil
	case "WATER":
		return Water, nil
	case "MEDICAL":
		return Medical, nil
	case "SHELTER":
		return Shelter, nil
	case "EVACUATION":
		return Evacuation, nil
	case "EQUIPMENT":
		return Equipment, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownResourceType, s)
	}
}

// Priority ranks the urgency of a resource request.
type Priority uint8

const (
	Low Priority = iota
	Medium
	High
	Critical
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("PRIORITY(%d)", uint8(p))
	}
}

// ParsePriority maps a wire name to its Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "LOW":
		return Low, nil
	case "MEDIUM":
		return Medium, nil
	case "HIGH":
		return High, nil
	case "CRITICAL":
		return Critical, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
	}
}

// RequestStatus is the lifecycle state of a resource request. Transitions
// are forward only: PENDING to APPROVED or REJECTED, APPROVED to FULFILLED.
type RequestStatus uint8

const (
	StatusPending RequestStatus = iota
	StatusApproved
	StatusRejected
	StatusFulfilled
)

func (s RequestStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusApproved:
		return "APPROVED"
	case StatusRejected:
		return "REJECTED"
	case StatusFulfilled:
		return "FULFILLED"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

// Responder is an address on the owner-managed responder whitelist. Level
// gates privileged operations.
type Responder struct {
	Addr         common.Address
	Name         string
	Organization string
	Active       bool
	Level        uint8
}

// ResourceRequest is a plea for supplies at a location. Anyone may file one.
type ResourceRequest struct {
	ID               uint64
	Requester        common.Address
	Location         string
	Type             ResourceType
	Quantity         uint64
	Priority         Priority
	Description      string
	SubmittedAt      time.Time
	Status           RequestStatus
	ApprovedQuantity uint64
	RejectionReason  string
}

// Allocation records supplies dispatched against an approved request.
type Allocation struct {
	ID           uint64
	RequestID    uint64
	Supplier     common.Address
	Quantity     uint64
	Cost         *big.Int
	AllocatedAt  time.Time
	Delivered    bool
	TrackingInfo string
}

// EmergencyEvent is declared metadata about an ongoing disaster. Budget and
// used-budget fields are bookkeeping only; allocation cost is capped by the
// fund, not by any event budget.
type EmergencyEvent struct {
	ID         common.Hash
	Type       string
	Location   string
	Severity   uint8
	Start      time.Time
	End        time.Time
	Active     bool
	Budget     *big.Int
	UsedBudget *big.Int
}

// ResourceAllocator owns the responder whitelist, resource inventory, and the
// request/approval/allocation/delivery workflow, and maintains its own
// emergency fund.
type ResourceAllocator struct {
	env   *ledger.Env
	log   ledger.EventLog
	guard ledger.Guard
	owner common.Address
	addr  common.Address

	responders  map[common.Address]*Responder
	requests    map[uint64]*ResourceRequest
	byLocation  map[string][]uint64
	byRequester map[common.Address][]uint64
	allocations map[uint64]*Allocation
	events      map[common.Hash]*EmergencyEvent
	eventOrder  []common.Hash

	available map[ResourceType]uint64
	reserved  map[ResourceType]uint64

	fund             *big.Int
	nextRequestID    uint64
	nextAllocationID uint64
}

// NewResourceAllocator deploys an allocator at the given contract address.
func NewResourceAllocator(env *ledger.Env, owner, addr common.Address) *ResourceAllocator {
	return &ResourceAllocator{
		env:         env,
		owner:       owner,
		addr:        addr,
		responders:  make(map[common.Address]*Responder),
		requests:    make(map[uint64]*ResourceRequest),
		byLocation:  make(map[string][]uint64),
		byRequester: make(map[common.Address][]uint64),
		allocations: make(map[uint64]*Allocation),
		events:      make(map[common.Hash]*EmergencyEvent),
		available:   make(map[ResourceType]uint64),
		reserved:    make(map[ResourceType]uint64),
		fund:        new(big.Int),

		nextRequestID:    1,
		nextAllocationID: 1,
	}
}

// Owner returns the deployer address.
func (a *ResourceAllocator) Owner() common.Address { return a.owner }

// Address returns the contract's own account, which holds the fund.
func (a *ResourceAllocator) Address() common.Address { return a.addr }

// Events exposes the append-only event log.
func (a *ResourceAllocator) Events() *ledger.EventLog { return &a.log }

// Fund returns the current emergency fund balance.
func (a *ResourceAllocator) Fund() *big.Int { return new(big.Int).Set(a.fund) }

// AuthorizeResponder whitelists an address at an authorization level between
// 1 and 5. Owner only; an address is authorized once.
func (a *ResourceAllocator) AuthorizeResponder(call ledger.Call, addr common.Address, name, organization string, level uint8) error {
	if call.Caller != a.owner {
		return ErrNotOwner
	}
	if level < 1 || level > MaxResponderLevel {
		return fmt.Errorf("%w: %d", ErrBadLevel, level)
	}
	if _, exists := a.responders[addr]; exists {
		return fmt.Errorf("%w: %s", ErrResponderExists, addr.Hex())
	}
	a.responders[addr] = &Responder{
		Addr:         addr,
		Name:         name,
		Organization: organization,
		Active:       true,
		Level:        level,
	}
	a.log.Emit(ResponderAuthorized{Responder: addr, Name: name, Organization: organization, Level: level})
	return nil
}

// SetResponderLevel changes a responder's authorization level. Owner only.
func (a *ResourceAllocator) SetResponderLevel(call ledger.Call, addr common.Address, level uint8) error {
	if call.Caller != a.owner {
		return ErrNotOwner
	}
	if level < 1 || level > MaxResponderLevel {
		return fmt.Errorf("%w: %d", ErrBadLevel, level)
	}
	responder, ok := a.responders[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResponder, addr.Hex())
	}
	responder.Level = level
	a.log.Emit(ResponderLevelChanged{Responder: addr, Level: level})
	return nil
}

// ToggleResponderStatus flips a responder's active flag. Owner only.
func (a *ResourceAllocator) ToggleResponderStatus(call ledger.Call, addr common.Address) error {
	if call.Caller != a.owner {
		return ErrNotOwner
	}
	responder, ok := a.responders[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResponder, addr.Hex())
	}
	responder.Active = !responder.Active
	a.log.Emit(ResponderStatusChanged{Responder: addr, Active: responder.Active})
	return nil
}

// CreateEmergencyEvent records disaster metadata. Requires an active
// responder of at least DeclareEventLevel. The budget is advisory.
func (a *ResourceAllocator) CreateEmergencyEvent(call ledger.Call, eventType, location string, severity uint8, duration time.Duration, budget *big.Int) (common.Hash, error) {
	if _, err := a.activeResponder(call.Caller, DeclareEventLevel); err != nil {
		return common.Hash{}, err
	}
	now := a.env.Now()
	id := deriveEventID(eventType, location, now, call.Caller)
	if budget == nil {
		budget = new(big.Int)
	}
	a.events[id] = &EmergencyEvent{
		ID:         id,
		Type:       eventType,
		Location:   location,
		Severity:   severity,
		Start:      now,
		End:        now.Add(duration),
		Active:     true,
		Budget:     new(big.Int).Set(budget),
		UsedBudget: new(big.Int),
	}
	a.eventOrder = append(a.eventOrder, id)
	a.log.Emit(EmergencyEventCreated{ID: id, Type: eventType, Location: location, Severity: severity, Budget: new(big.Int).Set(budget)})
	return id, nil
}

// RequestResources files a new pending request. Open to any caller.
func (a *ResourceAllocator) RequestResources(call ledger.Call, location string, resourceType ResourceType, quantity uint64, priority Priority, description string) (uint64, error) {
	if resourceType >= resourceTypeCount {
		return 0, fmt.Errorf("%w: %d", ErrUnknownResourceType, resourceType)
	}
	if priority > Critical {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPriority, priority)
	}
	if quantity == 0 {
		return 0, ErrZeroQuantity
	}

	id := a.nextRequestID
	a.nextRequestID++

	a.requests[id] = &ResourceRequest{
		ID:          id,
		Requester:   call.Caller,
		Location:    location,
		Type:        resourceType,
		Quantity:    quantity,
		Priority:    priority,
		Description: description,
		SubmittedAt: a.env.Now(),
		Status:      StatusPending,
	}
	a.byLocation[location] = append(a.byLocation[location], id)
	a.byRequester[call.Caller] = append(a.byRequester[call.Caller], id)

	a.log.Emit(RequestCreated{
		ID:        id,
		Requester: call.Caller,
		Location:  location,
		Type:      resourceType.String(),
		Quantity:  quantity,
		Priority:  priority.String(),
	})
	return id, nil
}

// ApproveRequest reserves inventory for a pending request. Requires an
// active responder. The approved quantity may be less than requested but
// must be covered by available inventory.
func (a *ResourceAllocator) ApproveRequest(call ledger.Call, id uint64, approvedQuantity uint64) error {
	if _, err := a.activeResponder(call.Caller, 1); err != nil {
		return err
	}
	request, ok := a.requests[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRequest, id)
	}
	if request.Status != StatusPending {
		return fmt.Errorf("%w: %s", ErrRequestNotPending, request.Status)
	}
	if approvedQuantity == 0 {
		return ErrZeroQuantity
	}
	if approvedQuantity > request.Quantity {
		return fmt.Errorf("%w: %d > %d", ErrQuantityExceedsRequest, approvedQuantity, request.Quantity)
	}
	if a.available[request.Type] < approvedQuantity {
		return fmt.Errorf("%w: %s has %d available", ErrInsufficientInventory, request.Type, a.available[request.Type])
	}

	a.available[request.Type] -= approvedQuantity
	a.reserved[request.Type] += approvedQuantity
	request.Status = StatusApproved
	request.ApprovedQuantity = approvedQuantity

	a.log.Emit(RequestApproved{ID: id, Approver: call.Caller, ApprovedQuantity: approvedQuantity})
	return nil
}

// RejectRequest closes a pending request with a reason. No inventory effect.
func (a *ResourceAllocator) RejectRequest(call ledger.Call, id uint64, reason string) error {
	if _, err := a.activeResponder(call.Caller, 1); err != nil {
		return err
	}
	request, ok := a.requests[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRequest, id)
	}
	if request.Status != StatusPending {
		return fmt.Errorf("%w: %s", ErrRequestNotPending, request.Status)
	}
	request.Status = StatusRejected
	request.RejectionReason = reason
	a.log.Emit(RequestRejected{ID: id, Rejector: call.Caller, Reason: reason})
	return nil
}

// AllocateResources dispatches the reserved quantity of an approved request
// through a supplier, paying the cost out of the emergency fund. Requires an
// active responder of at least AllocateLevel.
func (a *ResourceAllocator) AllocateResources(call ledger.Call, requestID uint64, supplier common.Address, cost *big.Int, trackingInfo string) (uint64, error) {
	release, err := a.guard.Enter()
	if err != nil {
		return 0, err
	}
	defer release()

	if _, err := a.activeResponder(call.Caller, AllocateLevel); err != nil {
		return 0, err
	}
	request, ok := a.requests[requestID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRequest, requestID)
	}
	if request.Status != StatusApproved {
		return 0, fmt.Errorf("%w: %s", ErrRequestNotApproved, request.Status)
	}
	if cost == nil {
		cost = new(big.Int)
	}
	if a.fund.Cmp(cost) < 0 {
		return 0, fmt.Errorf("%w: fund holds %s", ErrCostExceedsFund, a.fund)
	}

	if cost.Sign() > 0 {
		if err := a.env.Transfer(a.addr, supplier, cost); err != nil {
			return 0, err
		}
		a.fund.Sub(a.fund, cost)
	}
	a.reserved[request.Type] -= request.ApprovedQuantity
	request.Status = StatusFulfilled

	id := a.nextAllocationID
	a.nextAllocationID++
	a.allocations[id] = &Allocation{
		ID:           id,
		RequestID:    requestID,
		Supplier:     supplier,
		Quantity:     request.ApprovedQuantity,
		Cost:         new(big.Int).Set(cost),
		AllocatedAt:  a.env.Now(),
		TrackingInfo: trackingInfo,
	}

	a.log.Emit(AllocationCreated{
		ID:        id,
		RequestID: requestID,
		Supplier:  supplier,
		Quantity:  request.ApprovedQuantity,
		Cost:      new(big.Int).Set(cost),
	})
	return id, nil
}

// MarkDelivered flips an allocation's delivered flag and records proof.
// Requires an active responder; the flag only moves false to true.
func (a *ResourceAllocator) MarkDelivered(call ledger.Call, allocationID uint64, proof string) error {
	if _, err := a.activeResponder(call.Caller, 1); err != nil {
		return err
	}
	allocation, ok := a.allocations[allocationID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAllocation, allocationID)
	}
	if allocation.Delivered {
		return fmt.Errorf("%w: %d", ErrAlreadyDelivered, allocationID)
	}
	allocation.Delivered = true
	if proof != "" {
		allocation.TrackingInfo = proof
	}
	a.log.Emit(AllocationDelivered{ID: allocationID, Confirmer: call.Caller, Proof: proof})
	return nil
}

// AddResources grows available inventory. Requires an active responder of at
// least AllocateLevel. No upper bound.
func (a *ResourceAllocator) AddResources(call ledger.Call, resourceType ResourceType, quantity uint64) error {
	if _, err := a.activeResponder(call.Caller, AllocateLevel); err != nil {
		return err
	}
	if resourceType >= resourceTypeCount {
		return fmt.Errorf("%w: %d", ErrUnknownResourceType, resourceType)
	}
	if quantity == 0 {
		return ErrZeroQuantity
	}
	a.available[resourceType] += quantity
	a.log.Emit(ResourcesAdded{Type: resourceType.String(), Quantity: quantity, Available: a.available[resourceType]})
	return nil
}

// DepositEmergencyFund adds the attached value to the fund. Open to anyone.
func (a *ResourceAllocator) DepositEmergencyFund(call ledger.Call) error {
	release, err := a.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	amount := call.AttachedValue()
	if amount.Sign() <= 0 {
		return ErrZeroDeposit
	}
	if err := a.env.Transfer(call.Caller, a.addr, amount); err != nil {
		return err
	}
	a.fund.Add(a.fund, amount)
	a.log.Emit(FundDeposited{From: call.Caller, Amount: new(big.Int).Set(amount), Fund: a.Fund()})
	return nil
}

// GetRequest returns a copy of a request.
func (a *ResourceAllocator) GetRequest(id uint64) (ResourceRequest, error) {
	request, ok := a.requests[id]
	if !ok {
		return ResourceRequest{}, fmt.Errorf("%w: %d", ErrUnknownRequest, id)
	}
	return *request, nil
}

// GetAllocation returns a copy of an allocation.
func (a *ResourceAllocator) GetAllocation(id uint64) (Allocation, error) {
	allocation, ok := a.allocations[id]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %d", ErrUnknownAllocation, id)
	}
	out := *allocation
	out.Cost = new(big.Int).Set(allocation.Cost)
	return out, nil
}

// GetResponder returns a copy of a responder record.
func (a *ResourceAllocator) GetResponder(addr common.Address) (Responder, error) {
	responder, ok := a.responders[addr]
	if !ok {
		return Responder{}, fmt.Errorf("%w: %s", ErrUnknownResponder, addr.Hex())
	}
	return *responder, nil
}

// GetEmergencyEvent returns a copy of a declared event.
func (a *ResourceAllocator) GetEmergencyEvent(id common.Hash) (EmergencyEvent, error) {
	event, ok := a.events[id]
	if !ok {
		return EmergencyEvent{}, fmt.Errorf("unknown emergency event: %s", id.Hex())
	}
	out := *event
	out.Budget = new(big.Int).Set(event.Budget)
	out.UsedBudget = new(big.Int).Set(event.UsedBudget)
	return out, nil
}

// EmergencyEventIDs returns declared event identifiers in creation order.
func (a *ResourceAllocator) EmergencyEventIDs() []common.Hash {
	out := make([]common.Hash, len(a.eventOrder))
	copy(out, a.eventOrder)
	return out
}

// RequestIDsByLocation returns request identifiers filed for a location.
func (a *ResourceAllocator) RequestIDsByLocation(location string) []uint64 {
	ids := a.byLocation[location]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// RequestIDsByRequester returns request identifiers filed by an address.
func (a *ResourceAllocator) RequestIDsByRequester(addr common.Address) []uint64 {
	ids := a.byRequester[addr]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// PendingRequestIDsByPriority scans all requests and returns the pending
// ones at the given priority, compacted to exact size.
func (a *ResourceAllocator) PendingRequestIDsByPriority(priority Priority) []uint64 {
	var out []uint64
	for id := uint64(1); id < a.nextRequestID; id++ {
		request := a.requests[id]
		if request.Status == StatusPending && request.Priority == priority {
			out = append(out, id)
		}
	}
	return out
}

// Inventory returns the available and reserved counters per resource type.
func (a *ResourceAllocator) Inventory() (available, reserved map[ResourceType]uint64) {
	available = make(map[ResourceType]uint64, resourceTypeCount)
	reserved = make(map[ResourceType]uint64, resourceTypeCount)
	for t := ResourceType(0); t < resourceTypeCount; t++ {
		available[t] = a.available[t]
		reserved[t] = a.reserved[t]
	}
	return available, reserved
}

func (a *ResourceAllocator) activeResponder(addr common.Address, minLevel uint8) (*Responder, error) {
	responder, ok := a.responders[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResponder, addr.Hex())
	}
	if !responder.Active {
		return nil, fmt.Errorf("%w: %s", ErrResponderInactive, addr.Hex())
	}
	if responder.Level < minLevel {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientLevel, minLevel, responder.Level)
	}
	return responder, nil
}

// deriveEventID builds the content-addressed emergency event identifier.
func deriveEventID(eventType, location string, at time.Time, caller common.Address) common.Hash {
	buf := make([]byte, 8, 8+len(eventType)+len(location)+common.AddressLength)
	binary.BigEndian.PutUint64(buf, uint64(at.UnixNano()))
	buf = append(buf, eventType...)
	buf = append(buf, location...)
	buf = append(buf, caller.Bytes()...)
	return crypto.Keccak256Hash(buf)
}
