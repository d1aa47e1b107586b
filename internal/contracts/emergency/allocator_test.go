package emergency

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
)

var (
	owner     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	fundAddr  = common.HexToAddress("0x0000000000000000000000000000000000001002")
	approver  = common.HexToAddress("0x0000000000000000000000000000000000000021") // level 1
	allocator = common.HexToAddress("0x0000000000000000000000000000000000000022") // level 2
	commander = common.HexToAddress("0x0000000000000000000000000000000000000023") // level 3
	requester = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	supplier  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func setupAllocator(t *testing.T) (*ResourceAllocator, *ledger.Env, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	env := ledger.NewEnv(clock)
	env.Credit(owner, big.NewInt(1_000_000))

	a := NewResourceAllocator(env, owner, fundAddr)
	for _, r := range []struct {
		addr  common.Address
		level uint8
	}{
		{approver, 1},
		{allocator, 2},
		{commander, 3},
	} {
		if err := a.AuthorizeResponder(ledger.Call{Caller: owner}, r.addr, "Responder", "Org", r.level); err != nil {
			t.Fatalf("Failed to authorize responder: %v", err)
		}
	}
	if err := a.AddResources(ledger.Call{Caller: allocator}, Water, 1000); err != nil {
		t.Fatalf("Failed to seed inventory: %v", err)
	}
	if err := a.DepositEmergencyFund(ledger.Call{Caller: owner, Value: big.NewInt(10_000)}); err != nil {
		t.Fatalf("Failed to seed fund: %v", err)
	}
	return a, env, clock
}

func pendingRequest(t *testing.T, a *ResourceAllocator, quantity uint64) uint64 {
	t.Helper()
	id, err := a.RequestResources(ledger.Call{Caller: requester}, "miami", Water, quantity, High, "flood response")
	if err != nil {
		t.Fatalf("Failed to request resources: %v", err)
	}
	return id
}

func checkInventory(t *testing.T, a *ResourceAllocator, wantAvailable, wantReserved uint64) {
	t.Helper()
	available, reserved := a.Inventory()
	if available[Water] != wantAvailable {
		t.Errorf("Expected %d available, got %d", wantAvailable, available[Water])
	}
	if reserved[Water] != wantReserved {
		t.Errorf("Expected %d reserved, got %d", wantReserved, reserved[Water])
	}
}

func TestAuthorizeResponder(t *testing.T) {
	a, _, _ := setupAllocator(t)

	if err := a.AuthorizeResponder(ledger.Call{Caller: requester}, requester, "Rogue", "Org", 5); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if err := a.AuthorizeResponder(ledger.Call{Caller: owner}, approver, "Again", "Org", 1); !errors.Is(err, ErrResponderExists) {
		t.Errorf("Expected ErrResponderExists, got %v", err)
	}
	for _, level := range []uint8{0, 6} {
		addr := common.HexToAddress("0x00000000000000000000000000000000000000cc")
		if err := a.AuthorizeResponder(ledger.Call{Caller: owner}, addr, "Bad", "Org", level); !errors.Is(err, ErrBadLevel) {
			t.Errorf("Expected ErrBadLevel for level %d, got %v", level, err)
		}
	}
}

func TestRequestApproveAllocateDeliver(t *testing.T) {
	a, env, _ := setupAllocator(t)
	id := pendingRequest(t, a, 300)

	// Approve less than requested; inventory moves available -> reserved.
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 200); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	checkInventory(t, a, 800, 200)
	request, _ := a.GetRequest(id)
	if request.Status != StatusApproved || request.ApprovedQuantity != 200 {
		t.Fatalf("Unexpected request state: %+v", request)
	}

	// Allocate pays the supplier from the fund and consumes the reservation.
	allocID, err := a.AllocateResources(ledger.Call{Caller: allocator}, id, supplier, big.NewInt(2_500), "truck 7")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	checkInventory(t, a, 800, 0)
	if got := a.Fund(); got.Cmp(big.NewInt(7_500)) != 0 {
		t.Errorf("Expected fund 7500, got %s", got)
	}
	if got := env.BalanceOf(supplier); got.Cmp(big.NewInt(2_500)) != 0 {
		t.Errorf("Expected supplier paid 2500, got %s", got)
	}
	request, _ = a.GetRequest(id)
	if request.Status != StatusFulfilled {
		t.Errorf("Expected FULFILLED, got %s", request.Status)
	}

	// Delivery confirmation is once only.
	if err := a.MarkDelivered(ledger.Call{Caller: approver}, allocID, "signed receipt"); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if err := a.MarkDelivered(ledger.Call{Caller: approver}, allocID, "again"); !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("Expected ErrAlreadyDelivered, got %v", err)
	}
	allocation, _ := a.GetAllocation(allocID)
	if !allocation.Delivered || allocation.TrackingInfo != "signed receipt" {
		t.Errorf("Unexpected allocation state: %+v", allocation)
	}
}

func TestApproveRequestValidation(t *testing.T) {
	a, _, _ := setupAllocator(t)
	id := pendingRequest(t, a, 300)

	if err := a.ApproveRequest(ledger.Call{Caller: requester}, id, 100); !errors.Is(err, ErrUnknownResponder) {
		t.Errorf("Expected ErrUnknownResponder, got %v", err)
	}
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 301); !errors.Is(err, ErrQuantityExceedsRequest) {
		t.Errorf("Expected ErrQuantityExceedsRequest, got %v", err)
	}

	oversized := pendingRequest(t, a, 5000)
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, oversized, 5000); !errors.Is(err, ErrInsufficientInventory) {
		t.Errorf("Expected ErrInsufficientInventory, got %v", err)
	}

	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 100); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 100); !errors.Is(err, ErrRequestNotPending) {
		t.Errorf("Expected ErrRequestNotPending, got %v", err)
	}
}

func TestRejectRequest(t *testing.T) {
	a, _, _ := setupAllocator(t)
	id := pendingRequest(t, a, 300)

	if err := a.RejectRequest(ledger.Call{Caller: approver}, id, "duplicate filing"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	request, _ := a.GetRequest(id)
	if request.Status != StatusRejected || request.RejectionReason != "duplicate filing" {
		t.Errorf("Unexpected request state: %+v", request)
	}
	// No inventory effect.
	checkInventory(t, a, 1000, 0)

	if _, err := a.AllocateResources(ledger.Call{Caller: allocator}, id, supplier, nil, ""); !errors.Is(err, ErrRequestNotApproved) {
		t.Errorf("Expected ErrRequestNotApproved, got %v", err)
	}
}

func TestAllocateLevelGate(t *testing.T) {
	a, _, _ := setupAllocator(t)
	id := pendingRequest(t, a, 100)
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 100); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// Level 1 can approve but not allocate.
	if _, err := a.AllocateResources(ledger.Call{Caller: approver}, id, supplier, nil, ""); !errors.Is(err, ErrInsufficientLevel) {
		t.Errorf("Expected ErrInsufficientLevel, got %v", err)
	}
	if err := a.AddResources(ledger.Call{Caller: approver}, Water, 10); !errors.Is(err, ErrInsufficientLevel) {
		t.Errorf("Expected ErrInsufficientLevel for AddResources, got %v", err)
	}
}

func TestAllocateCostExceedsFund(t *testing.T) {
	a, _, _ := setupAllocator(t)
	id := pendingRequest(t, a, 100)
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 100); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if _, err := a.AllocateResources(ledger.Call{Caller: allocator}, id, supplier, big.NewInt(10_001), ""); !errors.Is(err, ErrCostExceedsFund) {
		t.Fatalf("Expected ErrCostExceedsFund, got %v", err)
	}
	// Failed allocation leaves the reservation in place.
	checkInventory(t, a, 900, 100)

	// Zero cost is a donation run and skips the transfer.
	allocID, err := a.AllocateResources(ledger.Call{Caller: allocator}, id, supplier, nil, "")
	if err != nil {
		t.Fatalf("Zero-cost allocate failed: %v", err)
	}
	allocation, _ := a.GetAllocation(allocID)
	if allocation.Cost.Sign() != 0 {
		t.Errorf("Expected zero cost, got %s", allocation.Cost)
	}
	if got := a.Fund(); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("Fund changed on zero-cost allocation: %s", got)
	}
}

func TestCreateEmergencyEventLevelGate(t *testing.T) {
	a, _, _ := setupAllocator(t)

	if _, err := a.CreateEmergencyEvent(ledger.Call{Caller: allocator}, "HURRICANE", "miami", 4, 72*time.Hour, nil); !errors.Is(err, ErrInsufficientLevel) {
		t.Errorf("Expected ErrInsufficientLevel for level 2, got %v", err)
	}

	id, err := a.CreateEmergencyEvent(ledger.Call{Caller: commander}, "HURRICANE", "miami", 4, 72*time.Hour, big.NewInt(50_000))
	if err != nil {
		t.Fatalf("CreateEmergencyEvent failed: %v", err)
	}
	event, err := a.GetEmergencyEvent(id)
	if err != nil {
		t.Fatalf("GetEmergencyEvent failed: %v", err)
	}
	if !event.Active || event.Severity != 4 || event.Budget.Cmp(big.NewInt(50_000)) != 0 {
		t.Errorf("Unexpected event state: %+v", event)
	}
	if ids := a.EmergencyEventIDs(); len(ids) != 1 || ids[0] != id {
		t.Errorf("Unexpected event ids: %v", ids)
	}
}

func TestInactiveResponderBlocked(t *testing.T) {
	a, _, _ := setupAllocator(t)
	id := pendingRequest(t, a, 100)

	if err := a.ToggleResponderStatus(ledger.Call{Caller: owner}, approver); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, id, 100); !errors.Is(err, ErrResponderInactive) {
		t.Fatalf("Expected ErrResponderInactive, got %v", err)
	}
}

func TestPendingRequestIDsByPriority(t *testing.T) {
	a, _, _ := setupAllocator(t)

	critical1, _ := a.RequestResources(ledger.Call{Caller: requester}, "miami", Water, 10, Critical, "")
	_, _ = a.RequestResources(ledger.Call{Caller: requester}, "miami", Food, 10, Low, "")
	critical2, _ := a.RequestResources(ledger.Call{Caller: requester}, "tampa", Medical, 10, Critical, "")

	ids := a.PendingRequestIDsByPriority(Critical)
	if len(ids) != 2 || ids[0] != critical1 || ids[1] != critical2 {
		t.Errorf("Unexpected critical requests: %v", ids)
	}

	// Approved requests drop out of the pending view.
	if err := a.ApproveRequest(ledger.Call{Caller: approver}, critical1, 10); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	ids = a.PendingRequestIDsByPriority(Critical)
	if len(ids) != 1 || ids[0] != critical2 {
		t.Errorf("Unexpected pending requests after approval: %v", ids)
	}
}

func TestRequestIndexes(t *testing.T) {
	a, _, _ := setupAllocator(t)

	miami, _ := a.RequestResources(ledger.Call{Caller: requester}, "miami", Water, 10, High, "")
	tampa, _ := a.RequestResources(ledger.Call{Caller: supplier}, "tampa", Food, 10, High, "")

	if ids := a.RequestIDsByLocation("miami"); len(ids) != 1 || ids[0] != miami {
		t.Errorf("Unexpected location index: %v", ids)
	}
	if ids := a.RequestIDsByRequester(supplier); len(ids) != 1 || ids[0] != tampa {
		t.Errorf("Unexpected requester index: %v", ids)
	}
}

func TestDepositEmergencyFundOpenToAnyone(t *testing.T) {
	a, env, _ := setupAllocator(t)
	env.Credit(requester, big.NewInt(500))

	if err := a.DepositEmergencyFund(ledger.Call{Caller: requester, Value: big.NewInt(500)}); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if got := a.Fund(); got.Cmp(big.NewInt(10_500)) != 0 {
		t.Errorf("Expected fund 10500, got %s", got)
	}
	if err := a.DepositEmergencyFund(ledger.Call{Caller: requester}); !errors.Is(err, ErrZeroDeposit) {
		t.Errorf("Expected ErrZeroDeposit, got %v", err)
	}
}
