package insurance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
)

// PremiumRatePercent is the minimum premium as a percentage of coverage.
const PremiumRatePercent = 5

var (
	ErrNotOwner          = errors.New("caller is not the contract owner")
	ErrZeroPremium       = errors.New("premium payment required")
	ErrZeroCoverage      = errors.New("coverage amount must be positive")
	ErrZeroDuration      = errors.New("policy duration must be positive")
	ErrZeroThreshold     = errors.New("trigger threshold must be positive")
	ErrPremiumTooLow     = errors.New("premium below minimum")
	ErrUnknownEventType  = errors.New("unknown event type")
	ErrUnknownPolicy     = errors.New("policy id out of range")
	ErrUnknownClaim      = errors.New("claim not found")
	ErrNotPolicyholder   = errors.New("caller is not the policyholder")
	ErrPolicyNotActive   = errors.New("policy is not active")
	ErrPolicyOutOfWindow = errors.New("policy outside its active window")
	ErrAlreadyClaimed    = errors.New("policy already claimed")
	ErrReadingUnverified = errors.New("reading is not verified")
	ErrLocationMismatch  = errors.New("reading location does not match policy")
	ErrThresholdNotMet   = errors.New("reading does not meet trigger threshold")
	ErrZeroAmount        = errors.New("amount must be positive")
	ErrPoolInsufficient  = errors.New("amount exceeds insurance pool")
)

// EventType classifies the weather peril a policy covers.
type EventType uint8

const (
	Flood EventType = iota
	Drought
	Storm
	ExtremeTemperature
	Hail
)

func (t EventType) String() string {
	switch t {
	case Flood:
		return "FLOOD"
	case Drought:
		return "DROUGHT"
	case Storm:
		return "STORM"
	case ExtremeTemperature:
		return "EXTREME_TEMPERATURE"
	case Hail:
		return "HAIL"
	default:
		return fmt.Sprintf("EVENT_TYPE(%d)", uint8(t))
	}
}

// ParseEventType maps the wire name of a peril to its EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "FLOOD":
		return Flood, nil
	case "DROUGHT":
		return Drought, nil
	case "STORM":
		return Storm, nil
	case "EXTREME_TEMPERATURE":
		return ExtremeTemperature, nil
	case "HAIL":
		return Hail, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
}

// PolicyStatus is the lifecycle state of a policy. Transitions are forward
// only: an active policy can only become claimed.
type PolicyStatus uint8

const (
	StatusActive PolicyStatus = iota
	StatusExpired
	StatusClaimed
	StatusCancelled
)

func (s PolicyStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusExpired:
		return "EXPIRED"
	case StatusClaimed:
		return "CLAIMED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

// Policy is a parametric insurance contract between a holder and the pool.
// Threshold semantics depend on the event type and use the same ×100 scaling
// as readings.
type Policy struct {
	ID        uint64
	Holder    common.Address
	Location  string
	EventType EventType
	Premium   *big.Int
	Coverage  *big.Int
	Threshold int64
	Start     time.Time
	End       time.Time
	Status    PolicyStatus
	Claimed   bool
	ClaimPaid *big.Int
}

// Claim records one claim submission. Its identifier is content-derived
// rather than sequential so it cannot be enumerated.
type Claim struct {
	ID          common.Hash
	PolicyID    uint64
	ReadingID   uint64
	Amount      *big.Int
	SubmittedAt time.Time
	Processed   bool
	Approved    bool
}

// InsuranceEngine owns policies and claims, holds the premium pool, and
// decides payouts from verified registry readings.
type InsuranceEngine struct {
	env      *ledger.Env
	log      ledger.EventLog
	guard    ledger.Guard
	owner    common.Address
	addr     common.Address
	registry *registry.StationRegistry

	policies map[uint64]*Policy
	byHolder map[common.Address][]uint64
	claims   map[common.Hash]*Claim

	pool            *big.Int
	totalClaimsPaid *big.Int
	nextPolicyID    uint64
}

// NewInsuranceEngine deploys an engine at the given contract address, reading
// verified weather data from the registry.
func NewInsuranceEngine(env *ledger.Env, owner, addr common.Address, reg *registry.StationRegistry) *InsuranceEngine {
	return &InsuranceEngine{
		env:             env,
		owner:           owner,
		addr:            addr,
		registry:        reg,
		policies:        make(map[uint64]*Policy),
		byHolder:        make(map[common.Address][]uint64),
		claims:          make(map[common.Hash]*Claim),
		pool:            new(big.Int),
		totalClaimsPaid: new(big.Int),
		nextPolicyID:    1,
	}
}

// Owner returns the deployer address.
func (e *InsuranceEngine) Owner() common.Address { return e.owner }

// Address returns the contract's own account, which holds the pool funds.
func (e *InsuranceEngine) Address() common.Address { return e.addr }

// Events exposes the append-only event log.
func (e *InsuranceEngine) Events() *ledger.EventLog { return &e.log }

// Pool returns the current premium pool balance.
func (e *InsuranceEngine) Pool() *big.Int { return new(big.Int).Set(e.pool) }

// TotalClaimsPaid returns the cumulative payout total.
func (e *InsuranceEngine) TotalClaimsPaid() *big.Int { return new(big.Int).Set(e.totalClaimsPaid) }

// MinimumPremium quotes the lowest accepted premium for a coverage amount.
func MinimumPremium(coverage *big.Int) *big.Int {
	out := new(big.Int).Mul(coverage, big.NewInt(PremiumRatePercent))
	return out.Div(out, big.NewInt(100))
}

// CreatePolicy opens a policy for the caller, funded by the attached premium.
// The policy is active immediately and for the given duration; the full
// payment joins the pool.
func (e *InsuranceEngine) CreatePolicy(call ledger.Call, location string, eventType EventType, coverage *big.Int, threshold int64, duration time.Duration) (uint64, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return 0, err
	}
	defer release()

	premium := call.AttachedValue()
	if premium.Sign() <= 0 {
		return 0, ErrZeroPremium
	}
	if coverage == nil || coverage.Sign() <= 0 {
		return 0, ErrZeroCoverage
	}
	if duration <= 0 {
		return 0, ErrZeroDuration
	}
	if threshold <= 0 {
		return 0, ErrZeroThreshold
	}
	if eventType > Hail {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEventType, eventType)
	}
	if premium.Cmp(MinimumPremium(coverage)) < 0 {
		return 0, fmt.Errorf("%w: minimum is %s", ErrPremiumTooLow, MinimumPremium(coverage))
	}

	if err := e.env.Transfer(call.Caller, e.addr, premium); err != nil {
		return 0, err
	}

	now := e.env.Now()
	id := e.nextPolicyID
	e.nextPolicyID++

	policy := &Policy{
		ID:        id,
		Holder:    call.Caller,
		Location:  location,
		EventType: eventType,
		Premium:   new(big.Int).Set(premium),
		Coverage:  new(big.Int).Set(coverage),
		Threshold: threshold,
		Start:     now,
		End:       now.Add(duration),
		Status:    StatusActive,
		ClaimPaid: new(big.Int),
	}
	e.policies[id] = policy
	e.byHolder[call.Caller] = append(e.byHolder[call.Caller], id)
	e.pool.Add(e.pool, premium)

	e.log.Emit(PolicyCreated{
		ID:        id,
		Holder:    call.Caller,
		Location:  location,
		EventType: eventType.String(),
		Coverage:  new(big.Int).Set(coverage),
		Premium:   new(big.Int).Set(premium),
		Start:     policy.Start,
		End:       policy.End,
	})
	return id, nil
}

// SubmitClaim files a claim against a policy using a verified reading, then
// processes it immediately. A claim is approved whenever the pool covers the
// computed amount; otherwise it is recorded processed and unapproved with no
// payout, and the policy stays active so the holder can resubmit once the
// pool is replenished.
func (e *InsuranceEngine) SubmitClaim(call ledger.Call, policyID, readingID uint64) (Claim, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return Claim{}, err
	}
	defer release()

	policy, ok := e.policies[policyID]
	if !ok {
		return Claim{}, fmt.Errorf("%w: %d", ErrUnknownPolicy, policyID)
	}
	if policy.Holder != call.Caller {
		return Claim{}, ErrNotPolicyholder
	}
	if policy.Status != StatusActive {
		return Claim{}, fmt.Errorf("%w: %s", ErrPolicyNotActive, policy.Status)
	}
	now := e.env.Now()
	if now.Before(policy.Start) || now.After(policy.End) {
		return Claim{}, ErrPolicyOutOfWindow
	}
	if policy.Claimed {
		return Claim{}, ErrAlreadyClaimed
	}

	reading, err := e.registry.GetReading(readingID)
	if err != nil {
		return Claim{}, err
	}
	if !reading.Verified {
		return Claim{}, fmt.Errorf("%w: %d", ErrReadingUnverified, readingID)
	}
	if reading.Location != policy.Location {
		return Claim{}, fmt.Errorf("%w: policy %q, reading %q", ErrLocationMismatch, policy.Location, reading.Location)
	}
	if !thresholdMet(policy.EventType, policy.Threshold, reading) {
		return Claim{}, ErrThresholdNotMet
	}

	amount := claimAmount(policy.Coverage, severityScore(policy.EventType, policy.Threshold, reading))
	claim := &Claim{
		ID:          deriveClaimID(policyID, readingID, now, call.Caller),
		PolicyID:    policyID,
		ReadingID:   readingID,
		Amount:      amount,
		SubmittedAt: now,
		Processed:   true,
	}

	if e.pool.Cmp(amount) >= 0 {
		if amount.Sign() > 0 {
			if err := e.env.Transfer(e.addr, policy.Holder, amount); err != nil {
				return Claim{}, err
			}
		}
		e.pool.Sub(e.pool, amount)
		e.totalClaimsPaid.Add(e.totalClaimsPaid, amount)
		policy.Status = StatusClaimed
		policy.Claimed = true
		policy.ClaimPaid = new(big.Int).Set(amount)
		claim.Approved = true
	}

	e.claims[claim.ID] = claim

	e.log.Emit(ClaimSubmitted{
		ClaimID:   claim.ID,
		PolicyID:  policyID,
		ReadingID: readingID,
		Amount:    new(big.Int).Set(amount),
	})
	payout := new(big.Int)
	if claim.Approved {
		payout.Set(amount)
	}
	e.log.Emit(ClaimProcessed{
		ClaimID:  claim.ID,
		PolicyID: policyID,
		Approved: claim.Approved,
		Payout:   payout,
	})
	return *claim, nil
}

// DepositFunds adds the attached value to the pool. Owner only.
func (e *InsuranceEngine) DepositFunds(call ledger.Call) error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	if call.Caller != e.owner {
		return ErrNotOwner
	}
	amount := call.AttachedValue()
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if err := e.env.Transfer(call.Caller, e.addr, amount); err != nil {
		return err
	}
	e.pool.Add(e.pool, amount)
	e.log.Emit(FundsDeposited{From: call.Caller, Amount: new(big.Int).Set(amount), Pool: e.Pool()})
	return nil
}

// WithdrawFunds moves pool funds back to the owner. Fails when the amount
// exceeds the pool.
func (e *InsuranceEngine) WithdrawFunds(call ledger.Call, amount *big.Int) error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	if call.Caller != e.owner {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if e.pool.Cmp(amount) < 0 {
		return fmt.Errorf("%w: pool holds %s", ErrPoolInsufficient, e.pool)
	}
	if err := e.env.Transfer(e.addr, e.owner, amount); err != nil {
		return err
	}
	e.pool.Sub(e.pool, amount)
	e.log.Emit(FundsWithdrawn{To: e.owner, Amount: new(big.Int).Set(amount), Pool: e.Pool()})
	return nil
}

// GetPolicy returns a copy of a policy.
func (e *InsuranceEngine) GetPolicy(id uint64) (Policy, error) {
	policy, ok := e.policies[id]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %d", ErrUnknownPolicy, id)
	}
	out := *policy
	out.Premium = new(big.Int).Set(policy.Premium)
	out.Coverage = new(big.Int).Set(policy.Coverage)
	out.ClaimPaid = new(big.Int).Set(policy.ClaimPaid)
	return out, nil
}

// GetClaim returns a copy of a claim by its derived identifier.
func (e *InsuranceEngine) GetClaim(id common.Hash) (Claim, error) {
	claim, ok := e.claims[id]
	if !ok {
		return Claim{}, fmt.Errorf("%w: %s", ErrUnknownClaim, id.Hex())
	}
	out := *claim
	out.Amount = new(big.Int).Set(claim.Amount)
	return out, nil
}

// PolicyIDsByHolder returns the policies opened by a holder, oldest first.
func (e *InsuranceEngine) PolicyIDsByHolder(holder common.Address) []uint64 {
	ids := e.byHolder[holder]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// PolicyCount returns the number of policies created so far.
func (e *InsuranceEngine) PolicyCount() uint64 {
	return e.nextPolicyID - 1
}

// deriveClaimID builds the content-addressed claim identifier.
func deriveClaimID(policyID, readingID uint64, at time.Time, caller common.Address) common.Hash {
	buf := make([]byte, 24, 24+common.AddressLength)
	binary.BigEndian.PutUint64(buf[0:8], policyID)
	binary.BigEndian.PutUint64(buf[8:16], readingID)
	binary.BigEndian.PutUint64(buf[16:24], uint64(at.UnixNano()))
	buf = append(buf, caller.Bytes()...)
	return crypto.Keccak256Hash(buf)
}
