package insurance

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	poolAddr = common.HexToAddress("0x0000000000000000000000000000000000001001")
	holder   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	station1 = common.HexToAddress("0x0000000000000000000000000000000000000011")
	station2 = common.HexToAddress("0x0000000000000000000000000000000000000012")
	station3 = common.HexToAddress("0x0000000000000000000000000000000000000013")
	station4 = common.HexToAddress("0x0000000000000000000000000000000000000014")
)

type fixture struct {
	env    *ledger.Env
	clock  *clockwork.FakeClock
	reg    *registry.StationRegistry
	engine *InsuranceEngine
}

func setupEngine(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	env := ledger.NewEnv(clock)
	env.Credit(owner, big.NewInt(1_000_000))
	env.Credit(holder, big.NewInt(1_000_000))

	reg := registry.NewStationRegistry(env, owner)
	for _, addr := range []common.Address{station1, station2, station3, station4} {
		if err := reg.RegisterStation(ledger.Call{Caller: owner}, addr, "Station", "miami"); err != nil {
			t.Fatalf("Failed to register station: %v", err)
		}
	}
	return &fixture{
		env:    env,
		clock:  clock,
		reg:    reg,
		engine: NewInsuranceEngine(env, owner, poolAddr, reg),
	}
}

// verifiedReading submits a reading and confirms it to quorum.
func (f *fixture) verifiedReading(t *testing.T, in registry.ReadingInput) uint64 {
	t.Helper()
	id, err := f.reg.SubmitReading(ledger.Call{Caller: station1}, in)
	if err != nil {
		t.Fatalf("Failed to submit reading: %v", err)
	}
	for _, verifier := range []common.Address{station2, station3, station4} {
		if err := f.reg.VerifyReading(ledger.Call{Caller: verifier}, id); err != nil {
			t.Fatalf("Failed to verify reading: %v", err)
		}
	}
	return id
}

func (f *fixture) activePolicy(t *testing.T, eventType EventType, coverage int64, threshold int64) uint64 {
	t.Helper()
	premium := MinimumPremium(big.NewInt(coverage))
	id, err := f.engine.CreatePolicy(ledger.Call{Caller: holder, Value: premium},
		"miami", eventType, big.NewInt(coverage), threshold, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Failed to create policy: %v", err)
	}
	return id
}

func TestCreatePolicyValidation(t *testing.T) {
	f := setupEngine(t)
	coverage := big.NewInt(10_000)

	tests := []struct {
		name      string
		premium   *big.Int
		coverage  *big.Int
		threshold int64
		duration  time.Duration
		wantErr   error
	}{
		{"no premium", nil, coverage, 10000, time.Hour, ErrZeroPremium},
		{"premium below floor", big.NewInt(499), coverage, 10000, time.Hour, ErrPremiumTooLow},
		{"zero coverage", big.NewInt(500), big.NewInt(0), 10000, time.Hour, ErrZeroCoverage},
		{"zero duration", big.NewInt(500), coverage, 10000, 0, ErrZeroDuration},
		{"zero threshold", big.NewInt(500), coverage, 0, time.Hour, ErrZeroThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreatePolicy(ledger.Call{Caller: holder, Value: tt.premium},
				"miami", Flood, tt.coverage, tt.threshold, tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// The premium floor is exactly 5% of coverage.
	if _, err := f.engine.CreatePolicy(ledger.Call{Caller: holder, Value: big.NewInt(500)},
		"miami", Flood, coverage, 10000, time.Hour); err != nil {
		t.Errorf("Premium at the floor rejected: %v", err)
	}
}

func TestCreatePolicyMovesPremiumToPool(t *testing.T) {
	f := setupEngine(t)
	before := f.env.BalanceOf(holder)

	f.activePolicy(t, Flood, 10_000, 10000)

	premium := MinimumPremium(big.NewInt(10_000))
	if got := f.engine.Pool(); got.Cmp(premium) != 0 {
		t.Errorf("Expected pool %s, got %s", premium, got)
	}
	wantBalance := new(big.Int).Sub(before, premium)
	if got := f.env.BalanceOf(holder); got.Cmp(wantBalance) != 0 {
		t.Errorf("Expected holder balance %s, got %s", wantBalance, got)
	}
}

func TestSubmitClaimFullPayout(t *testing.T) {
	f := setupEngine(t)
	// Replenish the pool so a full payout is coverable.
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}

	policyID := f.activePolicy(t, Flood, 10_000, 10000)
	// Precipitation at double the threshold saturates severity at 100.
	readingID := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 20000})

	before := f.env.BalanceOf(holder)
	claim, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID)
	if err != nil {
		t.Fatalf("Failed to submit claim: %v", err)
	}
	if !claim.Processed || !claim.Approved {
		t.Fatalf("Expected processed and approved claim, got %+v", claim)
	}
	if claim.Amount.Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("Expected full coverage payout, got %s", claim.Amount)
	}

	wantBalance := new(big.Int).Add(before, big.NewInt(10_000))
	if got := f.env.BalanceOf(holder); got.Cmp(wantBalance) != 0 {
		t.Errorf("Expected holder balance %s, got %s", wantBalance, got)
	}
	policy, _ := f.engine.GetPolicy(policyID)
	if policy.Status != StatusClaimed || !policy.Claimed {
		t.Errorf("Expected claimed policy, got %s", policy.Status)
	}
	if f.engine.TotalClaimsPaid().Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("Expected total paid 10000, got %s", f.engine.TotalClaimsPaid())
	}
}

func TestSubmitClaimPartialSeverity(t *testing.T) {
	f := setupEngine(t)
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}

	policyID := f.activePolicy(t, Storm, 10_000, 10000)
	// Wind at 1.5x the threshold scores severity 50.
	readingID := f.verifiedReading(t, registry.ReadingInput{Location: "miami", WindSpeed: 15000})

	claim, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID)
	if err != nil {
		t.Fatalf("Failed to submit claim: %v", err)
	}
	if claim.Amount.Cmp(big.NewInt(5_000)) != 0 {
		t.Errorf("Expected half coverage payout, got %s", claim.Amount)
	}
}

func TestSubmitClaimRejections(t *testing.T) {
	f := setupEngine(t)
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}
	policyID := f.activePolicy(t, Flood, 10_000, 10000)

	// Unverified reading.
	unverified, err := f.reg.SubmitReading(ledger.Call{Caller: station1}, registry.ReadingInput{Location: "miami", Precipitation: 20000})
	if err != nil {
		t.Fatalf("Failed to submit reading: %v", err)
	}
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, unverified); !errors.Is(err, ErrReadingUnverified) {
		t.Errorf("Expected ErrReadingUnverified, got %v", err)
	}

	// Location mismatch.
	elsewhere := f.verifiedReading(t, registry.ReadingInput{Location: "tampa", Precipitation: 20000})
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, elsewhere); !errors.Is(err, ErrLocationMismatch) {
		t.Errorf("Expected ErrLocationMismatch, got %v", err)
	}

	// Threshold not met.
	calm := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 5000})
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, calm); !errors.Is(err, ErrThresholdNotMet) {
		t.Errorf("Expected ErrThresholdNotMet, got %v", err)
	}

	// Not the policyholder.
	triggering := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 20000})
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: owner}, policyID, triggering); !errors.Is(err, ErrNotPolicyholder) {
		t.Errorf("Expected ErrNotPolicyholder, got %v", err)
	}

	// Unknown policy.
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, 999, triggering); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Expected ErrUnknownPolicy, got %v", err)
	}
}

func TestSubmitClaimOutOfWindow(t *testing.T) {
	f := setupEngine(t)
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}
	policyID := f.activePolicy(t, Flood, 10_000, 10000)
	readingID := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 20000})

	f.clock.Advance(31 * 24 * time.Hour)
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID); !errors.Is(err, ErrPolicyOutOfWindow) {
		t.Fatalf("Expected ErrPolicyOutOfWindow, got %v", err)
	}
}

func TestHailClaimsNeverTrigger(t *testing.T) {
	f := setupEngine(t)
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}
	policyID := f.activePolicy(t, Hail, 10_000, 1)
	readingID := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 99999, WindSpeed: 99999})

	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID); !errors.Is(err, ErrThresholdNotMet) {
		t.Fatalf("Expected ErrThresholdNotMet for hail, got %v", err)
	}
}

func TestSubmitClaimPoolInsufficient(t *testing.T) {
	f := setupEngine(t)
	policyID := f.activePolicy(t, Flood, 10_000, 10000)
	readingID := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 20000})

	// Only the premium is in the pool, far below the full-coverage payout.
	before := f.env.BalanceOf(holder)
	claim, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID)
	if err != nil {
		t.Fatalf("Submit claim failed: %v", err)
	}
	if !claim.Processed || claim.Approved {
		t.Fatalf("Expected processed, unapproved claim, got %+v", claim)
	}
	if got := f.env.BalanceOf(holder); got.Cmp(before) != 0 {
		t.Errorf("Unapproved claim moved funds: %s -> %s", before, got)
	}

	// The policy stays active so the holder can resubmit once the pool is
	// replenished.
	policy, _ := f.engine.GetPolicy(policyID)
	if policy.Status != StatusActive || policy.Claimed {
		t.Fatalf("Expected policy to stay active, got %s claimed=%v", policy.Status, policy.Claimed)
	}

	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}
	f.clock.Advance(time.Minute) // distinct claim id
	retry, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID)
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if !retry.Approved {
		t.Fatal("Expected resubmitted claim to be approved")
	}
	if retry.ID == claim.ID {
		t.Error("Expected a distinct claim id on resubmission")
	}
}

func TestSubmitClaimAlreadyClaimed(t *testing.T) {
	f := setupEngine(t)
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(100_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}
	policyID := f.activePolicy(t, Flood, 10_000, 10000)
	readingID := f.verifiedReading(t, registry.ReadingInput{Location: "miami", Precipitation: 20000})

	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if _, err := f.engine.SubmitClaim(ledger.Call{Caller: holder}, policyID, readingID); !errors.Is(err, ErrPolicyNotActive) {
		t.Fatalf("Expected ErrPolicyNotActive on settled policy, got %v", err)
	}
}

func TestWithdrawFunds(t *testing.T) {
	f := setupEngine(t)
	if err := f.engine.DepositFunds(ledger.Call{Caller: owner, Value: big.NewInt(1_000)}); err != nil {
		t.Fatalf("Failed to deposit funds: %v", err)
	}

	if err := f.engine.WithdrawFunds(ledger.Call{Caller: holder}, big.NewInt(100)); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if err := f.engine.WithdrawFunds(ledger.Call{Caller: owner}, big.NewInt(1_001)); !errors.Is(err, ErrPoolInsufficient) {
		t.Errorf("Expected ErrPoolInsufficient, got %v", err)
	}
	if err := f.engine.WithdrawFunds(ledger.Call{Caller: owner}, big.NewInt(400)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if got := f.engine.Pool(); got.Cmp(big.NewInt(600)) != 0 {
		t.Errorf("Expected pool 600, got %s", got)
	}
}

func TestPolicyIDsByHolder(t *testing.T) {
	f := setupEngine(t)
	a := f.activePolicy(t, Flood, 10_000, 10000)
	b := f.activePolicy(t, Storm, 20_000, 8000)

	ids := f.engine.PolicyIDsByHolder(holder)
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Errorf("Unexpected holder index: %v", ids)
	}
	if f.engine.PolicyCount() != 2 {
		t.Errorf("Expected 2 policies, got %d", f.engine.PolicyCount())
	}
}
