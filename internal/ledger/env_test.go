package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestTransfer(t *testing.T) {
	env := NewEnv(nil)
	env.Credit(alice, big.NewInt(100))

	if err := env.Transfer(alice, bob, big.NewInt(60)); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if got := env.BalanceOf(alice); got.Cmp(big.NewInt(40)) != 0 {
		t.Errorf("Expected sender balance 40, got %s", got)
	}
	if got := env.BalanceOf(bob); got.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("Expected recipient balance 60, got %s", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	env := NewEnv(nil)
	env.Credit(alice, big.NewInt(10))

	err := env.Transfer(alice, bob, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	// A failed transfer must leave both balances untouched.
	if got := env.BalanceOf(alice); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("Expected sender balance 10 after failed transfer, got %s", got)
	}
	if got := env.BalanceOf(bob); got.Sign() != 0 {
		t.Errorf("Expected recipient balance 0 after failed transfer, got %s", got)
	}
}

func TestTransferNonPositiveAmount(t *testing.T) {
	env := NewEnv(nil)
	env.Credit(alice, big.NewInt(10))

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if err := env.Transfer(alice, bob, amount); !errors.Is(err, ErrNonPositiveAmount) {
			t.Errorf("Expected ErrNonPositiveAmount for %v, got %v", amount, err)
		}
	}
}

func TestBalanceOfReturnsCopy(t *testing.T) {
	env := NewEnv(nil)
	env.Credit(alice, big.NewInt(100))

	bal := env.BalanceOf(alice)
	bal.SetInt64(0)

	if got := env.BalanceOf(alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("Mutating the returned balance leaked into the book: %s", got)
	}
}

func TestCreditIgnoresNonPositive(t *testing.T) {
	env := NewEnv(nil)
	env.Credit(alice, nil)
	env.Credit(alice, big.NewInt(-1))

	if got := env.BalanceOf(alice); got.Sign() != 0 {
		t.Errorf("Expected zero balance, got %s", got)
	}
}

func TestNowUsesInjectedClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(at)
	env := NewEnv(clock)

	if got := env.Now(); !got.Equal(at) {
		t.Errorf("Expected block time %s, got %s", at, got)
	}

	clock.Advance(time.Hour)
	if got := env.Now(); !got.Equal(at.Add(time.Hour)) {
		t.Errorf("Expected block time to advance with the clock, got %s", got)
	}
}
