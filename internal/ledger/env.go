package ledger

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNonPositiveAmount is returned for zero or negative transfer amounts.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// Env is the execution environment shared by the contract state machines.
// It owns the native-currency balance book and the block-time source.
// Calls are processed one at a time; Env performs no locking of its own.
type Env struct {
	clock    clockwork.Clock
	balances map[common.Address]*big.Int
}

// NewEnv creates an execution environment. Pass nil to use the real clock;
// tests inject a fake clock for deterministic block time.
func NewEnv(clock clockwork.Clock) *Env {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Env{
		clock:    clock,
		balances: make(map[common.Address]*big.Int),
	}
}

// Now returns the current block time as seen by contract logic.
func (e *Env) Now() time.Time {
	return e.clock.Now()
}

// BalanceOf returns a copy of the native balance held by an address.
func (e *Env) BalanceOf(addr common.Address) *big.Int {
	if bal, ok := e.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Credit adds funds to an address. Used to seed genesis balances; contract
// logic moves value only through Transfer.
func (e *Env) Credit(addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	bal, ok := e.balances[addr]
	if !ok {
		bal = new(big.Int)
		e.balances[addr] = bal
	}
	bal.Add(bal, amount)
}

// Transfer moves native currency between two addresses. It fails without
// side effects when the sender's balance does not cover the amount.
func (e *Env) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	bal, ok := e.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	dst, ok := e.balances[to]
	if !ok {
		dst = new(big.Int)
		e.balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}
