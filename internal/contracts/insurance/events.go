package insurance

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PolicyCreated is emitted when a premium payment opens a policy.
type PolicyCreated struct {
	ID        uint64         `json:"id"`
	Holder    common.Address `json:"holder"`
	Location  string         `json:"location"`
	EventType string         `json:"event_type"`
	Coverage  *big.Int       `json:"coverage"`
	Premium   *big.Int       `json:"premium"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
}

func (PolicyCreated) EventName() string { return "PolicyCreated" }

// ClaimSubmitted is emitted when a claim passes the trigger test.
type ClaimSubmitted struct {
	ClaimID   common.Hash `json:"claim_id"`
	PolicyID  uint64      `json:"policy_id"`
	ReadingID uint64      `json:"reading_id"`
	Amount    *big.Int    `json:"amount"`
}

func (ClaimSubmitted) EventName() string { return "ClaimSubmitted" }

// ClaimProcessed is emitted once auto-processing settles a claim. Payout is
// zero when the pool could not cover the claim.
type ClaimProcessed struct {
	ClaimID  common.Hash `json:"claim_id"`
	PolicyID uint64      `json:"policy_id"`
	Approved bool        `json:"approved"`
	Payout   *big.Int    `json:"payout"`
}

func (ClaimProcessed) EventName() string { return "ClaimProcessed" }

// FundsDeposited is emitted when the owner tops up the pool.
type FundsDeposited struct {
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
	Pool   *big.Int       `json:"pool"`
}

func (FundsDeposited) EventName() string { return "FundsDeposited" }

// FundsWithdrawn is emitted when the owner drains part of the pool.
type FundsWithdrawn struct {
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
	Pool   *big.Int       `json:"pool"`
}

func (FundsWithdrawn) EventName() string { return "FundsWithdrawn" }
