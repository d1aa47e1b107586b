package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call carries the caller identity and the native value attached to a single
// contract invocation. Identity and signatures come from the off-chain wallet
// collaborator; by the time a Call reaches a contract it is already
// authenticated.
type Call struct {
	Caller common.Address
	Value  *big.Int
}

// AttachedValue returns the value sent with the call, never nil.
func (c Call) AttachedValue() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}
