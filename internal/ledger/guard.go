package ledger

import "errors"

// ErrReentrantCall is returned when a guarded function is entered while
// another guarded call on the same contract instance is still in flight.
var ErrReentrantCall = errors.New("reentrant call")

// Guard is a per-contract re-entrancy lock. Every function that transfers
// value or calls into another contract takes the guard at entry; a nested
// call into any guarded function of the same instance fails instead of
// interleaving with the in-flight call.
type Guard struct {
	entered bool
}

// Enter takes the guard and returns the release function. The caller defers
// the release so the guard clears even on an error path.
func (g *Guard) Enter() (func(), error) {
	if g.entered {
		return nil, ErrReentrantCall
	}
	g.entered = true
	return func() { g.entered = false }, nil
}
