// Package random abstracts the commit-reveal randomness source the draw
// engine depends on. A request binds to a future finality point; the value
// only becomes available once that point has passed, which keeps the outcome
// unpredictable to whoever committed the request.
package random

import "errors"

var (
	ErrStillPending  = errors.New("random: randomness not yet finalised")
	ErrUnknownHandle = errors.New("random: unknown request handle")
)

// Handle identifies one outstanding randomness request together with the
// finality point it is bound to.
type Handle struct {
	ID          string
	CommitPoint uint64
}

// Provider issues and later resolves randomness requests. Fulfill never
// blocks; callers re-poll until the finality condition holds.
type Provider interface {
	Request() (Handle, error)
	Fulfill(handle Handle) (uint64, error)
}
