package random

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

// BlockSource exposes the chain-of-record the beacon provider binds requests
// to. BeaconAt must only return entropy for finalised heights.
type BlockSource interface {
	Height() uint64
	BeaconAt(height uint64) ([]byte, bool)
}

// BeaconProvider implements Provider against a block beacon. A request
// commits to the current height; it resolves only once at least one further
// block has been finalised, so the committer cannot predict the value.
// Fulfilment is stateless with respect to issuance: the handle carries its
// own commit point, so a handle persisted across a process restart stays
// fulfillable against the same chain.
type BeaconProvider struct {
	mu       sync.Mutex
	source   BlockSource
	consumed map[string]struct{}
}

// NewBeaconProvider constructs a provider bound to the supplied source.
func NewBeaconProvider(source BlockSource) *BeaconProvider {
	return &BeaconProvider{source: source, consumed: make(map[string]struct{})}
}

// Request implements Provider.
func (p *BeaconProvider) Request() (Handle, error) {
	return Handle{ID: uuid.New().String(), CommitPoint: p.source.Height()}, nil
}

// Fulfill implements Provider. It fails with ErrStillPending until a block
// past the commit point has been finalised. A handle resolves at most once
// per provider instance.
func (p *BeaconProvider) Fulfill(handle Handle) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if handle.ID == "" {
		return 0, ErrUnknownHandle
	}
	if _, done := p.consumed[handle.ID]; done {
		return 0, ErrUnknownHandle
	}
	revealPoint := handle.CommitPoint + 1
	if p.source.Height() < revealPoint {
		return 0, ErrStillPending
	}
	beacon, ok := p.source.BeaconAt(revealPoint)
	if !ok {
		return 0, ErrStillPending
	}
	p.consumed[handle.ID] = struct{}{}

	h := blake3.New(8, nil)
	h.Write(beacon)
	h.Write([]byte(handle.ID))
	return binary.BigEndian.Uint64(h.Sum(nil)), nil
}
