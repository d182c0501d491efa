package random

import (
	"encoding/binary"
	"testing"
)

type fakeChain struct {
	height  uint64
	beacons map[uint64][]byte
}

func (c *fakeChain) Height() uint64 { return c.height }

func (c *fakeChain) BeaconAt(height uint64) ([]byte, bool) {
	if height > c.height {
		return nil, false
	}
	beacon, ok := c.beacons[height]
	if !ok {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, height)
		return buf, true
	}
	return beacon, true
}

func TestFulfillBeforeFinalityFails(t *testing.T) {
	chain := &fakeChain{height: 10}
	provider := NewBeaconProvider(chain)

	handle, err := provider.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := provider.Fulfill(handle); err != ErrStillPending {
		t.Fatalf("expected ErrStillPending before finality, got %v", err)
	}

	chain.height = 11
	value, err := provider.Fulfill(handle)
	if err != nil {
		t.Fatalf("fulfill after finality: %v", err)
	}
	if _, err := provider.Fulfill(handle); err != ErrUnknownHandle {
		t.Fatalf("handle must be consumed, got %v", err)
	}
	_ = value
}

func TestFulfillEmptyHandle(t *testing.T) {
	provider := NewBeaconProvider(&fakeChain{height: 5})
	if _, err := provider.Fulfill(Handle{}); err != ErrUnknownHandle {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
}

func TestHandleSurvivesProviderRestart(t *testing.T) {
	chain := &fakeChain{height: 7}
	handle, err := NewBeaconProvider(chain).Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// A fresh provider over the same chain must honour the persisted handle.
	restarted := NewBeaconProvider(chain)
	if _, err := restarted.Fulfill(handle); err != ErrStillPending {
		t.Fatalf("expected ErrStillPending before finality, got %v", err)
	}
	chain.height = 8
	value, err := restarted.Fulfill(handle)
	if err != nil {
		t.Fatalf("fulfill after restart: %v", err)
	}

	again, err := NewBeaconProvider(chain).Fulfill(handle)
	if err != nil {
		t.Fatalf("fulfill on second restart: %v", err)
	}
	if again != value {
		t.Fatalf("same handle over the same chain resolved differently: %d != %d", again, value)
	}
}

func TestDistinctRequestsResolveDistinctValues(t *testing.T) {
	chain := &fakeChain{height: 3}
	provider := NewBeaconProvider(chain)

	first, _ := provider.Request()
	second, _ := provider.Request()
	chain.height = 4

	v1, err := provider.Fulfill(first)
	if err != nil {
		t.Fatalf("fulfill first: %v", err)
	}
	v2, err := provider.Fulfill(second)
	if err != nil {
		t.Fatalf("fulfill second: %v", err)
	}
	if v1 == v2 {
		t.Fatalf("independent requests resolved to the same value")
	}
}
