package yield

import (
	"math/big"
	"sync"
)

// StaticVault is a deterministic in-memory connector. It accrues yield only
// when injected explicitly, which makes it suitable for tests, local service
// runs, and emergency-path simulation (failure and capacity toggles).
type StaticVault struct {
	mu       sync.Mutex
	balance  *big.Int
	capacity *big.Int
	failing  bool
}

// NewStaticVault constructs an empty vault with unlimited capacity.
func NewStaticVault() *StaticVault {
	return &StaticVault{balance: big.NewInt(0)}
}

// SetCapacity bounds how much a single Deposit call will accept. A nil
// capacity restores unlimited deposits.
func (v *StaticVault) SetCapacity(capacity *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if capacity == nil {
		v.capacity = nil
		return
	}
	v.capacity = new(big.Int).Set(capacity)
}

// SetFailing toggles hard connector failure for every operation.
func (v *StaticVault) SetFailing(failing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failing = failing
}

// InjectYield simulates the external protocol accruing yield on the staked
// balance.
func (v *StaticVault) InjectYield(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance.Add(v.balance, amount)
}

// Drain simulates the yield source losing funds, for health-check testing.
func (v *StaticVault) Drain(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance.Sub(v.balance, amount)
	if v.balance.Sign() < 0 {
		v.balance.SetInt64(0)
	}
}

// Deposit implements Connector.
func (v *StaticVault) Deposit(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return nil, ErrConnectorUnavailable
	}
	accepted := new(big.Int).Set(amount)
	if v.capacity != nil && accepted.Cmp(v.capacity) > 0 {
		accepted.Set(v.capacity)
	}
	v.balance.Add(v.balance, accepted)
	return accepted, nil
}

// Withdraw implements Connector.
func (v *StaticVault) Withdraw(maxAmount *big.Int) (*big.Int, error) {
	if maxAmount == nil || maxAmount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return nil, ErrConnectorUnavailable
	}
	withdrawn := new(big.Int).Set(maxAmount)
	if withdrawn.Cmp(v.balance) > 0 {
		withdrawn.Set(v.balance)
	}
	v.balance.Sub(v.balance, withdrawn)
	return withdrawn, nil
}

// Available implements Connector.
func (v *StaticVault) Available() (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return nil, ErrConnectorUnavailable
	}
	return new(big.Int).Set(v.balance), nil
}
