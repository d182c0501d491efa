// Package yield defines the boundary to whatever external protocol actually
// generates yield on pooled funds. The core only consumes the three connector
// operations; protocol mechanics stay behind the interface.
package yield

import (
	"errors"
	"math/big"
)

var (
	ErrConnectorUnavailable = errors.New("yield: connector unavailable")
	ErrNegativeAmount       = errors.New("yield: amount cannot be negative")
)

// Connector routes pool funds to and from a yield-bearing destination.
type Connector interface {
	// Deposit places up to amount with the yield source and returns the
	// portion actually accepted (capacity may be limited).
	Deposit(amount *big.Int) (*big.Int, error)
	// Withdraw pulls up to maxAmount back out and returns the amount
	// actually obtained.
	Withdraw(maxAmount *big.Int) (*big.Int, error)
	// Available reports the minimum balance the connector can currently
	// liquidate on demand.
	Available() (*big.Int, error)
}

// PriceOracle values a connector's native balance against the pool asset
// when the two differ. Implementations return false when no quote exists.
type PriceOracle interface {
	Price(asset string) (*big.Rat, bool)
}
