package savings

import "errors"

var (
	ErrNoDeposits     = errors.New("savings: no deposits to distribute over")
	ErrAmountOverflow = errors.New("savings: distribution amount exceeds safe ceiling")
	ErrNegativeAmount = errors.New("savings: amount cannot be negative")
	ErrUnknownAccount = errors.New("savings: account not initialised")
)
