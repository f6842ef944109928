package delegation

import "github.com/golos-one/ledger/errors"

var (
	// ErrDifferenceTooLow is returned when a delegation change is smaller
	// than the minimum delta and does not reduce to zero.
	ErrDifferenceTooLow = errors.Register(130, "delegation difference too low")

	// ErrLimitedByVotingPower is returned when a delegation increase asks
	// for more than the current voting power allows.
	ErrLimitedByVotingPower = errors.Register(131, "delegation limited by voting power")

	// ErrMinDelegationTime is returned when reducing a delegation before
	// its minimum delegation time.
	ErrMinDelegationTime = errors.Register(132, "delegation cannot be reduced yet")
)
