package account

import "github.com/golos-one/ledger/errors"

var (
	// ErrOwnerUpdateRateLimit is returned when the owner authority was
	// already changed within the rate limit window.
	ErrOwnerUpdateRateLimit = errors.Register(110, "owner authority update rate limit")

	// ErrCannotVote is returned when an account with voting disabled is
	// used in a voting power context.
	ErrCannotVote = errors.Register(111, "account cannot vote")

	// ErrVestingBalance is returned when an operation would leave the
	// vesting share accounting negative.
	ErrVestingBalance = errors.Register(112, "vesting balance")
)
