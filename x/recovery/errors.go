package recovery

import "github.com/golos-one/ledger/errors"

var (
	// ErrNotPartner is returned when someone other than the designated
	// recovery account files a recovery request.
	ErrNotPartner = errors.Register(140, "not the recovery partner")

	// ErrNoActiveRequest is returned when recovering an account without a
	// live recovery request.
	ErrNoActiveRequest = errors.Register(141, "no active recovery request")

	// ErrAuthorityMismatch is returned when the recovery operation names
	// a different authority than the pending request.
	ErrAuthorityMismatch = errors.Register(142, "authority does not match the request")

	// ErrNoRecentAuthority is returned when the proven authority is not
	// in the recent owner history.
	ErrNoRecentAuthority = errors.Register(143, "no recent authority in history")

	// ErrRateLimit is returned when an account is recovered more than
	// once within the rate limit window.
	ErrRateLimit = errors.Register(144, "account recovery rate limit")
)
