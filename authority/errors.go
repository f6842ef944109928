package authority

import "github.com/golos-one/ledger/errors"

var (
	// ErrMissingAuthority is returned when the offered signatures do not
	// meet the weight threshold of a required authority.
	ErrMissingAuthority = errors.Register(100, "missing required authority")

	// ErrIrrelevantSignature is returned when a transaction carries a
	// signature that matches no required authority.
	ErrIrrelevantSignature = errors.Register(101, "irrelevant signature")

	// ErrDuplicateSignature is returned when the same key signs a
	// transaction more than once.
	ErrDuplicateSignature = errors.Register(102, "duplicate signature")

	// ErrDepthExceeded is returned when resolving account authorities
	// recurses deeper than the allowed bound.
	ErrDepthExceeded = errors.Register(103, "authority recursion depth exceeded")

	// ErrMixedLevels is returned when a single transaction requires both
	// posting and stronger authority levels.
	ErrMixedLevels = errors.Register(104, "mixing posting with stronger authority levels")
)
