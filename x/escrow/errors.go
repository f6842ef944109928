package escrow

import "github.com/golos-one/ledger/errors"

var (
	// ErrBadTo is returned when the receiver named in an operation does
	// not match the escrow record.
	ErrBadTo = errors.Register(120, "escrow receiver mismatch")

	// ErrBadAgent is returned when the agent named in an operation does
	// not match the escrow record.
	ErrBadAgent = errors.Register(121, "escrow agent mismatch")

	// ErrAlreadyApproved is returned when a party approves an escrow for
	// the second time.
	ErrAlreadyApproved = errors.Register(122, "already approved")

	// ErrMustBeApprovedFirst is returned when disputing or releasing an
	// escrow that is not ratified by both parties yet.
	ErrMustBeApprovedFirst = errors.Register(123, "must be approved first")

	// ErrAlreadyDisputed is returned when disputing an escrow that is
	// already under dispute.
	ErrAlreadyDisputed = errors.Register(124, "already disputed")

	// ErrCannotDisputeExpired is returned when disputing an escrow past
	// its expiration time.
	ErrCannotDisputeExpired = errors.Register(125, "cannot dispute an expired escrow")

	// ErrReleaseExceedsBalance is returned when a release asks for more
	// than the escrow holds.
	ErrReleaseExceedsBalance = errors.Register(126, "release exceeds escrow balance")

	// ErrBadReceiver is returned when the releasing party is not allowed
	// to send funds to the named receiver.
	ErrBadReceiver = errors.Register(127, "receiver not allowed")
)
