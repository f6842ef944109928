package proposal

import "github.com/golos-one/ledger/errors"

var (
	// ErrAddAndRemoveSameApproval is returned when one update both adds
	// and removes the same approval.
	ErrAddAndRemoveSameApproval = errors.Register(150, "added and removed the same approval")

	// ErrEmptyApprovals is returned when an update changes nothing.
	ErrEmptyApprovals = errors.Register(151, "empty approvals")

	// ErrCannotAddApprovalInReviewPeriod is returned when adding an
	// approval after the review period started.
	ErrCannotAddApprovalInReviewPeriod = errors.Register(152, "cannot add approval in review period")

	// ErrDeleteNotAllowed is returned when the requester of a deletion is
	// not among the proposal's required approvers.
	ErrDeleteNotAllowed = errors.Register(153, "proposal delete not allowed")

	// ErrUnknownApproval is returned when an approval change names an
	// account or key that is not expected or not collected.
	ErrUnknownApproval = errors.Register(154, "unknown approval")
)
