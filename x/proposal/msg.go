package proposal

import (
	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
)

func init() {
	operation.Register("proposal_create", func() ledger.Operation { return &CreateOp{} })
	operation.Register("proposal_update", func() ledger.Operation { return &UpdateOp{} })
	operation.Register("proposal_delete", func() ledger.Operation { return &DeleteOp{} })
}

// CreateOp opens a proposal wrapping an ordered batch of operations.
type CreateOp struct {
	Author string `msgpack:"author"`
	Title  string `msgpack:"title"`
	Memo   string `msgpack:"memo"`

	// ProposedOperations are tagged envelopes of the inner operations.
	ProposedOperations [][]byte `msgpack:"proposed_operations"`

	ExpirationTime   ledger.UnixTime `msgpack:"expiration_time"`
	ReviewPeriodTime ledger.UnixTime `msgpack:"review_period_time"`
}

var _ ledger.Operation = (*CreateOp)(nil)

// NewCreateOp builds a proposal creation operation from typed inner
// operations.
func NewCreateOp(author, title, memo string, expiration, review ledger.UnixTime, ops ...ledger.Operation) (*CreateOp, error) {
	raw, err := operation.MarshalAll(ops)
	if err != nil {
		return nil, err
	}
	return &CreateOp{
		Author:             author,
		Title:              title,
		Memo:               memo,
		ProposedOperations: raw,
		ExpirationTime:     expiration,
		ReviewPeriodTime:   review,
	}, nil
}

func (CreateOp) Path() string { return "proposal_create" }

func (op *CreateOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.Author); err != nil {
		errs = errors.Append(errs, errors.Field("Author", err, "invalid account name"))
	}
	if op.Title == "" || len(op.Title) > maxTitleLen {
		errs = errors.Append(errs, errors.Field("Title", errors.ErrInput, "must be 1 to %d characters", maxTitleLen))
	}
	if op.ExpirationTime == 0 {
		errs = errors.Append(errs, errors.Field("ExpirationTime", errors.ErrEmpty, "required"))
	}
	if op.ReviewPeriodTime != 0 && op.ReviewPeriodTime >= op.ExpirationTime {
		errs = errors.Append(errs, errors.Field("ReviewPeriodTime", errors.ErrInput, "must be before the expiration"))
	}
	if len(op.ProposedOperations) == 0 {
		errs = errors.Append(errs, errors.Field("ProposedOperations", errors.ErrEmpty, "required"))
	}
	// Every inner operation must be independently valid.
	for i, raw := range op.ProposedOperations {
		inner, err := operation.Unmarshal(raw)
		if err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "operation %d", i))
			continue
		}
		if err := inner.Validate(); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "operation %d", i))
		}
	}
	return errs
}

func (op *CreateOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Author)
	return req
}

// requiredApprovals merges the authority requirements of all inner
// operations. The batch must not mix posting with stronger levels and
// cannot require raw authorities, because those cannot be collected as
// named approvals.
func (op *CreateOp) requiredApprovals() (authority.Required, error) {
	var req authority.Required
	for i, raw := range op.ProposedOperations {
		inner, err := operation.Unmarshal(raw)
		if err != nil {
			return req, errors.Wrapf(err, "operation %d", i)
		}
		req.Merge(inner.RequiredAuths())
	}
	if len(req.Other) != 0 {
		return req, errors.Wrap(errors.ErrInput, "operations requiring raw authorities cannot be proposed")
	}
	if len(req.Posting) != 0 && (len(req.Active) != 0 || len(req.Owner) != 0) {
		return req, errors.Wrap(authority.ErrMixedLevels, "proposed operations mix posting with stronger levels")
	}
	return req, nil
}

// UpdateOp adds or removes collected approvals of a proposal.
type UpdateOp struct {
	Author string `msgpack:"author"`
	Title  string `msgpack:"title"`

	OwnerApprovalsToAdd      []string `msgpack:"owner_approvals_to_add"`
	OwnerApprovalsToRemove   []string `msgpack:"owner_approvals_to_remove"`
	ActiveApprovalsToAdd     []string `msgpack:"active_approvals_to_add"`
	ActiveApprovalsToRemove  []string `msgpack:"active_approvals_to_remove"`
	PostingApprovalsToAdd    []string `msgpack:"posting_approvals_to_add"`
	PostingApprovalsToRemove []string `msgpack:"posting_approvals_to_remove"`

	KeyApprovalsToAdd    []crypto.PublicKey `msgpack:"key_approvals_to_add"`
	KeyApprovalsToRemove []crypto.PublicKey `msgpack:"key_approvals_to_remove"`
}

var _ ledger.Operation = (*UpdateOp)(nil)

func (UpdateOp) Path() string { return "proposal_update" }

func (op *UpdateOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.Author); err != nil {
		errs = errors.Append(errs, errors.Field("Author", err, "invalid account name"))
	}
	if op.Title == "" || len(op.Title) > maxTitleLen {
		errs = errors.Append(errs, errors.Field("Title", errors.ErrInput, "must be 1 to %d characters", maxTitleLen))
	}

	total := len(op.OwnerApprovalsToAdd) + len(op.OwnerApprovalsToRemove) +
		len(op.ActiveApprovalsToAdd) + len(op.ActiveApprovalsToRemove) +
		len(op.PostingApprovalsToAdd) + len(op.PostingApprovalsToRemove) +
		len(op.KeyApprovalsToAdd) + len(op.KeyApprovalsToRemove)
	if total == 0 {
		errs = errors.Append(errs, ErrEmptyApprovals)
	}

	pairs := []struct {
		add, rm []string
	}{
		{op.OwnerApprovalsToAdd, op.OwnerApprovalsToRemove},
		{op.ActiveApprovalsToAdd, op.ActiveApprovalsToRemove},
		{op.PostingApprovalsToAdd, op.PostingApprovalsToRemove},
	}
	for _, p := range pairs {
		for _, name := range p.add {
			if contains(p.rm, name) {
				errs = errors.Append(errs, errors.Wrapf(ErrAddAndRemoveSameApproval, "account %q", name))
			}
		}
	}
	for _, key := range op.KeyApprovalsToAdd {
		if containsKey(op.KeyApprovalsToRemove, key) {
			errs = errors.Append(errs, errors.Wrapf(ErrAddAndRemoveSameApproval, "key %s", key))
		}
	}
	return errs
}

// RequiredAuths demands the matching authority of every account whose
// approval is granted or withdrawn, and a signature of every key approval
// being changed.
func (op *UpdateOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddOwner(op.OwnerApprovalsToAdd...)
	req.AddOwner(op.OwnerApprovalsToRemove...)
	req.AddActive(op.ActiveApprovalsToAdd...)
	req.AddActive(op.ActiveApprovalsToRemove...)
	req.AddPosting(op.PostingApprovalsToAdd...)
	req.AddPosting(op.PostingApprovalsToRemove...)
	for _, key := range op.KeyApprovalsToAdd {
		req.AddOther(authority.NewKeyAuthority(key))
	}
	for _, key := range op.KeyApprovalsToRemove {
		req.AddOther(authority.NewKeyAuthority(key))
	}
	return req
}

// DeleteOp removes a pending proposal without executing it.
type DeleteOp struct {
	Requester string `msgpack:"requester"`
	Author    string `msgpack:"author"`
	Title     string `msgpack:"title"`
}

var _ ledger.Operation = (*DeleteOp)(nil)

func (DeleteOp) Path() string { return "proposal_delete" }

func (op *DeleteOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.Requester); err != nil {
		errs = errors.Append(errs, errors.Field("Requester", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(op.Author); err != nil {
		errs = errors.Append(errs, errors.Field("Author", err, "invalid account name"))
	}
	if op.Title == "" || len(op.Title) > maxTitleLen {
		errs = errors.Append(errs, errors.Field("Title", errors.ErrInput, "must be 1 to %d characters", maxTitleLen))
	}
	return errs
}

func (op *DeleteOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Requester)
	return req
}
