package proposal

import (
	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
)

const (
	// TaskExpire purges a proposal that never reached full approval.
	TaskExpire = "proposal/expire"
	// TaskReview executes or discards a proposal at its review time.
	TaskReview = "proposal/review"
	// TaskStranded removes a proposal stripped of all approvals during
	// its review phase.
	TaskStranded = "proposal/stranded"
)

type proposalPayload struct {
	Author string `msgpack:"author"`
	Title  string `msgpack:"title"`
}

// Executor applies already authorized operations to the state. It is
// implemented by the application and re-enters the operation router.
type Executor interface {
	DeliverOps(ctx ledger.Context, db store.KVStore, ops []ledger.Operation) error
}

// RegisterRoutes binds the operation handlers of this package.
func RegisterRoutes(r ledger.Registry, lookup authority.Lookup, exec Executor) {
	bucket := NewProposalBucket()
	r.Handle("proposal_create", &createHandler{bucket: bucket})
	r.Handle("proposal_update", &updateHandler{bucket: bucket, lookup: lookup, exec: exec})
	r.Handle("proposal_delete", &deleteHandler{bucket: bucket})
}

// RegisterTasks registers the scheduler handlers of this package.
func RegisterTasks(t *cron.Ticker, lookup authority.Lookup, exec Executor) {
	bucket := NewProposalBucket()
	t.Register(TaskExpire, &expireTask{bucket: bucket})
	t.Register(TaskReview, &reviewTask{bucket: bucket, lookup: lookup, exec: exec})
	t.Register(TaskStranded, &strandedTask{bucket: bucket})
}

type createHandler struct {
	bucket orm.ModelBucket
}

func (h *createHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*CreateOp)
	if !ok {
		return nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	now, err := ledger.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	if !msg.ExpirationTime.Time().After(now) {
		return nil, errors.Wrap(errors.ErrExpired, "expiration is not in the future")
	}
	if msg.ExpirationTime.Time().After(now.Add(maxLifetime)) {
		return nil, errors.Wrapf(errors.ErrInput, "proposal cannot live longer than %s", maxLifetime)
	}
	if msg.ReviewPeriodTime != 0 && !msg.ReviewPeriodTime.Time().After(now) {
		return nil, errors.Wrap(errors.ErrInput, "review period is not in the future")
	}

	key := proposalKey(msg.Author, msg.Title)
	switch has, err := h.bucket.Has(db, key); {
	case err != nil:
		return nil, err
	case has:
		return nil, errors.Wrapf(errors.ErrDuplicate, "proposal %q/%q", msg.Author, msg.Title)
	}

	req, err := msg.requiredApprovals()
	if err != nil {
		return nil, err
	}

	payload := proposalPayload{Author: msg.Author, Title: msg.Title}
	expireID, err := cron.Schedule(db, msg.ExpirationTime.Time(), TaskExpire, payload)
	if err != nil {
		return nil, errors.Wrap(err, "cannot schedule the expiration")
	}
	var reviewID []byte
	if msg.ReviewPeriodTime != 0 {
		if reviewID, err = cron.Schedule(db, msg.ReviewPeriodTime.Time(), TaskReview, payload); err != nil {
			return nil, errors.Wrap(err, "cannot schedule the review")
		}
	}

	prop := Proposal{
		Author:           msg.Author,
		Title:            msg.Title,
		Memo:             msg.Memo,
		Operations:       msg.ProposedOperations,
		ExpirationTime:   msg.ExpirationTime,
		ReviewPeriodTime: msg.ReviewPeriodTime,
		RequiredOwner:    req.Owner,
		RequiredActive:   req.Active,
		RequiredPosting:  req.Posting,
		ExpireTaskID:     expireID,
		ReviewTaskID:     reviewID,
	}
	return &ledger.DeliverResult{}, h.bucket.Put(db, key, &prop)
}

type updateHandler struct {
	bucket orm.ModelBucket
	lookup authority.Lookup
	exec   Executor
}

func (h *updateHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*UpdateOp)
	if !ok {
		return nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	key := proposalKey(msg.Author, msg.Title)
	var prop Proposal
	if err := h.bucket.One(db, key, &prop); err != nil {
		return nil, errors.Wrapf(err, "proposal %q/%q", msg.Author, msg.Title)
	}
	if ledger.IsExpired(ctx, prop.ExpirationTime) {
		return nil, errors.Wrap(errors.ErrExpired, "proposal expired")
	}

	inReview := prop.ReviewPeriodTime != 0 && !ledger.InTheFuture(ctx, prop.ReviewPeriodTime.Time())
	adding := len(msg.OwnerApprovalsToAdd)+len(msg.ActiveApprovalsToAdd)+
		len(msg.PostingApprovalsToAdd)+len(msg.KeyApprovalsToAdd) > 0
	if inReview && adding {
		return nil, ErrCannotAddApprovalInReviewPeriod
	}

	changes := []struct {
		add, rm   []string
		required  []string
		available *[]string
	}{
		{msg.OwnerApprovalsToAdd, msg.OwnerApprovalsToRemove, prop.RequiredOwner, &prop.AvailableOwner},
		{msg.ActiveApprovalsToAdd, msg.ActiveApprovalsToRemove, prop.RequiredActive, &prop.AvailableActive},
		{msg.PostingApprovalsToAdd, msg.PostingApprovalsToRemove, prop.RequiredPosting, &prop.AvailablePosting},
	}
	for _, c := range changes {
		for _, name := range c.add {
			if !contains(c.required, name) {
				return nil, errors.Wrapf(ErrUnknownApproval, "approval of %q is not required", name)
			}
			if contains(*c.available, name) {
				return nil, errors.Wrapf(errors.ErrDuplicate, "approval of %q", name)
			}
			*c.available = append(*c.available, name)
		}
		for _, name := range c.rm {
			if !contains(*c.available, name) {
				return nil, errors.Wrapf(ErrUnknownApproval, "approval of %q is not collected", name)
			}
			*c.available = remove(*c.available, name)
		}
	}
	for _, k := range msg.KeyApprovalsToAdd {
		if containsKey(prop.AvailableKeys, k) {
			return nil, errors.Wrapf(errors.ErrDuplicate, "approval of key %s", k)
		}
		prop.AvailableKeys = append(prop.AvailableKeys, k)
	}
	for _, k := range msg.KeyApprovalsToRemove {
		if !containsKey(prop.AvailableKeys, k) {
			return nil, errors.Wrapf(ErrUnknownApproval, "approval of key %s is not collected", k)
		}
		prop.AvailableKeys = removeKey(prop.AvailableKeys, k)
	}

	// A proposal with a review period never executes on update. It waits
	// for the scheduler at the review time. When removals strip it bare
	// before that, the next sweep throws it away.
	if prop.ReviewPeriodTime != 0 {
		if prop.Stranded() {
			now, err := ledger.BlockTime(ctx)
			if err != nil {
				return nil, err
			}
			payload := proposalPayload{Author: msg.Author, Title: msg.Title}
			if _, err := cron.Schedule(db, now, TaskStranded, payload); err != nil {
				return nil, errors.Wrap(err, "cannot schedule the stranded check")
			}
		}
		return &ledger.DeliverResult{}, h.bucket.Put(db, key, &prop)
	}

	switch done, err := prop.Approved(db, h.lookup); {
	case err != nil:
		return nil, err
	case done:
		// Full approval executes the batch right away. Any inner failure
		// aborts the enclosing transaction so no partial execution can
		// ever be observed.
		if err := execute(ctx, db, h.exec, &prop); err != nil {
			return nil, errors.Wrap(err, "cannot execute the proposal")
		}
		return &ledger.DeliverResult{}, dropProposal(db, h.bucket, key, &prop)
	}
	return &ledger.DeliverResult{}, h.bucket.Put(db, key, &prop)
}

type deleteHandler struct {
	bucket orm.ModelBucket
}

func (h *deleteHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*DeleteOp)
	if !ok {
		return nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	key := proposalKey(msg.Author, msg.Title)
	var prop Proposal
	if err := h.bucket.One(db, key, &prop); err != nil {
		return nil, errors.Wrapf(err, "proposal %q/%q", msg.Author, msg.Title)
	}
	if !contains(prop.RequiredOwner, msg.Requester) &&
		!contains(prop.RequiredActive, msg.Requester) &&
		!contains(prop.RequiredPosting, msg.Requester) {
		return nil, errors.Wrapf(ErrDeleteNotAllowed, "%q is not a required approver", msg.Requester)
	}
	return &ledger.DeliverResult{}, dropProposal(db, h.bucket, key, &prop)
}

// execute unpacks and applies the inner operations in order.
func execute(ctx ledger.Context, db store.KVStore, exec Executor, prop *Proposal) error {
	ops, err := operation.UnmarshalAll(prop.Operations)
	if err != nil {
		return err
	}
	return exec.DeliverOps(ctx, db, ops)
}

// dropProposal removes the proposal and its scheduler entries.
func dropProposal(db store.KVStore, bucket orm.ModelBucket, key []byte, prop *Proposal) error {
	for _, taskID := range [][]byte{prop.ExpireTaskID, prop.ReviewTaskID} {
		if len(taskID) == 0 {
			continue
		}
		if err := cron.Delete(db, taskID); err != nil && !errors.ErrNotFound.Is(err) {
			return err
		}
	}
	return bucket.Delete(db, key)
}

func loadForTask(db store.ReadOnlyKVStore, bucket orm.ModelBucket, payload []byte) ([]byte, *Proposal, error) {
	var p proposalPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return nil, nil, errors.Wrapf(errors.ErrInput, "cannot decode payload: %v", err)
	}
	key := proposalKey(p.Author, p.Title)
	var prop Proposal
	switch err := bucket.One(db, key, &prop); {
	case errors.ErrNotFound.Is(err):
		return key, nil, nil
	case err != nil:
		return key, nil, err
	}
	return key, &prop, nil
}

// expireTask purges a proposal at its expiration time. No side effects
// are applied, regardless of collected approvals.
type expireTask struct {
	bucket orm.ModelBucket
}

func (t *expireTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	key, prop, err := loadForTask(db, t.bucket, payload)
	if err != nil || prop == nil {
		return err
	}
	return dropProposal(db, t.bucket, key, prop)
}

// reviewTask finishes a proposal at its review time: a fully approved one
// executes, everything else is discarded because the approval set is
// frozen to removals from this point on.
type reviewTask struct {
	bucket orm.ModelBucket
	lookup authority.Lookup
	exec   Executor
}

func (t *reviewTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	key, prop, err := loadForTask(db, t.bucket, payload)
	if err != nil || prop == nil {
		return err
	}
	done, err := prop.Approved(db, t.lookup)
	if err != nil {
		return err
	}
	if done {
		// The batch executes against its own cache so that a failing
		// inner operation discards every change and only removes the
		// proposal. The sweep itself must not fail.
		if cw, ok := db.(store.CacheableKVStore); ok {
			cache := cw.CacheWrap()
			if err := execute(ctx, cache, t.exec, prop); err != nil {
				cache.Discard()
			} else if err := cache.Write(); err != nil {
				return err
			}
		} else if err := execute(ctx, db, t.exec, prop); err != nil {
			return err
		}
	}
	return dropProposal(db, t.bucket, key, prop)
}

// strandedTask removes a proposal that lost all collected approvals
// during its review phase.
type strandedTask struct {
	bucket orm.ModelBucket
}

func (t *strandedTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	key, prop, err := loadForTask(db, t.bucket, payload)
	if err != nil || prop == nil {
		return err
	}
	if !prop.Stranded() {
		return nil
	}
	return dropProposal(db, t.bucket, key, prop)
}
