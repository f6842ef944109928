package escrow

import (
	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
	"github.com/golos-one/ledger/x/account"
)

// TaskRatificationDeadline is the scheduler task kind refunding escrows
// that were not ratified in time.
const TaskRatificationDeadline = "escrow/ratification_deadline"

type deadlinePayload struct {
	From     string `msgpack:"from"`
	EscrowID uint32 `msgpack:"escrow_id"`
}

// RegisterRoutes binds the operation handlers of this package.
func RegisterRoutes(r ledger.Registry, accounts *account.Controller) {
	bucket := NewEscrowBucket()
	r.Handle("escrow_transfer", &transferHandler{accounts: accounts, bucket: bucket})
	r.Handle("escrow_approve", &approveHandler{accounts: accounts, bucket: bucket})
	r.Handle("escrow_dispute", &disputeHandler{bucket: bucket})
	r.Handle("escrow_release", &releaseHandler{accounts: accounts, bucket: bucket})
}

// RegisterTasks registers the scheduler handlers of this package.
func RegisterTasks(t *cron.Ticker, accounts *account.Controller) {
	t.Register(TaskRatificationDeadline, &deadlineTask{
		accounts: accounts,
		bucket:   NewEscrowBucket(),
	})
}

type transferHandler struct {
	accounts *account.Controller
	bucket   orm.ModelBucket
}

func (h *transferHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}

	for _, c := range []coin.Coin{msg.GolosAmount, msg.GbgAmount, msg.Fee} {
		if c.IsZero() {
			continue
		}
		if err := h.accounts.Debit(db, msg.From, c); err != nil {
			return nil, err
		}
	}

	esc := Escrow{
		From:                 msg.From,
		To:                   msg.To,
		Agent:                msg.Agent,
		GolosBalance:         msg.GolosAmount,
		GbgBalance:           msg.GbgAmount,
		PendingFee:           msg.Fee,
		RatificationDeadline: msg.RatificationDeadline,
		EscrowExpiration:     msg.EscrowExpiration,
	}
	if err := h.bucket.Put(db, escrowKey(msg.From, msg.EscrowID), &esc); err != nil {
		return nil, err
	}

	_, err = cron.Schedule(db, msg.RatificationDeadline.Time(), TaskRatificationDeadline,
		deadlinePayload{From: msg.From, EscrowID: msg.EscrowID})
	if err != nil {
		return nil, errors.Wrap(err, "cannot schedule the ratification deadline")
	}
	return &ledger.DeliverResult{}, nil
}

func (h *transferHandler) validate(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*TransferOp, error) {
	msg, ok := op.(*TransferOp)
	if !ok {
		return nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if ledger.IsExpired(ctx, msg.RatificationDeadline) {
		return nil, errors.Wrap(errors.ErrExpired, "ratification deadline is in the past")
	}
	switch has, err := h.bucket.Has(db, escrowKey(msg.From, msg.EscrowID)); {
	case err != nil:
		return nil, err
	case has:
		return nil, errors.Wrapf(errors.ErrDuplicate, "escrow %d", msg.EscrowID)
	}
	for _, name := range []string{msg.To, msg.Agent} {
		switch has, err := h.accounts.Has(db, name); {
		case err != nil:
			return nil, err
		case !has:
			return nil, errors.Wrapf(errors.ErrNotFound, "account %q", name)
		}
	}
	return msg, nil
}

type approveHandler struct {
	accounts *account.Controller
	bucket   orm.ModelBucket
}

func (h *approveHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, esc, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}
	key := escrowKey(msg.From, msg.EscrowID)

	// An approval is binding. A party that approved can neither approve
	// again nor withdraw by disapproving, so a ratified or disputed
	// escrow can never be closed through this operation.
	switch msg.Who {
	case esc.To:
		if esc.ToApproved {
			return nil, errors.Wrapf(ErrAlreadyApproved, "receiver %q", msg.Who)
		}
	case esc.Agent:
		if esc.AgentApproved {
			return nil, errors.Wrapf(ErrAlreadyApproved, "agent %q", msg.Who)
		}
	}

	if !msg.Approve {
		// Explicit rejection by a party that did not approve yet closes
		// the escrow and refunds the sender in full, the held fee
		// included.
		if err := refund(db, h.accounts, esc); err != nil {
			return nil, err
		}
		return &ledger.DeliverResult{}, h.bucket.Delete(db, key)
	}

	switch msg.Who {
	case esc.To:
		esc.ToApproved = true
	case esc.Agent:
		esc.AgentApproved = true
	}

	if esc.Ratified() && !esc.PendingFee.IsZero() {
		if err := h.accounts.Credit(db, esc.Agent, esc.PendingFee); err != nil {
			return nil, err
		}
		esc.PendingFee = coin.Zero(esc.PendingFee.Ticker)
	}
	return &ledger.DeliverResult{}, h.bucket.Put(db, key, esc)
}

func (h *approveHandler) validate(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ApproveOp, *Escrow, error) {
	msg, ok := op.(*ApproveOp)
	if !ok {
		return nil, nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, nil, err
	}
	esc, err := loadEscrow(db, h.bucket, msg.From, msg.EscrowID, msg.To, msg.Agent)
	if err != nil {
		return nil, nil, err
	}
	return msg, esc, nil
}

type disputeHandler struct {
	bucket orm.ModelBucket
}

func (h *disputeHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, esc, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}
	esc.Disputed = true
	return &ledger.DeliverResult{}, h.bucket.Put(db, escrowKey(msg.From, msg.EscrowID), esc)
}

func (h *disputeHandler) validate(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*DisputeOp, *Escrow, error) {
	msg, ok := op.(*DisputeOp)
	if !ok {
		return nil, nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, nil, err
	}
	esc, err := loadEscrow(db, h.bucket, msg.From, msg.EscrowID, msg.To, msg.Agent)
	if err != nil {
		return nil, nil, err
	}
	if !esc.Ratified() {
		return nil, nil, errors.Wrap(ErrMustBeApprovedFirst, "cannot dispute")
	}
	if ledger.IsExpired(ctx, esc.EscrowExpiration) {
		return nil, nil, ErrCannotDisputeExpired
	}
	if esc.Disputed {
		return nil, nil, ErrAlreadyDisputed
	}
	return msg, esc, nil
}

type releaseHandler struct {
	accounts *account.Controller
	bucket   orm.ModelBucket
}

func (h *releaseHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, esc, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}
	key := escrowKey(msg.From, msg.EscrowID)

	if !msg.GolosAmount.IsZero() {
		if !esc.GolosBalance.IsGTE(msg.GolosAmount) {
			return nil, errors.Wrapf(ErrReleaseExceedsBalance, "%s held", esc.GolosBalance)
		}
		if esc.GolosBalance, err = esc.GolosBalance.Subtract(msg.GolosAmount); err != nil {
			return nil, err
		}
		if err := h.accounts.Credit(db, msg.Receiver, msg.GolosAmount); err != nil {
			return nil, err
		}
	}
	if !msg.GbgAmount.IsZero() {
		if !esc.GbgBalance.IsGTE(msg.GbgAmount) {
			return nil, errors.Wrapf(ErrReleaseExceedsBalance, "%s held", esc.GbgBalance)
		}
		if esc.GbgBalance, err = esc.GbgBalance.Subtract(msg.GbgAmount); err != nil {
			return nil, err
		}
		if err := h.accounts.Credit(db, msg.Receiver, msg.GbgAmount); err != nil {
			return nil, err
		}
	}

	if esc.Empty() {
		return &ledger.DeliverResult{}, h.bucket.Delete(db, key)
	}
	return &ledger.DeliverResult{}, h.bucket.Put(db, key, esc)
}

func (h *releaseHandler) validate(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ReleaseOp, *Escrow, error) {
	msg, ok := op.(*ReleaseOp)
	if !ok {
		return nil, nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, nil, err
	}
	esc, err := loadEscrow(db, h.bucket, msg.From, msg.EscrowID, msg.To, msg.Agent)
	if err != nil {
		return nil, nil, err
	}
	if !esc.Ratified() {
		return nil, nil, errors.Wrap(ErrMustBeApprovedFirst, "cannot release")
	}

	switch {
	case esc.Disputed:
		// Under dispute only the agent arbitrates, to either party.
		if msg.Who != esc.Agent {
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "disputed escrow is released by the agent")
		}
	case ledger.IsExpired(ctx, esc.EscrowExpiration):
		// Past expiration either party may pull funds to any of the two.
		if msg.Who != esc.From && msg.Who != esc.To {
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "expired escrow is released by sender or receiver")
		}
	default:
		// Before expiration a party may only send funds to the other one.
		switch msg.Who {
		case esc.From:
			if msg.Receiver != esc.To {
				return nil, nil, errors.Wrapf(ErrBadReceiver, "sender releases to %q only", esc.To)
			}
		case esc.To:
			if msg.Receiver != esc.From {
				return nil, nil, errors.Wrapf(ErrBadReceiver, "receiver releases to %q only", esc.From)
			}
		default:
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "agent cannot release without a dispute")
		}
	}
	return msg, esc, nil
}

// loadEscrow fetches the escrow and checks the identity fields carried by
// the operation against the stored record.
func loadEscrow(db store.ReadOnlyKVStore, bucket orm.ModelBucket, from string, id uint32, to, agent string) (*Escrow, error) {
	var esc Escrow
	if err := bucket.One(db, escrowKey(from, id), &esc); err != nil {
		return nil, errors.Wrapf(err, "escrow %q/%d", from, id)
	}
	if esc.To != to {
		return nil, errors.Wrapf(ErrBadTo, "escrow receiver is %q", esc.To)
	}
	if esc.Agent != agent {
		return nil, errors.Wrapf(ErrBadAgent, "escrow agent is %q", esc.Agent)
	}
	return &esc, nil
}

// refund returns all escrow holdings, the pending fee included, to the
// sender.
func refund(db store.KVStore, accounts *account.Controller, esc *Escrow) error {
	for _, c := range []coin.Coin{esc.GolosBalance, esc.GbgBalance, esc.PendingFee} {
		if c.IsZero() {
			continue
		}
		if err := accounts.Credit(db, esc.From, c); err != nil {
			return err
		}
	}
	return nil
}

// deadlineTask refunds escrows that were not ratified before their
// deadline. Ratified escrows are left untouched.
type deadlineTask struct {
	accounts *account.Controller
	bucket   orm.ModelBucket
}

func (t *deadlineTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	var p deadlinePayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode payload: %v", err)
	}
	key := escrowKey(p.From, p.EscrowID)
	var esc Escrow
	switch err := t.bucket.One(db, key, &esc); {
	case errors.ErrNotFound.Is(err):
		// Already closed.
		return nil
	case err != nil:
		return err
	}
	if esc.Ratified() {
		return nil
	}
	if err := refund(db, t.accounts, &esc); err != nil {
		return err
	}
	return t.bucket.Delete(db, key)
}
