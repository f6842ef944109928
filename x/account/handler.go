package account

import (
	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/store"
)

// RegisterRoutes binds the operation handlers of this package.
func RegisterRoutes(r ledger.Registry, ctrl *Controller) {
	r.Handle("create_account", &createAccountHandler{ctrl: ctrl})
	r.Handle("account_update", &updateAccountHandler{ctrl: ctrl})
	r.Handle("transfer", &transferHandler{ctrl: ctrl})
}

type createAccountHandler struct {
	ctrl *Controller
}

func (h *createAccountHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}
	now, err := ledger.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	if !msg.Fee.IsZero() {
		if err := h.ctrl.Debit(db, msg.Creator, msg.Fee); err != nil {
			return nil, errors.Wrap(err, "cannot pay the creation fee")
		}
	}
	acc := NewAccount(msg.NewAccountName)
	acc.OwnerAuthority = msg.Owner
	acc.ActiveAuthority = msg.Active
	acc.PostingAuthority = msg.Posting
	acc.RecoveryAccount = msg.Creator
	acc.CreatedAt = ledger.AsUnixTime(now)
	acc.JSONMetadata = msg.JSONMetadata
	if err := h.ctrl.Create(db, acc); err != nil {
		return nil, err
	}
	if !msg.Fee.IsZero() {
		if err := h.ctrl.Credit(db, msg.NewAccountName, msg.Fee); err != nil {
			return nil, err
		}
	}
	return &ledger.DeliverResult{Data: []byte(msg.NewAccountName)}, nil
}

func (h *createAccountHandler) validate(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*CreateAccountOp, error) {
	msg, ok := op.(*CreateAccountOp)
	if !ok {
		return nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	switch has, err := h.ctrl.Has(db, msg.NewAccountName); {
	case err != nil:
		return nil, err
	case has:
		return nil, errors.Wrapf(errors.ErrDuplicate, "account %q", msg.NewAccountName)
	}
	return msg, nil
}

type updateAccountHandler struct {
	ctrl *Controller
}

func (h *updateAccountHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, acc, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}
	now, err := ledger.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	if msg.Owner != nil {
		if err := h.ctrl.RecordOwnerChange(db, acc.Name, acc.OwnerAuthority, now); err != nil {
			return nil, err
		}
		acc.OwnerAuthority = *msg.Owner
		acc.LastOwnerUpdate = ledger.AsUnixTime(now)
	}
	if msg.Active != nil {
		acc.ActiveAuthority = *msg.Active
	}
	if msg.Posting != nil {
		acc.PostingAuthority = *msg.Posting
	}
	if msg.JSONMetadata != nil {
		acc.JSONMetadata = *msg.JSONMetadata
	}
	if err := h.ctrl.Save(db, acc); err != nil {
		return nil, err
	}
	return &ledger.DeliverResult{}, nil
}

func (h *updateAccountHandler) validate(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*AccountUpdateOp, *Account, error) {
	msg, ok := op.(*AccountUpdateOp)
	if !ok {
		return nil, nil, errors.WithType(errors.ErrType, op)
	}
	if err := msg.Validate(); err != nil {
		return nil, nil, err
	}
	acc, err := h.ctrl.Get(db, msg.Account)
	if err != nil {
		return nil, nil, err
	}
	if msg.Owner != nil {
		now, err := ledger.BlockTime(ctx)
		if err != nil {
			return nil, nil, err
		}
		if acc.LastOwnerUpdate != 0 && now.Sub(acc.LastOwnerUpdate.Time()) < ownerUpdateInterval {
			return nil, nil, errors.Wrapf(ErrOwnerUpdateRateLimit,
				"can update only once every %s", ownerUpdateInterval)
		}
	}
	return msg, acc, nil
}

type transferHandler struct {
	ctrl *Controller
}

func (h *transferHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, err := h.validate(ctx, db, op)
	if err != nil {
		return nil, err
	}
	if err := h.ctrl.MoveCoins(db, msg.From, msg.To, msg.Amount); err != nil {
		return nil, err
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
	switch has, err := h.ctrl.Has(db, msg.To); {
	case err != nil:
		return nil, err
	case !has:
		return nil, errors.Wrapf(errors.ErrNotFound, "account %q", msg.To)
	}
	return msg, nil
}
