package recovery

import (
	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
	"github.com/golos-one/ledger/x/account"
)

const (
	// TaskExpireRequest purges a recovery request that was never used.
	TaskExpireRequest = "recovery/expire_request"
	// TaskChangeRecovery applies a matured recovery partner change.
	TaskChangeRecovery = "recovery/change_recovery_account"
)

type accountPayload struct {
	Account string `msgpack:"account"`
}

// RegisterRoutes binds the operation handlers of this package.
func RegisterRoutes(r ledger.Registry, accounts *account.Controller) {
	r.Handle("request_account_recovery", &requestHandler{
		accounts: accounts,
		requests: NewRequestBucket(),
	})
	r.Handle("recover_account", &recoverHandler{
		accounts: accounts,
		requests: NewRequestBucket(),
	})
	r.Handle("change_recovery_account", &changeRecoveryHandler{
		accounts: accounts,
		changes:  NewChangeRequestBucket(),
	})
}

// RegisterTasks registers the scheduler handlers of this package.
func RegisterTasks(t *cron.Ticker, accounts *account.Controller) {
	t.Register(TaskExpireRequest, &expireRequestTask{requests: NewRequestBucket()})
	t.Register(TaskChangeRecovery, &changeRecoveryTask{
		accounts: accounts,
		changes:  NewChangeRequestBucket(),
	})
}

type requestHandler struct {
	accounts *account.Controller
	requests orm.ModelBucket
}

func (h *requestHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*RequestOp)
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

	acc, err := h.accounts.Get(db, msg.AccountToRecover)
	if err != nil {
		return nil, err
	}
	if acc.RecoveryAccount != msg.RecoveryAccount {
		return nil, errors.Wrapf(ErrNotPartner,
			"recovery partner of %q is %q", acc.Name, acc.RecoveryAccount)
	}

	key := []byte(msg.AccountToRecover)

	// A new request replaces a pending one, scheduled purge included.
	var old Request
	switch err := h.requests.One(db, key, &old); {
	case err == nil:
		if err := cron.Delete(db, old.TaskID); err != nil && !errors.ErrNotFound.Is(err) {
			return nil, err
		}
	case errors.ErrNotFound.Is(err):
	default:
		return nil, err
	}

	expires := now.Add(requestTTL)
	taskID, err := cron.Schedule(db, expires, TaskExpireRequest,
		accountPayload{Account: msg.AccountToRecover})
	if err != nil {
		return nil, errors.Wrap(err, "cannot schedule the request expiration")
	}
	req := Request{
		Account:           msg.AccountToRecover,
		NewOwnerAuthority: msg.NewOwnerAuthority,
		Expires:           ledger.AsUnixTime(expires),
		TaskID:            taskID,
	}
	return &ledger.DeliverResult{}, h.requests.Put(db, key, &req)
}

type recoverHandler struct {
	accounts *account.Controller
	requests orm.ModelBucket
}

func (h *recoverHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*RecoverOp)
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

	acc, err := h.accounts.Get(db, msg.AccountToRecover)
	if err != nil {
		return nil, err
	}
	if acc.LastAccountRecovery != 0 && now.Sub(acc.LastAccountRecovery.Time()) < recoveryInterval {
		return nil, errors.Wrapf(ErrRateLimit, "can recover only once every %s", recoveryInterval)
	}

	key := []byte(msg.AccountToRecover)
	var req Request
	switch err := h.requests.One(db, key, &req); {
	case errors.ErrNotFound.Is(err):
		return nil, ErrNoActiveRequest
	case err != nil:
		return nil, err
	}
	if ledger.IsExpired(ctx, req.Expires) {
		return nil, errors.Wrap(ErrNoActiveRequest, "request expired")
	}
	if !msg.NewOwnerAuthority.Equals(req.NewOwnerAuthority) {
		return nil, ErrAuthorityMismatch
	}
	switch recent, err := h.accounts.HasRecentAuthority(db, acc.Name, msg.RecentOwnerAuthority, now); {
	case err != nil:
		return nil, err
	case !recent:
		return nil, ErrNoRecentAuthority
	}

	// The replaced authority goes to the history so the account holder
	// could recover again if this recovery itself turns out hostile.
	if err := h.accounts.RecordOwnerChange(db, acc.Name, acc.OwnerAuthority, now); err != nil {
		return nil, err
	}
	acc.OwnerAuthority = msg.NewOwnerAuthority
	acc.LastOwnerUpdate = ledger.AsUnixTime(now)
	acc.LastAccountRecovery = ledger.AsUnixTime(now)
	if err := h.accounts.Save(db, acc); err != nil {
		return nil, err
	}

	if err := cron.Delete(db, req.TaskID); err != nil && !errors.ErrNotFound.Is(err) {
		return nil, err
	}
	return &ledger.DeliverResult{}, h.requests.Delete(db, key)
}

type changeRecoveryHandler struct {
	accounts *account.Controller
	changes  orm.ModelBucket
}

func (h *changeRecoveryHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*ChangeRecoveryOp)
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

	switch has, err := h.accounts.Has(db, msg.AccountToRecover); {
	case err != nil:
		return nil, err
	case !has:
		return nil, errors.Wrapf(errors.ErrNotFound, "account %q", msg.AccountToRecover)
	}
	switch has, err := h.accounts.Has(db, msg.NewRecoveryAccount); {
	case err != nil:
		return nil, err
	case !has:
		return nil, errors.Wrapf(errors.ErrNotFound, "account %q", msg.NewRecoveryAccount)
	}

	key := []byte(msg.AccountToRecover)

	// Re-requesting replaces the pending change.
	var old ChangeRequest
	switch err := h.changes.One(db, key, &old); {
	case err == nil:
		if err := cron.Delete(db, old.TaskID); err != nil && !errors.ErrNotFound.Is(err) {
			return nil, err
		}
	case errors.ErrNotFound.Is(err):
	default:
		return nil, err
	}

	effective := now.Add(changeDelay)
	taskID, err := cron.Schedule(db, effective, TaskChangeRecovery,
		accountPayload{Account: msg.AccountToRecover})
	if err != nil {
		return nil, errors.Wrap(err, "cannot schedule the recovery change")
	}
	req := ChangeRequest{
		Account:            msg.AccountToRecover,
		NewRecoveryAccount: msg.NewRecoveryAccount,
		EffectiveAt:        ledger.AsUnixTime(effective),
		TaskID:             taskID,
	}
	return &ledger.DeliverResult{}, h.changes.Put(db, key, &req)
}

// expireRequestTask purges a recovery request that reached its TTL.
type expireRequestTask struct {
	requests orm.ModelBucket
}

func (t *expireRequestTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	var p accountPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode payload: %v", err)
	}
	switch err := t.requests.Delete(db, []byte(p.Account)); {
	case errors.ErrNotFound.Is(err):
		// Consumed or replaced already.
		return nil
	default:
		return err
	}
}

// changeRecoveryTask applies a matured recovery partner change.
type changeRecoveryTask struct {
	accounts *account.Controller
	changes  orm.ModelBucket
}

func (t *changeRecoveryTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	var p accountPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode payload: %v", err)
	}
	var req ChangeRequest
	switch err := t.changes.One(db, []byte(p.Account), &req); {
	case errors.ErrNotFound.Is(err):
		return nil
	case err != nil:
		return err
	}
	acc, err := t.accounts.Get(db, req.Account)
	if err != nil {
		return err
	}
	acc.RecoveryAccount = req.NewRecoveryAccount
	if err := t.accounts.Save(db, acc); err != nil {
		return err
	}
	return t.changes.Delete(db, []byte(p.Account))
}
