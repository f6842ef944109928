package delegation

import (
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
	"github.com/golos-one/ledger/x/account"
)

// TaskReturnShares is the scheduler task kind returning cooled down
// delegation shares to the delegator.
const TaskReturnShares = "delegation/return_shares"

type returnPayload struct {
	EntryID uint64 `msgpack:"entry_id"`
}

// RegisterRoutes binds the operation handlers of this package.
func RegisterRoutes(r ledger.Registry, accounts *account.Controller) {
	r.Handle("delegate_vesting_shares", &delegateHandler{
		accounts:    accounts,
		delegations: NewDelegationBucket(),
		returns:     NewReturnBucket(),
		returnSeq:   orm.NewSequence("delegexp", "id"),
	})
}

// RegisterTasks registers the scheduler handlers of this package.
func RegisterTasks(t *cron.Ticker, accounts *account.Controller) {
	t.Register(TaskReturnShares, &returnTask{
		accounts: accounts,
		returns:  NewReturnBucket(),
	})
}

type delegateHandler struct {
	accounts    *account.Controller
	delegations orm.ModelBucket
	returns     orm.ModelBucket
	returnSeq   orm.Sequence
}

func (h *delegateHandler) Deliver(ctx ledger.Context, db store.KVStore, op ledger.Operation) (*ledger.DeliverResult, error) {
	msg, ok := op.(*DelegateOp)
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

	delegator, err := h.accounts.Get(db, msg.Delegator)
	if err != nil {
		return nil, err
	}
	delegatee, err := h.accounts.Get(db, msg.Delegatee)
	if err != nil {
		return nil, err
	}

	key := delegationKey(msg.Delegator, msg.Delegatee)
	current := coin.Zero(coin.GESTS)
	var existing *VestingDelegation
	var dlg VestingDelegation
	switch err := h.delegations.One(db, key, &dlg); {
	case err == nil:
		existing = &dlg
		current = dlg.VestingShares
	case errors.ErrNotFound.Is(err):
	default:
		return nil, err
	}

	switch cmp := msg.VestingShares.Compare(current); {
	case cmp > 0:
		delta, err := msg.VestingShares.Subtract(current)
		if err != nil {
			return nil, err
		}
		if delta.Compare(MinDelta) < 0 {
			return nil, errors.Wrapf(ErrDifferenceTooLow, "must change by at least %s", MinDelta)
		}
		if !delegator.CanVote {
			return nil, errors.Wrapf(account.ErrCannotVote, "%q cannot delegate voting power", delegator.Name)
		}
		available, err := delegator.AvailableVesting()
		if err != nil {
			return nil, err
		}
		if delta.Compare(available) > 0 {
			return nil, errors.Wrapf(errors.ErrInsufficientFunds,
				"%s available, %s needed", available, delta)
		}
		// The instantaneous voting power caps the total amount that can
		// be lent out. A drained account cannot spread its nominal stake.
		power := delegator.CurrentVotingPower(now)
		maxDelegated := coin.NewCoin(scaleByPower(delegator.Vesting.Amount, power), coin.GESTS)
		total, err := delegator.DelegatedVesting.Add(delta)
		if err != nil {
			return nil, err
		}
		if total.Compare(maxDelegated) > 0 {
			return nil, errors.Wrapf(ErrLimitedByVotingPower,
				"at most %s can be delegated", maxDelegated)
		}

		delegator.DelegatedVesting = total
		if delegatee.ReceivedVesting, err = delegatee.ReceivedVesting.Add(delta); err != nil {
			return nil, err
		}
		next := VestingDelegation{
			Delegator:     msg.Delegator,
			Delegatee:     msg.Delegatee,
			VestingShares: msg.VestingShares,
			MinDelegationTime: func() ledger.UnixTime {
				if existing != nil {
					return existing.MinDelegationTime
				}
				return ledger.AsUnixTime(now)
			}(),
		}
		if err := h.delegations.Put(db, key, &next); err != nil {
			return nil, err
		}

	case cmp < 0:
		if existing == nil {
			return nil, errors.Wrap(errors.ErrNotFound, "no delegation to reduce")
		}
		if ledger.InTheFuture(ctx, existing.MinDelegationTime.Time()) {
			return nil, errors.Wrapf(ErrMinDelegationTime,
				"not before %s", existing.MinDelegationTime)
		}
		delta, err := current.Subtract(msg.VestingShares)
		if err != nil {
			return nil, err
		}
		if !msg.VestingShares.IsZero() && delta.Compare(MinDelta) < 0 {
			return nil, errors.Wrapf(ErrDifferenceTooLow,
				"must change by at least %s or drop to zero", MinDelta)
		}

		// Borrowed power goes away immediately. The delegator's shares
		// stay locked until the cooldown elapses.
		if delegatee.ReceivedVesting, err = delegatee.ReceivedVesting.Subtract(delta); err != nil {
			return nil, err
		}
		entryID, err := h.returnSeq.NextInt(db)
		if err != nil {
			return nil, err
		}
		entry := ReturnEntry{
			Delegator:     msg.Delegator,
			VestingShares: delta,
			Expiration:    ledger.AsUnixTime(now.Add(returnCooldown)),
		}
		if err := h.returns.Put(db, returnKey(entryID), &entry); err != nil {
			return nil, err
		}
		if _, err := cron.Schedule(db, entry.Expiration.Time(), TaskReturnShares, returnPayload{EntryID: entryID}); err != nil {
			return nil, errors.Wrap(err, "cannot schedule the share return")
		}

		if msg.VestingShares.IsZero() {
			if err := h.delegations.Delete(db, key); err != nil {
				return nil, err
			}
		} else {
			existing.VestingShares = msg.VestingShares
			if err := h.delegations.Put(db, key, existing); err != nil {
				return nil, err
			}
		}

	default:
		return nil, errors.Wrap(ErrDifferenceTooLow, "delegation is unchanged")
	}

	if err := h.accounts.Save(db, delegator); err != nil {
		return nil, err
	}
	if err := h.accounts.Save(db, delegatee); err != nil {
		return nil, err
	}
	return &ledger.DeliverResult{}, nil
}

// scaleByPower returns amount scaled by power basis points. The split into
// quotient and remainder keeps the result exact without overflowing int64
// for any valid coin amount.
func scaleByPower(amount int64, power uint32) int64 {
	p := int64(power)
	return amount/account.VotingPowerMax*p + amount%account.VotingPowerMax*p/account.VotingPowerMax
}

func returnKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// returnTask restores cooled down shares to the delegator.
type returnTask struct {
	accounts *account.Controller
	returns  orm.ModelBucket
}

func (t *returnTask) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	var p returnPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode payload: %v", err)
	}
	var entry ReturnEntry
	if err := t.returns.One(db, returnKey(p.EntryID), &entry); err != nil {
		return errors.Wrapf(err, "return entry %d", p.EntryID)
	}
	acc, err := t.accounts.Get(db, entry.Delegator)
	if err != nil {
		return err
	}
	if acc.DelegatedVesting, err = acc.DelegatedVesting.Subtract(entry.VestingShares); err != nil {
		return err
	}
	if err := t.accounts.Save(db, acc); err != nil {
		return err
	}
	return t.returns.Delete(db, returnKey(p.EntryID))
}
