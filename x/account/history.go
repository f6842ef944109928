package account

import (
	"encoding/binary"
	"time"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
)

// TaskPruneOwnerHistory is the scheduler task kind removing owner history
// entries that aged out of the retention window.
const TaskPruneOwnerHistory = "account/prune_owner_history"

type pruneOwnerHistoryPayload struct {
	Account string `msgpack:"account"`
}

// historyKey builds the primary key of an owner history entry. Account
// names cannot contain a zero byte, so the separator keeps prefix scans
// per account unambiguous and the sequence keeps entries ordered oldest
// first.
func historyKey(account string, seq uint64) []byte {
	key := make([]byte, len(account)+1+8)
	copy(key, account)
	binary.BigEndian.PutUint64(key[len(account)+1:], seq)
	return key
}

func historyPrefix(account string) []byte {
	return append([]byte(account), 0)
}

// RecordOwnerChange appends the authority that was the owner authority of
// given account until now to the history and schedules its removal once
// the retention window passes.
func (c *Controller) RecordOwnerChange(db store.KVStore, account string, prev authority.Authority, now time.Time) error {
	seq, err := c.histSeq.NextInt(db)
	if err != nil {
		return err
	}
	entry := OwnerHistory{
		Account:        account,
		OwnerAuthority: prev,
		LastValidTime:  ledger.AsUnixTime(now),
	}
	if err := c.history.Put(db, historyKey(account, seq), &entry); err != nil {
		return errors.Wrap(err, "cannot store owner history")
	}
	_, err = cron.Schedule(db, now.Add(OwnerHistoryWindow), TaskPruneOwnerHistory,
		pruneOwnerHistoryPayload{Account: account})
	return err
}

// HasRecentAuthority returns true when given authority was the owner
// authority of the account at some point within the retention window.
func (c *Controller) HasRecentAuthority(db store.ReadOnlyKVStore, account string, auth authority.Authority, now time.Time) (bool, error) {
	cutoff := now.Add(-OwnerHistoryWindow)
	found := false
	err := c.history.PrefixScan(db, historyPrefix(account), func(key []byte, m orm.Model) (bool, error) {
		entry := m.(*OwnerHistory)
		if entry.LastValidTime.Time().Before(cutoff) {
			return false, nil
		}
		if entry.OwnerAuthority.Equals(auth) {
			found = true
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// pruneOwnerHistory implements cron.TaskHandler.
func (c *Controller) pruneOwnerHistory(ctx ledger.Context, db store.KVStore, payload []byte) error {
	var p pruneOwnerHistoryPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode payload: %v", err)
	}
	now, err := ledger.BlockTime(ctx)
	if err != nil {
		return err
	}
	cutoff := now.Add(-OwnerHistoryWindow)

	var stale [][]byte
	err = c.history.PrefixScan(db, historyPrefix(p.Account), func(key []byte, m orm.Model) (bool, error) {
		entry := m.(*OwnerHistory)
		if entry.LastValidTime.Time().Before(cutoff) || entry.LastValidTime.Time().Equal(cutoff) {
			stale = append(stale, append([]byte{}, key...))
			return false, nil
		}
		// Entries are ordered oldest first.
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, key := range stale {
		if err := c.history.Delete(db, key); err != nil {
			return err
		}
	}
	return nil
}

// RegisterTasks registers the scheduler handlers of this package.
func RegisterTasks(t *cron.Ticker, c *Controller) {
	t.Register(TaskPruneOwnerHistory, cron.TaskHandlerFunc(c.pruneOwnerHistory))
}
