/*
Package cron implements the deferred execution queue of the ledger.

Every conditional object (escrow deadlines, delegation cooldowns, recovery
request TTLs, proposal review and expiration) registers a task here instead
of keeping its own timer. Tasks are persisted in the store under keys
ordered by (due time, insertion id) and processed in exactly that order by
a single sweep once per block, so all nodes process expirations
identically.

A long lived wait is only scheduled data. Nothing ever blocks.
*/
package cron

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
)

// TaskHandler executes a single due task. Handlers must re-check the state
// they operate on: the condition a task was scheduled for may have been
// resolved in the meantime, in which case the task is a no-op.
//
// A task handler returning an error is a consensus invariant violation,
// not a recoverable condition.
type TaskHandler interface {
	RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error
}

// TaskHandlerFunc turns a plain function into a TaskHandler.
type TaskHandlerFunc func(ctx ledger.Context, db store.KVStore, payload []byte) error

func (f TaskHandlerFunc) RunTask(ctx ledger.Context, db store.KVStore, payload []byte) error {
	return f(ctx, db, payload)
}

var queuePrefix = []byte("_crontask:runat:")

var taskSeq = orm.NewSequence("cron", "id")

// task is the persisted envelope of a scheduled unit of work.
type task struct {
	Kind    string `msgpack:"kind"`
	Payload []byte `msgpack:"payload"`
}

// Schedule queues a task for execution at or after given time. The payload
// is serialized and handed back to the handler registered for the kind when
// the task becomes due. Returned is the task ID that can be used to delete
// the task before it runs.
//
// Time granularity is a second. Tasks scheduled for the same second run in
// insertion order.
func Schedule(db store.KVStore, runAt time.Time, kind string, payload interface{}) ([]byte, error) {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	body, err := msgpack.Marshal(task{Kind: kind, Payload: raw})
	if err != nil {
		return nil, errors.Wrap(err, "marshal task")
	}

	seq, err := taskSeq.NextInt(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire task id")
	}
	key := queueKey(runAt.Unix(), seq)
	if err := db.Set(key, body); err != nil {
		return nil, errors.Wrap(err, "cannot store in queue")
	}
	return key, nil
}

// Delete removes a scheduled task before it was executed.
func Delete(db store.KVStore, taskID []byte) error {
	if ok, err := db.Has(taskID); err != nil {
		return errors.Wrap(err, "has")
	} else if !ok {
		return errors.Wrap(errors.ErrNotFound, "no task")
	}
	return db.Delete(taskID)
}

// queueKey builds the queue entry key ordered by (time, id).
func queueKey(unix int64, seq uint64) []byte {
	key := make([]byte, 0, len(queuePrefix)+16)
	key = append(key, queuePrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(unix))
	key = append(key, b[:]...)
	binary.BigEndian.PutUint64(b[:], seq)
	return append(key, b[:]...)
}

// NewTicker returns an empty task processor. Extensions register their
// task kinds during the application wiring.
func NewTicker() *Ticker {
	return &Ticker{handlers: make(map[string]TaskHandler)}
}

// Ticker executes tasks queued for future execution.
type Ticker struct {
	handlers map[string]TaskHandler
}

// Register binds a task kind to its handler. Registering the same kind
// twice is a programmer error.
func (t *Ticker) Register(kind string, h TaskHandler) {
	if _, ok := t.handlers[kind]; ok {
		panic(fmt.Sprintf("cron task kind %q is already registered", kind))
	}
	t.handlers[kind] = h
}

// Tick processes all tasks that are due at the current block time, in
// (due time, insertion id) order. Each task runs in its own cache wrap so
// its changes are atomic. Returned are the IDs of the executed tasks.
//
// The sweep itself must never fail: any error coming out of a task handler
// means this node diverged from the network and processing stops hard.
func (t *Ticker) Tick(ctx ledger.Context, db store.CacheableKVStore) [][]byte {
	now, err := ledger.BlockTime(ctx)
	if err != nil {
		failTask(errors.Wrap(err, "cannot get block time"))
		return nil
	}

	due, err := t.dueTasks(db, now)
	if err != nil {
		failTask(err)
		return nil
	}

	var executed [][]byte
	for _, d := range due {
		hn, ok := t.handlers[d.task.Kind]
		if !ok {
			failTask(errors.Wrapf(errors.ErrHuman, "no handler for task kind %q", d.task.Kind))
			return executed
		}

		// Each task is processed using its own cache so that its removal
		// from the queue and its state changes are one atomic unit.
		cache := db.CacheWrap()
		if err := hn.RunTask(ctx, cache, d.task.Payload); err != nil {
			cache.Discard()
			failTask(errors.Wrapf(err, "task %q", d.task.Kind))
			return executed
		}
		if err := cache.Delete(d.key); err != nil {
			cache.Discard()
			failTask(errors.Wrap(err, "cannot dequeue task"))
			return executed
		}
		if err := cache.Write(); err != nil {
			failTask(errors.Wrap(err, "cannot write task cache"))
			return executed
		}
		executed = append(executed, d.key)
	}
	return executed
}

type dueTask struct {
	key  []byte
	task task
}

// dueTasks collects all queue entries with a due time at or before now.
// The snapshot is taken before any task runs so that a task scheduling
// another task cannot extend the current sweep.
func (t *Ticker) dueTasks(db store.ReadOnlyKVStore, now time.Time) ([]dueTask, error) {
	since := queueKey(0, 0)
	until := queueKey(now.Unix()+1, 0)

	it, err := db.Iterator(since, until)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create iterator")
	}
	defer it.Release()

	var due []dueTask
	for {
		key, value, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return due, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "cannot get next task")
		}
		var tk task
		if err := msgpack.Unmarshal(value, &tk); err != nil {
			return nil, errors.Wrapf(errors.ErrState, "corrupted task: %v", err)
		}
		due = append(due, dueTask{key: key, task: tk})
	}
}

// failTask is a variable so that it can be overwritten in tests. An error
// during the expiration sweep is not recoverable: this node is out of sync
// with the rest of the network.
var failTask = func(err error) {
	panic(fmt.Sprintf("expiration sweep failed: %+v", err))
}
