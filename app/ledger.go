package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
	"github.com/golos-one/ledger/store"
	"github.com/golos-one/ledger/x/account"
	"github.com/golos-one/ledger/x/delegation"
	"github.com/golos-one/ledger/x/escrow"
	"github.com/golos-one/ledger/x/proposal"
	"github.com/golos-one/ledger/x/recovery"
)

// Options configures a Ledger instance. The zero value is usable: an
// in-memory store, a no-op logger and a private metrics registry.
type Options struct {
	ChainID string
	DB      store.CacheableKVStore
	Logger  zerolog.Logger
	Metrics prometheus.Registerer
}

// Ledger is the transaction processing pipeline. It owns the state store
// and applies signed transactions block by block: BeginBlock, any number
// of DeliverTx, EndBlock, Commit.
type Ledger struct {
	chainID  string
	db       store.CacheableKVStore
	router   *Router
	ticker   *cron.Ticker
	accounts *account.Controller
	logger   zerolog.Logger
	metrics  *metrics

	// block is the overlay all deliveries of the current block write
	// into. Nil between blocks.
	block  store.KVCacheWrap
	now    time.Time
	height int64
}

// NewLedger wires the full application: every operation handler and every
// scheduled task handler of all feature packages.
func NewLedger(opts Options) *Ledger {
	if opts.DB == nil {
		opts.DB = store.MemStore()
	}
	if opts.Metrics == nil {
		opts.Metrics = prometheus.NewRegistry()
	}
	l := &Ledger{
		chainID:  opts.ChainID,
		db:       opts.DB,
		router:   NewRouter(),
		ticker:   cron.NewTicker(),
		accounts: account.NewController(),
		logger:   opts.Logger,
		metrics:  newMetrics(opts.Metrics),
	}

	account.RegisterRoutes(l.router, l.accounts)
	escrow.RegisterRoutes(l.router, l.accounts)
	delegation.RegisterRoutes(l.router, l.accounts)
	recovery.RegisterRoutes(l.router, l.accounts)
	proposal.RegisterRoutes(l.router, l.accounts, l)

	account.RegisterTasks(l.ticker, l.accounts)
	escrow.RegisterTasks(l.ticker, l.accounts)
	delegation.RegisterTasks(l.ticker, l.accounts)
	recovery.RegisterTasks(l.ticker, l.accounts)
	proposal.RegisterTasks(l.ticker, l.accounts, l)

	return l
}

// ChainID returns the chain this instance signs and verifies for.
func (l *Ledger) ChainID() string { return l.chainID }

// Accounts exposes the account state for read access.
func (l *Ledger) Accounts() *account.Controller { return l.accounts }

// Store exposes the application state. Outside of a block it reflects the
// last committed state.
func (l *Ledger) Store() store.CacheableKVStore { return l.db }

// BeginBlock opens a new block at given time and height. All state
// changes made until Commit go into a block overlay.
func (l *Ledger) BeginBlock(now time.Time, height int64) error {
	if l.block != nil {
		return errors.Wrap(errors.ErrState, "block already in progress")
	}
	l.block = l.db.CacheWrap()
	l.now = now.UTC()
	l.height = height
	l.metrics.blockHeight.Set(float64(height))
	return nil
}

// DeliverTx verifies and applies a signed transaction. All operations are
// applied in order against a shared overlay; any failure discards every
// change the transaction made.
func (l *Ledger) DeliverTx(tx *operation.Tx) error {
	if l.block == nil {
		return errors.Wrap(errors.ErrState, "no block in progress")
	}
	if err := l.deliverTx(l.blockCtx(), tx); err != nil {
		l.metrics.txFailed.Inc()
		l.logger.Info().
			Err(err).
			Int64("height", l.height).
			Msg("transaction rejected")
		return err
	}
	l.metrics.txDelivered.Inc()
	l.metrics.opDelivered.Add(float64(len(tx.Operations)))
	l.logger.Info().
		Int64("height", l.height).
		Int("operations", len(tx.Operations)).
		Msg("transaction delivered")
	return nil
}

func (l *Ledger) blockCtx() ledger.Context {
	ctx := ledger.WithBlockTime(context.Background(), l.now)
	return ledger.WithHeight(ctx, l.height)
}

func (l *Ledger) deliverTx(ctx ledger.Context, tx *operation.Tx) error {
	if !ledger.InTheFuture(ctx, tx.Expiration.Time()) {
		return errors.Wrap(errors.ErrExpired, "transaction expired")
	}
	ops, err := tx.GetOperations()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no operations")
	}

	var required authority.Required
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return errors.Wrapf(err, "operation %d", i)
		}
		required.Merge(op.RequiredAuths())
	}

	keys, err := tx.SignerKeys(l.chainID)
	if err != nil {
		return err
	}
	if err := authority.Verify(l.block, l.accounts, required, keys); err != nil {
		return err
	}

	cache := l.block.CacheWrap()
	if err := l.deliverOps(ctx, cache, ops); err != nil {
		cache.Discard()
		return err
	}
	return cache.Write()
}

// DeliverOps applies already authorized operations. It is used by the
// proposal extension to execute an approved batch.
func (l *Ledger) DeliverOps(ctx ledger.Context, db store.KVStore, ops []ledger.Operation) error {
	return l.deliverOps(ctx, db, ops)
}

var _ proposal.Executor = (*Ledger)(nil)

func (l *Ledger) deliverOps(ctx ledger.Context, db store.KVStore, ops []ledger.Operation) error {
	for i, op := range ops {
		h := l.router.Handler(op.Path())
		if h == nil {
			return errors.Wrapf(errors.ErrType, "no handler for %q", op.Path())
		}
		if _, err := h.Deliver(ctx, db, op); err != nil {
			return errors.Wrapf(err, "operation %d", i)
		}
	}
	return nil
}

// EndBlock runs all scheduled tasks that became due at the current block
// time. Returns the number of executed tasks.
func (l *Ledger) EndBlock() int {
	ids := l.ticker.Tick(l.blockCtx(), l.block)
	l.metrics.tasksSwept.Add(float64(len(ids)))
	if len(ids) > 0 {
		l.logger.Info().
			Int64("height", l.height).
			Int("tasks", len(ids)).
			Msg("scheduled tasks executed")
	}
	return len(ids)
}

// Commit writes the block overlay into the state store and closes the
// block.
func (l *Ledger) Commit() error {
	if l.block == nil {
		return errors.Wrap(errors.ErrState, "no block in progress")
	}
	err := l.block.Write()
	l.block = nil
	return err
}
