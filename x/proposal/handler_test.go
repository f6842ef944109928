package proposal

import (
	"context"
	"testing"
	"time"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/cron"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/store"
	"github.com/golos-one/ledger/x/account"
)

func testKey(seed string) crypto.PrivateKey {
	return crypto.PrivateKeyFromSeed([]byte(seed + "................................")[:32])
}

// router collects handlers so proposal execution can re-enter them the
// same way the application pipeline does.
type router map[string]ledger.Handler

var _ ledger.Registry = router(nil)

func (r router) Handle(path string, h ledger.Handler) { r[path] = h }

func (r router) DeliverOps(ctx ledger.Context, db store.KVStore, ops []ledger.Operation) error {
	for _, op := range ops {
		h, ok := r[op.Path()]
		if !ok {
			return errors.Wrapf(errors.ErrType, "no handler for %q", op.Path())
		}
		if _, err := h.Deliver(ctx, db, op); err != nil {
			return err
		}
	}
	return nil
}

type fixture struct {
	db       store.CacheableKVStore
	accounts *account.Controller
	ticker   *cron.Ticker
	now      time.Time
	ctx      ledger.Context

	create *createHandler
	update *updateHandler
	delete *deleteHandler
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	f := fixture{
		db:       store.MemStore(),
		accounts: account.NewController(),
		now:      time.Now().UTC().Truncate(time.Second),
	}
	f.ctx = ledger.WithBlockTime(context.Background(), f.now)

	r := router{}
	account.RegisterRoutes(r, f.accounts)

	bucket := NewProposalBucket()
	f.create = &createHandler{bucket: bucket}
	f.update = &updateHandler{bucket: bucket, lookup: f.accounts, exec: r}
	f.delete = &deleteHandler{bucket: bucket}

	f.ticker = cron.NewTicker()
	RegisterTasks(f.ticker, f.accounts, r)

	for _, name := range []string{"alice", "bob", "carl"} {
		acc := account.NewAccount(name)
		auth := authority.NewKeyAuthority(testKey(name).PublicKey())
		acc.OwnerAuthority = auth
		acc.ActiveAuthority = auth
		acc.PostingAuthority = auth
		acc.Balance = coin.Whole(10, coin.GOLOS)
		if err := f.accounts.Create(f.db, acc); err != nil {
			t.Fatalf("cannot create account %q: %s", name, err)
		}
	}
	return &f
}

func (f *fixture) at(offset time.Duration) ledger.Context {
	return ledger.WithBlockTime(context.Background(), f.now.Add(offset))
}

func (f *fixture) propose(t testing.TB, title string, review ledger.UnixTime, ops ...ledger.Operation) {
	t.Helper()
	op, err := NewCreateOp("alice", title, "", ledger.AsUnixTime(f.now.Add(6*time.Hour)), review, ops...)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.create.Deliver(f.ctx, f.db, op); err != nil {
		t.Fatalf("cannot create the proposal: %s", err)
	}
}

func (f *fixture) balance(t testing.TB, name string) coin.Coin {
	t.Helper()
	acc, err := f.accounts.Get(f.db, name)
	if err != nil {
		t.Fatal(err)
	}
	return acc.Balance
}

func (f *fixture) exists(t testing.TB, title string) bool {
	t.Helper()
	has, err := f.create.bucket.Has(f.db, proposalKey("alice", title))
	if err != nil {
		t.Fatal(err)
	}
	return has
}

func transfer(from, to string, amount coin.Coin) *account.TransferOp {
	return &account.TransferOp{From: from, To: to, Amount: amount}
}

func TestProposalExecutesOnFullApproval(t *testing.T) {
	f := newFixture(t)
	f.propose(t, "payday", 0,
		transfer("alice", "carl", coin.Whole(1, coin.GOLOS)),
		transfer("bob", "carl", coin.Whole(2, coin.GOLOS)),
	)

	approve := func(name string) (*ledger.DeliverResult, error) {
		return f.update.Deliver(f.ctx, f.db, &UpdateOp{
			Author: "alice", Title: "payday",
			ActiveApprovalsToAdd: []string{name},
		})
	}

	if _, err := approve("alice"); err != nil {
		t.Fatalf("first approval: %s", err)
	}
	if got := f.balance(t, "carl"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("executed before full approval: %s", got)
	}

	if _, err := approve("bob"); err != nil {
		t.Fatalf("second approval: %s", err)
	}
	if got := f.balance(t, "carl"); !got.Equals(coin.Whole(13, coin.GOLOS)) {
		t.Fatalf("unexpected carl balance: %s", got)
	}
	if f.exists(t, "payday") {
		t.Fatal("an executed proposal must be removed")
	}
	// The expiration task was cancelled together with the proposal.
	if ids := f.ticker.Tick(f.at(6*time.Hour), f.db); len(ids) != 0 {
		t.Fatalf("no tasks expected, executed %d", len(ids))
	}
}

func TestProposalApprovalByKeyWeights(t *testing.T) {
	f := newFixture(t)

	// Alice needs both of her keys to act.
	k1, k2 := testKey("alice-1").PublicKey(), testKey("alice-2").PublicKey()
	alice, err := f.accounts.Get(f.db, "alice")
	if err != nil {
		t.Fatal(err)
	}
	alice.ActiveAuthority = authority.Authority{
		WeightThreshold: 2,
		KeyAuths: []authority.KeyWeight{
			{Key: k1, Weight: 1},
			{Key: k2, Weight: 1},
		},
	}
	if err := f.accounts.Save(f.db, alice); err != nil {
		t.Fatal(err)
	}

	f.propose(t, "keyed", 0, transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))

	if _, err := f.update.Deliver(f.ctx, f.db, &UpdateOp{
		Author: "alice", Title: "keyed",
		KeyApprovalsToAdd: []crypto.PublicKey{k1},
	}); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(t, "bob"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("executed below the weight threshold: %s", got)
	}

	if _, err := f.update.Deliver(f.ctx, f.db, &UpdateOp{
		Author: "alice", Title: "keyed",
		KeyApprovalsToAdd: []crypto.PublicKey{k2},
	}); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(t, "bob"); !got.Equals(coin.Whole(11, coin.GOLOS)) {
		t.Fatalf("unexpected bob balance: %s", got)
	}
}

func TestProposalExecutionIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.propose(t, "overdraft", 0,
		transfer("alice", "bob", coin.Whole(1, coin.GOLOS)),
		transfer("alice", "bob", coin.Whole(1000, coin.GOLOS)),
	)

	// The pipeline wraps every transaction; a failing inner operation
	// discards the whole batch.
	cache := f.db.CacheWrap()
	_, err := f.update.Deliver(f.ctx, cache, &UpdateOp{
		Author: "alice", Title: "overdraft",
		ActiveApprovalsToAdd: []string{"alice"},
	})
	if !errors.ErrInsufficientFunds.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Discard()

	if got := f.balance(t, "alice"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("partial execution leaked: %s", got)
	}
	if got := f.balance(t, "bob"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("partial execution leaked: %s", got)
	}
	if !f.exists(t, "overdraft") {
		t.Fatal("a failed proposal must stay for another attempt")
	}
}

func TestProposalReviewPeriodDefersExecution(t *testing.T) {
	f := newFixture(t)
	review := ledger.AsUnixTime(f.now.Add(3 * time.Hour))
	f.propose(t, "reviewed", review, transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))

	// Full approval one hour in does not execute yet.
	if _, err := f.update.Deliver(f.at(time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "reviewed",
		ActiveApprovalsToAdd: []string{"alice"},
	}); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(t, "bob"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("executed before the review time: %s", got)
	}

	// The review sweep executes the still approved proposal.
	if ids := f.ticker.Tick(f.at(3*time.Hour), f.db); len(ids) != 1 {
		t.Fatalf("want 1 task, executed %d", len(ids))
	}
	if got := f.balance(t, "bob"); !got.Equals(coin.Whole(11, coin.GOLOS)) {
		t.Fatalf("unexpected bob balance: %s", got)
	}
	if f.exists(t, "reviewed") {
		t.Fatal("an executed proposal must be removed")
	}
}

func TestProposalApprovalWithdrawnBeforeReview(t *testing.T) {
	f := newFixture(t)
	review := ledger.AsUnixTime(f.now.Add(3 * time.Hour))
	f.propose(t, "reviewed", review, transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))

	if _, err := f.update.Deliver(f.at(time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "reviewed",
		ActiveApprovalsToAdd: []string{"alice"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.update.Deliver(f.at(2*time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "reviewed",
		ActiveApprovalsToRemove: []string{"alice"},
	}); err != nil {
		t.Fatal(err)
	}

	// The withdrawal stranded the proposal, so the next sweep removes it
	// without waiting for the review time.
	if ids := f.ticker.Tick(f.at(2*time.Hour), f.db); len(ids) != 1 {
		t.Fatalf("want 1 task, executed %d", len(ids))
	}
	if f.exists(t, "reviewed") {
		t.Fatal("a stranded proposal must be removed")
	}
	if got := f.balance(t, "bob"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("a discarded proposal must not execute: %s", got)
	}
}

func TestProposalNoAddDuringReviewPeriod(t *testing.T) {
	f := newFixture(t)
	review := ledger.AsUnixTime(f.now.Add(3 * time.Hour))
	f.propose(t, "reviewed", review, transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))

	_, err := f.update.Deliver(f.at(3*time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "reviewed",
		ActiveApprovalsToAdd: []string{"alice"},
	})
	if !ErrCannotAddApprovalInReviewPeriod.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}

	// Removals are still allowed.
	if _, err := f.update.Deliver(f.at(2*time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "reviewed",
		ActiveApprovalsToAdd: []string{"alice"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.update.Deliver(f.at(3*time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "reviewed",
		ActiveApprovalsToRemove: []string{"alice"},
	}); err != nil {
		t.Fatalf("removal during the review period: %s", err)
	}
}

func TestProposalUnknownApproval(t *testing.T) {
	f := newFixture(t)
	f.propose(t, "solo", 0, transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))

	_, err := f.update.Deliver(f.ctx, f.db, &UpdateOp{
		Author: "alice", Title: "solo",
		ActiveApprovalsToAdd: []string{"carl"},
	})
	if !ErrUnknownApproval.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.update.Deliver(f.ctx, f.db, &UpdateOp{
		Author: "alice", Title: "solo",
		ActiveApprovalsToRemove: []string{"alice"},
	})
	if !ErrUnknownApproval.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProposalExpires(t *testing.T) {
	f := newFixture(t)
	f.propose(t, "stale", 0,
		transfer("alice", "carl", coin.Whole(1, coin.GOLOS)),
		transfer("bob", "carl", coin.Whole(1, coin.GOLOS)),
	)
	if _, err := f.update.Deliver(f.ctx, f.db, &UpdateOp{
		Author: "alice", Title: "stale",
		ActiveApprovalsToAdd: []string{"alice"},
	}); err != nil {
		t.Fatal(err)
	}

	if ids := f.ticker.Tick(f.at(6*time.Hour), f.db); len(ids) != 1 {
		t.Fatalf("want 1 task, executed %d", len(ids))
	}
	if f.exists(t, "stale") {
		t.Fatal("an expired proposal must be removed")
	}
	if got := f.balance(t, "carl"); !got.Equals(coin.Whole(10, coin.GOLOS)) {
		t.Fatalf("an expired proposal must not execute: %s", got)
	}

	// Updating a removed proposal fails.
	_, err := f.update.Deliver(f.at(6*time.Hour), f.db, &UpdateOp{
		Author: "alice", Title: "stale",
		ActiveApprovalsToAdd: []string{"bob"},
	})
	if !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProposalDelete(t *testing.T) {
	f := newFixture(t)
	f.propose(t, "doomed", 0,
		transfer("alice", "carl", coin.Whole(1, coin.GOLOS)),
		transfer("bob", "carl", coin.Whole(1, coin.GOLOS)),
	)

	_, err := f.delete.Deliver(f.ctx, f.db, &DeleteOp{
		Requester: "carl", Author: "alice", Title: "doomed",
	})
	if !ErrDeleteNotAllowed.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}

	// Any required approver can withdraw the whole proposal.
	if _, err := f.delete.Deliver(f.ctx, f.db, &DeleteOp{
		Requester: "bob", Author: "alice", Title: "doomed",
	}); err != nil {
		t.Fatal(err)
	}
	if f.exists(t, "doomed") {
		t.Fatal("a deleted proposal must be removed")
	}
	if ids := f.ticker.Tick(f.at(6*time.Hour), f.db); len(ids) != 0 {
		t.Fatalf("no tasks expected, executed %d", len(ids))
	}
}

func TestProposalCreateValidation(t *testing.T) {
	f := newFixture(t)

	t.Run("duplicate", func(t *testing.T) {
		f.propose(t, "twice", 0, transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))
		op, err := NewCreateOp("alice", "twice", "", ledger.AsUnixTime(f.now.Add(time.Hour)), 0,
			transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.create.Deliver(f.ctx, f.db, op); !errors.ErrDuplicate.Is(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("expiration in the past", func(t *testing.T) {
		op, err := NewCreateOp("alice", "late", "", ledger.AsUnixTime(f.now.Add(-time.Hour)), 0,
			transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.create.Deliver(f.ctx, f.db, op); !errors.ErrExpired.Is(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("lifetime too long", func(t *testing.T) {
		op, err := NewCreateOp("alice", "forever", "", ledger.AsUnixTime(f.now.Add(40*24*time.Hour)), 0,
			transfer("alice", "bob", coin.Whole(1, coin.GOLOS)))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.create.Deliver(f.ctx, f.db, op); !errors.ErrInput.Is(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("add and remove the same approval", func(t *testing.T) {
		op := &UpdateOp{
			Author: "alice", Title: "twice",
			ActiveApprovalsToAdd:    []string{"alice"},
			ActiveApprovalsToRemove: []string{"alice"},
		}
		if err := op.Validate(); !ErrAddAndRemoveSameApproval.Is(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
