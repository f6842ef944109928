package account

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
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
)

func keyAuth(seed string) authority.Authority {
	priv := crypto.PrivateKeyFromSeed([]byte(seed + "................................")[:32])
	return authority.NewKeyAuthority(priv.PublicKey())
}

func fundedAccount(t testing.TB, db store.KVStore, ctrl *Controller, name string, balance coin.Coin) *Account {
	t.Helper()
	acc := NewAccount(name)
	acc.OwnerAuthority = keyAuth(name + "-owner")
	acc.ActiveAuthority = keyAuth(name + "-active")
	acc.PostingAuthority = keyAuth(name + "-posting")
	switch balance.Ticker {
	case coin.GBG:
		acc.GbgBalance = balance
	case coin.GESTS:
		acc.Vesting = balance
	default:
		acc.Balance = balance
	}
	if err := ctrl.Create(db, acc); err != nil {
		t.Fatalf("cannot create account %q: %s", name, err)
	}
	return acc
}

func TestCreateAccount(t *testing.T) {
	db := store.MemStore()
	ctrl := NewController()
	now := time.Now().UTC()
	ctx := ledger.WithBlockTime(context.Background(), now)

	fundedAccount(t, db, ctrl, "alice", coin.Whole(100, coin.GOLOS))

	h := createAccountHandler{ctrl: ctrl}
	op := &CreateAccountOp{
		Creator:        "alice",
		NewAccountName: "bob",
		Fee:            coin.Whole(3, coin.GOLOS),
		Owner:          keyAuth("bob-owner"),
		Active:         keyAuth("bob-active"),
		Posting:        keyAuth("bob-posting"),
	}
	if _, err := h.Deliver(ctx, db, op); err != nil {
		t.Fatalf("cannot create account: %s", err)
	}

	alice, err := ctrl.Get(db, "alice")
	if err != nil {
		t.Fatalf("cannot get alice: %s", err)
	}
	if want := coin.Whole(97, coin.GOLOS); !alice.Balance.Equals(want) {
		t.Fatalf("want %s, got %s", want, alice.Balance)
	}
	bob, err := ctrl.Get(db, "bob")
	if err != nil {
		t.Fatalf("cannot get bob: %s", err)
	}
	if want := coin.Whole(3, coin.GOLOS); !bob.Balance.Equals(want) {
		t.Fatalf("want %s, got %s", want, bob.Balance)
	}
	if bob.RecoveryAccount != "alice" {
		t.Fatalf("unexpected recovery account %q", bob.RecoveryAccount)
	}

	// The name is taken now.
	if _, err := h.Deliver(ctx, db, op); !errors.ErrDuplicate.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateAccountInsufficientFee(t *testing.T) {
	db := store.MemStore()
	ctrl := NewController()
	ctx := ledger.WithBlockTime(context.Background(), time.Now())

	fundedAccount(t, db, ctrl, "alice", coin.Whole(1, coin.GOLOS))

	h := createAccountHandler{ctrl: ctrl}
	op := &CreateAccountOp{
		Creator:        "alice",
		NewAccountName: "bob",
		Fee:            coin.Whole(3, coin.GOLOS),
		Owner:          keyAuth("bob-owner"),
		Active:         keyAuth("bob-active"),
		Posting:        keyAuth("bob-posting"),
	}
	if _, err := h.Deliver(ctx, db, op); !errors.ErrInsufficientFunds.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransfer(t *testing.T) {
	db := store.MemStore()
	ctrl := NewController()
	ctx := ledger.WithBlockTime(context.Background(), time.Now())

	fundedAccount(t, db, ctrl, "alice", coin.Whole(10, coin.GOLOS))
	fundedAccount(t, db, ctrl, "bob", coin.Zero(coin.GOLOS))

	h := transferHandler{ctrl: ctrl}
	op := &TransferOp{From: "alice", To: "bob", Amount: coin.Whole(4, coin.GOLOS)}
	if _, err := h.Deliver(ctx, db, op); err != nil {
		t.Fatalf("cannot transfer: %s", err)
	}

	bob, _ := ctrl.Get(db, "bob")
	if want := coin.Whole(4, coin.GOLOS); !bob.Balance.Equals(want) {
		t.Fatalf("want %s, got %s", want, bob.Balance)
	}

	op.Amount = coin.Whole(100, coin.GOLOS)
	if _, err := h.Deliver(ctx, db, op); !errors.ErrInsufficientFunds.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	op.Amount = coin.Whole(1, coin.GOLOS)
	op.To = "nobody"
	if _, err := h.Deliver(ctx, db, op); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOwnerUpdateRecordsHistoryAndRateLimits(t *testing.T) {
	db := store.MemStore()
	ctrl := NewController()
	now := time.Now().UTC()
	ctx := ledger.WithBlockTime(context.Background(), now)

	alice := fundedAccount(t, db, ctrl, "alice", coin.Whole(10, coin.GOLOS))
	original := alice.OwnerAuthority

	h := updateAccountHandler{ctrl: ctrl}
	next := keyAuth("alice-owner-2")
	op := &AccountUpdateOp{Account: "alice", Owner: &next}
	if _, err := h.Deliver(ctx, db, op); err != nil {
		t.Fatalf("cannot update owner: %s", err)
	}

	updated, _ := ctrl.Get(db, "alice")
	if !updated.OwnerAuthority.Equals(next) {
		t.Fatal("owner authority was not replaced")
	}
	if ok, err := ctrl.HasRecentAuthority(db, "alice", original, now); err != nil || !ok {
		t.Fatalf("previous owner authority not in history: ok=%v err=%v", ok, err)
	}

	// A second owner change within the rate limit window must fail, even
	// with a different authority.
	third := keyAuth("alice-owner-3")
	op = &AccountUpdateOp{Account: "alice", Owner: &third}
	later := ledger.WithBlockTime(context.Background(), now.Add(ownerUpdateInterval-time.Second))
	if _, err := h.Deliver(later, db, op); !ErrOwnerUpdateRateLimit.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	afterLimit := ledger.WithBlockTime(context.Background(), now.Add(ownerUpdateInterval))
	if _, err := h.Deliver(afterLimit, db, op); err != nil {
		t.Fatalf("cannot update owner after the rate limit window: %s", err)
	}
}

func TestOwnerHistoryPruning(t *testing.T) {
	db := store.MemStore()
	ctrl := NewController()
	now := time.Now().UTC()
	ctx := ledger.WithBlockTime(context.Background(), now)

	alice := fundedAccount(t, db, ctrl, "alice", coin.Zero(coin.GOLOS))
	original := alice.OwnerAuthority

	h := updateAccountHandler{ctrl: ctrl}
	next := keyAuth("alice-owner-2")
	if _, err := h.Deliver(ctx, db, &AccountUpdateOp{Account: "alice", Owner: &next}); err != nil {
		t.Fatalf("cannot update owner: %s", err)
	}

	// One tick before the window passes the entry is still provable.
	almost := now.Add(OwnerHistoryWindow - time.Second)
	if ok, _ := ctrl.HasRecentAuthority(db, "alice", original, almost); !ok {
		t.Fatal("authority must still be in the history window")
	}
	if ok, _ := ctrl.HasRecentAuthority(db, "alice", original, now.Add(OwnerHistoryWindow+time.Second)); ok {
		t.Fatal("authority must have aged out of the window")
	}

	// The scheduled prune task removes the entry from the store.
	ticker := cron.NewTicker()
	RegisterTasks(ticker, ctrl)
	sweep := ledger.WithBlockTime(context.Background(), now.Add(OwnerHistoryWindow+time.Second))
	if ids := ticker.Tick(sweep, db); len(ids) != 1 {
		t.Fatalf("want one executed task, got %d", len(ids))
	}
	var count int
	err := ctrl.history.PrefixScan(db, historyPrefix("alice"), func(key []byte, m orm.Model) (bool, error) {
		count++
		return false, nil
	})
	if err != nil {
		t.Fatalf("cannot scan history: %s", err)
	}
	if count != 0 {
		t.Fatalf("want empty history, got %d entries", count)
	}
}

func TestVotingPowerRegeneration(t *testing.T) {
	acc := NewAccount("alice")
	acc.VotingPower = 5000
	now := time.Now().UTC()
	acc.LastVoteTime = ledger.AsUnixTime(now)

	if got := acc.CurrentVotingPower(now); got != 5000 {
		t.Fatalf("want 5000, got %d", got)
	}
	// Half of the regeneration window restores half of the maximum.
	half := now.Add(votingPowerRegenWindow / 2)
	if got := acc.CurrentVotingPower(half); got != 10000 {
		t.Fatalf("want 10000, got %d", got)
	}
	quarter := now.Add(votingPowerRegenWindow / 4)
	if got := acc.CurrentVotingPower(quarter); got != 7500 {
		t.Fatalf("want 7500, got %d", got)
	}
	// Power never exceeds the maximum.
	if got := acc.CurrentVotingPower(now.Add(votingPowerRegenWindow * 2)); got != VotingPowerMax {
		t.Fatalf("want %d, got %d", VotingPowerMax, got)
	}
	// A long idle period must report full power, no matter how large the
	// elapsed duration grows.
	for _, idle := range []time.Duration{
		30 * 24 * time.Hour,
		365 * 24 * time.Hour,
		10 * 365 * 24 * time.Hour,
	} {
		if got := acc.CurrentVotingPower(now.Add(idle)); got != VotingPowerMax {
			t.Fatalf("idle %s: want %d, got %d", idle, VotingPowerMax, got)
		}
	}
}

func TestAvailableVesting(t *testing.T) {
	acc := NewAccount("alice")
	acc.Vesting = coin.Whole(100, coin.GESTS)
	acc.DelegatedVesting = coin.Whole(30, coin.GESTS)
	acc.ReceivedVesting = coin.Whole(50, coin.GESTS)
	acc.WithdrawingVesting = coin.Whole(20, coin.GESTS)

	effective, err := acc.EffectiveVesting()
	if err != nil {
		t.Fatal(err)
	}
	if want := coin.Whole(120, coin.GESTS); !effective.Equals(want) {
		t.Fatalf("want %s, got %s", want, effective)
	}
	available, err := acc.AvailableVesting()
	if err != nil {
		t.Fatal(err)
	}
	if want := coin.Whole(50, coin.GESTS); !available.Equals(want) {
		t.Fatalf("want %s, got %s", want, available)
	}
}
