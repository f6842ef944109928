package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/operation"
	"github.com/golos-one/ledger/store"
	"github.com/golos-one/ledger/x/account"
)

// Key returns a deterministic private key derived from the seed string.
// The same seed always produces the same key.
func Key(seed string) crypto.PrivateKey {
	padded := append([]byte(seed), "................................"...)
	return crypto.PrivateKeyFromSeed(padded[:32])
}

// KeyAuthority returns a single key authority with the key derived from
// the seed string.
func KeyAuthority(seed string) authority.Authority {
	return authority.NewKeyAuthority(Key(seed).PublicKey())
}

// Account returns a funded account with all three authority levels bound
// to the key derived from the account name.
func Account(name string, balance coin.Coin) *account.Account {
	acc := account.NewAccount(name)
	auth := KeyAuthority(name)
	acc.OwnerAuthority = auth
	acc.ActiveAuthority = auth
	acc.PostingAuthority = auth
	acc.Balance = balance
	return acc
}

// CreateAccounts stores a funded account for every given name.
func CreateAccounts(t testing.TB, db store.KVStore, ctrl *account.Controller, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := ctrl.Create(db, Account(name, coin.Whole(100, coin.GOLOS))); err != nil {
			t.Fatalf("cannot create account %q: %s", name, err)
		}
	}
}

// Context returns an operation context with given block time attached.
func Context(blockTime time.Time) ledger.Context {
	return ledger.WithBlockTime(context.Background(), blockTime)
}

// SignedTx builds a transaction from given operations and signs it with
// the keys derived from given seeds.
func SignedTx(t testing.TB, chainID string, expiration time.Time, seeds []string, ops ...ledger.Operation) *operation.Tx {
	t.Helper()
	tx, err := operation.NewTx(ledger.AsUnixTime(expiration), ops...)
	if err != nil {
		t.Fatalf("cannot build the transaction: %s", err)
	}
	for _, seed := range seeds {
		if err := tx.Sign(chainID, Key(seed)); err != nil {
			t.Fatalf("cannot sign the transaction: %s", err)
		}
	}
	return tx
}
