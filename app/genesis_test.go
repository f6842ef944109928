package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/ledgertest"
)

func TestLoadGenesisFile(t *testing.T) {
	const doc = `{
		"chain_id": "testnet",
		"accounts": [
			{
				"name": "alice",
				"public_key": "20d7f372e8b57938cb0407fd2f4d10047d9e35bb0fc826f06db816bac1954d3f",
				"balance": {"amount": 10000, "ticker": "GOLOS"},
				"vesting": {"amount": 5000, "ticker": "GESTS"},
				"recovery_account": "bob"
			},
			{"name": "bob", "public_key": "3a164b040f6e38cb0407fd2f4d10047d9e35bb0fc826f06db816bac1954d3f11"}
		]
	}`
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	gen, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("cannot load: %s", err)
	}
	if gen.ChainID != "testnet" {
		t.Fatalf("unexpected chain id %q", gen.ChainID)
	}
	if len(gen.Accounts) != 2 {
		t.Fatalf("want 2 accounts, got %d", len(gen.Accounts))
	}

	l := NewLedger(Options{})
	if err := l.InitGenesis(gen); err != nil {
		t.Fatalf("cannot initialize: %s", err)
	}
	if l.ChainID() != "testnet" {
		t.Fatalf("unexpected chain id %q", l.ChainID())
	}

	alice, err := l.Accounts().Get(l.Store(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !alice.Balance.Equals(coin.NewCoin(10000, coin.GOLOS)) {
		t.Fatalf("unexpected balance: %s", alice.Balance)
	}
	if !alice.Vesting.Equals(coin.NewCoin(5000, coin.GESTS)) {
		t.Fatalf("unexpected vesting: %s", alice.Vesting)
	}
	if alice.RecoveryAccount != "bob" {
		t.Fatalf("unexpected recovery account %q", alice.RecoveryAccount)
	}
	if alice.OwnerAuthority.WeightThreshold != 1 || len(alice.OwnerAuthority.KeyAuths) != 1 {
		t.Fatalf("unexpected owner authority: %+v", alice.OwnerAuthority)
	}
}

func TestInitGenesisRejects(t *testing.T) {
	cases := map[string]struct {
		gen     Genesis
		wantErr *errors.Error
	}{
		"missing chain id": {
			gen:     Genesis{Accounts: []GenesisAccount{{Name: "alice"}}},
			wantErr: errors.ErrEmpty,
		},
		"invalid account name": {
			gen:     Genesis{ChainID: "testnet", Accounts: []GenesisAccount{{Name: "Not A Name"}}},
			wantErr: errors.ErrInput,
		},
		"duplicate account": {
			gen: Genesis{ChainID: "testnet", Accounts: []GenesisAccount{
				{Name: "alice", PublicKey: ledgertest.Key("alice").PublicKey()},
				{Name: "alice", PublicKey: ledgertest.Key("alice").PublicKey()},
			}},
			wantErr: errors.ErrDuplicate,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			l := NewLedger(Options{})
			if err := l.InitGenesis(&tc.gen); !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGenesisRoundTrip(t *testing.T) {
	ten := coin.Whole(10, coin.GOLOS)
	gen := Genesis{
		ChainID: "testnet",
		Accounts: []GenesisAccount{
			{Name: "alice", PublicKey: ledgertest.Key("alice").PublicKey(), Balance: &ten},
		},
	}
	raw, err := json.Marshal(gen)
	if err != nil {
		t.Fatal(err)
	}
	var loaded Genesis
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Accounts[0].PublicKey.String() != gen.Accounts[0].PublicKey.String() {
		t.Fatal("public key did not survive the round trip")
	}
}
