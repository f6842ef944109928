package app

import (
	"encoding/json"
	"os"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/x/account"
)

// Genesis declares the initial state of a chain.
type Genesis struct {
	ChainID  string           `json:"chain_id"`
	Accounts []GenesisAccount `json:"accounts"`
}

// GenesisAccount declares a single initial account. PublicKey is a
// shortcut that installs a single key authority on all three levels;
// explicit authorities take precedence over it.
type GenesisAccount struct {
	Name            string               `json:"name"`
	Balance         *coin.Coin           `json:"balance,omitempty"`
	GbgBalance      *coin.Coin           `json:"gbg_balance,omitempty"`
	Vesting         *coin.Coin           `json:"vesting,omitempty"`
	PublicKey       crypto.PublicKey     `json:"public_key,omitempty"`
	Owner           *authority.Authority `json:"owner,omitempty"`
	Active          *authority.Authority `json:"active,omitempty"`
	Posting         *authority.Authority `json:"posting,omitempty"`
	RecoveryAccount string               `json:"recovery_account,omitempty"`
}

// LoadGenesis reads and parses a genesis declaration from a JSON file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read the genesis file")
	}
	var gen Genesis
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot parse the genesis file: %v", err)
	}
	return &gen, nil
}

// InitGenesis writes the initial accounts into the state store. It must
// run on a fresh store, before the first block.
func (l *Ledger) InitGenesis(gen *Genesis) error {
	if gen.ChainID == "" {
		return errors.Wrap(errors.ErrEmpty, "chain id is required")
	}
	if l.chainID == "" {
		l.chainID = gen.ChainID
	} else if l.chainID != gen.ChainID {
		return errors.Wrapf(errors.ErrInput, "genesis declares chain %q", gen.ChainID)
	}

	for _, ga := range gen.Accounts {
		if err := ledger.ValidateAccountName(ga.Name); err != nil {
			return errors.Wrapf(err, "account %q", ga.Name)
		}
		acc := account.NewAccount(ga.Name)
		if ga.Balance != nil {
			acc.Balance = *ga.Balance
		}
		if ga.GbgBalance != nil {
			acc.GbgBalance = *ga.GbgBalance
		}
		if ga.Vesting != nil {
			acc.Vesting = *ga.Vesting
		}
		if len(ga.PublicKey) != 0 {
			auth := authority.NewKeyAuthority(ga.PublicKey)
			acc.OwnerAuthority = auth
			acc.ActiveAuthority = auth
			acc.PostingAuthority = auth
		}
		if ga.Owner != nil {
			acc.OwnerAuthority = *ga.Owner
		}
		if ga.Active != nil {
			acc.ActiveAuthority = *ga.Active
		}
		if ga.Posting != nil {
			acc.PostingAuthority = *ga.Posting
		}
		acc.RecoveryAccount = ga.RecoveryAccount
		if err := l.accounts.Create(l.db, acc); err != nil {
			return errors.Wrapf(err, "account %q", ga.Name)
		}
	}
	l.logger.Info().
		Str("chain", gen.ChainID).
		Int("accounts", len(gen.Accounts)).
		Msg("genesis state initialized")
	return nil
}
