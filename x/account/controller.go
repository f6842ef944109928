package account

import (
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
)

// Controller is the balance and authority access primitive every other
// extension builds on.
type Controller struct {
	accounts orm.ModelBucket
	history  orm.ModelBucket
	histSeq  orm.Sequence
}

func NewController() *Controller {
	return &Controller{
		accounts: NewAccountBucket(),
		history:  NewOwnerHistoryBucket(),
		histSeq:  orm.NewSequence("ownhist", "id"),
	}
}

// Get loads an account by name. Returns ErrNotFound for unknown names.
func (c *Controller) Get(db store.ReadOnlyKVStore, name string) (*Account, error) {
	var acc Account
	if err := c.accounts.One(db, []byte(name), &acc); err != nil {
		return nil, errors.Wrapf(err, "account %q", name)
	}
	return &acc, nil
}

// Has returns true when an account with given name exists.
func (c *Controller) Has(db store.ReadOnlyKVStore, name string) (bool, error) {
	return c.accounts.Has(db, []byte(name))
}

// Save persists given account under its name.
func (c *Controller) Save(db store.KVStore, acc *Account) error {
	return c.accounts.Put(db, []byte(acc.Name), acc)
}

// Create persists a new account. Returns ErrDuplicate if the name is
// already taken.
func (c *Controller) Create(db store.KVStore, acc *Account) error {
	switch has, err := c.accounts.Has(db, []byte(acc.Name)); {
	case err != nil:
		return err
	case has:
		return errors.Wrapf(errors.ErrDuplicate, "account %q", acc.Name)
	}
	return c.Save(db, acc)
}

// Walk calls fn for every stored account, in name order. Iteration stops
// on the first error.
func (c *Controller) Walk(db store.ReadOnlyKVStore, fn func(acc *Account) error) error {
	return c.accounts.PrefixScan(db, nil, func(key []byte, m orm.Model) (bool, error) {
		acc, ok := m.(*Account)
		if !ok {
			return true, errors.Wrapf(errors.ErrModel, "%T", m)
		}
		if err := fn(acc); err != nil {
			return true, err
		}
		return false, nil
	})
}

// Credit adds given amount to the account balance of the amount's asset
// kind.
func (c *Controller) Credit(db store.KVStore, name string, amount coin.Coin) error {
	acc, err := c.Get(db, name)
	if err != nil {
		return err
	}
	balance := c.balanceOf(acc, amount.Ticker)
	sum, err := balance.Add(amount)
	if err != nil {
		return err
	}
	c.setBalance(acc, sum)
	return c.Save(db, acc)
}

// Debit removes given amount from the account balance of the amount's
// asset kind. Returns ErrInsufficientFunds when the balance is too low.
func (c *Controller) Debit(db store.KVStore, name string, amount coin.Coin) error {
	acc, err := c.Get(db, name)
	if err != nil {
		return err
	}
	balance := c.balanceOf(acc, amount.Ticker)
	if !balance.IsGTE(amount) {
		return errors.Wrapf(errors.ErrInsufficientFunds,
			"%q has %s, needs %s", name, balance, amount)
	}
	rest, err := balance.Subtract(amount)
	if err != nil {
		return err
	}
	c.setBalance(acc, rest)
	return c.Save(db, acc)
}

// MoveCoins debits the source and credits the destination account with
// given amount, failing without any state change when the source balance
// is too low.
func (c *Controller) MoveCoins(db store.KVStore, src, dest string, amount coin.Coin) error {
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "must be positive, got %s", amount)
	}
	if err := c.Debit(db, src, amount); err != nil {
		return err
	}
	return c.Credit(db, dest, amount)
}

func (c *Controller) balanceOf(acc *Account, ticker string) coin.Coin {
	switch ticker {
	case coin.GBG:
		return acc.GbgBalance
	case coin.GESTS:
		return acc.Vesting
	default:
		return acc.Balance
	}
}

func (c *Controller) setBalance(acc *Account, balance coin.Coin) {
	switch balance.Ticker {
	case coin.GBG:
		acc.GbgBalance = balance
	case coin.GESTS:
		acc.Vesting = balance
	default:
		acc.Balance = balance
	}
}

// AuthorityOf implements authority.Lookup. A nil authority without an
// error means the account does not exist.
func (c *Controller) AuthorityOf(db store.ReadOnlyKVStore, name string, level authority.Level) (*authority.Authority, error) {
	acc, err := c.Get(db, name)
	switch {
	case errors.ErrNotFound.Is(err):
		return nil, nil
	case err != nil:
		return nil, err
	}
	auth := acc.AuthorityAt(level)
	return &auth, nil
}

var _ authority.Lookup = (*Controller)(nil)
