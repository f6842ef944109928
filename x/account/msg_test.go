package account

import (
	"testing"

	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/ledgertest/assert"
)

func TestCreateAccountOpValidate(t *testing.T) {
	good := func() *CreateAccountOp {
		return &CreateAccountOp{
			Creator:        "alice",
			NewAccountName: "bob",
			Fee:            coin.Whole(1, coin.GOLOS),
			Owner:          keyAuth("bob-owner"),
			Active:         keyAuth("bob-active"),
			Posting:        keyAuth("bob-posting"),
		}
	}
	assert.Nil(t, good().Validate())

	op := good()
	op.Creator = "Alice!"
	assert.FieldError(t, op.Validate(), "Creator", errors.ErrInput)
	assert.FieldError(t, op.Validate(), "NewAccountName", nil)

	op = good()
	op.Fee = coin.NewCoin(-1, coin.GOLOS)
	assert.FieldError(t, op.Validate(), "Fee", errors.ErrAmount)

	op = good()
	op.Fee = coin.Whole(1, coin.GESTS)
	assert.FieldError(t, op.Validate(), "Fee", errors.ErrCurrency)

	op = good()
	op.Owner = authority.Authority{}
	assert.FieldError(t, op.Validate(), "Owner", errors.ErrInput)
}

func TestAccountUpdateOpValidate(t *testing.T) {
	auth := keyAuth("alice-active")
	op := &AccountUpdateOp{Account: "alice", Active: &auth}
	assert.Nil(t, op.Validate())

	assert.IsErr(t, errors.ErrEmpty, (&AccountUpdateOp{Account: "alice"}).Validate())

	bad := authority.Authority{WeightThreshold: 1}
	op = &AccountUpdateOp{Account: "alice", Posting: &bad}
	assert.FieldError(t, op.Validate(), "Posting", errors.ErrEmpty)
}
