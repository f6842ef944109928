package account

import (
	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
)

func init() {
	operation.Register("create_account", func() ledger.Operation { return &CreateAccountOp{} })
	operation.Register("account_update", func() ledger.Operation { return &AccountUpdateOp{} })
	operation.Register("transfer", func() ledger.Operation { return &TransferOp{} })
}

// CreateAccountOp registers a new account. The creator pays the fee which
// is credited to the new account as its initial balance.
type CreateAccountOp struct {
	Creator        string              `msgpack:"creator"`
	NewAccountName string              `msgpack:"new_account_name"`
	Fee            coin.Coin           `msgpack:"fee"`
	Owner          authority.Authority `msgpack:"owner"`
	Active         authority.Authority `msgpack:"active"`
	Posting        authority.Authority `msgpack:"posting"`
	JSONMetadata   string              `msgpack:"json_metadata"`
}

var _ ledger.Operation = (*CreateAccountOp)(nil)

func (CreateAccountOp) Path() string { return "create_account" }

func (op *CreateAccountOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.Creator); err != nil {
		errs = errors.Append(errs, errors.Field("Creator", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(op.NewAccountName); err != nil {
		errs = errors.Append(errs, errors.Field("NewAccountName", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("Fee", op.Fee.Validate(), "invalid fee"))
	if !op.Fee.IsNonNegative() {
		errs = errors.Append(errs, errors.Field("Fee", errors.ErrAmount, "must not be negative"))
	}
	if op.Fee.IsVesting() {
		errs = errors.Append(errs, errors.Field("Fee", errors.ErrCurrency, "must be a liquid asset"))
	}
	errs = errors.Append(errs, errors.Field("Owner", op.Owner.Validate(), "invalid authority"))
	errs = errors.Append(errs, errors.Field("Active", op.Active.Validate(), "invalid authority"))
	errs = errors.Append(errs, errors.Field("Posting", op.Posting.Validate(), "invalid authority"))
	return errs
}

func (op *CreateAccountOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Creator)
	return req
}

// AccountUpdateOp changes the authorities or the metadata of an account.
// Changing the owner authority requires owner level signatures and is rate
// limited; everything else requires active level.
type AccountUpdateOp struct {
	Account      string               `msgpack:"account"`
	Owner        *authority.Authority `msgpack:"owner"`
	Active       *authority.Authority `msgpack:"active"`
	Posting      *authority.Authority `msgpack:"posting"`
	JSONMetadata *string              `msgpack:"json_metadata"`
}

var _ ledger.Operation = (*AccountUpdateOp)(nil)

func (AccountUpdateOp) Path() string { return "account_update" }

func (op *AccountUpdateOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.Account); err != nil {
		errs = errors.Append(errs, errors.Field("Account", err, "invalid account name"))
	}
	if op.Owner == nil && op.Active == nil && op.Posting == nil && op.JSONMetadata == nil {
		errs = errors.Append(errs, errors.Wrap(errors.ErrEmpty, "nothing to update"))
	}
	if op.Owner != nil {
		errs = errors.Append(errs, errors.Field("Owner", op.Owner.Validate(), "invalid authority"))
	}
	if op.Active != nil {
		errs = errors.Append(errs, errors.Field("Active", op.Active.Validate(), "invalid authority"))
	}
	if op.Posting != nil {
		errs = errors.Append(errs, errors.Field("Posting", op.Posting.Validate(), "invalid authority"))
	}
	return errs
}

func (op *AccountUpdateOp) RequiredAuths() authority.Required {
	var req authority.Required
	if op.Owner != nil {
		req.AddOwner(op.Account)
	} else {
		req.AddActive(op.Account)
	}
	return req
}

// TransferOp moves a liquid amount between two accounts.
type TransferOp struct {
	From   string    `msgpack:"from"`
	To     string    `msgpack:"to"`
	Amount coin.Coin `msgpack:"amount"`
	Memo   string    `msgpack:"memo"`
}

var _ ledger.Operation = (*TransferOp)(nil)

func (TransferOp) Path() string { return "transfer" }

func (op *TransferOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.From); err != nil {
		errs = errors.Append(errs, errors.Field("From", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(op.To); err != nil {
		errs = errors.Append(errs, errors.Field("To", err, "invalid account name"))
	}
	if op.From == op.To {
		errs = errors.Append(errs, errors.Wrap(errors.ErrInput, "cannot transfer to self"))
	}
	errs = errors.Append(errs, errors.Field("Amount", op.Amount.Validate(), "invalid amount"))
	if !op.Amount.IsPositive() {
		errs = errors.Append(errs, errors.Field("Amount", errors.ErrAmount, "must be positive"))
	}
	if op.Amount.IsVesting() {
		errs = errors.Append(errs, errors.Field("Amount", errors.ErrCurrency, "must be a liquid asset"))
	}
	return errs
}

func (op *TransferOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.From)
	return req
}
