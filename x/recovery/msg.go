package recovery

import (
	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
)

func init() {
	operation.Register("request_account_recovery", func() ledger.Operation { return &RequestOp{} })
	operation.Register("recover_account", func() ledger.Operation { return &RecoverOp{} })
	operation.Register("change_recovery_account", func() ledger.Operation { return &ChangeRecoveryOp{} })
}

// RequestOp files a recovery request on behalf of a compromised account.
// Only the account's designated recovery partner may do so.
type RequestOp struct {
	RecoveryAccount   string              `msgpack:"recovery_account"`
	AccountToRecover  string              `msgpack:"account_to_recover"`
	NewOwnerAuthority authority.Authority `msgpack:"new_owner_authority"`
}

var _ ledger.Operation = (*RequestOp)(nil)

func (RequestOp) Path() string { return "request_account_recovery" }

func (op *RequestOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.RecoveryAccount); err != nil {
		errs = errors.Append(errs, errors.Field("RecoveryAccount", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(op.AccountToRecover); err != nil {
		errs = errors.Append(errs, errors.Field("AccountToRecover", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("NewOwnerAuthority", op.NewOwnerAuthority.Validate(), "invalid authority"))
	return errs
}

func (op *RequestOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.RecoveryAccount)
	return req
}

// RecoverOp replaces the owner authority of a compromised account. The
// transaction must carry signatures satisfying both the requested new
// authority and a recent historical owner authority.
type RecoverOp struct {
	AccountToRecover     string              `msgpack:"account_to_recover"`
	NewOwnerAuthority    authority.Authority `msgpack:"new_owner_authority"`
	RecentOwnerAuthority authority.Authority `msgpack:"recent_owner_authority"`
}

var _ ledger.Operation = (*RecoverOp)(nil)

func (RecoverOp) Path() string { return "recover_account" }

func (op *RecoverOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.AccountToRecover); err != nil {
		errs = errors.Append(errs, errors.Field("AccountToRecover", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("NewOwnerAuthority", op.NewOwnerAuthority.Validate(), "invalid authority"))
	errs = errors.Append(errs, errors.Field("RecentOwnerAuthority", op.RecentOwnerAuthority.Validate(), "invalid authority"))
	if op.NewOwnerAuthority.Equals(op.RecentOwnerAuthority) {
		errs = errors.Append(errs, errors.Wrap(errors.ErrInput, "new and recent authorities must differ"))
	}
	return errs
}

func (op *RecoverOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddOther(op.NewOwnerAuthority, op.RecentOwnerAuthority)
	return req
}

// ChangeRecoveryOp schedules a change of the recovery partner. The change
// takes effect only after a long delay.
type ChangeRecoveryOp struct {
	AccountToRecover   string `msgpack:"account_to_recover"`
	NewRecoveryAccount string `msgpack:"new_recovery_account"`
}

var _ ledger.Operation = (*ChangeRecoveryOp)(nil)

func (ChangeRecoveryOp) Path() string { return "change_recovery_account" }

func (op *ChangeRecoveryOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.AccountToRecover); err != nil {
		errs = errors.Append(errs, errors.Field("AccountToRecover", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(op.NewRecoveryAccount); err != nil {
		errs = errors.Append(errs, errors.Field("NewRecoveryAccount", err, "invalid account name"))
	}
	return errs
}

func (op *ChangeRecoveryOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddOwner(op.AccountToRecover)
	return req
}
