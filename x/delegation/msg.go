package delegation

import (
	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
)

func init() {
	operation.Register("delegate_vesting_shares", func() ledger.Operation { return &DelegateOp{} })
}

// DelegateOp sets the delegation from the delegator to the delegatee to
// the given absolute amount. Zero removes the delegation.
type DelegateOp struct {
	Delegator     string    `msgpack:"delegator"`
	Delegatee     string    `msgpack:"delegatee"`
	VestingShares coin.Coin `msgpack:"vesting_shares"`
}

var _ ledger.Operation = (*DelegateOp)(nil)

func (DelegateOp) Path() string { return "delegate_vesting_shares" }

func (op *DelegateOp) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(op.Delegator); err != nil {
		errs = errors.Append(errs, errors.Field("Delegator", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(op.Delegatee); err != nil {
		errs = errors.Append(errs, errors.Field("Delegatee", err, "invalid account name"))
	}
	if op.Delegator == op.Delegatee {
		errs = errors.Append(errs, errors.Wrap(errors.ErrInput, "cannot delegate to self"))
	}
	errs = errors.Append(errs, errors.Field("VestingShares", op.VestingShares.Validate(), "invalid amount"))
	if !op.VestingShares.IsVesting() {
		errs = errors.Append(errs, errors.Field("VestingShares", errors.ErrCurrency, "must be vesting shares"))
	}
	if !op.VestingShares.IsNonNegative() {
		errs = errors.Append(errs, errors.Field("VestingShares", errors.ErrAmount, "must not be negative"))
	}
	return errs
}

func (op *DelegateOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Delegator)
	return req
}
