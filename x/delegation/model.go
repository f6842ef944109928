package delegation

import (
	"time"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
)

const (
	// returnCooldown is how long the delegator waits for reduced
	// delegation shares to come back.
	returnCooldown = 5 * 24 * time.Hour
)

// MinDelta is the smallest allowed change of a delegation, except for a
// reduction to exactly zero.
var MinDelta = coin.Whole(10, coin.GESTS)

// VestingDelegation is an active loan of voting power from the delegator
// to the delegatee, keyed by the pair.
type VestingDelegation struct {
	Delegator     string    `msgpack:"delegator"`
	Delegatee     string    `msgpack:"delegatee"`
	VestingShares coin.Coin `msgpack:"vesting_shares"`
	// MinDelegationTime is the earliest time the delegation may be
	// reduced or removed.
	MinDelegationTime ledger.UnixTime `msgpack:"min_delegation_time"`
}

var _ orm.Model = (*VestingDelegation)(nil)

func (d *VestingDelegation) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(d.Delegator); err != nil {
		errs = errors.Append(errs, errors.Field("Delegator", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(d.Delegatee); err != nil {
		errs = errors.Append(errs, errors.Field("Delegatee", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("VestingShares", d.VestingShares.Validate(), "invalid amount"))
	if !d.VestingShares.IsVesting() {
		errs = errors.Append(errs, errors.Field("VestingShares", errors.ErrCurrency, "must be vesting shares"))
	}
	if !d.VestingShares.IsPositive() {
		errs = errors.Append(errs, errors.Field("VestingShares", errors.ErrAmount, "must be positive"))
	}
	return errs
}

// ReturnEntry is a queued return of reduced delegation shares to the
// delegator, processed by the scheduler once the cooldown elapses.
type ReturnEntry struct {
	Delegator     string          `msgpack:"delegator"`
	VestingShares coin.Coin       `msgpack:"vesting_shares"`
	Expiration    ledger.UnixTime `msgpack:"expiration"`
}

var _ orm.Model = (*ReturnEntry)(nil)

func (e *ReturnEntry) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(e.Delegator); err != nil {
		errs = errors.Append(errs, errors.Field("Delegator", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("VestingShares", e.VestingShares.Validate(), "invalid amount"))
	if !e.VestingShares.IsVesting() || !e.VestingShares.IsPositive() {
		errs = errors.Append(errs, errors.Field("VestingShares", errors.ErrAmount, "must be positive vesting shares"))
	}
	if e.Expiration == 0 {
		errs = errors.Append(errs, errors.Field("Expiration", errors.ErrEmpty, "required"))
	}
	return errs
}

// delegationKey builds the primary key of a delegation. Account names
// cannot contain a zero byte, so the separator keeps the pair
// unambiguous.
func delegationKey(delegator, delegatee string) []byte {
	key := make([]byte, 0, len(delegator)+1+len(delegatee))
	key = append(key, delegator...)
	key = append(key, 0)
	return append(key, delegatee...)
}

// NewDelegationBucket returns a bucket for storing delegations, keyed by
// the (delegator, delegatee) pair.
func NewDelegationBucket() orm.ModelBucket {
	return orm.NewModelBucket("deleg", &VestingDelegation{})
}

// NewReturnBucket returns a bucket for storing queued share returns,
// keyed by an insertion sequence.
func NewReturnBucket() orm.ModelBucket {
	return orm.NewModelBucket("delegexp", &ReturnEntry{})
}
