package recovery

import (
	"time"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
)

const (
	// requestTTL is how long a recovery request stays open.
	requestTTL = 24 * time.Hour

	// changeDelay is how long a recovery partner change stays pending
	// before it takes effect.
	changeDelay = 30 * 24 * time.Hour

	// recoveryInterval limits how often an account can be recovered.
	recoveryInterval = time.Hour
)

// Request is a live recovery request, at most one per account. A new
// request for the same account replaces the old one.
type Request struct {
	Account           string              `msgpack:"account"`
	NewOwnerAuthority authority.Authority `msgpack:"new_owner_authority"`
	Expires           ledger.UnixTime     `msgpack:"expires"`
	// TaskID is the scheduler entry that will purge this request, kept so
	// that replacing or consuming the request cancels the task.
	TaskID []byte `msgpack:"task_id"`
}

var _ orm.Model = (*Request)(nil)

func (r *Request) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(r.Account); err != nil {
		errs = errors.Append(errs, errors.Field("Account", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("NewOwnerAuthority", r.NewOwnerAuthority.Validate(), "invalid authority"))
	if r.Expires == 0 {
		errs = errors.Append(errs, errors.Field("Expires", errors.ErrEmpty, "required"))
	}
	return errs
}

// ChangeRequest is a pending change of the recovery partner, at most one
// per account.
type ChangeRequest struct {
	Account            string          `msgpack:"account"`
	NewRecoveryAccount string          `msgpack:"new_recovery_account"`
	EffectiveAt        ledger.UnixTime `msgpack:"effective_at"`
	TaskID             []byte          `msgpack:"task_id"`
}

var _ orm.Model = (*ChangeRequest)(nil)

func (r *ChangeRequest) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(r.Account); err != nil {
		errs = errors.Append(errs, errors.Field("Account", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(r.NewRecoveryAccount); err != nil {
		errs = errors.Append(errs, errors.Field("NewRecoveryAccount", err, "invalid account name"))
	}
	if r.EffectiveAt == 0 {
		errs = errors.Append(errs, errors.Field("EffectiveAt", errors.ErrEmpty, "required"))
	}
	return errs
}

// NewRequestBucket returns a bucket for storing recovery requests, keyed
// by the account to recover.
func NewRequestBucket() orm.ModelBucket {
	return orm.NewModelBucket("recreq", &Request{})
}

// NewChangeRequestBucket returns a bucket for storing pending recovery
// partner changes, keyed by the account.
func NewChangeRequestBucket() orm.ModelBucket {
	return orm.NewModelBucket("recchg", &ChangeRequest{})
}
