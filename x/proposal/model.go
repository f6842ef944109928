package proposal

import (
	"time"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
	"github.com/golos-one/ledger/store"
)

const (
	// maxLifetime bounds how far in the future a proposal may expire.
	maxLifetime = 28 * 24 * time.Hour

	// maxTitleLen bounds the proposal title, which is part of the key.
	maxTitleLen = 256
)

// Proposal is a pending batch of operations waiting for approvals, keyed
// by (author, title).
type Proposal struct {
	Author string `msgpack:"author"`
	Title  string `msgpack:"title"`
	Memo   string `msgpack:"memo"`

	// Operations are the wrapped inner operations as tagged envelopes, in
	// execution order.
	Operations [][]byte `msgpack:"operations"`

	ExpirationTime ledger.UnixTime `msgpack:"expiration_time"`
	// ReviewPeriodTime, when set, is the point in time the proposal
	// executes if approved. After it the approval set is removal only.
	ReviewPeriodTime ledger.UnixTime `msgpack:"review_period_time"`

	// Required approval sets, derived from the inner operations.
	RequiredOwner   []string `msgpack:"required_owner"`
	RequiredActive  []string `msgpack:"required_active"`
	RequiredPosting []string `msgpack:"required_posting"`

	// Collected approvals.
	AvailableOwner   []string           `msgpack:"available_owner"`
	AvailableActive  []string           `msgpack:"available_active"`
	AvailablePosting []string           `msgpack:"available_posting"`
	AvailableKeys    []crypto.PublicKey `msgpack:"available_keys"`

	// Scheduler entries owned by this proposal, cancelled when the
	// proposal goes away early.
	ExpireTaskID []byte `msgpack:"expire_task_id"`
	ReviewTaskID []byte `msgpack:"review_task_id"`
}

var _ orm.Model = (*Proposal)(nil)

func (p *Proposal) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(p.Author); err != nil {
		errs = errors.Append(errs, errors.Field("Author", err, "invalid account name"))
	}
	if p.Title == "" || len(p.Title) > maxTitleLen {
		errs = errors.Append(errs, errors.Field("Title", errors.ErrInput, "must be 1 to %d characters", maxTitleLen))
	}
	if len(p.Operations) == 0 {
		errs = errors.Append(errs, errors.Field("Operations", errors.ErrEmpty, "required"))
	}
	if p.ExpirationTime == 0 {
		errs = errors.Append(errs, errors.Field("ExpirationTime", errors.ErrEmpty, "required"))
	}
	if p.ReviewPeriodTime != 0 && p.ReviewPeriodTime >= p.ExpirationTime {
		errs = errors.Append(errs, errors.Field("ReviewPeriodTime", errors.ErrInput, "must be before the expiration"))
	}
	if len(p.RequiredOwner)+len(p.RequiredActive)+len(p.RequiredPosting) == 0 {
		errs = errors.Append(errs, errors.Wrap(errors.ErrEmpty, "no required approvals"))
	}
	return errs
}

// Approved returns true when every required account either approved
// directly or has its authority threshold met by the collected key
// approvals.
func (p *Proposal) Approved(db store.ReadOnlyKVStore, lookup authority.Lookup) (bool, error) {
	levels := []struct {
		level     authority.Level
		required  []string
		available []string
	}{
		{authority.Owner, p.RequiredOwner, p.AvailableOwner},
		{authority.Active, p.RequiredActive, p.AvailableActive},
		{authority.Posting, p.RequiredPosting, p.AvailablePosting},
	}
	for _, l := range levels {
		for _, name := range l.required {
			if contains(l.available, name) {
				continue
			}
			auth, err := lookup.AuthorityOf(db, name, l.level)
			if err != nil {
				return false, err
			}
			if auth == nil {
				return false, nil
			}
			var weight uint32
			for _, key := range p.AvailableKeys {
				weight += auth.KeyWeightOf(key)
			}
			if weight < auth.WeightThreshold {
				return false, nil
			}
		}
	}
	return true, nil
}

// Stranded returns true when no approval of any kind is collected. A
// proposal stripped bare during its review phase can never complete and
// is removed by the scheduler.
func (p *Proposal) Stranded() bool {
	return len(p.AvailableOwner) == 0 &&
		len(p.AvailableActive) == 0 &&
		len(p.AvailablePosting) == 0 &&
		len(p.AvailableKeys) == 0
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

func containsKey(set []crypto.PublicKey, key crypto.PublicKey) bool {
	for _, k := range set {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

func remove(set []string, name string) []string {
	out := set[:0]
	for _, s := range set {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

func removeKey(set []crypto.PublicKey, key crypto.PublicKey) []crypto.PublicKey {
	out := set[:0]
	for _, k := range set {
		if !k.Equals(key) {
			out = append(out, k)
		}
	}
	return out
}

// proposalKey builds the primary key of a proposal. Account names cannot
// contain a zero byte, so the separator keeps the (author, title) pair
// unambiguous.
func proposalKey(author, title string) []byte {
	key := make([]byte, 0, len(author)+1+len(title))
	key = append(key, author...)
	key = append(key, 0)
	return append(key, title...)
}

// NewProposalBucket returns a bucket for storing proposals, keyed by the
// (author, title) pair.
func NewProposalBucket() orm.ModelBucket {
	return orm.NewModelBucket("prop", &Proposal{})
}
