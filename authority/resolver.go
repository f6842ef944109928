package authority

import (
	"sort"

	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/store"
)

// MaxRecursionDepth bounds resolution of account authorities referencing
// other accounts' authorities. The bound makes cyclic authority graphs a
// normal validation failure instead of an infinite loop.
const MaxRecursionDepth = 2

// Lookup provides account authorities per level. Implemented by the
// account store.
type Lookup interface {
	// AuthorityOf returns the authority of given account at given level.
	// A nil authority (without an error) means the account does not exist;
	// such references contribute no weight.
	AuthorityOf(db store.ReadOnlyKVStore, account string, level Level) (*Authority, error)
}

// Required declares the authorities a transaction must satisfy: account
// names per level, collected from all operations, plus optional raw
// authorities that are not bound to any account (used by account
// recovery).
type Required struct {
	Posting []string
	Active  []string
	Owner   []string
	Other   []Authority
}

// AddPosting records a posting level requirement for given account.
func (r *Required) AddPosting(accounts ...string) { r.Posting = merge(r.Posting, accounts) }

// AddActive records an active level requirement for given account.
func (r *Required) AddActive(accounts ...string) { r.Active = merge(r.Active, accounts) }

// AddOwner records an owner level requirement for given account.
func (r *Required) AddOwner(accounts ...string) { r.Owner = merge(r.Owner, accounts) }

// AddOther records a raw authority requirement.
func (r *Required) AddOther(auths ...Authority) { r.Other = append(r.Other, auths...) }

// Merge extends this requirement set with all entries of the other one.
func (r *Required) Merge(o Required) {
	r.AddPosting(o.Posting...)
	r.AddActive(o.Active...)
	r.AddOwner(o.Owner...)
	r.AddOther(o.Other...)
}

// IsEmpty returns true when nothing is required.
func (r Required) IsEmpty() bool {
	return len(r.Posting) == 0 && len(r.Active) == 0 && len(r.Owner) == 0 && len(r.Other) == 0
}

func merge(existing []string, add []string) []string {
	for _, a := range add {
		found := false
		for _, e := range existing {
			if e == a {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, a)
		}
	}
	sort.Strings(existing)
	return existing
}

// Verify checks that the offered signer keys satisfy all required
// authorities. It is a pure validation: no state is modified.
//
// Posting is the weakest level: a posting requirement is satisfied by the
// account's posting, active or owner authority; an active requirement by
// active or owner; an owner requirement only by the owner authority
// itself. A transaction that requires posting together with any stronger
// level is rejected before any signature is inspected.
//
// Every offered key must be relevant: a key that matches no required
// authority after resolution fails the verification.
func Verify(db store.ReadOnlyKVStore, lookup Lookup, required Required, signedBy []crypto.PublicKey) error {
	if len(required.Posting) > 0 &&
		(len(required.Active) > 0 || len(required.Owner) > 0 || len(required.Other) > 0) {
		return errors.Wrap(ErrMixedLevels, "posting operations must not be combined with others")
	}

	signed := make(map[string]struct{}, len(signedBy))
	for _, key := range signedBy {
		if _, ok := signed[key.String()]; ok {
			return errors.Wrapf(ErrDuplicateSignature, "key %s", key)
		}
		signed[key.String()] = struct{}{}
	}

	st := &signState{
		db:       db,
		lookup:   lookup,
		signed:   signed,
		relevant: make(map[string]struct{}),
	}

	for _, account := range required.Posting {
		ok, err := st.checkAccount(account, Posting)
		if err != nil {
			return err
		}
		if !ok {
			return st.missing(Posting, account)
		}
	}
	for _, account := range required.Active {
		ok, err := st.checkAccount(account, Active)
		if err != nil {
			return err
		}
		if !ok {
			return st.missing(Active, account)
		}
	}
	for _, account := range required.Owner {
		ok, err := st.checkAccount(account, Owner)
		if err != nil {
			return err
		}
		if !ok {
			return st.missing(Owner, account)
		}
	}
	for i, auth := range required.Other {
		ok, err := st.check(auth, Active, 0)
		if err != nil {
			return err
		}
		if !ok {
			if st.depthHit {
				return errors.Wrapf(ErrDepthExceeded, "authority %d", i)
			}
			return errors.Wrapf(ErrMissingAuthority, "authority %d", i)
		}
	}

	for _, key := range signedBy {
		if _, ok := st.relevant[key.String()]; !ok {
			return errors.Wrapf(ErrIrrelevantSignature, "key %s", key)
		}
	}
	return nil
}

type signState struct {
	db     store.ReadOnlyKVStore
	lookup Lookup
	signed map[string]struct{}
	// relevant collects every key that was part of any inspected
	// authority. Keys outside of this set did not influence the decision
	// and make the transaction invalid.
	relevant map[string]struct{}
	// depthHit remembers that an unsatisfied check ran into the recursion
	// bound, to report the more specific error.
	depthHit bool
}

func (st *signState) missing(level Level, account string) error {
	if st.depthHit {
		return errors.Wrapf(ErrDepthExceeded, "%s of %q", level, account)
	}
	return errors.Wrapf(ErrMissingAuthority, "%s of %q", level, account)
}

// checkAccount verifies the requirement of given level for given account,
// trying the declared level first and falling back to the stronger levels.
func (st *signState) checkAccount(account string, level Level) (bool, error) {
	for _, l := range fallbackChain(level) {
		auth, err := st.lookup.AuthorityOf(st.db, account, l)
		if err != nil {
			return false, errors.Wrapf(err, "%s authority of %q", l, account)
		}
		if auth == nil {
			continue
		}
		ok, err := st.check(*auth, l, 0)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// fallbackChain lists the authority levels that may satisfy a requirement
// of given level, weakest first. Owner is never implied: it satisfies
// everything, but is only looked up when the requirement is active or
// posting, never the other way around.
func fallbackChain(level Level) []Level {
	switch level {
	case Posting:
		return []Level{Posting, Active, Owner}
	case Active:
		return []Level{Active, Owner}
	default:
		return []Level{Owner}
	}
}

// check accumulates the weight of matched signer keys and of recursively
// satisfied account references until the threshold is reached.
func (st *signState) check(auth Authority, level Level, depth int) (bool, error) {
	var total uint64

	for _, kw := range auth.KeyAuths {
		st.relevant[kw.Key.String()] = struct{}{}
		if _, ok := st.signed[kw.Key.String()]; ok {
			total += uint64(kw.Weight)
		}
	}
	if total >= uint64(auth.WeightThreshold) {
		return true, nil
	}

	for _, aw := range auth.AccountAuths {
		if depth >= MaxRecursionDepth {
			st.depthHit = true
			continue
		}
		sub, err := st.lookup.AuthorityOf(st.db, aw.Account, level)
		if err != nil {
			return false, errors.Wrapf(err, "%s authority of %q", level, aw.Account)
		}
		if sub == nil {
			continue
		}
		ok, err := st.check(*sub, level, depth+1)
		if err != nil {
			return false, err
		}
		if ok {
			total += uint64(aw.Weight)
			if total >= uint64(auth.WeightThreshold) {
				return true, nil
			}
		}
	}
	return total >= uint64(auth.WeightThreshold), nil
}
