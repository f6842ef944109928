/*
Package authority implements weighted threshold authorities and their
resolution against a set of transaction signer keys.

An authority is satisfied when the weights of the matched signer keys,
together with the weights of referenced account authorities that are
themselves satisfied, reach the threshold. Account references are resolved
recursively with a fixed depth bound, which also gives a deterministic
answer for cyclic authority graphs.
*/
package authority

import (
	"sort"

	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
)

// Level is the strength of an authority. Posting is the weakest level,
// owner the strongest.
type Level uint8

const (
	Posting Level = iota
	Active
	Owner
)

func (l Level) String() string {
	switch l {
	case Posting:
		return "posting"
	case Active:
		return "active"
	case Owner:
		return "owner"
	}
	return "invalid"
}

// maxWeight keeps single weights sane. Thresholds are not bound by it.
const maxWeight = 1<<16 - 1

// AccountWeight gives the authority of another account a weight within
// this authority.
type AccountWeight struct {
	Account string `msgpack:"account" json:"account"`
	Weight  uint32 `msgpack:"weight" json:"weight"`
}

// KeyWeight gives a public key a weight within this authority.
type KeyWeight struct {
	Key    crypto.PublicKey `msgpack:"key" json:"key"`
	Weight uint32           `msgpack:"weight" json:"weight"`
}

// Authority is a weighted threshold policy over accounts and keys.
type Authority struct {
	WeightThreshold uint32          `msgpack:"weight_threshold" json:"weight_threshold"`
	AccountAuths    []AccountWeight `msgpack:"account_auths" json:"account_auths"`
	KeyAuths        []KeyWeight     `msgpack:"key_auths" json:"key_auths"`
}

// NewKeyAuthority is a shorthand for a 1-of-1 single key authority.
func NewKeyAuthority(key crypto.PublicKey) Authority {
	return Authority{
		WeightThreshold: 1,
		KeyAuths:        []KeyWeight{{Key: key, Weight: 1}},
	}
}

// NewAccountAuthority is a shorthand for a 1-of-1 single account authority.
func NewAccountAuthority(account string) Authority {
	return Authority{
		WeightThreshold: 1,
		AccountAuths:    []AccountWeight{{Account: account, Weight: 1}},
	}
}

// Validate ensures the authority is a non degenerate weighted threshold:
// the threshold is positive and attainable, weights are positive and all
// entries are unique.
func (a Authority) Validate() error {
	if a.WeightThreshold == 0 {
		return errors.Wrap(errors.ErrInput, "zero weight threshold")
	}
	if len(a.AccountAuths) == 0 && len(a.KeyAuths) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no authority entries")
	}

	var total uint64
	accs := make(map[string]struct{}, len(a.AccountAuths))
	for _, aw := range a.AccountAuths {
		if aw.Weight == 0 || aw.Weight > maxWeight {
			return errors.Wrapf(errors.ErrInput, "account %q weight out of range", aw.Account)
		}
		if aw.Account == "" {
			return errors.Wrap(errors.ErrEmpty, "account name")
		}
		if _, ok := accs[aw.Account]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "account %q", aw.Account)
		}
		accs[aw.Account] = struct{}{}
		total += uint64(aw.Weight)
	}
	keys := make(map[string]struct{}, len(a.KeyAuths))
	for _, kw := range a.KeyAuths {
		if kw.Weight == 0 || kw.Weight > maxWeight {
			return errors.Wrapf(errors.ErrInput, "key %s weight out of range", kw.Key)
		}
		if err := kw.Key.Validate(); err != nil {
			return errors.Wrap(err, "key")
		}
		if _, ok := keys[kw.Key.String()]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "key %s", kw.Key)
		}
		keys[kw.Key.String()] = struct{}{}
		total += uint64(kw.Weight)
	}
	if total < uint64(a.WeightThreshold) {
		return errors.Wrap(errors.ErrInput, "unattainable weight threshold")
	}
	return nil
}

// Equals returns true when both authorities declare the same policy. Entry
// order is not relevant.
func (a Authority) Equals(o Authority) bool {
	if a.WeightThreshold != o.WeightThreshold ||
		len(a.AccountAuths) != len(o.AccountAuths) ||
		len(a.KeyAuths) != len(o.KeyAuths) {
		return false
	}
	aa := append([]AccountWeight{}, a.AccountAuths...)
	ob := append([]AccountWeight{}, o.AccountAuths...)
	sort.Slice(aa, func(i, j int) bool { return aa[i].Account < aa[j].Account })
	sort.Slice(ob, func(i, j int) bool { return ob[i].Account < ob[j].Account })
	for i := range aa {
		if aa[i] != ob[i] {
			return false
		}
	}
	ka := append([]KeyWeight{}, a.KeyAuths...)
	kb := append([]KeyWeight{}, o.KeyAuths...)
	sort.Slice(ka, func(i, j int) bool { return ka[i].Key.String() < ka[j].Key.String() })
	sort.Slice(kb, func(i, j int) bool { return kb[i].Key.String() < kb[j].Key.String() })
	for i := range ka {
		if ka[i].Weight != kb[i].Weight || !ka[i].Key.Equals(kb[i].Key) {
			return false
		}
	}
	return true
}

// KeyWeightOf returns the weight of given key within this authority, zero
// when not present.
func (a Authority) KeyWeightOf(key crypto.PublicKey) uint32 {
	for _, kw := range a.KeyAuths {
		if kw.Key.Equals(key) {
			return kw.Weight
		}
	}
	return 0
}
