package authority

import (
	"testing"

	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/store"
)

// memLookup serves authorities from a plain map, keyed by account name and
// level.
type memLookup map[string]map[Level]Authority

func (l memLookup) AuthorityOf(_ store.ReadOnlyKVStore, account string, level Level) (*Authority, error) {
	levels, ok := l[account]
	if !ok {
		return nil, nil
	}
	auth, ok := levels[level]
	if !ok {
		return nil, nil
	}
	return &auth, nil
}

func keyAuth(threshold uint32, kws ...KeyWeight) Authority {
	return Authority{WeightThreshold: threshold, KeyAuths: kws}
}

func TestVerifySingleKey(t *testing.T) {
	db := store.MemStore()
	alice := crypto.GenPrivateKey().PublicKey()
	bob := crypto.GenPrivateKey().PublicKey()

	lookup := memLookup{
		"alice": {Active: NewKeyAuthority(alice)},
	}

	var req Required
	req.AddActive("alice")

	if err := Verify(db, lookup, req, []crypto.PublicKey{alice}); err != nil {
		t.Fatalf("alice key must satisfy alice active: %+v", err)
	}
	if err := Verify(db, lookup, req, []crypto.PublicKey{bob}); !ErrMissingAuthority.Is(err) {
		t.Fatalf("bob key must not satisfy alice active: %+v", err)
	}
	if err := Verify(db, lookup, req, nil); !ErrMissingAuthority.Is(err) {
		t.Fatalf("no signature must fail: %+v", err)
	}
}

func TestVerifyWeightedThreshold(t *testing.T) {
	db := store.MemStore()
	k1 := crypto.GenPrivateKey().PublicKey()
	k2 := crypto.GenPrivateKey().PublicKey()
	k3 := crypto.GenPrivateKey().PublicKey()

	lookup := memLookup{
		"multi": {Active: keyAuth(3,
			KeyWeight{Key: k1, Weight: 2},
			KeyWeight{Key: k2, Weight: 1},
			KeyWeight{Key: k3, Weight: 1},
		)},
	}

	var req Required
	req.AddActive("multi")

	if err := Verify(db, lookup, req, []crypto.PublicKey{k1, k2}); err != nil {
		t.Fatalf("2+1 must reach threshold 3: %+v", err)
	}
	if err := Verify(db, lookup, req, []crypto.PublicKey{k2, k3}); !ErrMissingAuthority.Is(err) {
		t.Fatalf("1+1 must not reach threshold 3: %+v", err)
	}
}

func TestVerifyLevelFallback(t *testing.T) {
	db := store.MemStore()
	postingKey := crypto.GenPrivateKey().PublicKey()
	activeKey := crypto.GenPrivateKey().PublicKey()
	ownerKey := crypto.GenPrivateKey().PublicKey()

	lookup := memLookup{
		"alice": {
			Posting: NewKeyAuthority(postingKey),
			Active:  NewKeyAuthority(activeKey),
			Owner:   NewKeyAuthority(ownerKey),
		},
	}

	// Active key satisfies a posting requirement.
	var posting Required
	posting.AddPosting("alice")
	if err := Verify(db, lookup, posting, []crypto.PublicKey{activeKey}); err != nil {
		t.Fatalf("active must satisfy posting: %+v", err)
	}

	// Posting key does not satisfy an active requirement.
	var active Required
	active.AddActive("alice")
	if err := Verify(db, lookup, active, []crypto.PublicKey{postingKey}); err == nil {
		t.Fatal("posting must not satisfy active")
	}

	// Owner key satisfies an active requirement.
	if err := Verify(db, lookup, active, []crypto.PublicKey{ownerKey}); err != nil {
		t.Fatalf("owner must satisfy active: %+v", err)
	}

	// Active key does not satisfy an owner requirement.
	var owner Required
	owner.AddOwner("alice")
	if err := Verify(db, lookup, owner, []crypto.PublicKey{activeKey}); !ErrMissingAuthority.Is(err) {
		t.Fatalf("active must not satisfy owner: %+v", err)
	}
	if err := Verify(db, lookup, owner, []crypto.PublicKey{ownerKey}); err != nil {
		t.Fatalf("owner key must satisfy owner: %+v", err)
	}
}

func TestVerifyMixedLevelsRejected(t *testing.T) {
	db := store.MemStore()
	var req Required
	req.AddPosting("alice")
	req.AddActive("bob")

	if err := Verify(db, memLookup{}, req, nil); !ErrMixedLevels.Is(err) {
		t.Fatalf("want mixed levels error, got %+v", err)
	}
}

func TestVerifyDuplicateSignature(t *testing.T) {
	db := store.MemStore()
	key := crypto.GenPrivateKey().PublicKey()
	lookup := memLookup{"alice": {Active: NewKeyAuthority(key)}}

	var req Required
	req.AddActive("alice")

	err := Verify(db, lookup, req, []crypto.PublicKey{key, key})
	if !ErrDuplicateSignature.Is(err) {
		t.Fatalf("want duplicate signature error, got %+v", err)
	}
}

func TestVerifyIrrelevantSignature(t *testing.T) {
	db := store.MemStore()
	key := crypto.GenPrivateKey().PublicKey()
	stranger := crypto.GenPrivateKey().PublicKey()
	lookup := memLookup{"alice": {Active: NewKeyAuthority(key)}}

	var req Required
	req.AddActive("alice")

	err := Verify(db, lookup, req, []crypto.PublicKey{key, stranger})
	if !ErrIrrelevantSignature.Is(err) {
		t.Fatalf("want irrelevant signature error, got %+v", err)
	}
}

func TestVerifyAccountRecursion(t *testing.T) {
	db := store.MemStore()
	bobKey := crypto.GenPrivateKey().PublicKey()

	// Alice delegates her active authority to bob's account.
	lookup := memLookup{
		"alice": {Active: NewAccountAuthority("bob")},
		"bob":   {Active: NewKeyAuthority(bobKey)},
	}

	var req Required
	req.AddActive("alice")

	if err := Verify(db, lookup, req, []crypto.PublicKey{bobKey}); err != nil {
		t.Fatalf("bob key must satisfy alice via account auth: %+v", err)
	}
}

func TestVerifyDepthBound(t *testing.T) {
	db := store.MemStore()
	deepKey := crypto.GenPrivateKey().PublicKey()

	// A chain of account references longer than the bound. The deepest
	// level holds the only key.
	lookup := memLookup{
		"a": {Active: NewAccountAuthority("b")},
		"b": {Active: NewAccountAuthority("c")},
		"c": {Active: NewAccountAuthority("d")},
		"d": {Active: NewKeyAuthority(deepKey)},
	}

	var req Required
	req.AddActive("a")

	err := Verify(db, lookup, req, []crypto.PublicKey{deepKey})
	if !ErrDepthExceeded.Is(err) {
		t.Fatalf("want depth exceeded, got %+v", err)
	}
}

func TestVerifyCyclicAuthorities(t *testing.T) {
	db := store.MemStore()
	key := crypto.GenPrivateKey().PublicKey()

	// a and b reference each other. The depth bound must terminate the
	// resolution with a deterministic failure.
	lookup := memLookup{
		"a": {Active: NewAccountAuthority("b")},
		"b": {Active: NewAccountAuthority("a")},
	}

	var req Required
	req.AddActive("a")

	err := Verify(db, lookup, req, []crypto.PublicKey{key})
	if err == nil {
		t.Fatal("cyclic authorities must never be satisfied")
	}
}

func TestVerifyOtherAuthorities(t *testing.T) {
	db := store.MemStore()
	key := crypto.GenPrivateKey().PublicKey()

	var req Required
	req.AddOther(NewKeyAuthority(key))

	if err := Verify(db, memLookup{}, req, []crypto.PublicKey{key}); err != nil {
		t.Fatalf("raw authority must be satisfied by its key: %+v", err)
	}
	if err := Verify(db, memLookup{}, req, nil); !ErrMissingAuthority.Is(err) {
		t.Fatalf("raw authority without signature must fail: %+v", err)
	}
}

func TestAuthorityValidate(t *testing.T) {
	key := crypto.GenPrivateKey().PublicKey()

	cases := map[string]struct {
		auth    Authority
		wantErr bool
	}{
		"single key": {
			auth: NewKeyAuthority(key),
		},
		"zero threshold": {
			auth:    Authority{WeightThreshold: 0, KeyAuths: []KeyWeight{{Key: key, Weight: 1}}},
			wantErr: true,
		},
		"empty": {
			auth:    Authority{WeightThreshold: 1},
			wantErr: true,
		},
		"unattainable threshold": {
			auth:    Authority{WeightThreshold: 5, KeyAuths: []KeyWeight{{Key: key, Weight: 1}}},
			wantErr: true,
		},
		"duplicate account": {
			auth: Authority{WeightThreshold: 1, AccountAuths: []AccountWeight{
				{Account: "bob", Weight: 1}, {Account: "bob", Weight: 1},
			}},
			wantErr: true,
		},
		"zero weight": {
			auth:    Authority{WeightThreshold: 1, AccountAuths: []AccountWeight{{Account: "bob", Weight: 0}}},
			wantErr: true,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.auth.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("want an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("want no error, got %+v", err)
			}
		})
	}
}

func TestAuthorityEquals(t *testing.T) {
	k1 := crypto.GenPrivateKey().PublicKey()
	k2 := crypto.GenPrivateKey().PublicKey()

	a := Authority{WeightThreshold: 2, KeyAuths: []KeyWeight{{Key: k1, Weight: 1}, {Key: k2, Weight: 1}}}
	b := Authority{WeightThreshold: 2, KeyAuths: []KeyWeight{{Key: k2, Weight: 1}, {Key: k1, Weight: 1}}}
	if !a.Equals(b) {
		t.Fatal("entry order must not matter")
	}

	c := Authority{WeightThreshold: 1, KeyAuths: []KeyWeight{{Key: k1, Weight: 1}, {Key: k2, Weight: 1}}}
	if a.Equals(c) {
		t.Fatal("different thresholds must not be equal")
	}
}
