package store

import (
	"bytes"
	"testing"

	"github.com/golos-one/ledger/errors"
)

func TestMemStoreSetGetDelete(t *testing.T) {
	db := MemStore()

	if err := db.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	v, err := db.Get([]byte("a"))
	if err != nil || !bytes.Equal(v, []byte("1")) {
		t.Fatalf("want 1, got %q (%v)", v, err)
	}
	if ok, _ := db.Has([]byte("a")); !ok {
		t.Fatal("key must exist")
	}

	if err := db.Delete([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.Has([]byte("a")); ok {
		t.Fatal("key must be gone")
	}
	if v, _ := db.Get([]byte("a")); v != nil {
		t.Fatalf("deleted key must read nil, got %q", v)
	}
}

func TestCacheWrapWriteAndDiscard(t *testing.T) {
	db := MemStore()
	db.Set([]byte("a"), []byte("committed"))

	cache := db.CacheWrap()
	cache.Set([]byte("a"), []byte("dirty"))
	cache.Set([]byte("b"), []byte("new"))

	// Parent must not see uncommitted changes.
	if v, _ := db.Get([]byte("a")); !bytes.Equal(v, []byte("committed")) {
		t.Fatalf("parent sees dirty value %q", v)
	}
	// The cache sees its own writes.
	if v, _ := cache.Get([]byte("a")); !bytes.Equal(v, []byte("dirty")) {
		t.Fatalf("cache must see own write, got %q", v)
	}

	if err := cache.Write(); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.Get([]byte("b")); !bytes.Equal(v, []byte("new")) {
		t.Fatalf("written changes must be visible, got %q", v)
	}

	cache = db.CacheWrap()
	cache.Delete([]byte("a"))
	cache.Discard()
	if ok, _ := db.Has([]byte("a")); !ok {
		t.Fatal("discarded delete must not apply")
	}
}

func TestCacheWrapDeleteShadowsParent(t *testing.T) {
	db := MemStore()
	db.Set([]byte("a"), []byte("1"))

	cache := db.CacheWrap()
	cache.Delete([]byte("a"))

	if ok, _ := cache.Has([]byte("a")); ok {
		t.Fatal("cache must report the key deleted")
	}
	if v, _ := cache.Get([]byte("a")); v != nil {
		t.Fatalf("cache must read nil for deleted key, got %q", v)
	}

	if err := cache.Write(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.Has([]byte("a")); ok {
		t.Fatal("delete must propagate to parent on write")
	}
}

func TestIteratorOrderAndRange(t *testing.T) {
	db := MemStore()
	for _, k := range []string{"b", "a", "d", "c"} {
		db.Set([]byte(k), []byte("v"+k))
	}

	it, err := db.Iterator([]byte("a"), []byte("d"))
	if err != nil {
		t.Fatal(err)
	}
	defer it.Release()

	var keys []string
	for {
		k, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, string(k))
	}
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("want %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("want %v, got %v", want, keys)
		}
	}
}

func TestCacheWrapIteratorMergesOverlay(t *testing.T) {
	db := MemStore()
	db.Set([]byte("a"), []byte("parent"))
	db.Set([]byte("b"), []byte("parent"))

	cache := db.CacheWrap()
	cache.Set([]byte("b"), []byte("overlay"))
	cache.Set([]byte("c"), []byte("overlay"))
	cache.Delete([]byte("a"))

	it, err := cache.Iterator(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer it.Release()

	got := map[string]string{}
	for {
		k, v, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got[string(k)] = string(v)
	}

	if len(got) != 2 || got["b"] != "overlay" || got["c"] != "overlay" {
		t.Fatalf("unexpected merged view: %v", got)
	}
}

func TestNestedCacheWrap(t *testing.T) {
	db := MemStore()
	outer := db.CacheWrap()
	inner := outer.CacheWrap()

	inner.Set([]byte("x"), []byte("1"))
	if err := inner.Write(); err != nil {
		t.Fatal(err)
	}

	// Outer holds the change, parent does not.
	if ok, _ := outer.Has([]byte("x")); !ok {
		t.Fatal("outer cache must see inner write")
	}
	if ok, _ := db.Has([]byte("x")); ok {
		t.Fatal("parent must not see the change yet")
	}

	if err := outer.Write(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.Has([]byte("x")); !ok {
		t.Fatal("parent must see the change after outer write")
	}
}
