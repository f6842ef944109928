/*
Package store defines the key-value storage interfaces used by the ledger
and provides an in-memory, btree backed implementation with cache wrapping.

Cache wrapping is the mutation boundary of the state machine: the block
pipeline wraps the committed state once per transaction and once per
scheduled task, writing the overlay only on success. Readers holding the
parent store never observe a mid-transaction partial state.
*/
package store

// ReadOnlyKVStore is a simple byte oriented key-value store that does not
// allow mutations.
type ReadOnlyKVStore interface {
	// Get returns the value stored under given key or nil when the key is
	// not present.
	Get(key []byte) ([]byte, error)

	// Has returns true when given key is present in the store.
	Has(key []byte) (bool, error)

	// Iterator iterates over a key range in lexicographical order. The
	// range is half open, start is included and end excluded. A nil start
	// means the lowest key, a nil end means past the highest key.
	Iterator(start, end []byte) (Iterator, error)
}

// KVStore is a mutable key-value store.
type KVStore interface {
	ReadOnlyKVStore

	// Set overwrites the value stored under given key.
	Set(key, value []byte) error

	// Delete removes given key. Deleting a non existing key is not an
	// error.
	Delete(key []byte) error
}

// Iterator walks over an ordered range of keys. Next returns
// errors.ErrIteratorDone when the range is exhausted. Iterators observe a
// snapshot of the store taken at creation time.
type Iterator interface {
	Next() (key, value []byte, err error)
	Release()
}

// KVCacheWrap is an overlay over a KVStore. All mutations are kept in the
// overlay until Write copies them into the parent store. Discard drops
// them. A cache wrap can be wrapped again for nested atomicity.
type KVCacheWrap interface {
	KVStore

	// Write flushes all cached changes into the parent store.
	Write() error

	// Discard drops all cached changes.
	Discard()

	// CacheWrap layers another cache on top of this one.
	CacheWrap() KVCacheWrap
}

// CacheableKVStore is a KVStore that can produce cache wrapped overlays of
// itself.
type CacheableKVStore interface {
	KVStore

	CacheWrap() KVCacheWrap
}
