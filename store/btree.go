package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/golos-one/ledger/errors"
)

// item is a single btree entry. Inside a cache overlay deleted keys are
// kept as tombstones so that a delete can shadow a parent value.
type item struct {
	key     []byte
	value   []byte
	deleted bool
}

func lessItem(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemStore returns an empty in-memory store. Used as the committed state
// backend in tests and in the offline tooling. There is no persistence.
func MemStore() CacheableKVStore {
	return &memStore{bt: btree.NewG(2, lessItem)}
}

type memStore struct {
	bt *btree.BTreeG[item]
}

var _ CacheableKVStore = (*memStore)(nil)

func (s *memStore) Get(key []byte) ([]byte, error) {
	it, ok := s.bt.Get(item{key: key})
	if !ok {
		return nil, nil
	}
	return it.value, nil
}

func (s *memStore) Has(key []byte) (bool, error) {
	return s.bt.Has(item{key: key}), nil
}

func (s *memStore) Set(key, value []byte) error {
	s.bt.ReplaceOrInsert(item{key: ckey(key), value: cval(value)})
	return nil
}

func (s *memStore) Delete(key []byte) error {
	s.bt.Delete(item{key: key})
	return nil
}

func (s *memStore) Iterator(start, end []byte) (Iterator, error) {
	var items []item
	collect := func(it item) bool {
		if end != nil && bytes.Compare(it.key, end) >= 0 {
			return false
		}
		items = append(items, it)
		return true
	}
	if start == nil {
		s.bt.Ascend(collect)
	} else {
		s.bt.AscendGreaterOrEqual(item{key: start}, collect)
	}
	return &sliceIterator{items: items}, nil
}

func (s *memStore) CacheWrap() KVCacheWrap {
	return newCacheWrap(s)
}

// cacheWrap is a btree overlay over any KVStore.
type cacheWrap struct {
	parent KVStore
	bt     *btree.BTreeG[item]
}

var _ KVCacheWrap = (*cacheWrap)(nil)

func newCacheWrap(parent KVStore) *cacheWrap {
	return &cacheWrap{
		parent: parent,
		bt:     btree.NewG(2, lessItem),
	}
}

func (c *cacheWrap) Get(key []byte) ([]byte, error) {
	if it, ok := c.bt.Get(item{key: key}); ok {
		if it.deleted {
			return nil, nil
		}
		return it.value, nil
	}
	return c.parent.Get(key)
}

func (c *cacheWrap) Has(key []byte) (bool, error) {
	if it, ok := c.bt.Get(item{key: key}); ok {
		return !it.deleted, nil
	}
	return c.parent.Has(key)
}

func (c *cacheWrap) Set(key, value []byte) error {
	c.bt.ReplaceOrInsert(item{key: ckey(key), value: cval(value)})
	return nil
}

func (c *cacheWrap) Delete(key []byte) error {
	c.bt.ReplaceOrInsert(item{key: ckey(key), deleted: true})
	return nil
}

// Iterator merges the overlay with the parent range. The merged view is
// materialized at creation time which gives iterators snapshot semantics:
// mutating the store while iterating does not affect the iteration.
func (c *cacheWrap) Iterator(start, end []byte) (Iterator, error) {
	parentIt, err := c.parent.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer parentIt.Release()

	merged := btree.NewG(2, lessItem)
	for {
		key, value, err := parentIt.Next()
		if err != nil {
			if errors.ErrIteratorDone.Is(err) {
				break
			}
			return nil, err
		}
		merged.ReplaceOrInsert(item{key: key, value: value})
	}

	overlay := func(it item) bool {
		if end != nil && bytes.Compare(it.key, end) >= 0 {
			return false
		}
		merged.ReplaceOrInsert(it)
		return true
	}
	if start == nil {
		c.bt.Ascend(overlay)
	} else {
		c.bt.AscendGreaterOrEqual(item{key: start}, overlay)
	}

	items := make([]item, 0, merged.Len())
	merged.Ascend(func(it item) bool {
		if !it.deleted {
			items = append(items, it)
		}
		return true
	})
	return &sliceIterator{items: items}, nil
}

func (c *cacheWrap) Write() error {
	var werr error
	c.bt.Ascend(func(it item) bool {
		if it.deleted {
			werr = c.parent.Delete(it.key)
		} else {
			werr = c.parent.Set(it.key, it.value)
		}
		return werr == nil
	})
	if werr != nil {
		return errors.Wrap(werr, "cannot flush cache")
	}
	c.Discard()
	return nil
}

func (c *cacheWrap) Discard() {
	c.bt = btree.NewG(2, lessItem)
}

func (c *cacheWrap) CacheWrap() KVCacheWrap {
	return newCacheWrap(c)
}

type sliceIterator struct {
	items []item
	pos   int
}

var _ Iterator = (*sliceIterator)(nil)

func (i *sliceIterator) Next() ([]byte, []byte, error) {
	if i.pos >= len(i.items) {
		return nil, nil, errors.ErrIteratorDone
	}
	it := i.items[i.pos]
	i.pos++
	return it.key, it.value, nil
}

func (i *sliceIterator) Release() {
	i.items = nil
}

// ckey and cval copy the byte slices so that later modification of the
// caller owned buffer cannot corrupt the store content.
func ckey(b []byte) []byte {
	return append([]byte{}, b...)
}

func cval(b []byte) []byte {
	return append([]byte{}, b...)
}
