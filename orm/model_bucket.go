/*
Package orm provides a thin object layer on top of the key-value store.

Each entity type lives in its own ModelBucket, identified by a short name
that prefixes all database keys. Buckets own the serialization (msgpack)
and maintain secondary indexes so that entities can be found by other
attributes than the primary key.
*/
package orm

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/store"
)

// Model is implemented by any entity that can be stored in a ModelBucket.
type Model interface {
	Validate() error
}

// Indexer returns the secondary index key of given model. Returning a nil
// key means the model is not indexed by this index.
type Indexer func(m Model) ([]byte, error)

// ModelBucket is a persisted table of models of a single type supporting
// unique-key lookup, prefix iteration and secondary indexes.
type ModelBucket interface {
	// One queries the database for a single model instance. Lookup is done
	// by the primary key. Result is loaded into given destination model.
	// This method returns ErrNotFound if the entity does not exist.
	One(db store.ReadOnlyKVStore, key []byte, dest Model) error

	// Has returns true when an entity with given primary key exists.
	Has(db store.ReadOnlyKVStore, key []byte) (bool, error)

	// Put saves given model in the database under given primary key.
	Put(db store.KVStore, key []byte, m Model) error

	// Delete removes an entity with given primary key. It returns
	// ErrNotFound if the entity does not exist.
	Delete(db store.KVStore, key []byte) error

	// ByIndex returns all entities that have given secondary index value.
	// Destination must be a pointer to a slice of models. Returned are the
	// primary keys, in the same order as the destination content.
	ByIndex(db store.ReadOnlyKVStore, indexName string, indexKey []byte, dest ModelSlicePtr) ([][]byte, error)

	// PrefixScan iterates over all entities whose primary key starts with
	// given prefix, in lexicographical key order. Iteration stops early
	// when the callback returns true or an error.
	PrefixScan(db store.ReadOnlyKVStore, prefix []byte, fn func(key []byte, m Model) (stop bool, err error)) error
}

// ModelSlicePtr represents a pointer to a slice of models. For example:
//
//	var escrows []*Escrow
//	bucket.ByIndex(db, "source", key, &escrows)
type ModelSlicePtr interface{}

// Option configures a bucket during construction.
type Option func(*modelBucket)

// WithIndex registers a named secondary index on the bucket.
func WithIndex(name string, indexer Indexer) Option {
	return func(b *modelBucket) {
		b.indexes = append(b.indexes, namedIndex{name: name, fn: indexer})
	}
}

// WithIDSequence configures the bucket to use the given sequence for
// generating primary keys.
func WithIDSequence(s Sequence) Option {
	return func(b *modelBucket) {
		b.idSeq = &s
	}
}

// NewModelBucket returns a ModelBucket instance storing entities of the
// same type as the given model prototype.
func NewModelBucket(name string, model Model, opts ...Option) ModelBucket {
	tp := reflect.TypeOf(model)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	b := &modelBucket{
		name:   name,
		prefix: []byte(name + ":"),
		model:  tp,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type namedIndex struct {
	name string
	fn   Indexer
}

type modelBucket struct {
	name    string
	prefix  []byte
	model   reflect.Type
	indexes []namedIndex
	idSeq   *Sequence
}

var _ ModelBucket = (*modelBucket)(nil)

func (b *modelBucket) dbKey(key []byte) []byte {
	return append(append([]byte{}, b.prefix...), key...)
}

// indexPrefix is the common prefix of all entries of a single index. The
// zero byte separates the bucket namespace so that index entries can never
// collide with primary entries.
func (b *modelBucket) indexPrefix(name string) []byte {
	return []byte("_i." + b.name + "." + name + ":")
}

// indexKey combines the index value with the primary key. The separator
// byte keeps entries of different index values apart during prefix scans
// as long as index values do not contain the zero byte. Index values are
// account names and similar restricted charsets, so this holds.
func (b *modelBucket) indexEntryKey(name, indexKey, primary []byte) []byte {
	k := append(append([]byte{}, b.indexPrefix(string(name))...), indexKey...)
	k = append(k, 0)
	return append(k, primary...)
}

func (b *modelBucket) One(db store.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.dbKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := msgpack.Unmarshal(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrType, "cannot deserialize %T: %v", dest, err)
	}
	return nil
}

func (b *modelBucket) Has(db store.ReadOnlyKVStore, key []byte) (bool, error) {
	return db.Has(b.dbKey(key))
}

func (b *modelBucket) Put(db store.KVStore, key []byte, m Model) error {
	if exp, got := b.model, modelType(m); exp != got {
		return errors.Wrapf(errors.ErrType, "bucket %s holds %s, not %s", b.name, exp, got)
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	if len(key) == 0 {
		if b.idSeq == nil {
			return errors.Wrap(errors.ErrEmpty, "key")
		}
		var err error
		if key, err = b.idSeq.NextVal(db); err != nil {
			return errors.Wrap(err, "cannot acquire ID")
		}
	}

	// Remove index entries of a previous version, if any.
	if err := b.updateIndexes(db, key, nil); err != nil {
		return err
	}

	raw, err := msgpack.Marshal(m)
	if err != nil {
		return errors.Wrapf(errors.ErrType, "cannot serialize %T: %v", m, err)
	}
	if err := db.Set(b.dbKey(key), raw); err != nil {
		return errors.Wrap(err, "cannot store in the database")
	}

	for _, idx := range b.indexes {
		ikey, err := idx.fn(m)
		if err != nil {
			return errors.Wrapf(err, "index %s", idx.name)
		}
		if ikey == nil {
			continue
		}
		if err := db.Set(b.indexEntryKey([]byte(idx.name), ikey, key), nil); err != nil {
			return errors.Wrapf(err, "cannot store index %s", idx.name)
		}
	}
	return nil
}

func (b *modelBucket) Delete(db store.KVStore, key []byte) error {
	ok, err := db.Has(b.dbKey(key))
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "no %s entity", b.name)
	}
	if err := b.updateIndexes(db, key, nil); err != nil {
		return err
	}
	return db.Delete(b.dbKey(key))
}

// updateIndexes removes all index entries that belong to the current
// version of the entity stored under given key.
func (b *modelBucket) updateIndexes(db store.KVStore, key []byte, _ Model) error {
	if len(b.indexes) == 0 {
		return nil
	}
	raw, err := db.Get(b.dbKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	old := reflect.New(b.model).Interface().(Model)
	if err := msgpack.Unmarshal(raw, old); err != nil {
		return errors.Wrapf(errors.ErrType, "cannot deserialize stored %s: %v", b.name, err)
	}
	for _, idx := range b.indexes {
		ikey, err := idx.fn(old)
		if err != nil {
			return errors.Wrapf(err, "index %s", idx.name)
		}
		if ikey == nil {
			continue
		}
		if err := db.Delete(b.indexEntryKey([]byte(idx.name), ikey, key)); err != nil {
			return errors.Wrapf(err, "cannot clear index %s", idx.name)
		}
	}
	return nil
}

func (b *modelBucket) ByIndex(db store.ReadOnlyKVStore, indexName string, indexKey []byte, dest ModelSlicePtr) ([][]byte, error) {
	var found bool
	for _, idx := range b.indexes {
		if idx.name == indexName {
			found = true
		}
	}
	if !found {
		return nil, errors.Wrapf(errors.ErrHuman, "no index %q on bucket %q", indexName, b.name)
	}

	start := append(append([]byte{}, b.indexPrefix(indexName)...), indexKey...)
	start = append(start, 0)
	end := append(append([]byte{}, b.indexPrefix(indexName)...), indexKey...)
	end = append(end, 1)

	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	slice := reflect.ValueOf(dest)
	if slice.Kind() != reflect.Ptr || slice.Elem().Kind() != reflect.Slice {
		return nil, errors.Wrapf(errors.ErrType, "destination must be a pointer to a slice, got %T", dest)
	}
	slice = slice.Elem()

	var keys [][]byte
	for {
		key, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		primary := key[len(start):]

		m := reflect.New(b.model).Interface().(Model)
		if err := b.One(db, primary, m); err != nil {
			return nil, errors.Wrap(err, "dangling index entry")
		}
		slice.Set(reflect.Append(slice, reflect.ValueOf(m)))
		keys = append(keys, primary)
	}
	return keys, nil
}

func (b *modelBucket) PrefixScan(db store.ReadOnlyKVStore, prefix []byte, fn func(key []byte, m Model) (bool, error)) error {
	start := b.dbKey(prefix)
	end := prefixEnd(start)

	it, err := db.Iterator(start, end)
	if err != nil {
		return err
	}
	defer it.Release()

	for {
		key, raw, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		m := reflect.New(b.model).Interface().(Model)
		if err := msgpack.Unmarshal(raw, m); err != nil {
			return errors.Wrapf(errors.ErrType, "cannot deserialize %s: %v", b.name, err)
		}
		stop, err := fn(key[len(b.prefix):], m)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// prefixEnd returns the smallest key that is bigger than any key with given
// prefix, or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func modelType(m Model) reflect.Type {
	tp := reflect.TypeOf(m)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	return tp
}
