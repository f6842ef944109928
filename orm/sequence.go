package orm

import (
	"encoding/binary"

	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/store"
)

// Sequence is a deterministic, persisted counter. The first value it
// returns is 1.
type Sequence struct {
	key []byte
}

// NewSequence returns a sequence counter. Sequences are identified by both
// a bucket and name, allowing a bucket to hold more than one.
func NewSequence(bucket, name string) Sequence {
	return Sequence{
		key: []byte("_s." + bucket + ":" + name),
	}
}

// NextVal increments the sequence and returns its value as an 8 byte big
// endian encoded key.
func (s Sequence) NextVal(db store.KVStore) ([]byte, error) {
	n, err := s.next(db)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b, nil
}

// NextInt increments the sequence and returns its value as an integer.
func (s Sequence) NextInt(db store.KVStore) (uint64, error) {
	return s.next(db)
}

func (s Sequence) next(db store.KVStore) (uint64, error) {
	raw, err := db.Get(s.key)
	if err != nil {
		return 0, errors.Wrap(err, "cannot read sequence")
	}
	var n uint64
	if raw != nil {
		if len(raw) != 8 {
			return 0, errors.Wrapf(errors.ErrState, "corrupted sequence value of %d bytes", len(raw))
		}
		n = binary.BigEndian.Uint64(raw)
	}
	n++
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	if err := db.Set(s.key, b); err != nil {
		return 0, errors.Wrap(err, "cannot persist sequence")
	}
	return n, nil
}
