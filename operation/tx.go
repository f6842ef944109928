package operation

import (
	"crypto/sha256"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
)

// Tx is the signed transaction wire form: an ordered batch of operations
// plus the signatures that authorize all of them together.
type Tx struct {
	// Operations are the tagged envelopes, in application order.
	Operations [][]byte `msgpack:"operations"`

	// Expiration protects against replaying an old transaction. A
	// transaction is only valid in blocks before this time.
	Expiration ledger.UnixTime `msgpack:"expiration"`

	// Signatures over the signing digest.
	Signatures []crypto.Signature `msgpack:"signatures"`
}

// NewTx builds a transaction from typed operations.
func NewTx(expiration ledger.UnixTime, ops ...ledger.Operation) (*Tx, error) {
	raw, err := MarshalAll(ops)
	if err != nil {
		return nil, err
	}
	return &Tx{Operations: raw, Expiration: expiration}, nil
}

// GetOperations decodes the operation envelopes.
func (tx *Tx) GetOperations() ([]ledger.Operation, error) {
	return UnmarshalAll(tx.Operations)
}

// SigningDigest returns the digest every signature of this transaction
// must sign. The chain ID is mixed in so that a transaction for one
// network cannot be replayed on another.
func (tx *Tx) SigningDigest(chainID string) ([]byte, error) {
	payload, err := msgpack.Marshal(struct {
		ChainID    string          `msgpack:"chain_id"`
		Operations [][]byte        `msgpack:"operations"`
		Expiration ledger.UnixTime `msgpack:"expiration"`
	}{
		ChainID:    chainID,
		Operations: tx.Operations,
		Expiration: tx.Expiration,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot serialize signing payload")
	}
	digest := sha256.Sum256(payload)
	return digest[:], nil
}

// Sign appends a signature of this transaction created with given key.
func (tx *Tx) Sign(chainID string, key crypto.PrivateKey) error {
	digest, err := tx.SigningDigest(chainID)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, key.Sign(digest))
	return nil
}

// SignerKeys verifies all signatures against the signing digest and
// returns the public keys that produced them. Order is preserved so that
// the resolver can detect duplicates.
func (tx *Tx) SignerKeys(chainID string) ([]crypto.PublicKey, error) {
	digest, err := tx.SigningDigest(chainID)
	if err != nil {
		return nil, err
	}
	keys := make([]crypto.PublicKey, 0, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		if err := sig.Validate(); err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}
		if !sig.Verify(digest) {
			return nil, errors.Wrapf(errors.ErrUnauthorized, "signature %d does not match the digest", i)
		}
		keys = append(keys, sig.Pubkey)
	}
	return keys, nil
}

// Marshal serializes the whole transaction.
func (tx *Tx) Marshal() ([]byte, error) {
	return msgpack.Marshal(tx)
}

// Unmarshal deserializes the whole transaction.
func (tx *Tx) Unmarshal(raw []byte) error {
	if err := msgpack.Unmarshal(raw, tx); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode transaction: %v", err)
	}
	return nil
}
