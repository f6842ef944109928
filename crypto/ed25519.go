package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/ed25519"

	"github.com/golos-one/ledger/errors"
)

// PublicKey is an ed25519 public key. Public keys identify signers inside
// weighted authorities and are the unit the authority resolver matches
// signatures against.
type PublicKey []byte

// PrivateKey is an ed25519 private key.
type PrivateKey []byte

// Signature is a detached signature together with the public key that
// produced it. Carrying the key allows signature verification without an
// account lookup and lets the resolver know the exact signer set.
type Signature struct {
	Pubkey    PublicKey `msgpack:"pubkey"`
	Signature []byte    `msgpack:"signature"`
}

// Verify returns true if this signature is a valid signature of given
// message.
func (s Signature) Verify(message []byte) bool {
	if len(s.Pubkey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(s.Pubkey), message, s.Signature)
}

// Validate returns an error on any structural key or signature size issue.
func (s Signature) Validate() error {
	if err := s.Pubkey.Validate(); err != nil {
		return err
	}
	if len(s.Signature) != ed25519.SignatureSize {
		return errors.Wrapf(errors.ErrInput, "invalid signature length %d", len(s.Signature))
	}
	return nil
}

// Sign returns a signature of given message created with this private key.
func (k PrivateKey) Sign(message []byte) Signature {
	return Signature{
		Pubkey:    k.PublicKey(),
		Signature: ed25519.Sign(ed25519.PrivateKey(k), message),
	}
}

// PublicKey returns the public key matching this private key.
func (k PrivateKey) PublicKey() PublicKey {
	pub := ed25519.PrivateKey(k).Public().(ed25519.PublicKey)
	return PublicKey(pub)
}

// GenPrivateKey returns a random new private key.
func GenPrivateKey() PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return PrivateKey(priv)
}

// PrivateKeyFromSeed will deterministically generate a private key from a
// given seed. Use if you have a strong source of external randomness, or
// for deterministic keys in test cases.
func PrivateKeyFromSeed(seed []byte) PrivateKey {
	return PrivateKey(ed25519.NewKeyFromSeed(seed))
}

// Equals returns true if both keys are byte equal.
func (p PublicKey) Equals(o PublicKey) bool {
	return bytes.Equal(p, o)
}

// Validate returns an error if this is not a well formed ed25519 public
// key.
func (p PublicKey) Validate() error {
	if len(p) != ed25519.PublicKeySize {
		return errors.Wrapf(errors.ErrInput, "invalid public key length %d", len(p))
	}
	return nil
}

// String returns a hex representation of this key.
func (p PublicKey) String() string {
	return hex.EncodeToString(p)
}

// MarshalJSON provides a hex representation for JSON, to override the
// standard base64 []byte encoding.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p))
}

// UnmarshalJSON parses JSON in hex representation.
func (p *PublicKey) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(err, "cannot decode json")
	}
	b, err := hex.DecodeString(enc)
	if err != nil {
		return errors.Wrap(errors.ErrInput, "public key must be hex encoded")
	}
	*p = b
	return nil
}
