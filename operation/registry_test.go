package operation

import (
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
)

type pingOp struct {
	Target string `msgpack:"target"`
}

func (pingOp) Path() string { return "ping" }

func (op *pingOp) Validate() error {
	if op.Target == "" {
		return errors.Wrap(errors.ErrEmpty, "target")
	}
	return nil
}

func (op *pingOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Target)
	return req
}

func init() {
	Register("ping", func() ledger.Operation { return &pingOp{} })
}

func TestOperationRoundTrip(t *testing.T) {
	raw, err := Marshal(&pingOp{Target: "alice"})
	if err != nil {
		t.Fatalf("cannot marshal: %s", err)
	}
	op, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("cannot unmarshal: %s", err)
	}
	ping, ok := op.(*pingOp)
	if !ok {
		t.Fatalf("decoded into wrong type %T", op)
	}
	if ping.Target != "alice" {
		t.Fatalf("unexpected target %q", ping.Target)
	}
}

type rogueOp struct{}

func (rogueOp) Path() string                      { return "rogue" }
func (rogueOp) Validate() error                   { return nil }
func (rogueOp) RequiredAuths() authority.Required { return authority.Required{} }

func TestMarshalUnregisteredOperation(t *testing.T) {
	if _, err := Marshal(rogueOp{}); !errors.ErrType.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnmarshalUnknownPath(t *testing.T) {
	// Forge an envelope with a path nothing ever registered.
	raw, err := Marshal(&pingOp{Target: "alice"})
	if err != nil {
		t.Fatalf("cannot marshal: %s", err)
	}
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		t.Fatalf("cannot decode envelope: %s", err)
	}
	env.Path = "never_registered"
	forged, err := msgpack.Marshal(env)
	if err != nil {
		t.Fatalf("cannot encode envelope: %s", err)
	}
	if _, err := Unmarshal(forged); !errors.ErrType.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	Register("ping", func() ledger.Operation { return &pingOp{} })
}

func TestTxSigning(t *testing.T) {
	priv := crypto.PrivateKeyFromSeed(make([]byte, 32))
	expiry := ledger.AsUnixTime(time.Now().Add(time.Hour))

	tx, err := NewTx(expiry, &pingOp{Target: "alice"})
	if err != nil {
		t.Fatalf("cannot create transaction: %s", err)
	}
	if err := tx.Sign("test-chain", priv); err != nil {
		t.Fatalf("cannot sign: %s", err)
	}

	keys, err := tx.SignerKeys("test-chain")
	if err != nil {
		t.Fatalf("cannot verify signatures: %s", err)
	}
	if len(keys) != 1 || !keys[0].Equals(priv.PublicKey()) {
		t.Fatalf("unexpected signer keys: %v", keys)
	}

	// The digest binds the chain ID, so verification against another
	// network must fail.
	if _, err := tx.SignerKeys("other-chain"); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTxRoundTrip(t *testing.T) {
	priv := crypto.GenPrivateKey()
	expiry := ledger.AsUnixTime(time.Now().Add(time.Hour))

	tx, err := NewTx(expiry, &pingOp{Target: "alice"}, &pingOp{Target: "bob"})
	if err != nil {
		t.Fatalf("cannot create transaction: %s", err)
	}
	if err := tx.Sign("test-chain", priv); err != nil {
		t.Fatalf("cannot sign: %s", err)
	}
	raw, err := tx.Marshal()
	if err != nil {
		t.Fatalf("cannot marshal: %s", err)
	}

	var restored Tx
	if err := restored.Unmarshal(raw); err != nil {
		t.Fatalf("cannot unmarshal: %s", err)
	}
	ops, err := restored.GetOperations()
	if err != nil {
		t.Fatalf("cannot decode operations: %s", err)
	}
	if len(ops) != 2 {
		t.Fatalf("want 2 operations, got %d", len(ops))
	}
	if _, err := restored.SignerKeys("test-chain"); err != nil {
		t.Fatalf("signatures did not survive the round trip: %s", err)
	}
}
