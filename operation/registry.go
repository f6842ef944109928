/*
Package operation keeps the registry of all operation kinds the ledger
understands and the wire codec for transactions.

Operations form a closed set, modeled as a tagged union: every serialized
operation is an envelope of the operation path and the msgpack encoded
body. Extension packages register their operation types during init, the
application refuses to start when two packages claim the same path.
*/
package operation

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/errors"
)

// factories maps an operation path to a constructor of an empty operation
// of that kind.
var factories = make(map[string]func() ledger.Operation)

// Register adds an operation kind to the global registry. It is meant to
// be called from the init function of the package declaring the operation.
// Registering the same path twice panics.
func Register(path string, factory func() ledger.Operation) {
	if _, ok := factories[path]; ok {
		panic(fmt.Sprintf("operation %q is already registered", path))
	}
	factories[path] = factory
}

// RegisteredPaths returns all known operation paths, sorted.
func RegisteredPaths() []string {
	paths := make([]string, 0, len(factories))
	for p := range factories {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// envelope is the wire form of a single operation.
type envelope struct {
	Path string `msgpack:"path"`
	Body []byte `msgpack:"body"`
}

// Marshal serializes an operation into its tagged envelope form.
func Marshal(op ledger.Operation) ([]byte, error) {
	if _, ok := factories[op.Path()]; !ok {
		return nil, errors.Wrapf(errors.ErrType, "operation %q is not registered", op.Path())
	}
	body, err := msgpack.Marshal(op)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrType, "cannot serialize %q: %v", op.Path(), err)
	}
	return msgpack.Marshal(envelope{Path: op.Path(), Body: body})
}

// Unmarshal deserializes a tagged envelope back into a typed operation.
func Unmarshal(raw []byte) (ledger.Operation, error) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot decode envelope: %v", err)
	}
	factory, ok := factories[env.Path]
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "unknown operation %q", env.Path)
	}
	op := factory()
	if err := msgpack.Unmarshal(env.Body, op); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot decode %q: %v", env.Path, err)
	}
	return op, nil
}

// MarshalAll serializes an ordered list of operations.
func MarshalAll(ops []ledger.Operation) ([][]byte, error) {
	raw := make([][]byte, len(ops))
	for i, op := range ops {
		var err error
		if raw[i], err = Marshal(op); err != nil {
			return nil, errors.Wrapf(err, "operation %d", i)
		}
	}
	return raw, nil
}

// UnmarshalAll deserializes an ordered list of operations.
func UnmarshalAll(raw [][]byte) ([]ledger.Operation, error) {
	ops := make([]ledger.Operation, len(raw))
	for i, r := range raw {
		var err error
		if ops[i], err = Unmarshal(r); err != nil {
			return nil, errors.Wrapf(err, "operation %d", i)
		}
	}
	return ops, nil
}
