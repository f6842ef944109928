package ledger

import (
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/store"
)

// Operation is a single state transition request carried inside a signed
// transaction. Operations are the closed set of records the ledger
// understands; the operation package keeps the registry of all of them.
type Operation interface {
	// Path returns the operation name. It is used by the router to locate
	// the proper handler and by the codec as the tagged union
	// discriminator. Must be alphanumeric [0-9a-z_]+.
	Path() string

	// Validate performs the stateless field-shape validation. It must not
	// touch any state.
	Validate() error

	// RequiredAuths declares the authorities needed to execute this
	// operation.
	RequiredAuths() authority.Required
}

// DeliverResult is the report of a single operation execution.
type DeliverResult struct {
	// Data is an operation specific payload, for example the generated ID
	// of a created entity.
	Data []byte
}

// Handler executes a single operation kind against the state. Any returned
// error aborts the whole enclosing transaction; the pipeline discards all
// of its state changes.
type Handler interface {
	Deliver(ctx Context, db store.KVStore, op Operation) (*DeliverResult, error)
}

// Registry is used by the extension packages to declare which operations
// they handle.
type Registry interface {
	Handle(path string, h Handler)
}
