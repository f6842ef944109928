package app

import (
	"fmt"
	"regexp"

	"github.com/golos-one/ledger"
)

var isPath = regexp.MustCompile(`^[a-z0-9_]+$`).MatchString

// Router dispatches operations to their handlers by path.
type Router struct {
	handlers map[string]ledger.Handler
}

var _ ledger.Registry = (*Router)(nil)

func NewRouter() *Router {
	return &Router{handlers: make(map[string]ledger.Handler)}
}

// Handle binds a handler to an operation path. Each path can be bound only
// once and the whole set is fixed during the application setup, so a
// repeated registration is a programmer error.
func (r *Router) Handle(path string, h ledger.Handler) {
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path %q", path))
	}
	if _, ok := r.handlers[path]; ok {
		panic(fmt.Sprintf("handler for %q already registered", path))
	}
	r.handlers[path] = h
}

// Handler returns the handler bound to given path, or nil.
func (r *Router) Handler(path string) ledger.Handler {
	return r.handlers[path]
}
