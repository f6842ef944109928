package app

import (
	"testing"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/store"
)

type nopHandler struct{}

func (nopHandler) Deliver(ledger.Context, store.KVStore, ledger.Operation) (*ledger.DeliverResult, error) {
	return &ledger.DeliverResult{}, nil
}

func TestRouterRegistration(t *testing.T) {
	r := NewRouter()
	r.Handle("my_operation", nopHandler{})

	if r.Handler("my_operation") == nil {
		t.Fatal("registered handler not found")
	}
	if r.Handler("unknown") != nil {
		t.Fatal("unexpected handler")
	}
}

func TestRouterRejectsBadPath(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registration must panic")
		}
	}()
	NewRouter().Handle("NOT a path", nopHandler{})
}

func TestRouterRejectsDoubleRegistration(t *testing.T) {
	r := NewRouter()
	r.Handle("my_operation", nopHandler{})
	defer func() {
		if recover() == nil {
			t.Fatal("registration must panic")
		}
	}()
	r.Handle("my_operation", nopHandler{})
}
