// Package assert provides the few test assertions used across the ledger
// packages, so that extension tests do not pull in a third party matcher.
package assert

import (
	"reflect"
	"testing"

	"github.com/golos-one/ledger/errors"
)

// Nil fails the test if the value is neither nil nor a nil pointer, slice,
// map, channel or function.
func Nil(t testing.TB, value interface{}) {
	t.Helper()
	if value == nil {
		return
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		if v.IsNil() {
			return
		}
	}
	// Use %+v so that an error carrying a stack trace prints it whole.
	t.Fatalf("want a nil value, got %+v", value)
}

// IsErr fails the test unless got matches the wanted error. A nil want
// requires a nil got.
func IsErr(t testing.TB, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if m, ok := want.(interface{ Is(error) bool }); ok && m.Is(got) {
		return
	}
	t.Fatalf("want %q, got %+v", want, got)
}

// FieldError ensures that the error holds exactly one annotation for the
// named field and that it matches want. A nil want asserts that the field
// carries no error.
func FieldError(t testing.TB, err error, fieldName string, want *errors.Error) {
	t.Helper()
	errs := errors.FieldErrors(err, fieldName)
	if want == nil {
		if len(errs) != 0 {
			t.Fatalf("field %q: want no error, got %q", fieldName, errs)
		}
		return
	}
	if len(errs) != 1 {
		t.Fatalf("field %q: want one error, got %d: %q", fieldName, len(errs), errs)
	}
	if !want.Is(errs[0]) {
		t.Fatalf("field %q: unexpected error: %q", fieldName, errs[0])
	}
}
