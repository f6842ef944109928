package errors

import "strings"

// Append clubs together two errors. Any of provided errors can be nil.
// Result of combining two errors is flattened, so that appending to a
// result of a previous append extends the existing collection.
func Append(a, b error) error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}

	var errs []error
	if m, ok := a.(*multiError); ok {
		errs = append(errs, m.errs...)
	} else {
		errs = append(errs, a)
	}
	if m, ok := b.(*multiError); ok {
		errs = append(errs, m.errs...)
	} else {
		errs = append(errs, b)
	}
	return &multiError{errs: errs}
}

// multiError is a collection of errors that behaves like a single error.
type multiError struct {
	errs []error
}

func (m *multiError) Error() string {
	switch len(m.errs) {
	case 0:
		return "<nil>"
	case 1:
		return m.errs[0].Error()
	}
	descs := make([]string, len(m.errs))
	for i, err := range m.errs {
		descs[i] = err.Error()
	}
	return strings.Join(descs, "; ")
}

// Cause returns the first error of the collection. A multi error is
// reported to the client with the code of its first member, consistent
// with the fail-fast validation approach.
func (m *multiError) Cause() error {
	if len(m.errs) == 0 {
		return nil
	}
	return m.errs[0]
}
