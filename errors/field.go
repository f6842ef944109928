package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field returns an error instance that wraps the original error with the
// name of the field this error refers to. It returns nil if the provided
// error is nil.
//
// Use Go naming for the field name, for example OwnerAuthority. For a
// nested field, use dot notation, for example Amounts.0.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}

	return &fieldError{
		parent: err,
		field:  fieldName,
		desc:   description,
	}
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (err *fieldError) Error() string {
	if err.desc == "" {
		return fmt.Sprintf("field %q: %s", err.field, err.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", err.field, err.desc, err.parent)
}

// Cause implements the causer interface.
func (err *fieldError) Cause() error {
	return err.parent
}

// Field returns the name of the field this error refers to.
func (err *fieldError) Field() string {
	return err.field
}

// FieldErrors returns the list of all errors that are created for the given
// field name.
func FieldErrors(err error, fieldName string) []error {
	switch e := err.(type) {
	case nil:
		return nil
	case *fieldError:
		if e.field == fieldName {
			return []error{e.parent}
		}
		return nil
	case *multiError:
		var res []error
		for _, err := range e.errs {
			res = append(res, FieldErrors(err, fieldName)...)
		}
		return res
	}
	return nil
}
