package validation

import (
	"sort"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation"
)

// Error aggregates field-level validation failures
type Error struct {
	Details map[string]string
}

// Error implements the error interface
func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Details[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds an Error for a single field
func Field(name, message string) *Error {
	return &Error{Details: map[string]string{name: message}}
}

// fromErrors converts ozzo field errors into an *Error, or nil when none failed
func fromErrors(errs ozzo.Errors) error {
	filtered := errs.Filter()
	if filtered == nil {
		return nil
	}

	fieldErrs, ok := filtered.(ozzo.Errors)
	if !ok {
		return &Error{Details: map[string]string{"request": filtered.Error()}}
	}

	details := make(map[string]string, len(fieldErrs))
	for field, err := range fieldErrs {
		details[field] = err.Error()
	}
	return &Error{Details: details}
}
