package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ValidationError reports a single payload violation. Field carries the
// offending field's apiKey and Rule the violated rule so callers can map the
// failure onto the exact form input.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidation(field, rule, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
