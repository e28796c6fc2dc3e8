package model

import (
	"errors"
	"fmt"
)

// ErrInvalidExecutorKey reports an allocation key that lacks the expected
// executor-id and timestamp segments.
var ErrInvalidExecutorKey = errors.New("invalid executor key")

// MissingFieldError reports a builder invoked without a mandatory
// attribute. Builders never substitute defaults for required fields.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// missingField is a shorthand used by the builders in this package.
func missingField(name string) error {
	return &MissingFieldError{Field: name}
}
