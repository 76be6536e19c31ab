package account

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	// ErrDuplicateAlias indicates an account with the alias already exists.
	ErrDuplicateAlias = errors.New("account already exists")

	// ErrNotFound indicates no account has the alias.
	ErrNotFound = errors.New("account not found")

	// ErrKeyNotFound indicates the SSH private key file does not exist.
	ErrKeyNotFound = errors.New("ssh key not found")

	// ErrInvalidField is the sentinel every *FieldError unwraps to.
	ErrInvalidField = errors.New("invalid field")
)

// FieldError reports a value that failed validation.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}
