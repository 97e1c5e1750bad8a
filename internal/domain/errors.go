package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies transfer resolution failures
type ErrorKind string

const (
	KindInvalidTransaction     ErrorKind = "InvalidTransaction"
	KindInvalidPayee           ErrorKind = "InvalidPayee"
	KindInvalidPayeeGroup      ErrorKind = "InvalidPayeeGroup"
	KindInvalidPayeeDependency ErrorKind = "InvalidPayeeDependency"
)

// Error is a structured payee/transaction validation error.
// Field locates the offending input, e.g. "payees[2].minimumAmount".
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

// Error returns the formatted error string
func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalidPayee) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// Public reports whether the error may be shown to a client.
// InvalidTransaction means the server built a bad transaction and must not leak.
func (e *Error) Public() bool {
	return e.Kind != KindInvalidTransaction
}

// NewError creates a structured error of the given kind
func NewError(kind ErrorKind, field, message string) error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// Sentinels for errors.Is
var (
	ErrInvalidTransaction     = &Error{Kind: KindInvalidTransaction}
	ErrInvalidPayee           = &Error{Kind: KindInvalidPayee}
	ErrInvalidPayeeGroup      = &Error{Kind: KindInvalidPayeeGroup}
	ErrInvalidPayeeDependency = &Error{Kind: KindInvalidPayeeDependency}

	ErrScheduleNotFound    = errors.New("payee schedule not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// IsPublic reports whether err may be exposed to a client as-is
func IsPublic(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Public()
	}

	return false
}
