package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain error so handlers can map it to an HTTP status
// without string-matching messages.
type Kind string

const (
	// KindValidation: malformed or rule-violating input (self-request, type
	// mismatch, duplicate pending request, bad exchange offer). Never retried.
	KindValidation Kind = "validation_error"

	// KindAuthorization: the actor lacks permission for the operation.
	KindAuthorization Kind = "authorization_error"

	// KindState: the operation is illegal given the entity's current status
	// (transitioning a non-pending request, returning a non-rent transaction).
	KindState Kind = "state_error"

	// KindConflict: the store detected a concurrent conflicting mutation.
	// The caller may retry the whole transition once.
	KindConflict Kind = "conflict_error"

	// KindNotFound: the referenced entity does not exist.
	KindNotFound Kind = "not_found"
)

// Error is the domain error carried across the service boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// E builds a domain error of the given kind.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, or "" for non-domain errors.
func KindOf(err error) Kind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given domain kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// isUniqueViolation checks whether a PostgreSQL unique-constraint error
// occurred. PostgreSQL error code 23505 = unique_violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// isSerializationFailure checks for PostgreSQL serialization failures and
// deadlocks (40001 = serialization_failure, 40P01 = deadlock_detected). Both
// mean a concurrent transition won; the caller should retry once.
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "40001") || strings.Contains(err.Error(), "40P01")
}
