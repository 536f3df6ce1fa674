// Package apperr defines the closed error taxonomy carried through
// every layer of the API. Each error is one of five kinds; the kind is
// serialized as the "type" field of the error envelope so clients can
// distinguish a billing problem (tenant_inactive) from a login problem
// (authentication) without parsing messages.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the closed set of error categories.
type Kind int

const (
	// Critical is the fallback for anything unexpected: storage
	// failures, provider outages, unmapped errors.
	Critical Kind = iota
	// Validation marks malformed or missing caller input.
	Validation
	// Authentication marks a missing, invalid or expired token.
	Authentication
	// TenantInactive marks requests from members of a deactivated or
	// soft-deleted company.
	TenantInactive
	// Query marks a datastore rejection of an otherwise valid
	// operation (constraint violation, not found on mutate).
	Query
)

// String returns the wire tag for the kind.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case TenantInactive:
		return "tenant_inactive"
	case Query:
		return "query"
	default:
		return "critical"
	}
}

// Status returns the HTTP status the kind maps to.
func (k Kind) Status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case TenantInactive:
		return http.StatusForbidden
	case Query:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a kind-tagged error with a user-facing message. Wrapped
// causes stay internal; only Message reaches the response envelope.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a tagged error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a tagged error keeping the cause for logs.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// From returns err as an *Error, wrapping unknown errors as Critical
// with a generic message. Already-tagged errors pass through unchanged.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: Critical, Message: "Erro inesperado", cause: err}
}

// KindOf reports the kind of err, Critical for untagged errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Envelope is the JSON body returned for every failure.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ToEnvelope builds the response body for err.
func ToEnvelope(err error) Envelope {
	e := From(err)
	return Envelope{Type: e.Kind.String(), Message: e.Message}
}
