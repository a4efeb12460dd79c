// Package apperr defines the error taxonomy shared by stores, policies and
// handlers.
//
// Every failure that reaches the HTTP boundary is either an *Error with a
// Kind, or an arbitrary error which is treated as Internal. Status maps a
// Kind to its HTTP status code; the boundary never exposes the message of an
// Internal error to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Kind classifies an error for reporting.
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthenticated
	Forbidden
	NotFound
	DuplicateKey
	UploadRejected
	InvalidUpdate
	InvalidTransition
	InvalidToken
	InvalidCredentials
	RateLimited
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	Validation:         "validation",
	Unauthenticated:    "unauthenticated",
	Forbidden:          "forbidden",
	NotFound:           "not_found",
	DuplicateKey:       "duplicate_key",
	UploadRejected:     "upload_rejected",
	InvalidUpdate:      "invalid_update",
	InvalidTransition:  "invalid_transition",
	InvalidToken:       "invalid_token",
	InvalidCredentials: "invalid_credentials",
	RateLimited:        "rate_limited",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, &apperr.Error{Kind: apperr.NotFound})
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err under kind with a caller-facing message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Invalid builds a Validation error carrying every field failure. Fields are
// sorted by name so responses are stable.
func Invalid(fields []FieldError) *Error {
	out := make([]FieldError, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &Error{Kind: Validation, Message: "Validation failed", Fields: out}
}

// KindOf returns the Kind of err, or Internal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps an error to the HTTP status code reported to the caller.
func Status(err error) int {
	switch KindOf(err) {
	case Validation, DuplicateKey, UploadRejected, InvalidUpdate, InvalidTransition, InvalidToken:
		return http.StatusBadRequest
	case Unauthenticated, InvalidCredentials:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show the caller. Internal errors
// never reveal their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

// FieldsOf returns the field errors attached to err, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
