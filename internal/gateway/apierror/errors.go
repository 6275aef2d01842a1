package apierror

import (
	"errors"
	"fmt"
)

// Kind is the closed failure taxonomy every gateway call resolves to.
// Presentation code switches on Kind and never inspects raw status codes.
type Kind string

const (
	// KindUnauthenticated means there is no valid credential (HTTP 401).
	KindUnauthenticated Kind = "unauthenticated"

	// KindForbidden means the identity lacks permission (HTTP 403 or a local role check).
	KindForbidden Kind = "forbidden"

	// KindNotFound means the addressed resource doesn't exist (HTTP 404).
	KindNotFound Kind = "not_found"

	// KindValidation means the upstream rejected the payload (HTTP 422, or 400 with a structured body).
	KindValidation Kind = "validation"

	// KindConflict means the write collided with current state (HTTP 409).
	KindConflict Kind = "conflict"

	// KindUpstreamUnavailable means no response was ever received.
	KindUpstreamUnavailable Kind = "upstream_unavailable"

	// KindUnknown covers every other failure, including malformed success bodies.
	KindUnknown Kind = "unknown"
)

// Stable machine-readable codes used when the upstream body does not supply one.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeRequestTimeout      = "REQUEST_TIMEOUT"
	CodeRequestCanceled     = "REQUEST_CANCELED"
	CodeUnknown             = "UNKNOWN_ERROR"
	CodeMalformedResponse   = "MALFORMED_RESPONSE"
	CodeResponseTooLarge    = "RESPONSE_TOO_LARGE"
	CodeInvalidRequestBody  = "INVALID_REQUEST_BODY"
	CodeInvalidRequest      = "INVALID_REQUEST"
)

var defaultMessages = map[Kind]string{
	KindUnauthenticated:     "Authentication required",
	KindForbidden:           "You do not have permission to perform this action",
	KindNotFound:            "The requested resource was not found",
	KindValidation:          "The request was invalid",
	KindConflict:            "The request conflicts with the current state of the resource",
	KindUpstreamUnavailable: "Backend unavailable",
	KindUnknown:             "An unknown error occurred",
}

// DefaultMessage returns the human message used when nothing better is known.
func DefaultMessage(k Kind) string {
	if msg, ok := defaultMessages[k]; ok {
		return msg
	}
	return defaultMessages[KindUnknown]
}

// Error is the normalized representation of any gateway failure.
// HTTPStatus is zero when no response was received.
type Error struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"httpStatus,omitempty"`

	cause error
}

// New builds an Error, filling in the default message when msg is empty.
func New(kind Kind, code, msg string) *Error {
	if msg == "" {
		msg = DefaultMessage(kind)
	}
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Wrap builds an Error that unwraps to cause.
func Wrap(kind Kind, code, msg string, cause error) *Error {
	e := New(kind, code, msg)
	e.cause = cause
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s [%s] (status %d): %s", e.Code, e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Kind, e.Message)
}

// Unwrap exposes the transport failure, if any, so callers can still match
// context.Canceled or net errors with errors.Is.
func (e *Error) Unwrap() error {
	return e.cause
}

// HasStatus reports whether the error was produced from an upstream response.
func (e *Error) HasStatus() bool {
	return e.HTTPStatus != 0
}

// As extracts the normalized error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown for anything that is not a
// normalized error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// HasKind reports whether err is a normalized error of the given kind.
func HasKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Retryable is advisory for callers that implement their own backoff. Nothing in
// the gateway retries on its own.
func Retryable(err error) bool {
	return HasKind(err, KindUpstreamUnavailable)
}

// From normalizes an arbitrary error so nothing unstructured escapes to callers.
// Normalized errors pass through unchanged.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Wrap(KindUnknown, CodeUnknown, "", err)
}
