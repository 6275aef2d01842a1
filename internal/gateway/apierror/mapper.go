package apierror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
)

// Outcome is what the transport produced for one call: either a response
// (Status, Body) or a failure before any response arrived (Err).
type Outcome struct {
	Status int
	Body   []byte
	Err    error
}

// Empty is the result type for calls whose success carries no payload. An empty
// 2xx body decodes into Empty without error.
type Empty struct{}

// Normalize turns an outcome into either a decoded T or a *Error. It holds no
// state: the same outcome always yields the same result.
//
// Rules, first match wins:
//  1. transport failure                  -> upstream_unavailable, no status
//  2. 401                                -> unauthenticated
//  3. 403                                -> forbidden
//  4. 404                                -> not_found
//  5. 409                                -> conflict
//  6. 422, or 400 with a structured body -> validation
//  7. any other non-2xx                  -> unknown
//  8. 204                                -> zero T, success
//  9. 2xx body that does not decode as T -> unknown (MALFORMED_RESPONSE)
func Normalize[T any](o Outcome) (T, error) {
	var zero T

	if o.Err != nil {
		return zero, Transport(o.Err)
	}
	if e := Classify(o.Status, o.Body); e != nil {
		return zero, e
	}
	if o.Status == http.StatusNoContent {
		return zero, nil
	}

	var out T
	if _, ok := any(out).(Empty); ok && len(bytes.TrimSpace(o.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(o.Body, &out); err != nil {
		e := Wrap(KindUnknown, CodeMalformedResponse, "The server returned an unreadable response", err)
		e.HTTPStatus = o.Status
		return zero, e
	}
	return out, nil
}

// Transport classifies a failure that happened before any response was
// received. The code separates deadline, caller cancellation and plain
// unreachability; the kind is always upstream_unavailable.
func Transport(err error) *Error {
	if e, ok := As(err); ok {
		return e
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(KindUpstreamUnavailable, CodeRequestCanceled, "The request was canceled", err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return Wrap(KindUpstreamUnavailable, CodeRequestTimeout, "The request timed out", err)
	default:
		return Wrap(KindUpstreamUnavailable, CodeUpstreamUnavailable, "", err)
	}
}

// Classify maps a response status and body to a *Error, or nil for 2xx.
func Classify(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}

	env, structured := parseEnvelope(body)

	var kind Kind
	var fallbackCode string
	switch {
	case status == http.StatusUnauthorized:
		kind, fallbackCode = KindUnauthenticated, CodeUnauthenticated
	case status == http.StatusForbidden:
		kind, fallbackCode = KindForbidden, CodeForbidden
	case status == http.StatusNotFound:
		kind, fallbackCode = KindNotFound, CodeNotFound
	case status == http.StatusConflict:
		kind, fallbackCode = KindConflict, CodeConflict
	case status == http.StatusUnprocessableEntity,
		status == http.StatusBadRequest && structured:
		kind, fallbackCode = KindValidation, CodeValidation
	default:
		kind, fallbackCode = KindUnknown, CodeUnknown
	}

	code := env.Code
	if code == "" {
		code = fallbackCode
	}
	e := New(kind, code, env.Message)
	e.HTTPStatus = status
	return e
}

// envelope is the upstream error body: {"error": "...", "message": "..."}.
// Some services nest the details: {"error": {"code": "...", "message": "..."}}.
type envelope struct {
	Code    string
	Message string
}

// parseEnvelope reports structured=true only for a JSON object that carries an
// error code or message.
func parseEnvelope(body []byte) (envelope, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return envelope{}, false
	}

	var env envelope
	if raw, ok := fields["error"]; ok {
		var code string
		if json.Unmarshal(raw, &code) == nil {
			env.Code = code
		} else {
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &nested) == nil {
				env.Code = nested.Code
				env.Message = nested.Message
			}
		}
	}
	if raw, ok := fields["message"]; ok {
		var msg string
		if json.Unmarshal(raw, &msg) == nil && msg != "" {
			env.Message = msg
		}
	}

	return env, env.Code != "" || env.Message != ""
}
