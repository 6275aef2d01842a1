package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestClassify_StatusPriority(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantCode string
		wantMsg  string
	}{
		{"401 without body", 401, ``, KindUnauthenticated, CodeUnauthenticated, DefaultMessage(KindUnauthenticated)},
		{"401 with upstream code", 401, `{"error":"TOKEN_EXPIRED","message":"Token expired"}`, KindUnauthenticated, "TOKEN_EXPIRED", "Token expired"},
		{"403", 403, `{"error":"FORBIDDEN","message":"Admins only"}`, KindForbidden, "FORBIDDEN", "Admins only"},
		{"404 with html body", 404, `<html>nope</html>`, KindNotFound, CodeNotFound, DefaultMessage(KindNotFound)},
		{"409", 409, `{"error":"SLUG_TAKEN"}`, KindConflict, "SLUG_TAKEN", DefaultMessage(KindConflict)},
		{"422 structured", 422, `{"error":"VALIDATION_ERROR","message":"name is required"}`, KindValidation, "VALIDATION_ERROR", "name is required"},
		{"422 unstructured", 422, `unprocessable`, KindValidation, CodeValidation, DefaultMessage(KindValidation)},
		{"400 structured", 400, `{"message":"description too long"}`, KindValidation, CodeValidation, "description too long"},
		{"400 unstructured", 400, `bad request`, KindUnknown, CodeUnknown, DefaultMessage(KindUnknown)},
		{"400 json without error fields", 400, `{"foo":"bar"}`, KindUnknown, CodeUnknown, DefaultMessage(KindUnknown)},
		{"500 structured", 500, `{"error":"DB_DOWN","message":"database unavailable"}`, KindUnknown, "DB_DOWN", "database unavailable"},
		{"502 from the proxy", 502, `{"error":"BAD_GATEWAY","message":"Backend unavailable"}`, KindUnknown, "BAD_GATEWAY", "Backend unavailable"},
		{"503 plain text", 503, `Service Unavailable`, KindUnknown, CodeUnknown, DefaultMessage(KindUnknown)},
		{"nested error object", 409, `{"error":{"code":"VERSION_MISMATCH","message":"stale write"}}`, KindConflict, "VERSION_MISMATCH", "stale write"},
		{"3xx is not success", 302, ``, KindUnknown, CodeUnknown, DefaultMessage(KindUnknown)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Classify(tt.status, []byte(tt.body))
			require.NotNil(t, e)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.Equal(t, tt.status, e.HTTPStatus)
		})
	}
}

func TestClassify_SuccessIsNil(t *testing.T) {
	for _, status := range []int{200, 201, 202, 204, 299} {
		assert.Nil(t, Classify(status, nil), "status %d", status)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	body := []byte(`{"error":"NAME_TAKEN","message":"exists"}`)

	first := Classify(http.StatusConflict, body)
	second := Classify(http.StatusConflict, body)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestNormalize(t *testing.T) {
	t.Run("404 with any body is not_found", func(t *testing.T) {
		for _, body := range []string{``, `{}`, `not json`, `{"error":"PROJECT_NOT_FOUND"}`} {
			_, err := Normalize[project](Outcome{Status: 404, Body: []byte(body)})
			assert.True(t, HasKind(err, KindNotFound), "body %q", body)
		}
	})

	t.Run("204 with empty body is success with zero value", func(t *testing.T) {
		got, err := Normalize[project](Outcome{Status: http.StatusNoContent})
		require.NoError(t, err)
		assert.Equal(t, project{}, got)
	})

	t.Run("200 decodes the payload", func(t *testing.T) {
		got, err := Normalize[project](Outcome{Status: 200, Body: []byte(`{"id":"p1","name":"Apollo"}`)})
		require.NoError(t, err)
		assert.Equal(t, project{ID: "p1", Name: "Apollo"}, got)
	})

	t.Run("malformed 2xx body is unknown with status", func(t *testing.T) {
		_, err := Normalize[project](Outcome{Status: 200, Body: []byte(`{"id":`)})
		e, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, KindUnknown, e.Kind)
		assert.Equal(t, CodeMalformedResponse, e.Code)
		assert.Equal(t, 200, e.HTTPStatus)
	})

	t.Run("empty 200 body is malformed for a typed result", func(t *testing.T) {
		_, err := Normalize[project](Outcome{Status: 200})
		assert.True(t, HasKind(err, KindUnknown))
	})

	t.Run("empty 200 body is fine when nothing is expected", func(t *testing.T) {
		_, err := Normalize[Empty](Outcome{Status: 200})
		assert.NoError(t, err)
	})

	t.Run("transport failure is upstream_unavailable without status", func(t *testing.T) {
		cause := fmt.Errorf("dial tcp 127.0.0.1:1: %w", syscall.ECONNREFUSED)
		_, err := Normalize[project](Outcome{Err: cause})

		e, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, KindUpstreamUnavailable, e.Kind)
		assert.Equal(t, CodeUpstreamUnavailable, e.Code)
		assert.Equal(t, "Backend unavailable", e.Message)
		assert.False(t, e.HasStatus())
		assert.ErrorIs(t, err, syscall.ECONNREFUSED)
		assert.True(t, Retryable(err))
	})

	t.Run("transport failure wins over any status", func(t *testing.T) {
		_, err := Normalize[project](Outcome{Status: 200, Body: []byte(`{}`), Err: errors.New("reset")})
		assert.True(t, HasKind(err, KindUpstreamUnavailable))
	})

	t.Run("idempotent for the same status and body", func(t *testing.T) {
		o := Outcome{Status: 422, Body: []byte(`{"error":"VALIDATION_ERROR","message":"bad"}`)}
		_, first := Normalize[project](o)
		_, second := Normalize[project](o)
		assert.Equal(t, first, second)
	})
}

func TestTransport(t *testing.T) {
	t.Run("deadline", func(t *testing.T) {
		e := Transport(fmt.Errorf("Get: %w", context.DeadlineExceeded))
		assert.Equal(t, KindUpstreamUnavailable, e.Kind)
		assert.Equal(t, CodeRequestTimeout, e.Code)
	})

	t.Run("caller cancellation", func(t *testing.T) {
		e := Transport(context.Canceled)
		assert.Equal(t, KindUpstreamUnavailable, e.Kind)
		assert.Equal(t, CodeRequestCanceled, e.Code)
		assert.ErrorIs(t, e, context.Canceled)
	})

	t.Run("already normalized passes through", func(t *testing.T) {
		in := New(KindForbidden, CodeForbidden, "")
		assert.Same(t, in, Transport(in))
	})
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	plain := errors.New("boom")
	e := From(plain)
	assert.Equal(t, KindUnknown, e.Kind)
	assert.Equal(t, CodeUnknown, e.Code)
	assert.NotEmpty(t, e.Message)
	assert.ErrorIs(t, e, plain)

	wrapped := fmt.Errorf("list projects: %w", New(KindConflict, CodeConflict, ""))
	assert.Equal(t, KindConflict, From(wrapped).Kind)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(plain))
}

func TestErrorString(t *testing.T) {
	e := New(KindNotFound, CodeNotFound, "")
	e.HTTPStatus = 404
	assert.Equal(t, "NOT_FOUND [not_found] (status 404): The requested resource was not found", e.Error())

	assert.Equal(t, "UPSTREAM_UNAVAILABLE [upstream_unavailable]: Backend unavailable",
		New(KindUpstreamUnavailable, CodeUpstreamUnavailable, "").Error())
}
