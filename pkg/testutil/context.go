package testutil

import (
	"net/http"
	"time"

	"teamhub/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context, as the chi RequestID
// middleware would for live traffic.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithBearer sets a Bearer Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
