package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Persisters and platform adapters return
// these (optionally wrapped) so callers can branch with errors.Is without knowing
// which backend produced them.
//
// These represent factual states, not request failures:
// - ErrNotFound: nothing stored under the requested key
// - ErrExpired: a stored session or token is past its expiry
// - ErrUnavailable: a backing service could not be reached
//
// Upstream request failures are never sentinels; they are always
// *apierror.Error values produced by the error mapper.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
