package service

import "errors"

// Sentinel kinds returned by the Service. The HTTP layer maps them to
// status codes.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrNoStore        = errors.New("service has no store")
	ErrUnauthorized   = errors.New("invalid api key")
	ErrForbidden      = errors.New("source not approved")
	ErrDuplicate      = errors.New("duplicate submission")
	ErrBackpressure   = errors.New("submission queue full")
	ErrUnavailable    = errors.New("service shutting down")
	ErrTimeout        = errors.New("submission timed out")
	ErrNotFound       = errors.New("not found")
	ErrInvalidQuery   = errors.New("invalid query")
	ErrInvalidSession = errors.New("invalid session")
)
