package repository

import "github.com/pkg/errors"

// Sentinel kinds for store errors. Driver errors are wrapped with context and
// still match these with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflicting record")
	ErrUnknownDriver = errors.New("unknown database driver")
)
