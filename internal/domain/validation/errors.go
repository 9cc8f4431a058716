package validation

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidJSON is returned when the body is not parseable JSON.
	ErrInvalidJSON = errors.New("request body must be valid JSON")
	// ErrInvalidSession matches every Errors value.
	ErrInvalidSession = errors.New("invalid session")
)

// FieldError is one violation, addressed by a JSON path such as
// rounds[0].players[2].mahjongs.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// Errors collects every violation found in a submission.
type Errors []FieldError

func (e Errors) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Is makes errors.Is(err, ErrInvalidSession) hold for any Errors.
func (e Errors) Is(target error) bool { return target == ErrInvalidSession }

// Messages returns the messages in the order they were found.
func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Message
	}
	return out
}
