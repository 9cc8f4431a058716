package config

import "errors"

// Config failures callers can match with errors.Is. Load wraps
// ErrLoadConfig around file, dotenv and env read errors; Validate wraps
// ErrInvalidConfig around the first rejected setting.
var (
	ErrInvalidConfig = errors.New("invalid mahjic configuration")
	ErrLoadConfig    = errors.New("read mahjic configuration")
)
