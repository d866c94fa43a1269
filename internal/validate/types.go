// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import "github.com/rs/zerolog"

// LogLevels are the level names the configuration accepts.
var LogLevels = []string{"debug", "info", "warn", "error"}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = &Error{
	Field:   "log.level",
	Message: "invalid log level (must be: debug, info, warn, error)",
}

// ParseLogLevel maps an accepted level name to its zerolog level. zerolog's
// own names beyond LogLevels (trace, fatal, panic, disabled) are rejected.
func ParseLogLevel(s string) (zerolog.Level, error) {
	for _, name := range LogLevels {
		if s == name {
			return zerolog.ParseLevel(s)
		}
	}
	return zerolog.NoLevel, ErrInvalidLogLevel
}
