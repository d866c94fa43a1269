// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate provides configuration validation utilities for dart.
package validate

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// MaxNameLength bounds a source name, which doubles as a mount path segment.
const MaxNameLength = 32

// Error is one failed check of a single field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects failed checks so a config file reports every problem at once.
type Validator struct {
	errs []Error
}

// ValidationError is the aggregate returned by Validator.Err.
type ValidationError struct {
	errs []Error
}

// New returns an empty validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string, value any) {
	v.errs = append(v.errs, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) check(ok bool, field string, value any, format string, args ...any) {
	if !ok {
		v.AddError(field, fmt.Sprintf(format, args...), value)
	}
}

// IsValid reports whether no check failed.
func (v *Validator) IsValid() bool {
	return len(v.errs) == 0
}

// Errors returns the failed checks in order.
func (v *Validator) Errors() []Error {
	return v.errs
}

// Err returns nil or a ValidationError holding a copy of the failed checks.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{errs: slices.Clone(v.errs)}
}

// Errors returns the individual failed checks.
func (e ValidationError) Errors() []Error {
	return e.errs
}

// Fields returns the names of the failed fields.
func (e ValidationError) Fields() []string {
	out := make([]string, len(e.errs))
	for i, err := range e.errs {
		out[i] = err.Field
	}
	return out
}

// Unwrap exposes each failed check to errors.As.
func (e ValidationError) Unwrap() []error {
	out := make([]error, len(e.errs))
	for i, err := range e.errs {
		out[i] = err
	}
	return out
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// URL requires an absolute URL with a host and, when given, one of allowedSchemes.
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}
	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}
	if len(allowedSchemes) > 0 {
		v.check(slices.Contains(allowedSchemes, u.Scheme), field, value,
			"unsupported URL scheme %q (allowed: %s)", u.Scheme, strings.Join(allowedSchemes, ", "))
	}
}

// Port requires 1..65535.
func (v *Validator) Port(field string, port int) {
	v.check(port > 0 && port <= 65535, field, port, "port must be between 1 and 65535, got %d", port)
}

// Range requires minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	v.check(value >= minVal && value <= maxVal, field, value,
		"value must be between %d and %d, got %d", minVal, maxVal, value)
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	v.check(strings.TrimSpace(value) != "", field, value, "value cannot be empty")
}

// OneOf requires value to be in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	v.check(slices.Contains(allowed, value), field, value,
		"value must be one of %s, got %q", strings.Join(allowed, ", "), value)
}

// Positive requires value > 0.
func (v *Validator) Positive(field string, value int) {
	v.check(value > 0, field, value, "value must be positive, got %d", value)
}

// Name validates an identifier that ends up in a public mount path:
// 1 to MaxNameLength ASCII letters, digits, '-' or '_', starting with a letter or digit.
func (v *Validator) Name(field, value string) {
	if err := CheckName(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}

// CheckName returns a descriptive error when value is not a valid name.
func CheckName(value string) error {
	switch {
	case value == "":
		return fmt.Errorf("name cannot be empty")
	case len(value) > MaxNameLength:
		return fmt.Errorf("name must be at most %d characters, got %d", MaxNameLength, len(value))
	case !isAlnum(value[0]):
		return fmt.Errorf("name must start with a letter or digit")
	}
	for i := 1; i < len(value); i++ {
		if c := value[i]; !isAlnum(c) && c != '-' && c != '_' {
			return fmt.Errorf("name contains invalid character %q (allowed: a-z, A-Z, 0-9, '-', '_')", c)
		}
	}
	return nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
