package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrInvalidFieldValue   = errors.New("invalid field value")
	ErrConfiguration       = errors.New("configuration error")
	ErrRemoteRejected      = errors.New("remote rejected record")
	ErrTransportFailure    = errors.New("transport failure")
)

// FieldError is a local validation failure for a single field.
type FieldError struct {
	Field  string
	Value  string
	Reason string
	Err    error // ErrInvalidNumberFormat or ErrInvalidFieldValue
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ConfigurationError lists the settings a record kind is missing.
type ConfigurationError struct {
	Kind    RecordKind
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Kind, strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
