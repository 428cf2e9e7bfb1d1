package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const isoDate = "2006-01-02"

const (
	ValueText   ValueKind = "text"
	ValueNumber ValueKind = "number"
	ValueDate   ValueKind = "date"
)

type (
	ValueKind string

	Date struct {
		time.Time
	}

	// FieldValue is raw form input for one field: text for most fields, a
	// calendar date for date fields.
	FieldValue struct {
		Text string
		Date Date
	}

	// RawInput maps field names to unvalidated values.
	RawInput map[string]FieldValue

	// Value is one typed, validated field value.
	Value struct {
		Kind   ValueKind
		Text   string
		Number decimal.Decimal
		Date   Date
	}

	// Record is a validated record for one kind. It only lives for the
	// duration of a submission.
	Record struct {
		Kind   RecordKind
		Values map[string]Value
	}

	// SubmissionResult is the outcome of delivering one record.
	SubmissionResult struct {
		Accepted   bool   `json:"accepted"`
		HTTPStatus int    `json:"http_status"`
		Detail     string `json:"detail,omitempty"`
		RemoteID   string `json:"remote_id,omitempty"`
		Attempts   int    `json:"attempts"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Today returns the current local date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// TextValue wraps a raw string.
func TextValue(s string) FieldValue {
	return FieldValue{Text: s}
}

// DateValue wraps a calendar date.
func DateValue(d Date) FieldValue {
	return FieldValue{Date: d}
}

// String renders the value the way it would be shown back in a form.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return v.Number.String()
	case ValueDate:
		return v.Date.ISO()
	default:
		return v.Text
	}
}

// Err classifies a failed result. It returns nil for accepted results.
func (r SubmissionResult) Err() error {
	switch {
	case r.Accepted:
		return nil
	case r.HTTPStatus == 0:
		if r.Detail == "" {
			return ErrTransportFailure
		}
		return fmt.Errorf("%w: %s", ErrTransportFailure, r.Detail)
	default:
		if r.Detail == "" {
			return fmt.Errorf("%w: status %d", ErrRemoteRejected, r.HTTPStatus)
		}
		return fmt.Errorf("%w: status %d: %s", ErrRemoteRejected, r.HTTPStatus, r.Detail)
	}
}
