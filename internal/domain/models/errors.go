package models

import (
	"errors"
	"fmt"
	"time"
)

// Engine error kinds. Callers discriminate with errors.As; every kind
// carries enough context to diagnose the input that caused it.

// InvalidSeriesError reports malformed input: unordered or duplicate
// dates, non-finite values, price range violations.
type InvalidSeriesError struct {
	Index  int // offending bar index, -1 when the series as a whole is bad
	Date   time.Time
	Reason string
}

func (e *InvalidSeriesError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid series: %s", e.Reason)
	}
	if e.Date.IsZero() {
		return fmt.Sprintf("invalid series at index %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid series at index %d (%s): %s", e.Index, e.Date.Format("2006-01-02"), e.Reason)
}

// InsufficientDataError reports that the available history cannot cover
// a requested window, lag depth, or horizon.
type InsufficientDataError struct {
	Op        string
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d rows, have %d", e.Op, e.Required, e.Available)
}

// SchemaMismatchError reports feature schema drift between training and
// prediction.
type SchemaMismatchError struct {
	ExpectedCount int
	GotCount      int
	Detail        string // first differing feature, when known
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("feature schema mismatch: trained with %d features, got %d", e.ExpectedCount, e.GotCount)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// DegenerateInputError reports input that is structurally valid but
// carries no usable signal, e.g. a zero-variance training target.
type DegenerateInputError struct {
	Op     string
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: degenerate input: %s", e.Op, e.Reason)
}

// ErrorKind maps err to a stable machine-readable code, used in API
// error bodies and as the metrics error label. Unrecognized errors map
// to "internal".
func ErrorKind(err error) string {
	var (
		invalid      *InvalidSeriesError
		insufficient *InsufficientDataError
		schema       *SchemaMismatchError
		degenerate   *DegenerateInputError
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid_series"
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.As(err, &schema):
		return "schema_mismatch"
	case errors.As(err, &degenerate):
		return "degenerate_input"
	default:
		return "internal"
	}
}
