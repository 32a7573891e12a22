// Package indicator implements the deterministic technical transforms:
// moving averages, RSI, MACD, Bollinger Bands, and ATR. All functions
// are batch recurrences over an ordered series with an explicit
// defined-from index; warm-up rows are undefined, never zero-filled.
package indicator

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// windowErr reports a misconfigured lookback window.
func windowErr(op string, window int) error {
	return fmt.Errorf("%s: window must be >= 1, got %d", op, window)
}

// shortErr reports history too short for the first definable row.
func shortErr(op string, required, available int) error {
	return &models.InsufficientDataError{Op: op, Required: required, Available: available}
}
