package indicator

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// SMA computes the simple moving average over the trailing window.
// The first defined value sits at index window-1.
func SMA(values []float64, window int) (models.IndicatorSeries, error) {
	op := fmt.Sprintf("sma(%d)", window)
	if window < 1 {
		return models.IndicatorSeries{}, windowErr(op, window)
	}
	if len(values) < window {
		return models.IndicatorSeries{}, shortErr(op, window, len(values))
	}

	s := models.NewIndicatorSeries(op, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			s.Values[i] = sum / float64(window)
		}
	}
	s.DefinedFrom = window - 1
	return s, nil
}
