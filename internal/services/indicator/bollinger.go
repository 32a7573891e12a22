package indicator

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// Bollinger computes the upper, middle, and lower bands over the
// trailing window: middle is the SMA, the outer bands sit k sample
// standard deviations away. On a flat window the deviation is zero
// and all three bands coincide.
func Bollinger(closes []float64, window int, k float64) (models.IndicatorSeries, models.IndicatorSeries, models.IndicatorSeries, error) {
	var empty models.IndicatorSeries
	op := fmt.Sprintf("bollinger(%d)", window)
	if window < 2 {
		return empty, empty, empty, fmt.Errorf("%s: window must be >= 2 for a sample deviation, got %d", op, window)
	}
	if k <= 0 {
		return empty, empty, empty, fmt.Errorf("%s: band width must be positive, got %v", op, k)
	}
	if len(closes) < window {
		return empty, empty, empty, shortErr(op, window, len(closes))
	}

	middle, err := SMA(closes, window)
	if err != nil {
		return empty, empty, empty, err
	}
	middle.Name = "bb_middle"

	n := len(closes)
	upper := models.NewIndicatorSeries("bb_upper", n)
	lower := models.NewIndicatorSeries("bb_lower", n)
	w := float64(window)

	for i := window - 1; i < n; i++ {
		mean := middle.Values[i]
		var ss float64
		for j := i - window + 1; j <= i; j++ {
			d := closes[j] - mean
			ss += d * d
		}
		dev := k * math.Sqrt(ss/(w-1))
		upper.Values[i] = mean + dev
		lower.Values[i] = mean - dev
	}
	upper.DefinedFrom = window - 1
	lower.DefinedFrom = window - 1

	return upper, middle, lower, nil
}
