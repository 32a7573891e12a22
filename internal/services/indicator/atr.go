package indicator

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// ATR computes the average true range with Wilder smoothing. True
// range needs the previous close, so the first range exists at index
// 1 and the first ATR at index window.
func ATR(highs, lows, closes []float64, window int) (models.IndicatorSeries, error) {
	op := fmt.Sprintf("atr(%d)", window)
	if window < 1 {
		return models.IndicatorSeries{}, windowErr(op, window)
	}
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return models.IndicatorSeries{}, fmt.Errorf("%s: high/low/close lengths differ: %d/%d/%d", op, len(highs), len(lows), len(closes))
	}
	if len(closes) < window+1 {
		return models.IndicatorSeries{}, shortErr(op, window+1, len(closes))
	}

	s := models.NewIndicatorSeries(op, len(closes))
	var atr float64
	for i := 1; i <= window; i++ {
		atr += trueRange(highs[i], lows[i], closes[i-1])
	}
	p := float64(window)
	atr /= p
	s.Values[window] = atr

	for i := window + 1; i < len(closes); i++ {
		tr := trueRange(highs[i], lows[i], closes[i-1])
		atr = (atr*(p-1) + tr) / p
		s.Values[i] = atr
	}
	s.DefinedFrom = window
	return s, nil
}

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if d := math.Abs(high - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - prevClose); d > tr {
		tr = d
	}
	return tr
}
