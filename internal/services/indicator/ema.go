package indicator

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// EMA computes the exponential moving average with smoothing factor
// 2/(span+1). The value at index span-1 is seeded with the simple
// average of the first span values, so two runs over the same input
// are bit-identical.
func EMA(values []float64, span int) (models.IndicatorSeries, error) {
	op := fmt.Sprintf("ema(%d)", span)
	if span < 1 {
		return models.IndicatorSeries{}, windowErr(op, span)
	}
	if len(values) < span {
		return models.IndicatorSeries{}, shortErr(op, span, len(values))
	}

	s := models.NewIndicatorSeries(op, len(values))
	k := 2.0 / float64(span+1)

	seed := 0.0
	for i := 0; i < span; i++ {
		seed += values[i]
	}
	current := seed / float64(span)
	s.Values[span-1] = current

	for i := span; i < len(values); i++ {
		current = values[i]*k + current*(1-k)
		s.Values[i] = current
	}
	s.DefinedFrom = span - 1
	return s, nil
}
