package indicator

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// RSI computes the relative strength index with Wilder smoothing.
// The first defined value sits at index window, after the initial
// averages over the first window deltas. When the average loss is
// zero the index is 100, never a division by zero.
func RSI(closes []float64, window int) (models.IndicatorSeries, error) {
	op := fmt.Sprintf("rsi(%d)", window)
	if window < 1 {
		return models.IndicatorSeries{}, windowErr(op, window)
	}
	if len(closes) < window+1 {
		return models.IndicatorSeries{}, shortErr(op, window+1, len(closes))
	}

	s := models.NewIndicatorSeries(op, len(closes))
	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	p := float64(window)
	avgGain /= p
	avgLoss /= p
	s.Values[window] = rsiValue(avgGain, avgLoss)

	for i := window + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		s.Values[i] = rsiValue(avgGain, avgLoss)
	}
	s.DefinedFrom = window
	return s, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
