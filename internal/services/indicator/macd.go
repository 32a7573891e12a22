package indicator

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// MACD computes the MACD line (fast EMA minus slow EMA), its signal
// line (EMA of the defined MACD values), and the histogram. The line
// is defined from index slow-1, the signal and histogram from
// slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) (models.IndicatorSeries, models.IndicatorSeries, models.IndicatorSeries, error) {
	var empty models.IndicatorSeries
	op := fmt.Sprintf("macd(%d,%d,%d)", fast, slow, signal)
	if fast < 1 || slow < 1 || signal < 1 {
		return empty, empty, empty, windowErr(op, min(fast, slow, signal))
	}
	if fast >= slow {
		return empty, empty, empty, fmt.Errorf("%s: fast span %d must be below slow span %d", op, fast, slow)
	}
	required := slow + signal - 1
	if len(closes) < required {
		return empty, empty, empty, shortErr(op, required, len(closes))
	}

	emaFast, err := EMA(closes, fast)
	if err != nil {
		return empty, empty, empty, err
	}
	emaSlow, err := EMA(closes, slow)
	if err != nil {
		return empty, empty, empty, err
	}

	n := len(closes)
	line := models.NewIndicatorSeries("macd", n)
	for i := slow - 1; i < n; i++ {
		line.Values[i] = emaFast.Values[i] - emaSlow.Values[i]
	}
	line.DefinedFrom = slow - 1

	// The signal EMA runs over the defined tail of the line only, so
	// NaN warm-up values never leak into the smoothing.
	tail, err := EMA(line.Values[line.DefinedFrom:], signal)
	if err != nil {
		return empty, empty, empty, err
	}
	sig := models.NewIndicatorSeries("macd_signal", n)
	for j := tail.DefinedFrom; j < len(tail.Values); j++ {
		sig.Values[line.DefinedFrom+j] = tail.Values[j]
	}
	sig.DefinedFrom = slow + signal - 2

	hist := models.NewIndicatorSeries("macd_hist", n)
	for i := sig.DefinedFrom; i < n; i++ {
		hist.Values[i] = line.Values[i] - sig.Values[i]
	}
	hist.DefinedFrom = sig.DefinedFrom

	return line, sig, hist, nil
}
