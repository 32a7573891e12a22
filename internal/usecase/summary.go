package usecase

import (
	"FinCast/internal/domain/models"
)

// RSI thresholds for the stance read. Conventional 70/30 bounds.
const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Summarize derives a per-indicator stance view from the latest defined
// indicator values plus an overall verdict. Indicators still inside
// their warm-up window contribute nothing.
func Summarize(symbol string, enriched models.EnrichedSeries) (models.IndicatorSummary, error) {
	latest := enriched.Indicators.Latest()
	if len(latest) == 0 {
		return models.IndicatorSummary{}, &models.InsufficientDataError{
			Op:        "indicator summary",
			Required:  enriched.Indicators.DefinedFrom() + 1,
			Available: enriched.Len(),
		}
	}

	close := enriched.Series.Last().Close
	sum := models.IndicatorSummary{
		Symbol: symbol,
		AsOf:   enriched.Series.Last().Date,
	}

	if rsi, ok := latest[models.IndRSI]; ok {
		sum.Signals = append(sum.Signals, rsiSignal(rsi))
	}
	if line, ok := latest[models.IndMACD]; ok {
		if signal, ok := latest[models.IndMACDSignal]; ok {
			sum.Signals = append(sum.Signals, macdSignal(line, signal))
		}
	}
	if ma, ok := latest[models.IndMAShort]; ok {
		sum.Signals = append(sum.Signals, maSignal(models.IndMAShort, close, ma))
	}
	if ma, ok := latest[models.IndMALong]; ok {
		sum.Signals = append(sum.Signals, maSignal(models.IndMALong, close, ma))
	}
	upper, okU := latest[models.IndBBUpper]
	lower, okL := latest[models.IndBBLower]
	if okU && okL {
		sum.Signals = append(sum.Signals, bollingerSignal(close, upper, lower))
	}

	var bull, bear int
	for _, s := range sum.Signals {
		switch s.Stance {
		case models.StanceBullish:
			bull++
		case models.StanceBearish:
			bear++
		}
	}
	sum.Score = float64(bull-bear) / float64(len(sum.Signals))
	switch {
	case sum.Score > 0:
		sum.Verdict = models.StanceBullish
	case sum.Score < 0:
		sum.Verdict = models.StanceBearish
	default:
		sum.Verdict = models.StanceNeutral
	}
	return sum, nil
}

func rsiSignal(rsi float64) models.IndicatorSignal {
	s := models.IndicatorSignal{Indicator: models.IndRSI, Value: rsi, Stance: models.StanceNeutral}
	switch {
	case rsi > rsiOverbought:
		s.Stance = models.StanceBearish
		s.Note = "overbought"
	case rsi < rsiOversold:
		s.Stance = models.StanceBullish
		s.Note = "oversold"
	}
	return s
}

func macdSignal(line, signal float64) models.IndicatorSignal {
	s := models.IndicatorSignal{Indicator: models.IndMACD, Value: line, Stance: models.StanceNeutral}
	switch {
	case line > signal:
		s.Stance = models.StanceBullish
		s.Note = "line above signal"
	case line < signal:
		s.Stance = models.StanceBearish
		s.Note = "line below signal"
	}
	return s
}

func maSignal(name string, close, ma float64) models.IndicatorSignal {
	s := models.IndicatorSignal{Indicator: name, Value: ma, Stance: models.StanceNeutral}
	switch {
	case close > ma:
		s.Stance = models.StanceBullish
		s.Note = "close above average"
	case close < ma:
		s.Stance = models.StanceBearish
		s.Note = "close below average"
	}
	return s
}

// bollingerSignal reports %B, close's position inside the band. A
// collapsed band (flat window) reads as mid-band neutral.
func bollingerSignal(close, upper, lower float64) models.IndicatorSignal {
	pctB := 0.5
	if upper > lower {
		pctB = (close - lower) / (upper - lower)
	}
	s := models.IndicatorSignal{Indicator: "bollinger", Value: pctB, Stance: models.StanceNeutral}
	switch {
	case close > upper:
		s.Stance = models.StanceBearish
		s.Note = "close above upper band"
	case close < lower:
		s.Stance = models.StanceBullish
		s.Note = "close below lower band"
	}
	return s
}
