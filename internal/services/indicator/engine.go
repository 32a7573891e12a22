package indicator

import (
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/logger"
)

// Engine computes the full indicator set for a series in one pass.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// ComputeAll runs every configured transform over the series and
// returns them keyed by canonical name. All series come back aligned
// to the input length; the call fails with InsufficientDataError when
// any transform has no defined row at all.
func (e *Engine) ComputeAll(series *models.Series, cfg models.IndicatorConfig) (models.IndicatorSet, error) {
	start := time.Now()
	closes := series.Closes()

	set := models.IndicatorSet{
		Config: cfg,
		Length: series.Len(),
		Series: make(map[string]models.IndicatorSeries, 10),
	}
	put := func(name string, s models.IndicatorSeries) {
		s.Name = name
		set.Series[name] = s
	}

	maShort, err := SMA(closes, cfg.MAShort)
	if err != nil {
		return models.IndicatorSet{}, err
	}
	put(models.IndMAShort, maShort)

	maLong, err := SMA(closes, cfg.MALong)
	if err != nil {
		return models.IndicatorSet{}, err
	}
	put(models.IndMALong, maLong)

	rsi, err := RSI(closes, cfg.RSIWindow)
	if err != nil {
		return models.IndicatorSet{}, err
	}
	put(models.IndRSI, rsi)

	line, sig, hist, err := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		return models.IndicatorSet{}, err
	}
	put(models.IndMACD, line)
	put(models.IndMACDSignal, sig)
	put(models.IndMACDHist, hist)

	upper, middle, lower, err := Bollinger(closes, cfg.BollingerWindow, cfg.BollingerK)
	if err != nil {
		return models.IndicatorSet{}, err
	}
	put(models.IndBBUpper, upper)
	put(models.IndBBMiddle, middle)
	put(models.IndBBLower, lower)

	atr, err := ATR(series.Highs(), series.Lows(), closes, cfg.ATRWindow)
	if err != nil {
		return models.IndicatorSet{}, err
	}
	put(models.IndATR, atr)

	e.log.Debug("indicators computed",
		logger.Int("bars", series.Len()),
		logger.Int("defined_from", set.DefinedFrom()),
		logger.Duration("took", time.Since(start)))

	return set, nil
}

// Enrich pairs the series with its computed indicator set.
func (e *Engine) Enrich(series *models.Series, cfg models.IndicatorConfig) (models.EnrichedSeries, error) {
	set, err := e.ComputeAll(series, cfg)
	if err != nil {
		return models.EnrichedSeries{}, err
	}
	return models.EnrichedSeries{Series: series, Indicators: set}, nil
}
