package models

import "math"

// Canonical indicator names used across the engine, cache keys, and API
// payloads.
const (
	IndMAShort    = "ma_short"
	IndMALong     = "ma_long"
	IndRSI        = "rsi"
	IndMACD       = "macd"
	IndMACDSignal = "macd_signal"
	IndMACDHist   = "macd_hist"
	IndBBUpper    = "bb_upper"
	IndBBMiddle   = "bb_middle"
	IndBBLower    = "bb_lower"
	IndATR        = "atr"
)

// IndicatorNames lists every indicator in canonical order. Feature
// schemas, API payloads, and CSV exports all follow it.
func IndicatorNames() []string {
	return []string{
		IndMAShort, IndMALong, IndRSI,
		IndMACD, IndMACDSignal, IndMACDHist,
		IndBBUpper, IndBBMiddle, IndBBLower,
		IndATR,
	}
}

// IndicatorConfig holds the lookback windows for one ComputeAll pass.
type IndicatorConfig struct {
	MAShort         int
	MALong          int
	RSIWindow       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerWindow int
	BollingerK      float64
	ATRWindow       int
}

// DefaultIndicatorConfig returns the conventional daily-bar windows.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		MAShort:         20,
		MALong:          50,
		RSIWindow:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerWindow: 20,
		BollingerK:      2.0,
		ATRWindow:       14,
	}
}

// IndicatorSeries is one indicator aligned to its source series. Rows
// before DefinedFrom are warm-up: undefined, never zero. Undefined slots
// hold NaN internally, but the contract is DefinedFrom; callers check
// Defined(i), not IsNaN.
type IndicatorSeries struct {
	Name        string
	Values      []float64
	DefinedFrom int
}

// NewIndicatorSeries allocates an all-undefined series of length n.
func NewIndicatorSeries(name string, n int) IndicatorSeries {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return IndicatorSeries{Name: name, Values: vals, DefinedFrom: n}
}

// Defined reports whether index i holds a computed value.
func (s IndicatorSeries) Defined(i int) bool {
	return i >= s.DefinedFrom && i < len(s.Values)
}

// At returns the value at i and whether it is defined.
func (s IndicatorSeries) At(i int) (float64, bool) {
	if !s.Defined(i) {
		return 0, false
	}
	return s.Values[i], true
}

// Last returns the newest defined value.
func (s IndicatorSeries) Last() (float64, bool) {
	return s.At(len(s.Values) - 1)
}

// IndicatorSet maps indicator name to an aligned series, all computed
// from one source Series under one config.
type IndicatorSet struct {
	Config IndicatorConfig
	Length int
	Series map[string]IndicatorSeries
}

func (s IndicatorSet) Get(name string) (IndicatorSeries, bool) {
	is, ok := s.Series[name]
	return is, ok
}

// DefinedFrom returns the first index at which every series in the set
// is defined. Equals Length when some series never becomes defined.
func (s IndicatorSet) DefinedFrom() int {
	from := 0
	for _, is := range s.Series {
		if is.DefinedFrom > from {
			from = is.DefinedFrom
		}
	}
	return from
}

// Latest returns the newest defined value per indicator.
func (s IndicatorSet) Latest() map[string]float64 {
	out := make(map[string]float64, len(s.Series))
	for name, is := range s.Series {
		if v, ok := is.Last(); ok {
			out[name] = v
		}
	}
	return out
}

// EnrichedSeries joins a Series with the indicators computed from it,
// one row per date.
type EnrichedSeries struct {
	Series     *Series
	Indicators IndicatorSet
}

func (e EnrichedSeries) Len() int { return e.Series.Len() }
