package models

import (
	"math"
	"time"
)

// Bar is one daily OHLCV record. It crosses process boundaries (Kafka
// ingest, ClickHouse rows, API payloads), hence the json tags.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a validated run of daily bars, strictly ascending by date.
// Construct through NewSeries; the zero value is unusable. The engine
// only ever reads a Series.
type Series struct {
	bars []Bar
}

// NewSeries validates bars and wraps them. The input slice is copied.
// Returns *InvalidSeriesError on empty input, unordered or duplicate
// dates, non-finite values, or bars whose prices violate low <= open,
// close <= high.
func NewSeries(bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, &InvalidSeriesError{Index: -1, Reason: "empty series"}
	}
	for i, b := range bars {
		if err := validateBar(i, b); err != nil {
			return nil, err
		}
		if i > 0 {
			prev := bars[i-1].Date
			if b.Date.Equal(prev) {
				return nil, &InvalidSeriesError{Index: i, Date: b.Date, Reason: "duplicate date"}
			}
			if b.Date.Before(prev) {
				return nil, &InvalidSeriesError{Index: i, Date: b.Date, Reason: "dates out of order"}
			}
		}
	}
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	return &Series{bars: cp}, nil
}

func validateBar(i int, b Bar) error {
	if b.Date.IsZero() {
		return &InvalidSeriesError{Index: i, Reason: "zero date"}
	}
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidSeriesError{Index: i, Date: b.Date, Reason: "non-finite value"}
		}
	}
	if b.Volume < 0 {
		return &InvalidSeriesError{Index: i, Date: b.Date, Reason: "negative volume"}
	}
	if b.Low > b.High {
		return &InvalidSeriesError{Index: i, Date: b.Date, Reason: "low above high"}
	}
	if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return &InvalidSeriesError{Index: i, Date: b.Date, Reason: "open/close outside low-high range"}
	}
	return nil
}

// Validate checks a single bar against the same rules NewSeries applies,
// for callers that screen records one at a time (ingest, backfill).
func (b Bar) Validate() error {
	return validateBar(0, b)
}

func (s *Series) Len() int { return len(s.bars) }

// Bar returns the record at index i.
func (s *Series) Bar(i int) Bar { return s.bars[i] }

// Bars returns a copy of the underlying records.
func (s *Series) Bars() []Bar {
	cp := make([]Bar, len(s.bars))
	copy(cp, s.bars)
	return cp
}

func (s *Series) First() Bar { return s.bars[0] }
func (s *Series) Last() Bar  { return s.bars[len(s.bars)-1] }

// Closes returns a fresh slice of close prices in series order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// Dates returns a fresh slice of bar dates in series order.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Date
	}
	return out
}

func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.High
	}
	return out
}

func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Low
	}
	return out
}

func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Volume
	}
	return out
}
