package indicator

import (
	"errors"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/logger"
	"FinCast/pkg/util"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func makeSeries(t *testing.T, closes []float64) *models.Series {
	t.Helper()
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:   date,
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
		date = util.NextBusinessDay(date)
	}
	series, err := models.NewSeries(bars)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	return series
}

func TestEngine_ComputeAll(t *testing.T) {
	engine := NewEngine(testLogger(t))
	series := makeSeries(t, walk(60, 11))

	set, err := engine.ComputeAll(series, models.DefaultIndicatorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := []string{
		models.IndMAShort, models.IndMALong, models.IndRSI,
		models.IndMACD, models.IndMACDSignal, models.IndMACDHist,
		models.IndBBUpper, models.IndBBMiddle, models.IndBBLower,
		models.IndATR,
	}
	for _, name := range names {
		s, ok := set.Get(name)
		if !ok {
			t.Fatalf("missing indicator %q", name)
		}
		if s.Name != name {
			t.Errorf("indicator %q: name not rewritten, got %q", name, s.Name)
		}
		if len(s.Values) != series.Len() {
			t.Errorf("indicator %q: length %d, expected %d", name, len(s.Values), series.Len())
		}
	}

	// The 50-day average defines last: the whole set starts at index 49.
	if got := set.DefinedFrom(); got != 49 {
		t.Errorf("expected set DefinedFrom=49, got %d", got)
	}
}

func TestEngine_ComputeAllTooShort(t *testing.T) {
	engine := NewEngine(testLogger(t))
	series := makeSeries(t, walk(30, 11))

	_, err := engine.ComputeAll(series, models.DefaultIndicatorConfig())
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError for 30 bars, got %v", err)
	}
}

func TestEngine_Enrich(t *testing.T) {
	engine := NewEngine(testLogger(t))
	series := makeSeries(t, walk(120, 5))

	enriched, err := engine.Enrich(series, models.DefaultIndicatorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enriched.Len() != 120 {
		t.Errorf("expected enriched length 120, got %d", enriched.Len())
	}
	if enriched.Indicators.Length != 120 {
		t.Errorf("expected indicator set length 120, got %d", enriched.Indicators.Length)
	}
	latest := enriched.Indicators.Latest()
	if len(latest) != 10 {
		t.Errorf("expected 10 latest values, got %d", len(latest))
	}
}
