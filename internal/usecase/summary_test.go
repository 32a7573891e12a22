package usecase

import (
	"errors"
	"math"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func summaryInput(t *testing.T, close float64, vals map[string]float64) models.EnrichedSeries {
	t.Helper()
	series, err := models.NewSeries([]models.Bar{{
		Date:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
	}})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	set := models.IndicatorSet{Length: 1, Series: make(map[string]models.IndicatorSeries)}
	for name, v := range vals {
		set.Series[name] = models.IndicatorSeries{Name: name, Values: []float64{v}, DefinedFrom: 0}
	}
	return models.EnrichedSeries{Series: series, Indicators: set}
}

func TestSummarize_Bullish(t *testing.T) {
	enriched := summaryInput(t, 100, map[string]float64{
		models.IndRSI:        25, // oversold
		models.IndMACD:       1.0,
		models.IndMACDSignal: 0.5,
		models.IndMAShort:    95,
		models.IndMALong:     90,
		models.IndBBUpper:    110,
		models.IndBBLower:    90,
	})

	sum, err := Summarize("AAPL", enriched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.Signals) != 5 {
		t.Fatalf("expected 5 signals, got %d", len(sum.Signals))
	}
	order := []string{models.IndRSI, models.IndMACD, models.IndMAShort, models.IndMALong, "bollinger"}
	for i, want := range order {
		if sum.Signals[i].Indicator != want {
			t.Errorf("signal %d: expected %s, got %s", i, want, sum.Signals[i].Indicator)
		}
	}
	if sum.Verdict != models.StanceBullish {
		t.Errorf("expected bullish verdict, got %s", sum.Verdict)
	}
	// rsi, macd, both MAs bullish; bollinger neutral
	if want := 4.0 / 5.0; math.Abs(sum.Score-want) > 1e-12 {
		t.Errorf("expected score %.3f, got %.3f", want, sum.Score)
	}
	if sum.Signals[0].Note != "oversold" {
		t.Errorf("expected oversold note, got %q", sum.Signals[0].Note)
	}
}

func TestSummarize_Bearish(t *testing.T) {
	enriched := summaryInput(t, 100, map[string]float64{
		models.IndRSI:        75, // overbought
		models.IndMACD:       -1.0,
		models.IndMACDSignal: 0,
		models.IndMAShort:    105,
		models.IndMALong:     110,
		models.IndBBUpper:    95, // close above the band
		models.IndBBLower:    85,
	})

	sum, err := Summarize("AAPL", enriched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Verdict != models.StanceBearish {
		t.Errorf("expected bearish verdict, got %s", sum.Verdict)
	}
	if sum.Score != -1 {
		t.Errorf("expected score -1, got %.3f", sum.Score)
	}
	for _, s := range sum.Signals {
		if s.Stance != models.StanceBearish {
			t.Errorf("signal %s: expected bearish, got %s", s.Indicator, s.Stance)
		}
	}
}

func TestSummarize_Neutral(t *testing.T) {
	enriched := summaryInput(t, 100, map[string]float64{
		models.IndRSI:        50,
		models.IndMACD:       0.5,
		models.IndMACDSignal: 0.5,
		models.IndMAShort:    100,
		models.IndMALong:     100,
		models.IndBBUpper:    110,
		models.IndBBLower:    90,
	})

	sum, err := Summarize("AAPL", enriched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Verdict != models.StanceNeutral {
		t.Errorf("expected neutral verdict, got %s", sum.Verdict)
	}
	if sum.Score != 0 {
		t.Errorf("expected score 0, got %.3f", sum.Score)
	}
}

func TestSummarize_PercentB(t *testing.T) {
	enriched := summaryInput(t, 100, map[string]float64{
		models.IndBBUpper: 110,
		models.IndBBLower: 90,
	})
	sum, err := Summarize("AAPL", enriched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sum.Signals[0].Value; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected %%B 0.5 mid-band, got %.4f", got)
	}

	// collapsed band reads neutral mid-band
	enriched = summaryInput(t, 100, map[string]float64{
		models.IndBBUpper: 100,
		models.IndBBLower: 100,
	})
	sum, err = Summarize("AAPL", enriched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Signals[0].Value != 0.5 || sum.Signals[0].Stance != models.StanceNeutral {
		t.Errorf("collapsed band: expected neutral 0.5, got %s %.4f", sum.Signals[0].Stance, sum.Signals[0].Value)
	}
}

func TestSummarize_NoDefinedIndicators(t *testing.T) {
	enriched := summaryInput(t, 100, nil)

	_, err := Summarize("AAPL", enriched)
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestSummarize_CarriesSymbolAndDate(t *testing.T) {
	enriched := summaryInput(t, 100, map[string]float64{models.IndRSI: 50})

	sum, err := Summarize("MSFT", enriched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Symbol != "MSFT" {
		t.Errorf("expected symbol MSFT, got %s", sum.Symbol)
	}
	if want := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC); !sum.AsOf.Equal(want) {
		t.Errorf("expected as_of %s, got %s", want, sum.AsOf)
	}
}
