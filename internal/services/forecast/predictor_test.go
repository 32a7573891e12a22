package forecast

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/feature"
	"FinCast/internal/services/indicator"
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

func makeEnriched(t *testing.T, n int, seed int64, constant bool) models.EnrichedSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := 100.0
	for i := range bars {
		if !constant {
			price += rng.Float64()*4 - 2
		}
		bars[i] = models.Bar{
			Date:   date,
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000 + float64(i%7)*10,
		}
		date = util.NextBusinessDay(date)
	}
	series, err := models.NewSeries(bars)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	enriched, err := indicator.NewEngine(testLogger(t)).Enrich(series, models.DefaultIndicatorConfig())
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	return enriched
}

func testPredictor(t *testing.T) *Predictor {
	t.Helper()
	log := testLogger(t)
	return NewPredictor(feature.NewBuilder(log), log)
}

func fastForecastConfig(strategy models.Strategy) models.ForecastConfig {
	cfg := models.DefaultForecastConfig()
	cfg.Strategy = strategy
	cfg.Horizon = 5
	cfg.LagDepth = 3
	cfg.Model = models.ModelConfig{Trees: 15, Seed: 42, MaxDepth: 6, MinLeaf: 2, SampleRatio: 1.0}
	return cfg
}

func TestForecast_IterativePoints(t *testing.T) {
	enriched := makeEnriched(t, 150, 21, false)
	p := testPredictor(t)

	fc, err := p.Forecast(context.Background(), "ACME", enriched, fastForecastConfig(models.StrategyIterative))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if fc.Strategy != models.StrategyIterative || fc.Horizon != 5 {
		t.Errorf("expected iterative/5, got %s/%d", fc.Strategy, fc.Horizon)
	}
	if len(fc.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(fc.Points))
	}

	last := enriched.Series.Last().Date
	prev := last
	prevWidth := 0.0
	for i, pt := range fc.Points {
		if !pt.Date.After(prev) {
			t.Fatalf("point %d: date %v not after %v", i, pt.Date, prev)
		}
		if !util.IsBusinessDay(pt.Date) {
			t.Fatalf("point %d: %v is not a business day", i, pt.Date)
		}
		if pt.Lower > pt.Predicted || pt.Predicted > pt.Upper {
			t.Fatalf("point %d: band violated: %v / %v / %v", i, pt.Lower, pt.Predicted, pt.Upper)
		}
		width := pt.Upper - pt.Lower
		if width < prevWidth-1e-9 {
			t.Fatalf("point %d: band narrowed from %v to %v", i, prevWidth, width)
		}
		prev = pt.Date
		prevWidth = width
	}
	if !fc.Points[0].Date.Equal(util.NextBusinessDay(last)) {
		t.Errorf("expected first point on %v, got %v", util.NextBusinessDay(last), fc.Points[0].Date)
	}
	if fc.Report.TrainRows == 0 || fc.Report.TestRows == 0 {
		t.Errorf("expected a populated report, got %+v", fc.Report)
	}
}

func TestForecast_SingleShotOnePoint(t *testing.T) {
	enriched := makeEnriched(t, 150, 21, false)
	p := testPredictor(t)

	fc, err := p.Forecast(context.Background(), "ACME", enriched, fastForecastConfig(models.StrategySingleShot))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	// Single-shot models close at t+h directly: one point, h business
	// days out.
	if len(fc.Points) != 1 {
		t.Fatalf("expected exactly 1 point, got %d", len(fc.Points))
	}
	want := util.AddBusinessDays(enriched.Series.Last().Date, 5)
	if !fc.Points[0].Date.Equal(want) {
		t.Errorf("expected point dated %v, got %v", want, fc.Points[0].Date)
	}
	pt := fc.Points[0]
	if pt.Lower > pt.Predicted || pt.Predicted > pt.Upper {
		t.Errorf("band violated: %v / %v / %v", pt.Lower, pt.Predicted, pt.Upper)
	}
}

func TestForecast_Deterministic(t *testing.T) {
	enriched := makeEnriched(t, 150, 33, false)
	p := testPredictor(t)
	cfg := fastForecastConfig(models.StrategyIterative)

	a, err := p.Forecast(context.Background(), "ACME", enriched, cfg)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	b, err := p.Forecast(context.Background(), "ACME", enriched, cfg)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			t.Fatalf("point %d differs across runs: %+v vs %+v", i, a.Points[i], b.Points[i])
		}
	}
	if a.Report != b.Report {
		t.Fatalf("reports differ across runs: %+v vs %+v", a.Report, b.Report)
	}
}

func TestForecast_ConstantSeriesDegenerate(t *testing.T) {
	enriched := makeEnriched(t, 150, 0, true)
	p := testPredictor(t)

	_, err := p.Forecast(context.Background(), "FLAT", enriched, fastForecastConfig(models.StrategyIterative))
	var degenerate *models.DegenerateInputError
	if !errors.As(err, &degenerate) {
		t.Fatalf("expected DegenerateInputError on a flat price series, got %v", err)
	}
}

func TestForecast_TooShortHistory(t *testing.T) {
	enriched := makeEnriched(t, 60, 2, false)
	p := testPredictor(t)

	_, err := p.Forecast(context.Background(), "ACME", enriched, fastForecastConfig(models.StrategyIterative))
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestForecast_UnknownStrategy(t *testing.T) {
	enriched := makeEnriched(t, 150, 2, false)
	p := testPredictor(t)

	cfg := fastForecastConfig("quantum")
	if _, err := p.Forecast(context.Background(), "ACME", enriched, cfg); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
