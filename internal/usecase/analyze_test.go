package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/services/feature"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicator"
	"FinCast/pkg/logger"
	"FinCast/pkg/metrics"
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

func walkBars(n int, seed int64) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.Bar, n)
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += rng.Float64()*4 - 2
		if price < 10 {
			price = 10
		}
		bars[i] = models.Bar{
			Date:   date,
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000 + float64(rng.Intn(500)),
		}
		date = util.NextBusinessDay(date)
	}
	return bars
}

type fakeBarStore struct {
	bars   []models.Bar
	loads  int
	stored [][]models.Bar
}

func (f *fakeBarStore) Init(ctx context.Context) error { return nil }

func (f *fakeBarStore) StoreBatch(ctx context.Context, symbol string, bars []models.Bar) error {
	f.stored = append(f.stored, bars)
	return nil
}

func (f *fakeBarStore) Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	f.loads++
	return f.bars, nil
}

func (f *fakeBarStore) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	if len(f.bars) == 0 {
		return time.Time{}, false, nil
	}
	return f.bars[len(f.bars)-1].Date, true, nil
}

func (f *fakeBarStore) Health(ctx context.Context) error { return nil }
func (f *fakeBarStore) Close() error                     { return nil }

type fakeRunStore struct {
	recs []models.RunRecord
}

func (f *fakeRunStore) Init(ctx context.Context) error { return nil }

func (f *fakeRunStore) StoreRun(ctx context.Context, rec models.RunRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeRunStore) RecentRuns(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	return f.recs, nil
}

type fakeEvents struct {
	events []models.EngineEvent
}

func (f *fakeEvents) PublishEvent(ctx context.Context, ev models.EngineEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

func newTestAnalyzer(t *testing.T, store drepo.BarStore, runs drepo.RunStore, events drepo.EventPublisher) *Analyzer {
	t.Helper()
	log := testLogger(t)
	noop := metrics.Noop{}
	history := NewHistory(store, nil, noop, log)
	engine := indicator.NewEngine(log)
	predictor := forecast.NewPredictor(feature.NewBuilder(log), log)
	cfg := models.DefaultForecastConfig()
	cfg.Model.Trees = 15 // keep the test quick
	return NewAnalyzer(history, engine, predictor, runs, events, nil, noop, log,
		models.DefaultIndicatorConfig(), cfg)
}

func TestAnalyze_FullPipeline(t *testing.T) {
	store := &fakeBarStore{bars: walkBars(160, 7)}
	runs := &fakeRunStore{}
	events := &fakeEvents{}
	a := newTestAnalyzer(t, store, runs, events)

	res, err := a.Analyze(context.Background(), models.AnalysisRequest{
		ID:       "run-1",
		Symbol:   "aapl",
		Horizon:  5,
		LagDepth: 3,
		Strategy: string(models.StrategyIterative),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Symbol != "AAPL" {
		t.Errorf("expected normalized symbol AAPL, got %s", res.Symbol)
	}
	if res.Bars != 160 {
		t.Errorf("expected 160 bars, got %d", res.Bars)
	}
	if len(res.Latest) != 10 {
		t.Errorf("expected 10 latest indicators, got %d", len(res.Latest))
	}
	if len(res.Summary.Signals) == 0 {
		t.Error("expected summary signals")
	}
	if got := len(res.Forecast.Points); got != 5 {
		t.Errorf("expected 5 forecast points, got %d", got)
	}
	if !res.AsOf.Equal(store.bars[len(store.bars)-1].Date) {
		t.Errorf("expected as_of %s, got %s", store.bars[len(store.bars)-1].Date, res.AsOf)
	}

	if len(runs.recs) != 1 {
		t.Fatalf("expected 1 run record, got %d", len(runs.recs))
	}
	rec := runs.recs[0]
	if rec.ID != "run-1" || rec.Symbol != "AAPL" || rec.Horizon != 5 {
		t.Errorf("unexpected run record: %+v", rec)
	}
	if rec.Trees != 15 {
		t.Errorf("expected the configured default of 15 trees recorded, got %d", rec.Trees)
	}
	if rec.Confidence != res.Forecast.Report.Confidence {
		t.Errorf("run record confidence %.2f should match report %.2f", rec.Confidence, res.Forecast.Report.Confidence)
	}

	if len(events.events) != 2 {
		t.Fatalf("expected started+completed events, got %d", len(events.events))
	}
	if events.events[0].Type != models.EventAnalysisStarted || events.events[1].Type != models.EventAnalysisCompleted {
		t.Errorf("unexpected event sequence: %s, %s", events.events[0].Type, events.events[1].Type)
	}
	if events.events[1].Payload["id"] != "run-1" {
		t.Errorf("completed event should carry the request id, got %v", events.events[1].Payload["id"])
	}
}

func TestAnalyze_TooLittleHistory(t *testing.T) {
	store := &fakeBarStore{bars: walkBars(40, 3)}
	events := &fakeEvents{}
	a := newTestAnalyzer(t, store, &fakeRunStore{}, events)

	_, err := a.Analyze(context.Background(), models.AnalysisRequest{Symbol: "AAPL"})
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}

	if len(events.events) != 2 {
		t.Fatalf("expected started+failed events, got %d", len(events.events))
	}
	if events.events[1].Type != models.EventAnalysisFailed {
		t.Errorf("expected analysis.failed, got %s", events.events[1].Type)
	}
	if events.events[1].Payload["kind"] != "insufficient_data" {
		t.Errorf("expected insufficient_data kind, got %v", events.events[1].Payload["kind"])
	}
}

func TestAnalyze_RequiresSymbol(t *testing.T) {
	a := newTestAnalyzer(t, &fakeBarStore{}, &fakeRunStore{}, &fakeEvents{})

	if _, err := a.Analyze(context.Background(), models.AnalysisRequest{}); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestAnalyze_AssignsID(t *testing.T) {
	store := &fakeBarStore{bars: walkBars(160, 11)}
	runs := &fakeRunStore{}
	a := newTestAnalyzer(t, store, runs, &fakeEvents{})

	res, err := a.Analyze(context.Background(), models.AnalysisRequest{Symbol: "AAPL", Horizon: 3, LagDepth: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID == "" {
		t.Error("expected a generated id")
	}
	if len(runs.recs) != 1 || runs.recs[0].ID != res.ID {
		t.Error("run record should carry the generated id")
	}
}
