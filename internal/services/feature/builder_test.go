package feature

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"FinCast/internal/domain/models"
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

func makeEnriched(t *testing.T, n int, seed int64) models.EnrichedSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := 100.0
	for i := range bars {
		price += rng.Float64()*4 - 2
		bars[i] = models.Bar{
			Date:   date,
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000 + float64(i),
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

func testConfig() models.ForecastConfig {
	cfg := models.DefaultForecastConfig()
	cfg.Horizon = 5
	cfg.LagDepth = 3
	return cfg
}

func TestSchema_Layout(t *testing.T) {
	schema := Schema(3, 5)
	if schema.Len() != 12+2*3+2 {
		t.Fatalf("expected %d features, got %d", 12+2*3+2, schema.Len())
	}
	if schema.Names[0] != "close" || schema.Names[1] != "volume" {
		t.Errorf("expected close/volume head, got %v", schema.Names[:2])
	}
	if schema.Names[12] != "close_lag_1" || schema.Names[13] != "return_1" {
		t.Errorf("expected lag pair after base columns, got %v", schema.Names[12:14])
	}
	last := schema.Len() - 1
	if schema.Names[last-1] != "day_of_week" || schema.Names[last] != "day_of_month" {
		t.Errorf("expected calendar tail, got %v", schema.Names[last-1:])
	}
}

func TestBuild_RowAlignment(t *testing.T) {
	enriched := makeEnriched(t, 120, 17)
	cfg := testConfig()

	ds, err := NewBuilder(testLogger(t)).Build(enriched, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First usable index is the indicator warm-up (49 for the 50-day
	// average); last leaves room for the horizon-5 target.
	wantRows := (120 - 1 - cfg.Horizon) - 49 + 1
	total := ds.Train.Len() + ds.Test.Len()
	if total != wantRows {
		t.Fatalf("expected %d usable rows, got %d", wantRows, total)
	}
	if len(ds.TrainTarget) != ds.Train.Len() || len(ds.TestTarget) != ds.Test.Len() {
		t.Fatalf("targets misaligned: %d/%d vs %d/%d",
			len(ds.TrainTarget), len(ds.TestTarget), ds.Train.Len(), ds.Test.Len())
	}

	closes := enriched.Series.Closes()
	dates := enriched.Series.Dates()
	// Row 0 is index 49; its target is the close 5 sessions later.
	if !ds.Train.Dates[0].Equal(dates[49]) {
		t.Errorf("expected first row date %v, got %v", dates[49], ds.Train.Dates[0])
	}
	if ds.TrainTarget[0] != closes[49+cfg.Horizon] {
		t.Errorf("expected target %v, got %v", closes[49+cfg.Horizon], ds.TrainTarget[0])
	}

	// Row values: close and lag columns come straight from the series.
	row := ds.Train.Rows[0]
	if row[0] != closes[49] {
		t.Errorf("expected close %v, got %v", closes[49], row[0])
	}
	if row[12] != closes[48] {
		t.Errorf("expected close_lag_1 %v, got %v", closes[48], row[12])
	}
	wantReturn := closes[49]/closes[48] - 1
	if math.Abs(row[13]-wantReturn) > 1e-12 {
		t.Errorf("expected return_1 %v, got %v", wantReturn, row[13])
	}
}

func TestBuild_NoNaNLeaks(t *testing.T) {
	enriched := makeEnriched(t, 150, 3)
	ds, err := NewBuilder(testLogger(t)).Build(enriched, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	check := func(m models.FeatureMatrix, name string) {
		for i, row := range m.Rows {
			for j, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s row %d feature %s: non-finite %v", name, i, m.Schema.Names[j], v)
				}
			}
		}
	}
	check(ds.Train, "train")
	check(ds.Test, "test")
}

func TestBuild_ChronologicalSplit(t *testing.T) {
	enriched := makeEnriched(t, 160, 23)
	ds, err := NewBuilder(testLogger(t)).Build(enriched, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Test.Len() == 0 {
		t.Fatal("expected a non-empty test split")
	}
	lastTrain := ds.Train.Dates[ds.Train.Len()-1]
	for i, d := range ds.Test.Dates {
		if !lastTrain.Before(d) {
			t.Fatalf("test row %d dated %v not after last train date %v", i, d, lastTrain)
		}
	}
	// Ceil split: 80% of usable rows train.
	usable := ds.Train.Len() + ds.Test.Len()
	wantTrain := int(math.Ceil(float64(usable) * 0.8))
	if ds.Train.Len() != wantTrain {
		t.Errorf("expected %d train rows, got %d", wantTrain, ds.Train.Len())
	}
}

func TestBuild_TooFewRows(t *testing.T) {
	// 60 bars leave only a handful of usable rows past the 50-day
	// warm-up, below the default minimum of 30.
	enriched := makeEnriched(t, 60, 5)
	_, err := NewBuilder(testLogger(t)).Build(enriched, testConfig())
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Op != "feature alignment" {
		t.Errorf("expected op %q, got %q", "feature alignment", insufficient.Op)
	}
}

func TestInferenceRow_MatchesTraining(t *testing.T) {
	enriched := makeEnriched(t, 120, 31)
	cfg := testConfig()
	builder := NewBuilder(testLogger(t))

	ds, err := builder.Build(enriched, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	row, err := builder.InferenceRow(enriched, ds.Train.Schema)
	if err != nil {
		t.Fatalf("inference row: %v", err)
	}
	if len(row) != ds.Train.Schema.Len() {
		t.Fatalf("expected %d features, got %d", ds.Train.Schema.Len(), len(row))
	}
	if row[0] != enriched.Series.Last().Close {
		t.Errorf("expected latest close %v, got %v", enriched.Series.Last().Close, row[0])
	}
}

func TestInferenceRow_SchemaDrift(t *testing.T) {
	enriched := makeEnriched(t, 120, 31)
	builder := NewBuilder(testLogger(t))

	drifted := Schema(7, 5)
	drifted.Names[0] = "adjusted_close"
	_, err := builder.InferenceRow(enriched, drifted)
	var mismatch *models.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestAdvanceRow_ShiftsLags(t *testing.T) {
	schema := Schema(3, 1)
	row := make([]float64, schema.Len())
	row[0] = 100  // close
	row[1] = 5000 // volume
	row[12], row[14], row[16] = 99, 98, 97

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday
	out, err := AdvanceRow(schema, row, 101, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 101 {
		t.Errorf("expected new close 101, got %v", out[0])
	}
	if out[12] != 100 || out[14] != 99 || out[16] != 98 {
		t.Errorf("expected lags 100/99/98, got %v/%v/%v", out[12], out[14], out[16])
	}
	wantReturn := 101.0/100.0 - 1
	if math.Abs(out[13]-wantReturn) > 1e-12 {
		t.Errorf("expected return_1 %v, got %v", wantReturn, out[13])
	}
	if out[1] != 5000 {
		t.Errorf("volume should stay frozen, got %v", out[1])
	}
	if out[len(out)-2] != 0 {
		t.Errorf("expected Monday day_of_week=0, got %v", out[len(out)-2])
	}
	if out[len(out)-1] != 4 {
		t.Errorf("expected day_of_month=4, got %v", out[len(out)-1])
	}
	// Input row untouched.
	if row[0] != 100 || row[12] != 99 {
		t.Error("AdvanceRow mutated its input")
	}
}

func TestAdvanceRow_LengthMismatch(t *testing.T) {
	schema := Schema(3, 1)
	_, err := AdvanceRow(schema, make([]float64, 3), 101, time.Now())
	var mismatch *models.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}
