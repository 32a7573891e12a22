// Package feature turns an enriched series into supervised-learning
// matrices. Alignment is strict: a row exists only when every feature
// and its target are defined, so the warm-up prefix and the last
// horizon rows never reach the model.
package feature

import (
	"fmt"
	"math"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// baseColumns is the fixed head of every schema: raw bar values first,
// then the indicator set in canonical order.
var baseColumns = append([]string{"close", "volume"}, models.IndicatorNames()...)

// Schema builds the canonical ordered feature list for a lag depth:
// base columns, then close_lag_k/return_k pairs for k=1..L, then the
// two calendar features.
func Schema(lagDepth, horizon int) models.FeatureSchema {
	names := make([]string, 0, len(baseColumns)+2*lagDepth+2)
	names = append(names, baseColumns...)
	for k := 1; k <= lagDepth; k++ {
		names = append(names, fmt.Sprintf("close_lag_%d", k), fmt.Sprintf("return_%d", k))
	}
	names = append(names, "day_of_week", "day_of_month")
	return models.FeatureSchema{Names: names, LagDepth: lagDepth, Horizon: horizon}
}

// Builder assembles datasets and inference rows from enriched series.
type Builder struct {
	log *logger.Logger
}

func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{log: log}
}

// Build produces the chronological train/test split for the configured
// horizon and lag depth. Rows are never shuffled: the first
// ceil((1-TestFraction)*n) rows train, the remainder tests, so no
// training row is dated after any test row.
func (b *Builder) Build(enriched models.EnrichedSeries, cfg models.ForecastConfig) (*models.Dataset, error) {
	if cfg.Horizon < 1 {
		return nil, fmt.Errorf("feature build: horizon must be >= 1, got %d", cfg.Horizon)
	}
	if cfg.LagDepth < 1 {
		return nil, fmt.Errorf("feature build: lag depth must be >= 1, got %d", cfg.LagDepth)
	}
	if cfg.TestFraction < 0 || cfg.TestFraction >= 1 {
		return nil, fmt.Errorf("feature build: test fraction must be in [0,1), got %v", cfg.TestFraction)
	}
	minTrain := cfg.MinTrainRows
	if minTrain <= 0 {
		minTrain = models.DefaultForecastConfig().MinTrainRows
	}

	schema := Schema(cfg.LagDepth, cfg.Horizon)
	n := enriched.Len()
	closes := enriched.Series.Closes()

	// First usable date: all indicators defined and a full lag window
	// behind it. Last usable date: the target close[t+h] still exists.
	first := enriched.Indicators.DefinedFrom()
	if cfg.LagDepth > first {
		first = cfg.LagDepth
	}
	last := n - 1 - cfg.Horizon

	usable := last - first + 1
	if usable < minTrain {
		if usable < 0 {
			usable = 0
		}
		return nil, &models.InsufficientDataError{Op: "feature alignment", Required: minTrain, Available: usable}
	}

	rows := make([][]float64, 0, usable)
	dates := make([]time.Time, 0, usable)
	target := make([]float64, 0, usable)
	for t := first; t <= last; t++ {
		rows = append(rows, b.rowAt(enriched, schema, t))
		dates = append(dates, enriched.Series.Bar(t).Date)
		target = append(target, closes[t+cfg.Horizon])
	}

	trainLen := int(math.Ceil(float64(len(rows)) * (1 - cfg.TestFraction)))
	if trainLen > len(rows) {
		trainLen = len(rows)
	}

	ds := &models.Dataset{
		Train: models.FeatureMatrix{
			Schema: schema,
			Dates:  dates[:trainLen],
			Rows:   rows[:trainLen],
		},
		TrainTarget: target[:trainLen],
		Test: models.FeatureMatrix{
			Schema: schema,
			Dates:  dates[trainLen:],
			Rows:   rows[trainLen:],
		},
		TestTarget: target[trainLen:],
	}

	b.log.Debug("feature matrix built",
		logger.Int("usable_rows", len(rows)),
		logger.Int("train_rows", ds.Train.Len()),
		logger.Int("test_rows", ds.Test.Len()),
		logger.Int("features", schema.Len()))

	return ds, nil
}

// InferenceRow builds the latest-date feature vector under the training
// schema. A schema built with a different lag depth or indicator set
// fails with SchemaMismatchError before any value is read.
func (b *Builder) InferenceRow(enriched models.EnrichedSeries, schema models.FeatureSchema) ([]float64, error) {
	current := Schema(schema.LagDepth, schema.Horizon)
	if !current.Equal(schema) {
		return nil, &models.SchemaMismatchError{
			ExpectedCount: schema.Len(),
			GotCount:      current.Len(),
			Detail:        schema.Diff(current),
		}
	}

	n := enriched.Len()
	t := n - 1
	required := enriched.Indicators.DefinedFrom() + 1
	if schema.LagDepth+1 > required {
		required = schema.LagDepth + 1
	}
	if n < required || !allDefinedAt(enriched, t) {
		return nil, &models.InsufficientDataError{Op: "inference row", Required: required, Available: n}
	}

	return b.rowAt(enriched, schema, t), nil
}

// rowAt assembles the vector for index t. Callers guarantee that every
// indicator is defined at t and that t-LagDepth >= 0.
func (b *Builder) rowAt(enriched models.EnrichedSeries, schema models.FeatureSchema, t int) []float64 {
	bar := enriched.Series.Bar(t)
	row := make([]float64, 0, schema.Len())
	row = append(row, bar.Close, bar.Volume)
	for _, name := range baseColumns[2:] {
		s, _ := enriched.Indicators.Get(name)
		row = append(row, s.Values[t])
	}
	closes := enriched.Series.Closes()
	row = appendLagFeatures(row, closes[:t+1], schema.LagDepth)
	row = appendCalendarFeatures(row, bar.Date)
	return row
}

func allDefinedAt(enriched models.EnrichedSeries, t int) bool {
	for _, name := range baseColumns[2:] {
		s, ok := enriched.Indicators.Get(name)
		if !ok || !s.Defined(t) {
			return false
		}
	}
	return true
}

// appendLagFeatures adds close_lag_k and return_k pairs computed from
// the close history ending at the row's date (the last element).
func appendLagFeatures(row []float64, closes []float64, lagDepth int) []float64 {
	t := len(closes) - 1
	for k := 1; k <= lagDepth; k++ {
		lag := closes[t-k]
		row = append(row, lag, closes[t]/lag-1)
	}
	return row
}

// appendCalendarFeatures adds day_of_week (Monday=0) and day_of_month.
func appendCalendarFeatures(row []float64, date time.Time) []float64 {
	return append(row, float64(util.WeekdayIndex(date)), float64(date.Day()))
}
