package service

import (
	"context"

	"FinCast/internal/domain/models"
)

// IndicatorEngine computes technical indicators aligned to a series.
type IndicatorEngine interface {
	ComputeAll(series *models.Series, cfg models.IndicatorConfig) (models.IndicatorSet, error)
	Enrich(series *models.Series, cfg models.IndicatorConfig) (models.EnrichedSeries, error)
}

// FeatureBuilder turns an enriched series into a supervised dataset and
// builds schema-checked inference rows.
type FeatureBuilder interface {
	Build(enriched models.EnrichedSeries, cfg models.ForecastConfig) (*models.Dataset, error)
	InferenceRow(enriched models.EnrichedSeries, schema models.FeatureSchema) ([]float64, error)
}

// TrendPredictor fits the ensemble on an enriched series and produces a
// forecast with confidence bands and a holdout report.
type TrendPredictor interface {
	Forecast(ctx context.Context, symbol string, enriched models.EnrichedSeries, cfg models.ForecastConfig) (models.Forecast, error)
}
