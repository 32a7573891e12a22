package forecast

import (
	"context"
	"math"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/feature"
	"FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// Predictor trains a fresh ensemble per call and turns it into a dated
// forecast. Models are never persisted; determinism comes from the
// seed, not from shared state.
type Predictor struct {
	builder domsvc.FeatureBuilder
	log     *logger.Logger
}

func NewPredictor(builder domsvc.FeatureBuilder, log *logger.Logger) *Predictor {
	return &Predictor{builder: builder, log: log}
}

func normalizeForecastConfig(cfg models.ForecastConfig) models.ForecastConfig {
	def := models.DefaultForecastConfig()
	if cfg.Horizon < 1 {
		cfg.Horizon = def.Horizon
	}
	if cfg.LagDepth < 1 {
		cfg.LagDepth = def.LagDepth
	}
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	if cfg.ConfidenceZ <= 0 {
		cfg.ConfidenceZ = def.ConfidenceZ
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.MinTrainRows < 1 {
		cfg.MinTrainRows = def.MinTrainRows
	}
	return cfg
}

// Forecast builds the dataset, trains, scores the holdout, and projects
// the configured horizon. The single-shot strategy models close at
// t+horizon directly and returns that one date; the iterative strategy
// models one day ahead and feeds each prediction back into the lag
// features, so its band widens with every step.
func (p *Predictor) Forecast(ctx context.Context, symbol string, enriched models.EnrichedSeries, cfg models.ForecastConfig) (models.Forecast, error) {
	start := time.Now()
	cfg = normalizeForecastConfig(cfg)
	if _, err := models.ParseStrategy(string(cfg.Strategy)); err != nil {
		return models.Forecast{}, err
	}

	// The iterative model always predicts one session ahead; only the
	// single-shot model trains against the full horizon offset.
	buildCfg := cfg
	if cfg.Strategy == models.StrategyIterative {
		buildCfg.Horizon = 1
	}
	ds, err := p.builder.Build(enriched, buildCfg)
	if err != nil {
		return models.Forecast{}, err
	}

	model, err := Train(ctx, ds.Train.Rows, ds.TrainTarget, ds.Train.Schema, cfg.Model)
	if err != nil {
		return models.Forecast{}, err
	}

	report, err := Evaluate(model, ds.Test, ds.TestTarget)
	if err != nil {
		return models.Forecast{}, err
	}
	report.TrainRows = ds.Train.Len()

	row, err := p.builder.InferenceRow(enriched, model.Schema)
	if err != nil {
		return models.Forecast{}, err
	}

	lastDate := enriched.Series.Last().Date
	var points []models.ForecastPoint
	if cfg.Strategy == models.StrategySingleShot {
		points, err = p.singleShot(model, row, lastDate, cfg)
	} else {
		points, err = p.iterate(model, row, lastDate, cfg)
	}
	if err != nil {
		return models.Forecast{}, err
	}

	p.log.Info("forecast produced",
		logger.String("symbol", symbol),
		logger.String("strategy", string(cfg.Strategy)),
		logger.Int("points", len(points)),
		logger.Int("train_rows", report.TrainRows),
		logger.Duration("took", time.Since(start)))

	return models.Forecast{
		Symbol:   symbol,
		Strategy: cfg.Strategy,
		Horizon:  cfg.Horizon,
		Points:   points,
		Report:   report,
	}, nil
}

// singleShot predicts the directly modeled date, horizon business days
// out, with a band from the per-tree spread.
func (p *Predictor) singleShot(model *Model, row []float64, lastDate time.Time, cfg models.ForecastConfig) ([]models.ForecastPoint, error) {
	point, perTree, err := model.Predict(row)
	if err != nil {
		return nil, err
	}
	width := cfg.ConfidenceZ * stddev(perTree)
	return []models.ForecastPoint{{
		Date:      util.AddBusinessDays(lastDate, cfg.Horizon),
		Predicted: point,
		Lower:     point - width,
		Upper:     point + width,
	}}, nil
}

// iterate walks the horizon one business day at a time. Band half-width
// at step i is z*std_i*sqrt(i), clamped so it never narrows as the
// compounding error grows.
func (p *Predictor) iterate(model *Model, row []float64, lastDate time.Time, cfg models.ForecastConfig) ([]models.ForecastPoint, error) {
	points := make([]models.ForecastPoint, 0, cfg.Horizon)
	date := lastDate
	width := 0.0
	for i := 1; i <= cfg.Horizon; i++ {
		point, perTree, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		date = util.NextBusinessDay(date)

		w := cfg.ConfidenceZ * stddev(perTree) * math.Sqrt(float64(i))
		if w < width {
			w = width
		}
		width = w

		points = append(points, models.ForecastPoint{
			Date:      date,
			Predicted: point,
			Lower:     point - w,
			Upper:     point + w,
		})

		if i < cfg.Horizon {
			row, err = feature.AdvanceRow(model.Schema, row, point, date)
			if err != nil {
				return nil, err
			}
		}
	}
	return points, nil
}
