package models

import (
	"fmt"
	"time"
)

// Strategy selects how multi-step forecasts are produced. The two
// accumulate error differently, so the choice is configuration, never
// auto-selected.
type Strategy string

const (
	// StrategySingleShot trains one model targeting close at t+h and
	// forecasts that one date directly.
	StrategySingleShot Strategy = "single_shot"
	// StrategyIterative predicts one day at a time, feeding each
	// predicted close back into the lag features.
	StrategyIterative Strategy = "iterative"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySingleShot, StrategyIterative:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown forecast strategy %q", s)
}

// ModelConfig controls ensemble training. Seed is explicit: identical
// data and config must reproduce identical models.
type ModelConfig struct {
	Trees       int
	Seed        int64
	MaxDepth    int
	MinLeaf     int
	SampleRatio float64 // bootstrap sample size as a fraction of the training rows
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{Trees: 100, Seed: 42, MaxDepth: 12, MinLeaf: 2, SampleRatio: 1.0}
}

// ForecastConfig is the full prediction-side configuration.
type ForecastConfig struct {
	Horizon      int
	LagDepth     int
	Strategy     Strategy
	ConfidenceZ  float64
	TestFraction float64
	MinTrainRows int
	Model        ModelConfig
}

func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Horizon:      10,
		LagDepth:     10,
		Strategy:     StrategyIterative,
		ConfidenceZ:  1.96,
		TestFraction: 0.2,
		MinTrainRows: 30,
		Model:        DefaultModelConfig(),
	}
}

// ForecastPoint is one predicted future date with its confidence band.
// Lower <= Predicted <= Upper always holds.
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Forecast is the output of one prediction call. Produced fresh each
// call and never persisted. Under the iterative strategy there is one
// point per future business day; single_shot carries the one directly
// modeled date.
type Forecast struct {
	Symbol   string          `json:"symbol"`
	Strategy Strategy        `json:"strategy"`
	Horizon  int             `json:"horizon"`
	Points   []ForecastPoint `json:"points"`
	Report   ModelReport     `json:"report"`
}

// ModelReport carries holdout metrics from the chronological test split.
type ModelReport struct {
	TrainRows         int     `json:"train_rows"`
	TestRows          int     `json:"test_rows"`
	MAE               float64 `json:"mae"`
	MSE               float64 `json:"mse"`
	RMSE              float64 `json:"rmse"`
	R2                float64 `json:"r2"`
	DirectionAccuracy float64 `json:"direction_accuracy"`
	Confidence        float64 `json:"confidence"` // clamp(R2*100, 0, 100)
}
