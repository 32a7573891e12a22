package models

import "time"

// Stance is a coarse directional read of an indicator or of the whole
// summary.
type Stance string

const (
	StanceBullish Stance = "bullish"
	StanceBearish Stance = "bearish"
	StanceNeutral Stance = "neutral"
)

// IndicatorSignal is one indicator's contribution to the summary.
type IndicatorSignal struct {
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Stance    Stance  `json:"stance"`
	Note      string  `json:"note,omitempty"`
}

// IndicatorSummary is the stance view over the latest defined indicator
// values: per-indicator signals plus an overall verdict. Score is the
// net bullish fraction in [-1, 1].
type IndicatorSummary struct {
	Symbol  string            `json:"symbol"`
	AsOf    time.Time         `json:"as_of"`
	Signals []IndicatorSignal `json:"signals"`
	Verdict Stance            `json:"verdict"`
	Score   float64           `json:"score"`
}

// AnalysisRequest is the engine's top-level unit of work. It rides the
// job queue as JSON, so defaults must already be resolved by the time it
// is enqueued.
type AnalysisRequest struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Period      string  `json:"period"`
	Horizon     int     `json:"horizon"`
	LagDepth    int     `json:"lag_depth"`
	Trees       int     `json:"trees"`
	Seed        int64   `json:"seed"`
	Strategy    string  `json:"strategy"`
	ConfidenceZ float64 `json:"confidence_z"`
}

// AnalysisResult is the combined output: latest indicator values, the
// stance summary, and the forecast with its model report.
type AnalysisResult struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	AsOf       time.Time          `json:"as_of"`
	Bars       int                `json:"bars"`
	Latest     map[string]float64 `json:"latest_indicators"`
	Summary    IndicatorSummary   `json:"summary"`
	Forecast   Forecast           `json:"forecast"`
	DurationMs int64              `json:"duration_ms"`
}

// RunRecord is the operational trace of one analysis run kept in
// ClickHouse. It records settings and holdout metrics, never the model.
type RunRecord struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Horizon           int       `json:"horizon"`
	Strategy          string    `json:"strategy"`
	Trees             int       `json:"trees"`
	Seed              int64     `json:"seed"`
	MAE               float64   `json:"mae"`
	RMSE              float64   `json:"rmse"`
	R2                float64   `json:"r2"`
	DirectionAccuracy float64   `json:"direction_accuracy"`
	Confidence        float64   `json:"confidence"`
	DurationMs        int64     `json:"duration_ms"`
	CreatedAt         time.Time `json:"created_at"`
}
