package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// BarStore persists and serves daily bar history.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, symbol string, bars []models.Bar) error
	Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// RunStore records analysis run summaries for operational history.
// Settings and holdout metrics only; trained models are never persisted.
type RunStore interface {
	Init(ctx context.Context) error
	StoreRun(ctx context.Context, rec models.RunRecord) error
	RecentRuns(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error)
}

// EventPublisher fans engine lifecycle events out of process.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.EngineEvent) error
	Close() error
}

// Metrics is the engine's instrumentation surface.
type Metrics interface {
	RecordAnalysis(strategy, status string)
	RecordBarsIngested(symbol string, n int)
	RecordLastClose(symbol string, close float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCache(op string, hit bool)
	RecordWSClients(n int)
}
