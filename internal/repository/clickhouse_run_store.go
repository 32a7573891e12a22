package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// CHRunStore keeps one row per analysis run: settings and holdout
// metrics. Models themselves are never written anywhere.
type CHRunStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHRunStore(ch *pkgch.Client, l *applogger.Logger) *CHRunStore {
	return &CHRunStore{db: ch.DB(), l: l}
}

var runSchema = []string{
	`CREATE DATABASE IF NOT EXISTS fincast`,
	`CREATE TABLE IF NOT EXISTS fincast.analysis_runs (
		id                 String,
		symbol             LowCardinality(String),
		horizon            UInt16,
		strategy           LowCardinality(String),
		trees              UInt16,
		seed               Int64,
		mae                Float64,
		rmse               Float64,
		r2                 Float64,
		direction_accuracy Float64,
		confidence         Float64,
		duration_ms        UInt64,
		created_at         DateTime
	) ENGINE = MergeTree
	ORDER BY (symbol, created_at)`,
}

func (s *CHRunStore) Init(ctx context.Context) error {
	for _, stmt := range runSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run schema: %w", err)
		}
	}
	return nil
}

func (s *CHRunStore) StoreRun(ctx context.Context, rec models.RunRecord) error {
	const q = `
		INSERT INTO fincast.analysis_runs
		(id, symbol, horizon, strategy, trees, seed, mae, rmse, r2, direction_accuracy, confidence, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.Symbol, uint16(rec.Horizon), rec.Strategy, uint16(rec.Trees), rec.Seed,
		rec.MAE, rec.RMSE, rec.R2, rec.DirectionAccuracy, rec.Confidence,
		uint64(rec.DurationMs), created)
	if err != nil {
		s.l.Error("clickhouse store_run error",
			applogger.String("run_id", rec.ID),
			applogger.String("symbol", rec.Symbol),
			applogger.Error(err))
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// RecentRuns lists the newest runs first; an empty symbol means all
// symbols.
func (s *CHRunStore) RecentRuns(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
		SELECT id, symbol, horizon, strategy, trees, seed, mae, rmse, r2, direction_accuracy, confidence, duration_ms, created_at
		FROM fincast.analysis_runs
	`
	args := make([]interface{}, 0, 2)
	if symbol != "" {
		q += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse recent_runs query error",
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunRecord, 0, limit)
	for rows.Next() {
		var rec models.RunRecord
		var horizon, trees uint16
		var durationMs uint64
		if err := rows.Scan(&rec.ID, &rec.Symbol, &horizon, &rec.Strategy, &trees, &rec.Seed,
			&rec.MAE, &rec.RMSE, &rec.R2, &rec.DirectionAccuracy, &rec.Confidence,
			&durationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Horizon = int(horizon)
		rec.Trees = int(trees)
		rec.DurationMs = int64(durationMs)
		out = append(out, rec)
	}
	return out, rows.Err()
}
