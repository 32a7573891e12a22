package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// CHBarStore persists daily bars in ClickHouse. The table is a
// ReplacingMergeTree keyed (symbol, date), so re-ingesting a day
// overwrites instead of duplicating.
type CHBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{db: ch.DB(), l: l}
}

var barSchema = []string{
	`CREATE DATABASE IF NOT EXISTS fincast`,
	`CREATE TABLE IF NOT EXISTS fincast.bars (
		symbol LowCardinality(String),
		date   Date,
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		volume Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, date)`,
}

func (s *CHBarStore) Init(ctx context.Context) error {
	for _, stmt := range barSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bar schema: %w", err)
		}
	}
	return nil
}

// StoreBatch inserts bars in multi-row VALUES chunks to limit
// round-trips.
func (s *CHBarStore) StoreBatch(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	const chunkSize = 2000
	for lo := 0; lo < len(bars); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(bars) {
			hi = len(bars)
		}

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*7)
		for _, b := range bars[lo:hi] {
			if b.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := "INSERT INTO fincast.bars (symbol, date, open, high, low, close, volume) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_bars error",
				applogger.String("symbol", symbol),
				applogger.Int("rows", hi-lo),
				applogger.Error(err))
			return fmt.Errorf("store bars: %w", err)
		}
	}
	s.l.Debug("clickhouse store_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("took", time.Since(start)))
	return nil
}

// Load returns the symbol's bars in [from, to], oldest first. FINAL
// collapses any not-yet-merged replacements.
func (s *CHBarStore) Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	// The Date column starts at the unix epoch; a zero from means
	// "everything".
	epoch := time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
	if from.Before(epoch) {
		from = epoch
	}
	const q = `
		SELECT date, open, high, low, close, volume
		FROM fincast.bars FINAL
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.l.Error("clickhouse load_bars query error",
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse load_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("took", time.Since(start)))
	return out, nil
}

// LatestDate reports the newest stored date for the symbol; the bool is
// false when the symbol has no history.
func (s *CHBarStore) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	const q = `SELECT max(date), count() FROM fincast.bars WHERE symbol = ?`
	var latest time.Time
	var n uint64
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&latest, &n); err != nil {
		return time.Time{}, false, fmt.Errorf("latest date: %w", err)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return latest, true, nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.
func (s *CHBarStore) Close() error { return nil }
