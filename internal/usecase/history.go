package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
)

// ErrNoHistory means the symbol has no stored bars in the requested span.
var ErrNoHistory = errors.New("no stored history")

const barsCacheTTL = 5 * time.Minute

func barsKey(symbol string, period drepo.Period) string {
	return fmt.Sprintf("bars:%s:%s", symbol, period)
}

// History serves stored bar history with a cache-aside read path.
type History struct {
	store   drepo.BarStore
	cache   cache.Service
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewHistory(store drepo.BarStore, c cache.Service, m drepo.Metrics, log *applogger.Logger) *History {
	return &History{store: store, cache: c, metrics: m, log: log}
}

// Bars returns the symbol's stored bars over the period, newest last.
// Returns ErrNoHistory when nothing is stored in the span.
func (h *History) Bars(ctx context.Context, symbol string, period drepo.Period) ([]models.Bar, error) {
	key := barsKey(symbol, period)
	if h.cache != nil {
		var cached []models.Bar
		if err := h.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			h.metrics.RecordCache("bars", true)
			return cached, nil
		}
		h.metrics.RecordCache("bars", false)
	}

	now := time.Now().UTC()
	bars, err := h.store.Load(ctx, symbol, period.Start(now), now)
	if err != nil {
		h.metrics.RecordError("bars_load")
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s over %s: %w", symbol, period, ErrNoHistory)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, bars, barsCacheTTL); err != nil {
			h.log.Warn("bars cache set failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return bars, nil
}

// Series loads bars and wraps them in a validated Series.
func (h *History) Series(ctx context.Context, symbol string, period drepo.Period) (*models.Series, error) {
	bars, err := h.Bars(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	return models.NewSeries(bars)
}

// Invalidate drops cached spans for symbol after new bars land.
func (h *History) Invalidate(ctx context.Context, symbol string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteByPattern(ctx, fmt.Sprintf("bars:%s:*", symbol)); err != nil {
		h.log.Warn("bars cache invalidate failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
}
