package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// BarProcessor lands validated bars in storage and announces them. Both
// ingest paths (Kafka consumer, manual backfill over HTTP) funnel
// through it so validation and bookkeeping stay in one place.
type BarProcessor struct {
	store   drepo.BarStore
	events  drepo.EventPublisher
	history *History
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewBarProcessor(store drepo.BarStore, events drepo.EventPublisher, history *History, m drepo.Metrics, log *applogger.Logger) *BarProcessor {
	return &BarProcessor{store: store, events: events, history: history, metrics: m, log: log}
}

// ProcessBatch validates, orders, and stores a batch of bars for one
// symbol, then invalidates cached history and publishes bars.stored.
func (p *BarProcessor) ProcessBatch(ctx context.Context, symbol string, bars []models.Bar) error {
	if symbol == "" {
		return fmt.Errorf("bar batch without symbol")
	}
	if len(bars) == 0 {
		return nil
	}
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			p.metrics.RecordError("bars_invalid")
			return fmt.Errorf("bar batch for %s: %w", symbol, err)
		}
	}

	ordered := make([]models.Bar, len(bars))
	copy(ordered, bars)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	start := time.Now()
	if err := p.store.StoreBatch(ctx, symbol, ordered); err != nil {
		p.metrics.RecordError("bars_store")
		return fmt.Errorf("store bars for %s: %w", symbol, err)
	}
	p.metrics.RecordLatency("bars_store", time.Since(start).Seconds())
	p.metrics.RecordBarsIngested(symbol, len(ordered))

	last := ordered[len(ordered)-1]
	// A backfill of older history must not move the freshness gauge
	// backwards; only record when the batch extends the stored range.
	if latest, ok, err := p.store.LatestDate(ctx, symbol); err != nil || !ok || !last.Date.Before(latest) {
		p.metrics.RecordLastClose(symbol, last.Close)
	}

	if p.history != nil {
		p.history.Invalidate(ctx, symbol)
	}

	if p.events != nil {
		ev := models.NewEngineEvent(models.EventBarsStored, symbol).
			With("count", len(ordered)).
			With("last_date", last.Date.Format("2006-01-02"))
		if err := p.events.PublishEvent(ctx, ev); err != nil {
			p.log.Warn("bars.stored publish failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}

	p.log.Debug("bars stored",
		applogger.String("symbol", symbol),
		applogger.Int("count", len(ordered)),
		applogger.String("last_date", last.Date.Format("2006-01-02")),
	)
	return nil
}
