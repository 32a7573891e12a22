package middleware

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
)

// BatchProc is the minimal downstream interface the pipeline needs.
type BatchProc interface {
	ProcessBatch(ctx context.Context, symbol string, bars []models.Bar) error
}

// IngestPipeline sits between the Kafka consumer and bar storage. It
// validates each record, coalesces bars per symbol (one row per date,
// replays overwrite), and flushes batches on a timer or when a symbol's
// batch fills. Failed flushes are buffered and retried with backoff.
type IngestPipeline struct {
	proc    BatchProc
	metrics drepo.Metrics

	flushEvery time.Duration
	maxBatch   int

	mu      sync.Mutex
	pending map[string]map[int64]models.Bar // symbol -> date unix -> bar

	retryCh chan retryBatch
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

type retryBatch struct {
	symbol string
	bars   []models.Bar
}

type PipelineOption func(*IngestPipeline)

// WithFlushInterval sets how often pending batches are flushed.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *IngestPipeline) {
		if d > 0 {
			p.flushEvery = d
		}
	}
}

// WithMaxBatch sets the per-symbol batch size that forces a flush.
func WithMaxBatch(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxBatch = n
		}
	}
}

// WithRetryBuffer sets how many failed batches are held for retry.
func WithRetryBuffer(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.retryCh = make(chan retryBatch, n)
		}
	}
}

func NewIngestPipeline(proc BatchProc, metrics drepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:       proc,
		metrics:    metrics,
		flushEvery: 2 * time.Second,
		maxBatch:   500,
		pending:    make(map[string]map[int64]models.Bar),
		retryCh:    make(chan retryBatch, 64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the background flush loop.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop flushes whatever is pending and shuts the loop down.
func (p *IngestPipeline) Stop(ctx context.Context) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	select {
	case <-p.doneCh:
	case <-ctx.Done():
	}
	p.flushAll(ctx)
}

// Submit validates one bar and adds it to the symbol's pending batch.
// A second bar for the same symbol and date replaces the first, so
// replayed messages converge instead of duplicating rows.
func (p *IngestPipeline) Submit(ctx context.Context, symbol string, bar models.Bar) error {
	if symbol == "" {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("bar without symbol")
	}
	if err := bar.Validate(); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	var full []models.Bar
	p.mu.Lock()
	byDate, ok := p.pending[symbol]
	if !ok {
		byDate = make(map[int64]models.Bar)
		p.pending[symbol] = byDate
	}
	key := bar.Date.Unix()
	if _, dup := byDate[key]; dup {
		p.metrics.RecordError("pipeline_replaced")
	}
	byDate[key] = bar
	if len(byDate) >= p.maxBatch {
		full = drain(byDate)
		delete(p.pending, symbol)
	}
	p.mu.Unlock()

	if full != nil {
		p.flush(ctx, symbol, full)
	}
	return nil
}

func (p *IngestPipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	backoff := 50 * time.Millisecond
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flushAll(ctx)
		case rb := <-p.retryCh:
			if err := p.proc.ProcessBatch(ctx, rb.symbol, rb.bars); err != nil {
				if backoff < 2*time.Second {
					backoff *= 2
				}
				p.metrics.RecordError("pipeline_retry")
				time.Sleep(backoff)
				p.requeue(rb)
				continue
			}
			backoff = 50 * time.Millisecond
		}
	}
}

func (p *IngestPipeline) flushAll(ctx context.Context) {
	p.mu.Lock()
	batches := make(map[string][]models.Bar, len(p.pending))
	for symbol, byDate := range p.pending {
		batches[symbol] = drain(byDate)
	}
	p.pending = make(map[string]map[int64]models.Bar)
	p.mu.Unlock()

	for symbol, bars := range batches {
		p.flush(ctx, symbol, bars)
	}
}

func (p *IngestPipeline) flush(ctx context.Context, symbol string, bars []models.Bar) {
	if len(bars) == 0 {
		return
	}
	if err := p.proc.ProcessBatch(ctx, symbol, bars); err != nil {
		p.metrics.RecordError("pipeline_flush")
		p.requeue(retryBatch{symbol: symbol, bars: bars})
	}
}

func (p *IngestPipeline) requeue(rb retryBatch) {
	select {
	case p.retryCh <- rb:
	default:
		p.metrics.RecordError("pipeline_buffer_drop")
	}
}

func drain(byDate map[int64]models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
