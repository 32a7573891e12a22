package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/metrics"
)

type capturedBatch struct {
	symbol string
	bars   []models.Bar
}

type captureProc struct {
	mu        sync.Mutex
	batches   []capturedBatch
	failFirst int
	calls     int
}

func (c *captureProc) ProcessBatch(ctx context.Context, symbol string, bars []models.Bar) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failFirst {
		return errors.New("downstream unavailable")
	}
	c.batches = append(c.batches, capturedBatch{symbol: symbol, bars: bars})
	return nil
}

func (c *captureProc) snapshot() ([]capturedBatch, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]capturedBatch, len(c.batches))
	copy(out, c.batches)
	return out, c.calls
}

func bar(day int, close float64) models.Bar {
	return models.Bar{
		Date:   time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 100,
	}
}

func TestSubmit_FlushesFullBatch(t *testing.T) {
	proc := &captureProc{}
	p := NewIngestPipeline(proc, metrics.Noop{}, WithMaxBatch(2), WithFlushInterval(time.Hour))

	ctx := context.Background()
	if err := p.Submit(ctx, "AAPL", bar(3, 100)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(ctx, "AAPL", bar(4, 101)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	batches, _ := proc.snapshot()
	if len(batches) != 1 {
		t.Fatalf("expected 1 flushed batch, got %d", len(batches))
	}
	if got := batches[0]; got.symbol != "AAPL" || len(got.bars) != 2 {
		t.Errorf("unexpected batch %s with %d bars", got.symbol, len(got.bars))
	}
	if !batches[0].bars[0].Date.Before(batches[0].bars[1].Date) {
		t.Error("flushed bars should be date ordered")
	}
}

func TestSubmit_CoalescesSameDate(t *testing.T) {
	proc := &captureProc{}
	p := NewIngestPipeline(proc, metrics.Noop{}, WithMaxBatch(100), WithFlushInterval(time.Hour))

	ctx := context.Background()
	if err := p.Submit(ctx, "AAPL", bar(3, 100)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(ctx, "AAPL", bar(3, 105)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	p.Start(ctx)
	p.Stop(ctx)

	batches, _ := proc.snapshot()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0].bars) != 1 {
		t.Fatalf("expected same-date bars to coalesce, got %d rows", len(batches[0].bars))
	}
	if got := batches[0].bars[0].Close; got != 105 {
		t.Errorf("expected the later bar to win, got close %.0f", got)
	}
}

func TestStop_FlushesPending(t *testing.T) {
	proc := &captureProc{}
	p := NewIngestPipeline(proc, metrics.Noop{}, WithMaxBatch(100), WithFlushInterval(time.Hour))

	ctx := context.Background()
	p.Start(ctx)
	if err := p.Submit(ctx, "AAPL", bar(3, 100)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(ctx, "MSFT", bar(3, 200)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	p.Stop(ctx)

	batches, _ := proc.snapshot()
	if len(batches) != 2 {
		t.Fatalf("expected both symbols flushed on stop, got %d batches", len(batches))
	}
}

func TestSubmit_RejectsInvalid(t *testing.T) {
	proc := &captureProc{}
	p := NewIngestPipeline(proc, metrics.Noop{}, WithMaxBatch(1))

	ctx := context.Background()
	if err := p.Submit(ctx, "", bar(3, 100)); err == nil {
		t.Error("expected error for empty symbol")
	}
	b := bar(3, 100)
	b.Low = b.High + 1
	if err := p.Submit(ctx, "AAPL", b); err == nil {
		t.Error("expected error for invalid bar")
	}
	if batches, _ := proc.snapshot(); len(batches) != 0 {
		t.Errorf("invalid submissions must not flush, got %d batches", len(batches))
	}
}

func TestRetry_RedeliversFailedBatch(t *testing.T) {
	proc := &captureProc{failFirst: 1}
	p := NewIngestPipeline(proc, metrics.Noop{}, WithMaxBatch(1), WithFlushInterval(time.Hour))

	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop(ctx)

	if err := p.Submit(ctx, "AAPL", bar(3, 100)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if batches, _ := proc.snapshot(); len(batches) == 1 {
			if len(batches[0].bars) != 1 || batches[0].bars[0].Close != 100 {
				t.Fatalf("unexpected redelivered batch: %+v", batches[0])
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("failed batch was never redelivered")
}
