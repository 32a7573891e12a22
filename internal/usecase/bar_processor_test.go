package usecase

import (
	"context"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/metrics"
)

func TestProcessBatch_SortsAndStores(t *testing.T) {
	store := &fakeBarStore{}
	events := &fakeEvents{}
	p := NewBarProcessor(store, events, nil, metrics.Noop{}, testLogger(t))

	d1 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Date: d3, Open: 102, High: 103, Low: 101, Close: 102, Volume: 300},
		{Date: d1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{Date: d2, Open: 101, High: 102, Low: 100, Close: 101, Volume: 200},
	}

	if err := p.ProcessBatch(context.Background(), "AAPL", bars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.stored) != 1 {
		t.Fatalf("expected 1 stored batch, got %d", len(store.stored))
	}
	got := store.stored[0]
	if !got[0].Date.Equal(d1) || !got[1].Date.Equal(d2) || !got[2].Date.Equal(d3) {
		t.Errorf("expected batch sorted by date, got %v %v %v", got[0].Date, got[1].Date, got[2].Date)
	}
	if bars[0].Date != d3 {
		t.Error("input slice should not be reordered")
	}

	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.Type != models.EventBarsStored || ev.Symbol != "AAPL" {
		t.Errorf("unexpected event %s for %s", ev.Type, ev.Symbol)
	}
	if ev.Payload["count"] != 3 {
		t.Errorf("expected count 3 in payload, got %v", ev.Payload["count"])
	}
	if ev.Payload["last_date"] != "2024-06-05" {
		t.Errorf("expected last_date 2024-06-05, got %v", ev.Payload["last_date"])
	}
}

func TestProcessBatch_RejectsInvalidBar(t *testing.T) {
	store := &fakeBarStore{}
	p := NewBarProcessor(store, nil, nil, metrics.Noop{}, testLogger(t))

	bars := []models.Bar{{
		Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Open: 100, High: 99, Low: 101, Close: 100, Volume: 100, // low above high
	}}
	if err := p.ProcessBatch(context.Background(), "AAPL", bars); err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.stored) != 0 {
		t.Error("invalid batch must not reach storage")
	}
}

func TestProcessBatch_EmptyAndMissingSymbol(t *testing.T) {
	store := &fakeBarStore{}
	p := NewBarProcessor(store, nil, nil, metrics.Noop{}, testLogger(t))

	if err := p.ProcessBatch(context.Background(), "AAPL", nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
	if err := p.ProcessBatch(context.Background(), "", []models.Bar{{}}); err == nil {
		t.Error("expected error for missing symbol")
	}
}
