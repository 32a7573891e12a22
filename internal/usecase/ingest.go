package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
	"FinCast/pkg/util"
)

// BarSink accepts validated bars one at a time. Implemented by the
// ingest pipeline; swapped for a recorder in tests.
type BarSink interface {
	Submit(ctx context.Context, symbol string, bar models.Bar) error
}

// BarIngestHandler consumes daily-bar messages from Kafka and feeds the
// ingest pipeline. Market data always arrives through this channel or
// the backfill endpoint; the engine never fetches it itself.
type BarIngestHandler struct {
	topic   string
	sink    BarSink
	metrics drepo.Metrics
}

func NewBarIngestHandler(topic string, sink BarSink, metrics drepo.Metrics) *BarIngestHandler {
	return &BarIngestHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *BarIngestHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, date, open, high, low, close, volume}
func (h *BarIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	date, ok := util.ParseTime(m.Date)
	if !ok {
		h.metrics.RecordError("consumer_date")
		return fmt.Errorf("bar message with unparseable date %q", m.Date)
	}

	start := time.Now()
	err := h.sink.Submit(ctx, util.NormalizeSymbol(m.Symbol), models.Bar{
		Date:   midnightUTC(date),
		Open:   m.Open,
		High:   m.High,
		Low:    m.Low,
		Close:  m.Close,
		Volume: m.Volume,
	})
	h.metrics.RecordLatency("ingest_handle", time.Since(start).Seconds())
	return err
}

// midnightUTC pins a bar date to its day, so replayed messages with
// different time-of-day stamps coalesce to the same row.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ pkgkafka.MessageHandler = (*BarIngestHandler)(nil)
