package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries to a topic. The Kafka
// producer satisfies this through a thin adapter.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls when aggregated warn/error entries flush.
type CollectionConfig struct {
	TimeInterval   time.Duration // flush cadence
	CountThreshold int           // distinct entries that force a flush
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry is one deduplicated warn/error line with its
// occurrence count and the window it was seen in.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates warn/error entries between flushes so a
// repeating failure becomes one counted entry instead of a flood.
type LogCollector struct {
	cfg    *CollectionConfig
	byKey  map[string]*AggregatedLogEntry
	recent []AggregatedLogEntry // last flushed entries, kept for the health endpoint
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const (
	recentRingSize    = 64
	defaultFlushEvery = 30 * time.Second
	publishTimeout    = 30 * time.Second
)

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = defaultFlushEvery
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &LogCollector{
		cfg:    cfg,
		byKey:  make(map[string]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.flushLoop()

	return c
}

// AddLog records one occurrence. Entries with the same level, message,
// fields and caller collapse into a single counted entry.
func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.byKey[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.byKey[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if c.cfg.CountThreshold > 0 && len(c.byKey) >= c.cfg.CountThreshold {
		c.flushLocked()
	}
}

// entryKey hashes the identity of an entry. json.Marshal sorts map
// keys, so equal field maps hash equally.
func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	identity := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	raw, _ := json.Marshal(identity)
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}

func (c *LogCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
		case <-c.ctx.Done():
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
			return
		}
	}
}

// flushLocked drains the pending map and hands the batch to the
// publisher. Callers must hold mu.
func (c *LogCollector) flushLocked() {
	if len(c.byKey) == 0 {
		return
	}

	batch := make([]AggregatedLogEntry, 0, len(c.byKey))
	for _, e := range c.byKey {
		batch = append(batch, *e)
	}
	c.byKey = make(map[string]*AggregatedLogEntry)

	c.recent = append(c.recent, batch...)
	if over := len(c.recent) - recentRingSize; over > 0 {
		c.recent = c.recent[over:]
	}

	if c.cfg.Publisher == nil {
		return
	}

	// Publishing happens off the lock path. The logger cannot be used
	// here without recursing, hence stderr on failure.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "log collector: publish failed: %v\n", err)
		}
	}()
}

// Recent returns up to n of the most recently flushed entries, newest last.
func (c *LogCollector) Recent(n int) []AggregatedLogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || n > len(c.recent) {
		n = len(c.recent)
	}
	out := make([]AggregatedLogEntry, n)
	copy(out, c.recent[len(c.recent)-n:])
	return out
}

// Close performs a final flush and stops the loop. Publishes already
// in flight are not waited for.
func (c *LogCollector) Close() {
	c.cancel()
	c.wg.Wait()
}
