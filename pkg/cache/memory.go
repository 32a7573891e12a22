package cache

import (
	"sync"
	"time"
)

const janitorInterval = 5 * time.Minute

type memEntry struct {
	data     []byte
	expireAt time.Time
	lastUsed time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// memoryCache is the in-process L1 in front of Redis. It stores the
// same JSON bytes Redis does, keyed without the Redis prefix, and
// evicts the least recently used entry once maxEntries is reached.
type memoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	maxEntries int
	janitor    *time.Ticker
	done       chan struct{}
}

func newMemoryCache(maxEntries int) *memoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	mc := &memoryCache{
		entries:    make(map[string]*memEntry),
		maxEntries: maxEntries,
		janitor:    time.NewTicker(janitorInterval),
		done:       make(chan struct{}),
	}
	go mc.sweep()
	return mc
}

func (mc *memoryCache) set(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.entries[key]; !ok && len(mc.entries) >= mc.maxEntries {
		mc.evictOldest()
	}
	now := time.Now()
	mc.entries[key] = &memEntry{
		data:     data,
		expireAt: now.Add(ttl),
		lastUsed: now,
	}
}

func (mc *memoryCache) get(key string) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return nil, false
	}
	now := time.Now()
	if e.expired(now) {
		delete(mc.entries, key)
		return nil, false
	}
	e.lastUsed = now
	return e.data, true
}

func (mc *memoryCache) delete(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, key)
}

// flush drops every entry. Pattern matching stays in Redis; locally it
// is cheaper to start over than to glob the key space.
func (mc *memoryCache) flush() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]*memEntry)
}

func (mc *memoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range mc.entries {
		if oldestKey == "" || e.lastUsed.Before(oldest) {
			oldest = e.lastUsed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

func (mc *memoryCache) sweep() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.janitor.C:
			now := time.Now()
			mc.mu.Lock()
			for key, e := range mc.entries {
				if e.expired(now) {
					delete(mc.entries, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

func (mc *memoryCache) stop() {
	mc.janitor.Stop()
	close(mc.done)
}
