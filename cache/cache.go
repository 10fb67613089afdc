// Package cache keeps recent successful crawl results for requests that
// opt in with max_age.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/mirror/models"
)

// Store is a result cache. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the result stored under key if it was crawled less than
	// maxAge ago. A non-positive maxAge always misses.
	Get(ctx context.Context, key string, maxAge time.Duration) (*models.CrawlResult, bool)

	// Set stores res under key. Failed results are never stored.
	Set(ctx context.Context, key string, res *models.CrawlResult)

	Close() error
}

// Key derives a cache key from the parts that change what a crawl returns:
// URL, format, fetch mode and the cookie fingerprint.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// fresh reports whether res was crawled within maxAge.
func fresh(res *models.CrawlResult, maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(res.CrawledAt) <= maxAge
}

// entry holds a cached result with its insertion time.
type entry struct {
	result   *models.CrawlResult
	storedAt time.Time
}

// Memory is an in-process Store.
type Memory struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration

	done chan struct{}
	once sync.Once
}

// NewMemory creates a Memory store holding at most maxEntries results.
// A background goroutine evicts entries older than ttl every ttl/12 (at
// least once a minute) until Close is called.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	m := &Memory{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go m.cleanupLoop(min(max(ttl/12, time.Second), time.Minute))
	return m
}

func (m *Memory) Get(_ context.Context, key string, maxAge time.Duration) (*models.CrawlResult, bool) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()

	if !ok || time.Since(e.storedAt) > m.ttl || !fresh(e.result, maxAge) {
		return nil, false
	}
	return e.result, true
}

func (m *Memory) Set(_ context.Context, key string, res *models.CrawlResult) {
	if res == nil || !res.Success {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxEntries {
		for k := range m.store {
			delete(m.store, k)
			break
		}
	}
	m.store[key] = &entry{result: res, storedAt: time.Now()}
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Memory) evictExpired() {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	for k, e := range m.store {
		if e.storedAt.Before(cutoff) {
			delete(m.store, k)
		}
	}
	m.mu.Unlock()
}
