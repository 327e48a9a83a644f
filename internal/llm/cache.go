package llm

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

// cacheEntry represents a cached classification candidate.
type cacheEntry struct {
	expiry    time.Time
	candidate model.ClassificationCandidate
}

// candidateCache provides thread-safe caching of provider results so repeated
// statements don't burn provider calls.
type candidateCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newCandidateCache creates a new cache with the specified TTL.
func newCandidateCache(ttl time.Duration) *candidateCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &candidateCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// cacheKey hashes the description together with the category set, so a
// category change invalidates prior results.
func cacheKey(req ClassifyRequest) string {
	var b strings.Builder
	b.WriteString(req.Description)
	for _, hint := range req.Categories {
		b.WriteString("|")
		b.WriteString(model.NormalizeCategoryName(hint.Name))
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

// get retrieves a candidate from the cache if it exists and hasn't expired.
func (c *candidateCache) get(key string) (model.ClassificationCandidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return model.ClassificationCandidate{}, false
	}

	if time.Now().After(entry.expiry) {
		return model.ClassificationCandidate{}, false
	}

	return entry.candidate, true
}

// set stores a candidate in the cache.
func (c *candidateCache) set(key string, candidate model.ClassificationCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		candidate: candidate,
		expiry:    time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *candidateCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *candidateCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *candidateCache) Close() {
	close(c.stopCh)
}
