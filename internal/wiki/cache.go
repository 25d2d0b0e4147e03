package wiki

import (
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL matches the refresh cadence of the 5m endpoint closely
// enough that back-to-back passes reuse one download.
const DefaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// responseCache is a thread-safe TTL cache of raw endpoint bodies. The
// singleflight group keeps concurrent misses for one endpoint to one fetch.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (rc *responseCache) setTTL(ttl time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.ttl = ttl
}

// Get returns the cached body for endpoint if it has not expired.
func (rc *responseCache) Get(endpoint string) ([]byte, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	e, ok := rc.entries[endpoint]
	if !ok || !rc.now().Before(e.expires) {
		return nil, false
	}
	log.Printf("[WIKI] cache HIT /%s (%d bytes)", endpoint, len(e.body))
	return e.body, true
}

// Put stores body for the current TTL. A zero TTL stores nothing.
func (rc *responseCache) Put(endpoint string, body []byte) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.ttl <= 0 {
		return
	}
	rc.entries[endpoint] = &cacheEntry{body: body, expires: rc.now().Add(rc.ttl)}
	log.Printf("[WIKI] cache MISS /%s (%d bytes, expires=%s)", endpoint, len(body), rc.entries[endpoint].expires.Format("15:04:05"))
}

// Clear removes every entry and returns how many there were.
func (rc *responseCache) Clear() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	n := len(rc.entries)
	rc.entries = make(map[string]*cacheEntry)
	return n
}
