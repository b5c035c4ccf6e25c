package probe

import (
	"slices"
	"sync"
	"time"
)

// defaultCacheTTL is the fallback TTL used when a non-positive value is supplied
const defaultCacheTTL = 5 * time.Minute

// dnsCache is a concurrency-safe TTL cache of resolved record sets, failures included
type dnsCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]dnsCacheEntry
}

type dnsCacheEntry struct {
	result  *DNSResult
	err     error
	expires time.Time
}

func newDNSCache(ttl time.Duration) *dnsCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &dnsCache{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]dnsCacheEntry),
	}
}

// get returns a copy of a live entry
func (c *dnsCache) get(host string) (dnsCacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.data[host]
	c.mu.RUnlock()

	if !ok || !entry.expires.After(c.now()) {
		return dnsCacheEntry{}, false
	}

	entry.result = cloneDNSResult(entry.result)

	return entry, true
}

func (c *dnsCache) put(host string, result *DNSResult, err error) {
	c.mu.Lock()
	c.data[host] = dnsCacheEntry{
		result:  cloneDNSResult(result),
		err:     err,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// cloneDNSResult returns a deep copy so callers cannot mutate cached data
func cloneDNSResult(src *DNSResult) *DNSResult {
	if src == nil {
		return nil
	}

	return &DNSResult{
		A:     slices.Clone(src.A),
		AAAA:  slices.Clone(src.AAAA),
		CNAME: slices.Clone(src.CNAME),
		MX:    slices.Clone(src.MX),
		NS:    slices.Clone(src.NS),
	}
}
