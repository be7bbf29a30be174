package mempool

import (
	"sync"
	"time"
)

// cache provides a simple in-memory TTL cache for block-explorer
// responses, cutting down on redundant polling against the same
// address/txid every observer tick.
type cache struct {
	height       uint32
	heightExpiry time.Time

	// txStatus caches TransactionResponse by txid.
	txStatus map[string]cacheEntry

	ttl time.Duration
	mu  sync.RWMutex
}

func newCache(size int, ttl time.Duration) *cache {
	return &cache{
		txStatus: make(map[string]cacheEntry, size),
		ttl:      ttl,
	}
}

func (c *cache) getHeight() (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if time.Now().Before(c.heightExpiry) && c.height > 0 {
		return c.height, true
	}
	return 0, false
}

func (c *cache) setHeight(height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.height = height
	c.heightExpiry = time.Now().Add(c.ttl)
}

func (c *cache) getTx(txid string) (TransactionResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.txStatus[txid]
	if !ok || time.Now().After(entry.expiresAt) {
		return TransactionResponse{}, false
	}
	tx, ok := entry.value.(TransactionResponse)
	return tx, ok
}

func (c *cache) setTx(txid string, tx TransactionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Confirmed transactions don't change; cache them far longer than
	// the mempool-state TTL to spare the API unnecessary lookups.
	ttl := c.ttl
	if tx.Status.Confirmed {
		ttl = 24 * time.Hour
	}
	c.txStatus[txid] = cacheEntry{value: tx, expiresAt: time.Now().Add(ttl)}

	if len(c.txStatus) > 1000 {
		c.evictOldest()
	}
}

// evictOldest drops the single stalest entry. Called with the lock held.
func (c *cache) evictOldest() {
	var oldestTxid string
	oldestTime := time.Now().Add(24 * time.Hour)
	for txid, entry := range c.txStatus {
		if entry.expiresAt.Before(oldestTime) {
			oldestTime = entry.expiresAt
			oldestTxid = txid
		}
	}
	delete(c.txStatus, oldestTxid)
}

// cleanup removes expired entries from the cache.
func (c *cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for txid, entry := range c.txStatus {
		if now.After(entry.expiresAt) {
			delete(c.txStatus, txid)
		}
	}
}
