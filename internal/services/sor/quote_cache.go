package sor

import (
	"container/list"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/services/swap"
)

const (
	DefaultQuoteCacheSize = 1024
	DefaultQuoteCacheTTL  = 2 * time.Second
)

type quoteKey struct {
	kind     domain.SwapKind
	tokenIn  common.Address
	tokenOut common.Address
	amount   string
}

func newQuoteKey(kind domain.SwapKind, tokenIn, tokenOut domain.Token, amount domain.TokenAmount) quoteKey {
	return quoteKey{
		kind:     kind,
		tokenIn:  tokenIn.Address,
		tokenOut: tokenOut.Address,
		amount:   amount.Amount.Hex(),
	}
}

type quoteEntry struct {
	key    quoteKey
	swap   *swap.Swap
	expiry time.Time
}

// quoteCache is a bounded LRU of routed swaps with a TTL. A nil swap is a
// cached no-route answer. Swaps are read-only once built, so entries are
// shared between callers.
type quoteCache struct {
	mu      sync.Mutex
	entries map[quoteKey]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func newQuoteCache(maxSize int, ttl time.Duration) *quoteCache {
	return &quoteCache{
		entries: make(map[quoteKey]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *quoteCache) get(key quoteKey) (*swap.Swap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*quoteEntry)
	if c.now().After(entry.expiry) {
		c.lru.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.swap, true
}

func (c *quoteCache) set(key quoteKey, sw *swap.Swap) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry := c.now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*quoteEntry)
		entry.swap = sw
		entry.expiry = expiry
		return
	}

	for len(c.entries) >= c.maxSize {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.lru.Remove(back)
		delete(c.entries, back.Value.(*quoteEntry).key)
	}
	c.entries[key] = c.lru.PushFront(&quoteEntry{key: key, swap: sw, expiry: expiry})
}

// purge drops every entry; called whenever the pool set changes.
func (c *quoteCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[quoteKey]*list.Element, c.maxSize)
	c.lru.Init()
}

func (c *quoteCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
