package defi

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStakingProvider serves repeated quotes from an expiring LRU.
// Concurrent misses for the same key each reach the provider.
type CachedStakingProvider struct {
	StakingProvider
	cache *expirable.LRU[string, *StakingQuote]
}

var _ StakingProvider = (*CachedStakingProvider)(nil)

func NewCachedStakingProvider(p StakingProvider, size int, ttl time.Duration) *CachedStakingProvider {
	return &CachedStakingProvider{
		StakingProvider: p,
		cache:           expirable.NewLRU[string, *StakingQuote](size, nil, ttl),
	}
}

func quoteKey(req StakingQuoteRequest) string {
	return strings.Join([]string{req.Pool, string(req.Direction), req.Amount, req.UserAddress}, "|")
}

func (c *CachedStakingProvider) Quote(ctx context.Context, req StakingQuoteRequest) (*StakingQuote, error) {
	key := quoteKey(req)
	if q, ok := c.cache.Get(key); ok {
		cp := *q
		return &cp, nil
	}
	q, err := c.StakingProvider.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, q)
	cp := *q
	return &cp, nil
}

// Purge drops every cached quote.
func (c *CachedStakingProvider) Purge() {
	c.cache.Purge()
}
