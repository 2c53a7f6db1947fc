package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheTTL             = 6 * time.Hour
	defaultCacheCleanupInterval = 10 * time.Minute
)

// Cached memoizes vectors per text so reruns over unchanged items do not pay
// for the same request twice within the TTL.
type Cached struct {
	next  Provider
	cache *gocache.Cache
	ttl   time.Duration
}

func NewCached(next Provider, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:  next,
		cache: gocache.New(ttl, defaultCacheCleanupInterval),
		ttl:   ttl,
	}
}

func (c *Cached) Name() string {
	return c.next.Name()
}

func (c *Cached) Len() int {
	return c.cache.ItemCount()
}

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInput(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(c.key(text)); ok {
			out[i] = v.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(len(missing), vectors); err != nil {
		return nil, err
	}
	for j, idx := range missingIdx {
		out[idx] = vectors[j]
		c.cache.Set(c.key(missing[j]), vectors[j], c.ttl)
	}
	return out, nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.next.Name() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
