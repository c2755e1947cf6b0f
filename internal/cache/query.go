package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// QueryCache caches JSON encoded query results by endpoint and parameters.
// A nil *QueryCache caches nothing.
type QueryCache struct {
	cache Cache
	ttl   time.Duration

	mu    sync.Mutex
	stats Stats
}

// Stats counts cache traffic since the last invalidation
type Stats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	HitRate   float64   `json:"hit_rate"`
	LastReset time.Time `json:"last_reset"`
}

func NewQueryCache(c Cache, ttl time.Duration) *QueryCache {
	return &QueryCache{cache: c, ttl: ttl, stats: Stats{LastReset: time.Now()}}
}

// Remember returns the cached result for endpoint and params, or calls load
// and caches what it returns. Errors from load are returned and not cached.
// Cache failures only cost a reload.
func Remember[T any](ctx context.Context, qc *QueryCache, endpoint string, params url.Values, load func(context.Context) (T, error)) (T, error) {
	if qc == nil || qc.ttl <= 0 {
		return load(ctx)
	}

	key := Key(endpoint, params)
	data, ok, err := qc.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache read failed")
	}
	if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			qc.record(true)
			return v, nil
		}
	}
	qc.record(false)

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := qc.cache.Set(ctx, key, data, qc.ttl); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache write failed")
		}
	}
	return v, nil
}

// Invalidate drops every cached result
func (qc *QueryCache) Invalidate(ctx context.Context) error {
	if qc == nil {
		return nil
	}
	qc.mu.Lock()
	qc.stats = Stats{LastReset: time.Now()}
	qc.mu.Unlock()
	return qc.cache.Clear(ctx)
}

func (qc *QueryCache) Stats() Stats {
	if qc == nil {
		return Stats{}
	}
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.stats
}

func (qc *QueryCache) record(hit bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	if hit {
		qc.stats.Hits++
	} else {
		qc.stats.Misses++
	}
	qc.stats.HitRate = float64(qc.stats.Hits) / float64(qc.stats.Hits+qc.stats.Misses)
}

// Key derives the cache key for an endpoint and its parameters. Parameter
// order does not matter.
func Key(endpoint string, params url.Values) string {
	hash := sha256.Sum256([]byte(endpoint + "?" + params.Encode()))
	return endpoint + ":" + hex.EncodeToString(hash[:])
}
