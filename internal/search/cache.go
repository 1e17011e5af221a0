package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "travel:flightsearch:"

// CachedSearcher memoizes non-empty search responses in Redis. Cache errors
// never fail a search; they fall through to the wrapped searcher.
type CachedSearcher struct {
	next   FlightSearcher
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSearcher(next FlightSearcher, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedSearcher {
	return &CachedSearcher{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "flight-search-cache"}),
	}
}

// CacheKey is stable for equal requests.
func CacheKey(req SearchRequest) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}

func (c *CachedSearcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	key := CacheKey(req)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var resp SearchResponse
		if jsonErr := json.Unmarshal([]byte(cached), &resp); jsonErr == nil {
			metrics.FlightSearches.WithLabelValues("cached").Inc()
			return &resp, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("search cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	resp, err := c.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Offers) == 0 {
		return resp, nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return resp, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return resp, nil
}
