// Package redis appends reaction records to a Redis stream.
package redis

import (
	"fmt"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates a go-redis client from a URL (e.g. "redis://localhost:6379/0")
// with the metrics hook installed. redisMetrics may be nil.
func NewClient(redisURL string, redisMetrics *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if redisMetrics != nil {
		rdb.AddHook(NewMetricsHook(redisMetrics))
	}
	return rdb, nil
}
