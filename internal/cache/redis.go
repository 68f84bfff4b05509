package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"trustscan/internal/domain"
)

const keyPrefix = "trustscan:scan:"

// Redis shares scan results between instances. Backend errors are logged and
// read as misses; a scan is never failed because the cache is down.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, log logrus.FieldLogger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, log: log.WithField("component", "cache.redis")}
}

func cacheKey(host string) string { return keyPrefix + host }

func (r *Redis) Get(ctx context.Context, key string) (domain.ScanResult, bool) {
	var res domain.ScanResult
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, false
	}
	if err != nil {
		r.log.WithError(err).WithField("host", key).Warn("cache get failed")
		return res, false
	}
	if err := json.Unmarshal(data, &res); err != nil {
		r.log.WithError(err).WithField("host", key).Warn("cache entry unreadable")
		return res, false
	}
	return res, true
}

func (r *Redis) Set(ctx context.Context, key string, result domain.ScanResult) {
	data, err := json.Marshal(result)
	if err != nil {
		r.log.WithError(err).WithField("host", key).Warn("cache encode failed")
		return
	}
	if err := r.client.Set(ctx, cacheKey(key), data, r.ttl).Err(); err != nil {
		r.log.WithError(err).WithField("host", key).Warn("cache set failed")
	}
}

func (r *Redis) Evict(ctx context.Context, key string) {
	if err := r.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		r.log.WithError(err).WithField("host", key).Warn("cache evict failed")
	}
}
