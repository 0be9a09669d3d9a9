package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix  = "geocode:"
	DefaultRedisTTL = 30 * 24 * time.Hour
)

type redisEntry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RedisGeocodeCache stores address -> coordinate mappings as JSON values
// under "geocode:<address>" with a fixed TTL.
type RedisGeocodeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGeocodeCache(rdb *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisGeocodeCache{rdb: rdb, ttl: ttl}
}

// NewRedisGeocodeCacheFromURL parses a redis:// URL and verifies the connection.
func NewRedisGeocodeCacheFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisGeocodeCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis geocode cache: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis geocode cache: ping: %w", err)
	}

	return NewRedisGeocodeCache(rdb, ttl), nil
}

func (c *RedisGeocodeCache) Close() error { return c.rdb.Close() }

// Fetch cached coordinates for the given addresses.
// Entries that fail to decode are treated as misses.
func (c *RedisGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.redis.GetMany")(&err)

	if c.rdb == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	uniq := uniqueKeys(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	keys := make([]string, 0, len(uniq))
	for _, a := range uniq {
		keys = append(keys, redisKeyPrefix+a)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: mget: %w", err)
	}

	out := make(map[string]domain.Coordinates, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}

		var e redisEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			zap.L().Warn("geocode cache: undecodable entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out[uniq[i]] = domain.Coordinates{Lat: e.Lat, Lng: e.Lng}
	}

	return out, nil
}

// Store address -> coordinate mappings in one pipeline.
func (c *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.redis.PutMany")(&err)

	if c.rdb == nil {
		return errors.New("geocode cache: redis client is nil")
	}

	if len(results) == 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	for addr, coord := range results {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		if !coord.Valid() {
			return fmt.Errorf("insert geocode cache: invalid coordinates for %q", addr)
		}

		b, err := json.Marshal(redisEntry{Lat: coord.Lat, Lng: coord.Lng})
		if err != nil {
			return fmt.Errorf("insert geocode cache: encode %q: %w", addr, err)
		}
		pipe.Set(ctx, redisKeyPrefix+addr, b, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert geocode cache: exec pipeline: %w", err)
	}

	return nil
}

func (c *RedisGeocodeCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }
