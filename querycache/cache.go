package querycache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/metrics"
)

const entryVersion = 1

// Cache is the keyed read-through cache in front of the event store client.
// Entries younger than the fresh window are served directly; entries between
// the fresh window and the TTL are served immediately while a background
// revalidation refreshes them; past the TTL redis has expired them and the
// fetch runs synchronously. At most one fetch is in flight per key. Redis
// being down degrades to plain fetching, never to an error.
type Cache struct {
	redis *redis.Client
	group singleflight.Group

	fresh          time.Duration
	ttl            time.Duration
	refreshTimeout time.Duration
	retryable      func(error) bool
	logger         *log.Logger
	now            func() time.Time
}

type entry struct {
	Version  int             `json:"version"`
	CachedAt time.Time       `json:"cachedAt"`
	Payload  json.RawMessage `json:"payload"`
}

// New creates a Cache. retryable decides which fetch errors earn the single
// retry; pass nil to never retry.
func New(client *redis.Client, fresh, ttl time.Duration, retryable func(error) bool, logger *log.Logger) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	if fresh <= 0 || fresh > ttl {
		fresh = ttl
	}
	return &Cache{
		redis:          client,
		fresh:          fresh,
		ttl:            ttl,
		refreshTimeout: 30 * time.Second,
		retryable:      retryable,
		logger:         logger,
		now:            time.Now,
	}
}

// Key builds a cache key from resource name and parameters.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Fetch returns the value for key, calling fn on a miss. Concurrent callers
// of the same key share one fetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if payload, age, ok := c.lookup(ctx, key); ok {
		var out T
		if err := sonic.ConfigStd.Unmarshal(payload, &out); err == nil {
			if age <= c.fresh {
				metrics.IncCacheLookup(metrics.CacheHit)
				return out, nil
			}
			metrics.IncCacheLookup(metrics.CacheStale)
			revalidateAsync(c, key, fn)
			return out, nil
		}
		// Corrupted entry; drop it and fetch.
		_ = c.redis.Del(ctx, key).Err()
	}

	metrics.IncCacheLookup(metrics.CacheMiss)
	v, err, _ := c.group.Do(key, func() (any, error) {
		out, err := fetchWithRetry(ctx, c, fn)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, out)
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops the given keys. Used after successful writes; derived
// values are never patched locally.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil && c.logger != nil {
		c.logger.Debugf("cache invalidate: %v", err)
	}
}

func fetchWithRetry[T any](ctx context.Context, c *Cache, fn func(context.Context) (T, error)) (T, error) {
	out, err := fn(ctx)
	if err != nil && c.retryable != nil && c.retryable(err) && ctx.Err() == nil {
		out, err = fn(ctx)
	}
	return out, err
}

func revalidateAsync[T any](c *Cache, key string, fn func(context.Context) (T, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()
		_, err, _ := c.group.Do(key, func() (any, error) {
			out, err := fetchWithRetry(ctx, c, fn)
			if err != nil {
				return nil, err
			}
			c.store(ctx, key, out)
			return out, nil
		})
		if err != nil && c.logger != nil {
			c.logger.WithField("key", key).Debugf("background revalidation failed: %v", err)
		}
	}()
}

func (c *Cache) lookup(ctx context.Context, key string) (json.RawMessage, time.Duration, bool) {
	if c.redis == nil {
		return nil, 0, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil is an ordinary miss; anything else falls through to
		// the backing fetch without failing the request.
		return nil, 0, false
	}
	var e entry
	if err := sonic.ConfigStd.Unmarshal(data, &e); err != nil || e.Version != entryVersion {
		_ = c.redis.Del(ctx, key).Err()
		return nil, 0, false
	}
	return e.Payload, c.now().Sub(e.CachedAt), true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	payload, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return
	}
	data, err := sonic.ConfigStd.Marshal(entry{Version: entryVersion, CachedAt: c.now(), Payload: payload})
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
