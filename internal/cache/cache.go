// Package cache provides the fetch-result cache port, its memory and Redis
// stores, and a loader that collapses concurrent loads of one key.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"netgdp/internal/metrics"
	"netgdp/logger"
)

const keyPrefix = "netgdp:"

// loadTimeout bounds a shared load once it no longer follows any caller's
// context.
const loadTimeout = time.Minute

// Store is a byte-oriented TTL cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache wraps a Store with single-flight loading.
type Cache struct {
	store Store
	group singleflight.Group
	log   *logger.Log
}

func New(store Store, log *logger.Log) *Cache {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Cache{store: store, log: log}
}

// Key joins a metric name and its parameters into a cache key.
func Key(metric string, params ...string) string {
	return keyPrefix + metric + ":" + strings.Join(params, ":")
}

// Remember returns the cached value for key or loads it with fn. Concurrent
// callers for the same key share one fn call, which runs detached from any
// single caller's cancellation; each caller still stops waiting when its own
// ctx ends. Errors from fn are returned and never cached. Store failures are
// logged and treated as misses.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil || c.store == nil {
		return fn(ctx)
	}

	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(loadCtx, loadTimeout)
		defer cancel()
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err != nil {
			c.log.WithComponent("cache").WithError(err).WithField("key", key).Warn("failed to encode cache entry")
		} else if err := c.store.Set(ctx, key, data, ttl); err != nil {
			c.log.WithComponent("cache").WithError(err).WithField("key", key).Warn("failed to store cache entry")
		}
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected type %T for key %s", res.Val, key)
	}
	return v, nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.IncrementCache("error")
		c.log.WithComponent("cache").WithError(err).WithField("key", key).Warn("cache lookup failed")
		return v, false
	}
	if !ok {
		metrics.IncrementCache("miss")
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.IncrementCache("error")
		c.log.WithComponent("cache").WithError(err).WithField("key", key).Warn("failed to decode cache entry")
		return v, false
	}
	metrics.IncrementCache("hit")
	return v, true
}
