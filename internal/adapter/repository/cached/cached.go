// Package cached wraps repositories with a read-through usecase.Cache.
// Cache failures never fail a request; they are logged and the wrapped
// repository is used directly.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ioutracker/internal/usecase"
)

// Stats receives cache hit and miss notifications.
type Stats interface {
	CacheHit(name string)
	CacheMiss(name string)
}

type nopStats struct{}

func (nopStats) CacheHit(string)  {}
func (nopStats) CacheMiss(string) {}

// Options configures a decorator.
type Options struct {
	Cache  usecase.Cache
	TTL    time.Duration
	Logger zerolog.Logger
	Stats  Stats
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = usecase.DefaultCacheTTL
	}
	if o.Stats == nil {
		o.Stats = nopStats{}
	}
	return o
}

// load reads key into dst. It reports whether dst was filled.
func (o Options) load(ctx context.Context, name, key string, dst any) bool {
	raw, err := o.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, usecase.ErrCacheMiss) {
			o.Logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		o.Stats.CacheMiss(name)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		o.Logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache value")
		_ = o.Cache.Delete(ctx, key)
		o.Stats.CacheMiss(name)
		return false
	}
	o.Stats.CacheHit(name)
	return true
}

func (o Options) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		o.Logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := o.Cache.Set(ctx, key, raw, o.TTL); err != nil {
		o.Logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (o Options) invalidate(ctx context.Context, key string) {
	if err := o.Cache.Delete(ctx, key); err != nil {
		o.Logger.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}
