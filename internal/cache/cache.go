// Package cache implements the two-tier cache used for wallet balances: a
// bounded in-process tier backed by freecache in front of a persistent Store.
package cache

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/vmihailenco/msgpack/v5"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

const (
	// DefaultTTL bounds how stale a cached balance may be.
	DefaultTTL = 5 * time.Second
	// DefaultFastCacheSize is the freecache arena size in bytes.
	DefaultFastCacheSize = 1 << 20
)

// entry is the msgpack envelope written to both tiers.
type entry struct {
	Value    string `msgpack:"v"`
	StoredAt int64  `msgpack:"t"`
}

// TwoTier reads through a fast in-process tier to a persistent Store and
// writes through to both. Persistent tier failures are logged and never
// surface to callers.
//
// TwoTier is safe for concurrent use as long as the Store is.
type TwoTier struct {
	fast      *freecache.Cache
	store     Store
	namespace string
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// Option customises a TwoTier.
type Option func(*TwoTier)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *TwoTier) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNamespace prefixes every persistent key with ns + "/".
func WithNamespace(ns string) Option {
	return func(c *TwoTier) {
		c.namespace = strings.Trim(ns, "/")
	}
}

// WithFastCache replaces the default freecache instance, e.g. with one built
// by freecache.NewCacheCustomTimer.
func WithFastCache(fast *freecache.Cache) Option {
	return func(c *TwoTier) {
		if fast != nil {
			c.fast = fast
		}
	}
}

// WithClock sets the clock used to compute persistent expiry.
func WithClock(now func() time.Time) Option {
	return func(c *TwoTier) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for persistent tier failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *TwoTier) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a TwoTier over store. A nil store leaves only the fast tier.
func New(store Store, opts ...Option) *TwoTier {
	c := &TwoTier{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fast == nil {
		c.fast = freecache.NewCache(DefaultFastCacheSize)
	}
	if c.log == nil {
		c.log = logger.Named("cache")
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *TwoTier) TTL() time.Duration {
	return c.ttl
}

// Key returns the persistent key for key.
func (c *TwoTier) Key(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + "/" + key
}

// Get returns the value for key from the fast tier, falling back to the
// persistent tier and repopulating the fast tier on a hit there.
func (c *TwoTier) Get(ctx context.Context, key string) (string, bool) {
	if raw, err := c.fast.Get([]byte(key)); err == nil {
		if value, ok := c.decode(key, raw); ok {
			return value, true
		}
	}

	if c.store == nil {
		return "", false
	}
	raw, ok, err := c.store.Get(ctx, c.Key(key))
	if err != nil {
		c.warn(ctx, apperrors.Wrap(apperrors.CodeCacheFailure, err, "read persistent cache"), key)
		return "", false
	}
	if !ok {
		return "", false
	}
	value, ok := c.decode(key, raw)
	if !ok {
		return "", false
	}
	_ = c.fast.Set([]byte(key), raw, c.fastTTL())
	return value, true
}

// Set writes value to both tiers.
func (c *TwoTier) Set(ctx context.Context, key, value string) {
	now := c.now()
	raw, err := msgpack.Marshal(entry{Value: value, StoredAt: now.Unix()})
	if err != nil {
		c.warn(ctx, apperrors.Wrap(apperrors.CodeCacheFailure, err, "encode cache entry"), key)
		return
	}
	if err := c.fast.Set([]byte(key), raw, c.fastTTL()); err != nil {
		c.warn(ctx, apperrors.Wrap(apperrors.CodeCacheFailure, err, "write fast cache"), key)
	}
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, c.Key(key), raw, now.Add(c.ttl)); err != nil {
		c.warn(ctx, apperrors.Wrap(apperrors.CodeCacheFailure, err, "write persistent cache"), key)
	}
}

// fastTTL converts the TTL to whole seconds. freecache treats 0 as "never
// expires", so the result is at least 1.
func (c *TwoTier) fastTTL() int {
	secs := int(math.Ceil(c.ttl.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func (c *TwoTier) decode(key string, raw []byte) (string, bool) {
	var e entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		c.log.Warn("discard undecodable cache entry", slog.String("key", key), slog.Any("error", err))
		return "", false
	}
	return e.Value, true
}

func (c *TwoTier) warn(ctx context.Context, err error, key string) {
	c.log.WarnContext(ctx, "cache operation failed",
		slog.String("key", key),
		slog.String("code", string(apperrors.CodeOf(err))),
		slog.Any("error", err))
}
