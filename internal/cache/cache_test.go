package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coocood/freecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Unix() uint32 { return uint32(c.t.Unix()) }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// freecacheTimer adapts fakeClock to freecache.Timer.
type freecacheTimer struct{ clock *fakeClock }

func (t freecacheTimer) Now() uint32 { return t.clock.Unix() }

func newTestCache(store Store, clock *fakeClock, opts ...Option) *TwoTier {
	fast := freecache.NewCacheCustomTimer(DefaultFastCacheSize, freecacheTimer{clock: clock})
	base := []Option{WithFastCache(fast), WithClock(clock.Now)}
	return New(store, append(base, opts...)...)
}

type failingStore struct {
	sets int
}

func (s *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store unavailable")
}

func (s *failingStore) Set(context.Context, string, []byte, time.Time) error {
	s.sets++
	return errors.New("store unavailable")
}

func TestTwoTierReadWrite(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore(clock.Now)
	c := newTestCache(store, clock, WithNamespace("evm/wallet/0xabc"))

	_, ok := c.Get(ctx, "walletBalance_lightlink")
	assert.False(t, ok)

	c.Set(ctx, "walletBalance_lightlink", "1.5")
	value, ok := c.Get(ctx, "walletBalance_lightlink")
	require.True(t, ok)
	assert.Equal(t, "1.5", value)

	raw, ok, err := store.Get(ctx, "evm/wallet/0xabc/walletBalance_lightlink")
	require.NoError(t, err)
	require.True(t, ok, "write-through should reach the persistent tier")
	assert.NotEmpty(t, raw)
}

func TestTwoTierExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newTestCache(NewMemoryStore(clock.Now), clock)

	c.Set(ctx, "k", "v")
	clock.Advance(4 * time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "entry should live for the TTL")

	clock.Advance(2 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry should expire from both tiers after the TTL")
}

func TestTwoTierRepopulatesFastTier(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore(clock.Now)

	writer := newTestCache(store, clock, WithNamespace("ns"), WithTTL(time.Minute))
	writer.Set(ctx, "k", "42")

	reader := newTestCache(store, clock, WithNamespace("ns"), WithTTL(time.Minute))
	value, ok := reader.Get(ctx, "k")
	require.True(t, ok, "a fresh instance should read the persistent tier")
	assert.Equal(t, "42", value)

	// Overwrite the persistent entry; the fast tier of reader keeps serving
	// the value it was repopulated with.
	require.NoError(t, store.Set(ctx, "ns/k", nil, clock.Now().Add(time.Minute)))
	value, ok = reader.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "42", value)
}

func TestTwoTierIgnoresStoreFailures(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := &failingStore{}
	c := newTestCache(store, clock)

	c.Set(ctx, "k", "v")
	assert.Equal(t, 1, store.sets)

	value, ok := c.Get(ctx, "k")
	require.True(t, ok, "fast tier must not be rolled back on persistent failure")
	assert.Equal(t, "v", value)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestFastTTLIsAtLeastOneSecond(t *testing.T) {
	c := New(nil, WithTTL(10*time.Millisecond))
	assert.Equal(t, 1, c.fastTTL())

	c = New(nil, WithTTL(2500*time.Millisecond))
	assert.Equal(t, 3, c.fastTTL())
	assert.Equal(t, "k", c.Key("k"))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore(clock.Now)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), clock.Now().Add(time.Second)))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Time{}))

	clock.Advance(time.Second)
	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)
	value, ok, _ := store.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), value)
	assert.Equal(t, 1, store.Len())
}
