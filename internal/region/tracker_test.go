package region

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricenotifier/internal/cache"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTracker_ObserveAndForget(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	tr := NewTracker(mem, "", 0, newTestLogger())
	ctx := context.Background()

	_, ok := tr.CurrentRegion(ctx)
	assert.False(t, ok)

	require.NoError(t, tr.Observe(ctx, " Phoenix ", 0))
	got, ok := tr.CurrentRegion(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Phoenix", got)

	require.NoError(t, tr.Forget(ctx))
	_, ok = tr.CurrentRegion(ctx)
	assert.False(t, ok)
}

func TestTracker_Fallback(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	tr := NewTracker(mem, "Light", 0, newTestLogger())
	ctx := context.Background()

	got, ok := tr.CurrentRegion(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Light", got)

	require.NoError(t, tr.Observe(ctx, "Odin", 0))
	got, _ = tr.CurrentRegion(ctx)
	assert.Equal(t, "Odin", got)
}

func TestTracker_ExpiresWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tr := NewTracker(cache.NewRedisCache(client, "test"), "", 0, newTestLogger())
	ctx := context.Background()

	require.NoError(t, tr.Observe(ctx, "Phoenix", time.Minute))
	_, ok := tr.CurrentRegion(ctx)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok = tr.CurrentRegion(ctx)
	assert.False(t, ok)
}

func TestTracker_DefaultTTLExpiresToFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tr := NewTracker(cache.NewRedisCache(client, "test"), "Light", time.Minute, newTestLogger())
	ctx := context.Background()

	require.NoError(t, tr.Observe(ctx, "Phoenix", 0))
	got, ok := tr.CurrentRegion(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Phoenix", got)
	assert.Equal(t, time.Minute, mr.TTL("test:"+cacheKey))

	mr.FastForward(2 * time.Minute)
	got, ok = tr.CurrentRegion(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Light", got)
}

func TestTracker_ExplicitTTLOverridesDefault(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tr := NewTracker(cache.NewRedisCache(client, "test"), "", time.Minute, newTestLogger())
	ctx := context.Background()

	require.NoError(t, tr.Observe(ctx, "Phoenix", 10*time.Minute))
	mr.FastForward(2 * time.Minute)
	got, ok := tr.CurrentRegion(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Phoenix", got)
}

func TestTracker_RedisDownUsesFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	tr := NewTracker(cache.NewRedisCache(client, "test"), "Light", 0, newTestLogger())
	got, ok := tr.CurrentRegion(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Light", got)
}

func TestStatic(t *testing.T) {
	got, ok := Static("Phoenix").CurrentRegion(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Phoenix", got)

	_, ok = Static("").CurrentRegion(context.Background())
	assert.False(t, ok)
}
