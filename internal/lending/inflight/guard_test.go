// internal/lending/inflight/guard_test.go
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lending-workers/internal/common/logger"
)

func setupRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisGuard(client, "", ttl, logger.NewTestLogger(t)), mr
}

func guards(t *testing.T) map[string]Guard {
	rg, _ := setupRedisGuard(t, time.Minute)
	return map[string]Guard{
		"memory": NewMemoryGuard(),
		"redis":  rg,
	}
}

func TestGuard_SingleHolder(t *testing.T) {
	for name, g := range guards(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			release, ok, err := g.TryAcquire(ctx, "APP-1")
			require.NoError(t, err)
			require.True(t, ok)

			_, ok, err = g.TryAcquire(ctx, "APP-1")
			require.NoError(t, err)
			assert.False(t, ok, "second acquire must be refused")

			other, ok, err := g.TryAcquire(ctx, "APP-2")
			require.NoError(t, err)
			assert.True(t, ok, "different ids are independent")
			other()

			held, err := g.Held(ctx, "APP-1")
			require.NoError(t, err)
			assert.True(t, held)

			release()
			release()

			held, err = g.Held(ctx, "APP-1")
			require.NoError(t, err)
			assert.False(t, held)

			again, ok, err := g.TryAcquire(ctx, "APP-1")
			require.NoError(t, err)
			assert.True(t, ok)
			again()
		})
	}
}

func TestGuard_ConcurrentAcquire(t *testing.T) {
	for name, g := range guards(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var winners atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})

			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, ok, err := g.TryAcquire(ctx, "APP-RACE")
					assert.NoError(t, err)
					if ok {
						winners.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), winners.Load())
		})
	}
}

func TestRedisGuard_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	ctx := context.Background()
	g, mr := setupRedisGuard(t, time.Second)

	staleRelease, ok, err := g.TryAcquire(ctx, "APP-1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	freshRelease, ok, err := g.TryAcquire(ctx, "APP-1")
	require.NoError(t, err)
	require.True(t, ok, "lock should be free after ttl")

	staleRelease()
	assert.True(t, mr.Exists(defaultLockPrefix+"APP-1"), "stale token must not delete the new lock")

	freshRelease()
	assert.False(t, mr.Exists(defaultLockPrefix+"APP-1"))
}

func TestRedisGuard_Errors(t *testing.T) {
	g, mr := setupRedisGuard(t, 0)
	assert.Equal(t, DefaultLockTTL, g.ttl)

	_, _, err := g.TryAcquire(context.Background(), "")
	assert.Error(t, err)

	mr.Close()
	_, ok, err := g.TryAcquire(context.Background(), "APP-1")
	assert.Error(t, err)
	assert.False(t, ok)

	_, err = g.Held(context.Background(), "APP-1")
	assert.Error(t, err)
}

func TestRedisGuard_LeaseOutlivesTTLWhileHeld(t *testing.T) {
	ctx := context.Background()
	g, mr := setupRedisGuard(t, 90*time.Millisecond)
	key := defaultLockPrefix + "APP-1"

	release, ok, err := g.TryAcquire(ctx, "APP-1")
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		time.Sleep(60 * time.Millisecond)
		mr.FastForward(60 * time.Millisecond)
		require.True(t, mr.Exists(key), "lease expired after %d rounds", i+1)
	}

	_, ok, err = g.TryAcquire(ctx, "APP-1")
	require.NoError(t, err)
	assert.False(t, ok, "a held lock must not be taken over")

	release()
	assert.False(t, mr.Exists(key))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, mr.Exists(key), "released lock must not be renewed")
}

func TestRedisGuard_ReleaseFailureIsLogged(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	core, logs := observer.New(zapcore.WarnLevel)
	g := NewRedisGuard(client, "", time.Minute, logger.NewZapAdapter(zap.New(core)))

	release, ok, err := g.TryAcquire(context.Background(), "APP-1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.Close()
	release()

	entries := logs.FilterMessage("failed to release in-flight lock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "APP-1", entries[0].ContextMap()["applicationId"])
}
