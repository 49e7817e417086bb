// internal/lending/inflight/redis.go
package inflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lending-workers/internal/common/logger"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

const (
	defaultLockPrefix = "lending:inflight:"
	DefaultLockTTL    = 2 * time.Minute
	releaseTimeout    = 5 * time.Second
)

// RedisGuard shares the in-flight set between worker replicas. Each holder
// writes a random token with SET NX; release deletes the key only if the token
// still matches, so an expired lock taken over by another replica is left alone.
// While held, the lease is extended every ttl/3 so a long fan-out keeps it.
type RedisGuard struct {
	client  redis.UniversalClient
	release *redis.Script
	renew   *redis.Script
	prefix  string
	ttl     time.Duration
	logger  logger.Logger
}

var _ Guard = (*RedisGuard)(nil)

func NewRedisGuard(client redis.UniversalClient, prefix string, ttl time.Duration, log logger.Logger) *RedisGuard {
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RedisGuard{
		client:  client,
		release: redis.NewScript(releaseScript),
		renew:   redis.NewScript(renewScript),
		prefix:  prefix,
		ttl:     ttl,
		logger:  log.WithFields(map[string]interface{}{"component": "inflight-guard"}),
	}
}

func (g *RedisGuard) key(applicationID string) string {
	return g.prefix + applicationID
}

func (g *RedisGuard) TryAcquire(ctx context.Context, applicationID string) (ReleaseFunc, bool, error) {
	if applicationID == "" {
		return nil, false, errors.New("lock key is empty")
	}

	key := g.key(applicationID)
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire in-flight lock %s: %w", applicationID, err)
	}
	if !ok {
		return nil, false, nil
	}

	// the lease and its release must survive a cancelled caller context
	base := context.WithoutCancel(ctx)
	leaseCtx, stopLease := context.WithCancel(base)
	leaseDone := make(chan struct{})
	go func() {
		defer close(leaseDone)
		g.keepAlive(leaseCtx, applicationID, key, token)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopLease()
			<-leaseDone

			rctx, cancel := context.WithTimeout(base, releaseTimeout)
			defer cancel()
			if err := g.release.Run(rctx, g.client, []string{key}, token).Err(); err != nil {
				g.logger.WithError(err).Error("failed to release in-flight lock", map[string]interface{}{
					"applicationId": applicationID,
					"ttlMs":         g.ttl.Milliseconds(),
				})
			}
		})
	}, true, nil
}

// keepAlive extends the lease until ctx is cancelled or the lock is lost.
func (g *RedisGuard) keepAlive(ctx context.Context, applicationID, key, token string) {
	interval := g.ttl / 3
	if interval <= 0 {
		interval = g.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		renewed, err := g.renew.Run(ctx, g.client, []string{key}, token, g.ttl.Milliseconds()).Int()
		if ctx.Err() != nil {
			return
		}
		fields := map[string]interface{}{"applicationId": applicationID}
		if err != nil {
			g.logger.WithError(err).Warn("failed to extend in-flight lock", fields)
			continue
		}
		if renewed == 0 {
			g.logger.Warn("in-flight lock lost before release", fields)
			return
		}
	}
}

func (g *RedisGuard) Held(ctx context.Context, applicationID string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(applicationID)).Result()
	if err != nil {
		return false, fmt.Errorf("check in-flight lock %s: %w", applicationID, err)
	}
	return n > 0, nil
}
