package pipeline

import (
	"context"
	"sync"
	"time"

	"contract-sender/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard serialises moves per lead. Acquire reports false when a move for
// the same lead is already in flight.
type Guard interface {
	Acquire(ctx context.Context, leadID string) (bool, error)
	Release(ctx context.Context, leadID string) error
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, leadID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[leadID]; busy {
		return false, nil
	}
	g.inFlight[leadID] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, leadID string) error {
	g.mu.Lock()
	delete(g.inFlight, leadID)
	g.mu.Unlock()
	return nil
}

const (
	minMoveLockTTL   = 30 * time.Second
	moveLockTTLSlack = 10 * time.Second
)

// MoveLockTTL is the lock lifetime for moves whose backend call may take up
// to backendTimeout. The lock must outlive the call, or a second move of
// the same lead could start while the first is still in flight.
func MoveLockTTL(backendTimeout time.Duration) time.Duration {
	if ttl := backendTimeout + moveLockTTLSlack; ttl > minMoveLockTTL {
		return ttl
	}
	return minMoveLockTTL
}

// RedisGuard shares the in-flight set across console instances.
// The TTL bounds how long a crashed instance can block a lead.
type RedisGuard struct {
	rdb   *redis.Client
	ttl   time.Duration
	owner string
}

// NewRedisGuard builds a guard whose locks live for ttl; values of zero or
// less use MoveLockTTL(0).
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = MoveLockTTL(0)
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, owner: uuid.NewString()}
}

func (g *RedisGuard) TTL() time.Duration { return g.ttl }

func moveLockKey(leadID string) string { return "pipeline:move:" + leadID }

func (g *RedisGuard) Acquire(ctx context.Context, leadID string) (bool, error) {
	return utils.TryLock(ctx, g.rdb, moveLockKey(leadID), g.owner, g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, leadID string) error {
	return utils.Unlock(ctx, g.rdb, moveLockKey(leadID), g.owner)
}
