package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls the redis client. Zero fields take defaults.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	c.DialTimeout = orDuration(c.DialTimeout, 3*time.Second)
	c.ReadTimeout = orDuration(c.ReadTimeout, 2*time.Second)
	c.WriteTimeout = orDuration(c.WriteTimeout, 2*time.Second)
	c.PoolSize = orInt(c.PoolSize, 20)
	c.PoolTimeout = orDuration(c.PoolTimeout, 4*time.Second)
	c.PingTimeout = orDuration(c.PingTimeout, 2*time.Second)
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	return c
}

// OpenRedis builds a client and checks it answers PING. Pub/sub
// subscriptions hold a connection each, so PoolSize bounds concurrent
// event streams per instance.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	cfg = cfg.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Lock keys are deleted only by the owner that set them.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

var (
	errNilRedis   = errors.New("redis client is nil")
	errLockParams = errors.New("lock key and owner are required")
)

// TryLock sets key to owner if it is unset. The TTL bounds how long a
// crashed holder blocks everyone else.
func TryLock(ctx context.Context, rdb *redis.Client, key, owner string, ttl time.Duration) (bool, error) {
	switch {
	case rdb == nil:
		return false, errNilRedis
	case key == "" || owner == "":
		return false, errLockParams
	case ttl <= 0:
		return false, errors.New("lock ttl must be positive")
	}
	err := rdb.SetArgs(ctx, key, owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

// Unlock deletes key if owner still holds it. Releasing a lock that has
// expired or been taken over is not an error.
func Unlock(ctx context.Context, rdb *redis.Client, key, owner string) error {
	switch {
	case rdb == nil:
		return errNilRedis
	case key == "" || owner == "":
		return errLockParams
	}
	return unlockScript.Run(ctx, rdb, []string{key}, owner).Err()
}
