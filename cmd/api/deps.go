package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"contract-sender/internal/audit"
	"contract-sender/internal/config"
	"contract-sender/internal/notify"
	"contract-sender/internal/pipeline"
	"contract-sender/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// deps are the optional stores. Without Postgres the activity log is kept
// in memory; without Redis the move guard and push channel are
// process-local.
type deps struct {
	db  *sql.DB
	rdb *redis.Client

	activity audit.Repository
	guard    pipeline.Guard
	bus      notify.Bus
}

func openDeps(ctx context.Context, cfg config.Config, log *slog.Logger) (*deps, error) {
	d := &deps{}

	if cfg.DB.Enabled() {
		db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, err
		}
		repo := audit.NewPostgresRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		d.db, d.activity = db, repo
	} else {
		log.Warn("DB_HOST not set, activity log kept in memory")
		d.activity = audit.NewMemoryRepo()
	}

	if cfg.Redis.Enabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			d.Close()
			return nil, err
		}
		d.rdb = rdb
		d.guard = pipeline.NewRedisGuard(rdb, pipeline.MoveLockTTL(cfg.Backend.Timeout))
		d.bus = notify.NewRedisBus(rdb)
	} else {
		log.Warn("REDIS_HOST not set, move guard and push channel are process-local")
		d.guard = pipeline.NewMemoryGuard()
		d.bus = notify.NewMemoryBus()
	}
	return d, nil
}

// checks feeds /healthz.
func (d *deps) checks() map[string]func(context.Context) error {
	out := map[string]func(context.Context) error{}
	if d.db != nil {
		out["postgres"] = func(ctx context.Context) error { return utils.HealthCheck(ctx, d.db, 2*time.Second) }
	}
	if d.rdb != nil {
		out["redis"] = func(ctx context.Context) error { return d.rdb.Ping(ctx).Err() }
	}
	return out
}

func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}
