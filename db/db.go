package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"MoodLab/config"
)

const connectAttempts = 5

// Open connects to the backend selected by cfg.StoreBackend, retrying the
// initial connection with exponential backoff.
func Open(ctx context.Context, cfg *config.Config, logger log15.Logger) (Store, error) {
	log := logger.New("module", "db", "backend", cfg.StoreBackend)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("Using in-memory store; data is lost on restart")
		return NewMemoryStore(), nil

	case config.BackendPostgres:
		gdb, err := connectSQL(ctx, postgres.Open(cfg.DatabaseURL), log, newBackoff())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		log.Info("Connected to DB")
		return NewSQLStore(gdb)

	case config.BackendRedis:
		opt, err := redis.ParseURL(strings.TrimSpace(cfg.RedisURL))
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opt)
		err = retry(ctx, log, newBackoff(), func() error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		log.Info("Redis connection established")
		return NewRedisStore(client), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}
}

// connectSQL opens and pings a gorm connection. A pool whose ping fails is
// closed before the next attempt.
func connectSQL(ctx context.Context, dialector gorm.Dialector, log log15.Logger, b *backoff.Backoff) (*gorm.DB, error) {
	var gdb *gorm.DB
	err := retry(ctx, log, b, func() error {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		gdb = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

// retry calls fn up to connectAttempts times, waiting between failures but
// not after the last one.
func retry(ctx context.Context, log log15.Logger, b *backoff.Backoff, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= connectAttempts {
			return err
		}
		wait := b.Duration()
		log.Warn("Store connection failed, retrying", "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
