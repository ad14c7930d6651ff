package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/config"
	"github.com/arklim/residency-registry/internal/infra/database"
	redisinfra "github.com/arklim/residency-registry/internal/infra/redis"
	postgresrepo "github.com/arklim/residency-registry/internal/repository/postgres"
	redisrepo "github.com/arklim/residency-registry/internal/repository/redis"
	"github.com/arklim/residency-registry/internal/transport/http/routes"
)

// Stores holds the repositories of the selected backend plus the Redis-only helpers.
// Attempts and Denylist are nil when Redis is unavailable in postgres mode.
type Stores struct {
	Users    port.UserRepository
	Records  port.RecordRepository
	Activity port.ActivityRepository
	Attempts port.AttemptStore
	Denylist port.TokenDenylist
	Checker  routes.StoreChecker

	pool  *pgxpool.Pool
	redis *redisinfra.Client
}

type poolChecker struct {
	pool *pgxpool.Pool
}

func (p poolChecker) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// OpenStores connects to the backend named by store.driver. The postgres backend
// applies pending migrations before returning.
func OpenStores(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		return openRedisStores(ctx, cfg, log)
	case config.StoreDriverPostgres:
		return openPostgresStores(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.Store.Driver)
	}
}

func openRedisStores(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Stores, error) {
	client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	rdb := client.Raw()
	s := &Stores{
		Users:    redisrepo.NewUserRepository(rdb, cfg.Redis.UserPrefix),
		Records:  redisrepo.NewRecordRepository(rdb, cfg.Redis.RecordPrefix),
		Activity: redisrepo.NewActivityRepository(rdb, cfg.Redis.ActivityKey, log),
		Checker:  client,
		redis:    client,
	}
	s.attachRedisHelpers(cfg)
	return s, nil
}

func openPostgresStores(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Stores, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := database.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	s := &Stores{
		Users:    repos.Users,
		Records:  repos.Records,
		Activity: repos.Activity,
		Checker:  poolChecker{pool: pool},
		pool:     pool,
	}

	// Throttling and revocation live in Redis; without it they are switched off.
	client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, login throttling and token revocation disabled", zap.Error(err))
		return s, nil
	}
	s.redis = client
	s.attachRedisHelpers(cfg)
	return s, nil
}

func (s *Stores) attachRedisHelpers(cfg *config.AppConfig) {
	rdb := s.redis.Raw()

	s.Attempts = redisrepo.NewAttemptStore(rdb, redisrepo.AttemptStoreConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
	})
	if cfg.JWT.RevocationEnabled {
		s.Denylist = redisrepo.NewTokenDenylist(rdb, cfg.JWT.RevocationPrefix)
	}
}

// Close releases every open connection.
func (s *Stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
