// Package bootstrap wires the runtime dependencies shared by the server and maintenance commands.
package bootstrap

import (
	"context"
	"fmt"

	"assibucks/internal/cache"
	"assibucks/internal/config"
	"assibucks/internal/database"
	"assibucks/internal/middleware"
	"assibucks/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedBuiltIns   bool
	BackfillOwners bool
}

// InitRuntime connects to DB and Redis and optionally seeds built-in communities.
// A nil Redis client means Redis was unreachable; callers run without cache and rate limits.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := Prepare(ctx, db, opts); err != nil {
		return nil, nil, err
	}
	return db, cache.GetClient(), nil
}

// Prepare runs the optional data steps of InitRuntime against an open database.
func Prepare(ctx context.Context, db *gorm.DB, opts Options) error {
	if opts.BackfillOwners {
		inserted, err := database.BackfillOwnerMemberships(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to backfill owner memberships: %w", err)
		}
		if inserted > 0 {
			middleware.Logger.InfoContext(ctx, "backfilled owner memberships", "inserted", inserted)
		}
	}

	if opts.SeedBuiltIns {
		if err := seed.Communities(db); err != nil {
			return fmt.Errorf("failed to seed built-in communities: %w", err)
		}
	}
	return nil
}
