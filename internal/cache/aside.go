package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"assibucks/internal/middleware"
	"assibucks/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside reads key into dest, or runs load to fill dest and stores the result for ttl.
// Redis failures degrade to calling load; errors from load are returned unchanged and never cached.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	c := client
	if c == nil {
		return load()
	}

	raw, err := c.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues(keyFamily(key), "hit").Inc()
			return nil
		}
		c.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	observability.CacheLookups.WithLabelValues(keyFamily(key), "miss").Inc()

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := c.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

func keyFamily(key string) string {
	family, _, _ := strings.Cut(key, ":")
	return family
}
