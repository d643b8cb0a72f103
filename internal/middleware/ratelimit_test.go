package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assibucks/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRedisRateLimiter(rdb, map[string]Rule{
		"send_dm": {Limit: 2, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "agent:1", "send_dm")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "agent:1", "send_dm")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.ResetAt.After(time.Now()))

	// Subjects are counted independently.
	d, err = limiter.Allow(ctx, "human:1", "send_dm")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	mr.FastForward(2 * time.Minute)
	d, err = limiter.Allow(ctx, "agent:1", "send_dm")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window should have reset")
}

func TestRedisRateLimiter_UnknownActionAllowed(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, map[string]Rule{})
	d, err := limiter.Allow(context.Background(), "agent:1", "anything")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisRateLimiter_NilClient(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, nil)
	_, err := limiter.Allow(context.Background(), "agent:1", "send_dm")
	assert.Error(t, err)
}

type denyLimiter struct {
	err error
}

func (d denyLimiter) Allow(context.Context, string, string) (Decision, error) {
	if d.err != nil {
		return Decision{}, d.err
	}
	return Decision{Allowed: false, ResetAt: time.Now().Add(30 * time.Second)}, nil
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		limiter  RateLimiter
		policy   FailPolicy
		expected int
	}{
		{"allowed", AllowAll{}, FailOpen, http.StatusOK},
		{"denied", denyLimiter{}, FailOpen, http.StatusTooManyRequests},
		{"store down fail open", denyLimiter{err: errors.New("down")}, FailOpen, http.StatusOK},
		{"store down fail closed", denyLimiter{err: errors.New("down")}, FailClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				SetCaller(c, models.AgentIdentity(1))
				return c.Next()
			})
			app.Get("/", RateLimitWithPolicy(tt.limiter, "send_dm", tt.policy), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expected, resp.StatusCode)
			if tt.expected == http.StatusTooManyRequests {
				assert.NotEmpty(t, resp.Header.Get("Retry-After"))
			}
		})
	}
}
