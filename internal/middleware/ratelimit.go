// Package middleware provides identity resolution, rate limiting, logging and tracing middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"assibucks/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Rule is a fixed-window limit for one action.
type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules are the per-action limits applied to each identity.
var DefaultRules = map[string]Rule{
	"register":          {Limit: 5, Window: time.Hour},
	"login":             {Limit: 10, Window: 5 * time.Minute},
	"create_community":  {Limit: 3, Window: time.Hour},
	"create_post":       {Limit: 10, Window: time.Hour},
	"create_comment":    {Limit: 50, Window: time.Hour},
	"create_invitation": {Limit: 50, Window: time.Hour},
	"redeem_invite":     {Limit: 20, Window: time.Hour},
	"join_request":      {Limit: 10, Window: time.Hour},
	"follow":            {Limit: 60, Window: time.Hour},
	"send_dm":           {Limit: 30, Window: time.Minute},
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed bool
	ResetAt time.Time
}

// RateLimiter is an opaque allow/deny oracle keyed by subject and action.
type RateLimiter interface {
	Allow(ctx context.Context, subject, action string) (Decision, error)
}

// AllowAll is a RateLimiter that never denies.
type AllowAll struct{}

// Allow implements RateLimiter.
func (AllowAll) Allow(context.Context, string, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// RedisRateLimiter counts requests per subject and action in fixed Redis windows.
type RedisRateLimiter struct {
	rdb   *redis.Client
	rules map[string]Rule
	now   func() time.Time
}

// NewRedisRateLimiter returns a limiter enforcing rules; unknown actions are allowed.
func NewRedisRateLimiter(rdb *redis.Client, rules map[string]Rule) *RedisRateLimiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &RedisRateLimiter{rdb: rdb, rules: rules, now: time.Now}
}

// Allow implements RateLimiter.
func (l *RedisRateLimiter) Allow(ctx context.Context, subject, action string) (Decision, error) {
	rule, ok := l.rules[action]
	if !ok {
		return Decision{Allowed: true}, nil
	}
	if l.rdb == nil {
		return Decision{}, errors.New("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", action, subject)

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, rule.Window).Err(); err != nil {
			return Decision{}, err
		}
	}

	ttl, err := l.rdb.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rule.Window
	}
	decision := Decision{Allowed: cnt <= int64(rule.Limit), ResetAt: l.now().Add(ttl)}
	return decision, nil
}

// RateLimit returns a Fiber middleware that consults limiter for action.
// It keys by the resolved identity when present, otherwise by remote IP.
func RateLimit(limiter RateLimiter, action string) fiber.Handler {
	return RateLimitWithPolicy(limiter, action, FailOpen)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(limiter RateLimiter, action string, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		subject := "ip:" + c.IP()
		if id, ok := CallerFromLocals(c); ok {
			subject = id.Key()
		}

		decision, err := limiter.Allow(c.UserContext(), subject, action)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable",
					"action", action, "policy", "fail_closed", "error", err.Error())
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !decision.Allowed {
			retryAfter := int(math.Ceil(time.Until(decision.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    "RATE_LIMITED",
				Message: "Rate limit exceeded",
				RetryAt: &decision.ResetAt,
			})
		}
		return c.Next()
	}
}
