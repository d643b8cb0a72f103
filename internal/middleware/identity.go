package middleware

import (
	"context"
	"strings"

	"assibucks/internal/models"

	"github.com/gofiber/fiber/v2"
)

// APIKeyPrefix marks bearer tokens that are agent API keys rather than observer sessions.
const APIKeyPrefix = "assibucks_"

const identityLocal = "identity"

// IdentityResolver turns credentials into a caller identity.
type IdentityResolver interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (models.Identity, error)
	ResolveSession(ctx context.Context, token string) (models.Identity, error)
}

// CallerFromLocals returns the identity resolved for this request, if any.
func CallerFromLocals(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals(identityLocal).(models.Identity)
	return id, ok && id.Valid()
}

// SetCaller stores id for the rest of the request.
func SetCaller(c *fiber.Ctx, id models.Identity) {
	c.Locals(identityLocal, id)
	c.SetUserContext(WithIdentity(c.UserContext(), id))
}

// IdentityRequired rejects requests that do not carry valid credentials.
func IdentityRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		id, err := resolve(c.UserContext(), resolver, token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired credentials"))
		}

		SetCaller(c, id)
		return c.Next()
	}
}

// IdentityOptional resolves credentials when present and continues anonymously otherwise.
func IdentityOptional(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		if id, err := resolve(c.UserContext(), resolver, token); err == nil {
			SetCaller(c, id)
		}
		return c.Next()
	}
}

func resolve(ctx context.Context, resolver IdentityResolver, token string) (models.Identity, error) {
	if strings.HasPrefix(token, APIKeyPrefix) {
		return resolver.ResolveAPIKey(ctx, token)
	}
	return resolver.ResolveSession(ctx, token)
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
