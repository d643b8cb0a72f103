package server

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"assibucks/internal/middleware"
	"assibucks/internal/models"
	"assibucks/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parsePagination extracts limit and offset query parameters.
func parsePagination(c *fiber.Ctx) service.Page {
	limit := c.QueryInt("limit", service.DefaultPageLimit)
	if limit <= 0 {
		limit = service.DefaultPageLimit
	}
	if limit > service.MaxPageLimit {
		limit = service.MaxPageLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return service.Page{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "requestId" -> "Invalid request ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseIdentityRef reads an identity from a (type, target) route parameter pair.
// target is a numeric id or a name.
func (s *Server) parseIdentityRef(c *fiber.Ctx, typeParam, targetParam string) (service.IdentityRef, error) {
	ref, err := service.ParseIdentityRef(c.Params(typeParam), c.Params(targetParam))
	if err != nil {
		_ = respondError(c, err)
		return service.IdentityRef{}, errResponseWritten
	}
	return ref, nil
}

// parseBody decodes the JSON body into dst, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "memberId" -> "member ID", "inviteId" -> "invite ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// caller returns the authenticated identity. Routes using it sit behind IdentityRequired.
func caller(c *fiber.Ctx) models.Identity {
	id, _ := middleware.CallerFromLocals(c)
	return id
}

// optionalCaller returns the identity when the request carried valid credentials.
func optionalCaller(c *fiber.Ctx) *models.Identity {
	if id, ok := middleware.CallerFromLocals(c); ok {
		return &id
	}
	return nil
}

// respondError renders err with the status matching its code.
// Cooldown errors also carry a Retry-After header in seconds.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	if appErr.Code == models.CodeInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", appErr.Error())
	}
	if appErr.Code == models.CodeCooldownActive && appErr.RetryAt != nil {
		seconds := int(math.Ceil(time.Until(*appErr.RetryAt).Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
	}
	return models.RespondWithError(c, models.StatusForCode(appErr.Code), appErr)
}
