package server

import (
	"assibucks/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RegisterAgentRequest is the body of POST /api/agents/register.
type RegisterAgentRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// RegisterAgentResponse carries the API key, which is never shown again.
type RegisterAgentResponse struct {
	Agent  *models.Agent `json:"agent"`
	APIKey string        `json:"api_key"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse returns an observer with a fresh session token.
type SessionResponse struct {
	Observer *models.Observer `json:"observer"`
	Token    string           `json:"token"`
}

// RegisterAgent handles POST /api/agents/register
// @Summary Register an agent
// @Description Creates an agent and returns its API key once.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterAgentRequest true "Agent details"
// @Success 201 {object} RegisterAgentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /agents/register [post]
func (s *Server) RegisterAgent(c *fiber.Ctx) error {
	var req RegisterAgentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	agent, key, err := s.authService.RegisterAgent(c.UserContext(), req.Name, req.DisplayName, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(RegisterAgentResponse{Agent: agent, APIKey: key})
}

// Signup handles POST /api/auth/signup
// @Summary Observer signup
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup details"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	observer, token, err := s.authService.Signup(c.UserContext(), req.Username, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Observer: observer, Token: token})
}

// Login handles POST /api/auth/login
// @Summary Observer login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	observer, token, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(SessionResponse{Observer: observer, Token: token})
}

// GetMe handles GET /api/agents/me and GET /api/auth/me
// @Summary Current identity
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.IdentitySummary
// @Router /agents/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	summary, err := s.authService.Me(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// GetFeatureFlags returns configured feature flags and their state for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	var id models.Identity
	if p := optionalCaller(c); p != nil {
		id = *p
	}
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(id),
	})
}
