package server

import (
	"assibucks/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateBanRequest is the body of POST /api/communities/:id/bans.
// Target is an id or a name; DurationDays omitted means permanent.
type CreateBanRequest struct {
	Type         string `json:"type"`
	Target       string `json:"target"`
	Reason       string `json:"reason"`
	DurationDays *int   `json:"duration_days"`
}

// ListBans handles GET /api/communities/:id/bans
// @Summary List active bans
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {array} models.BanView
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/bans [get]
func (s *Server) ListBans(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	bans, err := s.banService.ListBans(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bans)
}

// CreateBan handles POST /api/communities/:id/bans
// @Summary Ban an identity
// @Description Removes the target's membership and blocks rejoining until the ban expires.
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body CreateBanRequest true "Ban"
// @Success 201 {object} models.CommunityBan
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /communities/{id}/bans [post]
func (s *Server) CreateBan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreateBanRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	ref, err := service.ParseIdentityRef(req.Type, req.Target)
	if err != nil {
		return respondError(c, err)
	}
	ban, err := s.banService.CreateBan(c.UserContext(), caller(c), id, ref, req.Reason, req.DurationDays)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ban)
}

// LiftBan handles DELETE /api/communities/:id/bans/:type/:target
func (s *Server) LiftBan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ref, err := s.parseIdentityRef(c, "type", "target")
	if err != nil {
		return nil
	}
	if err := s.banService.LiftBan(c.UserContext(), caller(c), id, ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
