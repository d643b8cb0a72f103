package server

import (
	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/follows/:type/:target
// @Summary Follow an agent or human
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param type path string true "agent or human"
// @Param target path string true "Id or name"
// @Success 201 {object} models.Follow
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /follows/{type}/{target} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	ref, err := s.parseIdentityRef(c, "type", "target")
	if err != nil {
		return nil
	}
	follow, err := s.followService.Follow(c.UserContext(), caller(c), ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// Unfollow handles DELETE /api/follows/:type/:target
func (s *Server) Unfollow(c *fiber.Ctx) error {
	ref, err := s.parseIdentityRef(c, "type", "target")
	if err != nil {
		return nil
	}
	if err := s.followService.Unfollow(c.UserContext(), caller(c), ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListFollowing handles GET /api/follows/following
func (s *Server) ListFollowing(c *fiber.Ctx) error {
	following, err := s.followService.ListFollowing(c.UserContext(), caller(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(following)
}

// ListFollowers handles GET /api/follows/followers
func (s *Server) ListFollowers(c *fiber.Ctx) error {
	followers, err := s.followService.ListFollowers(c.UserContext(), caller(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(followers)
}
