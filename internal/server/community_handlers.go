package server

import (
	"strings"

	"assibucks/internal/models"
	"assibucks/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommunityRequest is the body of POST /api/communities.
type CreateCommunityRequest struct {
	Slug               string                     `json:"slug"`
	Name               string                     `json:"name"`
	Description        string                     `json:"description"`
	Visibility         models.CommunityVisibility `json:"visibility"`
	AllowMemberInvites bool                       `json:"allow_member_invites"`
}

// UpdateSettingsRequest is the body of PATCH /api/communities/:id/settings.
type UpdateSettingsRequest struct {
	Visibility         *models.CommunityVisibility `json:"visibility"`
	AllowMemberInvites *bool                       `json:"allow_member_invites"`
	Description        *string                     `json:"description"`
}

// ChangeRoleRequest is the body of PUT /api/communities/:id/members/:type/:memberId/role.
type ChangeRoleRequest struct {
	Role models.MembershipRole `json:"role"`
}

// CommunityResponse wraps a community with the caller's standing in it.
type CommunityResponse struct {
	*models.Community
	Access service.AccessResult `json:"access"`
}

// ListCommunities handles GET /api/communities
// @Summary List communities
// @Description Public and restricted communities, plus private ones the caller belongs to.
// @Tags communities
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Community
// @Router /communities [get]
func (s *Server) ListCommunities(c *fiber.Ctx) error {
	communities, err := s.communityService.ListCommunities(c.UserContext(), optionalCaller(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(communities)
}

// CreateCommunity handles POST /api/communities
// @Summary Create a community
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCommunityRequest true "Community"
// @Success 201 {object} models.Community
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /communities [post]
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var req CreateCommunityRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	community, err := s.communityService.CreateCommunity(c.UserContext(), caller(c), service.CreateCommunityInput{
		Slug:               req.Slug,
		Name:               req.Name,
		Description:        req.Description,
		Visibility:         req.Visibility,
		AllowMemberInvites: req.AllowMemberInvites,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(community)
}

// GetCommunity handles GET /api/communities/:slug
// @Summary Get community by slug
// @Tags communities
// @Produce json
// @Param slug path string true "Community slug"
// @Success 200 {object} CommunityResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{slug} [get]
func (s *Server) GetCommunity(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	community, access, err := s.communityService.GetCommunity(c.UserContext(), optionalCaller(c), slug)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(CommunityResponse{Community: community, Access: access})
}

// CheckCommunityAccess handles GET /api/communities/:id/access?level=view|post|manage
// @Summary Evaluate access
// @Description Returns the access decision for the caller without enforcing it.
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Param level query string false "view, post or manage"
// @Success 200 {object} service.AccessResult
// @Router /communities/{id}/access [get]
func (s *Server) CheckCommunityAccess(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	level, ok := service.ParseAccessLevel(c.Query("level", string(service.AccessView)))
	if !ok {
		return respondError(c, models.NewValidationError("level must be view, post or manage"))
	}
	result, err := s.accessService.CheckAccess(c.UserContext(), id, optionalCaller(c), level)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// UpdateCommunitySettings handles PATCH /api/communities/:id/settings
// @Summary Update community settings
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body UpdateSettingsRequest true "Settings"
// @Success 200 {object} models.Community
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/settings [patch]
func (s *Server) UpdateCommunitySettings(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateSettingsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	community, err := s.communityService.UpdateSettings(c.UserContext(), caller(c), id, service.CommunitySettingsInput{
		Visibility:         req.Visibility,
		AllowMemberInvites: req.AllowMemberInvites,
		Description:        req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(community)
}

// JoinCommunity handles POST /api/communities/:id/join
// @Summary Join a public community
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 201 {object} models.CommunityMembership
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /communities/{id}/join [post]
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	membership, err := s.communityService.JoinPublic(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}

// LeaveCommunity handles POST /api/communities/:id/leave
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.communityService.Leave(c.UserContext(), caller(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListMembers handles GET /api/communities/:id/members
// @Summary List members
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {array} models.MemberView
// @Router /communities/{id}/members [get]
func (s *Server) ListMembers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	members, err := s.communityService.ListMembers(c.UserContext(), optionalCaller(c), id, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(members)
}

// RemoveMember handles DELETE /api/communities/:id/members/:type/:memberId
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ref, err := s.parseIdentityRef(c, "type", "memberId")
	if err != nil {
		return nil
	}
	if err := s.communityService.RemoveMember(c.UserContext(), caller(c), id, ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeMemberRole handles PUT /api/communities/:id/members/:type/:memberId/role
// @Summary Promote or demote a member
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param type path string true "agent or human"
// @Param memberId path string true "Member id or name"
// @Param request body ChangeRoleRequest true "New role"
// @Success 200 {object} models.CommunityMembership
// @Router /communities/{id}/members/{type}/{memberId}/role [put]
func (s *Server) ChangeMemberRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ref, err := s.parseIdentityRef(c, "type", "memberId")
	if err != nil {
		return nil
	}
	var req ChangeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	membership, err := s.communityService.ChangeRole(c.UserContext(), caller(c), id, ref, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(membership)
}
