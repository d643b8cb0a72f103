package server

import (
	"strings"

	"assibucks/internal/models"
	"assibucks/internal/service"

	"github.com/gofiber/fiber/v2"
)

// InviteeRequest names one invitee by id or name.
type InviteeRequest struct {
	Type string `json:"type"`
	ID   uint   `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ref keeps an unknown type as given so the service reports it per invitee.
func (r InviteeRequest) ref() service.IdentityRef {
	kind, ok := models.ParseIdentityKind(r.Type)
	if !ok {
		kind = models.IdentityKind(strings.TrimSpace(r.Type))
	}
	return service.IdentityRef{Kind: kind, ID: r.ID, Name: strings.TrimSpace(r.Name)}
}

// BulkInviteRequest is the body of POST /api/communities/:id/invitations/bulk.
type BulkInviteRequest struct {
	Invitees []InviteeRequest `json:"invitees"`
}

// CreateInviteLinkRequest is the body of POST /api/communities/:id/invite-links.
type CreateInviteLinkRequest struct {
	MaxUses       *int `json:"max_uses"`
	ExpiresInDays int  `json:"expires_in_days"`
}

// CreateInvitation handles POST /api/communities/:id/invitations
// @Summary Invite one identity
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body InviteeRequest true "Invitee"
// @Success 201 {object} models.CommunityInvitation
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /communities/{id}/invitations [post]
func (s *Server) CreateInvitation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req InviteeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	inv, err := s.invitationService.CreateInvitation(c.UserContext(), caller(c), id, req.ref())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// BulkInvite handles POST /api/communities/:id/invitations/bulk
// @Summary Invite up to 50 identities
// @Description Per-invitee failures are reported in the body; the request itself succeeds.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body BulkInviteRequest true "Invitees"
// @Success 200 {object} service.BulkInviteResult
// @Failure 400 {object} models.ErrorResponse
// @Router /communities/{id}/invitations/bulk [post]
func (s *Server) BulkInvite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req BulkInviteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	refs := make([]service.IdentityRef, 0, len(req.Invitees))
	for _, invitee := range req.Invitees {
		refs = append(refs, invitee.ref())
	}
	result, err := s.invitationService.BulkInvite(c.UserContext(), caller(c), id, refs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ListMyInvitations handles GET /api/invitations/me
func (s *Server) ListMyInvitations(c *fiber.Ctx) error {
	invitations, err := s.invitationService.ListMyInvitations(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(invitations)
}

// AcceptInvitation handles POST /api/invitations/:id/accept
// @Summary Accept an invitation
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invitation ID"
// @Success 200 {object} models.CommunityInvitation
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /invitations/{id}/accept [post]
func (s *Server) AcceptInvitation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	inv, err := s.invitationService.AcceptInvitation(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inv)
}

// DeclineInvitation handles POST /api/invitations/:id/decline
func (s *Server) DeclineInvitation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	inv, err := s.invitationService.DeclineInvitation(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inv)
}

// ListInviteLinks handles GET /api/communities/:id/invite-links
func (s *Server) ListInviteLinks(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	links, err := s.invitationService.ListInviteLinks(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(links)
}

// CreateInviteLink handles POST /api/communities/:id/invite-links
// @Summary Create an invite link
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body CreateInviteLinkRequest false "Limits"
// @Success 201 {object} models.CommunityInvitation
// @Failure 400 {object} models.ErrorResponse
// @Router /communities/{id}/invite-links [post]
func (s *Server) CreateInviteLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreateInviteLinkRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	link, err := s.invitationService.CreateInviteLink(c.UserContext(), caller(c), id, req.MaxUses, req.ExpiresInDays)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// DeactivateInviteLink handles DELETE /api/communities/:id/invite-links/:inviteId
func (s *Server) DeactivateInviteLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	inviteID, err := s.parseID(c, "inviteId")
	if err != nil {
		return nil
	}
	if err := s.invitationService.DeactivateInviteLink(c.UserContext(), caller(c), id, inviteID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RedeemInviteLink handles POST /api/invite/:code/redeem
// @Summary Redeem an invite link
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param code path string true "Invite code"
// @Success 201 {object} models.CommunityMembership
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /invite/{code}/redeem [post]
func (s *Server) RedeemInviteLink(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return respondError(c, models.NewValidationError("Invite code is required"))
	}
	membership, err := s.invitationService.RedeemInviteLink(c.UserContext(), caller(c), code)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}
