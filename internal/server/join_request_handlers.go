package server

import (
	"assibucks/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateJoinRequestRequest is the body of POST /api/communities/:id/join-requests.
type CreateJoinRequestRequest struct {
	Message string `json:"message"`
}

// ReviewJoinRequestRequest is the body of POST /api/communities/:id/join-requests/:requestId/review.
type ReviewJoinRequestRequest struct {
	Status models.JoinRequestStatus `json:"status"`
}

// CreateJoinRequest handles POST /api/communities/:id/join-requests
// @Summary Request to join a restricted community
// @Description A rejected requester must wait before asking again; the response then carries retry_at.
// @Tags join-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body CreateJoinRequestRequest false "Message"
// @Success 201 {object} models.JoinRequest
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /communities/{id}/join-requests [post]
func (s *Server) CreateJoinRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreateJoinRequestRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	request, err := s.joinRequestService.CreateJoinRequest(c.UserContext(), caller(c), id, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// ListJoinRequests handles GET /api/communities/:id/join-requests?status=pending
func (s *Server) ListJoinRequests(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	status := models.JoinRequestStatus(c.Query("status"))
	page, err := s.joinRequestService.ListJoinRequests(c.UserContext(), caller(c), id, status, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ReviewJoinRequest handles POST /api/communities/:id/join-requests/:requestId/review
// @Summary Approve or reject a join request
// @Tags join-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param requestId path int true "Join request ID"
// @Param request body ReviewJoinRequestRequest true "Decision"
// @Success 200 {object} models.JoinRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /communities/{id}/join-requests/{requestId}/review [post]
func (s *Server) ReviewJoinRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	var req ReviewJoinRequestRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	request, err := s.joinRequestService.ReviewJoinRequest(c.UserContext(), caller(c), id, requestID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(request)
}
