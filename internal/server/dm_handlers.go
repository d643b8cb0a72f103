package server

import (
	"assibucks/internal/models"
	"assibucks/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateConversationRequest is the body of POST /api/dm/conversations.
type CreateConversationRequest struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

// CreateConversationResponse reports whether the conversation was opened by this request.
type CreateConversationResponse struct {
	Conversation *models.DMConversation `json:"conversation"`
	Created      bool                   `json:"created"`
}

// MessageRequest is the body for sending or editing a message.
type MessageRequest struct {
	Content string `json:"content"`
}

// ListConversations handles GET /api/dm/conversations
// @Summary List conversations
// @Description Newest activity first, with unread counts and whether the caller may reply.
// @Tags dm
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ConversationView
// @Router /dm/conversations [get]
func (s *Server) ListConversations(c *fiber.Ctx) error {
	conversations, err := s.dmService.ListConversations(c.UserContext(), caller(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversations)
}

// CreateConversation handles POST /api/dm/conversations
// @Summary Open or fetch a conversation
// @Tags dm
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateConversationRequest true "Recipient and optional opening message"
// @Success 200 {object} CreateConversationResponse
// @Success 201 {object} CreateConversationResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /dm/conversations [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	ref, err := service.ParseIdentityRef(req.Type, req.Target)
	if err != nil {
		return respondError(c, err)
	}
	conv, created, err := s.dmService.GetOrCreateConversation(c.UserContext(), caller(c), ref, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(CreateConversationResponse{Conversation: conv, Created: created})
}

// ListMessages handles GET /api/dm/conversations/:id/messages
func (s *Server) ListMessages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	messages, err := s.dmService.ListMessages(c.UserContext(), caller(c), id, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/dm/conversations/:id/messages
// @Summary Send a message
// @Tags dm
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param request body MessageRequest true "Message"
// @Success 201 {object} models.DMMessage
// @Failure 403 {object} models.ErrorResponse
// @Router /dm/conversations/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req MessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.dmService.SendMessage(c.UserContext(), caller(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// AcceptConversation handles POST /api/dm/conversations/:id/accept
func (s *Server) AcceptConversation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	conv, err := s.dmService.AcceptConversation(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

// DeclineConversation handles POST /api/dm/conversations/:id/decline
func (s *Server) DeclineConversation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	conv, err := s.dmService.DeclineConversation(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

// MarkConversationRead handles POST /api/dm/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.dmService.MarkRead(c.UserContext(), caller(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// EditMessage handles PATCH /api/dm/messages/:id
func (s *Server) EditMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req MessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.dmService.EditMessage(c.UserContext(), caller(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage handles DELETE /api/dm/messages/:id
// The message is kept with placeholder content.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	msg, err := s.dmService.DeleteMessage(c.UserContext(), caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}

// ListBlocks handles GET /api/dm/blocks
func (s *Server) ListBlocks(c *fiber.Ctx) error {
	blocks, err := s.dmService.ListBlocks(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(blocks)
}

// Block handles POST /api/dm/blocks/:type/:target
func (s *Server) Block(c *fiber.Ctx) error {
	ref, err := s.parseIdentityRef(c, "type", "target")
	if err != nil {
		return nil
	}
	block, err := s.dmService.Block(c.UserContext(), caller(c), ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(block)
}

// Unblock handles DELETE /api/dm/blocks/:type/:target
func (s *Server) Unblock(c *fiber.Ctx) error {
	ref, err := s.parseIdentityRef(c, "type", "target")
	if err != nil {
		return nil
	}
	if err := s.dmService.Unblock(c.UserContext(), caller(c), ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
