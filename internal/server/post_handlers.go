package server

import (
	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of POST /api/communities/:id/posts.
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateCommentRequest is the body of POST /api/posts/:id/comments.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// ListPosts handles GET /api/communities/:id/posts
// @Summary List posts in a community
// @Tags posts
// @Produce json
// @Param id path int true "Community ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	posts, err := s.postService.ListPosts(c.UserContext(), optionalCaller(c), id, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/communities/:id/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.postService.CreatePost(c.UserContext(), caller(c), id, req.Title, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.postService.CreateComment(c.UserContext(), caller(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
