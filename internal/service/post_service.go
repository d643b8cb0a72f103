package service

import (
	"context"
	"strings"

	"assibucks/internal/models"
	"assibucks/internal/repository"
)

// PostService gates post and comment creation through the community access policy.
type PostService struct {
	postRepo repository.PostRepository
	access   *AccessService
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, access *AccessService) *PostService {
	return &PostService{postRepo: postRepo, access: access}
}

// CreatePost requires post access on the community.
func (s *PostService) CreatePost(ctx context.Context, caller models.Identity, communityID uint, title, content string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > 300 {
		return nil, models.NewValidationError("Title must be at most 300 characters")
	}
	if _, err := s.access.Require(ctx, communityID, &caller, AccessPost); err != nil {
		return nil, err
	}

	post := &models.Post{
		CommunityID: communityID,
		AuthorType:  caller.Kind,
		AuthorID:    caller.ID,
		Title:       title,
		Content:     content,
	}
	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts requires view access on the community.
func (s *PostService) ListPosts(ctx context.Context, caller *models.Identity, communityID uint, page Page) ([]models.Post, error) {
	if _, err := s.access.Require(ctx, communityID, caller, AccessView); err != nil {
		return nil, err
	}
	page = page.normalized()
	return s.postRepo.ListByCommunity(ctx, communityID, page.Limit, page.Offset)
}

// CreateComment requires post access on the community the post belongs to.
func (s *PostService) CreateComment(ctx context.Context, caller models.Identity, postID uint, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, post.CommunityID, &caller, AccessPost); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:     post.ID,
		AuthorType: caller.Kind,
		AuthorID:   caller.ID,
		Content:    content,
	}
	if err := s.postRepo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
