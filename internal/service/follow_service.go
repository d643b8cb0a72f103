package service

import (
	"context"

	"assibucks/internal/models"
	"assibucks/internal/repository"
)

// FollowService provides the follow graph.
type FollowService struct {
	followRepo   repository.FollowRepository
	identityRepo repository.IdentityRepository
	now          Clock
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, identityRepo repository.IdentityRepository) *FollowService {
	return &FollowService{
		followRepo:   followRepo,
		identityRepo: identityRepo,
		now:          systemClock,
	}
}

// Follow creates the edge caller -> target.
func (s *FollowService) Follow(ctx context.Context, caller models.Identity, ref IdentityRef) (*models.Follow, error) {
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return nil, err
	}
	if target.Equal(caller) {
		return nil, models.NewValidationError("You cannot follow yourself")
	}

	exists, err := s.followRepo.Exists(ctx, caller, target)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("Already following")
	}

	follow := &models.Follow{
		FollowerType: caller.Kind,
		FollowerID:   caller.ID,
		FollowedType: target.Kind,
		FollowedID:   target.ID,
		CreatedAt:    s.now(),
	}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		return nil, err
	}
	return follow, nil
}

// Unfollow removes the edge caller -> target.
func (s *FollowService) Unfollow(ctx context.Context, caller models.Identity, ref IdentityRef) error {
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return err
	}
	removed, err := s.followRepo.Delete(ctx, caller, target)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundMessage("Not following")
	}
	return nil
}

// ListFollowing returns who caller follows, newest first.
func (s *FollowService) ListFollowing(ctx context.Context, caller models.Identity, page Page) ([]models.IdentitySummary, error) {
	page = page.normalized()
	follows, err := s.followRepo.ListFollowing(ctx, caller, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, follows, models.Follow.Followed)
}

// ListFollowers returns who follows caller, newest first.
func (s *FollowService) ListFollowers(ctx context.Context, caller models.Identity, page Page) ([]models.IdentitySummary, error) {
	page = page.normalized()
	follows, err := s.followRepo.ListFollowers(ctx, caller, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, follows, models.Follow.Follower)
}

func (s *FollowService) summarize(ctx context.Context, follows []models.Follow, side func(models.Follow) models.Identity) ([]models.IdentitySummary, error) {
	ids := make([]models.Identity, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, side(f))
	}
	summaries, err := s.identityRepo.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.IdentitySummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, summaryOrBare(summaries, id))
	}
	return out, nil
}
