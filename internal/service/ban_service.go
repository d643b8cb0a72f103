package service

import (
	"context"
	"strings"

	"assibucks/internal/models"
	"assibucks/internal/observability"
	"assibucks/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Ban duration bounds in days.
const (
	MinBanDays = 1
	MaxBanDays = 3650
)

// BanService provides the community ban workflow.
type BanService struct {
	db             *gorm.DB
	banRepo        repository.BanRepository
	membershipRepo repository.MembershipRepository
	identityRepo   repository.IdentityRepository
	access         *AccessService
	now            Clock
}

// NewBanService returns a new BanService.
func NewBanService(
	db *gorm.DB,
	banRepo repository.BanRepository,
	membershipRepo repository.MembershipRepository,
	identityRepo repository.IdentityRepository,
	access *AccessService,
) *BanService {
	return &BanService{
		db:             db,
		banRepo:        banRepo,
		membershipRepo: membershipRepo,
		identityRepo:   identityRepo,
		access:         access,
		now:            systemClock,
	}
}

// CreateBan bans target from the community and drops its membership in the same transaction.
// A nil durationDays makes the ban permanent.
func (s *BanService) CreateBan(ctx context.Context, caller models.Identity, communityID uint, ref IdentityRef, reason string, durationDays *int) (ban *models.CommunityBan, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "BanService", "CreateBan",
		attribute.Int("community.id", int(communityID)))
	defer func() { observability.EndSpan(span, err) }()

	if durationDays != nil && (*durationDays < MinBanDays || *durationDays > MaxBanDays) {
		return nil, models.NewValidationError("duration_days must be between 1 and 3650")
	}

	_, actorRole, err := s.access.requireModerator(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return nil, err
	}
	if target.Equal(caller) {
		return nil, models.NewValidationError("You cannot ban yourself")
	}

	membership, err := s.membershipRepo.Get(ctx, communityID, target)
	if err != nil {
		return nil, err
	}
	if membership != nil {
		if membership.Role == models.RoleOwner {
			return nil, models.NewForbiddenError("The community owner cannot be banned")
		}
		if !CanActOn(actorRole, membership.Role) {
			return nil, models.NewForbiddenError("Moderators cannot ban other moderators")
		}
	}

	now := s.now()
	ban = &models.CommunityBan{
		CommunityID:  communityID,
		TargetType:   target.Kind,
		TargetID:     target.ID,
		Reason:       strings.TrimSpace(reason),
		IsPermanent:  durationDays == nil,
		BannedByType: caller.Kind,
		BannedByID:   caller.ID,
		CreatedAt:    now,
	}
	if durationDays != nil {
		expires := now.AddDate(0, 0, *durationDays)
		ban.ExpiresAt = &expires
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.membershipRepo.WithTx(tx).Delete(ctx, communityID, target); err != nil {
			return err
		}
		return s.banRepo.WithTx(tx).Create(ctx, ban)
	})
	if err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues("ban").Inc()
	if membership != nil {
		observability.MembershipChanges.WithLabelValues("ban").Inc()
	}
	return ban, nil
}

// ListBans returns the community's bans, newest first, with display info.
func (s *BanService) ListBans(ctx context.Context, caller models.Identity, communityID uint) ([]models.BanView, error) {
	if _, _, err := s.access.requireModerator(ctx, caller, communityID); err != nil {
		return nil, err
	}
	bans, err := s.banRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	ids := make([]models.Identity, 0, len(bans)*2)
	for _, b := range bans {
		ids = append(ids, b.Target(), b.BannedBy())
	}
	summaries, err := s.identityRepo.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.BanView, 0, len(bans))
	for _, b := range bans {
		views = append(views, models.BanView{
			ID:          b.ID,
			Target:      summaryOrBare(summaries, b.Target()),
			BannedBy:    summaryOrBare(summaries, b.BannedBy()),
			Reason:      b.Reason,
			IsPermanent: b.IsPermanent,
			ExpiresAt:   b.ExpiresAt,
			CreatedAt:   b.CreatedAt,
		})
	}
	return views, nil
}

// LiftBan removes every ban row for target. NotFound when no ban is active.
func (s *BanService) LiftBan(ctx context.Context, caller models.Identity, communityID uint, ref IdentityRef) error {
	if _, _, err := s.access.requireModerator(ctx, caller, communityID); err != nil {
		return err
	}
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return err
	}
	active, err := s.banRepo.ActiveBan(ctx, communityID, target, s.now())
	if err != nil {
		return err
	}
	if active == nil {
		return models.NewNotFoundMessage("No active ban for this identity")
	}
	if _, err := s.banRepo.DeleteForTarget(ctx, communityID, target); err != nil {
		return err
	}
	observability.ModerationActions.WithLabelValues("unban").Inc()
	return nil
}

func summaryOrBare(summaries map[models.Identity]models.IdentitySummary, id models.Identity) models.IdentitySummary {
	if s, ok := summaries[id]; ok {
		return s
	}
	return models.IdentitySummary{Type: id.Kind, ID: id.ID}
}

