package service

import (
	"context"
	"strings"

	"assibucks/internal/models"
	"assibucks/internal/observability"
	"assibucks/internal/repository"
	"assibucks/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CreateCommunityInput carries the fields accepted when creating a community.
type CreateCommunityInput struct {
	Slug               string
	Name               string
	Description        string
	Visibility         models.CommunityVisibility
	AllowMemberInvites bool
}

// CommunitySettingsInput carries optional settings changes; nil fields are left alone.
type CommunitySettingsInput struct {
	Visibility         *models.CommunityVisibility
	AllowMemberInvites *bool
	Description        *string
}

// CommunityService provides community lifecycle and roster management.
type CommunityService struct {
	db             *gorm.DB
	communityRepo  repository.CommunityRepository
	membershipRepo repository.MembershipRepository
	identityRepo   repository.IdentityRepository
	access         *AccessService
}

// NewCommunityService returns a new CommunityService.
func NewCommunityService(
	db *gorm.DB,
	communityRepo repository.CommunityRepository,
	membershipRepo repository.MembershipRepository,
	identityRepo repository.IdentityRepository,
	access *AccessService,
) *CommunityService {
	return &CommunityService{
		db:             db,
		communityRepo:  communityRepo,
		membershipRepo: membershipRepo,
		identityRepo:   identityRepo,
		access:         access,
	}
}

// CreateCommunity inserts the community and its owner membership together.
func (s *CommunityService) CreateCommunity(ctx context.Context, caller models.Identity, in CreateCommunityInput) (*models.Community, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if err := validation.ValidateCommunitySlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if len(name) > 120 {
		return nil, models.NewValidationError("Name must be at most 120 characters")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, models.NewValidationError("Visibility must be public, restricted or private")
	}

	community := &models.Community{
		Slug:               slug,
		Name:               name,
		Description:        strings.TrimSpace(in.Description),
		Visibility:         visibility,
		AllowMemberInvites: in.AllowMemberInvites,
		CreatorType:        caller.Kind,
		CreatorID:          caller.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.communityRepo.WithTx(tx).Create(ctx, community); err != nil {
			return err
		}
		return s.membershipRepo.WithTx(tx).Create(ctx, &models.CommunityMembership{
			CommunityID: community.ID,
			MemberType:  caller.Kind,
			MemberID:    caller.ID,
			Role:        models.RoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}
	observability.MembershipChanges.WithLabelValues("create_community").Inc()
	return community, nil
}

// GetCommunity returns the community by slug when caller may view it.
func (s *CommunityService) GetCommunity(ctx context.Context, caller *models.Identity, slug string) (*models.Community, AccessResult, error) {
	community, err := s.communityRepo.GetBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, AccessResult{}, err
	}
	result, err := s.access.CheckCommunityAccess(ctx, community, caller, AccessView)
	if err != nil {
		return nil, result, err
	}
	if err := result.Err(); err != nil {
		return nil, result, err
	}
	return community, result, nil
}

// ListCommunities returns public and restricted communities plus the caller's private ones.
func (s *CommunityService) ListCommunities(ctx context.Context, caller *models.Identity, page Page) ([]models.Community, error) {
	page = page.normalized()
	return s.communityRepo.ListVisible(ctx, caller, page.Limit, page.Offset)
}

// UpdateSettings changes visibility, invite policy or description. Owner only.
func (s *CommunityService) UpdateSettings(ctx context.Context, caller models.Identity, communityID uint, in CommunitySettingsInput) (*models.Community, error) {
	if _, err := s.access.requireOwner(ctx, caller, communityID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, models.NewValidationError("Visibility must be public, restricted or private")
		}
		updates["visibility"] = *in.Visibility
	}
	if in.AllowMemberInvites != nil {
		updates["allow_member_invites"] = *in.AllowMemberInvites
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if err := s.communityRepo.UpdateSettings(ctx, communityID, updates); err != nil {
		return nil, err
	}
	return s.communityRepo.GetByID(ctx, communityID)
}

// JoinPublic adds caller as a member of a public community.
func (s *CommunityService) JoinPublic(ctx context.Context, caller models.Identity, communityID uint) (*models.CommunityMembership, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	switch community.Visibility {
	case models.VisibilityRestricted:
		return nil, models.NewForbiddenError("Restricted communities require a join request")
	case models.VisibilityPrivate:
		return nil, models.NewForbiddenError("Private communities are invite only")
	}

	ban, err := s.access.activeBan(ctx, communityID, caller)
	if err != nil {
		return nil, err
	}
	if ban != nil {
		return nil, models.NewForbiddenError(banMessage(ban))
	}

	membership := &models.CommunityMembership{
		CommunityID: communityID,
		MemberType:  caller.Kind,
		MemberID:    caller.ID,
		Role:        models.RoleMember,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}
	observability.MembershipChanges.WithLabelValues("join").Inc()
	return membership, nil
}

// Leave removes caller from the community. The owner cannot leave.
func (s *CommunityService) Leave(ctx context.Context, caller models.Identity, communityID uint) error {
	membership, err := s.membershipRepo.Get(ctx, communityID, caller)
	if err != nil {
		return err
	}
	if membership == nil {
		return models.NewNotFoundMessage("You are not a member of this community")
	}
	if membership.Role == models.RoleOwner {
		return models.NewValidationError("The owner cannot leave the community")
	}
	if _, err := s.membershipRepo.Delete(ctx, communityID, caller); err != nil {
		return err
	}
	observability.MembershipChanges.WithLabelValues("leave").Inc()
	return nil
}

// RemoveMember kicks target. Moderators may remove plain members; only the owner removes moderators.
func (s *CommunityService) RemoveMember(ctx context.Context, caller models.Identity, communityID uint, ref IdentityRef) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommunityService", "RemoveMember",
		attribute.Int("community.id", int(communityID)))
	defer func() { observability.EndSpan(span, err) }()

	_, actorRole, err := s.access.requireModerator(ctx, caller, communityID)
	if err != nil {
		return err
	}
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return err
	}
	if target.Equal(caller) {
		return models.NewValidationError("Use leave to remove yourself")
	}

	membership, err := s.membershipRepo.Get(ctx, communityID, target)
	if err != nil {
		return err
	}
	if membership == nil {
		return models.NewNotFoundMessage("Membership not found")
	}
	if !CanActOn(actorRole, membership.Role) {
		return models.NewForbiddenError("You cannot remove a member with an equal or higher role")
	}
	if _, err := s.membershipRepo.Delete(ctx, communityID, target); err != nil {
		return err
	}
	observability.ModerationActions.WithLabelValues("kick").Inc()
	observability.MembershipChanges.WithLabelValues("kick").Inc()
	return nil
}

// ChangeRole promotes or demotes target between moderator and member. Owner only.
func (s *CommunityService) ChangeRole(ctx context.Context, caller models.Identity, communityID uint, ref IdentityRef, role models.MembershipRole) (*models.CommunityMembership, error) {
	if role != models.RoleModerator && role != models.RoleMember {
		return nil, models.NewValidationError("Role must be moderator or member")
	}
	if _, err := s.access.requireOwner(ctx, caller, communityID); err != nil {
		return nil, err
	}
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return nil, err
	}

	membership, err := s.membershipRepo.Get(ctx, communityID, target)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, models.NewNotFoundMessage("Membership not found")
	}
	if membership.Role == models.RoleOwner {
		return nil, models.NewForbiddenError("The owner's role cannot be changed")
	}
	if err := s.membershipRepo.UpdateRole(ctx, communityID, target, role); err != nil {
		return nil, err
	}
	membership.Role = role
	observability.ModerationActions.WithLabelValues("role_change").Inc()
	return membership, nil
}

// ListMembers returns the roster with display names. Requires view access.
func (s *CommunityService) ListMembers(ctx context.Context, caller *models.Identity, communityID uint, page Page) ([]models.MemberView, error) {
	if _, err := s.access.Require(ctx, communityID, caller, AccessView); err != nil {
		return nil, err
	}
	page = page.normalized()
	memberships, err := s.membershipRepo.ListByCommunity(ctx, communityID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	ids := make([]models.Identity, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.Member())
	}
	summaries, err := s.identityRepo.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.MemberView, 0, len(memberships))
	for _, m := range memberships {
		views = append(views, models.MemberView{
			Member:   summaryOrBare(summaries, m.Member()),
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		})
	}
	return views, nil
}
