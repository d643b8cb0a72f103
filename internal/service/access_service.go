package service

import (
	"context"

	"assibucks/internal/models"
	"assibucks/internal/observability"
	"assibucks/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// PermissionResult is the outcome of a moderator or owner check.
type PermissionResult struct {
	Allowed bool                  `json:"allowed"`
	Role    models.MembershipRole `json:"role,omitempty"`
	Reason  string                `json:"reason,omitempty"`
}

// Err converts a denied result into a FORBIDDEN error.
func (r PermissionResult) Err() error {
	if r.Allowed {
		return nil
	}
	return models.NewForbiddenError(r.Reason)
}

// AccessService answers access and permission questions against the stores.
type AccessService struct {
	communityRepo  repository.CommunityRepository
	membershipRepo repository.MembershipRepository
	banRepo        repository.BanRepository
	now            Clock
}

// NewAccessService returns a new AccessService.
func NewAccessService(
	communityRepo repository.CommunityRepository,
	membershipRepo repository.MembershipRepository,
	banRepo repository.BanRepository,
) *AccessService {
	return &AccessService{
		communityRepo:  communityRepo,
		membershipRepo: membershipRepo,
		banRepo:        banRepo,
		now:            systemClock,
	}
}

// WithTx returns a copy bound to tx.
func (s *AccessService) WithTx(tx *gorm.DB) *AccessService {
	return &AccessService{
		communityRepo:  s.communityRepo.WithTx(tx),
		membershipRepo: s.membershipRepo.WithTx(tx),
		banRepo:        s.banRepo.WithTx(tx),
		now:            s.now,
	}
}

// CheckAccess evaluates whether caller (nil for anonymous) may act at level on the community.
// The returned error is reserved for storage failures.
func (s *AccessService) CheckAccess(ctx context.Context, communityID uint, caller *models.Identity, level AccessLevel) (result AccessResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccessService", "CheckAccess",
		attribute.Int("community.id", int(communityID)),
		attribute.String("access.level", string(level)),
	)
	defer func() { observability.EndSpan(span, err) }()

	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		if models.ErrorCode(err) != models.CodeNotFound {
			return AccessResult{}, err
		}
		community = nil
	}
	return s.decide(ctx, community, caller, level)
}

// CheckCommunityAccess is CheckAccess for a community already loaded by the caller.
func (s *AccessService) CheckCommunityAccess(ctx context.Context, community *models.Community, caller *models.Identity, level AccessLevel) (AccessResult, error) {
	return s.decide(ctx, community, caller, level)
}

func (s *AccessService) decide(ctx context.Context, community *models.Community, caller *models.Identity, level AccessLevel) (AccessResult, error) {
	var (
		membership *models.CommunityMembership
		ban        *models.CommunityBan
		err        error
	)
	if community != nil && caller != nil {
		ban, err = s.banRepo.ActiveBan(ctx, community.ID, *caller, s.now())
		if err != nil {
			return AccessResult{}, err
		}
		membership, err = s.membershipRepo.Get(ctx, community.ID, *caller)
		if err != nil {
			return AccessResult{}, err
		}
	}

	result := DecideAccess(community, membership, ban, level)
	if !result.Allowed {
		observability.AccessDenied.WithLabelValues(string(level), result.denial).Inc()
	}
	return result, nil
}

// Require is CheckAccess that returns the denial as an error.
func (s *AccessService) Require(ctx context.Context, communityID uint, caller *models.Identity, level AccessLevel) (AccessResult, error) {
	result, err := s.CheckAccess(ctx, communityID, caller, level)
	if err != nil {
		return result, err
	}
	return result, result.Err()
}

// CheckModeratorPermission is allowed iff caller holds the owner or moderator role.
func (s *AccessService) CheckModeratorPermission(ctx context.Context, caller models.Identity, communityID uint) (PermissionResult, error) {
	membership, err := s.membershipRepo.Get(ctx, communityID, caller)
	if err != nil {
		return PermissionResult{}, err
	}
	if membership == nil {
		return PermissionResult{Reason: "Moderator or owner role required"}, nil
	}
	if !membership.Role.CanManage() {
		return PermissionResult{Role: membership.Role, Reason: "Moderator or owner role required"}, nil
	}
	return PermissionResult{Allowed: true, Role: membership.Role}, nil
}

// CheckOwnerPermission is allowed iff caller holds the owner role.
func (s *AccessService) CheckOwnerPermission(ctx context.Context, caller models.Identity, communityID uint) (PermissionResult, error) {
	membership, err := s.membershipRepo.Get(ctx, communityID, caller)
	if err != nil {
		return PermissionResult{}, err
	}
	if membership == nil || membership.Role != models.RoleOwner {
		result := PermissionResult{Reason: "Owner role required"}
		if membership != nil {
			result.Role = membership.Role
		}
		return result, nil
	}
	return PermissionResult{Allowed: true, Role: membership.Role}, nil
}

// requireModerator loads the community and returns the caller's management role.
func (s *AccessService) requireModerator(ctx context.Context, caller models.Identity, communityID uint) (*models.Community, models.MembershipRole, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, "", err
	}
	perm, err := s.CheckModeratorPermission(ctx, caller, communityID)
	if err != nil {
		return nil, "", err
	}
	if !perm.Allowed {
		observability.AccessDenied.WithLabelValues(string(AccessManage), denyInsufficientRole).Inc()
		return nil, perm.Role, perm.Err()
	}
	return community, perm.Role, nil
}

func (s *AccessService) requireOwner(ctx context.Context, caller models.Identity, communityID uint) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	perm, err := s.CheckOwnerPermission(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	if !perm.Allowed {
		observability.AccessDenied.WithLabelValues(string(AccessManage), denyInsufficientRole).Inc()
		return nil, perm.Err()
	}
	return community, nil
}

// activeBan returns the ban gating target, or nil.
func (s *AccessService) activeBan(ctx context.Context, communityID uint, target models.Identity) (*models.CommunityBan, error) {
	return s.banRepo.ActiveBan(ctx, communityID, target, s.now())
}
