package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strconv"
	"time"

	"assibucks/internal/models"
	"assibucks/internal/observability"
	"assibucks/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Invitation limits.
const (
	MaxBulkInvitees          = 50
	DefaultInviteLinkDays    = 7
	MaxInviteLinkDays        = 30
	DefaultDirectInviteDays  = 7
	inviteCodeLength         = 8
	inviteCodeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	inviteCodeCreateAttempts = 3
)

// BulkInviteSuccess is one invitee that received an invitation.
type BulkInviteSuccess struct {
	Invitee      string `json:"invitee"`
	InvitationID uint   `json:"invitation_id"`
}

// BulkInviteFailure is one invitee that could not be invited.
type BulkInviteFailure struct {
	Invitee string `json:"invitee"`
	Reason  string `json:"reason"`
}

// BulkInviteSummary counts the outcome of a bulk invite.
type BulkInviteSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BulkInviteResult reports per-invitee outcomes.
type BulkInviteResult struct {
	Success []BulkInviteSuccess `json:"success"`
	Failed  []BulkInviteFailure `json:"failed"`
	Summary BulkInviteSummary   `json:"summary"`
}

// InvitationService provides direct invitations, bulk invitations and invite links.
type InvitationService struct {
	db             *gorm.DB
	invitationRepo repository.InvitationRepository
	membershipRepo repository.MembershipRepository
	communityRepo  repository.CommunityRepository
	identityRepo   repository.IdentityRepository
	access         *AccessService
	directTTL      time.Duration
	now            Clock
}

// NewInvitationService returns a new InvitationService. directInviteDays <= 0 selects the default.
func NewInvitationService(
	db *gorm.DB,
	invitationRepo repository.InvitationRepository,
	membershipRepo repository.MembershipRepository,
	communityRepo repository.CommunityRepository,
	identityRepo repository.IdentityRepository,
	access *AccessService,
	directInviteDays int,
) *InvitationService {
	if directInviteDays <= 0 {
		directInviteDays = DefaultDirectInviteDays
	}
	return &InvitationService{
		db:             db,
		invitationRepo: invitationRepo,
		membershipRepo: membershipRepo,
		communityRepo:  communityRepo,
		identityRepo:   identityRepo,
		access:         access,
		directTTL:      time.Duration(directInviteDays) * 24 * time.Hour,
		now:            systemClock,
	}
}

// canInvite allows moderators and owners, and plain members when the community allows member invites.
func (s *InvitationService) canInvite(ctx context.Context, caller models.Identity, communityID uint) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	membership, err := s.membershipRepo.Get(ctx, communityID, caller)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, models.NewForbiddenError("You must be a member to invite others")
	}
	if membership.Role.CanManage() || community.AllowMemberInvites {
		return community, nil
	}
	return nil, models.NewForbiddenError("Only moderators can invite members to this community")
}

// CreateInvitation sends a direct invitation to invitee.
func (s *InvitationService) CreateInvitation(ctx context.Context, caller models.Identity, communityID uint, invitee IdentityRef) (inv *models.CommunityInvitation, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "InvitationService", "CreateInvitation",
		attribute.Int("community.id", int(communityID)))
	defer func() { observability.EndSpan(span, err) }()

	community, err := s.canInvite(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	return s.inviteOne(ctx, caller, community, invitee)
}

// BulkInvite invites every invitee independently. Only the permission check fails the whole call.
func (s *InvitationService) BulkInvite(ctx context.Context, caller models.Identity, communityID uint, invitees []IdentityRef) (*BulkInviteResult, error) {
	if len(invitees) == 0 {
		return nil, models.NewValidationError("At least one invitee is required")
	}
	if len(invitees) > MaxBulkInvitees {
		return nil, models.NewValidationError("At most 50 invitees per request")
	}
	community, err := s.canInvite(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}

	result := &BulkInviteResult{
		Success: []BulkInviteSuccess{},
		Failed:  []BulkInviteFailure{},
	}
	for _, ref := range invitees {
		label := refLabel(ref)
		inv, err := s.inviteOne(ctx, caller, community, ref)
		if err != nil {
			result.Failed = append(result.Failed, BulkInviteFailure{Invitee: label, Reason: failureReason(err)})
			continue
		}
		result.Success = append(result.Success, BulkInviteSuccess{Invitee: label, InvitationID: inv.ID})
	}
	result.Summary = BulkInviteSummary{
		Total:     len(invitees),
		Succeeded: len(result.Success),
		Failed:    len(result.Failed),
	}
	return result, nil
}

func (s *InvitationService) inviteOne(ctx context.Context, caller models.Identity, community *models.Community, ref IdentityRef) (*models.CommunityInvitation, error) {
	invitee, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return nil, err
	}
	if invitee.Equal(caller) {
		return nil, models.NewValidationError("You cannot invite yourself")
	}

	membership, err := s.membershipRepo.Get(ctx, community.ID, invitee)
	if err != nil {
		return nil, err
	}
	if membership != nil {
		return nil, models.NewConflictError("Already a member")
	}

	ban, err := s.access.activeBan(ctx, community.ID, invitee)
	if err != nil {
		return nil, err
	}
	if ban != nil {
		return nil, models.NewForbiddenError(bannedTargetMessage(ban))
	}

	now := s.now()
	expires := now.Add(s.directTTL)
	inviteeID := invitee.ID
	inv := &models.CommunityInvitation{
		CommunityID: community.ID,
		InviterType: caller.Kind,
		InviterID:   caller.ID,
		InviteeType: invitee.Kind,
		InviteeID:   &inviteeID,
		Status:      models.InvitationStatusPending,
		ExpiresAt:   &expires,
		CreatedAt:   now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitations := s.invitationRepo.WithTx(tx)
		pending, err := invitations.FindPendingDirect(ctx, community.ID, invitee)
		if err != nil {
			return err
		}
		if pending != nil {
			if !pending.ExpiredAt(now) {
				return models.NewConflictError("Invitation already pending")
			}
			if _, err := invitations.SetStatus(ctx, pending.ID, models.InvitationStatusPending, models.InvitationStatusExpired, nil); err != nil {
				return err
			}
		}
		return invitations.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	observability.InvitationEvents.WithLabelValues("created").Inc()
	return inv, nil
}

// AcceptInvitation joins caller to the community and stamps the invitation in one transaction.
func (s *InvitationService) AcceptInvitation(ctx context.Context, caller models.Identity, invitationID uint) (*models.CommunityInvitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !inv.AddressedTo(caller) {
		return nil, models.NewForbiddenError("This invitation is not addressed to you")
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, models.NewConflictError("Invitation is no longer pending")
	}
	now := s.now()
	if inv.ExpiredAt(now) {
		if _, err := s.invitationRepo.SetStatus(ctx, inv.ID, models.InvitationStatusPending, models.InvitationStatusExpired, nil); err != nil {
			return nil, err
		}
		observability.InvitationEvents.WithLabelValues("expired").Inc()
		return nil, models.NewValidationError("Invitation has expired")
	}

	ban, err := s.access.activeBan(ctx, inv.CommunityID, caller)
	if err != nil {
		return nil, err
	}
	if ban != nil {
		return nil, models.NewForbiddenError(banMessage(ban))
	}

	joined := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberships := s.membershipRepo.WithTx(tx)
		existing, err := memberships.Get(ctx, inv.CommunityID, caller)
		if err != nil {
			return err
		}
		// Already joined by another route: the invitation is still consumed.
		if existing == nil {
			if err := memberships.Create(ctx, &models.CommunityMembership{
				CommunityID: inv.CommunityID,
				MemberType:  caller.Kind,
				MemberID:    caller.ID,
				Role:        models.RoleMember,
			}); err != nil {
				return err
			}
			joined = true
		}

		ok, err := s.invitationRepo.WithTx(tx).SetStatus(ctx, inv.ID, models.InvitationStatusPending, models.InvitationStatusAccepted, &now)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflictError("Invitation is no longer pending")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.InvitationEvents.WithLabelValues("accepted").Inc()
	if joined {
		observability.MembershipChanges.WithLabelValues("invitation").Inc()
	}
	inv.Status = models.InvitationStatusAccepted
	inv.RespondedAt = &now
	return inv, nil
}

// DeclineInvitation marks a pending invitation declined.
func (s *InvitationService) DeclineInvitation(ctx context.Context, caller models.Identity, invitationID uint) (*models.CommunityInvitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !inv.AddressedTo(caller) {
		return nil, models.NewForbiddenError("This invitation is not addressed to you")
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, models.NewConflictError("Invitation is no longer pending")
	}

	now := s.now()
	ok, err := s.invitationRepo.SetStatus(ctx, inv.ID, models.InvitationStatusPending, models.InvitationStatusDeclined, &now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflictError("Invitation is no longer pending")
	}
	observability.InvitationEvents.WithLabelValues("declined").Inc()
	inv.Status = models.InvitationStatusDeclined
	inv.RespondedAt = &now
	return inv, nil
}

// CreateInviteLink issues a reusable invite code. expiresInDays 0 selects the default.
func (s *InvitationService) CreateInviteLink(ctx context.Context, caller models.Identity, communityID uint, maxUses *int, expiresInDays int) (*models.CommunityInvitation, error) {
	if expiresInDays == 0 {
		expiresInDays = DefaultInviteLinkDays
	}
	if expiresInDays < 1 || expiresInDays > MaxInviteLinkDays {
		return nil, models.NewValidationError("expires_in_days must be between 1 and 30")
	}
	if maxUses != nil && *maxUses < 1 {
		return nil, models.NewValidationError("max_uses must be at least 1")
	}
	if _, err := s.canInvite(ctx, caller, communityID); err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.AddDate(0, 0, expiresInDays)
	var lastErr error
	for attempt := 0; attempt < inviteCodeCreateAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		link := &models.CommunityInvitation{
			CommunityID: communityID,
			InviterType: caller.Kind,
			InviterID:   caller.ID,
			InviteeType: models.InviteeTypeLink,
			Status:      models.InvitationStatusPending,
			InviteCode:  &code,
			MaxUses:     maxUses,
			ExpiresAt:   &expires,
			CreatedAt:   now,
		}
		lastErr = s.invitationRepo.Create(ctx, link)
		if lastErr == nil {
			observability.InvitationEvents.WithLabelValues("link_created").Inc()
			return link, nil
		}
		if models.ErrorCode(lastErr) != models.CodeConflict {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// RedeemInviteLink joins caller through an invite code. The link row is locked for the whole
// transaction and the use counter only moves while uses remain.
func (s *InvitationService) RedeemInviteLink(ctx context.Context, caller models.Identity, code string) (membership *models.CommunityMembership, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "InvitationService", "RedeemInviteLink")
	defer func() { observability.EndSpan(span, err) }()

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitations := s.invitationRepo.WithTx(tx)
		memberships := s.membershipRepo.WithTx(tx)

		link, err := invitations.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if link.Status != models.InvitationStatusPending {
			return models.NewValidationError("Invite link is no longer active")
		}
		if link.ExpiredAt(now) {
			return models.NewValidationError("Invite link has expired")
		}
		if link.Exhausted() {
			return models.NewConflictError("Invite link has reached its maximum uses")
		}

		existing, err := memberships.Get(ctx, link.CommunityID, caller)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewConflictError("Already a member")
		}
		ban, err := s.access.WithTx(tx).activeBan(ctx, link.CommunityID, caller)
		if err != nil {
			return err
		}
		if ban != nil {
			return models.NewForbiddenError(banMessage(ban))
		}

		codeUsed := code
		membership = &models.CommunityMembership{
			CommunityID:    link.CommunityID,
			MemberType:     caller.Kind,
			MemberID:       caller.ID,
			Role:           models.RoleMember,
			InviteCodeUsed: &codeUsed,
		}
		if err := memberships.Create(ctx, membership); err != nil {
			return err
		}
		consumed, err := invitations.ConsumeUse(ctx, link.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return models.NewConflictError("Invite link has reached its maximum uses")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.InvitationEvents.WithLabelValues("link_redeemed").Inc()
	observability.MembershipChanges.WithLabelValues("invite_link").Inc()
	return membership, nil
}

// DeactivateInviteLink stops a link from being redeemed. Moderators and owners only.
func (s *InvitationService) DeactivateInviteLink(ctx context.Context, caller models.Identity, communityID, inviteID uint) error {
	if _, _, err := s.access.requireModerator(ctx, caller, communityID); err != nil {
		return err
	}
	link, err := s.invitationRepo.GetByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if link.CommunityID != communityID || !link.IsLink() {
		return models.NewNotFoundMessage("Invite link not found")
	}
	ok, err := s.invitationRepo.SetStatus(ctx, link.ID, models.InvitationStatusPending, models.InvitationStatusExpired, nil)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewConflictError("Invite link is already inactive")
	}
	observability.InvitationEvents.WithLabelValues("link_deactivated").Inc()
	return nil
}

// ListMyInvitations returns unexpired pending invitations addressed to caller.
func (s *InvitationService) ListMyInvitations(ctx context.Context, caller models.Identity) ([]models.CommunityInvitation, error) {
	invitations, err := s.invitationRepo.ListPendingForInvitee(ctx, caller)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]models.CommunityInvitation, 0, len(invitations))
	for _, inv := range invitations {
		if !inv.ExpiredAt(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListInviteLinks returns every link of the community. Moderators and owners only.
func (s *InvitationService) ListInviteLinks(ctx context.Context, caller models.Identity, communityID uint) ([]models.CommunityInvitation, error) {
	if _, _, err := s.access.requireModerator(ctx, caller, communityID); err != nil {
		return nil, err
	}
	return s.invitationRepo.ListLinks(ctx, communityID)
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

func refLabel(ref IdentityRef) string {
	switch {
	case ref.Name != "":
		return ref.Name
	case ref.ID != 0:
		return strconv.FormatUint(uint64(ref.ID), 10)
	}
	return string(ref.Kind)
}

// failureReason is the client-safe message of err.
func failureReason(err error) string {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code == models.CodeInternal {
		return "Internal server error"
	}
	return appErr.Message
}

func bannedTargetMessage(ban *models.CommunityBan) string {
	if ban.Reason != "" {
		return "This identity is banned from the community: " + ban.Reason
	}
	return "This identity is banned from the community"
}
