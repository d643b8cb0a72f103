package repository

import (
	"context"
	"errors"
	"time"

	"assibucks/internal/models"

	"gorm.io/gorm"
)

// InvitationRepository defines data operations for direct invitations and invite links.
type InvitationRepository interface {
	WithTx(tx *gorm.DB) InvitationRepository
	Create(ctx context.Context, invitation *models.CommunityInvitation) error
	GetByID(ctx context.Context, id uint) (*models.CommunityInvitation, error)
	// GetByCodeForUpdate loads an invite link and locks its row for the rest of the transaction.
	GetByCodeForUpdate(ctx context.Context, code string) (*models.CommunityInvitation, error)
	FindPendingDirect(ctx context.Context, communityID uint, invitee models.Identity) (*models.CommunityInvitation, error)
	SetStatus(ctx context.Context, id uint, from, to models.InvitationStatus, respondedAt *time.Time) (bool, error)
	// ConsumeUse increments current_uses only while uses remain.
	ConsumeUse(ctx context.Context, id uint) (bool, error)
	ListPendingForInvitee(ctx context.Context, invitee models.Identity) ([]models.CommunityInvitation, error)
	ListLinks(ctx context.Context, communityID uint) ([]models.CommunityInvitation, error)
}

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) WithTx(tx *gorm.DB) InvitationRepository {
	return &invitationRepository{db: tx}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *models.CommunityInvitation) error {
	if err := r.db.WithContext(ctx).Create(invitation).Error; err != nil {
		if IsUniqueViolation(err) {
			if invitation.IsLink() {
				return models.NewConflictError("Invite code collision")
			}
			return models.NewConflictError("Invitation already pending")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id uint) (*models.CommunityInvitation, error) {
	var invitation models.CommunityInvitation
	if err := r.db.WithContext(ctx).First(&invitation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Invitation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

func (r *invitationRepository) GetByCodeForUpdate(ctx context.Context, code string) (*models.CommunityInvitation, error) {
	var invitation models.CommunityInvitation
	if err := forUpdate(r.db.WithContext(ctx)).Where("invite_code = ?", code).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Invite link not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

func (r *invitationRepository) FindPendingDirect(ctx context.Context, communityID uint, invitee models.Identity) (*models.CommunityInvitation, error) {
	var invitation models.CommunityInvitation
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND status = ? AND "+identityWhere("invitee"),
			communityID, models.InvitationStatusPending, invitee.Kind, invitee.ID).
		Order("id DESC").
		First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

// SetStatus moves an invitation from one status to another; false means it was no longer in from.
func (r *invitationRepository) SetStatus(ctx context.Context, id uint, from, to models.InvitationStatus, respondedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if respondedAt != nil {
		updates["responded_at"] = *respondedAt
	}
	res := r.db.WithContext(ctx).Model(&models.CommunityInvitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *invitationRepository) ConsumeUse(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CommunityInvitation{}).
		Where("id = ? AND status = ? AND (max_uses IS NULL OR current_uses < max_uses)", id, models.InvitationStatusPending).
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1))
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *invitationRepository) ListPendingForInvitee(ctx context.Context, invitee models.Identity) ([]models.CommunityInvitation, error) {
	var invitations []models.CommunityInvitation
	if err := readDB(r.db).WithContext(ctx).
		Preload("Community").
		Where("status = ? AND "+identityWhere("invitee"), models.InvitationStatusPending, invitee.Kind, invitee.ID).
		Order("created_at DESC, id DESC").
		Find(&invitations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invitations, nil
}

func (r *invitationRepository) ListLinks(ctx context.Context, communityID uint) ([]models.CommunityInvitation, error) {
	var invitations []models.CommunityInvitation
	if err := readDB(r.db).WithContext(ctx).
		Where("community_id = ? AND invite_code IS NOT NULL", communityID).
		Order("created_at DESC, id DESC").
		Find(&invitations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invitations, nil
}
