package repository

import (
	"context"
	"errors"

	"assibucks/internal/models"

	"gorm.io/gorm"
)

// MembershipRepository defines data operations for community memberships.
type MembershipRepository interface {
	WithTx(tx *gorm.DB) MembershipRepository
	// Get returns nil, nil when the identity holds no membership.
	Get(ctx context.Context, communityID uint, member models.Identity) (*models.CommunityMembership, error)
	Create(ctx context.Context, membership *models.CommunityMembership) error
	Delete(ctx context.Context, communityID uint, member models.Identity) (bool, error)
	UpdateRole(ctx context.Context, communityID uint, member models.Identity, role models.MembershipRole) error
	ListByCommunity(ctx context.Context, communityID uint, limit, offset int) ([]models.CommunityMembership, error)
	ListByMember(ctx context.Context, member models.Identity) ([]models.CommunityMembership, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) WithTx(tx *gorm.DB) MembershipRepository {
	return &membershipRepository{db: tx}
}

func (r *membershipRepository) Get(ctx context.Context, communityID uint, member models.Identity) (*models.CommunityMembership, error) {
	var membership models.CommunityMembership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND "+identityWhere("member"), communityID, member.Kind, member.ID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &membership, nil
}

// Create inserts membership; a second row for the same identity is a CONFLICT.
func (r *membershipRepository) Create(ctx context.Context, membership *models.CommunityMembership) error {
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Already a member")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *membershipRepository) Delete(ctx context.Context, communityID uint, member models.Identity) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("community_id = ? AND "+identityWhere("member"), communityID, member.Kind, member.ID).
		Delete(&models.CommunityMembership{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *membershipRepository) UpdateRole(ctx context.Context, communityID uint, member models.Identity, role models.MembershipRole) error {
	res := r.db.WithContext(ctx).Model(&models.CommunityMembership{}).
		Where("community_id = ? AND "+identityWhere("member"), communityID, member.Kind, member.ID).
		Update("role", role)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Membership not found")
	}
	return nil
}

func (r *membershipRepository) ListByCommunity(ctx context.Context, communityID uint, limit, offset int) ([]models.CommunityMembership, error) {
	var memberships []models.CommunityMembership
	if err := readDB(r.db).WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *membershipRepository) ListByMember(ctx context.Context, member models.Identity) ([]models.CommunityMembership, error) {
	var memberships []models.CommunityMembership
	if err := readDB(r.db).WithContext(ctx).
		Where(identityWhere("member"), member.Kind, member.ID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}
