package repository

import (
	"context"
	"time"

	"assibucks/internal/models"

	"gorm.io/gorm"
)

// BanRepository defines data operations for community bans.
type BanRepository interface {
	WithTx(tx *gorm.DB) BanRepository
	Create(ctx context.Context, ban *models.CommunityBan) error
	// ActiveBan returns the newest ban in force at now, or nil.
	ActiveBan(ctx context.Context, communityID uint, target models.Identity, now time.Time) (*models.CommunityBan, error)
	ListByCommunity(ctx context.Context, communityID uint) ([]models.CommunityBan, error)
	DeleteForTarget(ctx context.Context, communityID uint, target models.Identity) (int64, error)
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new ban repository
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func (r *banRepository) WithTx(tx *gorm.DB) BanRepository {
	return &banRepository{db: tx}
}

func (r *banRepository) Create(ctx context.Context, ban *models.CommunityBan) error {
	if err := r.db.WithContext(ctx).Create(ban).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ActiveBan evaluates expiry in Go so the comparison does not depend on how the
// driver stores timestamps.
func (r *banRepository) ActiveBan(ctx context.Context, communityID uint, target models.Identity, now time.Time) (*models.CommunityBan, error) {
	var bans []models.CommunityBan
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND "+identityWhere("target"), communityID, target.Kind, target.ID).
		Order("created_at DESC, id DESC").
		Find(&bans).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range bans {
		if bans[i].ActiveAt(now) {
			return &bans[i], nil
		}
	}
	return nil, nil
}

func (r *banRepository) ListByCommunity(ctx context.Context, communityID uint) ([]models.CommunityBan, error) {
	var bans []models.CommunityBan
	if err := readDB(r.db).WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at DESC, id DESC").
		Find(&bans).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return bans, nil
}

func (r *banRepository) DeleteForTarget(ctx context.Context, communityID uint, target models.Identity) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("community_id = ? AND "+identityWhere("target"), communityID, target.Kind, target.ID).
		Delete(&models.CommunityBan{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
