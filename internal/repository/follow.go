package repository

import (
	"context"

	"assibucks/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines data operations for the follow graph.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, follower, followed models.Identity) (bool, error)
	Exists(ctx context.Context, follower, followed models.Identity) (bool, error)
	ListFollowing(ctx context.Context, follower models.Identity, limit, offset int) ([]models.Follow, error)
	ListFollowers(ctx context.Context, followed models.Identity, limit, offset int) ([]models.Follow, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Already following")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, follower, followed models.Identity) (bool, error) {
	res := r.db.WithContext(ctx).
		Where(identityWhere("follower")+" AND "+identityWhere("followed"),
			follower.Kind, follower.ID, followed.Kind, followed.ID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, follower, followed models.Identity) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where(identityWhere("follower")+" AND "+identityWhere("followed"),
			follower.Kind, follower.ID, followed.Kind, followed.ID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, follower models.Identity, limit, offset int) ([]models.Follow, error) {
	var follows []models.Follow
	if err := readDB(r.db).WithContext(ctx).
		Where(identityWhere("follower"), follower.Kind, follower.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&follows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return follows, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, followed models.Identity, limit, offset int) ([]models.Follow, error) {
	var follows []models.Follow
	if err := readDB(r.db).WithContext(ctx).
		Where(identityWhere("followed"), followed.Kind, followed.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&follows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return follows, nil
}
