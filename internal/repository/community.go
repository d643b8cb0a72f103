package repository

import (
	"context"
	"errors"

	"assibucks/internal/cache"
	"assibucks/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository defines data operations for communities.
type CommunityRepository interface {
	WithTx(tx *gorm.DB) CommunityRepository
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	ListVisible(ctx context.Context, caller *models.Identity, limit, offset int) ([]models.Community, error)
	UpdateSettings(ctx context.Context, id uint, updates map[string]interface{}) error
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) WithTx(tx *gorm.DB) CommunityRepository {
	return &communityRepository{db: tx}
}

func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	if err := r.db.WithContext(ctx).Create(community).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Community slug is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Community not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &community, nil
}

// GetBySlug is read through the community cache.
func (r *communityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	err := cache.Aside(ctx, cache.CommunitySlugKey(slug), &community, cache.CommunityTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundMessage("Community not found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &community, nil
}

// ListVisible returns public and restricted communities, plus private ones caller belongs to.
func (r *communityRepository) ListVisible(ctx context.Context, caller *models.Identity, limit, offset int) ([]models.Community, error) {
	var communities []models.Community
	q := readDB(r.db).WithContext(ctx).Model(&models.Community{})
	if caller == nil {
		q = q.Where("visibility <> ?", models.VisibilityPrivate)
	} else {
		q = q.Where("visibility <> ? OR id IN (?)", models.VisibilityPrivate,
			r.db.Model(&models.CommunityMembership{}).
				Select("community_id").
				Where("member_type = ? AND member_id = ?", caller.Kind, caller.ID),
		)
	}
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) UpdateSettings(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Community not found")
	}

	var slugs []string
	if err := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).Pluck("slug", &slugs).Error; err == nil && len(slugs) == 1 {
		cache.InvalidateCommunity(ctx, id, slugs[0])
	}
	return nil
}
