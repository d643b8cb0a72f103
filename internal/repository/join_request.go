package repository

import (
	"context"
	"errors"

	"assibucks/internal/models"

	"gorm.io/gorm"
)

// JoinRequestRepository defines data operations for join requests.
type JoinRequestRepository interface {
	WithTx(tx *gorm.DB) JoinRequestRepository
	Create(ctx context.Context, request *models.JoinRequest) error
	GetByID(ctx context.Context, id uint) (*models.JoinRequest, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.JoinRequest, error)
	FindPending(ctx context.Context, communityID uint, requester models.Identity) (*models.JoinRequest, error)
	LatestRejected(ctx context.Context, communityID uint, requester models.Identity) (*models.JoinRequest, error)
	List(ctx context.Context, communityID uint, status models.JoinRequestStatus, limit, offset int) ([]models.JoinRequest, int64, error)
	Save(ctx context.Context, request *models.JoinRequest) error
}

type joinRequestRepository struct {
	db *gorm.DB
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *gorm.DB) JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) WithTx(tx *gorm.DB) JoinRequestRepository {
	return &joinRequestRepository{db: tx}
}

func (r *joinRequestRepository) Create(ctx context.Context, request *models.JoinRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("A join request is already pending")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *joinRequestRepository) GetByID(ctx context.Context, id uint) (*models.JoinRequest, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *joinRequestRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.JoinRequest, error) {
	return r.get(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *joinRequestRepository) get(q *gorm.DB, id uint) (*models.JoinRequest, error) {
	var request models.JoinRequest
	if err := q.First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Join request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *joinRequestRepository) FindPending(ctx context.Context, communityID uint, requester models.Identity) (*models.JoinRequest, error) {
	return r.findLatest(ctx, communityID, requester, models.JoinRequestStatusPending, "created_at DESC, id DESC")
}

func (r *joinRequestRepository) LatestRejected(ctx context.Context, communityID uint, requester models.Identity) (*models.JoinRequest, error) {
	return r.findLatest(ctx, communityID, requester, models.JoinRequestStatusRejected, "rejected_at DESC, id DESC")
}

func (r *joinRequestRepository) findLatest(ctx context.Context, communityID uint, requester models.Identity, status models.JoinRequestStatus, order string) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND status = ? AND "+identityWhere("requester"),
			communityID, status, requester.Kind, requester.ID).
		Order(order).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

// List returns one page of requests with the given status, newest first, and the total count.
func (r *joinRequestRepository) List(ctx context.Context, communityID uint, status models.JoinRequestStatus, limit, offset int) ([]models.JoinRequest, int64, error) {
	scope := func() *gorm.DB {
		return readDB(r.db).WithContext(ctx).Model(&models.JoinRequest{}).
			Where("community_id = ? AND status = ?", communityID, status)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var requests []models.JoinRequest
	if err := scope().Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&requests).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return requests, total, nil
}

func (r *joinRequestRepository) Save(ctx context.Context, request *models.JoinRequest) error {
	if err := r.db.WithContext(ctx).Save(request).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
