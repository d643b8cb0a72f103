package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"assibucks/internal/models"
	"assibucks/internal/observability"
	"assibucks/internal/repository"

	"gorm.io/gorm"
)

// Join request limits.
const (
	DefaultJoinRequestCooldownDays = 30
	MaxJoinRequestMessageLength    = 500
)

// JoinRequestPage is one page of join requests and the total matching count.
type JoinRequestPage struct {
	Requests []models.JoinRequest `json:"requests"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// JoinRequestService provides the restricted-community join request workflow.
type JoinRequestService struct {
	db             *gorm.DB
	requestRepo    repository.JoinRequestRepository
	membershipRepo repository.MembershipRepository
	communityRepo  repository.CommunityRepository
	access         *AccessService
	cooldown       time.Duration
	now            Clock
}

// NewJoinRequestService returns a new JoinRequestService. cooldownDays <= 0 selects the default.
func NewJoinRequestService(
	db *gorm.DB,
	requestRepo repository.JoinRequestRepository,
	membershipRepo repository.MembershipRepository,
	communityRepo repository.CommunityRepository,
	access *AccessService,
	cooldownDays int,
) *JoinRequestService {
	if cooldownDays <= 0 {
		cooldownDays = DefaultJoinRequestCooldownDays
	}
	return &JoinRequestService{
		db:             db,
		requestRepo:    requestRepo,
		membershipRepo: membershipRepo,
		communityRepo:  communityRepo,
		access:         access,
		cooldown:       time.Duration(cooldownDays) * 24 * time.Hour,
		now:            systemClock,
	}
}

// CreateJoinRequest asks to join a restricted community.
func (s *JoinRequestService) CreateJoinRequest(ctx context.Context, caller models.Identity, communityID uint, message string) (*models.JoinRequest, error) {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxJoinRequestMessageLength {
		return nil, models.NewValidationError("Message must be at most 500 characters")
	}

	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	switch community.Visibility {
	case models.VisibilityPublic:
		return nil, models.NewValidationError("Public communities can be joined directly")
	case models.VisibilityPrivate:
		return nil, models.NewForbiddenError("Private communities are invite only")
	}

	membership, err := s.membershipRepo.Get(ctx, communityID, caller)
	if err != nil {
		return nil, err
	}
	if membership != nil {
		return nil, models.NewConflictError("Already a member")
	}

	ban, err := s.access.activeBan(ctx, communityID, caller)
	if err != nil {
		return nil, err
	}
	if ban != nil {
		return nil, models.NewForbiddenError(banMessage(ban))
	}

	pending, err := s.requestRepo.FindPending(ctx, communityID, caller)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, models.NewConflictError("A join request is already pending")
	}

	now := s.now()
	rejected, err := s.requestRepo.LatestRejected(ctx, communityID, caller)
	if err != nil {
		return nil, err
	}
	if rejected != nil && rejected.RejectedAt != nil {
		retryAt := rejected.RejectedAt.Add(s.cooldown)
		if now.Before(retryAt) {
			return nil, models.NewCooldownError("Your previous join request was rejected; you can request again later", retryAt)
		}
	}

	request := &models.JoinRequest{
		CommunityID:   communityID,
		RequesterType: caller.Kind,
		RequesterID:   caller.ID,
		Message:       message,
		Status:        models.JoinRequestStatusPending,
		CreatedAt:     now,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// ReviewJoinRequest approves or rejects a pending request. Approval inserts the membership
// in the same transaction as the status change.
func (s *JoinRequestService) ReviewJoinRequest(ctx context.Context, caller models.Identity, communityID, requestID uint, status models.JoinRequestStatus) (*models.JoinRequest, error) {
	if status != models.JoinRequestStatusApproved && status != models.JoinRequestStatusRejected {
		return nil, models.NewValidationError("Status must be approved or rejected")
	}

	if _, _, err := s.access.requireModerator(ctx, caller, communityID); err != nil {
		return nil, err
	}
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.CommunityID != communityID {
		return nil, models.NewNotFoundError("Join request", requestID)
	}

	if status == models.JoinRequestStatusApproved {
		ban, err := s.access.activeBan(ctx, communityID, request.Requester())
		if err != nil {
			return nil, err
		}
		if ban != nil {
			return nil, models.NewForbiddenError(bannedTargetMessage(ban))
		}
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.requestRepo.WithTx(tx)
		locked, err := requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if locked.Status != models.JoinRequestStatusPending {
			return models.NewConflictError("Join request has already been reviewed")
		}

		if status == models.JoinRequestStatusApproved {
			memberships := s.membershipRepo.WithTx(tx)
			existing, err := memberships.Get(ctx, communityID, locked.Requester())
			if err != nil {
				return err
			}
			if existing == nil {
				if err := memberships.Create(ctx, &models.CommunityMembership{
					CommunityID: communityID,
					MemberType:  locked.RequesterType,
					MemberID:    locked.RequesterID,
					Role:        models.RoleMember,
				}); err != nil {
					return err
				}
			}
		} else {
			locked.RejectedAt = &now
		}

		reviewerKind := caller.Kind
		reviewerID := caller.ID
		locked.Status = status
		locked.ReviewedByType = &reviewerKind
		locked.ReviewedByID = &reviewerID
		locked.ReviewedAt = &now
		if err := requests.Save(ctx, locked); err != nil {
			return err
		}
		request = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == models.JoinRequestStatusApproved {
		observability.MembershipChanges.WithLabelValues("join_request").Inc()
	}
	return request, nil
}

// ListJoinRequests pages through requests with the given status (default pending), newest first.
func (s *JoinRequestService) ListJoinRequests(ctx context.Context, caller models.Identity, communityID uint, status models.JoinRequestStatus, page Page) (*JoinRequestPage, error) {
	if status == "" {
		status = models.JoinRequestStatusPending
	}
	if !status.Valid() {
		return nil, models.NewValidationError("Status must be pending, approved or rejected")
	}
	if _, _, err := s.access.requireModerator(ctx, caller, communityID); err != nil {
		return nil, err
	}

	page = page.normalized()
	requests, total, err := s.requestRepo.List(ctx, communityID, status, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return &JoinRequestPage{Requests: requests, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}
