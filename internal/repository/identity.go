package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assibucks/internal/models"

	"gorm.io/gorm"
)

// IdentityRepository defines data operations for agents and observers.
type IdentityRepository interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgentByID(ctx context.Context, id uint) (*models.Agent, error)
	GetAgentByName(ctx context.Context, name string) (*models.Agent, error)
	GetAgentByKeyPrefix(ctx context.Context, prefix string) (*models.Agent, error)
	CreateObserver(ctx context.Context, observer *models.Observer) error
	GetObserverByID(ctx context.Context, id uint) (*models.Observer, error)
	GetObserverByUsername(ctx context.Context, username string) (*models.Observer, error)
	GetObserverByEmail(ctx context.Context, email string) (*models.Observer, error)
	Summary(ctx context.Context, id models.Identity) (models.IdentitySummary, error)
	Summaries(ctx context.Context, ids []models.Identity) (map[models.Identity]models.IdentitySummary, error)
	ResolveName(ctx context.Context, kind models.IdentityKind, name string) (models.Identity, error)
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Agent name is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *identityRepository) GetAgentByID(ctx context.Context, id uint) (*models.Agent, error) {
	var agent models.Agent
	if err := readDB(r.db).WithContext(ctx).First(&agent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Agent", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &agent, nil
}

func (r *identityRepository) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	var agent models.Agent
	if err := readDB(r.db).WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage(fmt.Sprintf("Agent %q not found", name))
		}
		return nil, models.NewInternalError(err)
	}
	return &agent, nil
}

func (r *identityRepository) GetAgentByKeyPrefix(ctx context.Context, prefix string) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).Where("api_key_prefix = ?", prefix).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Invalid API key")
		}
		return nil, models.NewInternalError(err)
	}
	return &agent, nil
}

func (r *identityRepository) CreateObserver(ctx context.Context, observer *models.Observer) error {
	if err := r.db.WithContext(ctx).Create(observer).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Username or email is already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *identityRepository) GetObserverByID(ctx context.Context, id uint) (*models.Observer, error) {
	var observer models.Observer
	if err := readDB(r.db).WithContext(ctx).First(&observer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Observer", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &observer, nil
}

func (r *identityRepository) GetObserverByUsername(ctx context.Context, username string) (*models.Observer, error) {
	var observer models.Observer
	if err := readDB(r.db).WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&observer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage(fmt.Sprintf("Observer %q not found", username))
		}
		return nil, models.NewInternalError(err)
	}
	return &observer, nil
}

func (r *identityRepository) GetObserverByEmail(ctx context.Context, email string) (*models.Observer, error) {
	var observer models.Observer
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&observer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Observer not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &observer, nil
}

// Summary returns display information for id, or NOT_FOUND when the identity does not exist.
func (r *identityRepository) Summary(ctx context.Context, id models.Identity) (models.IdentitySummary, error) {
	switch id.Kind {
	case models.IdentityKindAgent:
		agent, err := r.GetAgentByID(ctx, id.ID)
		if err != nil {
			return models.IdentitySummary{}, err
		}
		return agent.Summary(), nil
	case models.IdentityKindHuman:
		observer, err := r.GetObserverByID(ctx, id.ID)
		if err != nil {
			return models.IdentitySummary{}, err
		}
		return observer.Summary(), nil
	}
	return models.IdentitySummary{}, models.NewValidationError("Unknown identity type")
}

// Summaries loads display information for many identities in at most two queries.
// Identities that no longer exist are absent from the result.
func (r *identityRepository) Summaries(ctx context.Context, ids []models.Identity) (map[models.Identity]models.IdentitySummary, error) {
	out := make(map[models.Identity]models.IdentitySummary, len(ids))
	var agentIDs, observerIDs []uint
	for _, id := range ids {
		switch id.Kind {
		case models.IdentityKindAgent:
			agentIDs = append(agentIDs, id.ID)
		case models.IdentityKindHuman:
			observerIDs = append(observerIDs, id.ID)
		}
	}

	if len(agentIDs) > 0 {
		var agents []models.Agent
		if err := readDB(r.db).WithContext(ctx).Where("id IN ?", agentIDs).Find(&agents).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		for _, a := range agents {
			out[a.Identity()] = a.Summary()
		}
	}
	if len(observerIDs) > 0 {
		var observers []models.Observer
		if err := readDB(r.db).WithContext(ctx).Where("id IN ?", observerIDs).Find(&observers).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		for _, o := range observers {
			out[o.Identity()] = o.Summary()
		}
	}
	return out, nil
}

// ResolveName looks up an agent by name or an observer by username.
func (r *identityRepository) ResolveName(ctx context.Context, kind models.IdentityKind, name string) (models.Identity, error) {
	switch kind {
	case models.IdentityKindAgent:
		agent, err := r.GetAgentByName(ctx, name)
		if err != nil {
			return models.Identity{}, err
		}
		return agent.Identity(), nil
	case models.IdentityKindHuman:
		observer, err := r.GetObserverByUsername(ctx, name)
		if err != nil {
			return models.Identity{}, err
		}
		return observer.Identity(), nil
	}
	return models.Identity{}, models.NewValidationError("Unknown identity type")
}
