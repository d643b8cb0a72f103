package repository

import (
	"context"
	"errors"
	"time"

	"assibucks/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DMRepository defines data operations for direct messages and blocks.
type DMRepository interface {
	WithTx(tx *gorm.DB) DMRepository

	GetConversation(ctx context.Context, id uint) (*models.DMConversation, error)
	GetConversationForUpdate(ctx context.Context, id uint) (*models.DMConversation, error)
	// FindConversation probes both participant orderings and returns nil, nil when none exists.
	FindConversation(ctx context.Context, a, b models.Identity) (*models.DMConversation, error)
	CreateConversation(ctx context.Context, conversation *models.DMConversation) error
	UpdateConversation(ctx context.Context, id uint, updates map[string]interface{}) error
	ListConversations(ctx context.Context, participant models.Identity, limit, offset int) ([]models.DMConversation, error)

	CreateMessage(ctx context.Context, message *models.DMMessage) error
	GetMessage(ctx context.Context, id uint) (*models.DMMessage, error)
	SaveMessage(ctx context.Context, message *models.DMMessage) error
	ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]models.DMMessage, error)

	EnsureReadStatus(ctx context.Context, conversationID uint, participant models.Identity) error
	IncrementUnread(ctx context.Context, conversationID uint, participant models.Identity) error
	ResetUnread(ctx context.Context, conversationID uint, participant models.Identity, at time.Time) error
	UnreadCounts(ctx context.Context, participant models.Identity) (map[uint]int, error)

	CreateBlock(ctx context.Context, block *models.DMBlock) error
	DeleteBlock(ctx context.Context, blocker, blocked models.Identity) (bool, error)
	// IsBlocked is true when either identity has blocked the other.
	IsBlocked(ctx context.Context, a, b models.Identity) (bool, error)
	ListBlocks(ctx context.Context, blocker models.Identity) ([]models.DMBlock, error)
}

type dmRepository struct {
	db *gorm.DB
}

// NewDMRepository creates a new direct message repository
func NewDMRepository(db *gorm.DB) DMRepository {
	return &dmRepository{db: db}
}

func (r *dmRepository) WithTx(tx *gorm.DB) DMRepository {
	return &dmRepository{db: tx}
}

func (r *dmRepository) GetConversation(ctx context.Context, id uint) (*models.DMConversation, error) {
	return r.getConversation(r.db.WithContext(ctx), id)
}

func (r *dmRepository) GetConversationForUpdate(ctx context.Context, id uint) (*models.DMConversation, error) {
	return r.getConversation(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *dmRepository) getConversation(q *gorm.DB, id uint) (*models.DMConversation, error) {
	var conversation models.DMConversation
	if err := q.First(&conversation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conversation, nil
}

func (r *dmRepository) FindConversation(ctx context.Context, a, b models.Identity) (*models.DMConversation, error) {
	var conversation models.DMConversation
	err := r.db.WithContext(ctx).
		Where("("+identityWhere("participant1")+" AND "+identityWhere("participant2")+") OR ("+
			identityWhere("participant1")+" AND "+identityWhere("participant2")+")",
			a.Kind, a.ID, b.Kind, b.ID, b.Kind, b.ID, a.Kind, a.ID).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conversation, nil
}

// CreateConversation surfaces a pair collision as CONFLICT so callers can re-probe.
func (r *dmRepository) CreateConversation(ctx context.Context, conversation *models.DMConversation) error {
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Conversation already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) UpdateConversation(ctx context.Context, id uint, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&models.DMConversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) ListConversations(ctx context.Context, participant models.Identity, limit, offset int) ([]models.DMConversation, error) {
	var conversations []models.DMConversation
	if err := readDB(r.db).WithContext(ctx).
		Where("("+identityWhere("participant1")+") OR ("+identityWhere("participant2")+")",
			participant.Kind, participant.ID, participant.Kind, participant.ID).
		Order("COALESCE(last_message_at, created_at) DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&conversations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (r *dmRepository) CreateMessage(ctx context.Context, message *models.DMMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) GetMessage(ctx context.Context, id uint) (*models.DMMessage, error) {
	var message models.DMMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &message, nil
}

func (r *dmRepository) SaveMessage(ctx context.Context, message *models.DMMessage) error {
	if err := r.db.WithContext(ctx).Save(message).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListMessages returns one page, newest first.
func (r *dmRepository) ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]models.DMMessage, error) {
	var messages []models.DMMessage
	if err := readDB(r.db).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *dmRepository) EnsureReadStatus(ctx context.Context, conversationID uint, participant models.Identity) error {
	status := models.DMReadStatus{
		ConversationID: conversationID,
		IdentityType:   participant.Kind,
		IdentityID:     participant.ID,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&status).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) IncrementUnread(ctx context.Context, conversationID uint, participant models.Identity) error {
	res := r.db.WithContext(ctx).Model(&models.DMReadStatus{}).
		Where("conversation_id = ? AND "+identityWhere("identity"), conversationID, participant.Kind, participant.ID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	status := models.DMReadStatus{
		ConversationID: conversationID,
		IdentityType:   participant.Kind,
		IdentityID:     participant.ID,
		UnreadCount:    1,
	}
	if err := r.db.WithContext(ctx).Create(&status).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) ResetUnread(ctx context.Context, conversationID uint, participant models.Identity, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.DMReadStatus{}).
		Where("conversation_id = ? AND "+identityWhere("identity"), conversationID, participant.Kind, participant.ID).
		Updates(map[string]interface{}{"unread_count": 0, "last_read_at": at})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	status := models.DMReadStatus{
		ConversationID: conversationID,
		IdentityType:   participant.Kind,
		IdentityID:     participant.ID,
		LastReadAt:     &at,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&status).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) UnreadCounts(ctx context.Context, participant models.Identity) (map[uint]int, error) {
	var statuses []models.DMReadStatus
	if err := readDB(r.db).WithContext(ctx).
		Where(identityWhere("identity"), participant.Kind, participant.ID).
		Find(&statuses).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[uint]int, len(statuses))
	for _, s := range statuses {
		out[s.ConversationID] = s.UnreadCount
	}
	return out, nil
}

// CreateBlock is idempotent.
func (r *dmRepository) CreateBlock(ctx context.Context, block *models.DMBlock) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(block).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmRepository) DeleteBlock(ctx context.Context, blocker, blocked models.Identity) (bool, error) {
	res := r.db.WithContext(ctx).
		Where(identityWhere("blocker")+" AND "+identityWhere("blocked"),
			blocker.Kind, blocker.ID, blocked.Kind, blocked.ID).
		Delete(&models.DMBlock{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *dmRepository) IsBlocked(ctx context.Context, a, b models.Identity) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DMBlock{}).
		Where("("+identityWhere("blocker")+" AND "+identityWhere("blocked")+") OR ("+
			identityWhere("blocker")+" AND "+identityWhere("blocked")+")",
			a.Kind, a.ID, b.Kind, b.ID, b.Kind, b.ID, a.Kind, a.ID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *dmRepository) ListBlocks(ctx context.Context, blocker models.Identity) ([]models.DMBlock, error) {
	var blocks []models.DMBlock
	if err := readDB(r.db).WithContext(ctx).
		Where(identityWhere("blocker"), blocker.Kind, blocker.ID).
		Order("created_at DESC").
		Find(&blocks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return blocks, nil
}
