package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"assibucks/internal/models"
	"assibucks/internal/observability"
	"assibucks/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Direct message limits.
const (
	MaxDMContentLength = 5000
	dmPreviewLength    = 100
)

// BlockView is one identity the caller has blocked.
type BlockView struct {
	Identity  models.IdentitySummary `json:"identity"`
	BlockedAt time.Time              `json:"blocked_at"`
}

// DMService provides direct-message conversations, messages and blocks.
type DMService struct {
	db           *gorm.DB
	dmRepo       repository.DMRepository
	identityRepo repository.IdentityRepository
	now          Clock
}

// NewDMService returns a new DMService.
func NewDMService(db *gorm.DB, dmRepo repository.DMRepository, identityRepo repository.IdentityRepository) *DMService {
	return &DMService{
		db:           db,
		dmRepo:       dmRepo,
		identityRepo: identityRepo,
		now:          systemClock,
	}
}

// IsBlocked reports whether either identity has blocked the other.
func (s *DMService) IsBlocked(ctx context.Context, a, b models.Identity) (bool, error) {
	return s.dmRepo.IsBlocked(ctx, a, b)
}

// GetOrCreateConversation returns the conversation between caller and recipient, creating a
// pending one on first contact. A non-empty opening message is sent through SendMessage.
func (s *DMService) GetOrCreateConversation(ctx context.Context, caller models.Identity, ref IdentityRef, openingMessage string) (conv *models.DMConversation, created bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "DMService", "GetOrCreateConversation")
	defer func() { observability.EndSpan(span, err) }()

	recipient, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return nil, false, err
	}
	if recipient.Equal(caller) {
		return nil, false, models.NewValidationError("You cannot message yourself")
	}
	blocked, err := s.dmRepo.IsBlocked(ctx, caller, recipient)
	if err != nil {
		return nil, false, err
	}
	if blocked {
		return nil, false, models.NewForbiddenError("You cannot message this identity")
	}

	conv, err = s.dmRepo.FindConversation(ctx, caller, recipient)
	if err != nil {
		return nil, false, err
	}
	if conv == nil {
		conv, created, err = s.createConversation(ctx, caller, recipient)
		if err != nil {
			return nil, false, err
		}
	}

	if strings.TrimSpace(openingMessage) != "" {
		if _, err := s.SendMessage(ctx, caller, conv.ID, openingMessage); err != nil {
			return nil, created, err
		}
		conv, err = s.dmRepo.GetConversation(ctx, conv.ID)
		if err != nil {
			return nil, created, err
		}
	}
	return conv, created, nil
}

func (s *DMService) createConversation(ctx context.Context, caller, recipient models.Identity) (*models.DMConversation, bool, error) {
	p1, p2 := models.CanonicalPair(caller, recipient)
	conv := &models.DMConversation{
		Participant1Type: p1.Kind,
		Participant1ID:   p1.ID,
		Participant2Type: p2.Kind,
		Participant2ID:   p2.ID,
		InitiatorType:    caller.Kind,
		InitiatorID:      caller.ID,
		Status:           models.ConversationStatusPending,
		CreatedAt:        s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.dmRepo.WithTx(tx)
		if err := repo.CreateConversation(ctx, conv); err != nil {
			return err
		}
		if err := repo.EnsureReadStatus(ctx, conv.ID, p1); err != nil {
			return err
		}
		return repo.EnsureReadStatus(ctx, conv.ID, p2)
	})
	if err == nil {
		return conv, true, nil
	}
	if models.ErrorCode(err) != models.CodeConflict {
		return nil, false, err
	}

	// Lost a concurrent create for the same pair.
	winner, probeErr := s.dmRepo.FindConversation(ctx, caller, recipient)
	if probeErr != nil {
		return nil, false, probeErr
	}
	if winner == nil {
		return nil, false, err
	}
	return winner, false, nil
}

// SendMessage appends a message and bumps the other participant's unread counter.
func (s *DMService) SendMessage(ctx context.Context, caller models.Identity, conversationID uint, content string) (msg *models.DMMessage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "DMService", "SendMessage",
		attribute.Int("conversation.id", int(conversationID)))
	defer func() { observability.EndSpan(span, err) }()

	conv, err := s.dmRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller) {
		return nil, models.NewForbiddenError("You are not a participant in this conversation")
	}
	if err := validateDMContent(content); err != nil {
		return nil, err
	}

	other := conv.Other(caller)
	blocked, err := s.dmRepo.IsBlocked(ctx, caller, other)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.NewForbiddenError("You cannot message this identity")
	}
	switch conv.Status {
	case models.ConversationStatusDeclined:
		return nil, models.NewForbiddenError("This conversation request was declined")
	case models.ConversationStatusPending:
		if !conv.Initiator().Equal(caller) {
			return nil, models.NewForbiddenError("Accept the conversation request before replying")
		}
	}

	now := s.now()
	msg = &models.DMMessage{
		ConversationID: conv.ID,
		SenderType:     caller.Kind,
		SenderID:       caller.ID,
		Content:        content,
		CreatedAt:      now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.dmRepo.WithTx(tx)
		if err := repo.CreateMessage(ctx, msg); err != nil {
			return err
		}
		if err := repo.UpdateConversation(ctx, conv.ID, map[string]interface{}{
			"last_message_at":      now,
			"last_message_preview": messagePreview(content),
		}); err != nil {
			return err
		}
		return repo.IncrementUnread(ctx, conv.ID, other)
	})
	if err != nil {
		return nil, err
	}
	observability.DMMessagesSent.Inc()
	return msg, nil
}

// AcceptConversation lets the recipient of a pending conversation open it for replies.
func (s *DMService) AcceptConversation(ctx context.Context, caller models.Identity, conversationID uint) (*models.DMConversation, error) {
	return s.respond(ctx, caller, conversationID, models.ConversationStatusAccepted)
}

// DeclineConversation closes a pending conversation for both sides.
func (s *DMService) DeclineConversation(ctx context.Context, caller models.Identity, conversationID uint) (*models.DMConversation, error) {
	return s.respond(ctx, caller, conversationID, models.ConversationStatusDeclined)
}

func (s *DMService) respond(ctx context.Context, caller models.Identity, conversationID uint, status models.ConversationStatus) (*models.DMConversation, error) {
	var conv *models.DMConversation
	accepted := status == models.ConversationStatusAccepted
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.dmRepo.WithTx(tx)
		locked, err := repo.GetConversationForUpdate(ctx, conversationID)
		if err != nil {
			return err
		}
		if !locked.HasParticipant(caller) {
			return models.NewForbiddenError("You are not a participant in this conversation")
		}
		if locked.Initiator().Equal(caller) {
			return models.NewForbiddenError("Only the recipient can respond to a conversation request")
		}
		if locked.Status != models.ConversationStatusPending {
			return models.NewConflictError("Conversation request is not pending")
		}
		if err := repo.UpdateConversation(ctx, locked.ID, map[string]interface{}{
			"status":      status,
			"is_accepted": accepted,
		}); err != nil {
			return err
		}
		conv = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	conv.Status = status
	conv.IsAccepted = accepted
	return conv, nil
}

// EditMessage replaces the content of caller's own message.
func (s *DMService) EditMessage(ctx context.Context, caller models.Identity, messageID uint, content string) (*models.DMMessage, error) {
	msg, err := s.dmRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.Sender().Equal(caller) {
		return nil, models.NewForbiddenError("You can only edit your own messages")
	}
	if msg.IsDeleted {
		return nil, models.NewValidationError("Deleted messages cannot be edited")
	}
	if err := validateDMContent(content); err != nil {
		return nil, err
	}

	now := s.now()
	msg.Content = content
	msg.EditedAt = &now
	if err := s.dmRepo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage soft-deletes caller's own message and scrubs its content.
func (s *DMService) DeleteMessage(ctx context.Context, caller models.Identity, messageID uint) (*models.DMMessage, error) {
	msg, err := s.dmRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.Sender().Equal(caller) {
		return nil, models.NewForbiddenError("You can only delete your own messages")
	}
	if msg.IsDeleted {
		return msg, nil
	}

	now := s.now()
	msg.IsDeleted = true
	msg.Content = models.DeletedMessagePlaceholder
	msg.DeletedAt = &now
	if err := s.dmRepo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead resets caller's unread counter for the conversation.
func (s *DMService) MarkRead(ctx context.Context, caller models.Identity, conversationID uint) error {
	conv, err := s.dmRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(caller) {
		return models.NewForbiddenError("You are not a participant in this conversation")
	}
	return s.dmRepo.ResetUnread(ctx, conv.ID, caller, s.now())
}

// ListConversations returns caller's conversations, most recently active first.
// CanReply reflects the conversation state only; blocks are enforced at send time.
func (s *DMService) ListConversations(ctx context.Context, caller models.Identity, page Page) ([]models.ConversationView, error) {
	page = page.normalized()
	convs, err := s.dmRepo.ListConversations(ctx, caller, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.dmRepo.UnreadCounts(ctx, caller)
	if err != nil {
		return nil, err
	}

	others := make([]models.Identity, 0, len(convs))
	for _, c := range convs {
		others = append(others, c.Other(caller))
	}
	summaries, err := s.identityRepo.Summaries(ctx, others)
	if err != nil {
		return nil, err
	}

	views := make([]models.ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, models.ConversationView{
			DMConversation:   c,
			OtherParticipant: summaryOrBare(summaries, c.Other(caller)),
			UnreadCount:      unread[c.ID],
			CanReply: c.Status == models.ConversationStatusAccepted ||
				(c.Status == models.ConversationStatusPending && c.Initiator().Equal(caller)),
		})
	}
	return views, nil
}

// ListMessages returns one page of a conversation, newest first.
func (s *DMService) ListMessages(ctx context.Context, caller models.Identity, conversationID uint, page Page) ([]models.DMMessage, error) {
	conv, err := s.dmRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller) {
		return nil, models.NewForbiddenError("You are not a participant in this conversation")
	}
	page = page.normalized()
	return s.dmRepo.ListMessages(ctx, conv.ID, page.Limit, page.Offset)
}

// Block stops all direct messaging between caller and target. Blocking twice is a no-op.
func (s *DMService) Block(ctx context.Context, caller models.Identity, ref IdentityRef) (*models.DMBlock, error) {
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return nil, err
	}
	if target.Equal(caller) {
		return nil, models.NewValidationError("You cannot block yourself")
	}
	block := &models.DMBlock{
		BlockerType: caller.Kind,
		BlockerID:   caller.ID,
		BlockedType: target.Kind,
		BlockedID:   target.ID,
		CreatedAt:   s.now(),
	}
	if err := s.dmRepo.CreateBlock(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

// Unblock removes caller's block on target.
func (s *DMService) Unblock(ctx context.Context, caller models.Identity, ref IdentityRef) error {
	target, err := resolveRef(ctx, s.identityRepo, ref)
	if err != nil {
		return err
	}
	removed, err := s.dmRepo.DeleteBlock(ctx, caller, target)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundMessage("Block not found")
	}
	return nil
}

// ListBlocks returns the identities caller has blocked.
func (s *DMService) ListBlocks(ctx context.Context, caller models.Identity) ([]BlockView, error) {
	blocks, err := s.dmRepo.ListBlocks(ctx, caller)
	if err != nil {
		return nil, err
	}
	ids := make([]models.Identity, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.Blocked())
	}
	summaries, err := s.identityRepo.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, BlockView{Identity: summaryOrBare(summaries, b.Blocked()), BlockedAt: b.CreatedAt})
	}
	return views, nil
}

func validateDMContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Message content is required")
	}
	if utf8.RuneCountInString(content) > MaxDMContentLength {
		return models.NewValidationError("Message must be at most 5000 characters")
	}
	return nil
}

func messagePreview(content string) string {
	if utf8.RuneCountInString(content) <= dmPreviewLength {
		return content
	}
	return string([]rune(content)[:dmPreviewLength])
}
