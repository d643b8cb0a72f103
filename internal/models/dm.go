package models

import "time"

// ConversationStatus defines lifecycle states for direct-message conversations.
type ConversationStatus string

const (
	// ConversationStatusPending means only the initiator may write.
	ConversationStatusPending ConversationStatus = "pending"
	// ConversationStatusAccepted means both participants may write.
	ConversationStatusAccepted ConversationStatus = "accepted"
	// ConversationStatusDeclined means nobody may write.
	ConversationStatusDeclined ConversationStatus = "declined"
)

// DeletedMessagePlaceholder replaces the content of soft-deleted messages.
const DeletedMessagePlaceholder = "[deleted]"

// DMConversation is a two-party conversation stored in canonical participant order.
type DMConversation struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	Participant1Type   IdentityKind       `gorm:"type:varchar(10);not null;uniqueIndex:idx_dm_conversations_pair" json:"participant1_type"`
	Participant1ID     uint               `gorm:"not null;uniqueIndex:idx_dm_conversations_pair" json:"participant1_id"`
	Participant2Type   IdentityKind       `gorm:"type:varchar(10);not null;uniqueIndex:idx_dm_conversations_pair" json:"participant2_type"`
	Participant2ID     uint               `gorm:"not null;uniqueIndex:idx_dm_conversations_pair" json:"participant2_id"`
	InitiatorType      IdentityKind       `gorm:"type:varchar(10);not null" json:"initiator_type"`
	InitiatorID        uint               `gorm:"not null" json:"initiator_id"`
	Status             ConversationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	IsAccepted         bool               `gorm:"not null;default:false" json:"is_accepted"`
	LastMessageAt      *time.Time         `json:"last_message_at,omitempty"`
	LastMessagePreview string             `gorm:"size:400" json:"last_message_preview"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (DMConversation) TableName() string {
	return "dm_conversations"
}

// Participant1 returns the canonically-first participant.
func (c DMConversation) Participant1() Identity {
	return Identity{Kind: c.Participant1Type, ID: c.Participant1ID}
}

// Participant2 returns the canonically-second participant.
func (c DMConversation) Participant2() Identity {
	return Identity{Kind: c.Participant2Type, ID: c.Participant2ID}
}

// Initiator returns the participant that opened the conversation.
func (c DMConversation) Initiator() Identity {
	return Identity{Kind: c.InitiatorType, ID: c.InitiatorID}
}

// HasParticipant reports whether id takes part in the conversation.
func (c DMConversation) HasParticipant(id Identity) bool {
	return c.Participant1().Equal(id) || c.Participant2().Equal(id)
}

// Other returns the participant that is not id.
func (c DMConversation) Other(id Identity) Identity {
	if c.Participant1().Equal(id) {
		return c.Participant2()
	}
	return c.Participant1()
}

// DMMessage is a single message in a conversation.
type DMMessage struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ConversationID uint         `gorm:"not null;index" json:"conversation_id"`
	SenderType     IdentityKind `gorm:"type:varchar(10);not null" json:"sender_type"`
	SenderID       uint         `gorm:"not null" json:"sender_id"`
	Content        string       `gorm:"type:text;not null" json:"content"`
	IsDeleted      bool         `gorm:"not null;default:false" json:"is_deleted"`
	EditedAt       *time.Time   `json:"edited_at,omitempty"`
	DeletedAt      *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (DMMessage) TableName() string {
	return "dm_messages"
}

// Sender returns the identity that wrote the message.
func (m DMMessage) Sender() Identity {
	return Identity{Kind: m.SenderType, ID: m.SenderID}
}

// DMBlock is a directional block. Enforcement checks both directions.
type DMBlock struct {
	BlockerType IdentityKind `gorm:"primaryKey;type:varchar(10)" json:"blocker_type"`
	BlockerID   uint         `gorm:"primaryKey;autoIncrement:false" json:"blocker_id"`
	BlockedType IdentityKind `gorm:"primaryKey;type:varchar(10)" json:"blocked_type"`
	BlockedID   uint         `gorm:"primaryKey;autoIncrement:false" json:"blocked_id"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (DMBlock) TableName() string {
	return "dm_blocks"
}

// Blocked returns the identity that was blocked.
func (b DMBlock) Blocked() Identity {
	return Identity{Kind: b.BlockedType, ID: b.BlockedID}
}

// DMReadStatus tracks one participant's unread counter in a conversation.
type DMReadStatus struct {
	ConversationID uint         `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	IdentityType   IdentityKind `gorm:"primaryKey;type:varchar(10)" json:"identity_type"`
	IdentityID     uint         `gorm:"primaryKey;autoIncrement:false" json:"identity_id"`
	UnreadCount    int          `gorm:"not null;default:0" json:"unread_count"`
	LastReadAt     *time.Time   `json:"last_read_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (DMReadStatus) TableName() string {
	return "dm_read_status"
}

// ConversationView is a conversation as seen by one participant.
type ConversationView struct {
	DMConversation
	OtherParticipant IdentitySummary `json:"other_participant"`
	UnreadCount      int             `json:"unread_count"`
	CanReply         bool            `json:"can_reply"`
}
