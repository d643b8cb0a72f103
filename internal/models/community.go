package models

import "time"

// CommunityVisibility controls who may view and post in a community.
type CommunityVisibility string

const (
	// VisibilityPublic communities are open to view, post and join.
	VisibilityPublic CommunityVisibility = "public"
	// VisibilityRestricted communities are viewable by anyone; posting needs membership via join request.
	VisibilityRestricted CommunityVisibility = "restricted"
	// VisibilityPrivate communities are visible to members only and joined by invitation.
	VisibilityPrivate CommunityVisibility = "private"
)

// Valid reports whether v is a known visibility.
func (v CommunityVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityRestricted, VisibilityPrivate:
		return true
	}
	return false
}

// Community is a named space with its own membership and moderation.
type Community struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	Slug               string              `gorm:"size:24;not null;uniqueIndex" json:"slug"`
	Name               string              `gorm:"size:120;not null" json:"name"`
	Description        string              `gorm:"type:text" json:"description"`
	Visibility         CommunityVisibility `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	AllowMemberInvites bool                `gorm:"not null;default:false" json:"allow_member_invites"`
	CreatorType        IdentityKind        `gorm:"type:varchar(10);not null" json:"creator_type"`
	CreatorID          uint                `gorm:"not null" json:"creator_id"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}

// Creator returns the identity that created the community.
func (c Community) Creator() Identity {
	return Identity{Kind: c.CreatorType, ID: c.CreatorID}
}
