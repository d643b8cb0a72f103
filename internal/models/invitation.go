package models

import "time"

// InvitationStatus defines lifecycle states for community invitations.
type InvitationStatus string

const (
	// InvitationStatusPending indicates the invitation can still be used.
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted indicates the invitee joined.
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusDeclined indicates the invitee refused.
	InvitationStatusDeclined InvitationStatus = "declined"
	// InvitationStatusExpired indicates the invitation lapsed or was deactivated.
	InvitationStatusExpired InvitationStatus = "expired"
)

// InviteeTypeLink marks an invite link row, which has no specific invitee.
const InviteeTypeLink IdentityKind = "link"

// CommunityInvitation is either a direct invitation addressed to one identity
// or a reusable invite link identified by InviteCode.
type CommunityInvitation struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CommunityID uint             `gorm:"not null;index" json:"community_id"`
	InviterType IdentityKind     `gorm:"type:varchar(10);not null" json:"inviter_type"`
	InviterID   uint             `gorm:"not null" json:"inviter_id"`
	InviteeType IdentityKind     `gorm:"type:varchar(10);not null;index:idx_invitations_invitee" json:"invitee_type"`
	InviteeID   *uint            `gorm:"index:idx_invitations_invitee" json:"invitee_id,omitempty"`
	Status      InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	InviteCode  *string          `gorm:"size:16;uniqueIndex" json:"invite_code,omitempty"`
	MaxUses     *int             `json:"max_uses,omitempty"`
	CurrentUses int              `gorm:"not null;default:0" json:"current_uses"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	Community   *Community       `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CommunityInvitation) TableName() string {
	return "community_invitations"
}

// Inviter returns the identity that created the invitation.
func (i CommunityInvitation) Inviter() Identity {
	return Identity{Kind: i.InviterType, ID: i.InviterID}
}

// IsLink reports whether the row is an invite link rather than a direct invitation.
func (i CommunityInvitation) IsLink() bool {
	return i.InviteCode != nil
}

// AddressedTo reports whether a direct invitation targets id.
func (i CommunityInvitation) AddressedTo(id Identity) bool {
	return i.InviteeID != nil && i.InviteeType == id.Kind && *i.InviteeID == id.ID
}

// ExpiredAt reports whether the invitation has lapsed at now.
func (i CommunityInvitation) ExpiredAt(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// Exhausted reports whether an invite link has no uses left.
func (i CommunityInvitation) Exhausted() bool {
	return i.MaxUses != nil && i.CurrentUses >= *i.MaxUses
}
