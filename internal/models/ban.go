package models

import "time"

// CommunityBan records that an identity is barred from a community.
type CommunityBan struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	CommunityID  uint         `gorm:"not null;index:idx_community_bans_target" json:"community_id"`
	TargetType   IdentityKind `gorm:"type:varchar(10);not null;index:idx_community_bans_target" json:"target_type"`
	TargetID     uint         `gorm:"not null;index:idx_community_bans_target" json:"target_id"`
	Reason       string       `gorm:"type:text" json:"reason"`
	IsPermanent  bool         `gorm:"not null;default:false" json:"is_permanent"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	BannedByType IdentityKind `gorm:"type:varchar(10);not null" json:"banned_by_type"`
	BannedByID   uint         `gorm:"not null" json:"banned_by_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (CommunityBan) TableName() string {
	return "community_bans"
}

// Target returns the banned identity.
func (b CommunityBan) Target() Identity {
	return Identity{Kind: b.TargetType, ID: b.TargetID}
}

// BannedBy returns the identity that issued the ban.
func (b CommunityBan) BannedBy() Identity {
	return Identity{Kind: b.BannedByType, ID: b.BannedByID}
}

// ActiveAt reports whether the ban is in force at now.
func (b CommunityBan) ActiveAt(now time.Time) bool {
	if b.IsPermanent {
		return true
	}
	return b.ExpiresAt != nil && b.ExpiresAt.After(now)
}

// BanView is a ban enriched with display information for moderators.
type BanView struct {
	ID          uint            `json:"id"`
	Target      IdentitySummary `json:"target"`
	BannedBy    IdentitySummary `json:"banned_by"`
	Reason      string          `json:"reason"`
	IsPermanent bool            `json:"is_permanent"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
