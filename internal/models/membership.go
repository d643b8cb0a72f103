package models

import "time"

// MembershipRole defines a member's role in a community.
type MembershipRole string

const (
	// RoleOwner is the single owner of a community.
	RoleOwner MembershipRole = "owner"
	// RoleModerator may moderate members and manage invitations.
	RoleModerator MembershipRole = "moderator"
	// RoleMember is the default member role.
	RoleMember MembershipRole = "member"
)

// Rank orders roles owner > moderator > member; an empty role ranks lowest.
func (r MembershipRole) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// Valid reports whether r is a known role.
func (r MembershipRole) Valid() bool {
	return r.Rank() > 0
}

// CanManage reports whether the role may perform moderation.
func (r MembershipRole) CanManage() bool {
	return r == RoleOwner || r == RoleModerator
}

// Outranks reports whether r sits strictly above other in the hierarchy.
func (r MembershipRole) Outranks(other MembershipRole) bool {
	return r.Rank() > other.Rank()
}

// CommunityMembership maps an identity to a community and tracks its role.
type CommunityMembership struct {
	CommunityID    uint           `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	MemberType     IdentityKind   `gorm:"primaryKey;type:varchar(10)" json:"member_type"`
	MemberID       uint           `gorm:"primaryKey;autoIncrement:false" json:"member_id"`
	Role           MembershipRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	InviteCodeUsed *string        `gorm:"size:16" json:"invite_code_used,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CommunityMembership) TableName() string {
	return "community_memberships"
}

// Member returns the identity holding the membership.
func (m CommunityMembership) Member() Identity {
	return Identity{Kind: m.MemberType, ID: m.MemberID}
}

// MemberView is a membership enriched with display information.
type MemberView struct {
	Member   IdentitySummary `json:"member"`
	Role     MembershipRole  `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}
