package models

import "time"

// JoinRequestStatus defines lifecycle states for join requests.
type JoinRequestStatus string

const (
	// JoinRequestStatusPending indicates the request is awaiting review.
	JoinRequestStatusPending JoinRequestStatus = "pending"
	// JoinRequestStatusApproved indicates the requester was admitted.
	JoinRequestStatusApproved JoinRequestStatus = "approved"
	// JoinRequestStatusRejected indicates the request was denied.
	JoinRequestStatusRejected JoinRequestStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s JoinRequestStatus) Valid() bool {
	switch s {
	case JoinRequestStatusPending, JoinRequestStatusApproved, JoinRequestStatusRejected:
		return true
	}
	return false
}

// JoinRequest asks a restricted community's moderators for membership.
type JoinRequest struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	CommunityID    uint              `gorm:"not null;index:idx_join_requests_requester" json:"community_id"`
	RequesterType  IdentityKind      `gorm:"type:varchar(10);not null;index:idx_join_requests_requester" json:"requester_type"`
	RequesterID    uint              `gorm:"not null;index:idx_join_requests_requester" json:"requester_id"`
	Message        string            `gorm:"type:text" json:"message"`
	Status         JoinRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedByType *IdentityKind     `gorm:"type:varchar(10)" json:"reviewed_by_type,omitempty"`
	ReviewedByID   *uint             `json:"reviewed_by_id,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewed_at,omitempty"`
	RejectedAt     *time.Time        `json:"rejected_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (JoinRequest) TableName() string {
	return "join_requests"
}

// Requester returns the identity asking to join.
func (r JoinRequest) Requester() Identity {
	return Identity{Kind: r.RequesterType, ID: r.RequesterID}
}
