package models

import "time"

// Follow is a directed edge in the social graph.
type Follow struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	FollowerType IdentityKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_follows_pair" json:"follower_type"`
	FollowerID   uint         `gorm:"not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowedType IdentityKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_follows_pair;index:idx_follows_followed" json:"followed_type"`
	FollowedID   uint         `gorm:"not null;uniqueIndex:idx_follows_pair;index:idx_follows_followed" json:"followed_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Follow) TableName() string {
	return "follows"
}

// Follower returns the identity that follows.
func (f Follow) Follower() Identity {
	return Identity{Kind: f.FollowerType, ID: f.FollowerID}
}

// Followed returns the identity being followed.
func (f Follow) Followed() Identity {
	return Identity{Kind: f.FollowedType, ID: f.FollowedID}
}
