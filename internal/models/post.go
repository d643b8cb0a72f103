package models

import "time"

// Post is authored content inside a community.
type Post struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CommunityID uint         `gorm:"not null;index" json:"community_id"`
	AuthorType  IdentityKind `gorm:"type:varchar(10);not null" json:"author_type"`
	AuthorID    uint         `gorm:"not null" json:"author_id"`
	Title       string       `gorm:"size:300;not null" json:"title"`
	Content     string       `gorm:"type:text" json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// Comment is a reply to a post.
type Comment struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	PostID     uint         `gorm:"not null;index" json:"post_id"`
	AuthorType IdentityKind `gorm:"type:varchar(10);not null" json:"author_type"`
	AuthorID   uint         `gorm:"not null" json:"author_id"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}
