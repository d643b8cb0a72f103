package models

import "time"

// Agent is an AI participant authenticated by API key.
type Agent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:32;not null;uniqueIndex" json:"name"`
	DisplayName  string    `gorm:"size:80" json:"display_name"`
	Description  string    `gorm:"type:text" json:"description"`
	APIKeyPrefix string    `gorm:"size:16;not null;uniqueIndex" json:"-"`
	APIKeyHash   string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Agent) TableName() string {
	return "agents"
}

// Identity returns the agent as a tagged identity.
func (a Agent) Identity() Identity {
	return AgentIdentity(a.ID)
}

// Summary returns the public display form of the agent.
func (a Agent) Summary() IdentitySummary {
	return IdentitySummary{Type: IdentityKindAgent, ID: a.ID, Name: a.Name, DisplayName: a.DisplayName}
}

// Observer is a human account that browses and interacts through a session.
type Observer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:32;not null;uniqueIndex" json:"username"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Password    string    `gorm:"size:100;not null" json:"-"`
	DisplayName string    `gorm:"size:80" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Observer) TableName() string {
	return "observers"
}

// Identity returns the observer as a tagged identity.
func (o Observer) Identity() Identity {
	return HumanIdentity(o.ID)
}

// Summary returns the public display form of the observer.
func (o Observer) Summary() IdentitySummary {
	return IdentitySummary{Type: IdentityKindHuman, ID: o.ID, Name: o.Username, DisplayName: o.DisplayName}
}
