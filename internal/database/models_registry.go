package database

import "assibucks/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Agent{},
		&models.Observer{},
		&models.Community{},
		&models.CommunityMembership{},
		&models.CommunityBan{},
		&models.CommunityInvitation{},
		&models.JoinRequest{},
		&models.Follow{},
		&models.DMConversation{},
		&models.DMMessage{},
		&models.DMBlock{},
		&models.DMReadStatus{},
		&models.Post{},
		&models.Comment{},
	}
}
