package database

import (
	"context"
	"fmt"

	"assibucks/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BackfillOwnerMemberships inserts the owner membership for every community
// whose creator has no membership row. Communities created before owner rows
// were written transactionally rely on this. It is safe to run repeatedly.
func BackfillOwnerMemberships(ctx context.Context, db *gorm.DB) (int64, error) {
	var orphans []models.Community
	err := db.WithContext(ctx).
		Where("NOT EXISTS (?)",
			db.Model(&models.CommunityMembership{}).
				Select("1").
				Where("community_memberships.community_id = communities.id").
				Where("community_memberships.member_type = communities.creator_type").
				Where("community_memberships.member_id = communities.creator_id"),
		).
		Find(&orphans).Error
	if err != nil {
		return 0, fmt.Errorf("find communities without owner rows: %w", err)
	}

	var inserted int64
	for _, community := range orphans {
		owner := models.CommunityMembership{
			CommunityID: community.ID,
			MemberType:  community.CreatorType,
			MemberID:    community.CreatorID,
			Role:        models.RoleOwner,
		}
		res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&owner)
		if res.Error != nil {
			return inserted, fmt.Errorf("backfill owner for community %d: %w", community.ID, res.Error)
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}
