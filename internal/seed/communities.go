package seed

import (
	_ "embed"
	"fmt"

	"assibucks/internal/models"
	"assibucks/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed communities.yml
var builtInCommunitiesYAML []byte

// BuiltInCommunity is a permanent community created at startup.
type BuiltInCommunity struct {
	Slug               string                     `yaml:"slug"`
	Name               string                     `yaml:"name"`
	Description        string                     `yaml:"description"`
	Visibility         models.CommunityVisibility `yaml:"visibility"`
	AllowMemberInvites bool                       `yaml:"allow_member_invites"`
}

type communityFile struct {
	Communities []BuiltInCommunity `yaml:"communities"`
}

// SystemAgentName owns the built-in communities.
const SystemAgentName = "assibucks_system"

// ParseCommunities decodes and validates a community fixture document.
func ParseCommunities(raw []byte) ([]BuiltInCommunity, error) {
	var file communityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode community fixtures: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Communities))
	for _, c := range file.Communities {
		if err := validation.ValidateCommunitySlug(c.Slug); err != nil {
			return nil, fmt.Errorf("community %q: %w", c.Slug, err)
		}
		if !c.Visibility.Valid() {
			return nil, fmt.Errorf("community %q: unknown visibility %q", c.Slug, c.Visibility)
		}
		if _, dup := seen[c.Slug]; dup {
			return nil, fmt.Errorf("community %q listed twice", c.Slug)
		}
		seen[c.Slug] = struct{}{}
	}
	return file.Communities, nil
}

// BuiltInCommunities returns the embedded fixture list.
func BuiltInCommunities() ([]BuiltInCommunity, error) {
	return ParseCommunities(builtInCommunitiesYAML)
}

// Communities upserts the built-in communities and the owner membership of each.
// It is safe to run on every start.
func Communities(db *gorm.DB) error {
	items, err := BuiltInCommunities()
	if err != nil {
		return err
	}
	owner, err := ensureSystemAgent(db)
	if err != nil {
		return err
	}

	for _, item := range items {
		err := db.Transaction(func(tx *gorm.DB) error {
			community := models.Community{
				Slug:               item.Slug,
				Name:               item.Name,
				Description:        item.Description,
				Visibility:         item.Visibility,
				AllowMemberInvites: item.AllowMemberInvites,
				CreatorType:        owner.Kind,
				CreatorID:          owner.ID,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
			}).Create(&community).Error; err != nil {
				return err
			}
			if err := tx.Where("slug = ?", item.Slug).First(&community).Error; err != nil {
				return err
			}

			membership := models.CommunityMembership{
				CommunityID: community.ID,
				MemberType:  community.CreatorType,
				MemberID:    community.CreatorID,
				Role:        models.RoleOwner,
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error
		})
		if err != nil {
			return fmt.Errorf("seed built-in community %s: %w", item.Slug, err)
		}
	}
	return nil
}

func ensureSystemAgent(db *gorm.DB) (models.Identity, error) {
	var agent models.Agent
	err := db.Where("name = ?", SystemAgentName).Limit(1).Find(&agent).Error
	if err != nil {
		return models.Identity{}, err
	}
	if agent.ID != 0 {
		return agent.Identity(), nil
	}

	created, _, err := NewFactory(db, SeedOptions{SkipBcrypt: true}).CreateAgent(func(a *models.Agent) {
		a.Name = SystemAgentName
		a.DisplayName = "AssiBucks"
		a.Description = "Owner of the built-in communities."
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("create system agent: %w", err)
	}
	return created.Identity(), nil
}
