// Package seed provides helpers to create demo data for development and tests.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"assibucks/internal/middleware"
	"assibucks/internal/models"
	"assibucks/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultObserverPassword is the password given to every seeded observer.
const DefaultObserverPassword = "Seeded-Passw0rd!"

// SeedOptions tune how factories build rows.
type SeedOptions struct {
	// SkipBcrypt stores a cheap placeholder hash; seeded credentials then cannot authenticate.
	SkipBcrypt bool
	// MaxDays spreads post timestamps over this many past days.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed))}
}

func (f *Factory) hash(secret string) (string, error) {
	if f.opts.SkipBcrypt {
		return "seed-placeholder", nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CreateAgent persists an agent with a fake handle and returns it with its API key.
// The key is empty when SkipBcrypt is set.
func (f *Factory) CreateAgent(overrides ...func(*models.Agent)) (*models.Agent, string, error) {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := f.hash(secret)
	if err != nil {
		return nil, "", err
	}

	agent := &models.Agent{
		Name:         agentHandle(gofakeit.Username(), gofakeit.Number(100, 999)),
		DisplayName:  gofakeit.AppName(),
		Description:  gofakeit.Sentence(10),
		APIKeyPrefix: prefix,
		APIKeyHash:   hash,
	}
	for _, override := range overrides {
		override(agent)
	}
	if err := validation.ValidateAgentName(agent.Name); err != nil {
		return nil, "", fmt.Errorf("agent %q: %w", agent.Name, err)
	}
	if err := f.db.Create(agent).Error; err != nil {
		return nil, "", err
	}

	key := ""
	if !f.opts.SkipBcrypt {
		key = middleware.APIKeyPrefix + prefix + "_" + secret
	}
	return agent, key, nil
}

// CreateObserver persists a human observer whose password is DefaultObserverPassword.
func (f *Factory) CreateObserver(overrides ...func(*models.Observer)) (*models.Observer, error) {
	hash, err := f.hash(DefaultObserverPassword)
	if err != nil {
		return nil, err
	}
	observer := &models.Observer{
		Username:    agentHandle(gofakeit.FirstName(), gofakeit.Number(100, 999)),
		Email:       strings.ToLower(gofakeit.Email()),
		Password:    hash,
		DisplayName: gofakeit.Name(),
	}
	for _, override := range overrides {
		override(observer)
	}
	if err := f.db.Create(observer).Error; err != nil {
		return nil, err
	}
	return observer, nil
}

// CreateCommunity persists a community together with its owner membership.
func (f *Factory) CreateCommunity(owner models.Identity, overrides ...func(*models.Community)) (*models.Community, error) {
	community := &models.Community{
		Slug:        communitySlug(gofakeit.Word(), gofakeit.Number(10, 99)),
		Name:        gofakeit.Company(),
		Description: gofakeit.Sentence(12),
		Visibility:  models.VisibilityPublic,
		CreatorType: owner.Kind,
		CreatorID:   owner.ID,
	}
	for _, override := range overrides {
		override(community)
	}
	if err := validation.ValidateCommunitySlug(community.Slug); err != nil {
		return nil, fmt.Errorf("community %q: %w", community.Slug, err)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		return tx.Create(&models.CommunityMembership{
			CommunityID: community.ID,
			MemberType:  owner.Kind,
			MemberID:    owner.ID,
			Role:        models.RoleOwner,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

// AddMember inserts a membership with the given role.
func (f *Factory) AddMember(communityID uint, member models.Identity, role models.MembershipRole) error {
	return f.db.Create(&models.CommunityMembership{
		CommunityID: communityID,
		MemberType:  member.Kind,
		MemberID:    member.ID,
		Role:        role,
	}).Error
}

// CreatePost persists a post with a created_at spread over the configured window.
func (f *Factory) CreatePost(communityID uint, author models.Identity, overrides ...func(*models.Post)) (*models.Post, error) {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	post := &models.Post{
		CommunityID: communityID,
		AuthorType:  author.Kind,
		AuthorID:    author.ID,
		Title:       gofakeit.Sentence(5),
		Content:     gofakeit.Paragraph(1, 3, 5, "\n"),
		CreatedAt:   time.Now().Add(-back),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// agentHandle turns arbitrary fake text into a valid agent or observer handle.
func agentHandle(base string, suffix int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, base)
	if len(cleaned) > 24 {
		cleaned = cleaned[:24]
	}
	if cleaned == "" {
		cleaned = "agent"
	}
	return fmt.Sprintf("%s_%d", strings.ToLower(cleaned), suffix)
}

func communitySlug(word string, suffix int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.ToLower(word))
	if len(cleaned) > 20 {
		cleaned = cleaned[:20]
	}
	if cleaned == "" {
		cleaned = "hub"
	}
	return fmt.Sprintf("%s-%d", cleaned, suffix)
}
