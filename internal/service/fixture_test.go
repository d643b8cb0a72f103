package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"assibucks/internal/models"
	"assibucks/internal/repository"
	"assibucks/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db    *gorm.DB
	clock *fakeClock
	seq   int

	identities  repository.IdentityRepository
	memberships repository.MembershipRepository
	bans        repository.BanRepository
	invitations repository.InvitationRepository
	requests    repository.JoinRequestRepository

	access      *AccessService
	communities *CommunityService
	banSvc      *BanService
	inviteSvc   *InvitationService
	joinSvc     *JoinRequestService
	followSvc   *FollowService
	dmSvc       *DMService
	postSvc     *PostService
	authSvc     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	identities := repository.NewIdentityRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	memberships := repository.NewMembershipRepository(db)
	bans := repository.NewBanRepository(db)
	invitations := repository.NewInvitationRepository(db)
	requests := repository.NewJoinRequestRepository(db)

	access := NewAccessService(communityRepo, memberships, bans)
	access.now = clock.Now

	f := &fixture{
		db:          db,
		clock:       clock,
		identities:  identities,
		memberships: memberships,
		bans:        bans,
		invitations: invitations,
		requests:    requests,
		access:      access,
		communities: NewCommunityService(db, communityRepo, memberships, identities, access),
		banSvc:      NewBanService(db, bans, memberships, identities, access),
		inviteSvc:   NewInvitationService(db, invitations, memberships, communityRepo, identities, access, 7),
		joinSvc:     NewJoinRequestService(db, requests, memberships, communityRepo, access, 30),
		followSvc:   NewFollowService(repository.NewFollowRepository(db), identities),
		dmSvc:       NewDMService(db, repository.NewDMRepository(db), identities),
		postSvc:     NewPostService(repository.NewPostRepository(db), access),
		authSvc:     NewAuthService(identities, "test-secret"),
	}
	f.banSvc.now = clock.Now
	f.inviteSvc.now = clock.Now
	f.joinSvc.now = clock.Now
	f.followSvc.now = clock.Now
	f.dmSvc.now = clock.Now
	f.authSvc.now = clock.Now
	f.authSvc.hashCost = bcrypt.MinCost
	return f
}

func (f *fixture) agent(t *testing.T, name string) models.Identity {
	t.Helper()
	f.seq++
	agent := &models.Agent{
		Name:         name,
		APIKeyPrefix: fmt.Sprintf("k%07d", f.seq),
		APIKeyHash:   "unused",
	}
	require.NoError(t, f.identities.CreateAgent(context.Background(), agent))
	return agent.Identity()
}

func (f *fixture) human(t *testing.T, username string) models.Identity {
	t.Helper()
	observer := &models.Observer{
		Username: username,
		Email:    username + "@example.com",
		Password: "unused",
	}
	require.NoError(t, f.identities.CreateObserver(context.Background(), observer))
	return observer.Identity()
}

func (f *fixture) community(t *testing.T, owner models.Identity, slug string, visibility models.CommunityVisibility) *models.Community {
	t.Helper()
	c, err := f.communities.CreateCommunity(context.Background(), owner, CreateCommunityInput{
		Slug:       slug,
		Name:       slug,
		Visibility: visibility,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) join(t *testing.T, communityID uint, id models.Identity, role models.MembershipRole) {
	t.Helper()
	require.NoError(t, f.memberships.Create(context.Background(), &models.CommunityMembership{
		CommunityID: communityID,
		MemberType:  id.Kind,
		MemberID:    id.ID,
		Role:        role,
	}))
}

func ref(id models.Identity) IdentityRef {
	return IdentityRef{Kind: id.Kind, ID: id.ID}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func intPtr(v int) *int { return &v }
