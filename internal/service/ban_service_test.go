package service

import (
	"context"
	"testing"
	"time"

	"assibucks/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanService_RoleHierarchy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	mod1 := f.agent(t, "mod1")
	mod2 := f.agent(t, "mod2")
	member := f.human(t, "member")
	c := f.community(t, owner, "guild", models.VisibilityPublic)
	f.join(t, c.ID, mod1, models.RoleModerator)
	f.join(t, c.ID, mod2, models.RoleModerator)
	f.join(t, c.ID, member, models.RoleMember)

	_, err := f.banSvc.CreateBan(ctx, mod1, c.ID, ref(mod2), "", nil)
	requireCode(t, err, models.CodeForbidden)

	_, err = f.banSvc.CreateBan(ctx, mod1, c.ID, ref(owner), "", nil)
	requireCode(t, err, models.CodeForbidden)

	_, err = f.banSvc.CreateBan(ctx, owner, c.ID, ref(owner), "", nil)
	requireCode(t, err, models.CodeValidation)

	_, err = f.banSvc.CreateBan(ctx, member, c.ID, ref(mod1), "", nil)
	requireCode(t, err, models.CodeForbidden)

	_, err = f.banSvc.CreateBan(ctx, owner, c.ID, ref(mod2), "rude", nil)
	require.NoError(t, err)

	err = f.communities.RemoveMember(ctx, mod1, c.ID, ref(owner))
	requireCode(t, err, models.CodeForbidden)

	require.NoError(t, f.communities.RemoveMember(ctx, mod1, c.ID, ref(member)))
}

func TestBanService_CreateBanValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	c := f.community(t, owner, "guild", models.VisibilityPublic)

	_, err := f.banSvc.CreateBan(ctx, owner, c.ID, IdentityRef{Kind: models.IdentityKindAgent, Name: "ghost"}, "", nil)
	requireCode(t, err, models.CodeNotFound)

	target := f.agent(t, "target")
	_, err = f.banSvc.CreateBan(ctx, owner, c.ID, ref(target), "", intPtr(0))
	requireCode(t, err, models.CodeValidation)
	_, err = f.banSvc.CreateBan(ctx, owner, c.ID, ref(target), "", intPtr(3651))
	requireCode(t, err, models.CodeValidation)
}

// A restricted-community member is banned for 7 days, loses membership, and after the ban
// lapses can view again but must rejoin before posting.
func TestBanService_BanThenExpiryRequiresRejoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	mod := f.agent(t, "mod")
	x := f.agent(t, "xagent")
	c := f.community(t, owner, "salon", models.VisibilityRestricted)
	f.join(t, c.ID, mod, models.RoleModerator)
	f.join(t, c.ID, x, models.RoleMember)

	_, err := f.postSvc.CreatePost(ctx, x, c.ID, "hello", "first post")
	require.NoError(t, err)

	ban, err := f.banSvc.CreateBan(ctx, mod, c.ID, ref(x), "spam", intPtr(7))
	require.NoError(t, err)
	require.NotNil(t, ban.ExpiresAt)
	assert.False(t, ban.IsPermanent)
	assert.True(t, ban.ExpiresAt.Equal(f.clock.Now().AddDate(0, 0, 7)))

	membership, err := f.memberships.Get(ctx, c.ID, x)
	require.NoError(t, err)
	assert.Nil(t, membership)

	_, err = f.postSvc.CreatePost(ctx, x, c.ID, "again", "")
	requireCode(t, err, models.CodeForbidden)
	assert.Contains(t, err.Error(), "You are banned from this community: spam")

	f.clock.Advance(7*24*time.Hour + time.Minute)

	view, err := f.access.CheckAccess(ctx, c.ID, &x, AccessView)
	require.NoError(t, err)
	assert.True(t, view.Allowed)

	post, err := f.access.CheckAccess(ctx, c.ID, &x, AccessPost)
	require.NoError(t, err)
	assert.False(t, post.Allowed)
	assert.False(t, post.IsMember)
}

func TestBanService_ListAndLift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	a := f.agent(t, "alpha")
	b := f.human(t, "bravo")
	c := f.community(t, owner, "guild", models.VisibilityPublic)

	_, err := f.banSvc.CreateBan(ctx, owner, c.ID, ref(a), "one", nil)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.banSvc.CreateBan(ctx, owner, c.ID, ref(b), "two", intPtr(3))
	require.NoError(t, err)

	views, err := f.banSvc.ListBans(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "bravo", views[0].Target.Name)
	assert.Equal(t, "alpha", views[1].Target.Name)
	assert.Equal(t, "owner", views[0].BannedBy.Name)

	_, err = f.banSvc.ListBans(ctx, a, c.ID)
	requireCode(t, err, models.CodeForbidden)

	require.NoError(t, f.banSvc.LiftBan(ctx, owner, c.ID, ref(a)))
	requireCode(t, f.banSvc.LiftBan(ctx, owner, c.ID, ref(a)), models.CodeNotFound)

	res, err := f.access.CheckAccess(ctx, c.ID, &a, AccessPost)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
