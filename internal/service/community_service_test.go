package service

import (
	"context"
	"testing"

	"assibucks/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommunityService_CreateWritesOwnerMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.human(t, "founder")

	c, err := f.communities.CreateCommunity(ctx, creator, CreateCommunityInput{Slug: "Tea-Room", Name: "Tea Room"})
	require.NoError(t, err)
	assert.Equal(t, "tea-room", c.Slug)
	assert.Equal(t, models.VisibilityPublic, c.Visibility)

	m, err := f.memberships.Get(ctx, c.ID, creator)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoleOwner, m.Role)

	_, err = f.communities.CreateCommunity(ctx, creator, CreateCommunityInput{Slug: "tea-room", Name: "Again"})
	requireCode(t, err, models.CodeConflict)

	_, err = f.communities.CreateCommunity(ctx, creator, CreateCommunityInput{Slug: "admin", Name: "Nope"})
	requireCode(t, err, models.CodeValidation)
}

func TestCommunityService_JoinLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	joiner := f.agent(t, "joiner")
	public := f.community(t, owner, "plaza", models.VisibilityPublic)
	restricted := f.community(t, owner, "salon", models.VisibilityRestricted)

	_, err := f.communities.JoinPublic(ctx, joiner, public.ID)
	require.NoError(t, err)
	_, err = f.communities.JoinPublic(ctx, joiner, public.ID)
	requireCode(t, err, models.CodeConflict)

	_, err = f.communities.JoinPublic(ctx, joiner, restricted.ID)
	requireCode(t, err, models.CodeForbidden)

	require.NoError(t, f.communities.Leave(ctx, joiner, public.ID))
	requireCode(t, f.communities.Leave(ctx, joiner, public.ID), models.CodeNotFound)
	requireCode(t, f.communities.Leave(ctx, owner, public.ID), models.CodeValidation)
}

func TestCommunityService_OnlyOwnerChangesRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	mod := f.agent(t, "mod")
	member := f.agent(t, "member")
	c := f.community(t, owner, "plaza", models.VisibilityPublic)
	f.join(t, c.ID, mod, models.RoleModerator)
	f.join(t, c.ID, member, models.RoleMember)

	_, err := f.communities.ChangeRole(ctx, mod, c.ID, ref(member), models.RoleModerator)
	requireCode(t, err, models.CodeForbidden)

	m, err := f.communities.ChangeRole(ctx, owner, c.ID, ref(member), models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, m.Role)

	_, err = f.communities.ChangeRole(ctx, owner, c.ID, ref(owner), models.RoleMember)
	requireCode(t, err, models.CodeForbidden)

	_, err = f.communities.ChangeRole(ctx, owner, c.ID, ref(member), models.RoleOwner)
	requireCode(t, err, models.CodeValidation)

	requireCode(t, f.communities.RemoveMember(ctx, mod, c.ID, ref(member)), models.CodeForbidden)
	require.NoError(t, f.communities.RemoveMember(ctx, owner, c.ID, ref(mod)))
}

func TestCommunityService_SettingsAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	mod := f.agent(t, "mod")
	stranger := f.human(t, "stranger")
	c := f.community(t, owner, "plaza", models.VisibilityPublic)
	f.community(t, owner, "hideout", models.VisibilityPrivate)
	f.join(t, c.ID, mod, models.RoleModerator)

	private := models.VisibilityPrivate
	_, err := f.communities.UpdateSettings(ctx, mod, c.ID, CommunitySettingsInput{Visibility: &private})
	requireCode(t, err, models.CodeForbidden)

	allow := true
	updated, err := f.communities.UpdateSettings(ctx, owner, c.ID, CommunitySettingsInput{Visibility: &private, AllowMemberInvites: &allow})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPrivate, updated.Visibility)
	assert.True(t, updated.AllowMemberInvites)

	_, _, err = f.communities.GetCommunity(ctx, &stranger, "plaza")
	requireCode(t, err, models.CodeForbidden)
	_, _, err = f.communities.GetCommunity(ctx, &mod, "plaza")
	require.NoError(t, err)

	list, err := f.communities.ListCommunities(ctx, &stranger, Page{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.communities.ListCommunities(ctx, &owner, Page{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	members, err := f.communities.ListMembers(ctx, &mod, c.ID, Page{})
	require.NoError(t, err)
	require.Len(t, members, 2)
	roles := map[string]models.MembershipRole{}
	for _, m := range members {
		roles[m.Member.Name] = m.Role
	}
	assert.Equal(t, models.RoleOwner, roles["owner"])
	assert.Equal(t, models.RoleModerator, roles["mod"])

	_, err = f.communities.ListMembers(ctx, &stranger, c.ID, Page{})
	requireCode(t, err, models.CodeForbidden)
}
