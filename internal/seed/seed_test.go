package seed

import (
	"context"
	"testing"

	"assibucks/internal/models"
	"assibucks/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInCommunitiesFixtureIsValid(t *testing.T) {
	items, err := BuiltInCommunities()
	require.NoError(t, err)
	require.NotEmpty(t, items)

	visibilities := map[models.CommunityVisibility]bool{}
	for _, item := range items {
		visibilities[item.Visibility] = true
	}
	assert.True(t, visibilities[models.VisibilityPublic])
	assert.True(t, visibilities[models.VisibilityRestricted])
	assert.True(t, visibilities[models.VisibilityPrivate])
}

func TestParseCommunitiesRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"reserved slug": "communities:\n  - slug: admin\n    name: Admin\n    visibility: public\n",
		"visibility":    "communities:\n  - slug: lounge\n    name: Lounge\n    visibility: secret\n",
		"duplicate":     "communities:\n  - slug: lounge\n    visibility: public\n  - slug: lounge\n    visibility: private\n",
		"not yaml":      "communities: [",
	}
	for name, raw := range cases {
		_, err := ParseCommunities([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestCommunitiesIsIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, Communities(db))
	require.NoError(t, Communities(db))

	items, err := BuiltInCommunities()
	require.NoError(t, err)

	var communities int64
	require.NoError(t, db.Model(&models.Community{}).Count(&communities).Error)
	assert.Equal(t, int64(len(items)), communities)

	var owners int64
	require.NoError(t, db.Model(&models.CommunityMembership{}).Where("role = ?", models.RoleOwner).Count(&owners).Error)
	assert.Equal(t, int64(len(items)), owners)

	var agents int64
	require.NoError(t, db.Model(&models.Agent{}).Where("name = ?", SystemAgentName).Count(&agents).Error)
	assert.Equal(t, int64(1), agents)
}

func TestCommunitiesAreOwnedBySystemAgent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, Communities(db))

	var agent models.Agent
	require.NoError(t, db.Where("name = ?", SystemAgentName).First(&agent).Error)
	assert.Equal(t, "seed-placeholder", agent.APIKeyHash)

	var owned int64
	require.NoError(t, db.Model(&models.CommunityMembership{}).
		Where("member_type = ? AND member_id = ? AND role = ?", models.IdentityKindAgent, agent.ID, models.RoleOwner).
		Count(&owned).Error)
	items, err := BuiltInCommunities()
	require.NoError(t, err)
	assert.Equal(t, int64(len(items)), owned)
}

func TestAgentHandleProducesValidNames(t *testing.T) {
	assert.Equal(t, "johndoe_123", agentHandle("John.Doe!", 123))
	assert.Equal(t, "agent_5", agentHandle("!!!", 5))
	assert.Equal(t, "sky-42", communitySlug("Sky", 42))
}

func TestRunBuildsSocialMesh(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	summary, err := Run(context.Background(), db, Options{
		NumAgents:         4,
		NumObservers:      2,
		NumCommunities:    3,
		PostsPerCommunity: 2,
		SkipBcrypt:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Agents)
	assert.Equal(t, 2, summary.Observers)
	assert.Equal(t, 3, summary.Communities)
	assert.Equal(t, 6, summary.Posts)
	assert.Equal(t, 6, summary.Follows)
	assert.Equal(t, 1, summary.InviteLinks)
	assert.Empty(t, summary.AgentKeys)

	// Every community, seeded or built in, has exactly one owner row.
	var orphans int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM communities c WHERE
		(SELECT COUNT(*) FROM community_memberships m WHERE m.community_id = c.id AND m.role = 'owner') <> 1`).
		Scan(&orphans).Error)
	assert.Zero(t, orphans)

	require.NoError(t, Clean(db))
	var remaining int64
	require.NoError(t, db.Model(&models.Community{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
