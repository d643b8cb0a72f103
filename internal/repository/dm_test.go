package repository

import (
	"context"
	"testing"
	"time"

	"assibucks/internal/models"
	"assibucks/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMRepository_UnreadCounterLifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewDMRepository(db)
	ctx := context.Background()

	alice, bob := models.AgentIdentity(1), models.HumanIdentity(1)
	p1, p2 := models.CanonicalPair(alice, bob)
	conv := &models.DMConversation{
		Participant1Type: p1.Kind, Participant1ID: p1.ID,
		Participant2Type: p2.Kind, Participant2ID: p2.ID,
		InitiatorType: alice.Kind, InitiatorID: alice.ID,
		Status: models.ConversationStatusPending,
	}
	require.NoError(t, repo.CreateConversation(ctx, conv))
	require.NoError(t, repo.EnsureReadStatus(ctx, conv.ID, alice))
	require.NoError(t, repo.EnsureReadStatus(ctx, conv.ID, alice))

	require.NoError(t, repo.IncrementUnread(ctx, conv.ID, bob))
	require.NoError(t, repo.IncrementUnread(ctx, conv.ID, bob))

	counts, err := repo.UnreadCounts(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[conv.ID])

	require.NoError(t, repo.ResetUnread(ctx, conv.ID, bob, time.Now().UTC()))
	counts, err = repo.UnreadCounts(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[conv.ID])

	found, err := repo.FindConversation(ctx, bob, alice)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, conv.ID, found.ID)

	err = repo.CreateConversation(ctx, &models.DMConversation{
		Participant1Type: p1.Kind, Participant1ID: p1.ID,
		Participant2Type: p2.Kind, Participant2ID: p2.ID,
		InitiatorType: bob.Kind, InitiatorID: bob.ID,
	})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestDMRepository_BlocksAreSymmetricOnRead(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewDMRepository(db)
	ctx := context.Background()

	a, b := models.AgentIdentity(3), models.AgentIdentity(4)
	block := &models.DMBlock{BlockerType: a.Kind, BlockerID: a.ID, BlockedType: b.Kind, BlockedID: b.ID}
	require.NoError(t, repo.CreateBlock(ctx, block))
	require.NoError(t, repo.CreateBlock(ctx, &models.DMBlock{BlockerType: a.Kind, BlockerID: a.ID, BlockedType: b.Kind, BlockedID: b.ID}))

	blocked, err := repo.IsBlocked(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, blocked)

	list, err := repo.ListBlocks(ctx, a)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := repo.DeleteBlock(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, removed)

	blocked, err = repo.IsBlocked(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, blocked)
}
