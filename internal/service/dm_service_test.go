package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"assibucks/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMService_ConversationIsOnePerPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	h := f.human(t, "hotel")
	// Same numeric id, different kinds: still two distinct identities.
	require.Equal(t, a.ID, h.ID)

	first, created, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(h), "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.ConversationStatusPending, first.Status)

	again, created, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(h), "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	reverse, created, err := f.dmSvc.GetOrCreateConversation(ctx, h, ref(a), "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, reverse.ID)

	_, _, err = f.dmSvc.GetOrCreateConversation(ctx, a, ref(a), "")
	requireCode(t, err, models.CodeValidation)
}

func TestDMService_PendingConversationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	b := f.agent(t, "bravo")
	outsider := f.agent(t, "charlie")

	conv, _, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(b), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "hello there", conv.LastMessagePreview)
	require.NotNil(t, conv.LastMessageAt)

	_, err = f.dmSvc.SendMessage(ctx, a, conv.ID, "follow up")
	require.NoError(t, err)

	_, err = f.dmSvc.SendMessage(ctx, b, conv.ID, "reply")
	requireCode(t, err, models.CodeForbidden)

	_, err = f.dmSvc.SendMessage(ctx, outsider, conv.ID, "hi")
	requireCode(t, err, models.CodeForbidden)

	_, err = f.dmSvc.AcceptConversation(ctx, a, conv.ID)
	requireCode(t, err, models.CodeForbidden)

	accepted, err := f.dmSvc.AcceptConversation(ctx, b, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationStatusAccepted, accepted.Status)
	assert.True(t, accepted.IsAccepted)

	_, err = f.dmSvc.AcceptConversation(ctx, b, conv.ID)
	requireCode(t, err, models.CodeConflict)

	_, err = f.dmSvc.SendMessage(ctx, b, conv.ID, "reply")
	require.NoError(t, err)
}

func TestDMService_DeclinedConversationIsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	b := f.human(t, "bravo")

	conv, _, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(b), "hi")
	require.NoError(t, err)
	_, err = f.dmSvc.DeclineConversation(ctx, b, conv.ID)
	require.NoError(t, err)

	_, err = f.dmSvc.SendMessage(ctx, a, conv.ID, "please")
	requireCode(t, err, models.CodeForbidden)

	views, err := f.dmSvc.ListConversations(ctx, a, Page{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].CanReply)
}

func TestDMService_RespondOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	b := f.human(t, "bravo")

	conv, _, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(b), "")
	require.NoError(t, err)

	_, err = f.dmSvc.AcceptConversation(ctx, b, 9999)
	requireCode(t, err, models.CodeNotFound)

	accepted, err := f.dmSvc.AcceptConversation(ctx, b, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationStatusAccepted, accepted.Status)

	_, err = f.dmSvc.DeclineConversation(ctx, b, conv.ID)
	requireCode(t, err, models.CodeConflict)

	var stored models.DMConversation
	require.NoError(t, f.db.First(&stored, conv.ID).Error)
	assert.Equal(t, models.ConversationStatusAccepted, stored.Status)
	assert.True(t, stored.IsAccepted)
}

func TestDMService_BlocksApplyBothWays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	b := f.agent(t, "bravo")

	conv, _, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(b), "")
	require.NoError(t, err)
	_, err = f.dmSvc.AcceptConversation(ctx, b, conv.ID)
	require.NoError(t, err)

	_, err = f.dmSvc.Block(ctx, a, ref(b))
	require.NoError(t, err)
	_, err = f.dmSvc.Block(ctx, a, ref(b))
	require.NoError(t, err)

	_, err = f.dmSvc.SendMessage(ctx, b, conv.ID, "hey")
	requireCode(t, err, models.CodeForbidden)
	_, err = f.dmSvc.SendMessage(ctx, a, conv.ID, "hey")
	requireCode(t, err, models.CodeForbidden)
	_, _, err = f.dmSvc.GetOrCreateConversation(ctx, b, ref(a), "")
	requireCode(t, err, models.CodeForbidden)

	blocked, err := f.dmSvc.IsBlocked(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocks, err := f.dmSvc.ListBlocks(ctx, a)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "bravo", blocks[0].Identity.Name)

	requireCode(t, f.dmSvc.Unblock(ctx, b, ref(a)), models.CodeNotFound)
	require.NoError(t, f.dmSvc.Unblock(ctx, a, ref(b)))

	_, err = f.dmSvc.SendMessage(ctx, b, conv.ID, "hey")
	require.NoError(t, err)

	_, err = f.dmSvc.Block(ctx, a, ref(a))
	requireCode(t, err, models.CodeValidation)
}

func TestDMService_UnreadCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	b := f.agent(t, "bravo")

	conv, _, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(b), "one")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.dmSvc.SendMessage(ctx, a, conv.ID, "two")
	require.NoError(t, err)

	views, err := f.dmSvc.ListConversations(ctx, b, Page{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].UnreadCount)
	assert.Equal(t, "alpha", views[0].OtherParticipant.Name)
	assert.False(t, views[0].CanReply)

	views, err = f.dmSvc.ListConversations(ctx, a, Page{})
	require.NoError(t, err)
	assert.Zero(t, views[0].UnreadCount)
	assert.True(t, views[0].CanReply)

	require.NoError(t, f.dmSvc.MarkRead(ctx, b, conv.ID))
	views, err = f.dmSvc.ListConversations(ctx, b, Page{})
	require.NoError(t, err)
	assert.Zero(t, views[0].UnreadCount)

	msgs, err := f.dmSvc.ListMessages(ctx, b, conv.ID, Page{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
}

func TestDMService_EditAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.agent(t, "alpha")
	b := f.agent(t, "bravo")

	conv, _, err := f.dmSvc.GetOrCreateConversation(ctx, a, ref(b), "")
	require.NoError(t, err)

	_, err = f.dmSvc.SendMessage(ctx, a, conv.ID, "   ")
	requireCode(t, err, models.CodeValidation)
	_, err = f.dmSvc.SendMessage(ctx, a, conv.ID, strings.Repeat("x", MaxDMContentLength+1))
	requireCode(t, err, models.CodeValidation)

	msg, err := f.dmSvc.SendMessage(ctx, a, conv.ID, "typo")
	require.NoError(t, err)

	_, err = f.dmSvc.EditMessage(ctx, b, msg.ID, "hijack")
	requireCode(t, err, models.CodeForbidden)

	edited, err := f.dmSvc.EditMessage(ctx, a, msg.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	require.NotNil(t, edited.EditedAt)

	_, err = f.dmSvc.DeleteMessage(ctx, b, msg.ID)
	requireCode(t, err, models.CodeForbidden)

	deleted, err := f.dmSvc.DeleteMessage(ctx, a, msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, models.DeletedMessagePlaceholder, deleted.Content)

	again, err := f.dmSvc.DeleteMessage(ctx, a, msg.ID)
	require.NoError(t, err)
	assert.True(t, again.IsDeleted)

	_, err = f.dmSvc.EditMessage(ctx, a, msg.ID, "resurrect")
	requireCode(t, err, models.CodeValidation)
}
