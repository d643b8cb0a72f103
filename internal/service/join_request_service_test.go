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

func TestJoinRequestService_OnlyRestrictedCommunities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	x := f.human(t, "xhuman")
	public := f.community(t, owner, "plaza", models.VisibilityPublic)
	private := f.community(t, owner, "hideout", models.VisibilityPrivate)
	restricted := f.community(t, owner, "salon", models.VisibilityRestricted)

	_, err := f.joinSvc.CreateJoinRequest(ctx, x, public.ID, "")
	requireCode(t, err, models.CodeValidation)

	_, err = f.joinSvc.CreateJoinRequest(ctx, x, private.ID, "")
	requireCode(t, err, models.CodeForbidden)

	_, err = f.joinSvc.CreateJoinRequest(ctx, x, restricted.ID, strings.Repeat("a", MaxJoinRequestMessageLength+1))
	requireCode(t, err, models.CodeValidation)

	req, err := f.joinSvc.CreateJoinRequest(ctx, x, restricted.ID, "  let me in  ")
	require.NoError(t, err)
	assert.Equal(t, "let me in", req.Message)
	assert.Equal(t, models.JoinRequestStatusPending, req.Status)

	_, err = f.joinSvc.CreateJoinRequest(ctx, x, restricted.ID, "again")
	requireCode(t, err, models.CodeConflict)

	_, err = f.joinSvc.CreateJoinRequest(ctx, owner, restricted.ID, "")
	requireCode(t, err, models.CodeConflict)
}

func TestJoinRequestService_ApproveAddsMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	mod := f.agent(t, "mod")
	member := f.agent(t, "member")
	x := f.human(t, "xhuman")
	c := f.community(t, owner, "salon", models.VisibilityRestricted)
	f.join(t, c.ID, mod, models.RoleModerator)
	f.join(t, c.ID, member, models.RoleMember)

	req, err := f.joinSvc.CreateJoinRequest(ctx, x, c.ID, "hi")
	require.NoError(t, err)

	_, err = f.joinSvc.ReviewJoinRequest(ctx, member, c.ID, req.ID, models.JoinRequestStatusApproved)
	requireCode(t, err, models.CodeForbidden)

	_, err = f.joinSvc.ReviewJoinRequest(ctx, mod, c.ID, req.ID, models.JoinRequestStatusPending)
	requireCode(t, err, models.CodeValidation)

	page, err := f.joinSvc.ListJoinRequests(ctx, mod, c.ID, "", Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Requests, 1)

	reviewed, err := f.joinSvc.ReviewJoinRequest(ctx, mod, c.ID, req.ID, models.JoinRequestStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedByID)
	assert.Equal(t, mod.ID, *reviewed.ReviewedByID)
	assert.Nil(t, reviewed.RejectedAt)

	m, err := f.memberships.Get(ctx, c.ID, x)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoleMember, m.Role)

	_, err = f.joinSvc.ReviewJoinRequest(ctx, mod, c.ID, req.ID, models.JoinRequestStatusRejected)
	requireCode(t, err, models.CodeConflict)

	other := f.community(t, owner, "lounge", models.VisibilityRestricted)
	_, err = f.joinSvc.ReviewJoinRequest(ctx, owner, other.ID, req.ID, models.JoinRequestStatusApproved)
	requireCode(t, err, models.CodeNotFound)
}

func TestJoinRequestService_ReviewChecksPermissionFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	outsider := f.agent(t, "outsider")
	x := f.human(t, "xhuman")
	c := f.community(t, owner, "salon", models.VisibilityRestricted)
	other := f.community(t, outsider, "lounge", models.VisibilityRestricted)

	req, err := f.joinSvc.CreateJoinRequest(ctx, x, c.ID, "")
	require.NoError(t, err)

	// Existing, foreign and missing request ids all look the same to a non-moderator.
	_, err = f.joinSvc.ReviewJoinRequest(ctx, outsider, c.ID, req.ID, models.JoinRequestStatusApproved)
	requireCode(t, err, models.CodeForbidden)
	_, err = f.joinSvc.ReviewJoinRequest(ctx, outsider, c.ID, req.ID+100, models.JoinRequestStatusApproved)
	requireCode(t, err, models.CodeForbidden)
	_, err = f.joinSvc.ReviewJoinRequest(ctx, x, other.ID, req.ID, models.JoinRequestStatusApproved)
	requireCode(t, err, models.CodeForbidden)
}

func TestJoinRequestService_RejectionCooldownBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	x := f.human(t, "xhuman")
	c := f.community(t, owner, "salon", models.VisibilityRestricted)

	req, err := f.joinSvc.CreateJoinRequest(ctx, x, c.ID, "")
	require.NoError(t, err)
	rejectedAt := f.clock.Now()
	_, err = f.joinSvc.ReviewJoinRequest(ctx, owner, c.ID, req.ID, models.JoinRequestStatusRejected)
	require.NoError(t, err)

	f.clock.Advance(30*24*time.Hour - time.Second)
	_, err = f.joinSvc.CreateJoinRequest(ctx, x, c.ID, "")
	requireCode(t, err, models.CodeCooldownActive)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.NotNil(t, appErr.RetryAt)
	assert.True(t, appErr.RetryAt.Equal(rejectedAt.Add(30*24*time.Hour)))

	f.clock.Advance(time.Second)
	_, err = f.joinSvc.CreateJoinRequest(ctx, x, c.ID, "")
	require.NoError(t, err)

	page, err := f.joinSvc.ListJoinRequests(ctx, owner, c.ID, models.JoinRequestStatusRejected, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestJoinRequestService_BannedRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.agent(t, "owner")
	x := f.human(t, "xhuman")
	y := f.human(t, "yhuman")
	c := f.community(t, owner, "salon", models.VisibilityRestricted)

	_, err := f.banSvc.CreateBan(ctx, owner, c.ID, ref(x), "", nil)
	require.NoError(t, err)
	_, err = f.joinSvc.CreateJoinRequest(ctx, x, c.ID, "")
	requireCode(t, err, models.CodeForbidden)

	req, err := f.joinSvc.CreateJoinRequest(ctx, y, c.ID, "")
	require.NoError(t, err)
	_, err = f.banSvc.CreateBan(ctx, owner, c.ID, ref(y), "", nil)
	require.NoError(t, err)
	_, err = f.joinSvc.ReviewJoinRequest(ctx, owner, c.ID, req.ID, models.JoinRequestStatusApproved)
	requireCode(t, err, models.CodeForbidden)
}
