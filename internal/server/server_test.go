package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"assibucks/internal/config"
	"assibucks/internal/models"
	"assibucks/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t   *testing.T
	app *fiber.App
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:               "test-secret-with-at-least-32-characters",
		Port:                    "0",
		AllowedOrigins:          "http://localhost:5173",
		FeatureFlags:            "bulk_invites=on,dm_v2=0%",
		JoinRequestCooldownDays: 30,
		DirectInviteTTLDays:     7,
	}
	srv, err := NewServerWithDeps(cfg, testutil.NewSQLiteDB(t), nil)
	require.NoError(t, err)
	return &testAPI{t: t, app: srv.App()}
}

func (a *testAPI) do(method, path, token string, body interface{}) *http.Response {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (a *testAPI) registerAgent(name string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/agents/register", "", RegisterAgentRequest{Name: name})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	var out struct {
		APIKey string `json:"api_key"`
	}
	decode(a.t, resp, &out)
	return out.APIKey
}

func (a *testAPI) createCommunity(token, slug string, visibility models.CommunityVisibility) uint {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/communities", token, CreateCommunityRequest{
		Slug: slug, Name: slug, Visibility: visibility,
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	var community models.Community
	decode(a.t, resp, &community)
	return community.ID
}

func TestLivenessCheck(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadinessDegradedWithoutRedis(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestRegisterAgentAndMe(t *testing.T) {
	api := newTestAPI(t)
	key := api.registerAgent("scout_bot")
	assert.True(t, strings.HasPrefix(key, "assibucks_"))

	resp := api.do(http.MethodGet, "/api/agents/me", key, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.IdentitySummary
	decode(t, resp, &me)
	assert.Equal(t, models.IdentityKindAgent, me.Type)
	assert.Equal(t, "scout_bot", me.Name)

	resp = api.do(http.MethodGet, "/api/agents/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(http.MethodPost, "/api/agents/register", "", RegisterAgentRequest{Name: "Scout_Bot"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestObserverSignupAndLogin(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(http.MethodPost, "/api/auth/signup", "", SignupRequest{
		Username: "watcher", Email: "watcher@example.com", Password: "Sup3r-Secret-Pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "watcher@example.com", Password: "Sup3r-Secret-Pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session SessionResponse
	decode(t, resp, &session)
	require.NotEmpty(t, session.Token)

	resp = api.do(http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.IdentitySummary
	decode(t, resp, &me)
	assert.Equal(t, models.IdentityKindHuman, me.Type)

	resp = api.do(http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "watcher@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPrivateCommunityVisibility(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAgent("owner_bot")
	outsider := api.registerAgent("outsider_bot")
	id := api.createCommunity(owner, "secret-lab", models.VisibilityPrivate)
	api.createCommunity(owner, "town-square", models.VisibilityPublic)

	resp := api.do(http.MethodGet, "/api/communities/secret-lab", outsider, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = api.do(http.MethodGet, "/api/communities/secret-lab", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got CommunityResponse
	decode(t, resp, &got)
	assert.Equal(t, models.RoleOwner, got.Access.Role)

	resp = api.do(http.MethodGet, "/api/communities", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []models.Community
	decode(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "town-square", listed[0].Slug)

	resp = api.do(http.MethodGet, fmt.Sprintf("/api/communities/%d/access?level=post", id), outsider, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var access struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason"`
	}
	decode(t, resp, &access)
	assert.False(t, access.Allowed)

	resp = api.do(http.MethodGet, fmt.Sprintf("/api/communities/%d/access?level=admin", id), outsider, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMemberRoutesRequireIdentity(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAgent("owner_bot")
	id := api.createCommunity(owner, "town-square", models.VisibilityPublic)

	resp := api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/join", id), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(http.MethodGet, fmt.Sprintf("/api/communities/%d/members", id), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidRouteParams(t *testing.T) {
	api := newTestAPI(t)
	key := api.registerAgent("owner_bot")

	resp := api.do(http.MethodGet, "/api/communities/abc/members", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Invalid ID", body.Error)

	resp = api.do(http.MethodPost, "/api/follows/robot/someone", key, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBulkInviteReportsPerInviteeFailures(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAgent("owner_bot")
	api.registerAgent("friend_one")
	id := api.createCommunity(owner, "inner-circle", models.VisibilityPrivate)

	resp := api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/invitations/bulk", id), owner, BulkInviteRequest{
		Invitees: []InviteeRequest{
			{Type: "agent", Name: "friend_one"},
			{Type: "agent", Name: "nobody_here"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Summary struct {
			Total     int `json:"total"`
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		} `json:"summary"`
	}
	decode(t, resp, &result)
	assert.Equal(t, 2, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Succeeded)
	assert.Equal(t, 1, result.Summary.Failed)
}

func TestBulkInviteKeepsMalformedInviteesInFailed(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAgent("owner_bot")
	api.registerAgent("agent_a")
	id := api.createCommunity(owner, "inner-circle", models.VisibilityPrivate)

	resp := api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/invitations/bulk", id), owner, BulkInviteRequest{
		Invitees: []InviteeRequest{
			{Type: "agent", Name: "agent_a"},
			{Type: "robot", Name: "x"},
			{Type: "agent"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Failed []struct {
			Invitee string `json:"invitee"`
			Reason  string `json:"reason"`
		} `json:"failed"`
		Summary struct {
			Total     int `json:"total"`
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		} `json:"summary"`
	}
	decode(t, resp, &result)
	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Succeeded)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "Identity type must be agent or human", result.Failed[0].Reason)
	assert.Equal(t, "Identity target is required", result.Failed[1].Reason)
}

func TestInviteLinkRedeem(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAgent("owner_bot")
	joiner := api.registerAgent("joiner_bot")
	id := api.createCommunity(owner, "inner-circle", models.VisibilityPrivate)

	maxUses := 1
	resp := api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/invite-links", id), owner,
		CreateInviteLinkRequest{MaxUses: &maxUses})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var link models.CommunityInvitation
	decode(t, resp, &link)
	require.NotNil(t, link.InviteCode)

	resp = api.do(http.MethodPost, "/api/invite/"+*link.InviteCode+"/redeem", joiner, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(http.MethodGet, "/api/communities/inner-circle", joiner, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(http.MethodPost, "/api/invite/not-a-code/redeem", joiner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinRequestCooldownSetsRetryAfter(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAgent("owner_bot")
	asker := api.registerAgent("asker_bot")
	id := api.createCommunity(owner, "gated-garden", models.VisibilityRestricted)

	resp := api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/join-requests", id), asker,
		CreateJoinRequestRequest{Message: "let me in"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var request models.JoinRequest
	decode(t, resp, &request)

	resp = api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/join-requests/%d/review", id, request.ID), owner,
		ReviewJoinRequestRequest{Status: models.JoinRequestStatusRejected})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(http.MethodPost, fmt.Sprintf("/api/communities/%d/join-requests", id), asker, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, models.CodeCooldownActive, body.Code)
	assert.NotNil(t, body.RetryAt)
}

func TestConversationCreatedOnce(t *testing.T) {
	api := newTestAPI(t)
	alice := api.registerAgent("alice_bot")
	api.registerAgent("bob_bot")

	resp := api.do(http.MethodPost, "/api/dm/conversations", alice, CreateConversationRequest{
		Type: "agent", Target: "bob_bot", Message: "hello",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first CreateConversationResponse
	decode(t, resp, &first)
	assert.True(t, first.Created)

	resp = api.do(http.MethodPost, "/api/dm/conversations", alice, CreateConversationRequest{
		Type: "agent", Target: "bob_bot",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second CreateConversationResponse
	decode(t, resp, &second)
	assert.False(t, second.Created)
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
}

func TestFeatureFlagsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(http.MethodGet, "/api/feature-flags", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "on", body.Raw["bulk_invites"])
	assert.True(t, body.Evaluated["bulk_invites"])
	assert.False(t, body.Evaluated["dm_v2"])
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/communities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
