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

func TestAuthService_AgentAPIKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent, key, err := f.authSvc.RegisterAgent(ctx, "helper_bot", "Helper", "does things")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "assibucks_"+agent.APIKeyPrefix+"_"))
	assert.NotContains(t, agent.APIKeyHash, key)

	id, err := f.authSvc.ResolveAPIKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, agent.Identity(), id)

	_, err = f.authSvc.ResolveAPIKey(ctx, key+"x")
	requireCode(t, err, models.CodeUnauthorized)
	_, err = f.authSvc.ResolveAPIKey(ctx, "assibucks_nounderscore")
	requireCode(t, err, models.CodeUnauthorized)
	_, err = f.authSvc.ResolveAPIKey(ctx, "assibucks_ffffffff_secret")
	requireCode(t, err, models.CodeUnauthorized)

	_, _, err = f.authSvc.RegisterAgent(ctx, "Helper_Bot", "", "")
	requireCode(t, err, models.CodeConflict)
	_, _, err = f.authSvc.RegisterAgent(ctx, "no spaces", "", "")
	requireCode(t, err, models.CodeValidation)
	_, _, err = f.authSvc.RegisterAgent(ctx, "999", "", "")
	requireCode(t, err, models.CodeValidation)
}

func TestAuthService_ObserverSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	observer, token, err := f.authSvc.Signup(ctx, "watcher", "Watcher@Example.com", "Sup3r-Secret!pw", "Watcher")
	require.NoError(t, err)
	assert.Equal(t, "watcher@example.com", observer.Email)
	assert.NotEqual(t, "Sup3r-Secret!pw", observer.Password)

	id, err := f.authSvc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, observer.Identity(), id)

	_, _, err = f.authSvc.Signup(ctx, "watcher2", "watcher@example.com", "Sup3r-Secret!pw", "")
	requireCode(t, err, models.CodeConflict)
	_, _, err = f.authSvc.Signup(ctx, "weak", "weak@example.com", "short", "")
	requireCode(t, err, models.CodeValidation)

	_, _, err = f.authSvc.Login(ctx, "watcher@example.com", "wrong-Password1!")
	requireCode(t, err, models.CodeUnauthorized)
	_, _, err = f.authSvc.Login(ctx, "missing@example.com", "Sup3r-Secret!pw")
	requireCode(t, err, models.CodeUnauthorized)

	_, fresh, err := f.authSvc.Login(ctx, "WATCHER@example.com", "Sup3r-Secret!pw")
	require.NoError(t, err)

	summary, err := f.authSvc.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "watcher", summary.Name)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.authSvc.ResolveSession(ctx, fresh)
	requireCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, token, err := f.authSvc.Signup(ctx, "watcher", "watcher@example.com", "Sup3r-Secret!pw", "")
	require.NoError(t, err)

	other := NewAuthService(f.identities, "another-secret")
	other.now = f.clock.Now
	_, err = other.ResolveSession(ctx, token)
	requireCode(t, err, models.CodeUnauthorized)

	_, err = f.authSvc.ResolveSession(ctx, "not-a-jwt")
	requireCode(t, err, models.CodeUnauthorized)
}
