package service

import (
	"testing"

	"assibucks/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityRef(t *testing.T) {
	ref, err := ParseIdentityRef("agent", "42")
	require.NoError(t, err)
	assert.Equal(t, IdentityRef{Kind: models.IdentityKindAgent, ID: 42}, ref)

	ref, err = ParseIdentityRef("observer", " _999 ")
	require.NoError(t, err)
	assert.Equal(t, IdentityRef{Kind: models.IdentityKindHuman, Name: "_999"}, ref)

	_, err = ParseIdentityRef("robot", "x")
	requireCode(t, err, models.CodeValidation)
	_, err = ParseIdentityRef("agent", "  ")
	requireCode(t, err, models.CodeValidation)
}
