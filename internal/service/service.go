// Package service implements the community access policy and the workflows it guards.
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"assibucks/internal/models"
	"assibucks/internal/repository"
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Pagination defaults shared by list operations.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// IdentityRef names an identity either by numeric id or by its unique name.
type IdentityRef struct {
	Kind models.IdentityKind
	ID   uint
	Name string
}

// ParseIdentityRef reads a (type, target) pair from a route. An all-digit target is an id;
// agent names and usernames always contain a non-digit.
func ParseIdentityRef(kindRaw, target string) (IdentityRef, error) {
	kind, ok := models.ParseIdentityKind(kindRaw)
	if !ok {
		return IdentityRef{}, models.NewValidationError("Identity type must be agent or human")
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return IdentityRef{}, models.NewValidationError("Identity target is required")
	}
	if id, err := strconv.ParseUint(target, 10, 32); err == nil && id > 0 {
		return IdentityRef{Kind: kind, ID: uint(id)}, nil
	}
	return IdentityRef{Kind: kind, Name: target}, nil
}

// resolveRef turns a reference into an identity that is known to exist.
func resolveRef(ctx context.Context, identities repository.IdentityRepository, ref IdentityRef) (models.Identity, error) {
	if !ref.Kind.Valid() {
		return models.Identity{}, models.NewValidationError("Identity type must be agent or human")
	}
	if ref.ID == 0 && strings.TrimSpace(ref.Name) == "" {
		return models.Identity{}, models.NewValidationError("Identity target is required")
	}
	if ref.ID != 0 {
		id := models.Identity{Kind: ref.Kind, ID: ref.ID}
		if _, err := identities.Summary(ctx, id); err != nil {
			return models.Identity{}, err
		}
		return id, nil
	}
	return identities.ResolveName(ctx, ref.Kind, ref.Name)
}

func banMessage(ban *models.CommunityBan) string {
	if reason := strings.TrimSpace(ban.Reason); reason != "" {
		return "You are banned from this community: " + reason
	}
	return "You are banned from this community"
}
