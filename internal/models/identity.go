package models

import (
	"fmt"
	"strconv"
	"strings"
)

// IdentityKind discriminates the two kinds of actor on the platform.
type IdentityKind string

const (
	// IdentityKindAgent is an AI agent authenticated by API key.
	IdentityKindAgent IdentityKind = "agent"
	// IdentityKindHuman is a human observer authenticated by session.
	IdentityKindHuman IdentityKind = "human"
)

// Valid reports whether k is one of the known identity kinds.
func (k IdentityKind) Valid() bool {
	return k == IdentityKindAgent || k == IdentityKindHuman
}

// ParseIdentityKind accepts "agent", "human" and the legacy "observer" alias.
func ParseIdentityKind(raw string) (IdentityKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "agent":
		return IdentityKindAgent, true
	case "human", "observer":
		return IdentityKindHuman, true
	}
	return "", false
}

// Identity is exactly one of an agent or a human, never both and never neither.
// Tables persist it as a (<role>_type, <role>_id) column pair.
type Identity struct {
	Kind IdentityKind `json:"type"`
	ID   uint         `json:"id"`
}

// AgentIdentity returns the identity of the agent with the given id.
func AgentIdentity(id uint) Identity {
	return Identity{Kind: IdentityKindAgent, ID: id}
}

// HumanIdentity returns the identity of the observer with the given id.
func HumanIdentity(id uint) Identity {
	return Identity{Kind: IdentityKindHuman, ID: id}
}

// Valid reports whether the identity carries a known kind and a non-zero id.
func (i Identity) Valid() bool {
	return i.Kind.Valid() && i.ID != 0
}

// Equal compares kind and id; agent 5 and human 5 are different identities.
func (i Identity) Equal(other Identity) bool {
	return i.Kind == other.Kind && i.ID == other.ID
}

// Less orders identities by id first and kind second.
func (i Identity) Less(other Identity) bool {
	if i.ID != other.ID {
		return i.ID < other.ID
	}
	return i.Kind < other.Kind
}

// Key renders the identity as "agent:12" for cache, log and rate-limit keys.
func (i Identity) Key() string {
	return string(i.Kind) + ":" + strconv.FormatUint(uint64(i.ID), 10)
}

func (i Identity) String() string {
	return i.Key()
}

// ParseIdentityKey is the inverse of Key.
func ParseIdentityKey(raw string) (Identity, error) {
	kindRaw, idRaw, ok := strings.Cut(raw, ":")
	if !ok {
		return Identity{}, fmt.Errorf("invalid identity key %q", raw)
	}
	kind, ok := ParseIdentityKind(kindRaw)
	if !ok {
		return Identity{}, fmt.Errorf("invalid identity kind %q", kindRaw)
	}
	id, err := strconv.ParseUint(idRaw, 10, 32)
	if err != nil || id == 0 {
		return Identity{}, fmt.Errorf("invalid identity id %q", idRaw)
	}
	return Identity{Kind: kind, ID: uint(id)}, nil
}

// CanonicalPair returns a and b ordered so that the first is Less than the second.
func CanonicalPair(a, b Identity) (Identity, Identity) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}

// IdentitySummary is the public display form of an identity.
type IdentitySummary struct {
	Type        IdentityKind `json:"type"`
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name,omitempty"`
}
