package service

import (
	"assibucks/internal/models"
)

// AccessLevel is the capability a caller asks for on a community.
type AccessLevel string

const (
	AccessView   AccessLevel = "view"
	AccessPost   AccessLevel = "post"
	AccessManage AccessLevel = "manage"
)

// ParseAccessLevel validates a level received from a client.
func ParseAccessLevel(raw string) (AccessLevel, bool) {
	switch AccessLevel(raw) {
	case AccessView, AccessPost, AccessManage:
		return AccessLevel(raw), true
	}
	return "", false
}

// Denial reason classes used as metric labels.
const (
	denyNotFound         = "not_found"
	denyBanned           = "banned"
	denyPrivate          = "private"
	denyNotMember        = "not_member"
	denyInsufficientRole = "insufficient_role"
)

// AccessResult is the outcome of an access check.
type AccessResult struct {
	Allowed    bool                       `json:"allowed"`
	Reason     string                     `json:"reason,omitempty"`
	Visibility models.CommunityVisibility `json:"visibility,omitempty"`
	IsMember   bool                       `json:"is_member"`
	Role       models.MembershipRole      `json:"role,omitempty"`

	denial string
}

// Err converts a denied result into the AppError handlers should return.
func (r AccessResult) Err() error {
	switch {
	case r.Allowed:
		return nil
	case r.denial == denyNotFound:
		return models.NewNotFoundMessage(r.Reason)
	default:
		return models.NewForbiddenError(r.Reason)
	}
}

// DecideAccess combines visibility, membership and ban state into a decision.
// community may be nil (not found); membership and ban are nil when absent.
// An active ban denies every level, owners included.
func DecideAccess(community *models.Community, membership *models.CommunityMembership, ban *models.CommunityBan, level AccessLevel) AccessResult {
	if community == nil {
		return AccessResult{Reason: "Community not found", denial: denyNotFound}
	}

	result := AccessResult{Visibility: community.Visibility}
	if membership != nil {
		result.IsMember = true
		result.Role = membership.Role
	}

	if ban != nil {
		result.Reason = banMessage(ban)
		result.denial = denyBanned
		return result
	}

	switch level {
	case AccessView:
		if community.Visibility != models.VisibilityPrivate || result.IsMember {
			result.Allowed = true
			return result
		}
		result.Reason = "This community is private"
		result.denial = denyPrivate
	case AccessPost:
		if community.Visibility == models.VisibilityPublic || result.IsMember {
			result.Allowed = true
			return result
		}
		result.Reason = "You must be a member to post in this community"
		result.denial = denyNotMember
	case AccessManage:
		if result.Role.CanManage() {
			result.Allowed = true
			return result
		}
		result.Reason = "Moderator or owner role required"
		result.denial = denyInsufficientRole
	default:
		result.Reason = "Unknown access level"
		result.denial = denyInsufficientRole
	}
	return result
}

// CanActOn reports whether an actor with role actor may moderate a member holding target.
func CanActOn(actor, target models.MembershipRole) bool {
	return actor.Outranks(target)
}
