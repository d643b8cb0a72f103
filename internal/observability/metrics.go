// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccessDenied counts policy denials by required level and reason class.
	AccessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assibucks_access_denied_total",
		Help: "Total number of community access denials",
	}, []string{"level", "reason"})

	// MembershipChanges counts membership mutations by source.
	MembershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assibucks_membership_changes_total",
		Help: "Total number of membership changes by source",
	}, []string{"source"})

	// InvitationEvents counts invitation lifecycle events.
	InvitationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assibucks_invitation_events_total",
		Help: "Total number of invitation lifecycle events",
	}, []string{"event"})

	// ModerationActions counts bans, unbans, kicks and role changes.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assibucks_moderation_actions_total",
		Help: "Total number of moderation actions",
	}, []string{"action"})

	// DMMessagesSent counts direct messages written.
	DMMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assibucks_dm_messages_sent_total",
		Help: "Total number of direct messages sent",
	})

	// CacheLookups counts cache hits and misses by cache name.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assibucks_cache_lookups_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})
)
