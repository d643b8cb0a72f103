// Package featureflags evaluates rollout flags per caller identity.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"

	"assibucks/internal/models"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "dm_requests=on,invite_links=25%,legacy_listing=off"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return &Manager{flags: out}
}

// Enabled reports whether flag name is on for caller.
// Values are on/true/1, off/false/0, or N% for a deterministic rollout by identity.
// Agent 7 and human 7 land in different buckets. Anonymous callers only see 100% rollouts.
func (m *Manager) Enabled(name string, caller models.Identity) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if !caller.Valid() {
		return false
	}
	return rolloutBucket(name, caller) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one caller.
func (m *Manager) Snapshot(caller models.Identity) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, caller)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, caller models.Identity) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + caller.Key()))
	return int(h.Sum32() % 100)
}
