// Package authz resolves named permissions for the authenticated
// principal of a request. Answers come from a per-user snapshot cache
// with a short TTL; misses fall through to a backing strategy (database
// join or token claims). Every ambiguous or failing path denies.
package authz

import (
	"strings"
	"time"
)

// Principal describes the authenticated actor of a request.
type Principal struct {
	UserID        int64
	Name          string
	Roles         []string
	Token         string // raw bearer token when authenticated via API
	SessionID     string // session identifier when authenticated via cookie
	Authenticated bool
}

// Anonymous is the principal used when no credentials are present.
var Anonymous = Principal{}

// Snapshot is an immutable materialization of a user's effective
// permission set at a point in time. Snapshots are stored by value and
// replaced wholesale on refresh, never mutated.
type Snapshot struct {
	UserID      int64
	Name        string
	Roles       []string
	IsAdmin     bool
	FetchedAt   time.Time
	permissions map[string]struct{}
}

// NewSnapshot builds a snapshot, normalizing permission names and
// deriving the administrator flag from the configured role labels.
func NewSnapshot(userID int64, name string, roles, permissions, adminRoles []string) Snapshot {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		p = normalize(p)
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return Snapshot{
		UserID:      userID,
		Name:        name,
		Roles:       append([]string(nil), roles...),
		IsAdmin:     holdsAdminRole(roles, adminRoles),
		FetchedAt:   time.Now().UTC(),
		permissions: set,
	}
}

// Has reports whether the snapshot grants the named permission.
// Administrators hold every permission implicitly.
func (s Snapshot) Has(permission string) bool {
	permission = normalize(permission)
	if permission == "" {
		return false
	}
	if s.IsAdmin {
		return true
	}
	_, ok := s.permissions[permission]
	return ok
}

// Permissions returns the explicit permission names in the snapshot.
func (s Snapshot) Permissions() []string {
	out := make([]string, 0, len(s.permissions))
	for p := range s.permissions {
		out = append(out, p)
	}
	return out
}

// Expired reports whether the snapshot is older than ttl.
func (s Snapshot) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.FetchedAt) >= ttl
}

// Decision is the typed outcome of a permission check. A denial caused
// by a backing-store failure carries the error so callers can log it
// without changing the fail-closed outcome.
type Decision struct {
	Granted    bool
	Permission string
	UserID     int64
	UserName   string
	IsAdmin    bool
	LookupErr  error
}

func normalize(permission string) string {
	return strings.ToLower(strings.TrimSpace(permission))
}

func holdsAdminRole(roles, adminRoles []string) bool {
	for _, r := range roles {
		for _, a := range adminRoles {
			if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(a)) {
				return true
			}
		}
	}
	return false
}
