package authz

import (
	"strings"
	"time"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultCacheSize = 1024
	defaultAdminRole = "Administrador"

	// RefreshParam is the reserved query parameter that forces an
	// unconditional invalidate-and-refetch on any gated path.
	RefreshParam = "refrescarPermisos"
)

// Config tunes resolver and cache behaviour.
type Config struct {
	// TTL after which a cached snapshot is treated as absent.
	TTL time.Duration
	// CacheSize bounds the number of cached snapshots.
	CacheSize int
	// AdminRoles are role labels that imply every permission.
	AdminRoles []string
	// CriticalPermissions are always logged on denial, even when
	// detailed logging is off.
	CriticalPermissions []string
	// DetailedLogging logs every check outcome, not just denials.
	DetailedLogging bool
	// AuditDenials persists an advisory audit record per denial.
	AuditDenials bool
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if len(c.AdminRoles) == 0 {
		c.AdminRoles = []string{defaultAdminRole}
	}
	return c
}

// IsCritical reports whether the permission is on the critical list.
func (c Config) IsCritical(permission string) bool {
	for _, p := range c.CriticalPermissions {
		if strings.EqualFold(p, permission) {
			return true
		}
	}
	return false
}
