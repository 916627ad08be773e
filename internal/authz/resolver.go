package authz

import (
	"context"
	"log/slog"
)

// Strategy fetches the effective permission set for a principal from a
// backing source. Implementations must be read-only and safe for
// concurrent use; duplicate fetches for the same principal are allowed.
type Strategy interface {
	Fetch(ctx context.Context, principal Principal) (Snapshot, error)
}

// MetricsRecorder counts check outcomes. Satisfied by
// observability.Metrics; nil disables counting.
type MetricsRecorder interface {
	AuthzDecision(outcome string)
}

// DenialAuditor persists advisory denial records. Satisfied by
// shared.AuditLogger; nil disables auditing.
type DenialAuditor interface {
	RecordDenial(ctx context.Context, userID int64, permission string, lookupFailed bool) error
}

// Resolver answers permission checks for principals, consulting the
// snapshot cache first and the backing strategy on a miss. All failure
// paths resolve to a denial; no check ever returns an error to the
// caller or panics request processing.
type Resolver struct {
	strategy Strategy
	cache    *SnapshotCache
	cfg      Config
	logger   *slog.Logger
	metrics  MetricsRecorder
	auditor  DenialAuditor
}

// NewResolver constructs a Resolver. metrics and auditor may be nil.
func NewResolver(strategy Strategy, cache *SnapshotCache, cfg Config, logger *slog.Logger, metrics MetricsRecorder, auditor DenialAuditor) *Resolver {
	cfg = cfg.withDefaults()
	if cache == nil {
		cache = NewSnapshotCache(cfg.CacheSize, cfg.TTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		strategy: strategy,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		auditor:  auditor,
	}
}

// Check resolves a single permission for the principal and reports the
// typed outcome. Empty permission names and unauthenticated principals
// deny immediately without touching the backing store.
func (r *Resolver) Check(ctx context.Context, principal Principal, permission string) Decision {
	d := Decision{Permission: permission, UserID: principal.UserID, UserName: principal.Name}

	if normalize(permission) == "" {
		r.observe(ctx, d)
		return d
	}
	if !principal.Authenticated || principal.UserID == 0 {
		r.observe(ctx, d)
		return d
	}

	snap, ok := r.cache.Get(principal.UserID)
	if !ok {
		fetched, err := r.strategy.Fetch(ctx, principal)
		if err != nil {
			d.LookupErr = err
			r.observe(ctx, d)
			return d
		}
		r.cache.Put(principal.UserID, fetched)
		if r.metrics != nil {
			r.metrics.AuthzDecision("refresh")
		}
		snap = fetched
	}

	d.IsAdmin = snap.IsAdmin
	if snap.Name != "" {
		d.UserName = snap.Name
	}
	d.Granted = snap.Has(permission)
	r.observe(ctx, d)
	return d
}

// HasPermission reports whether the principal holds the permission.
func (r *Resolver) HasPermission(ctx context.Context, principal Principal, permission string) bool {
	return r.Check(ctx, principal, permission).Granted
}

// HasAnyPermission short-circuits over the names with OR semantics.
func (r *Resolver) HasAnyPermission(ctx context.Context, principal Principal, permissions ...string) bool {
	for _, p := range permissions {
		if r.Check(ctx, principal, p).Granted {
			return true
		}
	}
	return false
}

// HasAllPermissions short-circuits over the names with AND semantics.
// An empty list is vacuously true for authenticated principals.
func (r *Resolver) HasAllPermissions(ctx context.Context, principal Principal, permissions ...string) bool {
	if !principal.Authenticated {
		return false
	}
	for _, p := range permissions {
		if !r.Check(ctx, principal, p).Granted {
			return false
		}
	}
	return true
}

// Refresh forces a backing fetch for the principal and replaces the
// cached snapshot. Used by the per-request refresh middleware.
func (r *Resolver) Refresh(ctx context.Context, principal Principal) error {
	if !principal.Authenticated || principal.UserID == 0 {
		return nil
	}
	snap, err := r.strategy.Fetch(ctx, principal)
	if err != nil {
		return err
	}
	r.cache.Put(principal.UserID, snap)
	if r.metrics != nil {
		r.metrics.AuthzDecision("refresh")
	}
	return nil
}

// SnapshotFor returns the current snapshot for the principal, fetching
// on a miss. Used by services that gate field visibility.
func (r *Resolver) SnapshotFor(ctx context.Context, principal Principal) (Snapshot, error) {
	if !principal.Authenticated || principal.UserID == 0 {
		return Snapshot{}, nil
	}
	if snap, ok := r.cache.Get(principal.UserID); ok {
		return snap, nil
	}
	snap, err := r.strategy.Fetch(ctx, principal)
	if err != nil {
		return Snapshot{}, err
	}
	r.cache.Put(principal.UserID, snap)
	return snap, nil
}

// Cache exposes the snapshot cache for invalidation hooks.
func (r *Resolver) Cache() *SnapshotCache {
	return r.cache
}

// Config exposes the effective configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

func (r *Resolver) observe(ctx context.Context, d Decision) {
	critical := r.cfg.IsCritical(d.Permission)
	switch {
	case d.LookupErr != nil:
		r.logger.Error("authz lookup failed",
			slog.Int64("user_id", d.UserID),
			slog.String("permission", d.Permission),
			slog.Any("error", d.LookupErr))
		if r.metrics != nil {
			r.metrics.AuthzDecision("lookup_failed")
		}
	case d.Granted:
		if r.cfg.DetailedLogging {
			r.logger.Debug("authz granted",
				slog.Int64("user_id", d.UserID),
				slog.String("permission", d.Permission),
				slog.Bool("admin", d.IsAdmin))
		}
		if r.metrics != nil {
			r.metrics.AuthzDecision("granted")
		}
	default:
		if r.cfg.DetailedLogging || critical {
			r.logger.Warn("authz denied",
				slog.Int64("user_id", d.UserID),
				slog.String("permission", d.Permission),
				slog.Bool("critical", critical))
		}
		if r.metrics != nil {
			r.metrics.AuthzDecision("denied")
		}
	}

	if !d.Granted && r.cfg.AuditDenials && r.auditor != nil && d.UserID != 0 {
		if err := r.auditor.RecordDenial(ctx, d.UserID, d.Permission, d.LookupErr != nil); err != nil {
			r.logger.Warn("record denial", slog.Any("error", err))
		}
	}
}
