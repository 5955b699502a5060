// internal/app/apisync/engine.go

// Package apisync implements the reconciliation engine: it diffs the
// authoritative state of the remote membership API against the host
// platform's local users, groups and shared folders, and applies the
// minimal set of mutations to converge. Every operation is idempotent;
// re-running a sync never duplicates groups, folders or shares.
package apisync

import (
	"context"
	"sync"
	"time"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/app/system/identity"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config carries the engine's reconciliation policy. All values are
// constructor-injected; the engine performs no ambient configuration
// lookups.
type Config struct {
	// FileOwner is the local account that owns every synced group folder,
	// so group files survive member account deletion. It is pinned into the
	// local admin group and never demoted.
	FileOwner string
	// AdminGroups is the allowlist of remote groups whose members get local
	// admin rights. Entries match a remote group's id or name.
	AdminGroups []string
	// InternalGroup is the local group holding everyone with any
	// membership tier.
	InternalGroup string
	// Retention is how long a soft-deleted mapping (and its folder) is kept
	// before hard deletion.
	Retention time.Duration
	// UserQuota is the storage quota assigned to synced accounts. Personal
	// storage is not this system's business, hence the default of "0 B".
	UserQuota string
}

// IsAdminGroup reports whether the group is on the admin allowlist, by id
// or by name (deployments have historically configured either).
func (c Config) IsAdminGroup(g models.RemoteGroup) bool {
	for _, a := range c.AdminGroups {
		if a == g.ID || a == g.Name {
			return true
		}
	}
	return false
}

// ShareMappings is the persistence surface the engine needs for GroupShare
// rows. *groupshares.Store satisfies it.
type ShareMappings interface {
	FindByGroupID(ctx context.Context, gid string) (models.GroupShare, bool, error)
	FindByFolderID(ctx context.Context, folderID string) (models.GroupShare, bool, error)
	FindAll(ctx context.Context) ([]models.GroupShare, error)
	FindDeletedBefore(ctx context.Context, t time.Time) ([]models.GroupShare, error)
	Insert(ctx context.Context, gid, folderID string) (models.GroupShare, error)
	UpdateFolder(ctx context.Context, id primitive.ObjectID, folderID string) error
	MarkDeleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Restore(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Engine is the reconciliation engine. A single call runs sequentially;
// concurrency comes from independent invocations (login-triggered syncs
// racing the scheduled full sync), which the per-group locks and the
// storage-level unique constraints make safe.
type Engine struct {
	cfg    Config
	api    *apiclient.Client
	ids    identity.Store
	shares ShareMappings
	log    *zap.Logger

	locks *groupLocks

	mu     sync.Mutex
	status Status
}

// New builds an Engine.
func New(cfg Config, api *apiclient.Client, ids identity.Store, shares ShareMappings, logger *zap.Logger) *Engine {
	if cfg.UserQuota == "" {
		cfg.UserQuota = "0 B"
	}
	return &Engine{
		cfg:    cfg,
		api:    api,
		ids:    ids,
		shares: shares,
		log:    logger,
		locks:  newGroupLocks(),
	}
}

// Status is a snapshot of the most recent sync activity, served read-only
// by the status endpoint.
type Status struct {
	LastShareSync     time.Time `json:"last_share_sync"`
	LastAdminSync     time.Time `json:"last_admin_sync"`
	LastCleanup       time.Time `json:"last_cleanup"`
	GroupsSeen        int       `json:"groups_seen"`
	SharesSoftDeleted int       `json:"shares_soft_deleted"`
	SharesRestored    int       `json:"shares_restored"`
	MappingsCleaned   int       `json:"mappings_cleaned"`
	LastError         string    `json:"last_error,omitempty"`
}

// Status returns a copy of the engine's last-run snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) updateStatus(fn func(*Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}

// groupLocks hands out one mutex per remote group id, serializing the
// folder create/rename path when a login-triggered sync races the scheduled
// full sync for the same group.
type groupLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{m: make(map[string]*sync.Mutex)}
}

func (l *groupLocks) lock(gid string) func() {
	l.mu.Lock()
	m, ok := l.m[gid]
	if !ok {
		m = &sync.Mutex{}
		l.m[gid] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
