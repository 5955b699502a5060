// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/clubsuite/membersync/internal/app/apisync"
)

// FullSyncJob reconciles group folders, shares and admin memberships
// against the remote API on the configured interval.
func FullSyncJob(engine *apisync.Engine, interval time.Duration) Job {
	return Job{
		Name:     "full-sync",
		Interval: interval,
		Run: func(ctx context.Context) error {
			if err := engine.SyncShares(ctx); err != nil {
				return err
			}
			return engine.SyncAdminUsers(ctx)
		},
	}
}

// ShareCleanupJob hard-deletes soft-deleted mappings whose retention window
// has expired, along with their folders.
func ShareCleanupJob(engine *apisync.Engine, interval time.Duration) Job {
	return Job{
		Name:     "share-cleanup",
		Interval: interval,
		Run: func(ctx context.Context) error {
			return engine.CleanupShares(ctx)
		},
	}
}
