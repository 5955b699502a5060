// internal/app/apisync/cleanup.go
package apisync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CleanupShares hard-deletes mappings whose soft-deletion outlived the
// retention window, along with their folders and local groups. A folder
// that is already gone counts as cleaned, not as an error: cleanup must be
// able to finish a run that crashed halfway.
func (e *Engine) CleanupShares(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-e.cfg.Retention)
	expired, err := e.shares.FindDeletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup shares: %w", err)
	}

	var cleaned, failed int
	for _, m := range expired {
		if err := e.cleanupMapping(ctx, m.GID, m.FolderID); err != nil {
			failed++
			e.log.Warn("mapping cleanup failed", zap.String("group", m.GID), zap.Error(err))
			continue
		}
		if _, err := e.shares.Delete(ctx, m.ID); err != nil {
			failed++
			e.log.Warn("mapping row delete failed", zap.String("group", m.GID), zap.Error(err))
			continue
		}
		cleaned++
		e.log.Info("expired mapping cleaned up",
			zap.String("group", m.GID), zap.String("folder", m.FolderID))
	}

	e.updateStatus(func(s *Status) {
		s.LastCleanup = time.Now().UTC()
		s.MappingsCleaned = cleaned
	})
	if failed > 0 {
		return fmt.Errorf("cleanup shares: %d of %d failed", failed, len(expired))
	}
	return nil
}

func (e *Engine) cleanupMapping(ctx context.Context, gid, folderID string) error {
	_, ok, err := e.ids.Folder(ctx, e.cfg.FileOwner, folderID)
	if err != nil {
		return fmt.Errorf("folder lookup: %w", err)
	}
	if ok {
		// Deleting the folder drops its shares with it.
		if err := e.ids.DeleteFolder(ctx, e.cfg.FileOwner, folderID); err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
	}

	_, ok, err = e.ids.Group(ctx, gid)
	if err != nil {
		return fmt.Errorf("group lookup: %w", err)
	}
	if ok {
		if err := e.ids.DeleteGroup(ctx, gid); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
	}
	return nil
}
