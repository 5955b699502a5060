// internal/app/apisync/syncshares.go
package apisync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubsuite/membersync/internal/app/store/groupshares"
	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/app/system/identity"
	"github.com/clubsuite/membersync/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncShares reconciles group folders and their shares against the remote
// groups that require storage. Mappings for groups that vanished remotely
// are soft-deleted; mappings whose group reappeared are restored. If the
// remote listing itself fails, the pass aborts without touching anything:
// an API outage must never cascade into mass soft-deletion.
func (e *Engine) SyncShares(ctx context.Context) error {
	path := apiclient.ListPath("groups", map[string]any{"requires_storage": true}, nil)
	groups, err := e.api.ListGroups(ctx, path, "")
	if err != nil {
		e.updateStatus(func(s *Status) { s.LastError = err.Error() })
		return fmt.Errorf("sync shares: list groups: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(groups))
	var restored, failed int
	for _, g := range groups {
		if g.ID == "" {
			continue
		}
		// A per-group failure still counts as seen: the mapping must not be
		// soft-deleted just because the folder work failed this round.
		seen[g.ID] = true
		r, err := e.reconcileGroupFolder(ctx, g)
		if err != nil {
			failed++
			e.log.Warn("group folder reconcile failed", zap.String("group", g.ID), zap.Error(err))
			continue
		}
		if r {
			restored++
		}
	}

	mappings, err := e.shares.FindAll(ctx)
	if err != nil {
		e.updateStatus(func(s *Status) { s.LastError = err.Error() })
		return fmt.Errorf("sync shares: list mappings: %w", err)
	}
	var softDeleted int
	for _, m := range mappings {
		if m.DeletedAt != nil || seen[m.GID] {
			continue
		}
		// The group's access is revoked now; the folder itself waits out
		// the retention window.
		if err := e.removeGroupShares(ctx, m.FolderID, m.GID); err != nil {
			failed++
			e.log.Warn("share removal failed", zap.String("group", m.GID), zap.Error(err))
			continue
		}
		if err := e.shares.MarkDeleted(ctx, m.ID, now); err != nil {
			failed++
			e.log.Warn("soft delete failed", zap.String("group", m.GID), zap.Error(err))
			continue
		}
		softDeleted++
		e.log.Info("group gone remotely, mapping soft-deleted",
			zap.String("group", m.GID), zap.String("folder", m.FolderID))
	}

	e.updateStatus(func(s *Status) {
		s.LastShareSync = now
		s.GroupsSeen = len(groups)
		s.SharesSoftDeleted = softDeleted
		s.SharesRestored = restored
		s.LastError = ""
	})
	if failed > 0 {
		return fmt.Errorf("sync shares: %d groups failed", failed)
	}
	return nil
}

// reconcileGroupFolder converges one storage group: local group, mapping
// row, folder (created or renamed into place) and the group share on it.
// Mappings and local groups are keyed by the remote group id; only the
// folder carries the display name, so two remote groups sharing a name
// stay independent. Reports whether a soft-deleted mapping was restored.
func (e *Engine) reconcileGroupFolder(ctx context.Context, g models.RemoteGroup) (restored bool, err error) {
	gid := g.ID
	name := g.Name
	if name == "" {
		name = gid
	}
	unlock := e.locks.lock(gid)
	defer unlock()

	if err := e.ensureLocalGroup(ctx, gid, name); err != nil {
		return false, err
	}

	mapping, found, err := e.shares.FindByGroupID(ctx, gid)
	if err != nil {
		return false, fmt.Errorf("mapping lookup: %w", err)
	}
	if !found {
		mapping, err = e.createMapping(ctx, gid, name)
		if err != nil {
			return false, err
		}
		return false, e.ensureShare(ctx, mapping.FolderID, gid)
	}

	if mapping.DeletedAt != nil {
		if err := e.shares.Restore(ctx, mapping.ID); err != nil {
			return false, fmt.Errorf("restore mapping: %w", err)
		}
		restored = true
		e.log.Info("group reappeared, mapping restored", zap.String("group", gid))
	}

	folder, ok, err := e.ids.Folder(ctx, e.cfg.FileOwner, mapping.FolderID)
	if err != nil {
		return restored, fmt.Errorf("folder lookup: %w", err)
	}
	if !ok {
		// The folder vanished locally; recreate and repoint the mapping.
		f, err := e.createFolder(ctx, gid, name)
		if err != nil {
			return restored, err
		}
		if err := e.shares.UpdateFolder(ctx, mapping.ID, f.ID); err != nil {
			return restored, fmt.Errorf("repoint mapping: %w", err)
		}
		mapping.FolderID = f.ID
	} else if text.Fold(folder.Name) != text.Fold(name) {
		// The group was renamed remotely; follow with the folder.
		target, err := e.availableFolderName(ctx, gid, name)
		if err != nil {
			return restored, err
		}
		if target != name && suffixedVariant(folder.Name, name) {
			// The plain name is still taken and this folder already
			// carries a suffix; a fresh one would just churn.
		} else if err := e.ids.RenameFolder(ctx, e.cfg.FileOwner, folder.ID, target); err != nil {
			return restored, fmt.Errorf("rename folder: %w", err)
		} else {
			e.log.Info("folder renamed after remote group rename",
				zap.String("group", gid), zap.String("from", folder.Name), zap.String("to", target))
		}
	}

	return restored, e.ensureShare(ctx, mapping.FolderID, gid)
}

// createMapping provisions the folder and inserts the mapping row. Losing
// the unique-index race means another sync already mapped the group; the
// loser deletes its orphan folder and adopts the winner's row.
func (e *Engine) createMapping(ctx context.Context, gid, name string) (models.GroupShare, error) {
	folder, err := e.adoptOrCreateFolder(ctx, gid, name)
	if err != nil {
		return models.GroupShare{}, err
	}
	mapping, err := e.shares.Insert(ctx, gid, folder.ID)
	if errors.Is(err, groupshares.ErrDuplicate) {
		if delErr := e.ids.DeleteFolder(ctx, e.cfg.FileOwner, folder.ID); delErr != nil {
			e.log.Warn("orphan folder cleanup failed", zap.String("folder", folder.ID), zap.Error(delErr))
		}
		winner, found, ferr := e.shares.FindByGroupID(ctx, gid)
		if ferr != nil {
			return models.GroupShare{}, fmt.Errorf("re-read mapping after duplicate: %w", ferr)
		}
		if !found {
			return models.GroupShare{}, fmt.Errorf("mapping for %q raced and vanished", gid)
		}
		return winner, nil
	}
	if err != nil {
		return models.GroupShare{}, fmt.Errorf("insert mapping: %w", err)
	}
	e.log.Info("group folder mapped", zap.String("group", gid), zap.String("folder", folder.ID))
	return mapping, nil
}

// adoptOrCreateFolder reuses an existing same-named folder when no other
// mapping owns it (recovery after a lost mapping database), otherwise
// creates a fresh one.
func (e *Engine) adoptOrCreateFolder(ctx context.Context, gid, name string) (identity.Folder, error) {
	existing, ok, err := e.ids.FolderByName(ctx, e.cfg.FileOwner, name)
	if err != nil {
		return identity.Folder{}, fmt.Errorf("folder lookup by name: %w", err)
	}
	if ok {
		_, claimed, err := e.shares.FindByFolderID(ctx, existing.ID)
		if err != nil {
			return identity.Folder{}, fmt.Errorf("folder claim lookup: %w", err)
		}
		if !claimed {
			e.log.Info("adopted existing folder", zap.String("group", gid), zap.String("folder", existing.ID))
			return existing, nil
		}
	}
	return e.createFolder(ctx, gid, name)
}

func (e *Engine) createFolder(ctx context.Context, gid, name string) (identity.Folder, error) {
	target, err := e.availableFolderName(ctx, gid, name)
	if err != nil {
		return identity.Folder{}, err
	}
	f, err := e.ids.CreateFolder(ctx, e.cfg.FileOwner, target)
	if err != nil {
		return identity.Folder{}, fmt.Errorf("create folder %q: %w", target, err)
	}
	return f, nil
}

// availableFolderName returns the group's display name, or a uuid-suffixed
// variant when a folder with that name is already claimed by a different
// group's mapping.
func (e *Engine) availableFolderName(ctx context.Context, gid, name string) (string, error) {
	existing, ok, err := e.ids.FolderByName(ctx, e.cfg.FileOwner, name)
	if err != nil {
		return "", fmt.Errorf("folder name check: %w", err)
	}
	if !ok {
		return name, nil
	}
	owner, claimed, err := e.shares.FindByFolderID(ctx, existing.ID)
	if err != nil {
		return "", fmt.Errorf("folder claim lookup: %w", err)
	}
	if claimed && owner.GID != gid {
		return name + " " + uuid.NewString()[:8], nil
	}
	return name, nil
}

// suffixedVariant reports whether have is name plus a collision suffix.
func suffixedVariant(have, name string) bool {
	prefix := name + " "
	return len(have) == len(prefix)+8 && text.Fold(have[:len(prefix)]) == text.Fold(prefix)
}

// removeGroupShares drops the group's shares from the folder. Used at
// soft-delete time: the restore path's ensureShare recreates the share if
// the group reappears within the retention window.
func (e *Engine) removeGroupShares(ctx context.Context, folderID, gid string) error {
	shares, err := e.ids.SharesByFolder(ctx, e.cfg.FileOwner, folderID)
	if err != nil {
		return fmt.Errorf("list shares on %q: %w", folderID, err)
	}
	for _, sh := range shares {
		if sh.GroupID != gid {
			continue
		}
		if err := e.ids.DeleteShare(ctx, e.cfg.FileOwner, sh.ID); err != nil {
			return fmt.Errorf("drop share on %q: %w", folderID, err)
		}
	}
	return nil
}

// ensureShare guarantees exactly one group share with the standard
// permission mask on the folder.
func (e *Engine) ensureShare(ctx context.Context, folderID, gid string) error {
	shares, err := e.ids.SharesByFolder(ctx, e.cfg.FileOwner, folderID)
	if err != nil {
		return fmt.Errorf("list shares on %q: %w", folderID, err)
	}
	for _, sh := range shares {
		if sh.GroupID != gid {
			continue
		}
		if sh.Permissions == identity.GroupFolderPerms {
			return nil
		}
		// Wrong mask; replace rather than patch, shares are cheap.
		if err := e.ids.DeleteShare(ctx, e.cfg.FileOwner, sh.ID); err != nil {
			return fmt.Errorf("drop stale share on %q: %w", folderID, err)
		}
		break
	}
	if _, err := e.ids.CreateShare(ctx, e.cfg.FileOwner, folderID, gid, identity.GroupFolderPerms); err != nil {
		return fmt.Errorf("share %q with %q: %w", folderID, gid, err)
	}
	e.log.Info("group share created", zap.String("group", gid), zap.String("folder", folderID))
	return nil
}
