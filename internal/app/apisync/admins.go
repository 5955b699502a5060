// internal/app/apisync/admins.go
package apisync

import (
	"context"
	"fmt"
	"time"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/app/system/identity"
	"go.uber.org/zap"
)

// SyncAdminUsers reconciles the local admin group against the membership of
// the allowlisted remote groups. The file owner account is always pinned in.
// Any remote listing failure aborts the pass before a single removal: a
// partial view of the allowlist must never demote every administrator.
func (e *Engine) SyncAdminUsers(ctx context.Context) error {
	want, err := e.remoteAdminUIDs(ctx)
	if err != nil {
		e.updateStatus(func(s *Status) { s.LastError = err.Error() })
		return fmt.Errorf("sync admins: %w", err)
	}
	want[e.cfg.FileOwner] = true

	current, err := e.ids.GroupMembers(ctx, identity.AdminGroupID)
	if err != nil {
		return fmt.Errorf("sync admins: list local admins: %w", err)
	}

	for uid := range want {
		if containsString(current, uid) {
			continue
		}
		_, found, err := e.ids.User(ctx, uid)
		if err != nil {
			return fmt.Errorf("sync admins: lookup %q: %w", uid, err)
		}
		if !found {
			// Promotion waits until the account is provisioned on first login.
			continue
		}
		if err := e.ids.AddToGroup(ctx, uid, identity.AdminGroupID); err != nil {
			return fmt.Errorf("sync admins: promote %q: %w", uid, err)
		}
		e.log.Info("user promoted to admin", zap.String("uid", uid))
	}

	for _, uid := range current {
		if want[uid] {
			continue
		}
		if err := e.ids.RemoveFromGroup(ctx, uid, identity.AdminGroupID); err != nil {
			return fmt.Errorf("sync admins: demote %q: %w", uid, err)
		}
		e.log.Info("user demoted from admin", zap.String("uid", uid))
	}

	e.updateStatus(func(s *Status) { s.LastAdminSync = time.Now().UTC() })
	return nil
}

// remoteAdminUIDs collects the remote user ids holding membership in any
// allowlisted group.
func (e *Engine) remoteAdminUIDs(ctx context.Context) (map[string]bool, error) {
	groups, err := e.api.ListGroups(ctx, "groups", "")
	if err != nil {
		return nil, fmt.Errorf("list remote groups: %w", err)
	}

	uids := make(map[string]bool)
	for _, g := range groups {
		if !e.cfg.IsAdminGroup(g) {
			continue
		}
		path := apiclient.ListPath("groupmemberships", map[string]any{"group": g.ID}, nil)
		memberships, err := e.api.ListMemberships(ctx, path, "")
		if err != nil {
			return nil, fmt.Errorf("list members of %q: %w", g.Name, err)
		}
		for _, m := range memberships {
			if m.UserID != "" {
				uids[m.UserID] = true
			}
		}
	}
	return uids, nil
}
