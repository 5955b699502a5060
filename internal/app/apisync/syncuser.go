// internal/app/apisync/syncuser.go
package apisync

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/app/system/identity"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.uber.org/zap"
)

// SyncUser reconciles one local account against the given remote user:
// it provisions the account if needed, refreshes profile fields, and
// converges group memberships. Only managed groups are ever pruned; groups
// created locally by administrators are left alone.
func (e *Engine) SyncUser(ctx context.Context, remote models.RemoteUser) error {
	uid := remote.ID

	_, found, err := e.ids.User(ctx, uid)
	if err != nil {
		return fmt.Errorf("sync user %q: %w", uid, err)
	}
	if !found {
		if !remote.IsMember() {
			// No account and no membership: nothing to converge.
			return nil
		}
		if err := e.CreateUser(ctx, remote); err != nil {
			return err
		}
	} else {
		if err := e.ids.SetDisplayName(ctx, uid, remote.DisplayName()); err != nil {
			return fmt.Errorf("sync user %q: set display name: %w", uid, err)
		}
		if err := e.ids.SetEmail(ctx, uid, remote.Email); err != nil {
			return fmt.Errorf("sync user %q: set email: %w", uid, err)
		}
	}

	desired, err := e.desiredGroups(ctx, remote)
	if err != nil {
		return err
	}

	current, err := e.ids.UserGroups(ctx, uid)
	if err != nil {
		return fmt.Errorf("sync user %q: list local groups: %w", uid, err)
	}

	for gid, name := range desired {
		if containsString(current, gid) {
			continue
		}
		if err := e.ensureLocalGroup(ctx, gid, name); err != nil {
			return err
		}
		if err := e.ids.AddToGroup(ctx, uid, gid); err != nil {
			return fmt.Errorf("sync user %q: add to %q: %w", uid, gid, err)
		}
		e.log.Info("added user to group", zap.String("uid", uid), zap.String("gid", gid))
	}

	for _, gid := range current {
		if _, ok := desired[gid]; ok {
			continue
		}
		managed, err := e.isManagedGroup(ctx, gid)
		if err != nil {
			return fmt.Errorf("sync user %q: classify %q: %w", uid, gid, err)
		}
		if !managed {
			continue
		}
		if err := e.ids.RemoveFromGroup(ctx, uid, gid); err != nil {
			return fmt.Errorf("sync user %q: remove from %q: %w", uid, gid, err)
		}
		e.log.Info("removed user from group", zap.String("uid", uid), zap.String("gid", gid))
	}

	return nil
}

// SyncUserByID fetches the remote user and runs SyncUser. A remote 404 is
// not an error: the queued task may outlive the user it references.
func (e *Engine) SyncUserByID(ctx context.Context, uid string) error {
	resp, err := e.api.Get(ctx, "users/"+uid, "")
	if err != nil {
		return fmt.Errorf("fetch user %q: %w", uid, err)
	}
	if resp.Status == 404 {
		e.log.Info("queued sync for unknown remote user", zap.String("uid", uid))
		return nil
	}
	if !resp.OK() {
		return fmt.Errorf("fetch user %q: %w", uid, &apiclient.StatusError{Status: resp.Status, Body: resp.Body})
	}
	remote, err := apiclient.DecodeUser(resp.Body)
	if err != nil {
		return fmt.Errorf("fetch user %q: %w", uid, err)
	}
	return e.SyncUser(ctx, remote)
}

// SyncAllUsers runs SyncUser for every local account that the remote API
// knows about. Per-user failures are logged and counted but do not stop the
// pass; one broken record must not starve everyone else of updates.
func (e *Engine) SyncAllUsers(ctx context.Context) error {
	users, err := e.ids.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("sync all users: %w", err)
	}
	var failed int
	for _, u := range users {
		if err := e.SyncUserByID(ctx, u.ID); err != nil {
			failed++
			e.log.Warn("user sync failed", zap.String("uid", u.ID), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("sync all users: %d of %d failed", failed, len(users))
	}
	return nil
}

// CreateUser provisions the local account for a remote user. The password
// is a throwaway: logins always verify against the remote API, so nobody
// ever needs to know it.
func (e *Engine) CreateUser(ctx context.Context, remote models.RemoteUser) error {
	pw, err := randomPassword()
	if err != nil {
		return fmt.Errorf("create user %q: %w", remote.ID, err)
	}
	if _, err := e.ids.CreateUser(ctx, remote.ID, pw); err != nil {
		return fmt.Errorf("create user %q: %w", remote.ID, err)
	}
	if err := e.ids.SetDisplayName(ctx, remote.ID, remote.DisplayName()); err != nil {
		return fmt.Errorf("create user %q: set display name: %w", remote.ID, err)
	}
	if err := e.ids.SetEmail(ctx, remote.ID, remote.Email); err != nil {
		return fmt.Errorf("create user %q: set email: %w", remote.ID, err)
	}
	if err := e.ids.SetQuota(ctx, remote.ID, e.cfg.UserQuota); err != nil {
		return fmt.Errorf("create user %q: set quota: %w", remote.ID, err)
	}
	e.log.Info("created local account", zap.String("uid", remote.ID))
	return nil
}

// desiredGroups computes the local group ids the user should hold (mapped
// to their display names), from the membership tier and the remote group
// memberships. Only storage groups are mirrored locally; the admin
// allowlist check is unconditional.
func (e *Engine) desiredGroups(ctx context.Context, remote models.RemoteUser) (map[string]string, error) {
	desired := make(map[string]string)
	if !remote.IsMember() {
		return desired, nil
	}
	desired[e.cfg.InternalGroup] = e.cfg.InternalGroup

	path := apiclient.ListPath("groupmemberships", map[string]any{"user": remote.ID}, url.Values{
		"embedded": []string{`{"group":1}`},
	})
	memberships, err := e.api.ListMemberships(ctx, path, "")
	if err != nil {
		return nil, fmt.Errorf("sync user %q: list memberships: %w", remote.ID, err)
	}
	for _, m := range memberships {
		if m.Group == nil || m.Group.ID == "" {
			continue
		}
		if e.cfg.IsAdminGroup(*m.Group) {
			desired[identity.AdminGroupID] = identity.AdminGroupID
		}
		if !m.Group.RequiresStorage {
			continue
		}
		name := m.Group.Name
		if name == "" {
			name = m.Group.ID
		}
		desired[m.Group.ID] = name
	}
	return desired, nil
}

// isManagedGroup reports whether this service owns membership of the local
// group: the platform admin group, the internal members group, and any
// group with a folder mapping (deleted or not) are managed.
func (e *Engine) isManagedGroup(ctx context.Context, gid string) (bool, error) {
	if gid == identity.AdminGroupID || gid == e.cfg.InternalGroup {
		return true, nil
	}
	_, found, err := e.shares.FindByGroupID(ctx, gid)
	if err != nil {
		return false, err
	}
	return found, nil
}

func (e *Engine) ensureLocalGroup(ctx context.Context, gid, name string) error {
	_, found, err := e.ids.Group(ctx, gid)
	if err != nil {
		return fmt.Errorf("ensure group %q: %w", gid, err)
	}
	if found {
		return nil
	}
	if _, err := e.ids.CreateGroup(ctx, gid, name); err != nil {
		return fmt.Errorf("ensure group %q: %w", gid, err)
	}
	e.log.Info("created local group", zap.String("gid", gid))
	return nil
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// randomPassword generates the throwaway password used when provisioning
// local accounts.
func randomPassword() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(buf)
	if len(s) > 30 {
		s = s[:30]
	}
	return s, nil
}
