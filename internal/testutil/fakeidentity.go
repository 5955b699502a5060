// internal/testutil/fakeidentity.go
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/clubsuite/membersync/internal/app/system/identity"
)

// FakeIdentity is an in-memory identity.Store for engine and directory
// tests. All methods are safe for concurrent use.
type FakeIdentity struct {
	mu        sync.Mutex
	users     map[string]identity.User
	passwords map[string]string
	quotas    map[string]string
	groups    map[string]identity.Group
	members   map[string]map[string]bool // gid -> uid set
	folders   map[string]identity.Folder // folder id -> folder
	shares    map[string]identity.Share  // share id -> share
	folderSeq int
	shareSeq  int
}

// NewFakeIdentity creates an empty in-memory identity store.
func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{
		users:     make(map[string]identity.User),
		passwords: make(map[string]string),
		quotas:    make(map[string]string),
		groups:    make(map[string]identity.Group),
		members:   make(map[string]map[string]bool),
		folders:   make(map[string]identity.Folder),
		shares:    make(map[string]identity.Share),
	}
}

/* ------------------------------ Users ------------------------------ */

func (f *FakeIdentity) User(ctx context.Context, uid string) (identity.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	return u, ok, nil
}

func (f *FakeIdentity) CreateUser(ctx context.Context, uid, password string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[uid]; ok {
		return identity.User{}, fmt.Errorf("user %q already exists", uid)
	}
	u := identity.User{ID: uid}
	f.users[uid] = u
	f.passwords[uid] = password
	return u, nil
}

func (f *FakeIdentity) AllUsers(ctx context.Context) ([]identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]identity.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *FakeIdentity) SetDisplayName(ctx context.Context, uid, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return fmt.Errorf("user %q not found", uid)
	}
	u.DisplayName = name
	f.users[uid] = u
	return nil
}

func (f *FakeIdentity) SetEmail(ctx context.Context, uid, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return fmt.Errorf("user %q not found", uid)
	}
	u.Email = email
	f.users[uid] = u
	return nil
}

func (f *FakeIdentity) SetQuota(ctx context.Context, uid, quota string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[uid]; !ok {
		return fmt.Errorf("user %q not found", uid)
	}
	f.quotas[uid] = quota
	return nil
}

// Quota returns the quota assigned to a user, for assertions.
func (f *FakeIdentity) Quota(uid string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quotas[uid]
}

// Password returns the password a user was provisioned with.
func (f *FakeIdentity) Password(uid string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwords[uid]
}

/* ------------------------------ Groups ----------------------------- */

func (f *FakeIdentity) Group(ctx context.Context, gid string) (identity.Group, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[gid]
	return g, ok, nil
}

func (f *FakeIdentity) CreateGroup(ctx context.Context, gid, name string) (identity.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := identity.Group{ID: gid, Name: name}
	f.groups[gid] = g
	if f.members[gid] == nil {
		f.members[gid] = make(map[string]bool)
	}
	return g, nil
}

func (f *FakeIdentity) DeleteGroup(ctx context.Context, gid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.groups, gid)
	delete(f.members, gid)
	return nil
}

func (f *FakeIdentity) AddToGroup(ctx context.Context, uid, gid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[gid] == nil {
		f.members[gid] = make(map[string]bool)
	}
	f.members[gid][uid] = true
	return nil
}

func (f *FakeIdentity) RemoveFromGroup(ctx context.Context, uid, gid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[gid], uid)
	return nil
}

func (f *FakeIdentity) UserGroups(ctx context.Context, uid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for gid, uids := range f.members {
		if uids[uid] {
			out = append(out, gid)
		}
	}
	return out, nil
}

func (f *FakeIdentity) GroupMembers(ctx context.Context, gid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for uid := range f.members[gid] {
		out = append(out, uid)
	}
	return out, nil
}

func (f *FakeIdentity) InGroup(ctx context.Context, uid, gid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[gid][uid], nil
}

/* ----------------------------- Folders ----------------------------- */

func (f *FakeIdentity) Folder(ctx context.Context, owner, folderID string) (identity.Folder, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.folders[folderID]
	return fd, ok, nil
}

func (f *FakeIdentity) FolderByName(ctx context.Context, owner, name string) (identity.Folder, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.folders {
		if fd.Name == name {
			return fd, true, nil
		}
	}
	return identity.Folder{}, false, nil
}

func (f *FakeIdentity) CreateFolder(ctx context.Context, owner, name string) (identity.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folderSeq++
	fd := identity.Folder{ID: fmt.Sprintf("f%d", f.folderSeq), Name: name}
	f.folders[fd.ID] = fd
	return fd, nil
}

func (f *FakeIdentity) RenameFolder(ctx context.Context, owner, folderID, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.folders[folderID]
	if !ok {
		return fmt.Errorf("folder %q not found", folderID)
	}
	fd.Name = newName
	f.folders[folderID] = fd
	return nil
}

func (f *FakeIdentity) DeleteFolder(ctx context.Context, owner, folderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.folders, folderID)
	for id, sh := range f.shares {
		if sh.FolderID == folderID {
			delete(f.shares, id)
		}
	}
	return nil
}

// Folders returns a snapshot of all folders, for assertions.
func (f *FakeIdentity) Folders() []identity.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]identity.Folder, 0, len(f.folders))
	for _, fd := range f.folders {
		out = append(out, fd)
	}
	return out
}

/* ------------------------------ Shares ----------------------------- */

func (f *FakeIdentity) SharesByFolder(ctx context.Context, owner, folderID string) ([]identity.Share, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identity.Share
	for _, sh := range f.shares {
		if sh.FolderID == folderID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *FakeIdentity) CreateShare(ctx context.Context, owner, folderID, gid string, permissions int) (identity.Share, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shareSeq++
	sh := identity.Share{
		ID:          fmt.Sprintf("s%d", f.shareSeq),
		FolderID:    folderID,
		GroupID:     gid,
		Permissions: permissions,
	}
	f.shares[sh.ID] = sh
	return sh, nil
}

func (f *FakeIdentity) DeleteShare(ctx context.Context, owner, shareID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.shares, shareID)
	return nil
}

// Shares returns a snapshot of all shares, for assertions.
func (f *FakeIdentity) Shares() []identity.Share {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]identity.Share, 0, len(f.shares))
	for _, sh := range f.shares {
		out = append(out, sh)
	}
	return out
}
