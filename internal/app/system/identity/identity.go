// internal/app/system/identity/identity.go

// Package identity defines the capability set this service consumes from the
// host collaboration platform's user/group/storage/sharing subsystem. The
// host side is out of scope; the reconciliation engine only ever talks to
// these interfaces.
package identity

import "context"

// Share permission bits, combined into a bitmask on group shares.
const (
	PermRead   = 1
	PermUpdate = 2
	PermCreate = 4
	PermDelete = 8
	PermShare  = 16
)

// GroupFolderPerms is the bitmask granted on synced group folders: full
// read/write, but no re-sharing.
const GroupFolderPerms = PermRead | PermCreate | PermUpdate | PermDelete

// AdminGroupID is the host platform's built-in administrator group.
const AdminGroupID = "admin"

// User is a local account.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// Group is a local group.
type Group struct {
	ID   string
	Name string
}

// Folder is a storage folder under a named owner account.
type Folder struct {
	ID   string
	Name string
}

// Share is a group-type share on a folder.
type Share struct {
	ID          string
	FolderID    string
	GroupID     string
	Permissions int
}

// Users manages local accounts.
type Users interface {
	// User resolves a local account; found is false when it does not exist.
	User(ctx context.Context, uid string) (User, bool, error)
	// CreateUser provisions a local account. The password only satisfies
	// the host's account-creation contract; authentication always happens
	// against the remote API.
	CreateUser(ctx context.Context, uid, password string) (User, error)
	AllUsers(ctx context.Context) ([]User, error)
	SetDisplayName(ctx context.Context, uid, name string) error
	SetEmail(ctx context.Context, uid, email string) error
	SetQuota(ctx context.Context, uid, quota string) error
}

// Groups manages local groups and their memberships.
type Groups interface {
	Group(ctx context.Context, gid string) (Group, bool, error)
	CreateGroup(ctx context.Context, gid, name string) (Group, error)
	DeleteGroup(ctx context.Context, gid string) error
	AddToGroup(ctx context.Context, uid, gid string) error
	RemoveFromGroup(ctx context.Context, uid, gid string) error
	UserGroups(ctx context.Context, uid string) ([]string, error)
	GroupMembers(ctx context.Context, gid string) ([]string, error)
	InGroup(ctx context.Context, uid, gid string) (bool, error)
}

// Folders manages storage folders under a named owner account.
type Folders interface {
	Folder(ctx context.Context, owner, folderID string) (Folder, bool, error)
	FolderByName(ctx context.Context, owner, name string) (Folder, bool, error)
	CreateFolder(ctx context.Context, owner, name string) (Folder, error)
	RenameFolder(ctx context.Context, owner, folderID, newName string) error
	// DeleteFolder removes a folder and, transitively, its shares.
	DeleteFolder(ctx context.Context, owner, folderID string) error
}

// Shares manages group-type shares on folders.
type Shares interface {
	SharesByFolder(ctx context.Context, owner, folderID string) ([]Share, error)
	CreateShare(ctx context.Context, owner, folderID, gid string, permissions int) (Share, error)
	DeleteShare(ctx context.Context, owner, shareID string) error
}

// Store bundles the full capability set the reconciliation engine needs.
type Store interface {
	Users
	Groups
	Folders
	Shares
}
