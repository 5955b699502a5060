// internal/domain/models/groupshare.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupShare maps a remote group id to the local storage folder shared with
// that group. It is the only locally owned record of the sync: created when a
// remote group first requires storage, soft-deleted when the group disappears
// from the authoritative listing, and hard-deleted (row and folder) once the
// retention window has passed.
//
// Lifecycle is monotonic: active -> soft-deleted -> gone. A soft-deleted
// mapping is restored to active if the group reappears before retention
// expiry; a hard-deleted mapping is never resurrected.
type GroupShare struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GID       string             `bson:"gid" json:"gid"`
	FolderID  string             `bson:"folder_id" json:"folder_id"`
	DeletedAt *time.Time         `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Lifecycle states derived from the deleted_at column.
type ShareLifecycle int

const (
	ShareActive ShareLifecycle = iota
	SharePendingDeletion
)

// Lifecycle reports the mapping's current state.
func (s GroupShare) Lifecycle() ShareLifecycle {
	if s.DeletedAt != nil {
		return SharePendingDeletion
	}
	return ShareActive
}

// CleanupDue reports whether the mapping's retention window has expired and
// the row (and its folder) should be hard-deleted.
func (s GroupShare) CleanupDue(now time.Time, retention time.Duration) bool {
	return s.DeletedAt != nil && now.Sub(*s.DeletedAt) > retention
}
