// internal/testutil/fakeshares.go
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/clubsuite/membersync/internal/app/store/groupshares"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FakeShareMappings is an in-memory stand-in for the groupshares store,
// enforcing the same unique gid and folder_id constraints.
type FakeShareMappings struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.GroupShare
}

// NewFakeShareMappings creates an empty mapping store.
func NewFakeShareMappings() *FakeShareMappings {
	return &FakeShareMappings{rows: make(map[primitive.ObjectID]models.GroupShare)}
}

func (f *FakeShareMappings) FindByGroupID(ctx context.Context, gid string) (models.GroupShare, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.GID == gid {
			return m, true, nil
		}
	}
	return models.GroupShare{}, false, nil
}

func (f *FakeShareMappings) FindByFolderID(ctx context.Context, folderID string) (models.GroupShare, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.FolderID == folderID {
			return m, true, nil
		}
	}
	return models.GroupShare{}, false, nil
}

func (f *FakeShareMappings) FindAll(ctx context.Context) ([]models.GroupShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GroupShare, 0, len(f.rows))
	for _, m := range f.rows {
		out = append(out, m)
	}
	return out, nil
}

func (f *FakeShareMappings) FindDeletedBefore(ctx context.Context, t time.Time) ([]models.GroupShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GroupShare
	for _, m := range f.rows {
		if m.DeletedAt != nil && m.DeletedAt.Before(t) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *FakeShareMappings) Insert(ctx context.Context, gid, folderID string) (models.GroupShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.GID == gid || m.FolderID == folderID {
			return models.GroupShare{}, groupshares.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	m := models.GroupShare{
		ID:        primitive.NewObjectID(),
		GID:       gid,
		FolderID:  folderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.rows[m.ID] = m
	return m, nil
}

func (f *FakeShareMappings) UpdateFolder(ctx context.Context, id primitive.ObjectID, folderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for other, m := range f.rows {
		if other != id && m.FolderID == folderID {
			return groupshares.ErrDuplicate
		}
	}
	m := f.rows[id]
	m.FolderID = folderID
	m.UpdatedAt = time.Now().UTC()
	f.rows[id] = m
	return nil
}

func (f *FakeShareMappings) MarkDeleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[id]
	t := at.UTC()
	m.DeletedAt = &t
	m.UpdatedAt = time.Now().UTC()
	f.rows[id] = m
	return nil
}

func (f *FakeShareMappings) Restore(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[id]
	m.DeletedAt = nil
	m.UpdatedAt = time.Now().UTC()
	f.rows[id] = m
	return nil
}

func (f *FakeShareMappings) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}
