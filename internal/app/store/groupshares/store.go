// internal/app/store/groupshares/store.go
package groupshares

import (
	"context"
	"errors"
	"time"

	"github.com/clubsuite/membersync/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate reports an insert that violated the unique gid or folder_id
// index. Two concurrent syncs racing to map the same group hit this; the
// loser re-reads the winner's row and proceeds.
var ErrDuplicate = errors.New("a mapping for this group or folder already exists")

// Store persists GroupShare mappings, the only locally owned sync state.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_shares")}
}

// FindByGroupID resolves the mapping for a remote group id.
func (s *Store) FindByGroupID(ctx context.Context, gid string) (models.GroupShare, bool, error) {
	return s.findOne(ctx, bson.M{"gid": gid})
}

// FindByFolderID resolves the mapping owning a local folder id.
func (s *Store) FindByFolderID(ctx context.Context, folderID string) (models.GroupShare, bool, error) {
	return s.findOne(ctx, bson.M{"folder_id": folderID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.GroupShare, bool, error) {
	var m models.GroupShare
	err := s.c.FindOne(ctx, filter).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.GroupShare{}, false, nil
	}
	if err != nil {
		return models.GroupShare{}, false, err
	}
	return m, true, nil
}

// FindAll returns every mapping, active and soft-deleted.
func (s *Store) FindAll(ctx context.Context) ([]models.GroupShare, error) {
	return s.find(ctx, bson.M{})
}

// FindDeleted returns every soft-deleted mapping.
func (s *Store) FindDeleted(ctx context.Context) ([]models.GroupShare, error) {
	return s.find(ctx, bson.M{"deleted_at": bson.M{"$ne": nil}})
}

// FindDeletedBefore returns soft-deleted mappings whose retention window
// expired before t.
func (s *Store) FindDeletedBefore(ctx context.Context, t time.Time) ([]models.GroupShare, error) {
	return s.find(ctx, bson.M{"deleted_at": bson.M{"$ne": nil, "$lt": t}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.GroupShare, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []models.GroupShare
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates an active mapping. A unique-index conflict surfaces as
// ErrDuplicate.
func (s *Store) Insert(ctx context.Context, gid, folderID string) (models.GroupShare, error) {
	now := time.Now().UTC()
	m := models.GroupShare{
		ID:        primitive.NewObjectID(),
		GID:       gid,
		FolderID:  folderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupShare{}, ErrDuplicate
		}
		return models.GroupShare{}, err
	}
	return m, nil
}

// UpdateFolder points an existing mapping at a new folder id.
func (s *Store) UpdateFolder(ctx context.Context, id primitive.ObjectID, folderID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"folder_id":  folderID,
		"updated_at": time.Now().UTC(),
	}})
	if wafflemongo.IsDup(err) {
		return ErrDuplicate
	}
	return err
}

// MarkDeleted soft-deletes a mapping: the row and its folder survive until
// retention cleanup so a transient listing gap cannot destroy data.
func (s *Store) MarkDeleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"deleted_at": at.UTC(),
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// Restore clears a soft-deletion after the group reappeared before
// retention expiry.
func (s *Store) Restore(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{"deleted_at": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Delete hard-deletes a mapping row. Returns the number of rows removed
// (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
