// internal/app/store/localidentity/store.go

// Package localidentity is a MongoDB-backed implementation of the identity
// capability set. Deployments embedding this service into a real
// collaboration platform supply their own adapter; this one backs the
// standalone service and keeps the engine runnable end to end.
package localidentity

import (
	"context"
	"time"

	"github.com/clubsuite/membersync/internal/app/system/identity"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements identity.Store over local_* collections.
type Store struct {
	users   *mongo.Collection
	groups  *mongo.Collection
	members *mongo.Collection
	folders *mongo.Collection
	shares  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		users:   db.Collection("local_users"),
		groups:  db.Collection("local_groups"),
		members: db.Collection("local_group_members"),
		folders: db.Collection("local_folders"),
		shares:  db.Collection("local_shares"),
	}
}

type userDoc struct {
	ID          string `bson:"_id"`
	DisplayName string `bson:"display_name"`
	Email       string `bson:"email"`
	Password    string `bson:"password"`
	Quota       string `bson:"quota"`
}

type groupDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type memberDoc struct {
	ID  primitive.ObjectID `bson:"_id,omitempty"`
	UID string             `bson:"uid"`
	GID string             `bson:"gid"`
}

type folderDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Owner   string             `bson:"owner"`
	Name    string             `bson:"name"`
	Created time.Time          `bson:"created_at"`
}

type shareDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Owner       string             `bson:"owner"`
	FolderID    string             `bson:"folder_id"`
	GroupID     string             `bson:"gid"`
	Permissions int                `bson:"permissions"`
}

/* ------------------------------ Users ------------------------------ */

func (s *Store) User(ctx context.Context, uid string) (identity.User, bool, error) {
	var d userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return identity.User{}, false, nil
	}
	if err != nil {
		return identity.User{}, false, err
	}
	return identity.User{ID: d.ID, DisplayName: d.DisplayName, Email: d.Email}, true, nil
}

func (s *Store) CreateUser(ctx context.Context, uid, password string) (identity.User, error) {
	d := userDoc{ID: uid, Password: password}
	if _, err := s.users.InsertOne(ctx, d); err != nil && !wafflemongo.IsDup(err) {
		return identity.User{}, err
	}
	return identity.User{ID: uid}, nil
}

func (s *Store) AllUsers(ctx context.Context) ([]identity.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]identity.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, identity.User{ID: d.ID, DisplayName: d.DisplayName, Email: d.Email})
	}
	return out, nil
}

func (s *Store) SetDisplayName(ctx context.Context, uid, name string) error {
	_, err := s.users.UpdateByID(ctx, uid, bson.M{"$set": bson.M{"display_name": name}})
	return err
}

func (s *Store) SetEmail(ctx context.Context, uid, email string) error {
	_, err := s.users.UpdateByID(ctx, uid, bson.M{"$set": bson.M{"email": email}})
	return err
}

func (s *Store) SetQuota(ctx context.Context, uid, quota string) error {
	_, err := s.users.UpdateByID(ctx, uid, bson.M{"$set": bson.M{"quota": quota}})
	return err
}

/* ------------------------------ Groups ----------------------------- */

func (s *Store) Group(ctx context.Context, gid string) (identity.Group, bool, error) {
	var d groupDoc
	err := s.groups.FindOne(ctx, bson.M{"_id": gid}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return identity.Group{}, false, nil
	}
	if err != nil {
		return identity.Group{}, false, err
	}
	return identity.Group{ID: d.ID, Name: d.Name}, true, nil
}

func (s *Store) CreateGroup(ctx context.Context, gid, name string) (identity.Group, error) {
	if _, err := s.groups.InsertOne(ctx, groupDoc{ID: gid, Name: name}); err != nil && !wafflemongo.IsDup(err) {
		return identity.Group{}, err
	}
	return identity.Group{ID: gid, Name: name}, nil
}

func (s *Store) DeleteGroup(ctx context.Context, gid string) error {
	if _, err := s.members.DeleteMany(ctx, bson.M{"gid": gid}); err != nil {
		return err
	}
	_, err := s.groups.DeleteOne(ctx, bson.M{"_id": gid})
	return err
}

func (s *Store) AddToGroup(ctx context.Context, uid, gid string) error {
	_, err := s.members.UpdateOne(ctx,
		bson.M{"uid": uid, "gid": gid},
		bson.M{"$setOnInsert": bson.M{"uid": uid, "gid": gid}},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) RemoveFromGroup(ctx context.Context, uid, gid string) error {
	_, err := s.members.DeleteMany(ctx, bson.M{"uid": uid, "gid": gid})
	return err
}

func (s *Store) UserGroups(ctx context.Context, uid string) ([]string, error) {
	return s.memberList(ctx, bson.M{"uid": uid}, "gid")
}

func (s *Store) GroupMembers(ctx context.Context, gid string) ([]string, error) {
	return s.memberList(ctx, bson.M{"gid": gid}, "uid")
}

func (s *Store) memberList(ctx context.Context, filter bson.M, field string) ([]string, error) {
	cur, err := s.members.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []memberDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if field == "gid" {
			out = append(out, d.GID)
		} else {
			out = append(out, d.UID)
		}
	}
	return out, nil
}

func (s *Store) InGroup(ctx context.Context, uid, gid string) (bool, error) {
	err := s.members.FindOne(ctx, bson.M{"uid": uid, "gid": gid}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

/* ----------------------------- Folders ----------------------------- */

func (s *Store) Folder(ctx context.Context, owner, folderID string) (identity.Folder, bool, error) {
	oid, err := primitive.ObjectIDFromHex(folderID)
	if err != nil {
		return identity.Folder{}, false, nil
	}
	var d folderDoc
	err = s.folders.FindOne(ctx, bson.M{"_id": oid, "owner": owner}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return identity.Folder{}, false, nil
	}
	if err != nil {
		return identity.Folder{}, false, err
	}
	return identity.Folder{ID: d.ID.Hex(), Name: d.Name}, true, nil
}

func (s *Store) FolderByName(ctx context.Context, owner, name string) (identity.Folder, bool, error) {
	var d folderDoc
	err := s.folders.FindOne(ctx, bson.M{"owner": owner, "name": name}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return identity.Folder{}, false, nil
	}
	if err != nil {
		return identity.Folder{}, false, err
	}
	return identity.Folder{ID: d.ID.Hex(), Name: d.Name}, true, nil
}

func (s *Store) CreateFolder(ctx context.Context, owner, name string) (identity.Folder, error) {
	d := folderDoc{ID: primitive.NewObjectID(), Owner: owner, Name: name, Created: time.Now().UTC()}
	if _, err := s.folders.InsertOne(ctx, d); err != nil {
		return identity.Folder{}, err
	}
	return identity.Folder{ID: d.ID.Hex(), Name: name}, nil
}

func (s *Store) RenameFolder(ctx context.Context, owner, folderID, newName string) error {
	oid, err := primitive.ObjectIDFromHex(folderID)
	if err != nil {
		return err
	}
	_, err = s.folders.UpdateOne(ctx, bson.M{"_id": oid, "owner": owner},
		bson.M{"$set": bson.M{"name": newName}})
	return err
}

func (s *Store) DeleteFolder(ctx context.Context, owner, folderID string) error {
	oid, err := primitive.ObjectIDFromHex(folderID)
	if err != nil {
		return err
	}
	// Shares go with the folder.
	if _, err := s.shares.DeleteMany(ctx, bson.M{"owner": owner, "folder_id": folderID}); err != nil {
		return err
	}
	_, err = s.folders.DeleteOne(ctx, bson.M{"_id": oid, "owner": owner})
	return err
}

/* ------------------------------ Shares ----------------------------- */

func (s *Store) SharesByFolder(ctx context.Context, owner, folderID string) ([]identity.Share, error) {
	cur, err := s.shares.Find(ctx, bson.M{"owner": owner, "folder_id": folderID})
	if err != nil {
		return nil, err
	}
	var docs []shareDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]identity.Share, 0, len(docs))
	for _, d := range docs {
		out = append(out, identity.Share{
			ID:          d.ID.Hex(),
			FolderID:    d.FolderID,
			GroupID:     d.GroupID,
			Permissions: d.Permissions,
		})
	}
	return out, nil
}

func (s *Store) CreateShare(ctx context.Context, owner, folderID, gid string, permissions int) (identity.Share, error) {
	d := shareDoc{
		ID:          primitive.NewObjectID(),
		Owner:       owner,
		FolderID:    folderID,
		GroupID:     gid,
		Permissions: permissions,
	}
	if _, err := s.shares.InsertOne(ctx, d); err != nil {
		return identity.Share{}, err
	}
	return identity.Share{ID: d.ID.Hex(), FolderID: folderID, GroupID: gid, Permissions: permissions}, nil
}

func (s *Store) DeleteShare(ctx context.Context, owner, shareID string) error {
	oid, err := primitive.ObjectIDFromHex(shareID)
	if err != nil {
		return err
	}
	_, err = s.shares.DeleteOne(ctx, bson.M{"_id": oid, "owner": owner})
	return err
}
