// internal/app/store/taskqueue/store.go
package taskqueue

import (
	"context"
	"time"

	"github.com/clubsuite/membersync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the durable FIFO task queue that defers per-login work out of
// the authentication path.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("queued_tasks")}
}

// Enqueue appends a task.
func (s *Store) Enqueue(ctx context.Context, taskType int, parameter string) (models.QueuedTask, error) {
	t := models.QueuedTask{
		ID:         primitive.NewObjectID(),
		TaskType:   taskType,
		Parameter1: parameter,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.QueuedTask{}, err
	}
	return t, nil
}

// All returns every queued task in insertion order.
func (s *Store) All(ctx context.Context) ([]models.QueuedTask, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.QueuedTask
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a task. Called unconditionally after processing; tasks are
// at-most-once.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Clear removes every task of the given type.
func (s *Store) Clear(ctx context.Context, taskType int) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"task_type": taskType})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
