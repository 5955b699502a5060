// internal/domain/models/queuedtask.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task types for the durable queue. Per-login work is deferred to an
// asynchronous worker so login latency is not blocked on share provisioning.
const (
	TaskSyncUser     = 0 // parameter1 is the remote user id
	TaskClearSession = 1 // parameter1 is the session token
)

// QueuedTask is one row of the FIFO task queue. Tasks are drained with
// at-most-once semantics: a failed task is logged and removed, never retried;
// the next scheduled full sync re-converges whatever it left undone.
type QueuedTask struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskType   int                `bson:"task_type" json:"task_type"`
	Parameter1 string             `bson:"parameter1" json:"parameter1"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
