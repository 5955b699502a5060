// internal/app/system/workers/queuedrain.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/clubsuite/membersync/internal/app/system/timeouts"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Queue is the task-queue surface the drain worker consumes.
// *taskqueue.Store satisfies it.
type Queue interface {
	All(ctx context.Context) ([]models.QueuedTask, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Syncer runs the per-task work. *apisync.Engine satisfies it.
type Syncer interface {
	SyncUserByID(ctx context.Context, uid string) error
	ClearSession(ctx context.Context, token string) error
}

// QueueDrain is a background worker that drains the durable task queue.
// Tasks are at-most-once: each is attempted once and then deleted, success
// or not, because the scheduled full sync re-converges anything a failed
// task left undone. Retrying a poisoned task forever would stall the queue.
type QueueDrain struct {
	queue    Queue
	syncer   Syncer
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewQueueDrain creates a queue drain worker.
func NewQueueDrain(queue Queue, syncer Syncer, logger *zap.Logger, interval time.Duration) *QueueDrain {
	return &QueueDrain{
		queue:    queue,
		syncer:   syncer,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background drain loop.
func (w *QueueDrain) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("queue drain worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *QueueDrain) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("queue drain worker stopped")
}

func (w *QueueDrain) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

func (w *QueueDrain) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Drain())
	defer cancel()

	w.Drain(ctx)
}

// Drain processes every currently queued task once.
func (w *QueueDrain) Drain(ctx context.Context) {
	tasks, err := w.queue.All(ctx)
	if err != nil {
		w.log.Error("failed to read task queue", zap.Error(err))
		return
	}

	for _, t := range tasks {
		if err := w.runTask(ctx, t); err != nil {
			w.log.Warn("queued task failed",
				zap.Int("type", t.TaskType),
				zap.String("parameter", t.Parameter1),
				zap.Error(err))
		}
		if err := w.queue.Delete(ctx, t.ID); err != nil {
			w.log.Error("failed to delete queued task", zap.Error(err))
		}
	}
}

func (w *QueueDrain) runTask(ctx context.Context, t models.QueuedTask) error {
	switch t.TaskType {
	case models.TaskSyncUser:
		return w.syncer.SyncUserByID(ctx, t.Parameter1)
	case models.TaskClearSession:
		return w.syncer.ClearSession(ctx, t.Parameter1)
	default:
		w.log.Warn("unknown task type dropped", zap.Int("type", t.TaskType))
		return nil
	}
}
