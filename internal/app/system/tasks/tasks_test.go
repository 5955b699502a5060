package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunnerRunsJobsOnTheirIntervals(t *testing.T) {
	var fast, slow atomic.Int32

	r := NewRunner(zap.NewNop(), time.Second,
		Job{Name: "fast", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
			fast.Add(1)
			return nil
		}},
		Job{Name: "slow", Interval: time.Hour, Run: func(context.Context) error {
			slow.Add(1)
			return nil
		}},
	)
	r.Start()
	time.Sleep(100 * time.Millisecond)
	r.Stop()

	if fast.Load() < 2 {
		t.Fatalf("fast job ran %d times, want at least 2", fast.Load())
	}
	if slow.Load() != 0 {
		t.Fatalf("slow job ran %d times before its first tick", slow.Load())
	}
}

func TestRunnerSurvivesFailingJob(t *testing.T) {
	var runs atomic.Int32

	r := NewRunner(zap.NewNop(), time.Second,
		Job{Name: "flaky", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
			runs.Add(1)
			return errors.New("remote down")
		}},
	)
	r.Start()
	time.Sleep(60 * time.Millisecond)
	r.Stop()

	// Failures are logged; the ticker keeps going.
	if runs.Load() < 2 {
		t.Fatalf("failing job ran %d times, want at least 2", runs.Load())
	}
}

func TestRunnerAppliesPerRunTimeout(t *testing.T) {
	deadline := make(chan bool, 1)

	r := NewRunner(zap.NewNop(), 20*time.Millisecond,
		Job{Name: "bounded", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				deadline <- true
			case <-time.After(time.Second):
				deadline <- false
			}
			return ctx.Err()
		}},
	)
	r.Start()
	defer r.Stop()

	select {
	case hit := <-deadline:
		if !hit {
			t.Fatal("job run was not bounded by the runner timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestRunnerStopWaitsForInflightRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	r := NewRunner(zap.NewNop(), time.Second,
		Job{Name: "inflight", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
			return nil
		}},
	)
	r.Start()
	<-started
	r.Stop()

	if !finished.Load() {
		t.Fatal("Stop returned before the in-flight run finished")
	}
}
