package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSink struct {
	name string

	mu        sync.Mutex
	attempts  int
	failTimes int
	delay     time.Duration
	delivered []*Job
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Deliver(ctx context.Context, job *Job) error {
	f.mu.Lock()
	f.attempts++
	attempt := f.attempts
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if attempt <= f.failTimes {
		return errors.New("simulated failure")
	}

	f.mu.Lock()
	f.delivered = append(f.delivered, job)
	f.mu.Unlock()
	return nil
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	q := New(2, 1, time.Millisecond, nil)

	q.Enqueue(&Job{PatternName: "a"})
	q.Enqueue(&Job{PatternName: "b"})
	q.Enqueue(&Job{PatternName: "c"}) // should evict "a"

	var got []string
	for {
		job, _ := q.pop()
		if job == nil {
			break
		}
		got = append(got, job.PatternName)
	}

	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("expected [b c] after dropping the oldest, got %v", got)
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected 1 dropped job, got %d", q.Dropped())
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	q := New(8, 5, time.Millisecond, nil)
	sink := &fakeSink{name: "test", failTimes: 2}
	q.Register("test", sink)

	var sent int32
	q.OnSent(func(job *Job) { atomic.AddInt32(&sent, 1) })

	job := &Job{SinkSelector: "test", PatternName: "p"}
	q.deliver(context.Background(), job)

	if atomic.LoadInt32(&sent) != 1 {
		t.Fatalf("expected OnSent to fire once, got %d", sent)
	}
	if sink.attempts != 3 {
		t.Fatalf("expected 3 attempts (2 failures + 1 success), got %d", sink.attempts)
	}
}

func TestDeliverGivesUpAfterMaxRetries(t *testing.T) {
	q := New(8, 3, time.Millisecond, nil)
	sink := &fakeSink{name: "test", failTimes: 999}
	q.Register("test", sink)

	var sent int32
	q.OnSent(func(job *Job) { atomic.AddInt32(&sent, 1) })

	job := &Job{SinkSelector: "test", PatternName: "p"}
	q.deliver(context.Background(), job)

	if sink.attempts != 3 {
		t.Fatalf("expected exactly maxRetries=3 attempts, got %d", sink.attempts)
	}
	if atomic.LoadInt32(&sent) != 0 {
		t.Fatalf("expected OnSent not to fire on a job that never succeeds")
	}
}

func TestDeliverCallsOnFailedAfterExhaustingRetries(t *testing.T) {
	q := New(8, 2, time.Millisecond, nil)
	sink := &fakeSink{name: "test", failTimes: 999}
	q.Register("test", sink)

	var failedName string
	var failedCount int32
	q.OnFailed(func(job *Job, sinkName string) {
		atomic.AddInt32(&failedCount, 1)
		failedName = sinkName
	})

	job := &Job{SinkSelector: "test", PatternName: "p"}
	q.deliver(context.Background(), job)

	if atomic.LoadInt32(&failedCount) != 1 {
		t.Fatalf("expected OnFailed to fire exactly once, got %d", failedCount)
	}
	if failedName != "test" {
		t.Fatalf("expected OnFailed to receive the sink name, got %q", failedName)
	}
}

func TestDeliverDoesNotCallOnFailedOnSuccess(t *testing.T) {
	q := New(8, 2, time.Millisecond, nil)
	sink := &fakeSink{name: "test"}
	q.Register("test", sink)

	var failedCount int32
	q.OnFailed(func(job *Job, sinkName string) { atomic.AddInt32(&failedCount, 1) })

	job := &Job{SinkSelector: "test", PatternName: "p"}
	q.deliver(context.Background(), job)

	if atomic.LoadInt32(&failedCount) != 0 {
		t.Fatalf("expected OnFailed not to fire on a successful delivery, got %d", failedCount)
	}
}

func TestDeliverUnregisteredSelectorIsDropped(t *testing.T) {
	q := New(8, 3, time.Millisecond, nil)
	job := &Job{SinkSelector: "nobody-home"}
	// must not panic
	q.deliver(context.Background(), job)
}

func TestStartAndStopDrainsPendingWork(t *testing.T) {
	q := New(8, 1, time.Millisecond, nil)
	sink := &fakeSink{name: "test"}
	q.Register("test", sink)

	ctx := context.Background()
	q.Start(ctx, 2)

	for i := 0; i < 5; i++ {
		q.Enqueue(&Job{SinkSelector: "test"})
	}

	if err := q.Stop(2 * time.Second); err != nil {
		t.Fatalf("expected a clean drain, got %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.delivered) != 5 {
		t.Fatalf("expected all 5 jobs delivered, got %d", len(sink.delivered))
	}
}

func TestStopTimesOutOnSlowSink(t *testing.T) {
	q := New(8, 1, time.Millisecond, nil)
	sink := &fakeSink{name: "slow", delay: 500 * time.Millisecond}
	q.Register("slow", sink)

	ctx := context.Background()
	q.Start(ctx, 1)
	q.Enqueue(&Job{SinkSelector: "slow"})

	// give the worker a moment to pick the job up before we ask it to stop
	time.Sleep(20 * time.Millisecond)

	err := q.Stop(10 * time.Millisecond)
	if err == nil {
		t.Fatal("expected Stop to time out while the sink is still mid-delivery")
	}
}

func TestEnqueueAfterStopIsRejected(t *testing.T) {
	q := New(8, 1, time.Millisecond, nil)
	q.Start(context.Background(), 1)
	if err := q.Stop(time.Second); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	if ok := q.Enqueue(&Job{}); ok {
		t.Fatal("expected Enqueue to reject work after Stop")
	}
}
