package scheduler

import (
	"context"
	"testing"
	"time"

	hsm "github.com/goliatone/go-hsm"
	"github.com/goliatone/go-hsm/queue"
)

func dequeueWithin(t *testing.T, q *queue.EventQueue, d time.Duration) *hsm.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	for {
		if ctx.Err() != nil {
			t.Fatalf("no event arrived within %v", d)
		}
		if event := q.Dequeue(ctx); event != nil {
			return event
		}
	}
}

func TestSchedulerRequiresEmitter(t *testing.T) {
	_, err := New(nil)
	if err == nil {
		t.Fatal("expected error for nil emitter")
	}
	if !hsm.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestScheduleAfterEmitsOnce(t *testing.T) {
	q := queue.New()
	defer q.Stop()

	s, err := New(q)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Stop()

	if _, err := s.ScheduleAfter(10*time.Millisecond, hsm.NewEvent("timeout", hsm.WithPriority(3))); err != nil {
		t.Fatalf("schedule after: %v", err)
	}

	event := dequeueWithin(t, q, time.Second)
	if event.Name() != "timeout" {
		t.Fatalf("expected timeout event, got %q", event.Name())
	}
	if event.Priority() != 3 {
		t.Fatalf("expected priority preserved, got %d", event.Priority())
	}

	time.Sleep(30 * time.Millisecond)
	if !q.IsEmpty() {
		t.Fatal("delay emission should fire exactly once")
	}
}

func TestScheduleAfterRejectsNilEvent(t *testing.T) {
	q := queue.New()
	defer q.Stop()

	s, err := New(q)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if _, err := s.ScheduleAfter(time.Millisecond, nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}

func TestUnscheduleCancelsPendingEmission(t *testing.T) {
	q := queue.New()
	defer q.Stop()

	s, err := New(q)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Stop()

	h, err := s.ScheduleAfter(50*time.Millisecond, hsm.NewEvent("timeout"))
	if err != nil {
		t.Fatalf("schedule after: %v", err)
	}
	h.Unschedule()
	h.Unschedule() // repeated cancellation is a no-op

	time.Sleep(100 * time.Millisecond)
	if !q.IsEmpty() {
		t.Fatal("cancelled emission should not fire")
	}
}

func TestScheduleCronValidation(t *testing.T) {
	q := queue.New()
	defer q.Stop()

	s, err := New(q, WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Stop()

	if _, err := s.ScheduleCron("", hsm.NewEvent("tick")); err == nil {
		t.Fatal("expected error for empty expression")
	}
	_, err = s.ScheduleCron("not a cron expr", hsm.NewEvent("tick"))
	if err == nil {
		t.Fatal("expected error for malformed expression")
	}
	if !hsm.IsConfigError(err) {
		t.Fatalf("expected config error classification, got %v", err)
	}

	h, err := s.ScheduleCron("* * * * *", hsm.NewEvent("tick"))
	if err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
	h.Unschedule()
}

func TestStopCancelsPendingEmissions(t *testing.T) {
	q := queue.New()
	defer q.Stop()

	s, err := New(q)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.Start()
	s.Start() // idempotent

	if _, err := s.ScheduleAfter(50*time.Millisecond, hsm.NewEvent("timeout")); err != nil {
		t.Fatalf("schedule after: %v", err)
	}
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	if !q.IsEmpty() {
		t.Fatal("stop should cancel pending emissions")
	}
}
