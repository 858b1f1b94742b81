package worker

import (
	"errors"
	"testing"
	"time"
)

func TestRunOnceTaskIsolation(t *testing.T) {
	var ran []string
	s := NewScheduler([]Task{
		{Name: "first", Run: func() error {
			ran = append(ran, "first")
			return nil
		}},
		{Name: "failing", Run: func() error {
			ran = append(ran, "failing")
			return errors.New("database unavailable")
		}},
		{Name: "last", Run: func() error {
			ran = append(ran, "last")
			return nil
		}},
	}, time.Minute)

	s.RunOnce()

	if len(ran) != 3 {
		t.Fatalf("ran %d tasks, want 3: %v", len(ran), ran)
	}
	if ran[0] != "first" || ran[1] != "failing" || ran[2] != "last" {
		t.Errorf("tasks ran out of order: %v", ran)
	}
}

func TestStatusRecordsRunsAndErrors(t *testing.T) {
	s := NewScheduler([]Task{
		{Name: "healthy", Run: func() error { return nil }},
		{Name: "broken", Run: func() error { return errors.New("boom") }},
	}, time.Minute)

	before := s.Status()
	for _, status := range before {
		if status.LastRunAt != nil {
			t.Errorf("task %s has a last run before any pass", status.Name)
		}
	}

	s.RunOnce()

	statuses := s.Status()
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	for _, status := range statuses {
		if status.LastRunAt == nil {
			t.Errorf("task %s has no last run after a pass", status.Name)
		}
	}
	if statuses[0].Name != "healthy" || statuses[0].LastError != "" {
		t.Errorf("healthy task status = %+v", statuses[0])
	}
	if statuses[1].Name != "broken" || statuses[1].LastError != "boom" {
		t.Errorf("broken task status = %+v", statuses[1])
	}
}

func TestStatusErrorClearsOnRecovery(t *testing.T) {
	calls := 0
	s := NewScheduler([]Task{
		{Name: "flaky", Run: func() error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		}},
	}, time.Minute)

	s.RunOnce()
	if got := s.Status()[0].LastError; got != "transient" {
		t.Fatalf("after failing pass, last error = %q", got)
	}
	s.RunOnce()
	if got := s.Status()[0].LastError; got != "" {
		t.Errorf("after recovering pass, last error = %q, want empty", got)
	}
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	ticks := make(chan struct{}, 1)
	s := NewScheduler([]Task{
		{Name: "tick", Run: func() error {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return nil
		}},
	}, time.Hour)

	s.Start()
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("first pass did not run on start")
	}
	s.Stop()

	// Stop is idempotent
	s.Stop()
}

func TestDefaultInterval(t *testing.T) {
	s := NewScheduler(nil, 0)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
	s = NewScheduler(nil, -5*time.Second)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
