package worker

import (
	"log"
	"sync"
	"time"
)

// DefaultInterval is how long the scheduler sleeps between passes
const DefaultInterval = 60 * time.Second

// Task is one named unit of scheduler work. Run returns an error instead of
// panicking; the scheduler logs it and moves on to the next task.
type Task struct {
	Name string
	Run  func() error
}

// TaskStatus reports the last outcome of one task
type TaskStatus struct {
	Name      string     `json:"name"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Scheduler runs its tasks sequentially on a fixed interval in one background
// goroutine. A failing task never stops the others or the loop.
type Scheduler struct {
	tasks    []Task
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	statuses map[string]*TaskStatus
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

// NewScheduler creates a scheduler over the given tasks; interval <= 0 uses
// the default
func NewScheduler(tasks []Task, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	statuses := make(map[string]*TaskStatus, len(tasks))
	for _, t := range tasks {
		statuses[t.Name] = &TaskStatus{Name: t.Name}
	}
	return &Scheduler{
		tasks:    tasks,
		interval: interval,
		now:      time.Now,
		statuses: statuses,
	}
}

// Start spawns the scheduler goroutine; the first pass runs immediately
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	log.Printf("[SCHEDULER] Started with %d tasks (interval: %v)", len(s.tasks), s.interval)
	go s.run()
}

// Stop signals the loop and waits for the in-flight pass to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
	log.Println("[SCHEDULER] Stopped")
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-s.stopChan:
			return
		}
	}
}

// RunOnce executes every task once, in order. Exposed for the manual-tick
// endpoint and tests.
func (s *Scheduler) RunOnce() {
	started := s.now()
	for _, task := range s.tasks {
		err := task.Run()
		at := s.now()

		s.mu.Lock()
		status := s.statuses[task.Name]
		status.LastRunAt = &at
		if err != nil {
			status.LastError = err.Error()
		} else {
			status.LastError = ""
		}
		s.mu.Unlock()

		if err != nil {
			log.Printf("[SCHEDULER] Task %s failed: %v", task.Name, err)
		}
	}
	log.Printf("[SCHEDULER] Pass completed in %v", s.now().Sub(started))
}

// Status reports each task's last run time and error, in task order
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		status := *s.statuses[t.Name]
		if status.LastRunAt != nil {
			at := *status.LastRunAt
			status.LastRunAt = &at
		}
		out = append(out, status)
	}
	return out
}
