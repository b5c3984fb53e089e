// Package scheduler runs named tasks on fixed minute intervals and disables tasks
// that keep failing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MaxFailureMargin is how far errors may outnumber successes before a task is disabled.
const MaxFailureMargin = 5

// TaskFunc is one invocation of a task.
type TaskFunc func(ctx context.Context) error

// Task is a named recurring unit of work.
type Task struct {
	Name            string
	IntervalMinutes int
	Enabled         bool
	Execute         TaskFunc
}

// TaskStatus is a read-only view of a task.
type TaskStatus struct {
	Name            string     `json:"name"`
	IntervalMinutes int        `json:"interval_minutes"`
	Enabled         bool       `json:"enabled"`
	Scheduled       bool       `json:"scheduled"`
	Running         bool       `json:"running"`
	SuccessCount    int        `json:"success_count"`
	ErrorCount      int        `json:"error_count"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	LastSuccess     *time.Time `json:"last_success,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	LastErrorAt     *time.Time `json:"last_error_at,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
}

// ErrTaskNotFound is returned for unknown task names.
var ErrTaskNotFound = errors.New("task not found")

type taskState struct {
	task         Task
	entryID      cron.EntryID
	scheduled    bool
	running      bool
	successCount int
	errorCount   int
	lastRun      *time.Time
	lastSuccess  *time.Time
	lastError    string
	lastErrorAt  *time.Time
}

// Scheduler owns the cron runner and the task table.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tasks   map[string]*taskState
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tasks:  make(map[string]*taskState),
		ctx:    context.Background(),
		now:    time.Now,
		logger: logger,
	}
}

// AddTask registers a task. It is scheduled right away if the scheduler is running.
func (s *Scheduler) AddTask(task Task) error {
	if task.Name == "" {
		return errors.New("task name is required")
	}
	if task.IntervalMinutes < 1 {
		return fmt.Errorf("task %s: interval must be at least 1 minute", task.Name)
	}
	if task.Execute == nil {
		return fmt.Errorf("task %s: execute function is required", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.Name]; exists {
		return fmt.Errorf("task %s already exists", task.Name)
	}
	st := &taskState{task: task}
	s.tasks[task.Name] = st
	s.order = append(s.order, task.Name)
	if s.started && task.Enabled {
		return s.schedule(st)
	}
	return nil
}

// RemoveTask unschedules and forgets a task.
func (s *Scheduler) RemoveTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}
	s.unschedule(st)
	delete(s.tasks, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// EnableTask enables a task and resets its counters.
func (s *Scheduler) EnableTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}
	st.task.Enabled = true
	st.successCount = 0
	st.errorCount = 0
	if s.started {
		return s.schedule(st)
	}
	return nil
}

// DisableTask disables a task. A run already in progress finishes.
func (s *Scheduler) DisableTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}
	st.task.Enabled = false
	s.unschedule(st)
	return nil
}

// Start schedules every enabled task. ctx is passed to task invocations and
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		st := s.tasks[name]
		if !st.task.Enabled {
			continue
		}
		if err := s.schedule(st); err != nil {
			s.cancel()
			return err
		}
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("tasks", len(s.tasks)))
	return nil
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	for _, st := range s.tasks {
		s.unschedule(st)
	}
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow invokes a task immediately and returns its error. Counters and the
// auto-disable rule apply as for scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	_, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}
	return s.execute(ctx, name, true)
}

// GetTaskStatus returns every task in registration order.
func (s *Scheduler) GetTaskStatus() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.order))
	for _, name := range s.order {
		st := s.tasks[name]
		status := TaskStatus{
			Name:            st.task.Name,
			IntervalMinutes: st.task.IntervalMinutes,
			Enabled:         st.task.Enabled,
			Scheduled:       st.scheduled,
			Running:         st.running,
			SuccessCount:    st.successCount,
			ErrorCount:      st.errorCount,
			LastRun:         st.lastRun,
			LastSuccess:     st.lastSuccess,
			LastError:       st.lastError,
			LastErrorAt:     st.lastErrorAt,
		}
		if st.task.Enabled && st.lastRun != nil {
			next := st.lastRun.Add(time.Duration(st.task.IntervalMinutes) * time.Minute)
			status.NextRun = &next
		}
		out = append(out, status)
	}
	return out
}

// schedule adds a cron entry for st. Callers hold s.mu.
func (s *Scheduler) schedule(st *taskState) error {
	if st.scheduled {
		return nil
	}
	name := st.task.Name
	spec := fmt.Sprintf("@every %dm", st.task.IntervalMinutes)
	id, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		_ = s.execute(ctx, name, false)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", name, err)
	}
	st.entryID = id
	st.scheduled = true
	return nil
}

// unschedule removes st's cron entry. Callers hold s.mu.
func (s *Scheduler) unschedule(st *taskState) {
	if !st.scheduled {
		return
	}
	s.cron.Remove(st.entryID)
	st.scheduled = false
}

func (s *Scheduler) execute(ctx context.Context, name string, manual bool) error {
	s.mu.Lock()
	st, ok := s.tasks[name]
	if !ok || (!manual && !st.task.Enabled) {
		s.mu.Unlock()
		return nil
	}
	started := s.now()
	st.lastRun = &started
	st.running = true
	fn := st.task.Execute
	s.mu.Unlock()

	err := invoke(ctx, fn)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.running = false
	finished := s.now()
	logger := s.logger.With(zap.String("task", name))

	if err == nil {
		st.successCount++
		st.lastSuccess = &finished
		logger.Debug("Scheduled task succeeded", zap.Duration("duration", finished.Sub(started)))
		return nil
	}

	st.errorCount++
	st.lastError = err.Error()
	st.lastErrorAt = &finished
	logger.Error("Scheduled task failed", zap.Error(err), zap.Int("error_count", st.errorCount))

	if st.task.Enabled && st.errorCount-st.successCount > MaxFailureMargin {
		st.task.Enabled = false
		s.unschedule(st)
		logger.Warn("Task disabled after repeated failures",
			zap.Int("error_count", st.errorCount),
			zap.Int("success_count", st.successCount))
	}
	return err
}

// invoke calls fn, turning a panic into an error.
func invoke(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return fn(ctx)
}
