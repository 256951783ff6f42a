// Package scheduler runs background maintenance tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const taskTimeout = 5 * time.Minute

// Task is a named job run on Schedule, which is a cron expression
// ("0 3 * * *", "@hourly") or a Go duration ("30m").
type Task struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler runs registered tasks until stopped. Tasks added before Start
// begin firing once it is called.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	tasks   []string
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger}
}

// Add registers task.
func (s *Scheduler) Add(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("scheduler: task %q has no run function", task.Name)
	}
	schedule, err := ParseSchedule(task.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: task %q: %w", task.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(task) }))
	s.tasks = append(s.tasks, task.Name)
	s.logger.Info("scheduled task added", "task", task.Name, "schedule", task.Schedule)
	return nil
}

func (s *Scheduler) run(task Task) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	start := time.Now()
	if err := task.Run(taskCtx); err != nil {
		s.logger.Warn("scheduled task failed", "task", task.Name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("scheduled task completed", "task", task.Name, "duration", time.Since(start))
}

// Tasks returns the names of the registered tasks.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tasks...)
}

// Start begins firing tasks. Task contexts derive from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// ParseSchedule accepts a standard five-field cron expression, a descriptor
// such as "@daily", or a positive duration.
func ParseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	d, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return cron.Every(d), nil
}
