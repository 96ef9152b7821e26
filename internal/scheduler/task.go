package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job does the work of one run. The returned apply func publishes the result; it is only
// called if the task is still running when the job returns. apply must not call Start or Stop.
type Job func(ctx context.Context) (apply func(), err error)

// Task runs a Job immediately and then on a fixed interval until stopped.
type Task struct {
	name     string
	interval time.Duration
	job      Job
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask creates a stopped task.
func NewTask(name string, interval time.Duration, job Job, logger *slog.Logger) *Task {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Task{name: name, interval: interval, job: job, logger: logger}
}

// Start launches the task. It is a no-op if the task is already running.
// Cancelling ctx has the same effect as Stop.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.gen++
	t.cancel = cancel
	t.done = make(chan struct{})
	t.logger.Debug("Task: started", "task", t.name, "interval", t.interval)
	go t.loop(ctx, t.gen, t.done)
}

// Stop cancels the in-flight run, discards its result and waits for the loop to exit.
func (t *Task) Stop() {
	t.mu.Lock()
	if t.cancel == nil {
		t.mu.Unlock()
		return
	}
	t.gen++
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	cancel()
	<-done
	t.logger.Debug("Task: stopped", "task", t.name)
}

// Running reports whether the task loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Task) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer t.release(gen)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		t.runOnce(ctx, gen)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Task) runOnce(ctx context.Context, gen uint64) {
	apply, err := t.job(ctx)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Error("Task: run failed", "task", t.name, "error", err)
		}
		return
	}
	if apply == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || ctx.Err() != nil {
		t.logger.Debug("Task: discarding result of stopped run", "task", t.name)
		return
	}
	apply()
}

// release clears the running state when the loop ends because its parent context was
// cancelled rather than through Stop.
func (t *Task) release(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen == gen && t.cancel != nil {
		t.cancel()
		t.gen++
		t.cancel, t.done = nil, nil
	}
}
