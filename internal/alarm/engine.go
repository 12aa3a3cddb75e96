// Package alarm polls the task collection and raises a single active alarm
// when a task's reminder time matches the current wall-clock minute.
package alarm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/natfisher/daybook/internal/task"
)

// firedKeyLayout identifies one calendar minute, so a dismissed alarm does
// not immediately re-raise within the same minute but fires again the next
// day.
const firedKeyLayout = "2006-01-02 15:04"

// Engine checks reminder times once a second. At most one alarm is active
// at a time; new matches wait until the current one is dismissed.
type Engine struct {
	tasks  *task.Store
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time

	// onFire, when set, is called outside the lock with the ringing task.
	onFire func(task.Task)

	mu     sync.Mutex
	active *task.Task
	fired  map[string]string // task ID -> minute it last fired
}

// NewEngine creates an Engine over the task store. onFire may be nil.
func NewEngine(tasks *task.Store, onFire func(task.Task), logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tasks:  tasks,
		logger: logger.With("component", "alarm"),
		now:    time.Now,
		onFire: onFire,
		fired:  map[string]string{},
	}
}

// Run ticks once a second until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Check()
		}
	}
}

// Check scans for a task due this minute and raises it. It is a no-op while
// an alarm is already ringing.
func (e *Engine) Check() {
	now := e.now()
	minute := now.Format("15:04")
	key := now.Format(firedKeyLayout)

	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	for _, t := range e.tasks.List() {
		if !t.AlarmEnabled || t.Completed || t.ReminderTime != minute {
			continue
		}

		e.mu.Lock()
		if e.active != nil || e.fired[t.ID] == key {
			e.mu.Unlock()
			continue
		}
		ringing := t
		e.active = &ringing
		e.fired[t.ID] = key
		e.mu.Unlock()

		e.logger.Info("alarm raised", "task", t.ID, "title", t.Title, "time", t.ReminderTime)
		if e.onFire != nil {
			e.onFire(t)
		}
		return
	}
}

// Active returns the ringing task, if any.
func (e *Engine) Active() (task.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return task.Task{}, false
	}
	return *e.active, true
}

// Dismiss silences the active alarm and re-arms the engine.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		e.logger.Info("alarm dismissed", "task", e.active.ID)
		e.active = nil
	}
}
