package assistant

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/natfisher/daybook/internal/ai"
	"github.com/natfisher/daybook/internal/task"
)

// FallbackReply is returned when a response produced no text and no
// acknowledgements, so the user never sees an empty bubble.
const FallbackReply = "Schedule updated."

// Options tunes dispatch behavior.
type Options struct {
	// StrictMatch makes a failed title lookup surface as a visible
	// system line instead of acknowledging the mutation anyway.
	StrictMatch bool
}

// Dispatcher walks a provider response in order, applies recognized tool
// calls against the task store, and assembles the reply the user sees:
// text parts verbatim, each applied call as an inline system line.
type Dispatcher struct {
	tasks  *task.Store
	opts   Options
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher bound to the task store.
func NewDispatcher(tasks *task.Store, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{tasks: tasks, opts: opts, logger: logger.With("component", "dispatch")}
}

// Dispatch executes resp against the store. The returned reply interleaves
// text and acknowledgements in the order the model produced them; mutated
// reports whether any task actually changed.
func (d *Dispatcher) Dispatch(resp *ai.Response) (reply string, mutated bool) {
	var b strings.Builder

	for _, part := range resp.Parts {
		if !part.IsCall() {
			b.WriteString(part.Text)
			continue
		}

		ack, changed := d.apply(part.Call)
		if changed {
			mutated = true
		}
		b.WriteString(ack)
	}

	// Text parts travel untouched, whitespace included; the fallback only
	// covers a response that emitted nothing at all.
	out := b.String()
	if out == "" {
		return FallbackReply, mutated
	}
	return out, mutated
}

// apply executes a single call. Unknown names are ignored without an ack so
// the reply stays clean when the model invents a tool.
func (d *Dispatcher) apply(call *ai.FunctionCall) (ack string, mutated bool) {
	switch call.Name {
	case ToolCreateTask:
		return d.createTask(call)
	case ToolUpdateTaskNotes:
		return d.updateTaskNotes(call)
	case ToolSetAlarm:
		return d.setAlarm(call)
	default:
		d.logger.Warn("unrecognized tool call ignored", "name", call.Name)
		return "", false
	}
}

func (d *Dispatcher) createTask(call *ai.FunctionCall) (string, bool) {
	duration, _ := call.Int("duration")
	t, err := d.tasks.Create(task.CreateParams{
		Title:           call.String("title"),
		Notes:           call.String("notes"),
		Category:        call.String("category"),
		DurationMinutes: duration,
		ReminderTime:    call.String("alarmTime"),
	})
	if err != nil {
		d.logger.Warn("create_task rejected", "error", err)
		return fmt.Sprintf("\n[System: Could not create task: %v]", err), false
	}
	return fmt.Sprintf("\n[System: Created task %q]", t.Title), true
}

func (d *Dispatcher) updateTaskNotes(call *ai.FunctionCall) (string, bool) {
	title := call.String("taskTitle")
	ack := fmt.Sprintf("\n[System: Updated notes for %q]", title)

	t, ok := d.tasks.FindByTitle(title)
	if !ok {
		return d.miss(title, ack)
	}

	var duration *int
	if n, ok := call.Int("duration"); ok {
		duration = &n
	}
	if _, err := d.tasks.SetNotes(t.ID, call.String("notes"), duration); err != nil {
		d.logger.Warn("update_task_notes failed", "task", t.ID, "error", err)
		return "", false
	}
	return ack, true
}

func (d *Dispatcher) setAlarm(call *ai.FunctionCall) (string, bool) {
	title := call.String("taskTitle")
	hhmm := call.String("time")
	ack := fmt.Sprintf("\n[System: Alarm set for %q at %s]", title, hhmm)

	t, ok := d.tasks.FindByTitle(title)
	if !ok {
		return d.miss(title, ack)
	}
	if _, err := d.tasks.SetAlarm(t.ID, hhmm); err != nil {
		d.logger.Warn("set_alarm rejected", "task", t.ID, "error", err)
		return fmt.Sprintf("\n[System: Could not set alarm: %v]", err), false
	}
	return ack, true
}

// miss handles a failed title lookup. The default policy keeps the
// acknowledgement so the conversation reads naturally even when the model
// referenced a task that no longer exists; strict mode surfaces the miss.
func (d *Dispatcher) miss(title, ack string) (string, bool) {
	d.logger.Warn("no task matched title fragment", "fragment", title)
	if d.opts.StrictMatch {
		return fmt.Sprintf("\n[System: No task matching %q]", title), false
	}
	return ack, false
}
