package alarm

import (
	"testing"
	"time"

	"github.com/natfisher/daybook/internal/storage"
	"github.com/natfisher/daybook/internal/task"
)

type memKV struct {
	data map[string][]byte
}

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Close() error { return nil }

var _ storage.KV = (*memKV)(nil)

func newTestStore(t *testing.T) *task.Store {
	t.Helper()
	s := task.NewStore(&memKV{data: map[string][]byte{}}, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	return s
}

// at returns a clock frozen at the given HH:mm today.
func at(hhmm string) func() time.Time {
	parsed, _ := time.Parse("15:04", hhmm)
	now := time.Now()
	return func() time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.Local)
	}
}

func TestEngineFiresAtReminderTime(t *testing.T) {
	store := newTestStore(t)
	created, err := store.Create(task.CreateParams{
		Title: "Standup", Category: "Others", DurationMinutes: 15, ReminderTime: "09:00",
	})
	if err != nil {
		t.Fatal(err)
	}

	var fired []string
	e := NewEngine(store, func(tk task.Task) { fired = append(fired, tk.ID) }, nil)

	e.now = at("08:59")
	e.Check()
	if _, ok := e.Active(); ok {
		t.Fatal("alarm active before reminder time")
	}

	e.now = at("09:00")
	e.Check()
	active, ok := e.Active()
	if !ok || active.ID != created.ID {
		t.Fatalf("active = %+v ok=%v", active, ok)
	}
	if len(fired) != 1 {
		t.Errorf("onFire calls = %d, want 1", len(fired))
	}

	// Repeated ticks within the minute do not re-fire.
	e.Check()
	e.Check()
	if len(fired) != 1 {
		t.Errorf("onFire calls after re-check = %d, want 1", len(fired))
	}
}

func TestEngineNoRetriggerUndismissed(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(task.CreateParams{
		Title: "Standup", Category: "Others", DurationMinutes: 15, ReminderTime: "09:00",
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(store, nil, nil)
	e.now = at("09:00")
	e.Check()
	if _, ok := e.Active(); !ok {
		t.Fatal("alarm not raised")
	}

	// The minute rolls over but the alarm is still ringing: stay put.
	e.now = at("09:01")
	e.Check()
	active, _ := e.Active()
	if active.Title != "Standup" {
		t.Errorf("active = %+v", active)
	}
}

func TestEngineDismissRearms(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(task.CreateParams{
		Title: "A", Category: "Others", DurationMinutes: 5, ReminderTime: "09:00",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(task.CreateParams{
		Title: "B", Category: "Others", DurationMinutes: 5, ReminderTime: "09:01",
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(store, nil, nil)
	e.now = at("09:00")
	e.Check()
	active, _ := e.Active()
	if active.Title != "A" {
		t.Fatalf("active = %+v, want A", active)
	}

	// B's minute arrives while A rings: B must wait for the dismissal.
	e.now = at("09:01")
	e.Check()
	active, _ = e.Active()
	if active.Title != "A" {
		t.Fatalf("active = %+v, want A still ringing", active)
	}

	e.Dismiss()
	e.Check()
	active, ok := e.Active()
	if !ok || active.Title != "B" {
		t.Errorf("active = %+v ok=%v, want B after dismissal", active, ok)
	}
}

func TestEngineDismissedAlarmDoesNotRefireSameMinute(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(task.CreateParams{
		Title: "Standup", Category: "Others", DurationMinutes: 15, ReminderTime: "09:00",
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(store, nil, nil)
	e.now = at("09:00")
	e.Check()
	e.Dismiss()
	e.Check()
	if _, ok := e.Active(); ok {
		t.Error("alarm re-raised within the same minute after dismissal")
	}
}

func TestEngineSkipsCompletedAndDisabled(t *testing.T) {
	store := newTestStore(t)
	done, err := store.Create(task.CreateParams{
		Title: "Done already", Category: "Others", DurationMinutes: 5, ReminderTime: "09:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Toggle(done.ID); err != nil {
		t.Fatal(err)
	}
	// No reminder time means the alarm flag is off.
	if _, err := store.Create(task.CreateParams{
		Title: "No alarm", Category: "Others", DurationMinutes: 5,
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(store, nil, nil)
	e.now = at("09:00")
	e.Check()
	if _, ok := e.Active(); ok {
		t.Error("alarm raised for completed or alarm-disabled task")
	}
}

func TestEngineDuplicateMinuteFirstInOrder(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(task.CreateParams{
		Title: "First", Category: "Others", DurationMinutes: 5, ReminderTime: "09:00",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(task.CreateParams{
		Title: "Second", Category: "Others", DurationMinutes: 5, ReminderTime: "09:00",
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(store, nil, nil)
	e.now = at("09:00")
	e.Check()
	active, _ := e.Active()
	if active.Title != "First" {
		t.Errorf("active = %+v, want the first task in stored order", active)
	}
}
