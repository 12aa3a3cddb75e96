package task

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natfisher/daybook/internal/storage"
)

// StorageKey is the key the task collection persists under.
const StorageKey = "tasks"

// NewID generates a new UUIDv7 (falls back to v4).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Store is the mutex-guarded authoritative task collection. Every mutation
// replaces the persisted collection in full; reads return copies so callers
// never share memory with the store.
type Store struct {
	mu     sync.Mutex
	tasks  []Task
	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a Store mirrored to kv.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger.With("store", "tasks")}
}

// Load reads the persisted collection. A corrupt value falls back to an
// empty collection so startup never halts on bad state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []Task
	if err := storage.LoadJSON(s.kv, StorageKey, &tasks); err != nil {
		s.logger.Warn("persisted tasks unreadable, starting empty", "error", err)
		s.tasks = nil
		return nil
	}
	s.tasks = tasks
	return nil
}

// persistLocked writes the full collection. Callers hold s.mu.
func (s *Store) persistLocked() {
	if err := storage.SaveJSON(s.kv, StorageKey, s.tasks); err != nil {
		s.logger.Error("persist tasks failed", "error", err)
	}
}

// List returns all tasks in stored order.
func (s *Store) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// CreateParams are the caller-supplied fields for a new task.
type CreateParams struct {
	Title           string
	Notes           string
	Category        string
	Priority        string
	DurationMinutes int
	ReminderTime    string // enables the alarm when non-empty
}

// Create appends a new task and persists the collection.
func (s *Store) Create(p CreateParams) (Task, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Task{}, fmt.Errorf("title must not be empty")
	}
	if p.DurationMinutes < 0 {
		return Task{}, fmt.Errorf("duration must not be negative")
	}
	if err := ValidateReminder(p.ReminderTime); err != nil {
		return Task{}, err
	}

	t := Task{
		ID:              NewID(),
		Title:           title,
		Notes:           p.Notes,
		Category:        NormalizeCategory(p.Category),
		Priority:        NormalizePriority(p.Priority),
		DurationMinutes: p.DurationMinutes,
		ReminderTime:    p.ReminderTime,
		AlarmEnabled:    p.ReminderTime != "",
		CreatedAt:       time.Now().UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	s.persistLocked()
	return t, nil
}

// UpdateParams are optional field overrides; nil means unchanged.
type UpdateParams struct {
	Title           *string
	Notes           *string
	Category        *string
	Priority        *string
	DurationMinutes *int
	ReminderTime    *string // "" clears the reminder and disables the alarm
}

// Update applies p to the task with the given id.
func (s *Store) Update(id string, p UpdateParams) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s not found", id)
	}

	t := s.tasks[i]
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Task{}, fmt.Errorf("title must not be empty")
		}
		t.Title = title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Category != nil {
		t.Category = NormalizeCategory(*p.Category)
	}
	if p.Priority != nil {
		t.Priority = NormalizePriority(*p.Priority)
	}
	if p.DurationMinutes != nil {
		if *p.DurationMinutes < 0 {
			return Task{}, fmt.Errorf("duration must not be negative")
		}
		t.DurationMinutes = *p.DurationMinutes
	}
	if p.ReminderTime != nil {
		if err := ValidateReminder(*p.ReminderTime); err != nil {
			return Task{}, err
		}
		// Reminder and alarm flag move together (invariant).
		t.ReminderTime = *p.ReminderTime
		t.AlarmEnabled = *p.ReminderTime != ""
	}

	s.tasks[i] = t
	s.persistLocked()
	return t, nil
}

// Toggle flips the completed flag.
func (s *Store) Toggle(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s not found", id)
	}

	s.tasks[i].Completed = !s.tasks[i].Completed
	s.persistLocked()
	return s.tasks[i], nil
}

// Delete removes the task with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("task %s not found", id)
	}

	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.persistLocked()
	return nil
}

// SetNotes overwrites a task's notes, and its duration when non-nil.
func (s *Store) SetNotes(id, notes string, duration *int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s not found", id)
	}

	s.tasks[i].Notes = notes
	if duration != nil && *duration >= 0 {
		s.tasks[i].DurationMinutes = *duration
	}
	s.persistLocked()
	return s.tasks[i], nil
}

// SetAlarm sets the reminder time and enables the alarm in one mutation.
func (s *Store) SetAlarm(id, hhmm string) (Task, error) {
	if err := ValidateReminder(hhmm); err != nil {
		return Task{}, err
	}
	if hhmm == "" {
		return Task{}, fmt.Errorf("alarm time must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s not found", id)
	}

	s.tasks[i].ReminderTime = hhmm
	s.tasks[i].AlarmEnabled = true
	s.persistLocked()
	return s.tasks[i], nil
}

// FindByTitle returns the first task (in stored order) whose title contains
// fragment, case-insensitively. This fuzzy match tolerates the assistant
// paraphrasing titles.
func (s *Store) FindByTitle(fragment string) (Task, bool) {
	needle := strings.ToLower(fragment)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return t, true
		}
	}
	return Task{}, false
}

// Summary returns task counts per category, for the distribution chart.
func (s *Store) Summary() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]int{
		CategoryPrivate:       0,
		CategoryEducation:     0,
		CategoryEntertainment: 0,
		CategoryOthers:        0,
	}
	for _, t := range s.tasks {
		out[NormalizeCategory(t.Category)]++
	}
	return out
}

// Counts returns (open, completed) task totals.
func (s *Store) Counts() (open, done int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Completed {
			done++
		} else {
			open++
		}
	}
	return open, done
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
