// Package note holds the freeform notes collection. Notes are created,
// edited, and deleted only by direct user action — the assistant's tool
// dispatcher never touches them.
package note

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natfisher/daybook/internal/storage"
)

// StorageKey is the key the notes collection persists under.
const StorageKey = "notes"

// Palette is the fixed set of display color tags. A note's color is chosen
// once at creation and never changes.
var Palette = []string{"amber", "mint", "sky", "rose", "lavender"}

// Note is a single freeform note.
type Note struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"createdAt"` // epoch millis
}

// Store is the mutex-guarded notes collection, mirrored to kv in full on
// every mutation.
type Store struct {
	mu     sync.Mutex
	notes  []Note
	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a Store mirrored to kv.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger.With("store", "notes")}
}

// Load reads the persisted collection, falling back to empty on corruption.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notes []Note
	if err := storage.LoadJSON(s.kv, StorageKey, &notes); err != nil {
		s.logger.Warn("persisted notes unreadable, starting empty", "error", err)
		s.notes = nil
		return nil
	}
	s.notes = notes
	return nil
}

func (s *Store) persistLocked() {
	if err := storage.SaveJSON(s.kv, StorageKey, s.notes); err != nil {
		s.logger.Error("persist notes failed", "error", err)
	}
}

// List returns all notes in stored order.
func (s *Store) List() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Get returns the note with the given id.
func (s *Store) Get(id string) (Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return Note{}, false
}

// Create appends a note. When color is not one of Palette, a palette color
// is assigned by rotation over the current collection size.
func (s *Store) Create(content, color string) (Note, error) {
	if strings.TrimSpace(content) == "" {
		return Note{}, fmt.Errorf("content must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !validColor(color) {
		color = Palette[len(s.notes)%len(Palette)]
	}

	n := Note{
		ID:        newID(),
		Content:   content,
		Color:     color,
		CreatedAt: time.Now().UnixMilli(),
	}
	s.notes = append(s.notes, n)
	s.persistLocked()
	return n, nil
}

// Update replaces a note's content. Color is fixed at creation.
func (s *Store) Update(id, content string) (Note, error) {
	if strings.TrimSpace(content) == "" {
		return Note{}, fmt.Errorf("content must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notes {
		if n.ID == id {
			s.notes[i].Content = content
			s.persistLocked()
			return s.notes[i], nil
		}
	}
	return Note{}, fmt.Errorf("note %s not found", id)
}

// Delete removes the note with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			s.persistLocked()
			return nil
		}
	}
	return fmt.Errorf("note %s not found", id)
}

func validColor(c string) bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
