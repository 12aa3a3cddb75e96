// Package profile holds the single user's profile and feedback log.
package profile

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natfisher/daybook/internal/storage"
)

// Storage keys.
const (
	ProfileKey  = "profile"
	FeedbackKey = "feedback"
)

// Profile is the single-user identity record.
type Profile struct {
	Name     string `json:"name"`
	Mantra   string `json:"mantra"`
	JoinedAt int64  `json:"joinedAt"` // epoch millis
}

// Feedback is one free-text feedback entry.
type Feedback struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Store guards the profile and feedback log, mirroring both to kv.
type Store struct {
	mu       sync.Mutex
	profile  Profile
	feedback []Feedback
	kv       storage.KV
	logger   *slog.Logger
}

// NewStore creates a Store mirrored to kv.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger.With("store", "profile")}
}

// Load reads both keys, falling back to typed defaults on missing or
// corrupt values.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Profile{JoinedAt: time.Now().UnixMilli()}
	if err := storage.LoadJSON(s.kv, ProfileKey, &p); err != nil {
		s.logger.Warn("persisted profile unreadable, using defaults", "error", err)
		p = Profile{JoinedAt: time.Now().UnixMilli()}
	}
	s.profile = p

	var fb []Feedback
	if err := storage.LoadJSON(s.kv, FeedbackKey, &fb); err != nil {
		s.logger.Warn("persisted feedback unreadable, starting empty", "error", err)
		fb = nil
	}
	s.feedback = fb
	return nil
}

// Profile returns the current profile.
func (s *Store) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetProfile replaces name and mantra. JoinedAt is preserved.
func (s *Store) SetProfile(name, mantra string) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile.Name = name
	s.profile.Mantra = mantra
	if err := storage.SaveJSON(s.kv, ProfileKey, s.profile); err != nil {
		s.logger.Error("persist profile failed", "error", err)
	}
	return s.profile
}

// AddFeedback appends a feedback entry.
func (s *Store) AddFeedback(text string) (Feedback, error) {
	if strings.TrimSpace(text) == "" {
		return Feedback{}, fmt.Errorf("feedback text must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := Feedback{
		ID:        newID(),
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}
	s.feedback = append(s.feedback, f)
	if err := storage.SaveJSON(s.kv, FeedbackKey, s.feedback); err != nil {
		s.logger.Error("persist feedback failed", "error", err)
	}
	return f, nil
}

// Feedback returns the full feedback log in append order.
func (s *Store) Feedback() []Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
