// Package assistant runs the conversational layer: it assembles prompts
// from the user's message and current schedule, sends them through the
// active provider adapter, and dispatches any tool calls the model makes
// against the task store.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/natfisher/daybook/internal/ai"
	"github.com/natfisher/daybook/internal/task"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry in the conversation transcript.
type Turn struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

const systemInstruction = `You are Daybook, a friendly personal productivity assistant.
You help the user manage their daily schedule: you can create tasks, update
task notes, and set reminder alarms using the tools provided. The user's
current tasks are included with every message. Keep replies short and warm.
When the user asks for a change, call the matching tool rather than
describing what you would do. Times are 24-hour HH:mm.`

// Service ties the provider selector, the task store, and the dispatcher
// together and owns the in-memory conversation transcript.
type Service struct {
	selector *ai.Selector
	tasks    *task.Store
	dispatch *Dispatcher
	logger   *slog.Logger

	mu    sync.Mutex
	turns []Turn
}

// NewService creates the conversational service.
func NewService(selector *ai.Selector, tasks *task.Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		selector: selector,
		tasks:    tasks,
		dispatch: NewDispatcher(tasks, opts, logger),
		logger:   logger.With("component", "assistant"),
	}
}

// buildPrompt carries the user's message together with the full serialized
// schedule, so the model always reasons over current state.
func (s *Service) buildPrompt(message string) string {
	tasks := s.tasks.List()
	blob, err := json.Marshal(tasks)
	if err != nil {
		blob = []byte("[]")
	}
	return fmt.Sprintf("Current tasks (JSON):\n%s\n\nUser message:\n%s", blob, message)
}

// GetResponse sends one message through the active provider and returns the
// raw normalized response without dispatching it.
func (s *Service) GetResponse(ctx context.Context, message string) (*ai.Response, error) {
	return s.selector.Client().GenerateContent(ctx, s.buildPrompt(message), systemInstruction, Declarations())
}

// GenerateJSON asks the active provider for a schema-constrained JSON
// document. Used by the schedule optimizer.
func (s *Service) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	return s.selector.Client().GenerateJSON(ctx, prompt, schema)
}

// Chat runs one conversational round trip: records the user turn, queries
// the provider, dispatches tool calls, and records the assistant turn.
// Provider failures never surface as errors; they are rendered into the
// transcript so the conversation stays coherent.
func (s *Service) Chat(ctx context.Context, message string) (reply string, mutated bool) {
	s.append(RoleUser, message)

	resp, err := s.GetResponse(ctx, message)
	if err != nil {
		reply = renderError(err)
		s.logger.Warn("chat round trip failed", "error", err)
		s.append(RoleAssistant, reply)
		return reply, false
	}

	reply, mutated = s.dispatch.Dispatch(resp)
	s.append(RoleAssistant, reply)
	return reply, mutated
}

// History returns a copy of the transcript, oldest first.
func (s *Service) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Service) append(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{Role: role, Text: text, CreatedAt: time.Now().UnixMilli()})
}

// renderError turns a provider failure into something the user can act on.
// A missing credential gets a setup hint; everything else is shown as-is.
func renderError(err error) string {
	var missing *ai.CredentialMissingError
	if errors.As(err, &missing) {
		return fmt.Sprintf("I'm not connected to an AI provider yet. Add your %s API key in Settings and try again.", missing.Provider)
	}
	return fmt.Sprintf("Sorry, something went wrong: %v", err)
}
