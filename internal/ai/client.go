package ai

import (
	"context"
	"encoding/json"
)

// Client is the capability set every provider adapter implements. New
// vendors are added by implementing this pair, never by modifying callers.
type Client interface {
	// GenerateContent sends a natural-language prompt, optionally with a
	// system instruction and tool declarations, and returns the canonical
	// response.
	GenerateContent(ctx context.Context, prompt, systemInstruction string, tools []ToolDecl) (*Response, error)

	// GenerateJSON requests a structured reply conforming to schema (a
	// JSON-schema object map, may be nil) and returns the raw JSON value.
	GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error)
}
