package ai

import (
	"context"
	"encoding/json"
)

// Unconfigured is the stand-in adapter used when no credential resolves for
// the active provider. Construction always succeeds; every operation fails
// with CredentialMissingError, so callers only observe the problem when a
// call is actually attempted.
type Unconfigured struct {
	Provider string
}

// GenerateContent always fails with CredentialMissingError.
func (u *Unconfigured) GenerateContent(ctx context.Context, prompt, systemInstruction string, tools []ToolDecl) (*Response, error) {
	return nil, &CredentialMissingError{Provider: u.Provider}
}

// GenerateJSON always fails with CredentialMissingError.
func (u *Unconfigured) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	return nil, &CredentialMissingError{Provider: u.Provider}
}
