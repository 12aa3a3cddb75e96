package ai

import "fmt"

// CredentialMissingError means no usable secret is configured for the
// active provider. Recoverable by configuration, never fatal.
type CredentialMissingError struct {
	Provider string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("no API key configured for provider %q", e.Provider)
}

// HTTPError is a non-success transport response from a provider. Surfaced
// verbatim; the body is never interpreted beyond a bounded snippet.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider HTTP error %d: %s", e.Status, e.StatusText)
}

// MalformedToolArgumentsError means the vendor returned a function
// invocation whose argument payload is not parseable JSON. The failure is
// scoped to that one invocation: adapters drop it and keep processing, and
// only return this error when nothing usable remains in the reply.
type MalformedToolArgumentsError struct {
	Call string
	Raw  string
}

func (e *MalformedToolArgumentsError) Error() string {
	return fmt.Sprintf("tool call %q: arguments are not valid JSON", e.Call)
}
