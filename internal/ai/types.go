// Package ai provides the provider-neutral assistant client layer: a
// canonical response shape, one adapter per vendor wire format, and a
// selector that resolves the active adapter from configuration.
package ai

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Part is one element of a canonical response. Exactly one of Text or Call
// is set — a tagged union rather than a vendor-shaped struct, so the
// dispatcher never sees provider schema.
type Part struct {
	Text string        `json:"text,omitempty"`
	Call *FunctionCall `json:"functionCall,omitempty"`
}

// IsCall reports whether the part carries a function invocation.
func (p Part) IsCall() bool { return p.Call != nil }

// FunctionCall is a structured invocation requested by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// String returns args[key] as a string, or "" when absent or non-string.
func (c *FunctionCall) String(key string) string {
	s, _ := c.Args[key].(string)
	return s
}

// Int returns args[key] as an int. JSON numbers decode as float64, so both
// shapes are accepted. ok is false when the key is absent or non-numeric.
func (c *FunctionCall) Int(key string) (int, bool) {
	switch v := c.Args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Response is the canonical, vendor-neutral reply shape. Parts preserve the
// vendor's original ordering — accumulated free text must interleave
// correctly with dispatched side effects.
type Response struct {
	Parts []Part
}

// TextParts concatenates all free-text fragments in order.
func (r *Response) TextParts() string {
	var out string
	for _, p := range r.Parts {
		out += p.Text
	}
	return out
}

// ToolDecl describes one capability offered to the model. Parameters is a
// JSON-schema object map; adapters translate it into their vendor's
// function-declaration envelope.
type ToolDecl struct {
	Name        string
	Description string
	Parameters  map[string]any
}
