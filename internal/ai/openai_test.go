package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func openaiServer(t *testing.T, status int, body string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if capture != nil {
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("request body not JSON: %v", err)
			}
			*capture = req
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestOpenAIPlainTextReply(t *testing.T) {
	body := `{"choices":[{"message":{"content":"Hello there."}}]}`
	srv := openaiServer(t, http.StatusOK, body, nil)
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	resp, err := c.GenerateContent(context.Background(), "hi", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Parts) != 1 || resp.Parts[0].IsCall() {
		t.Fatalf("parts = %+v, want single text part", resp.Parts)
	}
	if resp.Parts[0].Text != "Hello there." {
		t.Errorf("text = %q", resp.Parts[0].Text)
	}
}

func TestOpenAIToolCallsNormalized(t *testing.T) {
	body := `{"choices":[{"message":{
		"content":"",
		"tool_calls":[
			{"id":"c1","function":{"name":"create_task","arguments":"{\"title\":\"Gym\",\"duration\":60}"}},
			{"id":"c2","function":{"name":"set_alarm","arguments":"{\"taskTitle\":\"Gym\",\"time\":\"18:00\"}"}}
		]
	}}]}`
	srv := openaiServer(t, http.StatusOK, body, nil)
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	resp, err := c.GenerateContent(context.Background(), "gym at 6", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(resp.Parts))
	}
	if resp.Parts[0].Call.Name != "create_task" || resp.Parts[1].Call.Name != "set_alarm" {
		t.Errorf("order not preserved: %+v", resp.Parts)
	}
	if resp.Parts[0].Call.String("title") != "Gym" {
		t.Errorf("args = %v", resp.Parts[0].Call.Args)
	}
	if d, ok := resp.Parts[0].Call.Int("duration"); !ok || d != 60 {
		t.Errorf("duration = %d ok=%v", d, ok)
	}
}

func TestOpenAIMalformedArgumentsDropped(t *testing.T) {
	// One bad call among good ones: only the bad one disappears.
	body := `{"choices":[{"message":{
		"content":"",
		"tool_calls":[
			{"id":"c1","function":{"name":"create_task","arguments":"{broken"}},
			{"id":"c2","function":{"name":"set_alarm","arguments":"{\"taskTitle\":\"Gym\",\"time\":\"18:00\"}"}}
		]
	}}]}`
	srv := openaiServer(t, http.StatusOK, body, nil)
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	resp, err := c.GenerateContent(context.Background(), "x", "", nil)
	if err != nil {
		t.Fatalf("partial malformation must not fail the response: %v", err)
	}
	if len(resp.Parts) != 1 || resp.Parts[0].Call.Name != "set_alarm" {
		t.Errorf("parts = %+v, want only the valid call", resp.Parts)
	}
}

func TestOpenAIAllMalformedFails(t *testing.T) {
	body := `{"choices":[{"message":{
		"content":"",
		"tool_calls":[{"id":"c1","function":{"name":"create_task","arguments":"not json"}}]
	}}]}`
	srv := openaiServer(t, http.StatusOK, body, nil)
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	_, err := c.GenerateContent(context.Background(), "x", "", nil)

	var malformed *MalformedToolArgumentsError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want *MalformedToolArgumentsError", err)
	}
	if malformed.Call != "create_task" {
		t.Errorf("Call = %q", malformed.Call)
	}
}

func TestOpenAIRequestShape(t *testing.T) {
	var captured map[string]any
	srv := openaiServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, &captured)
	defer srv.Close()

	tools := []ToolDecl{{Name: "create_task", Parameters: map[string]any{"type": "object"}}}
	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	if _, err := c.GenerateContent(context.Background(), "hi", "system text", tools); err != nil {
		t.Fatal(err)
	}

	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", captured["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v, want system (prepended)", first["role"])
	}
	if captured["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v, want auto", captured["tool_choice"])
	}
	toolsAny, _ := captured["tools"].([]any)
	if len(toolsAny) != 1 {
		t.Fatalf("tools = %v", captured["tools"])
	}
	envelope := toolsAny[0].(map[string]any)
	if envelope["type"] != "function" {
		t.Errorf("tool envelope type = %v", envelope["type"])
	}
}

func TestOpenAIHTTPError(t *testing.T) {
	srv := openaiServer(t, http.StatusTooManyRequests, `rate limited`, nil)
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	_, err := c.GenerateContent(context.Background(), "hi", "", nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", httpErr.Status)
	}
}

func TestOpenAIGenerateJSON(t *testing.T) {
	var captured map[string]any
	body := `{"choices":[{"message":{"content":"{\"order\":[]}"}}]}`
	srv := openaiServer(t, http.StatusOK, body, &captured)
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, nil)
	raw, err := c.GenerateJSON(context.Background(), "plan", map[string]any{"type": "object"})
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(raw) {
		t.Error("result not valid JSON")
	}

	rf, ok := captured["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v", captured["response_format"])
	}
}
