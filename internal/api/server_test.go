package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/natfisher/daybook/internal/ai"
	"github.com/natfisher/daybook/internal/alarm"
	"github.com/natfisher/daybook/internal/assistant"
	"github.com/natfisher/daybook/internal/config"
	"github.com/natfisher/daybook/internal/note"
	"github.com/natfisher/daybook/internal/profile"
	"github.com/natfisher/daybook/internal/settings"
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

// newTestServer wires a full server over in-memory storage. The AI selector
// is unconfigured unless the test rebinds it.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	return newTestServerOn(t, &memKV{data: map[string][]byte{}})
}

// newTestServerOn wires a server over an existing kv, mirroring the serve
// startup path: saved settings overlay the base AI config before the
// selector is built.
func newTestServerOn(t *testing.T, kv storage.KV) (*Server, *httptest.Server) {
	t.Helper()

	tasks := task.NewStore(kv, nil)
	notes := note.NewStore(kv, nil)
	prof := profile.NewStore(kv, nil)
	for _, load := range []func() error{tasks.Load, notes.Load, prof.Load} {
		if err := load(); err != nil {
			t.Fatal(err)
		}
	}

	saved := settings.NewStore(kv, nil)
	selector := ai.NewSelector(saved.LoadAI(config.AIConfig{}), nil)
	asst := assistant.NewService(selector, tasks, assistant.Options{}, nil)
	alarms := alarm.NewEngine(tasks, nil, nil)
	hub := NewHub(nil)

	s := NewServer("", 0, tasks, notes, prof, asst, alarms, selector, saved, hub, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	// Create.
	resp := postJSON(t, ts.URL+"/api/tasks", `{"title":"Gym","category":"Private","durationMinutes":60,"reminderTime":"18:00"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created task.Task
	decode(t, resp, &created)
	if created.ID == "" || !created.AlarmEnabled {
		t.Errorf("created = %+v", created)
	}

	// List.
	resp, err := http.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Tasks []task.Task `json:"tasks"`
	}
	decode(t, resp, &list)
	if len(list.Tasks) != 1 {
		t.Fatalf("tasks = %+v", list.Tasks)
	}

	// Toggle.
	resp = postJSON(t, ts.URL+"/api/tasks/"+created.ID+"/toggle", "")
	var toggled task.Task
	decode(t, resp, &toggled)
	if !toggled.Completed {
		t.Error("toggle did not complete the task")
	}

	// Update clears the reminder, which must disable the alarm.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/tasks/"+created.ID, strings.NewReader(`{"reminderTime":""}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated task.Task
	decode(t, resp, &updated)
	if updated.AlarmEnabled || updated.ReminderTime != "" {
		t.Errorf("updated = %+v, want alarm disabled", updated)
	}

	// Delete.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/tasks/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
}

func TestTaskCreateValidation(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty title", `{"title":"  ","category":"Private","durationMinutes":10}`},
		{"negative duration", `{"title":"X","category":"Private","durationMinutes":-5}`},
		{"bad reminder", `{"title":"X","category":"Private","durationMinutes":5,"reminderTime":"25:99"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/tasks", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestTaskSummary(t *testing.T) {
	_, ts := newTestServer(t)

	postJSON(t, ts.URL+"/api/tasks", `{"title":"A","category":"Private","durationMinutes":10}`).Body.Close()
	postJSON(t, ts.URL+"/api/tasks", `{"title":"B","category":"Education","durationMinutes":10}`).Body.Close()
	postJSON(t, ts.URL+"/api/tasks", `{"title":"C","category":"made-up","durationMinutes":10}`).Body.Close()

	resp, err := http.Get(ts.URL + "/api/tasks/summary")
	if err != nil {
		t.Fatal(err)
	}
	var summary struct {
		ByCategory map[string]int `json:"byCategory"`
		Open       int            `json:"open"`
		Completed  int            `json:"completed"`
	}
	decode(t, resp, &summary)

	if summary.ByCategory["Private"] != 1 || summary.ByCategory["Education"] != 1 {
		t.Errorf("byCategory = %v", summary.ByCategory)
	}
	// Unknown categories land in Others.
	if summary.ByCategory["Others"] != 1 {
		t.Errorf("byCategory = %v, want made-up bucketed into Others", summary.ByCategory)
	}
	if summary.Open != 3 || summary.Completed != 0 {
		t.Errorf("open/completed = %d/%d", summary.Open, summary.Completed)
	}
}

func TestNoteMarkdownRendering(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/notes", `{"content":"# Plan\n\n- one\n- two"}`)
	var n note.Note
	decode(t, resp, &n)
	if n.Color == "" {
		t.Error("palette color not assigned")
	}

	resp, err := http.Get(ts.URL + "/api/notes/" + n.ID + "/html")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(buf.String(), "<h1>") || !strings.Contains(buf.String(), "<li>") {
		t.Errorf("html = %q", buf.String())
	}
}

func TestChatUnconfiguredStillResponds(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/chat", `{"message":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when unconfigured", resp.StatusCode)
	}
	var out chatResponse
	decode(t, resp, &out)
	if !strings.Contains(out.Reply, "API key") {
		t.Errorf("reply = %q, want setup hint", out.Reply)
	}

	// The turn is in the history.
	resp, err := http.Get(ts.URL + "/api/chat/history")
	if err != nil {
		t.Fatal(err)
	}
	var hist struct {
		Turns []assistant.Turn `json:"turns"`
	}
	decode(t, resp, &hist)
	if len(hist.Turns) != 2 {
		t.Errorf("turns = %+v", hist.Turns)
	}
}

func TestAISettingsRebind(t *testing.T) {
	s, ts := newTestServer(t)

	// Initially unconfigured.
	resp, err := http.Get(ts.URL + "/api/settings/ai")
	if err != nil {
		t.Fatal(err)
	}
	var view aiSettingsView
	decode(t, resp, &view)
	if view.Configured {
		t.Fatal("fresh server reports configured")
	}

	// Save a key: the selector rebinds and the key is not echoed back.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings/ai",
		strings.NewReader(`{"provider":"openai","openaiApiKey":"sk-test"}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &view)
	if !view.Configured || !view.HasOpenAIKey {
		t.Errorf("view = %+v, want configured with openai key", view)
	}

	if _, ok := s.selector.Client().(*ai.OpenAIClient); !ok {
		t.Errorf("selector client = %T, want *ai.OpenAIClient after rebind", s.selector.Client())
	}
}

func TestAISettingsSurviveRestart(t *testing.T) {
	kv := &memKV{data: map[string][]byte{}}
	_, ts := newTestServerOn(t, kv)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings/ai",
		strings.NewReader(`{"provider":"openai","openaiApiKey":"sk-test"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}

	// A second server over the same database stands in for a restart: the
	// saved settings must win over the empty base config.
	s2, ts2 := newTestServerOn(t, kv)

	resp, err = http.Get(ts2.URL + "/api/settings/ai")
	if err != nil {
		t.Fatal(err)
	}
	var view aiSettingsView
	decode(t, resp, &view)
	if !view.Configured || !view.HasOpenAIKey || view.Provider != "openai" {
		t.Errorf("view after restart = %+v, want saved openai settings", view)
	}
	if _, ok := s2.selector.Client().(*ai.OpenAIClient); !ok {
		t.Errorf("selector client = %T, want *ai.OpenAIClient from saved settings", s2.selector.Client())
	}
}

func TestProfileAndFeedback(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/profile",
		strings.NewReader(`{"name":"Nat","mantra":"one thing at a time"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var p profile.Profile
	decode(t, resp, &p)
	if p.Name != "Nat" || p.JoinedAt == 0 {
		t.Errorf("profile = %+v", p)
	}

	resp = postJSON(t, ts.URL+"/api/feedback", `{"text":"love the pie chart"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("feedback status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/feedback", `{"text":"  "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank feedback status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAlarmEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/alarm")
	if err != nil {
		t.Fatal(err)
	}
	var state struct {
		Active bool `json:"active"`
	}
	decode(t, resp, &state)
	if state.Active {
		t.Error("alarm active on fresh server")
	}

	resp = postJSON(t, ts.URL+"/api/alarm/dismiss", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("dismiss status = %d", resp.StatusCode)
	}
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]string
	decode(t, resp, &health)
	if health["status"] != "healthy" {
		t.Errorf("health = %v", health)
	}

	resp, err = http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatal(err)
	}
	var ver map[string]string
	decode(t, resp, &ver)
	if ver["version"] == "" {
		t.Errorf("version = %v", ver)
	}
}
