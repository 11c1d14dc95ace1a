package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/prospect/internal/agents"
	"github.com/MikeSquared-Agency/prospect/internal/pipeline"
	"github.com/MikeSquared-Agency/prospect/internal/session"
)

const testToken = "secret-token"

var cannedResults = map[string]string{
	"chunking":    `{"chunks":[{"index":0,"topic":"exports","text":"Customer: exports are slow"}]}`,
	"needs":       `{"jobs":[{"job":"export reports fast","category":"functional"}]}`,
	"painpoints":  `{"pains":[{"pain":"slow exports","severity":"critical","frequency":"daily"}]}`,
	"demand":      `{"problems":[{"problem":"slow exports","demand_score":0.9,"severity":"critical","frequency":"daily","willingness_to_pay":"stated"}]}`,
	"opportunity": `{"opportunities":[{"problem":"slow exports","qualified":true,"opportunity":"incremental export pipeline","confidence":0.8}]}`,
	"report":      `{"headline":"Strong demand for faster exports","summary":"Exports dominate the conversation.","recommended_next_steps":["prototype incremental export"],"confidence":0.8}`,
}

type stubLLM struct {
	reg    *agents.Registry
	onCall func(agentID string) // optional hook, runs before the canned reply
}

func (s *stubLLM) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	for _, a := range s.reg.All() {
		if a.System == system {
			if s.onCall != nil {
				s.onCall(a.ID)
			}
			return json.RawMessage(cannedResults[a.ID]), nil
		}
	}
	return nil, fmt.Errorf("unknown agent prompt")
}

type memStore struct {
	mu    sync.Mutex
	items map[uuid.UUID][]byte
}

func newMemStore() *memStore {
	return &memStore{items: make(map[uuid.UUID][]byte)}
}

func (m *memStore) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = data
	return nil
}

func (m *memStore) Load(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return session.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	s, store, _ := newTestServerLLM(t)
	return s, store
}

func newTestServerLLM(t *testing.T) (*Server, *memStore, *stubLLM) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := agents.Default()
	store := newMemStore()
	llm := &stubLLM{reg: reg}
	orch := pipeline.New(reg, llm, store, nil, 3, time.Millisecond, logger)
	return NewServer(0, testToken, orch, store, reg, nil, 48000, logger), store, llm
}

func request(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// waitDone polls the store until every agent has succeeded.
func waitDone(t *testing.T, store *memStore, id uuid.UUID) *session.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := store.Load(context.Background(), id)
		if err == nil && !sess.Sequencing {
			done := true
			for agentID := range cannedResults {
				if !sess.IsDone(agentID) {
					done = false
					break
				}
			}
			if done {
				return sess
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pipeline did not complete in time")
	return nil
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBearerAuth_RejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateAnalysis_RunsPipeline(t *testing.T) {
	s, store := newTestServer(t)

	rec := request(t, s, http.MethodPost, "/api/v1/analyses",
		`{"transcript":"Interviewer: what slows you down?\nCustomer: report exports"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var created map[string]string
	decodeBody(t, rec, &created)
	id, err := uuid.Parse(created["session_id"])
	if err != nil {
		t.Fatalf("bad session id: %v", err)
	}

	waitDone(t, store, id)

	rec = request(t, s, http.MethodGet, "/api/v1/analyses/"+id.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view sessionView
	decodeBody(t, rec, &view)
	if len(view.Runs) != 6 {
		t.Fatalf("expected 6 runs, got %d", len(view.Runs))
	}
	for _, run := range view.Runs {
		if run.Status != string(session.StatusSuccess) {
			t.Errorf("agent %s: expected success, got %s", run.AgentID, run.Status)
		}
		if !run.HasResult {
			t.Errorf("agent %s: expected a stored result", run.AgentID)
		}
	}

	rec = request(t, s, http.MethodGet, "/api/v1/analyses/"+id.String()+"/results/chunking", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"chunks"`) {
		t.Errorf("unexpected result payload: %s", rec.Body.String())
	}

	rec = request(t, s, http.MethodGet, "/api/v1/analyses/"+id.String()+"/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Strong demand for faster exports") {
		t.Errorf("report missing headline: %s", rec.Body.String())
	}
}

func TestCreateAnalysis_EmptyTranscript(t *testing.T) {
	s, _ := newTestServer(t)
	rec := request(t, s, http.MethodPost, "/api/v1/analyses", `{"transcript":"  \n\n "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := request(t, s, http.MethodGet, "/api/v1/analyses/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetResult_NoResultYet(t *testing.T) {
	s, store := newTestServer(t)
	sess := session.New("t")
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	rec := request(t, s, http.MethodGet, "/api/v1/analyses/"+sess.ID.String()+"/results/chunking", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = request(t, s, http.MethodGet, "/api/v1/analyses/"+sess.ID.String()+"/results/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown agent, got %d", rec.Code)
	}
}

func TestRunAgent_UnmetPrerequisite(t *testing.T) {
	s, store := newTestServer(t)
	sess := session.New("t")
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	rec := request(t, s, http.MethodPost, "/api/v1/analyses/"+sess.ID.String()+"/agents/needs/run", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "chunking") {
		t.Errorf("error should name the missing prerequisite: %s", rec.Body.String())
	}
}

func TestStop_NoActiveSequence(t *testing.T) {
	s, store := newTestServer(t)
	sess := session.New("t")
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	rec := request(t, s, http.MethodPost, "/api/v1/analyses/"+sess.ID.String()+"/stop", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSetDisplayed(t *testing.T) {
	s, store := newTestServer(t)
	sess := session.New("t")
	run := sess.Run("chunking")
	_ = run.MarkRunning()
	run.MarkSuccess(json.RawMessage(cannedResults["chunking"]))
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	rec := request(t, s, http.MethodPost, "/api/v1/analyses/"+sess.ID.String()+"/display", `{"agent":"chunking"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	decodeBody(t, rec, &view)
	if view.Displayed != "chunking" {
		t.Errorf("expected displayed pointer to be chunking, got %q", view.Displayed)
	}

	// An agent with no run cannot be displayed.
	rec = request(t, s, http.MethodPost, "/api/v1/analyses/"+sess.ID.String()+"/display", `{"agent":"report"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// A display update during an active sequence must not race the orchestrator's
// full-session saves, or the next save would silently erase the pointer.
func TestSetDisplayed_RejectedWhileSequenceActive(t *testing.T) {
	s, store, llm := newTestServerLLM(t)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var once sync.Once
	llm.onCall = func(agentID string) {
		if agentID == "chunking" {
			once.Do(func() {
				started <- struct{}{}
				<-release
			})
		}
	}

	rec := request(t, s, http.MethodPost, "/api/v1/analyses",
		`{"transcript":"Interviewer: what slows you down?\nCustomer: report exports"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	decodeBody(t, rec, &created)
	id, err := uuid.Parse(created["session_id"])
	if err != nil {
		t.Fatalf("bad session id: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("sequence never reached the model call")
	}

	rec = request(t, s, http.MethodPost, "/api/v1/analyses/"+id.String()+"/display", `{"agent":"chunking"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while sequence is active, got %d: %s", rec.Code, rec.Body.String())
	}

	close(release)
	sess := waitDone(t, store, id)
	if sess.Displayed != "" {
		t.Errorf("rejected display update should leave no trace, got %q", sess.Displayed)
	}

	// Once the sequence is over the update goes through and persists.
	rec = request(t, s, http.MethodPost, "/api/v1/analyses/"+id.String()+"/display", `{"agent":"chunking"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after sequence end, got %d: %s", rec.Code, rec.Body.String())
	}
	sess, err = store.Load(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Displayed != "chunking" {
		t.Errorf("expected displayed pointer persisted, got %q", sess.Displayed)
	}
}

func TestDeleteAnalysis_ResetAndDestroy(t *testing.T) {
	s, store := newTestServer(t)
	sess := session.New("t")
	run := sess.Run("chunking")
	_ = run.MarkRunning()
	run.MarkSuccess(json.RawMessage(cannedResults["chunking"]))
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	rec := request(t, s, http.MethodDelete, "/api/v1/analyses/"+sess.ID.String()+"?reset=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	decodeBody(t, rec, &view)
	for _, r := range view.Runs {
		if r.Status != string(session.StatusIdle) {
			t.Errorf("agent %s: expected idle after reset, got %s", r.AgentID, r.Status)
		}
	}

	rec = request(t, s, http.MethodDelete, "/api/v1/analyses/"+sess.ID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = request(t, s, http.MethodGet, "/api/v1/analyses/"+sess.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}
