package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one agent run.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// AgentRun records one agent's execution attempt. The result payload is opaque
// to the orchestrator; it is only ever checked for presence.
type AgentRun struct {
	AgentID   string          `json:"agent_id"`
	Status    Status          `json:"status"`
	Progress  int             `json:"progress"` // 0-100
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Retries   int             `json:"retries"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Session holds all agent runs for one transcript, the displayed-result
// pointer, and whether a full sequence is currently in progress.
type Session struct {
	ID         uuid.UUID            `json:"id"`
	Transcript string               `json:"transcript"`
	CreatedAt  time.Time            `json:"created_at"`
	Runs       map[string]*AgentRun `json:"runs"`
	Displayed  string               `json:"displayed,omitempty"`
	Sequencing bool                 `json:"sequencing"`
}

// New creates a session for a transcript. The transcript is immutable for the
// session's lifetime; a new transcript means a new session.
func New(transcript string) *Session {
	return &Session{
		ID:         uuid.New(),
		Transcript: transcript,
		CreatedAt:  time.Now().UTC(),
		Runs:       make(map[string]*AgentRun),
	}
}

// Run returns the run record for an agent, creating an idle one if absent.
func (s *Session) Run(agentID string) *AgentRun {
	if r, ok := s.Runs[agentID]; ok {
		return r
	}
	r := &AgentRun{AgentID: agentID, Status: StatusIdle, UpdatedAt: time.Now().UTC()}
	s.Runs[agentID] = r
	return r
}

// IsDone reports whether the agent has a recorded successful run.
func (s *Session) IsDone(agentID string) bool {
	r, ok := s.Runs[agentID]
	return ok && r.Status == StatusSuccess
}

// Result returns the stored result payload for an agent, if present.
func (s *Session) Result(agentID string) (json.RawMessage, bool) {
	r, ok := s.Runs[agentID]
	if !ok || r.Status != StatusSuccess || r.Result == nil {
		return nil, false
	}
	return r.Result, true
}

// SetDisplayed records which agent's result the caller is viewing. This is
// view state, not orchestration state; it never gates execution.
func (s *Session) SetDisplayed(agentID string) error {
	if _, ok := s.Runs[agentID]; !ok {
		return fmt.Errorf("no run for agent %q", agentID)
	}
	s.Displayed = agentID
	return nil
}

// Reset clears all runs and the displayed pointer. The transcript stays.
func (s *Session) Reset() {
	s.Runs = make(map[string]*AgentRun)
	s.Displayed = ""
	s.Sequencing = false
}

// MarkRunning transitions a run to running. A run that is already running
// cannot start again; success and error runs may (re-runs and retries).
// Retries count consecutive failures, so a re-run of a succeeded agent starts
// with a fresh count while an error retry keeps accumulating.
func (r *AgentRun) MarkRunning() error {
	if r.Status == StatusRunning {
		return fmt.Errorf("agent %s is already running", r.AgentID)
	}
	if r.Status == StatusSuccess {
		r.Retries = 0
	}
	r.Status = StatusRunning
	r.Progress = 0
	r.Error = ""
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkProgress records a coarse progress update on a running agent.
func (r *AgentRun) MarkProgress(pct int) {
	if r.Status != StatusRunning {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	r.Progress = pct
	r.UpdatedAt = time.Now().UTC()
}

// MarkSuccess stores the result payload and completes the run.
func (r *AgentRun) MarkSuccess(result json.RawMessage) {
	r.Status = StatusSuccess
	r.Progress = 100
	r.Result = result
	r.Error = ""
	r.UpdatedAt = time.Now().UTC()
}

// MarkError records a failed attempt and increments the retry counter.
func (r *AgentRun) MarkError(msg string) {
	r.Status = StatusError
	r.Error = msg
	r.Retries++
	r.UpdatedAt = time.Now().UTC()
}
