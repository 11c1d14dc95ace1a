package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/prospect/internal/pipeline"
	"github.com/MikeSquared-Agency/prospect/internal/report"
	"github.com/MikeSquared-Agency/prospect/internal/session"
	"github.com/MikeSquared-Agency/prospect/internal/transcript"
)

type createRequest struct {
	Transcript string `json:"transcript"`
}

// runView is an AgentRun without the result payload; results are fetched
// individually so status polling stays small.
type runView struct {
	AgentID   string    `json:"agent_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Retries   int       `json:"retries"`
	HasResult bool      `json:"has_result"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sessionView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Sequencing bool      `json:"sequencing"`
	Active     bool      `json:"active"`
	Displayed  string    `json:"displayed,omitempty"`
	Runs       []runView `json:"runs"`
}

func (s *Server) view(sess *session.Session) sessionView {
	v := sessionView{
		ID:         sess.ID.String(),
		CreatedAt:  sess.CreatedAt,
		Sequencing: sess.Sequencing,
		Active:     s.orch.Active(sess.ID),
		Displayed:  sess.Displayed,
	}
	// Registry order, so clients render the pipeline consistently.
	for _, a := range s.registry.All() {
		run, ok := sess.Runs[a.ID]
		if !ok {
			v.Runs = append(v.Runs, runView{AgentID: a.ID, Status: string(session.StatusIdle)})
			continue
		}
		v.Runs = append(v.Runs, runView{
			AgentID:   run.AgentID,
			Status:    string(run.Status),
			Progress:  run.Progress,
			Error:     run.Error,
			Retries:   run.Retries,
			HasResult: run.Result != nil,
			UpdatedAt: run.UpdatedAt,
		})
	}
	return v
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	prepared, err := transcript.Prepare(req.Transcript, s.maxTranscript)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := session.New(prepared)
	if err := s.store.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go s.RunAndNotify(context.Background(), sess)

	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sess.ID.String()})
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	agentID := chi.URLParam(r, "agent")
	if _, known := s.registry.Lookup(agentID); !known {
		writeError(w, http.StatusNotFound, "unknown agent "+agentID)
		return
	}

	result, ok := sess.Result(agentID)
	if !ok {
		writeError(w, http.StatusNotFound, "no result for agent "+agentID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	sum, err := report.Build(sess)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) stopAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if !s.orch.Stop(id) {
		writeError(w, http.StatusConflict, "no active sequence for session")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) runAgent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	agentID := chi.URLParam(r, "agent")
	agent, known := s.registry.Lookup(agentID)
	if !known {
		writeError(w, http.StatusNotFound, "unknown agent "+agentID)
		return
	}
	for _, req := range agent.Requires {
		if !sess.IsDone(req) {
			writeError(w, http.StatusConflict, "agent "+agentID+" requires "+req+" to succeed first")
			return
		}
	}
	if s.orch.Active(sess.ID) {
		writeError(w, http.StatusConflict, pipeline.ErrSequenceActive.Error())
		return
	}

	go func() {
		if err := s.orch.RunAgent(context.Background(), sess, agentID); err != nil {
			s.logger.Warn("agent re-run failed", "session_id", sess.ID, "agent", agentID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sess.ID.String(), "agent": agentID})
}

// setDisplayed records which agent's result the client is viewing. Refused
// while a sequence is active: the orchestrator saves full-session snapshots
// after every transition and would overwrite a concurrent save here.
func (s *Server) setDisplayed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if s.orch.Active(sess.ID) {
		writeError(w, http.StatusConflict, "sequence is active; stop it first")
		return
	}

	var req struct {
		Agent string `json:"agent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := sess.SetDisplayed(req.Agent); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.view(sess))
}

// deleteAnalysis destroys the session, or clears its runs when called with
// ?reset=true. Neither touches an active sequence; stop it first.
func (s *Server) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if s.orch.Active(sess.ID) {
		writeError(w, http.StatusConflict, "sequence is active; stop it first")
		return
	}

	if r.URL.Query().Get("reset") == "true" {
		sess.Reset()
		if err := s.store.Save(r.Context(), sess); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.view(sess))
		return
	}

	if err := s.store.Delete(r.Context(), sess.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return nil, false
	}
	sess, err := s.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return sess, true
}
