package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/prospect/internal/agents"
	"github.com/MikeSquared-Agency/prospect/internal/events"
	"github.com/MikeSquared-Agency/prospect/internal/schema"
	"github.com/MikeSquared-Agency/prospect/internal/session"
)

// Completer is the LLM collaborator: system instruction plus user content in,
// one JSON payload out. Implemented by the anthropic client.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error)
}

// Publisher receives progress events. Implemented by the events client; may be
// nil, in which case the orchestrator runs silently.
type Publisher interface {
	Publish(subject string, data any) error
}

// Orchestrator sequences agent executions for analysis sessions. At most one
// agent runs per session at any time, agents execute in registry order subject
// to prerequisite satisfaction, and every durable transition is saved through
// the session store before the sequence advances.
type Orchestrator struct {
	registry   *agents.Registry
	llm        Completer
	store      session.Store
	bus        Publisher
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration

	mu   sync.Mutex
	ctrl map[uuid.UUID]*control
}

type control struct {
	active bool
	stop   bool
}

func New(reg *agents.Registry, llm Completer, store session.Store, bus Publisher, maxRetries int, retryDelay time.Duration, logger *slog.Logger) *Orchestrator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Orchestrator{
		registry:   reg,
		llm:        llm,
		store:      store,
		bus:        bus,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		ctrl:       make(map[uuid.UUID]*control),
	}
}

// NextRunnable scans the registry in declared order and returns the first
// agent that has not succeeded and whose prerequisites have all succeeded.
// ok is false when every agent is done. An incomplete session with nothing
// runnable means an agent is blocked behind a failed prerequisite; that is
// reported as a missing-prerequisite error naming the blocker.
func (o *Orchestrator) NextRunnable(sess *session.Session) (agents.Agent, bool, error) {
	incomplete := false
	for _, a := range o.registry.All() {
		if sess.IsDone(a.ID) {
			continue
		}
		incomplete = true
		if blocker := o.unsatisfied(sess, a); blocker == "" {
			return a, true, nil
		}
	}
	if !incomplete {
		return agents.Agent{}, false, nil
	}
	// Registry validation rules out cycles and unknown references, so this
	// only happens when a prerequisite errored terminally.
	for _, a := range o.registry.All() {
		if sess.IsDone(a.ID) {
			continue
		}
		if blocker := o.unsatisfied(sess, a); blocker != "" {
			return agents.Agent{}, false, fmt.Errorf("%w: agent %q is blocked on %q", ErrMissingPrerequisite, a.ID, blocker)
		}
	}
	return agents.Agent{}, false, nil
}

// unsatisfied returns the id of the first unmet prerequisite, or "".
func (o *Orchestrator) unsatisfied(sess *session.Session, a agents.Agent) string {
	for _, req := range a.Requires {
		if !sess.IsDone(req) {
			return req
		}
	}
	return ""
}

// RunAgent executes a single agent: marks it running, calls the model with
// fixed-delay retries up to the configured bound, validates the JSON result
// against the agent's schema, and records the outcome durably. Prerequisites
// must already be successful; that is a configuration error, not retryable.
func (o *Orchestrator) RunAgent(ctx context.Context, sess *session.Session, agentID string) error {
	if err := o.begin(sess.ID); err != nil {
		return err
	}
	defer o.end(sess.ID)
	return o.runAgentLocked(ctx, sess, agentID)
}

func (o *Orchestrator) runAgentLocked(ctx context.Context, sess *session.Session, agentID string) error {
	agent, ok := o.registry.Lookup(agentID)
	if !ok {
		return fmt.Errorf("%w: unknown agent %q", ErrMissingPrerequisite, agentID)
	}
	if blocker := o.unsatisfied(sess, agent); blocker != "" {
		return fmt.Errorf("%w: agent %q requires %q to succeed first", ErrMissingPrerequisite, agentID, blocker)
	}

	run := sess.Run(agentID)
	if err := run.MarkRunning(); err != nil {
		return err
	}
	if err := o.save(ctx, sess); err != nil {
		return err
	}
	o.publish(events.SubjectAgentStarted, o.agentEvent(sess, run))

	user := o.buildUserContent(agent, sess)

	for {
		o.progress(ctx, sess, run, 25)

		o.logger.Info("running agent",
			"session_id", sess.ID,
			"agent", agentID,
			"attempt", run.Retries+1,
			"transcript_len", len(sess.Transcript),
		)

		raw, err := o.llm.CompleteJSON(ctx, agent.System, user, agent.MaxTokens)
		if err == nil {
			o.progress(ctx, sess, run, 75)
			err = schema.Validate(agent.Schema, raw)
			if err == nil {
				run.MarkSuccess(raw)
				if saveErr := o.save(ctx, sess); saveErr != nil {
					return saveErr
				}
				o.publish(events.SubjectAgentCompleted, o.agentEvent(sess, run))
				o.logger.Info("agent complete", "session_id", sess.ID, "agent", agentID, "result_bytes", len(raw))
				return nil
			}
		}

		run.MarkError(err.Error())
		if saveErr := o.save(ctx, sess); saveErr != nil {
			return saveErr
		}
		o.logger.Warn("agent attempt failed",
			"session_id", sess.ID,
			"agent", agentID,
			"attempt", run.Retries,
			"error", err,
		)

		if run.Retries >= o.maxRetries {
			o.publish(events.SubjectAgentFailed, o.agentEvent(sess, run))
			return fmt.Errorf("agent %s: %w after %d attempts: %v", agentID, ErrRetriesExhausted, run.Retries, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.retryDelay):
		}

		if err := run.MarkRunning(); err != nil {
			return err
		}
		if err := o.save(ctx, sess); err != nil {
			return err
		}
	}
}

// RunSequence runs agents until none is runnable or one fails terminally.
// Forward progress happens only after the previous agent's success has been
// saved. A stop request is honored between agents: the in-flight agent
// finishes and is recorded, but nothing further starts.
func (o *Orchestrator) RunSequence(ctx context.Context, sess *session.Session) error {
	if err := o.begin(sess.ID); err != nil {
		return err
	}
	defer o.end(sess.ID)

	sess.Sequencing = true
	if err := o.save(ctx, sess); err != nil {
		return err
	}
	o.publish(events.SubjectAnalysisStarted, o.sessionEvent(sess))

	var seqErr error
	for {
		if o.stopRequested(sess.ID) {
			seqErr = ErrStopped
			break
		}
		if ctx.Err() != nil {
			seqErr = ctx.Err()
			break
		}

		agent, ok, err := o.NextRunnable(sess)
		if err != nil {
			seqErr = err
			break
		}
		if !ok {
			break
		}

		if err := o.runAgentLocked(ctx, sess, agent.ID); err != nil {
			seqErr = err
			break
		}
	}

	sess.Sequencing = false
	if err := o.save(ctx, sess); err != nil && seqErr == nil {
		seqErr = err
	}

	if seqErr != nil {
		o.publish(events.SubjectAnalysisFailed, o.sessionEventErr(sess, seqErr))
		o.logger.Warn("sequence halted", "session_id", sess.ID, "error", seqErr)
		return seqErr
	}

	o.publish(events.SubjectAnalysisCompleted, o.sessionEvent(sess))
	o.logger.Info("sequence complete", "session_id", sess.ID)
	return nil
}

// Stop requests a cooperative stop of the session's running sequence. The
// in-flight agent is not aborted; its outcome is still recorded. Returns true
// if a sequence was active.
func (o *Orchestrator) Stop(sessionID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.ctrl[sessionID]
	if !ok || !c.active {
		return false
	}
	c.stop = true
	return true
}

// Active reports whether the session currently has a run in flight.
func (o *Orchestrator) Active(sessionID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.ctrl[sessionID]
	return ok && c.active
}

func (o *Orchestrator) begin(sessionID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.ctrl[sessionID]
	if !ok {
		c = &control{}
		o.ctrl[sessionID] = c
	}
	if c.active {
		return ErrSequenceActive
	}
	c.active = true
	c.stop = false
	return nil
}

func (o *Orchestrator) end(sessionID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.ctrl, sessionID)
}

func (o *Orchestrator) stopRequested(sessionID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.ctrl[sessionID]
	return ok && c.stop
}

// buildUserContent renders the agent's user prompt with the transcript, then
// appends each prerequisite's JSON output as a labelled section.
func (o *Orchestrator) buildUserContent(agent agents.Agent, sess *session.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, agent.UserTmpl, sess.Transcript)

	for _, req := range agent.Requires {
		dep, ok := o.registry.Lookup(req)
		if !ok {
			continue
		}
		if payload, ok := sess.Result(req); ok {
			fmt.Fprintf(&sb, "\n\n## %s output\n```json\n%s\n```", dep.Label, payload)
		}
	}
	return sb.String()
}

func (o *Orchestrator) progress(ctx context.Context, sess *session.Session, run *session.AgentRun, pct int) {
	run.MarkProgress(pct)
	_ = o.save(ctx, sess)
	o.publish(events.SubjectAgentProgress, o.agentEvent(sess, run))
}

func (o *Orchestrator) save(ctx context.Context, sess *session.Session) error {
	if err := o.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (o *Orchestrator) publish(subject string, data any) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(subject, data); err != nil {
		o.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (o *Orchestrator) agentEvent(sess *session.Session, run *session.AgentRun) map[string]any {
	return map[string]any{
		"session_id": sess.ID.String(),
		"agent_id":   run.AgentID,
		"status":     string(run.Status),
		"progress":   run.Progress,
		"retries":    run.Retries,
		"error":      run.Error,
	}
}

func (o *Orchestrator) sessionEvent(sess *session.Session) map[string]any {
	return map[string]any{
		"session_id": sess.ID.String(),
		"agents":     o.registry.Len(),
	}
}

func (o *Orchestrator) sessionEventErr(sess *session.Session, err error) map[string]any {
	evt := o.sessionEvent(sess)
	evt["error"] = err.Error()
	return evt
}
