package agents

import (
	"errors"
	"fmt"
)

// Agent is one step of the analysis pipeline: an identifier, display metadata,
// the prompt pair sent to the model, and the agents whose output it consumes.
type Agent struct {
	ID        string
	Label     string
	Requires  []string
	System    string
	UserTmpl  string // fmt template; %s receives the transcript
	MaxTokens int
	Schema    string // result schema name, see internal/schema
}

// Registry is a static ordered list of agents. Order is the declared execution
// order; prerequisites gate when each agent actually becomes runnable.
type Registry struct {
	agents []Agent
	byID   map[string]Agent
}

// Default returns the canonical interview-analysis pipeline:
// chunking → {needs, painpoints} → demand → opportunity → report.
func Default() *Registry {
	r, err := New([]Agent{
		{
			ID:        "chunking",
			Label:     "Transcript Chunking",
			System:    chunkingSystemPrompt,
			UserTmpl:  chunkingUserPrompt,
			MaxTokens: 4096,
			Schema:    "chunking",
		},
		{
			ID:        "needs",
			Label:     "Jobs-to-be-Done Analysis",
			Requires:  []string{"chunking"},
			System:    needsSystemPrompt,
			UserTmpl:  needsUserPrompt,
			MaxTokens: 8192,
			Schema:    "needs",
		},
		{
			ID:        "painpoints",
			Label:     "Pain Point Extraction",
			Requires:  []string{"chunking"},
			System:    painpointsSystemPrompt,
			UserTmpl:  painpointsUserPrompt,
			MaxTokens: 8192,
			Schema:    "painpoints",
		},
		{
			ID:        "demand",
			Label:     "Demand Scoring",
			Requires:  []string{"needs", "painpoints"},
			System:    demandSystemPrompt,
			UserTmpl:  demandUserPrompt,
			MaxTokens: 4096,
			Schema:    "demand",
		},
		{
			ID:        "opportunity",
			Label:     "Opportunity Qualification",
			Requires:  []string{"demand"},
			System:    opportunitySystemPrompt,
			UserTmpl:  opportunityUserPrompt,
			MaxTokens: 4096,
			Schema:    "opportunity",
		},
		{
			ID:        "report",
			Label:     "Final Report",
			Requires:  []string{"demand", "opportunity"},
			System:    reportSystemPrompt,
			UserTmpl:  reportUserPrompt,
			MaxTokens: 8192,
			Schema:    "report",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("default registry invalid: %v", err))
	}
	return r
}

// New builds a registry from the given agents and validates the dependency
// graph. Unknown prerequisites and cycles are configuration errors.
func New(list []Agent) (*Registry, error) {
	byID := make(map[string]Agent, len(list))
	for _, a := range list {
		if a.ID == "" {
			return nil, errors.New("agent with empty id")
		}
		if _, dup := byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		byID[a.ID] = a
	}

	for _, a := range list {
		for _, req := range a.Requires {
			if _, ok := byID[req]; !ok {
				return nil, fmt.Errorf("agent %q requires unknown agent %q", a.ID, req)
			}
			if req == a.ID {
				return nil, fmt.Errorf("agent %q requires itself", a.ID)
			}
		}
	}

	if err := checkAcyclic(list); err != nil {
		return nil, err
	}

	return &Registry{agents: list, byID: byID}, nil
}

// All returns the agents in declared order.
func (r *Registry) All() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Lookup returns the agent with the given id.
func (r *Registry) Lookup(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.agents)
}

// checkAcyclic runs Kahn's algorithm over the prerequisite edges and fails if
// any agent is unreachable, which means the graph contains a cycle.
func checkAcyclic(list []Agent) error {
	inDegree := make(map[string]int, len(list))
	dependents := make(map[string][]string)
	for _, a := range list {
		inDegree[a.ID] = len(a.Requires)
		for _, req := range a.Requires {
			dependents[req] = append(dependents[req], a.ID)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed != len(list) {
		return errors.New("agent dependency graph contains a cycle")
	}
	return nil
}
