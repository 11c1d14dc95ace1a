// Package report assembles the final analysis summary from the stored agent
// payloads, combining the model's narrative with the deterministic demand
// index computed in internal/score.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/prospect/internal/score"
	"github.com/MikeSquared-Agency/prospect/internal/session"
)

// Typed views over the agent result payloads. Only the fields the report
// needs are decoded; everything else stays opaque.

type Job struct {
	Job        string  `json:"job"`
	Category   string  `json:"category"`
	Importance float64 `json:"importance"`
}

type Pain struct {
	Pain            string  `json:"pain"`
	Severity        string  `json:"severity"`
	Frequency       string  `json:"frequency"`
	EmotionalCharge float64 `json:"emotional_charge"`
}

type Problem struct {
	Problem          string  `json:"problem"`
	DemandScore      float64 `json:"demand_score"`
	Severity         string  `json:"severity"`
	Frequency        string  `json:"frequency"`
	WillingnessToPay string  `json:"willingness_to_pay"`
	Rationale        string  `json:"rationale"`
}

type Opportunity struct {
	Problem     string  `json:"problem"`
	Qualified   bool    `json:"qualified"`
	Opportunity string  `json:"opportunity"`
	Confidence  float64 `json:"confidence"`
}

type Narrative struct {
	Headline   string   `json:"headline"`
	Summary    string   `json:"summary"`
	TopJobs    []string `json:"top_jobs"`
	TopPains   []string `json:"top_pains"`
	NextSteps  []string `json:"recommended_next_steps"`
	Confidence float64  `json:"confidence"`
}

// Summary is the assembled end product served by the API and printed by the
// batch CLI.
type Summary struct {
	SessionID     string         `json:"session_id"`
	Headline      string         `json:"headline"`
	Narrative     string         `json:"narrative"`
	DemandIndex   float64        `json:"demand_index"`
	RankedDemand  []RankedDemand `json:"ranked_demand"`
	TopJobs       []string       `json:"top_jobs"`
	TopPains      []string       `json:"top_pains"`
	Opportunities []string       `json:"opportunities"`
	NextSteps     []string       `json:"next_steps"`
	Confidence    float64        `json:"confidence"`
}

// RankedDemand is one problem area with its composite score.
type RankedDemand struct {
	Problem   string  `json:"problem"`
	Composite float64 `json:"composite"`
}

// Build assembles the summary for a session whose pipeline has completed.
// The demand and report agents must have succeeded; the rest enrich the
// summary when present.
func Build(sess *session.Session) (*Summary, error) {
	demandRaw, ok := sess.Result("demand")
	if !ok {
		return nil, fmt.Errorf("demand analysis has not completed for session %s", sess.ID)
	}
	reportRaw, ok := sess.Result("report")
	if !ok {
		return nil, fmt.Errorf("report agent has not completed for session %s", sess.ID)
	}

	var demand struct {
		Problems []Problem `json:"problems"`
	}
	if err := json.Unmarshal(demandRaw, &demand); err != nil {
		return nil, fmt.Errorf("parse demand payload: %w", err)
	}

	var narrative Narrative
	if err := json.Unmarshal(reportRaw, &narrative); err != nil {
		return nil, fmt.Errorf("parse report payload: %w", err)
	}

	composites := make([]float64, len(demand.Problems))
	for i, p := range demand.Problems {
		composites[i] = score.Composite(p.DemandScore, p.Severity, p.Frequency, p.WillingnessToPay)
	}

	ranked := make([]RankedDemand, 0, len(demand.Problems))
	for _, i := range score.Rank(composites) {
		ranked = append(ranked, RankedDemand{
			Problem:   demand.Problems[i].Problem,
			Composite: composites[i],
		})
	}

	sum := &Summary{
		SessionID:    sess.ID.String(),
		Headline:     narrative.Headline,
		Narrative:    narrative.Summary,
		DemandIndex:  score.Index(composites),
		RankedDemand: ranked,
		TopJobs:      narrative.TopJobs,
		TopPains:     narrative.TopPains,
		NextSteps:    narrative.NextSteps,
		Confidence:   narrative.Confidence,
	}

	if oppRaw, ok := sess.Result("opportunity"); ok {
		var opp struct {
			Opportunities []Opportunity `json:"opportunities"`
		}
		if err := json.Unmarshal(oppRaw, &opp); err != nil {
			return nil, fmt.Errorf("parse opportunity payload: %w", err)
		}
		for _, o := range opp.Opportunities {
			if o.Qualified && o.Opportunity != "" {
				sum.Opportunities = append(sum.Opportunities, o.Opportunity)
			}
		}
	}

	return sum, nil
}
