package schema

// JSON Schemas for each agent's result payload. The model's output is
// validated against these at the boundary before it is stored; anything that
// fails counts as a malformed result and is retried like a transport error.

const chunkingSchemaJSON = `{
  "type": "object",
  "required": ["chunks"],
  "properties": {
    "chunks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["index", "topic", "text"],
        "properties": {
          "index": {"type": "integer", "minimum": 0},
          "topic": {"type": "string"},
          "summary": {"type": "string"},
          "text": {"type": "string"},
          "speakers": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

const needsSchemaJSON = `{
  "type": "object",
  "required": ["jobs"],
  "properties": {
    "jobs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["job", "category"],
        "properties": {
          "job": {"type": "string"},
          "category": {"enum": ["functional", "emotional", "social"]},
          "context": {"type": "string"},
          "current_solution": {"type": "string"},
          "evidence": {"type": "array", "items": {"type": "string"}},
          "frequency": {"enum": ["daily", "weekly", "monthly", "rare", "unknown"]},
          "importance": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

const painpointsSchemaJSON = `{
  "type": "object",
  "required": ["pains"],
  "properties": {
    "pains": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["pain", "severity"],
        "properties": {
          "pain": {"type": "string"},
          "severity": {"enum": ["minor", "significant", "critical"]},
          "frequency": {"enum": ["daily", "weekly", "monthly", "rare", "unknown"]},
          "workaround": {"type": "string"},
          "evidence": {"type": "array", "items": {"type": "string"}},
          "emotional_charge": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

const demandSchemaJSON = `{
  "type": "object",
  "required": ["problems"],
  "properties": {
    "problems": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["problem", "demand_score"],
        "properties": {
          "problem": {"type": "string"},
          "demand_score": {"type": "number", "minimum": 0, "maximum": 1},
          "severity": {"enum": ["minor", "significant", "critical"]},
          "frequency": {"enum": ["daily", "weekly", "monthly", "rare", "unknown"]},
          "willingness_to_pay": {"enum": ["none", "implied", "stated"]},
          "linked_jobs": {"type": "array", "items": {"type": "integer"}},
          "linked_pains": {"type": "array", "items": {"type": "integer"}},
          "rationale": {"type": "string"}
        }
      }
    }
  }
}`

const opportunitySchemaJSON = `{
  "type": "object",
  "required": ["opportunities"],
  "properties": {
    "opportunities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["problem", "qualified"],
        "properties": {
          "problem": {"type": "string"},
          "qualified": {"type": "boolean"},
          "disqualifiers": {"type": "array", "items": {"type": "string"}},
          "opportunity": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

const reportSchemaJSON = `{
  "type": "object",
  "required": ["headline", "summary"],
  "properties": {
    "headline": {"type": "string"},
    "summary": {"type": "string"},
    "top_jobs": {"type": "array", "items": {"type": "string"}},
    "top_pains": {"type": "array", "items": {"type": "string"}},
    "opportunities": {"type": "array", "items": {"type": "string"}},
    "recommended_next_steps": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`
