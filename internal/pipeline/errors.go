package pipeline

import "errors"

var (
	// ErrMissingPrerequisite marks a configuration error: an agent was asked
	// to run before its prerequisites succeeded. Never retried.
	ErrMissingPrerequisite = errors.New("prerequisite not satisfied")

	// ErrRetriesExhausted marks an agent whose external calls failed the
	// configured number of consecutive times. Fatal to the sequence.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrSequenceActive is returned when a run is requested on a session that
	// already has an agent in flight. The orchestrator is single-flight.
	ErrSequenceActive = errors.New("a run is already in progress for this session")

	// ErrStopped is returned when a sequence halts on user request.
	ErrStopped = errors.New("sequence stopped by user")
)
