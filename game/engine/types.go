package engine

import "time"

// State represents the lifecycle state of a round
type State string

const (
	Active    State = "active"
	Resolved  State = "resolved"
	Exhausted State = "exhausted"
	TimedOut  State = "timed_out"

	// Defaults and bounds
	DefaultCropSize       = 200
	DefaultMaxAttempts    = 5
	DefaultTimeoutSeconds = 30
	MaxAttemptsLimit      = 100
)

// IsTerminal reports whether no further transition can leave the state
func (s State) IsTerminal() bool {
	return s == Resolved || s == Exhausted || s == TimedOut
}

// Candidate is one drawable (answer, image) pair from the asset directory
type Candidate struct {
	Answer string `json:"answer"`
	ID     string `json:"id"` // slash-separated path relative to the asset directory
	Path   string `json:"-"`  // absolute path on disk
}

// RoundInfo is a read-only snapshot of a round.
// Answer and SourceID stay empty while the round is active.
type RoundInfo struct {
	ID          string     `json:"id"`
	ScopeID     string     `json:"scope_id"`
	State       State      `json:"state"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Remaining   int        `json:"remaining"`
	CreatedAt   time.Time  `json:"created_at"`
	Deadline    time.Time  `json:"deadline"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Winner      string     `json:"winner,omitempty"`
	Answer      string     `json:"answer,omitempty"`
	SourceID    string     `json:"source_id,omitempty"`
}

// GuessOutcome describes the effect of one evaluated guess
type GuessOutcome struct {
	Correct   bool  `json:"correct"`
	State     State `json:"state"`
	Attempts  int   `json:"attempts"`
	Remaining int   `json:"remaining"`
}

// Terminal reports whether the guess ended the round
func (o GuessOutcome) Terminal() bool {
	return o.State.IsTerminal()
}
