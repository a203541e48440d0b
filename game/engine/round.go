package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoundParams holds everything needed to open a round
type RoundParams struct {
	ScopeID     string
	Answer      string
	Aliases     []string
	SourcePath  string
	SourceID    string
	TeaserPath  string
	MaxAttempts int
	Timeout     time.Duration
	Now         time.Time
}

// Round is the state machine for one game round in one scope.
//
// The round lock guards State, Attempts, Winner and ResolvedAt. Guess and
// Expire assume the caller holds it (Lock/Unlock) so the caller can extend
// the critical section over the side effects of a terminal transition.
// Lock order: a round's lock is taken before the registry's, never after.
type Round struct {
	ID          string
	ScopeID     string
	Answer      string
	Aliases     []string
	SourcePath  string
	SourceID    string
	TeaserPath  string
	MaxAttempts int
	CreatedAt   time.Time
	Deadline    time.Time

	State      State
	Attempts   int
	Winner     string
	ResolvedAt time.Time

	mu sync.Mutex
}

// NewRound creates an active round with zero attempts
func NewRound(p RoundParams) *Round {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	aliases := make([]string, len(p.Aliases))
	copy(aliases, p.Aliases)

	return &Round{
		ID:          uuid.NewString(),
		ScopeID:     p.ScopeID,
		Answer:      p.Answer,
		Aliases:     aliases,
		SourcePath:  p.SourcePath,
		SourceID:    p.SourceID,
		TeaserPath:  p.TeaserPath,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		Deadline:    now.Add(p.Timeout),
		State:       Active,
	}
}

// Lock acquires the round lock
func (r *Round) Lock() {
	r.mu.Lock()
}

// Unlock releases the round lock
func (r *Round) Unlock() {
	r.mu.Unlock()
}

// Guess evaluates one guess. Assumes the lock is held by the caller.
func (r *Round) Guess(player, text string) (GuessOutcome, error) {
	if r.State != Active {
		return GuessOutcome{State: r.State, Attempts: r.Attempts}, fmt.Errorf("round %s: %w", r.ID, ErrRoundNotActive)
	}

	r.Attempts++
	if Matches(text, r.Answer, r.Aliases) {
		r.finish(Resolved)
		r.Winner = player
		return r.outcome(true), nil
	}

	if r.Attempts >= r.MaxAttempts {
		r.finish(Exhausted)
	}
	return r.outcome(false), nil
}

// Expire moves an active round to TimedOut. Assumes the lock is held by the caller.
// It returns false when the round had already reached a terminal state.
func (r *Round) Expire() bool {
	if r.State != Active {
		return false
	}
	r.finish(TimedOut)
	return true
}

// Remaining returns the number of guesses left. Assumes the lock is held.
func (r *Round) Remaining() int {
	if r.State != Active {
		return 0
	}
	return r.MaxAttempts - r.Attempts
}

// Snapshot returns a copy of the round safe to hand out. Assumes the lock is held.
func (r *Round) Snapshot() *RoundInfo {
	info := &RoundInfo{
		ID:          r.ID,
		ScopeID:     r.ScopeID,
		State:       r.State,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		Remaining:   r.Remaining(),
		CreatedAt:   r.CreatedAt,
		Deadline:    r.Deadline,
		Winner:      r.Winner,
	}
	if r.State.IsTerminal() {
		resolvedAt := r.ResolvedAt
		info.ResolvedAt = &resolvedAt
		info.Answer = r.Answer
		info.SourceID = r.SourceID
	}
	return info
}

func (r *Round) finish(state State) {
	r.State = state
	r.ResolvedAt = time.Now()
}

func (r *Round) outcome(correct bool) GuessOutcome {
	return GuessOutcome{
		Correct:   correct,
		State:     r.State,
		Attempts:  r.Attempts,
		Remaining: r.Remaining(),
	}
}
