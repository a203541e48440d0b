package service

import (
	"context"
	"time"

	"github.com/wricardo/cardguess/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Round lifecycle
	StartRound(ctx context.Context, scopeID string) (*StartResult, error)
	SubmitGuess(ctx context.Context, scopeID, player, text string) (*GuessResult, error)

	// Round state
	GetRound(ctx context.Context, scopeID string) (*engine.RoundInfo, error)
	ListRounds(ctx context.Context) ([]*engine.RoundInfo, error)
	TeaserPath(ctx context.Context, scopeID string) (string, error)

	// Assets
	AssetPath(ctx context.Context, id string) (string, error)
	ListCandidates(ctx context.Context) ([]engine.Candidate, error)
	RescanPool(ctx context.Context) (int, error)
	GetAliases(ctx context.Context, answer string) ([]string, error)

	Shutdown(ctx context.Context) error
}

// RoundRegistry stores the round in flight for each scope
type RoundRegistry interface {
	Register(scopeID string, round *engine.Round) error
	Lookup(scopeID string) (*engine.Round, error)
	RemoveRound(scopeID string, round *engine.Round) bool
	List() []*engine.Round
	Drain() []*engine.Round
}

// TimeoutScheduler arms one timeout per scope
type TimeoutScheduler interface {
	Arm(scopeID, roundID string, delay time.Duration, fire func(scopeID, roundID string))
	Cancel(scopeID, roundID string) bool
	StopAll() int
}

// CandidatePool supplies drawable images
type CandidatePool interface {
	Rescan() (int, error)
	Draw() (engine.Candidate, error)
	List() []engine.Candidate
	Lookup(id string) (engine.Candidate, bool)
	Answers() []string
}

// TeaserGenerator produces the partial image shown at round start
type TeaserGenerator interface {
	Generate(sourcePath string) (string, error)
}

// ArtifactReaper deletes generated teasers
type ArtifactReaper interface {
	Cleanup(path string) bool
	CleanupAll() int
}

// AliasSource resolves canonical answers to their aliases
type AliasSource interface {
	Aliases(answer string) ([]string, error)
	Missing(answers []string) []string
}

// Notifier delivers round messages to every participant of a scope
type Notifier interface {
	Notify(ctx context.Context, scopeID string, msg Message) error
}
