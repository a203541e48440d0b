package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/engine"
	"github.com/wricardo/cardguess/game/session"
)

// notifyTimeout bounds deliveries made from timer goroutines
const notifyTimeout = 5 * time.Second

const anonymousPlayer = "玩家"

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	deps     Dependencies
	opts     Options
	messages *Messages
	allowAll bool
	allowed  map[string]bool
	closed   atomic.Bool
}

// NewGameService creates a new game service instance
func NewGameService(deps Dependencies, opts Options) GameService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = engine.DefaultMaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = engine.DefaultTimeoutSeconds * time.Second
	}
	if opts.Messages == nil {
		opts.Messages = DefaultMessages()
	}
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{}
	}

	s := &gameServiceImpl{
		deps:     deps,
		opts:     opts,
		messages: opts.Messages,
		allowed:  make(map[string]bool),
	}
	for _, scope := range opts.AllowList {
		scope = strings.TrimSpace(scope)
		if scope == "*" {
			s.allowAll = true
		}
		if scope != "" {
			s.allowed[scope] = true
		}
	}
	return s
}

func (s *gameServiceImpl) isAllowed(scopeID string) bool {
	return s.allowAll || s.allowed[scopeID]
}

// StartRound opens a round in scopeID and sends its teaser to the scope
func (s *gameServiceImpl) StartRound(ctx context.Context, scopeID string) (*StartResult, error) {
	scopeID, err := session.NormalizeScopeID(scopeID)
	if err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrShuttingDown
	}
	log := logrus.WithField("scope", scopeID)

	if !s.isAllowed(scopeID) {
		log.Info("Start rejected: scope not in allow-list")
		return nil, fmt.Errorf("scope %s: %w", scopeID, engine.ErrScopeNotAllowed)
	}
	if _, err := s.deps.Registry.Lookup(scopeID); err == nil {
		log.Info("Start rejected: round already in progress")
		return nil, fmt.Errorf("scope %s: %w", scopeID, engine.ErrRoundAlreadyActive)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidate, err := s.deps.Pool.Draw()
	if err != nil {
		log.Errorf("No candidate available: %v", err)
		return nil, err
	}

	teaserPath, err := s.deps.Generator.Generate(candidate.Path)
	if err != nil {
		log.Errorf("Teaser generation failed for %s: %v", candidate.ID, err)
		return nil, err
	}

	aliases, err := s.deps.Aliases.Aliases(candidate.Answer)
	if err != nil {
		log.Warnf("No aliases for %s, only the canonical answer will match", candidate.Answer)
	}

	round := engine.NewRound(engine.RoundParams{
		ScopeID:     scopeID,
		Answer:      candidate.Answer,
		Aliases:     aliases,
		SourcePath:  candidate.Path,
		SourceID:    candidate.ID,
		TeaserPath:  teaserPath,
		MaxAttempts: s.opts.MaxAttempts,
		Timeout:     s.opts.Timeout,
	})

	round.Lock()
	defer round.Unlock()

	if err := s.deps.Registry.Register(scopeID, round); err != nil {
		s.deps.Reaper.Cleanup(teaserPath)
		log.Infof("Start rejected: %v", err)
		return nil, err
	}
	if s.closed.Load() {
		s.deps.Registry.RemoveRound(scopeID, round)
		s.deps.Reaper.Cleanup(teaserPath)
		return nil, ErrShuttingDown
	}
	s.deps.Scheduler.Arm(scopeID, round.ID, s.opts.Timeout, s.onTimeout)

	info := round.Snapshot()
	result := &StartResult{
		Round:     info,
		Prompt:    fmt.Sprintf(s.messages.Prompt, int(s.opts.Timeout/time.Second), round.MaxAttempts),
		TeaserURL: TeaserURL(scopeID),
	}

	s.notify(ctx, scopeID, Message{
		Event:     EventTeaser,
		Text:      result.Prompt,
		Image:     result.TeaserURL,
		ImagePath: teaserPath,
		Round:     info,
	})

	log.WithField("round", round.ID).Infof("Round started with %s", candidate.ID)
	return result, nil
}

// SubmitGuess evaluates a guess against the scope's active round
func (s *gameServiceImpl) SubmitGuess(ctx context.Context, scopeID, player, text string) (*GuessResult, error) {
	scopeID, err := session.NormalizeScopeID(scopeID)
	if err != nil {
		return nil, err
	}
	player = strings.TrimSpace(player)
	if player == "" {
		player = anonymousPlayer
	}

	round, err := s.lockActive(scopeID, "")
	if err != nil {
		return nil, err
	}
	defer round.Unlock()

	outcome, err := round.Guess(player, text)
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", scopeID, engine.ErrNoActiveRound)
	}

	info := round.Snapshot()
	result := &GuessResult{
		Correct:   outcome.Correct,
		State:     outcome.State,
		Attempts:  outcome.Attempts,
		Remaining: outcome.Remaining,
		Message:   s.messages.ForOutcome(info),
		Round:     info,
	}

	logrus.WithFields(logrus.Fields{
		"scope":    scopeID,
		"round":    round.ID,
		"player":   player,
		"attempts": outcome.Attempts,
	}).Debugf("Guess evaluated: state=%s", outcome.State)

	if !outcome.Terminal() {
		s.notify(ctx, scopeID, Message{Event: EventWrong, Text: result.Message, Round: info})
		return result, nil
	}

	result.RevealURL = AssetURL(round.SourceID)
	s.finishLocked(ctx, round)
	return result, nil
}

// onTimeout is the scheduler callback. A stale or already finished round is ignored.
func (s *gameServiceImpl) onTimeout(scopeID, roundID string) {
	round, err := s.lockActive(scopeID, roundID)
	if err != nil {
		logrus.WithField("scope", scopeID).Debugf("Timer for round %s ignored: %v", roundID, err)
		return
	}
	defer round.Unlock()

	if !round.Expire() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	s.finishLocked(ctx, round)
}

// lockActive returns the scope's round locked, provided it is still
// registered, active and (when roundID is set) the expected round.
// On error no lock is held.
func (s *gameServiceImpl) lockActive(scopeID, roundID string) (*engine.Round, error) {
	round, err := s.deps.Registry.Lookup(scopeID)
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", scopeID, engine.ErrNoActiveRound)
	}
	if roundID != "" && round.ID != roundID {
		return nil, fmt.Errorf("scope %s round %s replaced: %w", scopeID, roundID, engine.ErrNoActiveRound)
	}

	round.Lock()
	current, err := s.deps.Registry.Lookup(scopeID)
	if err != nil || current != round || round.State != engine.Active {
		round.Unlock()
		return nil, fmt.Errorf("scope %s: %w", scopeID, engine.ErrNoActiveRound)
	}
	return round, nil
}

// finishLocked runs the terminal protocol: reveal, unregister, cancel the
// timer, delete the teaser. Assumes the round lock is held and the round just
// became terminal.
func (s *gameServiceImpl) finishLocked(ctx context.Context, round *engine.Round) {
	info := round.Snapshot()

	s.notify(ctx, round.ScopeID, Message{
		Event:     eventFor(round.State),
		Text:      s.messages.ForOutcome(info),
		Image:     AssetURL(round.SourceID),
		ImagePath: round.SourcePath,
		Round:     info,
	})

	s.deps.Registry.RemoveRound(round.ScopeID, round)
	s.deps.Scheduler.Cancel(round.ScopeID, round.ID)
	s.deps.Reaper.Cleanup(round.TeaserPath)

	logrus.WithFields(logrus.Fields{
		"scope":    round.ScopeID,
		"round":    round.ID,
		"attempts": round.Attempts,
	}).Infof("Round finished: %s (answer %s)", round.State, round.Answer)
}

func (s *gameServiceImpl) notify(ctx context.Context, scopeID string, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := s.deps.Notifier.Notify(ctx, scopeID, msg); err != nil {
		logrus.WithField("scope", scopeID).Warnf("Failed to deliver %s message: %v", msg.Event, err)
	}
}

// GetRound returns a snapshot of the scope's active round
func (s *gameServiceImpl) GetRound(ctx context.Context, scopeID string) (*engine.RoundInfo, error) {
	round, err := s.deps.Registry.Lookup(strings.TrimSpace(scopeID))
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", scopeID, err)
	}
	round.Lock()
	defer round.Unlock()
	return round.Snapshot(), nil
}

// ListRounds returns snapshots of every registered round
func (s *gameServiceImpl) ListRounds(ctx context.Context) ([]*engine.RoundInfo, error) {
	rounds := s.deps.Registry.List()
	result := make([]*engine.RoundInfo, 0, len(rounds))
	for _, round := range rounds {
		round.Lock()
		result = append(result, round.Snapshot())
		round.Unlock()
	}
	return result, nil
}

// TeaserPath returns the teaser file of the scope's active round
func (s *gameServiceImpl) TeaserPath(ctx context.Context, scopeID string) (string, error) {
	round, err := s.lockActive(strings.TrimSpace(scopeID), "")
	if err != nil {
		return "", err
	}
	defer round.Unlock()
	return round.TeaserPath, nil
}

// AssetPath resolves a pool image ID to its file. Only pool members resolve.
func (s *gameServiceImpl) AssetPath(ctx context.Context, id string) (string, error) {
	candidate, ok := s.deps.Pool.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return candidate.Path, nil
}

// ListCandidates returns the current pool
func (s *gameServiceImpl) ListCandidates(ctx context.Context) ([]engine.Candidate, error) {
	return s.deps.Pool.List(), nil
}

// RescanPool rebuilds the pool from disk and warns about answers with no alias entry
func (s *gameServiceImpl) RescanPool(ctx context.Context) (int, error) {
	n, err := s.deps.Pool.Rescan()
	if err != nil {
		return 0, err
	}
	if missing := s.deps.Aliases.Missing(s.deps.Pool.Answers()); len(missing) > 0 {
		logrus.Warnf("Answers without alias entries: %s", strings.Join(missing, ", "))
	}
	logrus.Infof("Candidate pool loaded: %d images", n)
	return n, nil
}

// GetAliases returns the aliases of a canonical answer
func (s *gameServiceImpl) GetAliases(ctx context.Context, answer string) ([]string, error) {
	return s.deps.Aliases.Aliases(answer)
}

// Shutdown stops all timers, drops in-flight rounds without revealing them
// and deletes every tracked teaser. It does not wait on round locks.
func (s *gameServiceImpl) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	stopped := s.deps.Scheduler.StopAll()
	dropped := s.deps.Registry.Drain()
	removed := s.deps.Reaper.CleanupAll()

	logrus.Infof("Game service stopped: %d rounds dropped, %d timers stopped, %d teasers removed",
		len(dropped), stopped, removed)
	return nil
}
