package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/cardguess/game/engine"
)

var (
	ErrInvalidScopeID = errors.New("invalid scope ID")
)

// Registry maps each scope to its single in-flight round
type Registry struct {
	rounds map[string]*engine.Round
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rounds: make(map[string]*engine.Round),
	}
}

// NormalizeScopeID trims surrounding whitespace. Scope IDs are otherwise opaque.
func NormalizeScopeID(scopeID string) (string, error) {
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		return "", ErrInvalidScopeID
	}
	return scopeID, nil
}

// Register inserts round for scopeID. Any existing entry for the scope,
// terminal or not, rejects the insert.
func (r *Registry) Register(scopeID string, round *engine.Round) error {
	scopeID, err := NormalizeScopeID(scopeID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.rounds[scopeID]; exists {
		return fmt.Errorf("scope %s has round %s: %w", scopeID, existing.ID, engine.ErrRoundAlreadyActive)
	}
	r.rounds[scopeID] = round
	return nil
}

// Lookup returns the round registered for scopeID
func (r *Registry) Lookup(scopeID string) (*engine.Round, error) {
	scopeID = strings.TrimSpace(scopeID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	round, exists := r.rounds[scopeID]
	if !exists {
		return nil, engine.ErrNoActiveRound
	}
	return round, nil
}

// Has reports whether scopeID has a registered round
func (r *Registry) Has(scopeID string) bool {
	_, err := r.Lookup(scopeID)
	return err == nil
}

// Remove deletes the entry for scopeID. Removing an absent scope is a no-op.
func (r *Registry) Remove(scopeID string) {
	scopeID = strings.TrimSpace(scopeID)

	r.mu.Lock()
	delete(r.rounds, scopeID)
	r.mu.Unlock()
}

// RemoveRound deletes the entry for scopeID only if it is still round.
// It reports whether an entry was removed.
func (r *Registry) RemoveRound(scopeID string, round *engine.Round) bool {
	scopeID = strings.TrimSpace(scopeID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.rounds[scopeID]; !exists || current != round {
		return false
	}
	delete(r.rounds, scopeID)
	return true
}

// List returns the registered rounds ordered by scope ID
func (r *Registry) List() []*engine.Round {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scopes := make([]string, 0, len(r.rounds))
	for scopeID := range r.rounds {
		scopes = append(scopes, scopeID)
	}
	sort.Strings(scopes)

	result := make([]*engine.Round, 0, len(scopes))
	for _, scopeID := range scopes {
		result = append(result, r.rounds[scopeID])
	}
	return result
}

// Count returns the number of registered rounds
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rounds)
}

// Drain empties the registry and returns what it held
func (r *Registry) Drain() []*engine.Round {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*engine.Round, 0, len(r.rounds))
	for _, round := range r.rounds {
		result = append(result, round)
	}
	r.rounds = make(map[string]*engine.Round)
	return result
}
