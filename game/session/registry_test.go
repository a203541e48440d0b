package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/cardguess/game/engine"
)

func newRound(scopeID string) *engine.Round {
	return engine.NewRound(engine.RoundParams{ScopeID: scopeID, Answer: "初音未来", MaxAttempts: 3})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	round := newRound("group-1")

	require.NoError(t, registry.Register("group-1", round))

	got, err := registry.Lookup("group-1")
	require.NoError(t, err)
	assert.Same(t, round, got)

	got, err = registry.Lookup("  group-1 ")
	require.NoError(t, err, "scope IDs are trimmed")
	assert.Same(t, round, got)

	_, err = registry.Lookup("GROUP-1")
	assert.ErrorIs(t, err, engine.ErrNoActiveRound, "scope IDs are opaque, matching is exact")
}

func TestRegistry_RegisterRejectsSecondRound(t *testing.T) {
	registry := NewRegistry()
	first := newRound("group-1")
	require.NoError(t, registry.Register("group-1", first))

	err := registry.Register("group-1", newRound("group-1"))
	assert.ErrorIs(t, err, engine.ErrRoundAlreadyActive)

	got, _ := registry.Lookup("group-1")
	assert.Same(t, first, got)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_RegisterEmptyScope(t *testing.T) {
	registry := NewRegistry()
	assert.ErrorIs(t, registry.Register("   ", newRound("")), ErrInvalidScopeID)
}

func TestRegistry_ConcurrentRegisterSingleWinner(t *testing.T) {
	registry := NewRegistry()

	var (
		wins     atomic.Int32
		rejected atomic.Int32
		wg       sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := registry.Register("group-1", newRound("group-1"))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, engine.ErrRoundAlreadyActive):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(49), rejected.Load())
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_RemoveRoundComparesIdentity(t *testing.T) {
	registry := NewRegistry()
	old := newRound("group-1")
	require.NoError(t, registry.Register("group-1", old))
	assert.True(t, registry.RemoveRound("group-1", old))
	assert.False(t, registry.RemoveRound("group-1", old), "second removal is a no-op")

	newer := newRound("group-1")
	require.NoError(t, registry.Register("group-1", newer))
	assert.False(t, registry.RemoveRound("group-1", old), "stale round must not remove the newer one")
	assert.True(t, registry.Has("group-1"))
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("group-1", newRound("group-1")))

	registry.Remove("group-1")
	registry.Remove("group-1")
	assert.False(t, registry.Has("group-1"))
	assert.Zero(t, registry.Count())
}

func TestRegistry_ListAndDrain(t *testing.T) {
	registry := NewRegistry()
	for _, scope := range []string{"c", "a", "b"} {
		require.NoError(t, registry.Register(scope, newRound(scope)))
	}

	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ScopeID)
	assert.Equal(t, "c", list[2].ScopeID)

	drained := registry.Drain()
	assert.Len(t, drained, 3)
	assert.Zero(t, registry.Count())
	assert.Empty(t, registry.List())
}

func TestRegistry_ParallelScopes(t *testing.T) {
	registry := NewRegistry()
	scopes := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}

	var wg sync.WaitGroup
	for _, scope := range scopes {
		wg.Add(1)
		go func(scope string) {
			defer wg.Done()
			round := newRound(scope)
			if err := registry.Register(scope, round); err != nil {
				t.Errorf("register %s: %v", scope, err)
				return
			}
			if got, err := registry.Lookup(scope); err != nil || got != round {
				t.Errorf("lookup %s returned wrong round", scope)
			}
			registry.RemoveRound(scope, round)
		}(scope)
	}
	wg.Wait()
	assert.Zero(t, registry.Count())
}
