// Package session tracks the rounds in flight, one per scope.
//
// Registry maps a scope ID (chat room, channel, user session) to its single
// registered round. Register, Lookup and RemoveRound are atomic under one
// RWMutex; RemoveRound is a compare-and-delete so a late trigger for an old
// round cannot remove a newer one.
//
// Scheduler owns the per-scope timeout timers built on time.AfterFunc. The
// fire callback receives the scope and round IDs it was armed with; the
// caller decides whether the round is still the one to expire.
//
// Lock order:
//
// Callers that hold a round's lock (Round.Lock) may call into the Registry and Scheduler.
// Neither ever acquires a round lock, so the order is always round first.
//
// Usage:
//
//	registry := session.NewRegistry()
//	scheduler := session.NewScheduler()
//
//	if err := registry.Register(scopeID, round); err != nil {
//		return err // engine.ErrRoundAlreadyActive
//	}
//	scheduler.Arm(scopeID, round.ID, timeout, onTimeout)
package session
