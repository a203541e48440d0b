// Package engine provides the core round logic for the card guessing game.
//
// The engine package implements:
//   - The round state machine (active, resolved, exhausted, timed out)
//   - Answer matching against a canonical name and its aliases
//   - The error taxonomy shared by every layer of the server
//   - Seed helpers for the deterministic pseudo-random draws
//
// Core Types:
//
// Round is one game round bound to a scope (a chat room, channel or user
// session). Candidate is a drawable (answer, image) pair. RoundInfo is the
// read-only view of a round handed to transports.
//
// Usage:
//
//	round := engine.NewRound(engine.RoundParams{
//		ScopeID:     "group-1",
//		Answer:      "初音未来",
//		Aliases:     []string{"miku"},
//		MaxAttempts: 5,
//		Timeout:     30 * time.Second,
//	})
//
//	round.Lock()
//	outcome, err := round.Guess("alice", " MIKU ")
//	round.Unlock()
//
// Rules:
//
// A round starts active. A matching guess resolves it; a miss that uses up the
// last attempt exhausts it; the timeout scheduler expires it. All three
// outcomes are terminal and a terminal round never changes again.
package engine
