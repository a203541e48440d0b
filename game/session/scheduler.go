package session

import (
	"sync"
	"time"
)

// FireFunc is called when a round's timer expires
type FireFunc = func(scopeID, roundID string)

type timerEntry struct {
	roundID string
	seq     uint64
	timer   *time.Timer
}

// Scheduler keeps one timeout timer per scope
type Scheduler struct {
	timers  map[string]timerEntry
	seq     uint64
	stopped bool
	mu      sync.Mutex
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		timers: make(map[string]timerEntry),
	}
}

// Arm schedules fire(scopeID, roundID) after delay, replacing any timer the
// scope already had. After StopAll, Arm does nothing.
func (s *Scheduler) Arm(scopeID, roundID string, delay time.Duration, fire FireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if entry, exists := s.timers[scopeID]; exists {
		entry.timer.Stop()
	}

	s.seq++
	seq := s.seq
	timer := time.AfterFunc(delay, func() {
		s.release(scopeID, seq)
		fire(scopeID, roundID)
	})
	s.timers[scopeID] = timerEntry{roundID: roundID, seq: seq, timer: timer}
}

// Cancel stops the scope's timer if it still belongs to roundID.
// It reports whether a pending timer was stopped.
func (s *Scheduler) Cancel(scopeID, roundID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.timers[scopeID]
	if !exists || entry.roundID != roundID {
		return false
	}
	delete(s.timers, scopeID)
	return entry.timer.Stop()
}

// Pending returns the number of armed timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// StopAll stops every timer and refuses further arming
func (s *Scheduler) StopAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := 0
	for scopeID, entry := range s.timers {
		if entry.timer.Stop() {
			stopped++
		}
		delete(s.timers, scopeID)
	}
	s.stopped = true
	return stopped
}

// release forgets a timer that has fired, unless the scope was re-armed
func (s *Scheduler) release(scopeID string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.timers[scopeID]; exists && entry.seq == seq {
		delete(s.timers, scopeID)
	}
}
