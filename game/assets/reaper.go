package assets

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/engine"
)

// Reaper tracks generated teaser files and deletes each one at most once
type Reaper struct {
	tracked map[string]struct{}
	mu      sync.Mutex
	remove  func(string) error
}

// NewReaper creates an empty reaper
func NewReaper() *Reaper {
	return &Reaper{
		tracked: make(map[string]struct{}),
		remove:  os.Remove,
	}
}

// Track registers a generated artifact for later cleanup
func (r *Reaper) Track(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	r.tracked[path] = struct{}{}
	r.mu.Unlock()
}

// Cleanup deletes a tracked artifact. It returns false when the path was not
// tracked (already cleaned up) or the delete failed. A file that is already
// gone counts as cleaned. Failed deletes stay tracked for CleanupAll.
func (r *Reaper) Cleanup(path string) bool {
	r.mu.Lock()
	if _, ok := r.tracked[path]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.tracked, path)
	r.mu.Unlock()

	if err := r.delete(path); err != nil {
		logrus.Warn(err)
		r.Track(path)
		return false
	}
	return true
}

// CleanupAll deletes every still-tracked artifact and returns how many were removed
func (r *Reaper) CleanupAll() int {
	removed := 0
	for _, path := range r.Tracked() {
		if r.Cleanup(path) {
			removed++
		}
	}
	return removed
}

// Tracked returns the tracked paths, sorted
func (r *Reaper) Tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.tracked))
	for path := range r.tracked {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (r *Reaper) delete(path string) error {
	if err := r.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s: %v", engine.ErrCleanupFailed, path, err)
	}
	logrus.Debugf("Removed teaser %s", path)
	return nil
}
