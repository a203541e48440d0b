package assets

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/engine"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsImage reports whether the file name carries an accepted image extension
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Pool is the set of drawable candidates found in the asset directory.
// A rescan replaces the collection wholesale.
type Pool struct {
	dir        string
	candidates []engine.Candidate
	byID       map[string]engine.Candidate
	rng        *rand.Rand
	mu         sync.RWMutex
	rngMu      sync.Mutex
}

// NewPool creates an empty pool over dir. Call Rescan to populate it.
func NewPool(dir string, seed uint64) *Pool {
	seed = engine.SeedOrRandom(seed)
	return &Pool{
		dir:  dir,
		byID: make(map[string]engine.Candidate),
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Dir returns the scanned directory
func (p *Pool) Dir() string {
	return p.dir
}

// Rescan rebuilds the pool from disk and returns the number of candidates.
// Only an unreadable asset directory is an error; unreadable subdirectories
// are skipped with a warning.
func (p *Pool) Rescan() (int, error) {
	candidates, err := Scan(p.dir)
	if err != nil {
		return 0, err
	}

	byID := make(map[string]engine.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	p.mu.Lock()
	p.candidates = candidates
	p.byID = byID
	p.mu.Unlock()

	logrus.Debugf("Candidate pool rescanned: %d candidates in %s", len(candidates), p.dir)
	return len(candidates), nil
}

// Draw picks one candidate uniformly at random
func (p *Pool) Draw() (engine.Candidate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.candidates) == 0 {
		return engine.Candidate{}, fmt.Errorf("%w: no images in %s", engine.ErrPoolEmpty, p.dir)
	}

	p.rngMu.Lock()
	i := p.rng.IntN(len(p.candidates))
	p.rngMu.Unlock()

	return p.candidates[i], nil
}

// List returns a copy of the current candidates, sorted by ID
func (p *Pool) List() []engine.Candidate {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]engine.Candidate, len(p.candidates))
	copy(out, p.candidates)
	return out
}

// Len returns the number of candidates
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.candidates)
}

// Lookup finds a candidate by its relative ID
func (p *Pool) Lookup(id string) (engine.Candidate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byID[id]
	return c, ok
}

// Answers returns the distinct canonical answers in the pool, sorted
func (p *Pool) Answers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Answers(p.candidates)
}

// Scan walks dir and returns every candidate it contains, sorted by ID.
//
// Top-level images use their file stem as the answer. Images one level down
// use the directory name. Anything deeper is ignored.
func Scan(dir string) ([]engine.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read asset directory %s: %v", engine.ErrConfigInvalid, dir, err)
	}

	var candidates []engine.Candidate
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			candidates = append(candidates, scanGroup(dir, name)...)
			continue
		}
		if !entry.Type().IsRegular() || !IsImage(name) {
			continue
		}
		candidates = append(candidates, engine.Candidate{
			Answer: strings.TrimSuffix(name, filepath.Ext(name)),
			ID:     name,
			Path:   filepath.Join(dir, name),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	return candidates, nil
}

func scanGroup(dir, group string) []engine.Candidate {
	entries, err := os.ReadDir(filepath.Join(dir, group))
	if err != nil {
		logrus.Warnf("Skipping unreadable asset group %s: %v", group, err)
		return nil
	}

	var candidates []engine.Candidate
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || !IsImage(name) {
			continue
		}
		candidates = append(candidates, engine.Candidate{
			Answer: group,
			ID:     path.Join(group, name),
			Path:   filepath.Join(dir, group, name),
		})
	}
	return candidates
}

// Answers returns the distinct canonical answers among candidates, sorted
func Answers(candidates []engine.Candidate) []string {
	seen := make(map[string]bool)
	var answers []string
	for _, c := range candidates {
		if seen[c.Answer] {
			continue
		}
		seen[c.Answer] = true
		answers = append(answers, c.Answer)
	}
	sort.Strings(answers)
	return answers
}
