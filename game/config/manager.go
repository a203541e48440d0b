package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/engine"
)

var (
	ErrAliasNotFound = errors.New("alias entry not found")
)

// AliasTable maps a canonical answer to its accepted alternative spellings
type AliasTable map[string][]string

// Manager handles loading and lookup of the alias file
type Manager struct {
	aliasFile string
	aliases   AliasTable
	mu        sync.RWMutex
}

// NewManager loads the alias file, creating it with the built-in defaults when absent
func NewManager(aliasFile string) (*Manager, error) {
	if aliasFile == "" {
		return nil, fmt.Errorf("%w: alias file path is empty", engine.ErrConfigInvalid)
	}

	m := &Manager{aliasFile: aliasFile}

	if _, err := os.Stat(aliasFile); os.IsNotExist(err) {
		logrus.Printf("Alias file %s not found, writing built-in defaults", aliasFile)
		if err := m.Save(DefaultAliases()); err != nil {
			return nil, fmt.Errorf("failed to create alias file: %w", err)
		}
		return m, nil
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Aliases returns the aliases registered for a canonical answer.
// The key lookup is exact; case folding happens at match time.
func (m *Manager) Aliases(answer string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	aliases, exists := m.aliases[answer]
	if !exists {
		return nil, ErrAliasNotFound
	}
	result := make([]string, len(aliases))
	copy(result, aliases)
	return result, nil
}

// Names returns every canonical answer in the table, sorted
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.aliases))
	for name := range m.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the answers that have no alias entry
func (m *Manager) Missing(answers []string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var missing []string
	for _, answer := range answers {
		if _, ok := m.aliases[answer]; ok || seen[answer] {
			continue
		}
		seen[answer] = true
		missing = append(missing, answer)
	}
	return missing
}

// Path returns the alias file location
func (m *Manager) Path() string {
	return m.aliasFile
}

// Save writes the table to the alias file and replaces the in-memory copy.
// Only used to seed a missing file; the table is read-only afterwards.
func (m *Manager) Save(table AliasTable) error {
	if err := ValidateAliasTable(table); err != nil {
		return err
	}

	if dir := filepath.Dir(m.aliasFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create alias directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal aliases: %w", err)
	}

	if err := os.WriteFile(m.aliasFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write alias file: %w", err)
	}

	m.mu.Lock()
	m.aliases = cloneTable(table)
	m.mu.Unlock()
	return nil
}

// load reads and validates the alias file
func (m *Manager) load() error {
	table, err := ReadAliasFile(m.aliasFile)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.aliases = table
	m.mu.Unlock()
	return nil
}

// ReadAliasFile parses an alias file: a flat JSON object of string arrays
func ReadAliasFile(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read alias file: %v", engine.ErrConfigInvalid, err)
	}

	var table AliasTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: failed to parse alias file %s: %v", engine.ErrConfigInvalid, path, err)
	}
	if table == nil {
		table = AliasTable{}
	}

	if err := ValidateAliasTable(table); err != nil {
		return nil, err
	}
	return table, nil
}

// ValidateAliasTable rejects empty keys and blank aliases
func ValidateAliasTable(table AliasTable) error {
	for name, aliases := range table {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: alias table contains an empty canonical name", engine.ErrConfigInvalid)
		}
		for i, alias := range aliases {
			if strings.TrimSpace(alias) == "" {
				return fmt.Errorf("%w: alias %d of %q is blank", engine.ErrConfigInvalid, i, name)
			}
		}
	}
	return nil
}

// DefaultAliases returns the built-in alias set written to a fresh alias file
func DefaultAliases() AliasTable {
	return AliasTable{
		"初音未来":  {"miku", "初音", "葱"},
		"镜音铃":   {"rin", "铃", "铃酱"},
		"镜音连":   {"len", "连"},
		"巡音流歌":  {"luka", "流歌"},
		"MEIKO": {"meiko", "大姐"},
		"KAITO": {"kaito", "大哥"},
	}
}

func cloneTable(table AliasTable) AliasTable {
	out := make(AliasTable, len(table))
	for name, aliases := range table {
		cp := make([]string, len(aliases))
		copy(cp, aliases)
		out[name] = cp
	}
	return out
}
