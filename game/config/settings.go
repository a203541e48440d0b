package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/engine"
)

// Crop policies understood by the teaser generator
const (
	CropCenter = "center"
	CropRandom = "random"

	// AllowAll in the allow-list admits every scope
	AllowAll = "*"
)

// Settings holds the game options read from the environment
type Settings struct {
	AssetDirectory     string        `env:"ASSET_DIRECTORY" envDefault:"menu"`
	AliasFile          string        `env:"ALIAS_FILE" envDefault:"aliases.json"`
	TeaserDirectory    string        `env:"TEASER_DIRECTORY"`
	CropSize           int           `env:"CROP_SIZE" envDefault:"200"`
	CropPolicy         string        `env:"CROP_POLICY" envDefault:"random"`
	MaxAttempts        int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	TimeoutSeconds     int           `env:"TIMEOUT_SECONDS" envDefault:"30"`
	ScopeAllowList     []string      `env:"SCOPE_ALLOW_LIST" envSeparator:","`
	Seed               uint64        `env:"SEED" envDefault:"0"`
	PoolRescanInterval time.Duration `env:"POOL_RESCAN_INTERVAL" envDefault:"0s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("%w: parse env: %v", engine.ErrConfigInvalid, err)
	}
	return nil
}

// LoadSettings parses the environment and applies safe defaults
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return nil, err
	}
	s.Normalize()
	return &s, nil
}

// Normalize replaces unsafe values with documented defaults, logging each fallback
func (s *Settings) Normalize() {
	if s.CropSize <= 0 {
		logrus.Warnf("crop_size must be positive, got %d; using %d", s.CropSize, engine.DefaultCropSize)
		s.CropSize = engine.DefaultCropSize
	}
	if s.MaxAttempts <= 0 || s.MaxAttempts > engine.MaxAttemptsLimit {
		logrus.Warnf("max_attempts must be between 1 and %d, got %d; using %d",
			engine.MaxAttemptsLimit, s.MaxAttempts, engine.DefaultMaxAttempts)
		s.MaxAttempts = engine.DefaultMaxAttempts
	}
	if s.TimeoutSeconds <= 0 {
		logrus.Warnf("timeout_seconds must be positive, got %d; using %d", s.TimeoutSeconds, engine.DefaultTimeoutSeconds)
		s.TimeoutSeconds = engine.DefaultTimeoutSeconds
	}

	s.CropPolicy = strings.ToLower(strings.TrimSpace(s.CropPolicy))
	if s.CropPolicy != CropCenter && s.CropPolicy != CropRandom {
		logrus.Warnf("crop_policy must be %q or %q, got %q; using %q", CropCenter, CropRandom, s.CropPolicy, CropRandom)
		s.CropPolicy = CropRandom
	}

	if s.TeaserDirectory == "" {
		s.TeaserDirectory = filepath.Join(os.TempDir(), "cardguess")
	}
	if s.PoolRescanInterval < 0 {
		s.PoolRescanInterval = 0
	}

	allow := make([]string, 0, len(s.ScopeAllowList))
	for _, scope := range s.ScopeAllowList {
		if scope = strings.TrimSpace(scope); scope != "" {
			allow = append(allow, scope)
		}
	}
	s.ScopeAllowList = allow
}

// Validate checks the settings that cannot fall back to a default.
// An unreadable asset directory is fatal at startup.
func (s *Settings) Validate() error {
	info, err := os.Stat(s.AssetDirectory)
	if err != nil {
		return fmt.Errorf("%w: asset directory %s: %v", engine.ErrConfigInvalid, s.AssetDirectory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: asset directory %s is not a directory", engine.ErrConfigInvalid, s.AssetDirectory)
	}
	if s.AliasFile == "" {
		return fmt.Errorf("%w: alias_file is required", engine.ErrConfigInvalid)
	}
	return nil
}

// Timeout returns the round timeout as a duration
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Level returns the configured logrus level, defaulting to info
func (s *Settings) Level() logrus.Level {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
