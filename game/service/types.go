package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/cardguess/game/engine"
)

// Event names the kind of message sent to a scope
type Event string

const (
	EventTeaser    Event = "teaser"
	EventWrong     Event = "wrong"
	EventCorrect   Event = "correct"
	EventExhausted Event = "exhausted"
	EventTimedOut  Event = "timed_out"
)

// Message is one outbound delivery to a scope
type Message struct {
	Event     Event             `json:"event"`
	Text      string            `json:"text"`
	Image     string            `json:"image,omitempty"` // URL path served by the API
	ImagePath string            `json:"-"`               // file on disk
	Round     *engine.RoundInfo `json:"round,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Options tunes round behaviour
type Options struct {
	MaxAttempts int
	Timeout     time.Duration
	AllowList   []string // "*" admits every scope
	Messages    *Messages
}

// Dependencies are the collaborators a GameService is built from
type Dependencies struct {
	Registry  RoundRegistry
	Scheduler TimeoutScheduler
	Pool      CandidatePool
	Generator TeaserGenerator
	Reaper    ArtifactReaper
	Aliases   AliasSource
	Notifier  Notifier
}

// StartResult is returned to the scope that started a round
type StartResult struct {
	Round     *engine.RoundInfo `json:"round"`
	Prompt    string            `json:"prompt"`
	TeaserURL string            `json:"teaser_url"`
}

// GuessResult contains the result of one guess
type GuessResult struct {
	Correct   bool              `json:"correct"`
	State     engine.State      `json:"state"`
	Attempts  int               `json:"attempts"`
	Remaining int               `json:"remaining"`
	Message   string            `json:"message"`
	RevealURL string            `json:"reveal_url,omitempty"`
	Round     *engine.RoundInfo `json:"round"`
}

// TeaserURL is the API path serving the active teaser of a scope
func TeaserURL(scopeID string) string {
	return "/api/scopes/" + url.PathEscape(scopeID) + "/round/teaser"
}

// AssetURL is the API path serving a full pool image
func AssetURL(id string) string {
	parts := strings.Split(id, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return "/api/assets/" + strings.Join(parts, "/")
}
