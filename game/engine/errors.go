package engine

import "errors"

var (
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrScopeNotAllowed    = errors.New("scope not allowed")
	ErrRoundAlreadyActive = errors.New("round already active")
	ErrNoActiveRound      = errors.New("no active round")
	ErrPoolEmpty          = errors.New("candidate pool is empty")
	ErrAssetUnreadable    = errors.New("asset unreadable")
	ErrCleanupFailed      = errors.New("artifact cleanup failed")
	ErrRoundNotActive     = errors.New("round is not active")
)

// Code returns the machine-readable code for a game error.
// Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigInvalid):
		return "config_invalid"
	case errors.Is(err, ErrScopeNotAllowed):
		return "scope_not_allowed"
	case errors.Is(err, ErrRoundAlreadyActive):
		return "round_already_active"
	case errors.Is(err, ErrNoActiveRound), errors.Is(err, ErrRoundNotActive):
		return "no_active_round"
	case errors.Is(err, ErrPoolEmpty):
		return "pool_empty"
	case errors.Is(err, ErrAssetUnreadable):
		return "asset_unreadable"
	case errors.Is(err, ErrCleanupFailed):
		return "cleanup_failed"
	default:
		return "internal"
	}
}
