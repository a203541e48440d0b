// Package api provides the HTTP REST API for the card guessing game.
//
// Endpoints:
//
// Rounds:
//   - POST /api/scopes/{scope}/rounds - Start a round in a scope
//   - GET /api/scopes/{scope}/round - Status of the scope's active round
//   - GET /api/scopes/{scope}/round/teaser - Teaser image (PNG) of the active round
//   - POST /api/scopes/{scope}/guesses - Submit a guess
//   - GET /api/rounds - List active rounds
//
// Assets:
//   - GET /api/candidates - List the characters in the pool (no image IDs)
//   - POST /api/candidates/rescan - Rebuild the pool from the asset directory
//   - GET /api/assets/{id} - Full image of a pool member
//   - GET /api/aliases/{answer} - Aliases of a canonical answer
//
// Other:
//   - GET /api/health - Health check
//   - GET /ws?scope={scope} - WebSocket subscription for round messages
//
// Guess requests carry a JSON body:
//
//	{"text": "miku", "player": "alice"}
//
// Errors:
//
// Failed requests return {"error": "<user-visible text>", "code": "<code>"}:
//   - 400 bad_request
//   - 403 scope_not_allowed
//   - 404 no_active_round, not_found
//   - 409 round_already_active
//   - 422 asset_unreadable
//   - 503 pool_empty, shutting_down
//
// The answer of an active round is never included in a response.
package api
