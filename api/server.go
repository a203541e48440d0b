package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/config"
	"github.com/wricardo/cardguess/game/engine"
	"github.com/wricardo/cardguess/game/service"
	"github.com/wricardo/cardguess/game/session"
	"github.com/wricardo/cardguess/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil when no websocket
// delivery is wanted.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rounds
	api.HandleFunc("/scopes/{scope}/rounds", s.handleStartRound).Methods("POST")
	api.HandleFunc("/scopes/{scope}/round", s.handleGetRound).Methods("GET")
	api.HandleFunc("/scopes/{scope}/round/teaser", s.handleGetTeaser).Methods("GET")
	api.HandleFunc("/scopes/{scope}/guesses", s.handleGuess).Methods("POST")
	api.HandleFunc("/rounds", s.handleListRounds).Methods("GET")

	// Assets
	api.HandleFunc("/candidates", s.handleListCandidates).Methods("GET")
	api.HandleFunc("/candidates/rescan", s.handleRescan).Methods("POST")
	api.HandleFunc("/assets/{id:.+}", s.handleGetAsset).Methods("GET")
	api.HandleFunc("/aliases/{answer}", s.handleGetAliases).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.handleUnmatched)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleUnmatched)
	api.MethodNotAllowedHandler = http.HandlerFunc(s.handleUnmatched)
}

// handleUnmatched answers 405 when the path exists under another method and
// 404 otherwise, both with the JSON error body.
func (s *Server) handleUnmatched(w http.ResponseWriter, r *http.Request) {
	if allowed := s.allowedMethods(r); len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed", Code: "method_not_allowed"})
		return
	}
	respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", Code: "not_found"})
}

// allowedMethods lists the methods a route accepts for the request's path
func (s *Server) allowedMethods(r *http.Request) []string {
	var allowed []string
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		if method == r.Method {
			continue
		}
		probe := r.Clone(r.Context())
		probe.Method = method
		var match mux.RouteMatch
		if s.router.Match(probe, &match) && match.MatchErr == nil {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

// respondError maps a game error to its status code and user-visible text
func respondError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("Request failed: %v", err)
	}
	respondJSON(w, status, ErrorResponse{Error: service.UserMessage(err), Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidScopeID):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrAssetNotFound), errors.Is(err, config.ErrAliasNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting_down"
	}

	code := engine.Code(err)
	switch code {
	case "scope_not_allowed":
		return http.StatusForbidden, code
	case "round_already_active":
		return http.StatusConflict, code
	case "no_active_round":
		return http.StatusNotFound, code
	case "pool_empty":
		return http.StatusServiceUnavailable, code
	case "asset_unreadable":
		return http.StatusUnprocessableEntity, code
	default:
		return http.StatusInternalServerError, code
	}
}

// Round Handlers

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	scope := mux.Vars(r)["scope"]

	result, err := s.service.StartRound(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	scope := mux.Vars(r)["scope"]

	info, err := s.service.GetRound(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetTeaser(w http.ResponseWriter, r *http.Request) {
	scope := mux.Vars(r)["scope"]

	path, err := s.service.TeaserPath(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	scope := mux.Vars(r)["scope"]

	var req struct {
		Text   string `json:"text"`
		Player string `json:"player,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondBadRequest(w, "text is required")
		return
	}

	result, err := s.service.SubmitGuess(r.Context(), scope, req.Player, req.Text)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.service.ListRounds(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rounds": rounds,
		"count":  len(rounds),
	})
}

// Asset Handlers

// handleListCandidates lists the characters in the pool with their image
// counts. Image IDs stay private so a listing cannot be matched against the
// teaser of a running round.
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.service.ListCandidates(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	type characterView struct {
		Answer string `json:"answer"`
		Images int    `json:"images"`
	}
	views := make([]characterView, 0, len(candidates))
	index := make(map[string]int)
	for _, c := range candidates {
		i, seen := index[c.Answer]
		if !seen {
			i = len(views)
			index[c.Answer] = i
			views = append(views, characterView{Answer: c.Answer})
		}
		views[i].Images++
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"characters": views,
		"count":      len(candidates),
	})
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.RescanPool(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Candidate pool rescanned",
		"count":   n,
	})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	path, err := s.service.AssetPath(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	http.ServeFile(w, r, path)
}

func (s *Server) handleGetAliases(w http.ResponseWriter, r *http.Request) {
	answer := mux.Vars(r)["answer"]

	aliases, err := s.service.GetAliases(r.Context(), answer)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"answer":  answer,
		"aliases": aliases,
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rounds, _ := s.service.ListRounds(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"active_rounds": len(rounds),
	})
}
