package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/cardguess/game/engine"
	"github.com/wricardo/cardguess/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Card Guess Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Card Guess Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
A round shows a cropped part of a character card. Guess the character before
the attempts run out or the timer expires.

AVAILABLE TOOLS:
- start_round: Start a round in a scope (chat room, channel, session)
- submit_guess: Guess the character of the scope's active round
- round_status: Attempts used, attempts left and deadline of a round
- list_rounds: List every active round
- list_candidates: List the characters that can appear
- game_instructions: Rules and tips`),
	)

	c.registerTools()
}

func scopeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Scope ID (chat room, channel or session) the round belongs to",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_round",
		Description: "Start a new round in a scope. Fails if the scope already has a round in progress.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scope_id": scopeProperty(),
			},
			Required: []string{"scope_id"},
		},
	}, c.handleStartRound)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_guess",
		Description: "Submit a guess for the scope's active round. Matching ignores case and surrounding spaces and accepts known aliases.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scope_id": scopeProperty(),
				"text": map[string]interface{}{
					"type":        "string",
					"description": "The guessed character name or alias",
				},
				"player": map[string]interface{}{
					"type":        "string",
					"description": "Name of the player guessing (optional)",
				},
			},
			Required: []string{"scope_id", "text"},
		},
	}, c.handleSubmitGuess)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "round_status",
		Description: "Get the status of the scope's active round",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scope_id": scopeProperty(),
			},
			Required: []string{"scope_id"},
		},
	}, c.handleRoundStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rounds",
		Description: "List all active rounds",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRounds)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_candidates",
		Description: "List the characters in the candidate pool",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListCandidates)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP call to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if code := errResp["code"]; code != "" {
				return fmt.Errorf("%s (%s)", msg, code)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, key string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	value, _ := args[key].(string)
	return strings.TrimSpace(value)
}

func scopePath(scopeID string) string {
	return "/api/scopes/" + url.PathEscape(scopeID)
}

// Tool Handlers

func (c *Client) handleStartRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scopeID := stringArg(request, "scope_id")
	if scopeID == "" {
		return mcp.NewToolResultError("scope_id is required"), nil
	}

	var result service.StartResult
	if err := c.apiCall(ctx, "POST", scopePath(scopeID)+"/rounds", nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStart(c.baseURL, &result)), nil
}

func (c *Client) handleSubmitGuess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scopeID := stringArg(request, "scope_id")
	text := stringArg(request, "text")
	if scopeID == "" || text == "" {
		return mcp.NewToolResultError("scope_id and text are required"), nil
	}

	body := map[string]string{
		"text":   text,
		"player": stringArg(request, "player"),
	}

	var result service.GuessResult
	if err := c.apiCall(ctx, "POST", scopePath(scopeID)+"/guesses", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGuess(c.baseURL, &result)), nil
}

func (c *Client) handleRoundStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scopeID := stringArg(request, "scope_id")
	if scopeID == "" {
		return mcp.NewToolResultError("scope_id is required"), nil
	}

	var info engine.RoundInfo
	if err := c.apiCall(ctx, "GET", scopePath(scopeID)+"/round", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRound(&info)), nil
}

func (c *Client) handleListRounds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Rounds []*engine.RoundInfo `json:"rounds"`
	}
	if err := c.apiCall(ctx, "GET", "/api/rounds", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Rounds) == 0 {
		return mcp.NewToolResultText("No active rounds"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active rounds (%d):\n", len(response.Rounds))
	for _, info := range response.Rounds {
		fmt.Fprintf(&b, "- %s: %d/%d attempts, deadline %s\n",
			info.ScopeID, info.Attempts, info.MaxAttempts, info.Deadline.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Characters []struct {
			Answer string `json:"answer"`
			Images int    `json:"images"`
		} `json:"characters"`
		Count int `json:"count"`
	}
	if err := c.apiCall(ctx, "GET", "/api/candidates", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Candidate pool: %d images, %d characters\n", response.Count, len(response.Characters))
	for _, character := range response.Characters {
		fmt.Fprintf(&b, "- %s (%d)\n", character.Answer, character.Images)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `CARD GUESS GAME - RULES

1. start_round opens a round in a scope and returns a teaser: a square crop
   of a character card.
2. Anyone in the scope may guess with submit_guess. A guess is correct when it
   equals the character's canonical name or one of its aliases, ignoring case
   and surrounding spaces ("Miku", " miku " and "MIKU" all match "miku").
3. The round ends when:
   - someone guesses correctly (resolved),
   - the attempts run out (exhausted), or
   - the timer expires (timed_out).
   Every ending reveals the full card and the answer.
4. A scope has at most one round at a time. Starting another while one is in
   progress is rejected.

TIPS:
- round_status shows the attempts left and the deadline.
- list_candidates shows which characters can appear.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatStart(baseURL string, result *service.StartResult) string {
	var b strings.Builder
	b.WriteString(result.Prompt)
	b.WriteString("\n")
	if result.Round != nil {
		fmt.Fprintf(&b, "Round %s in %s: %d attempts, deadline %s\n",
			result.Round.ID, result.Round.ScopeID, result.Round.MaxAttempts, result.Round.Deadline.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Teaser: %s%s", baseURL, result.TeaserURL)
	return b.String()
}

func formatGuess(baseURL string, result *service.GuessResult) string {
	var b strings.Builder
	switch {
	case result.Correct:
		b.WriteString("✅ ")
	case result.State == engine.Active:
		b.WriteString("❌ ")
	default:
		b.WriteString("⏹ ")
	}
	b.WriteString(result.Message)
	fmt.Fprintf(&b, "\nState: %s, attempts: %d, remaining: %d", result.State, result.Attempts, result.Remaining)
	if result.RevealURL != "" {
		fmt.Fprintf(&b, "\nFull card: %s%s", baseURL, result.RevealURL)
	}
	return b.String()
}

func formatRound(info *engine.RoundInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %s in %s\n", info.ID, info.ScopeID)
	fmt.Fprintf(&b, "State: %s\n", info.State)
	fmt.Fprintf(&b, "Attempts: %d/%d (remaining %d)\n", info.Attempts, info.MaxAttempts, info.Remaining)
	fmt.Fprintf(&b, "Deadline: %s", info.Deadline.Format(time.RFC3339))
	if info.Answer != "" {
		fmt.Fprintf(&b, "\nAnswer: %s", info.Answer)
	}
	return b.String()
}
