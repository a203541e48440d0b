// Package mcp exposes the card guessing game as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool calls the REST API, so the MCP
// surface never holds game state of its own.
//
// MCP Tools:
//   - start_round: Start a round in a scope
//   - submit_guess: Guess the active round of a scope
//   - round_status: Status of a scope's active round
//   - list_rounds: List every active round
//   - list_candidates: Characters in the candidate pool
//   - game_instructions: Rules
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the server binary mounts GetMCPServer().HandleMessage at /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
