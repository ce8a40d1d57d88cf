// Package mcp exposes road dodge to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API (see package api) and the JSON response is rendered as plain text that
// an agent can reason about.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: health, lane, distance and obstacle offsets
//   - scan_road: obstacles ahead with gap, time to impact and lane overlap
//   - drive: hold up, down or nothing for N frames, or let the autopilot steer
//   - reset_game
//   - event_history: paginated collisions, out of bounds, game over and resets
//   - list_configs
//   - game_instructions
//
// Transport Modes:
//
// The server binary serves the same tools two ways:
//   - Stdio, for local MCP clients (server.ServeStdio)
//   - HTTP, as a POST /mcp endpoint next to the REST API
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
