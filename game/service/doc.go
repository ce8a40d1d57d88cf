// Package service provides the business logic layer for Road Dodge.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Driving sessions frame by frame
//   - Session lifecycle management
//   - Event history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing session isolation, configuration management, and
// business logic orchestration. Each session maintains its own game engine
// instance with independent state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	// Create a new session
//	sessionInfo, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Hold Up for half a second of game time
//	result, err := gameService.Drive(ctx, sessionInfo.ID, service.DriveRequest{Up: true, Frames: 30}, false)
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and maintain independent
// game state. Multiple sessions can run concurrently with different
// configurations. States returned by the service are snapshots, so callers
// may encode them while other requests keep driving the same session.
package service
