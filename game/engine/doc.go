// Package engine provides the core simulation for the Road Dodge game.
//
// The engine package implements the game mechanics including:
//   - Player steering with up/down input and a small tilt
//   - Scrolling road lines that wrap around the screen
//   - Obstacles that respawn at random positions ahead of the player
//   - Collision events detected by a Chipmunk sensor space
//   - Health bookkeeping and the game over condition
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is the serializable world snapshot
// (sprites, texts, health, RNG state), while GameConfig defines the rules
// loaded from JSON or YAML files.
//
// Usage:
//
//	config := engine.DefaultConfig()
//	gameEngine, err := engine.NewEngine(config, 42)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Advance one frame with the up key held
//	result := gameEngine.Step(engine.Input{Up: true}, engine.DefaultDT)
//	state := gameEngine.GetState()
//
// World Space:
//
// The origin sits at the centre of a 1280x720 logical screen, x grows to the
// right and y grows upwards. The player drives at a fixed x while the road
// and obstacles scroll left. Leaving the vertical bounds empties health at
// once; every obstacle hit costs one point. At zero health the game is lost
// and Step becomes a no-op until Reset.
package engine
