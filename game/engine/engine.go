package engine

import (
	"fmt"
	"math/rand/v2"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	GetHealth() int
	GetDistance() float64

	// Simulation
	Step(input Input, dt float64) *StepResult
	Run(input Input, frames int, dt float64) []*StepResult

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetEventHistory() []EventEntry
	GetLastEvent() *EventEntry

	// Presentation
	DrainAudio() []AudioCue
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
	pcg    *rand.PCG
	rng    *rand.Rand
	world  *collisionWorld
	audio  []AudioCue
}

// NewEngine creates a new game engine with the provided configuration and RNG seed
func NewEngine(config *GameConfig, seed uint64) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{config: config}
	engine.start(InitGameStateFromConfig(config, seed))
	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with the classic configuration
func NewEngineWithDefaults() *GameEngine {
	engine, err := NewEngine(DefaultConfig(), rand.Uint64())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return engine
}

// start seeds the RNG, places obstacles and queues the background music
func (e *GameEngine) start(state *GameState) {
	e.state = state
	e.pcg = rand.NewPCG(state.Seed, state.Seed^0x9e3779b97f4a7c15)
	e.rng = rand.New(e.pcg)

	for _, obstacle := range state.SpritesWithPrefix(ObstaclePrefix) {
		e.respawn(obstacle)
	}
	e.saveRNG()

	e.world = buildCollisionWorld(state, e.config)
	if state.Music.Playing {
		e.audio = append(e.audio, AudioCue{Kind: AudioMusicPlay, Preset: state.Music.Preset, Volume: state.Music.Volume})
	}
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state (used for persistence loading). The
// collision world is rebuilt from the sprites and the RNG resumes from the
// saved position.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Player() == nil {
		return fmt.Errorf("state has no %s sprite", PlayerLabel)
	}
	if state.Sprites == nil || state.Texts == nil {
		return fmt.Errorf("state is missing sprites or texts")
	}

	pcg := rand.NewPCG(state.Seed, state.Seed^0x9e3779b97f4a7c15)
	if len(state.RNG) > 0 {
		if err := pcg.UnmarshalBinary(state.RNG); err != nil {
			return fmt.Errorf("failed to restore rng: %w", err)
		}
	}

	e.state = state
	e.pcg = pcg
	e.rng = rand.New(pcg)
	e.world = buildCollisionWorld(state, e.config)
	e.audio = nil
	return nil
}

// Reset starts a fresh run with a new seed derived from the old one
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.EventHistory
	prevTotal := e.state.TotalEvents
	nextSeed := e.rng.Uint64()

	e.audio = nil
	e.start(InitGameStateFromConfig(e.config, nextSeed))

	e.state.EventHistory = prevHistory
	e.state.TotalEvents = prevTotal
	e.state.AddEvent(EventEntry{Type: EventReset, Message: "Game reset to initial state"})
	e.state.CurrentEvents = []EventEntry{}
	e.state.CurrentEventsCount = 0

	return e.state
}

// IsGameOver returns whether the game is lost
func (e *GameEngine) IsGameOver() bool {
	return e.state.Lost
}

// GetHealth returns the current health
func (e *GameEngine) GetHealth() int {
	return e.state.Health
}

// GetDistance returns how far the road has scrolled this run
func (e *GameEngine) GetDistance() float64 {
	return e.state.Distance
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and restarts the run
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.audio = nil
	e.start(InitGameStateFromConfig(config, e.state.Seed))
	return nil
}

// GetEventHistory returns the complete event history
func (e *GameEngine) GetEventHistory() []EventEntry {
	return e.state.EventHistory
}

// GetLastEvent returns the most recent event, or nil if none
func (e *GameEngine) GetLastEvent() *EventEntry {
	if len(e.state.EventHistory) == 0 {
		return nil
	}
	return &e.state.EventHistory[len(e.state.EventHistory)-1]
}

// DrainAudio returns the audio cues queued since the last call and clears them
func (e *GameEngine) DrainAudio() []AudioCue {
	cues := e.audio
	e.audio = nil
	return cues
}

// Run steps the simulation with the same input for up to frames frames,
// stopping early once the game is lost
func (e *GameEngine) Run(input Input, frames int, dt float64) []*StepResult {
	if frames <= 0 {
		return nil
	}
	results := make([]*StepResult, 0, frames)

	for i := 0; i < frames; i++ {
		if e.IsGameOver() {
			break
		}
		results = append(results, e.Step(input, dt))
	}

	return results
}
