package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/roaddodge/game/engine"
)

// ErrInvalidRequest is returned for drive requests that cannot be executed
var ErrInvalidRequest = errors.New("invalid request")

// autopilotHorizon is how far ahead, in seconds, the autopilot reacts to obstacles
const autopilotHorizon = 0.6

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID, // Return the config_id, not the display name
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState().Clone(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.GameConfig
	var err error
	configID := configName
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found (available configs: %v): %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found, use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	// Nobody is listening for the opening music cue on the server
	sess.Engine.DrainAudio()

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Drive runs a session for a number of frames holding the requested keys
func (s *gameServiceImpl) Drive(ctx context.Context, sessionID string, req DriveRequest, reset bool) (*DriveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Frames < 0 {
		return nil, fmt.Errorf("%w: frames must not be negative, got %d", ErrInvalidRequest, req.Frames)
	}
	if req.DT < 0 {
		return nil, fmt.Errorf("%w: dt must not be negative, got %v", ErrInvalidRequest, req.DT)
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	// Update last accessed
	s.sessions.UpdateLastAccessed(sessionID)

	frames := req.Frames
	if frames == 0 {
		frames = 1
	}
	dt := req.DT
	if dt == 0 {
		dt = engine.DefaultDT
	}
	if dt > engine.MaxDT {
		dt = engine.MaxDT
	}

	result := &DriveResult{
		FramesRequested: frames,
		DT:              dt,
		Events:          make([]GameEvent, 0),
	}

	// Handle reset
	if reset {
		state := sess.Engine.Reset()
		result.Events = append(result.Events, toGameEvent(*sess.Engine.GetLastEvent()))
		log.Printf("[DRIVE] session=%s reset, seed=%d", sessionID, state.Seed)
	}

	// Limit frames to prevent abuse
	if frames > engine.MaxFramesPerCall {
		result.Truncated = true
		result.Limit = engine.MaxFramesPerCall
		frames = engine.MaxFramesPerCall
	}

	// Capture start snapshot
	state := sess.Engine.GetState()
	result.StartY = state.Player().Translation.Y
	result.HealthBefore = state.Health
	startDistance := state.Distance

	config := sess.Engine.GetConfig()
	input := engine.Input{Up: req.Up, Down: req.Down}

	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sess.Engine.IsGameOver() {
			result.StoppedReason = "game is over, reset to play again"
			result.StopReasonCode = StopGameOver
			result.StoppedOnFrame = result.FramesExecuted + 1
			break
		}

		if req.Auto {
			input = engine.SuggestInput(sess.Engine.GetState(), config, autopilotHorizon)
		}
		step := sess.Engine.Step(input, dt)
		result.FramesExecuted++

		for _, pair := range step.Hits {
			result.Hits = append(result.Hits, HitInfo{
				Frame:       step.Frame,
				Obstacle:    pair.Other(engine.PlayerLabel),
				HealthAfter: step.HealthAfter,
			})
		}
		for _, event := range step.Events {
			result.Events = append(result.Events, toGameEvent(event))
		}

		if step.GameOver {
			result.StoppedOnFrame = i + 1
			if step.OutOfBounds {
				result.StopReasonCode = StopOutOfBounds
				result.StoppedReason = fmt.Sprintf("frame %d: drove off the road", i+1)
			} else {
				result.StopReasonCode = StopGameOver
				result.StoppedReason = fmt.Sprintf("frame %d: out of health", i+1)
			}
			break
		}
	}

	if result.StopReasonCode == "" {
		result.StopReasonCode = StopCompleted
	}
	result.Success = result.StopReasonCode == StopCompleted

	// Finalize snapshots
	endState := sess.Engine.GetState()
	result.EndY = endState.Player().Translation.Y
	result.HealthAfter = endState.Health
	result.DistanceDelta = endState.Distance - startDistance
	result.GameOver = endState.Lost
	result.Message = endState.Message
	result.Audio = sess.Engine.DrainAudio()

	// Decision aids
	if threat, ok := engine.NearestThreat(endState, config, 0); ok {
		result.Threat = &threat
	}
	result.Hint = hintFor(engine.SuggestInput(endState, config, autopilotHorizon))
	result.GameState = endState.Clone()

	log.Printf("[DRIVE] session=%s frames=%d/%d health=%d->%d stop=%s",
		sessionID, result.FramesExecuted, result.FramesRequested, result.HealthBefore, result.HealthAfter, result.StopReasonCode)

	// Auto-save session after driving
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after drive: %v", sessionID, err)
	}

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.Engine.Reset()
	sess.Engine.DrainAudio()

	// Auto-save session after reset
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after reset: %v", sessionID, err)
	}

	return state.Clone(), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState().Clone(), nil
}

// GetEventHistory returns paginated event history
func (s *gameServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetEventHistory()
	if opts.Type != "" {
		filtered := make([]engine.EventEntry, 0, len(history))
		for _, entry := range history {
			if entry.Type == opts.Type {
				filtered = append(filtered, entry)
			}
		}
		history = filtered
	}
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	// Get the slice of events
	events := []engine.EventEntry{}
	if opts.Order == "desc" {
		// Reverse order (most recent first)
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		// Normal chronological order
		events = append(events, history[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func toGameEvent(entry engine.EventEntry) GameEvent {
	return GameEvent{
		Type:      entry.Type,
		Message:   entry.Message,
		Timestamp: time.Unix(entry.Timestamp, 0),
		Frame:     entry.Frame,
		Position:  entry.Position,
	}
}

func hintFor(input engine.Input) string {
	switch input.Direction() {
	case 1:
		return "up"
	case -1:
		return "down"
	}
	return "none"
}
