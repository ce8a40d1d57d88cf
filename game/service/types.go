package service

import (
	"time"

	"github.com/wricardo/mcp-training/roaddodge/game/engine"
)

// Stop reason codes reported by Drive
const (
	StopGameOver    = "game_over"
	StopOutOfBounds = "out_of_bounds"
	StopCompleted   = "completed"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// DriveRequest holds the keys pressed for a run of frames
type DriveRequest struct {
	Up     bool    `json:"up"`
	Down   bool    `json:"down"`
	Frames int     `json:"frames"`         // defaults to 1, capped at engine.MaxFramesPerCall
	DT     float64 `json:"dt,omitempty"`   // seconds per frame, defaults to engine.DefaultDT
	Auto   bool    `json:"auto,omitempty"` // steer with the built-in autopilot instead of Up/Down
}

// DriveResult contains the result of driving a session for a number of frames
type DriveResult struct {
	// Summary
	Success         bool    `json:"success"`
	FramesExecuted  int     `json:"frames_executed"`
	FramesRequested int     `json:"frames_requested"`
	DT              float64 `json:"dt"`
	StoppedReason   string  `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode  string  `json:"stop_reason_code,omitempty"` // Machine-friendly code: game_over|out_of_bounds|completed
	StoppedOnFrame  int     `json:"stopped_on_frame,omitempty"` // 1-based index of the frame that ended the run
	Truncated       bool    `json:"truncated,omitempty"`
	Limit           int     `json:"limit,omitempty"`

	// Start/end snapshot
	StartY        float64 `json:"start_y"`
	EndY          float64 `json:"end_y"`
	HealthBefore  int     `json:"health_before"`
	HealthAfter   int     `json:"health_after"`
	DistanceDelta float64 `json:"distance_delta"`

	// What happened during this call
	Hits   []HitInfo         `json:"hits,omitempty"`
	Audio  []engine.AudioCue `json:"audio,omitempty"`
	Events []GameEvent       `json:"events"`

	GameState *engine.GameState `json:"game_state"`
	GameOver  bool              `json:"game_over"`
	Message   string            `json:"message,omitempty"`

	// Decision aids
	Threat *engine.Threat `json:"threat,omitempty"`
	Hint   string         `json:"hint,omitempty"` // up|down|none
}

// HitInfo is a compact record of a collision that cost health
type HitInfo struct {
	Frame       int    `json:"frame"`
	Obstacle    string `json:"obstacle"`
	HealthAfter int    `json:"health_after"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string      `json:"type"` // "collision", "out_of_bounds", "game_over", "reset"
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Frame     int         `json:"frame,omitempty"`
	Position  engine.Vec2 `json:"position"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Type  string `json:"type"`  // optional event type filter
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []engine.EventEntry `json:"events"`
	TotalEvents int                 `json:"total_events"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename       string  `json:"filename"`
	ConfigID       string  `json:"config_id"` // The identifier to use for session creation
	Name           string  `json:"name"`      // Display name
	Description    string  `json:"description"`
	StartingHealth int     `json:"starting_health"`
	Obstacles      int     `json:"obstacles"`
	RoadSpeed      float64 `json:"road_speed"`
}
