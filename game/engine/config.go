package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameConfig represents the game rules loaded from a JSON or YAML file
type GameConfig struct {
	Name           string           `json:"name" yaml:"name"`
	Description    string           `json:"description" yaml:"description"`
	StartingHealth int              `json:"starting_health" yaml:"starting_health"`
	Player         PlayerConfig     `json:"player" yaml:"player"`
	Road           RoadConfig       `json:"road" yaml:"road"`
	Obstacles      []ObstacleConfig `json:"obstacles" yaml:"obstacles"`
	Spawn          SpawnConfig      `json:"spawn" yaml:"spawn"`
	Bounds         BoundsConfig     `json:"bounds" yaml:"bounds"`
	Audio          AudioConfig      `json:"audio" yaml:"audio"`
	Messages       MessagesConfig   `json:"messages" yaml:"messages"`
}

// PlayerConfig describes the player car
type PlayerConfig struct {
	Preset   string  `json:"preset" yaml:"preset"`
	StartX   float64 `json:"start_x" yaml:"start_x"`
	StartY   float64 `json:"start_y" yaml:"start_y"`
	Speed    float64 `json:"speed" yaml:"speed"`
	Tilt     float64 `json:"tilt" yaml:"tilt"`
	Layer    float64 `json:"layer" yaml:"layer"`
	Collider Vec2    `json:"collider" yaml:"collider"`
}

// RoadConfig describes the scrolling road and its decorative lines
type RoadConfig struct {
	Speed       float64 `json:"speed" yaml:"speed"`
	LinePreset  string  `json:"line_preset" yaml:"line_preset"`
	LineCount   int     `json:"line_count" yaml:"line_count"`
	LineSpacing float64 `json:"line_spacing" yaml:"line_spacing"`
	LineStartX  float64 `json:"line_start_x" yaml:"line_start_x"`
	LineWrapX   float64 `json:"line_wrap_x" yaml:"line_wrap_x"`
	LineScale   float64 `json:"line_scale" yaml:"line_scale"`
}

// WrapDistance is how far a road line jumps forward once it leaves the screen
func (r RoadConfig) WrapDistance() float64 {
	return float64(r.LineCount) * r.LineSpacing
}

// ObstacleConfig describes one obstacle sprite
type ObstacleConfig struct {
	Preset   string  `json:"preset" yaml:"preset"`
	Collider Vec2    `json:"collider" yaml:"collider"`
	Layer    float64 `json:"layer" yaml:"layer"`
}

// SpawnConfig is the window obstacles respawn in, and where they despawn
type SpawnConfig struct {
	MinX     float64 `json:"min_x" yaml:"min_x"`
	MaxX     float64 `json:"max_x" yaml:"max_x"`
	MinY     float64 `json:"min_y" yaml:"min_y"`
	MaxY     float64 `json:"max_y" yaml:"max_y"`
	DespawnX float64 `json:"despawn_x" yaml:"despawn_x"`
}

// BoundsConfig is the vertical band the player must stay in
type BoundsConfig struct {
	MinY float64 `json:"min_y" yaml:"min_y"`
	MaxY float64 `json:"max_y" yaml:"max_y"`
}

// AudioConfig names the music and sound effects presets
type AudioConfig struct {
	Music          string  `json:"music" yaml:"music"`
	MusicVolume    float64 `json:"music_volume" yaml:"music_volume"`
	ImpactSfx      string  `json:"impact_sfx" yaml:"impact_sfx"`
	ImpactVolume   float64 `json:"impact_volume" yaml:"impact_volume"`
	GameOverSfx    string  `json:"game_over_sfx" yaml:"game_over_sfx"`
	GameOverVolume float64 `json:"game_over_volume" yaml:"game_over_volume"`
}

// MessagesConfig holds the player-facing text templates
type MessagesConfig struct {
	Welcome     string `json:"welcome" yaml:"welcome"`
	Health      string `json:"health" yaml:"health"`
	Collision   string `json:"collision" yaml:"collision"`
	OutOfBounds string `json:"out_of_bounds" yaml:"out_of_bounds"`
	GameOver    string `json:"game_over" yaml:"game_over"`
}

// DefaultConfig returns the classic layout: five health, three obstacles and ten road lines
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:           "Classic",
		Description:    "Dodge two barrels and a cone on a ten-line road with five health",
		StartingHealth: 5,
		Player: PlayerConfig{
			Preset:   RacingCarBlue,
			StartX:   -500,
			StartY:   0,
			Speed:    250,
			Tilt:     0.15,
			Layer:    10,
			Collider: Vec2{X: 110, Y: 56},
		},
		Road: RoadConfig{
			Speed:       400,
			LinePreset:  RacingBarrierWhite,
			LineCount:   10,
			LineSpacing: 150,
			LineStartX:  -600,
			LineWrapX:   -675,
			LineScale:   0.5,
		},
		Obstacles: []ObstacleConfig{
			{Preset: RacingBarrelBlue, Collider: Vec2{X: 56, Y: 56}, Layer: 10},
			{Preset: RacingBarrelRed, Collider: Vec2{X: 56, Y: 56}, Layer: 10},
			{Preset: RacingConeStraight, Collider: Vec2{X: 44, Y: 44}, Layer: 10},
		},
		Spawn: SpawnConfig{
			MinX:     800,
			MaxX:     1600,
			MinY:     -350,
			MaxY:     350,
			DespawnX: -800,
		},
		Bounds: BoundsConfig{MinY: -350, MaxY: 250},
		Audio: AudioConfig{
			Music:          MusicWhimsicalPopsicle,
			MusicVolume:    0.2,
			ImpactSfx:      SfxImpact1,
			ImpactVolume:   0.2,
			GameOverSfx:    SfxJingle3,
			GameOverVolume: 0.5,
		},
		Messages: MessagesConfig{
			Welcome:     "Dodge the obstacles! Use Up and Down to steer.",
			Health:      "Health: %d",
			Collision:   "Player collided! Remaining health: %d",
			OutOfBounds: "Off the road! Health drained.",
			GameOver:    "Game Over!",
		},
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate health
	if config.StartingHealth < MinHealth || config.StartingHealth > MaxHealthLimit {
		return fmt.Errorf("config validation: starting_health must be between %d and %d, got %d",
			MinHealth, MaxHealthLimit, config.StartingHealth)
	}

	// Validate player
	if config.Player.Preset == "" {
		return fmt.Errorf("config validation: player.preset is required")
	}
	if config.Player.Speed <= 0 {
		return fmt.Errorf("config validation: player.speed must be positive, got %v", config.Player.Speed)
	}
	if config.Player.Collider.X <= 0 || config.Player.Collider.Y <= 0 {
		return fmt.Errorf("config validation: player.collider must have positive width and height")
	}

	// Validate bounds
	if config.Bounds.MinY >= config.Bounds.MaxY {
		return fmt.Errorf("config validation: bounds.min_y (%v) must be below bounds.max_y (%v)",
			config.Bounds.MinY, config.Bounds.MaxY)
	}
	if config.Player.StartY < config.Bounds.MinY || config.Player.StartY > config.Bounds.MaxY {
		return fmt.Errorf("config validation: player.start_y (%v) must lie within bounds [%v, %v]",
			config.Player.StartY, config.Bounds.MinY, config.Bounds.MaxY)
	}

	// Validate road
	road := config.Road
	if road.Speed <= 0 {
		return fmt.Errorf("config validation: road.speed must be positive, got %v", road.Speed)
	}
	if road.LineCount < 1 || road.LineCount > MaxRoadLines {
		return fmt.Errorf("config validation: road.line_count must be between 1 and %d, got %d", MaxRoadLines, road.LineCount)
	}
	if road.LineSpacing <= 0 {
		return fmt.Errorf("config validation: road.line_spacing must be positive, got %v", road.LineSpacing)
	}
	if road.LineWrapX >= road.LineStartX {
		return fmt.Errorf("config validation: road.line_wrap_x (%v) must be left of road.line_start_x (%v)",
			road.LineWrapX, road.LineStartX)
	}
	if road.LineScale <= 0 {
		return fmt.Errorf("config validation: road.line_scale must be positive, got %v", road.LineScale)
	}

	// Validate obstacles
	if len(config.Obstacles) == 0 || len(config.Obstacles) > MaxObstacles {
		return fmt.Errorf("config validation: obstacles must have between 1 and %d entries, got %d",
			MaxObstacles, len(config.Obstacles))
	}
	for i, obstacle := range config.Obstacles {
		if obstacle.Preset == "" {
			return fmt.Errorf("config validation: obstacles[%d].preset is required", i)
		}
		if obstacle.Collider.X <= 0 || obstacle.Collider.Y <= 0 {
			return fmt.Errorf("config validation: obstacles[%d].collider must have positive width and height", i)
		}
	}

	// Validate spawn window
	spawn := config.Spawn
	if spawn.MinX >= spawn.MaxX {
		return fmt.Errorf("config validation: spawn.min_x (%v) must be below spawn.max_x (%v)", spawn.MinX, spawn.MaxX)
	}
	if spawn.MinY >= spawn.MaxY {
		return fmt.Errorf("config validation: spawn.min_y (%v) must be below spawn.max_y (%v)", spawn.MinY, spawn.MaxY)
	}
	if spawn.DespawnX >= spawn.MinX {
		return fmt.Errorf("config validation: spawn.despawn_x (%v) must be left of spawn.min_x (%v)", spawn.DespawnX, spawn.MinX)
	}

	// Validate audio volumes
	volumes := map[string]float64{
		"audio.music_volume":     config.Audio.MusicVolume,
		"audio.impact_volume":    config.Audio.ImpactVolume,
		"audio.game_over_volume": config.Audio.GameOverVolume,
	}
	for key, volume := range volumes {
		if volume < 0 || volume > 1 {
			return fmt.Errorf("config validation: %s must be between 0 and 1, got %v", key, volume)
		}
	}

	// Validate messages
	if !strings.Contains(config.Messages.Health, "%d") {
		return fmt.Errorf("config validation: messages.health must contain %%d for health")
	}
	if config.Messages.GameOver == "" {
		return fmt.Errorf("config validation: messages.game_over is required")
	}
	if config.Messages.Collision != "" && !strings.Contains(config.Messages.Collision, "%d") {
		return fmt.Errorf("config validation: messages.collision must contain %%d for remaining health")
	}

	return nil
}

// ParseGameConfig decodes a configuration, choosing YAML or JSON by file extension
func ParseGameConfig(filename string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config '%s': %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config '%s': %w", filename, err)
		}
	}
	return &config, nil
}

// LoadGameConfig loads and validates a game configuration from a file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(filename, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// InitGameStateFromConfig creates a fresh world using the provided configuration
func InitGameStateFromConfig(config *GameConfig, seed uint64) *GameState {
	if config == nil {
		config = DefaultConfig()
	}

	state := &GameState{
		Sprites:            make(map[string]*Sprite),
		Texts:              make(map[string]*Text),
		Health:             config.StartingHealth,
		MaxHealth:          config.StartingHealth,
		Message:            config.Messages.Welcome,
		ConfigName:         config.Name,
		Seed:               seed,
		EventHistory:       []EventEntry{},
		CurrentEvents:      []EventEntry{},
		CurrentEventsCount: 0,
	}

	// Create the player sprite
	state.Sprites[PlayerLabel] = &Sprite{
		Label:       PlayerLabel,
		Preset:      config.Player.Preset,
		Translation: Vec2{X: config.Player.StartX, Y: config.Player.StartY},
		Scale:       1,
		Layer:       config.Player.Layer,
		Collision:   true,
	}

	// Paint the road lines
	for i := 0; i < config.Road.LineCount; i++ {
		label := fmt.Sprintf("%s%d", RoadlinePrefix, i)
		state.Sprites[label] = &Sprite{
			Label:       label,
			Preset:      config.Road.LinePreset,
			Translation: Vec2{X: config.Road.LineStartX + config.Road.LineSpacing*float64(i)},
			Scale:       config.Road.LineScale,
		}
	}

	// Obstacles are placed by the engine since placement consumes the RNG
	for i, obstacle := range config.Obstacles {
		label := fmt.Sprintf("%s%d", ObstaclePrefix, i)
		state.Sprites[label] = &Sprite{
			Label:     label,
			Preset:    obstacle.Preset,
			Scale:     1,
			Layer:     obstacle.Layer,
			Collision: true,
		}
	}

	state.Texts[HealthTextLabel] = &Text{
		Label:       HealthTextLabel,
		Value:       fmt.Sprintf(config.Messages.Health, config.StartingHealth),
		Translation: Vec2{X: 550, Y: 320},
		FontSize:    HealthTextFontSize,
	}

	state.Music = MusicState{
		Preset:  config.Audio.Music,
		Volume:  config.Audio.MusicVolume,
		Playing: config.Audio.Music != "",
	}

	return state
}

// colliderFor returns the unscaled collider size for a sprite label
func (config *GameConfig) colliderFor(label string) (Vec2, bool) {
	if label == PlayerLabel {
		return config.Player.Collider, true
	}
	var index int
	if _, err := fmt.Sscanf(label, ObstaclePrefix+"%d", &index); err == nil {
		if index >= 0 && index < len(config.Obstacles) {
			return config.Obstacles[index].Collider, true
		}
	}
	return Vec2{}, false
}
