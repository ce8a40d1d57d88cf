package engine

import (
	"sort"
	"strings"
	"time"
)

// Sprite labels and prefixes used by the game logic
const (
	PlayerLabel       = "player_1"
	RoadlinePrefix    = "roadline"
	ObstaclePrefix    = "obstacle"
	HealthTextLabel   = "health_text"
	GameOverTextLabel = "game_over"
)

// Sprite presets
const (
	RacingCarBlue      = "racing_car_blue"
	RacingCarRed       = "racing_car_red"
	RacingBarrierWhite = "racing_barrier_white"
	RacingBarrelBlue   = "racing_barrel_blue"
	RacingBarrelRed    = "racing_barrel_red"
	RacingConeStraight = "racing_cone_straight"
)

// Audio presets
const (
	MusicWhimsicalPopsicle = "whimsical_popsicle"
	SfxImpact1             = "impact1"
	SfxJingle3             = "jingle3"
)

const (
	// Logical screen size in world units
	ScreenWidth  = 1280
	ScreenHeight = 720

	// Validation constants
	MinHealth           = 1
	MaxHealthLimit      = 255
	MaxRoadLines        = 64
	MaxObstacles        = 32
	MaxFramesPerCall    = 600
	DefaultDT           = 1.0 / 60.0
	MaxDT               = 0.1
	WebSocketBufferSize = 256

	// Text layout
	HealthTextFontSize   = 30
	GameOverTextFontSize = 128
)

// Vec2 is a point or extent in world space
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sprite is a renderable entity positioned in world space
type Sprite struct {
	Label       string  `json:"label"`
	Preset      string  `json:"preset"`
	Translation Vec2    `json:"translation"`
	Rotation    float64 `json:"rotation"`
	Scale       float64 `json:"scale"`
	Layer       float64 `json:"layer"`
	Collision   bool    `json:"collision"`
}

// Text is an on-screen label
type Text struct {
	Label       string  `json:"label"`
	Value       string  `json:"value"`
	Translation Vec2    `json:"translation"`
	FontSize    float64 `json:"font_size"`
}

// CollisionState tells whether two sprites started or stopped touching
type CollisionState string

const (
	CollisionBegin CollisionState = "begin"
	CollisionEnd   CollisionState = "end"
)

// IsBegin reports whether the state marks the start of a contact
func (s CollisionState) IsBegin() bool { return s == CollisionBegin }

// IsEnd reports whether the state marks the end of a contact
func (s CollisionState) IsEnd() bool { return s == CollisionEnd }

// CollisionPair holds the labels of two touching sprites, sorted
type CollisionPair [2]string

// NewCollisionPair builds a pair with its labels in sorted order
func NewCollisionPair(a, b string) CollisionPair {
	if b < a {
		a, b = b, a
	}
	return CollisionPair{a, b}
}

// EitherContains reports whether either label contains text
func (p CollisionPair) EitherContains(text string) bool {
	return strings.Contains(p[0], text) || strings.Contains(p[1], text)
}

// Other returns the label paired with label, or "" if label is not in the pair
func (p CollisionPair) Other(label string) string {
	switch label {
	case p[0]:
		return p[1]
	case p[1]:
		return p[0]
	}
	return ""
}

// CollisionEvent is emitted by the collision world once per state change
type CollisionEvent struct {
	State CollisionState `json:"state"`
	Pair  CollisionPair  `json:"pair"`
}

// AudioCueKind identifies what an audio cue asks the player to do
type AudioCueKind string

const (
	AudioMusicPlay AudioCueKind = "music_play"
	AudioMusicStop AudioCueKind = "music_stop"
	AudioSfx       AudioCueKind = "sfx"
)

// AudioCue is a request for the presentation layer to play or stop a sound
type AudioCue struct {
	Kind   AudioCueKind `json:"kind"`
	Preset string       `json:"preset,omitempty"`
	Volume float64      `json:"volume,omitempty"`
}

// MusicState tracks the background music the game expects to hear
type MusicState struct {
	Preset  string  `json:"preset"`
	Volume  float64 `json:"volume"`
	Playing bool    `json:"playing"`
}

// Input is the keyboard state sampled for one frame
type Input struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// Direction returns +1 for up, -1 for down and 0 when both or neither are held
func (in Input) Direction() float64 {
	direction := 0.0
	if in.Up {
		direction += 1.0
	}
	if in.Down {
		direction -= 1.0
	}
	return direction
}

// Event types recorded in the event history
const (
	EventCollision   = "collision"
	EventOutOfBounds = "out_of_bounds"
	EventGameOver    = "game_over"
	EventReset       = "reset"
)

// EventEntry is a single notable moment in the game history
type EventEntry struct {
	Type      string        `json:"type"`
	Frame     int           `json:"frame"`
	Message   string        `json:"message"`
	Health    int           `json:"health"`
	Pair      CollisionPair `json:"pair,omitempty"`
	Position  Vec2          `json:"position"`
	Timestamp int64         `json:"timestamp"`
	Number    int           `json:"number"`
}

// GameState represents the complete game state
type GameState struct {
	Sprites    map[string]*Sprite `json:"sprites"`
	Texts      map[string]*Text   `json:"texts"`
	Health     int                `json:"health"`
	MaxHealth  int                `json:"max_health"`
	Lost       bool               `json:"lost"`
	Message    string             `json:"message"`
	Frame      int                `json:"frame"`
	Elapsed    float64            `json:"elapsed"`
	Distance   float64            `json:"distance"`
	Collisions int                `json:"collisions"`
	ConfigName string             `json:"config_name"`
	Music      MusicState         `json:"music"`

	// Seed is the run seed; RNG is the serialized generator position so a
	// restored session keeps spawning obstacles where it would have.
	Seed uint64 `json:"seed"`
	RNG  []byte `json:"rng,omitempty"`

	// Contacts lists pairs currently touching, so restoring a session in the
	// middle of a hit does not count it twice.
	Contacts []CollisionPair `json:"contacts,omitempty"`

	EventHistory []EventEntry `json:"event_history"`
	TotalEvents  int          `json:"total_events"`

	// CurrentEvents mirrors EventHistory since the last reset only.
	CurrentEvents      []EventEntry `json:"current_events"`
	CurrentEventsCount int          `json:"current_events_count"`
}

// Player returns the player sprite, or nil if the state has none
func (gs *GameState) Player() *Sprite {
	return gs.Sprites[PlayerLabel]
}

// SpritesWithPrefix returns the sprites whose label starts with prefix, sorted by label
func (gs *GameState) SpritesWithPrefix(prefix string) []*Sprite {
	var result []*Sprite
	for label, sprite := range gs.Sprites {
		if strings.HasPrefix(label, prefix) {
			result = append(result, sprite)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	return result
}

// SortedSprites returns all sprites in draw order: lower layers first, then by label
func (gs *GameState) SortedSprites() []*Sprite {
	result := make([]*Sprite, 0, len(gs.Sprites))
	for _, sprite := range gs.Sprites {
		result = append(result, sprite)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Layer != result[j].Layer {
			return result[i].Layer < result[j].Layer
		}
		return result[i].Label < result[j].Label
	})
	return result
}

// SortedTexts returns all texts sorted by label
func (gs *GameState) SortedTexts() []*Text {
	result := make([]*Text, 0, len(gs.Texts))
	for _, text := range gs.Texts {
		result = append(result, text)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	return result
}

// AddEvent appends an entry to both the cumulative and the current event history
func (gs *GameState) AddEvent(entry EventEntry) EventEntry {
	entry.Frame = gs.Frame
	entry.Health = gs.Health
	entry.Timestamp = time.Now().Unix()
	entry.Number = gs.TotalEvents + 1

	gs.EventHistory = append(gs.EventHistory, entry)
	gs.TotalEvents++

	gs.CurrentEvents = append(gs.CurrentEvents, entry)
	gs.CurrentEventsCount++
	return entry
}

// StepResult describes what happened during a single frame
type StepResult struct {
	Frame        int             `json:"frame"`
	HealthBefore int             `json:"health_before"`
	HealthAfter  int             `json:"health_after"`
	Hits         []CollisionPair `json:"hits,omitempty"`
	Events       []EventEntry    `json:"events,omitempty"`
	Audio        []AudioCue      `json:"audio,omitempty"`
	OutOfBounds  bool            `json:"out_of_bounds,omitempty"`
	GameOver     bool            `json:"game_over,omitempty"`
	Skipped      bool            `json:"skipped,omitempty"`
}

// Clone returns a deep copy of the state that shares nothing with the original
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	clone := *gs

	clone.Sprites = make(map[string]*Sprite, len(gs.Sprites))
	for label, sprite := range gs.Sprites {
		copied := *sprite
		clone.Sprites[label] = &copied
	}
	clone.Texts = make(map[string]*Text, len(gs.Texts))
	for label, text := range gs.Texts {
		copied := *text
		clone.Texts[label] = &copied
	}

	clone.RNG = append([]byte(nil), gs.RNG...)
	clone.Contacts = append([]CollisionPair(nil), gs.Contacts...)
	clone.EventHistory = append([]EventEntry{}, gs.EventHistory...)
	clone.CurrentEvents = append([]EventEntry{}, gs.CurrentEvents...)
	return &clone
}
