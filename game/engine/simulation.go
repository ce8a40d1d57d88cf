package engine

import (
	"fmt"
	"strings"
)

// Step advances the world by one frame of dt seconds with the given input
func (e *GameEngine) Step(input Input, dt float64) *StepResult {
	gs := e.state
	result := &StepResult{
		Frame:        gs.Frame,
		HealthBefore: gs.Health,
		HealthAfter:  gs.Health,
	}

	// Nothing moves once the game is over
	if gs.Lost || dt <= 0 {
		result.Skipped = true
		result.GameOver = gs.Lost
		return result
	}
	if dt > MaxDT {
		dt = MaxDT
	}

	gs.Frame++
	gs.Elapsed += dt
	gs.Distance += e.config.Road.Speed * dt
	result.Frame = gs.Frame

	// Move the car up and down
	direction := input.Direction()
	player := gs.Player()
	player.Translation.Y += direction * e.config.Player.Speed * dt
	player.Rotation = direction * e.config.Player.Tilt
	if player.Translation.Y < e.config.Bounds.MinY || player.Translation.Y > e.config.Bounds.MaxY {
		if gs.Health > 0 {
			gs.Health = 0
			e.updateHealthText()
			result.OutOfBounds = true
			result.Events = append(result.Events, gs.AddEvent(EventEntry{
				Type:     EventOutOfBounds,
				Message:  e.config.Messages.OutOfBounds,
				Position: player.Translation,
			}))
		}
	}

	// Move road lines and obstacles
	e.scroll(dt)

	// Handle collisions
	e.world.sync(gs.Sprites)
	e.world.step(dt)
	e.handleCollisions(e.world.drain(), result)

	// At zero health the game stops and the game over text appears
	if gs.Health <= 0 {
		e.gameOver(result)
	}

	e.saveRNG()
	result.HealthAfter = gs.Health
	return result
}

// scroll shifts road lines with wraparound and recycles obstacles that left the screen
func (e *GameEngine) scroll(dt float64) {
	shift := e.config.Road.Speed * dt
	for label, sprite := range e.state.Sprites {
		if strings.HasPrefix(label, RoadlinePrefix) {
			sprite.Translation.X -= shift
			if sprite.Translation.X < e.config.Road.LineWrapX {
				sprite.Translation.X += e.config.Road.WrapDistance()
			}
		}
	}

	// Obstacles are visited in label order so RNG draws are reproducible
	for _, sprite := range e.state.SpritesWithPrefix(ObstaclePrefix) {
		sprite.Translation.X -= shift
		if sprite.Translation.X < e.config.Spawn.DespawnX {
			e.respawn(sprite)
		}
	}
}

// respawn places an obstacle at a random point in the spawn window
func (e *GameEngine) respawn(sprite *Sprite) {
	spawn := e.config.Spawn
	sprite.Translation.X = spawn.MinX + e.rng.Float64()*(spawn.MaxX-spawn.MinX)
	sprite.Translation.Y = spawn.MinY + e.rng.Float64()*(spawn.MaxY-spawn.MinY)
}

// handleCollisions drains collision events; only the start of a contact
// involving the player costs health.
func (e *GameEngine) handleCollisions(events []CollisionEvent, result *StepResult) {
	gs := e.state
	contacts := make(map[CollisionPair]bool, len(gs.Contacts))
	for _, pair := range gs.Contacts {
		contacts[pair] = true
	}

	for _, event := range events {
		if event.State.IsEnd() {
			delete(contacts, event.Pair)
			continue
		}
		if contacts[event.Pair] {
			// Already counted before the session was restored
			continue
		}
		contacts[event.Pair] = true

		if !event.Pair.EitherContains(PlayerLabel) {
			continue
		}

		if gs.Health > 0 {
			gs.Health--
			gs.Collisions++
			e.updateHealthText()
			result.Hits = append(result.Hits, event.Pair)

			message := fmt.Sprintf("Hit %s", event.Pair.Other(PlayerLabel))
			if e.config.Messages.Collision != "" {
				message = fmt.Sprintf(e.config.Messages.Collision, gs.Health)
			}
			gs.Message = message
			result.Events = append(result.Events, gs.AddEvent(EventEntry{
				Type:     EventCollision,
				Message:  message,
				Pair:     event.Pair,
				Position: gs.Player().Translation,
			}))
			e.queueAudio(result, AudioCue{Kind: AudioSfx, Preset: e.config.Audio.ImpactSfx, Volume: e.config.Audio.ImpactVolume})
		}
	}

	gs.Contacts = gs.Contacts[:0]
	for pair := range contacts {
		gs.Contacts = append(gs.Contacts, pair)
	}
	sortPairs(gs.Contacts)
}

func (e *GameEngine) gameOver(result *StepResult) {
	gs := e.state
	gs.Lost = true
	gs.Message = e.config.Messages.GameOver
	gs.Texts[GameOverTextLabel] = &Text{
		Label:    GameOverTextLabel,
		Value:    e.config.Messages.GameOver,
		FontSize: GameOverTextFontSize,
	}
	result.GameOver = true
	result.Events = append(result.Events, gs.AddEvent(EventEntry{
		Type:     EventGameOver,
		Message:  fmt.Sprintf("%s Distance: %.0f", e.config.Messages.GameOver, gs.Distance),
		Position: gs.Player().Translation,
	}))

	gs.Music.Playing = false
	e.queueAudio(result, AudioCue{Kind: AudioMusicStop})
	if e.config.Audio.GameOverSfx != "" {
		e.queueAudio(result, AudioCue{Kind: AudioSfx, Preset: e.config.Audio.GameOverSfx, Volume: e.config.Audio.GameOverVolume})
	}
}

func (e *GameEngine) updateHealthText() {
	if text, ok := e.state.Texts[HealthTextLabel]; ok {
		text.Value = fmt.Sprintf(e.config.Messages.Health, e.state.Health)
	}
}

func (e *GameEngine) queueAudio(result *StepResult, cue AudioCue) {
	if cue.Kind == AudioSfx && cue.Preset == "" {
		return
	}
	result.Audio = append(result.Audio, cue)
	e.audio = append(e.audio, cue)
}

// saveRNG snapshots the generator position into the state
func (e *GameEngine) saveRNG() {
	if data, err := e.pcg.MarshalBinary(); err == nil {
		e.state.RNG = data
	}
}
