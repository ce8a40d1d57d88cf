package engine

import (
	"math"
	"sort"
)

// sortPairs orders collision pairs by their labels
func sortPairs(pairs []CollisionPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
}

// Threat describes an obstacle on a collision course with the player
type Threat struct {
	Label   string  `json:"label"`
	DX      float64 `json:"dx"`      // horizontal gap between collider edges
	DY      float64 `json:"dy"`      // obstacle centre minus player centre
	Seconds float64 `json:"seconds"` // time until the gap closes
	Overlap bool    `json:"overlap"` // true when the lanes already overlap
}

// ClosingTime returns the seconds until a gap of dx closes at speed, or +Inf
func ClosingTime(dx, speed float64) float64 {
	if speed <= 0 {
		return math.Inf(1)
	}
	if dx <= 0 {
		return 0
	}
	return dx / speed
}

// ScanAhead lists every obstacle not yet behind the player, closest first.
// Overlap is set for obstacles whose lane is within margin of the player's.
func ScanAhead(state *GameState, config *GameConfig, margin float64) []Threat {
	player := state.Player()
	if player == nil || config == nil {
		return nil
	}

	var threats []Threat
	for _, obstacle := range state.SpritesWithPrefix(ObstaclePrefix) {
		size, ok := config.colliderFor(obstacle.Label)
		if !ok {
			continue
		}

		// Behind the player already
		if obstacle.Translation.X+size.X/2 < player.Translation.X-config.Player.Collider.X/2 {
			continue
		}

		halfWidths := (config.Player.Collider.X + size.X) / 2
		halfHeights := (config.Player.Collider.Y + size.Y) / 2
		dx := obstacle.Translation.X - player.Translation.X - halfWidths
		dy := obstacle.Translation.Y - player.Translation.Y
		threats = append(threats, Threat{
			Label:   obstacle.Label,
			DX:      dx,
			DY:      dy,
			Seconds: ClosingTime(dx, config.Road.Speed),
			Overlap: math.Abs(dy) < halfHeights+margin,
		})
	}

	sort.SliceStable(threats, func(i, j int) bool { return threats[i].DX < threats[j].DX })
	return threats
}

// NearestThreat finds the closest obstacle ahead of the player whose lane
// overlaps the player's lane, within margin world units
func NearestThreat(state *GameState, config *GameConfig, margin float64) (Threat, bool) {
	for _, threat := range ScanAhead(state, config, margin) {
		if threat.Overlap {
			return threat, true
		}
	}
	return Threat{}, false
}

// SuggestInput is a simple autopilot: steer away from the nearest threat
// that will arrive within horizon seconds, toward the side with more room,
// and drift back to the start lane otherwise
func SuggestInput(state *GameState, config *GameConfig, horizon float64) Input {
	player := state.Player()
	if player == nil || config == nil || state.Lost {
		return Input{}
	}

	const margin = 12.0
	y := player.Translation.Y
	halfHeight := config.Player.Collider.Y / 2

	threat, ok := NearestThreat(state, config, margin)
	if ok && threat.Seconds <= horizon {
		roomAbove := config.Bounds.MaxY - (y + halfHeight)
		roomBelow := (y - halfHeight) - config.Bounds.MinY

		// Go around the side the obstacle is not on, unless that side is walled off
		goUp := threat.DY <= 0
		if goUp && roomAbove < config.Player.Collider.Y {
			goUp = false
		} else if !goUp && roomBelow < config.Player.Collider.Y {
			goUp = true
		}
		if goUp {
			return Input{Up: true}
		}
		return Input{Down: true}
	}

	// Drift back towards the middle of the safe band
	centre := (config.Bounds.MinY + config.Bounds.MaxY) / 2
	step := config.Player.Speed * DefaultDT
	switch {
	case y < centre-step:
		return Input{Up: true}
	case y > centre+step:
		return Input{Down: true}
	}
	return Input{}
}

// CountSprites counts the sprites whose label starts with prefix
func CountSprites(state *GameState, prefix string) int {
	return len(state.SpritesWithPrefix(prefix))
}
