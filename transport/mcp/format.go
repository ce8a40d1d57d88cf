package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/roaddodge/game/engine"
	"github.com/wricardo/mcp-training/roaddodge/game/service"
)

// laneMargin widens the lane check in scan_road so near misses show up
const laneMargin = 12.0

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatSessionList(sessions []service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", len(sessions))
	for _, s := range sessions {
		status := ""
		if s.GameState != nil {
			status = fmt.Sprintf(", Health: %d/%d", s.GameState.Health, s.GameState.MaxHealth)
			if s.GameState.Lost {
				status += ", GAME OVER"
			}
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s%s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}
	return b.String()
}

func healthBar(health, max int) string {
	if max <= 0 || max > 20 {
		return fmt.Sprintf("%d/%d", health, max)
	}
	if health < 0 {
		health = 0
	}
	return strings.Repeat("♥", health) + strings.Repeat("·", max-health)
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	player := state.Player()

	fmt.Fprintf(&b, "Health: %s (%d/%d) | Frame: %d | Time: %.1fs | Distance: %.0f | Hits: %d\n",
		healthBar(state.Health, state.MaxHealth), state.Health, state.MaxHealth,
		state.Frame, state.Elapsed, state.Distance, state.Collisions)
	if player != nil {
		fmt.Fprintf(&b, "Car: x=%.0f y=%.1f tilt=%.2f\n", player.Translation.X, player.Translation.Y, player.Rotation)
	}

	obstacles := state.SpritesWithPrefix(engine.ObstaclePrefix)
	if len(obstacles) > 0 && player != nil {
		b.WriteString("\nObstacles (centre offset from the car):\n")
		for _, o := range obstacles {
			fmt.Fprintf(&b, "- %s %s: dx=%.0f dy=%.0f\n", o.Label, o.Preset,
				o.Translation.X-player.Translation.X, o.Translation.Y-player.Translation.Y)
		}
	}

	if state.Lost {
		b.WriteString("\n💀 GAME OVER")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	return b.String()
}

func formatRoadScan(state *engine.GameState, config *engine.GameConfig) string {
	player := state.Player()
	if player == nil {
		return "No car on the road"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Car lane: y=%.1f (road %.0f..%.0f) | Road speed: %.0f/s\n\n",
		player.Translation.Y, config.Bounds.MinY, config.Bounds.MaxY, config.Road.Speed)

	threats := engine.ScanAhead(state, config, laneMargin)
	if len(threats) == 0 {
		b.WriteString("Road ahead is clear.\n")
		return b.String()
	}

	for _, t := range threats {
		lane := "clear lane"
		if t.Overlap {
			lane = "IN YOUR LANE"
		}
		fmt.Fprintf(&b, "- %s: gap %.0f, impact in %.2fs, dy=%.0f, %s\n", t.Label, t.DX, t.Seconds, t.DY, lane)
	}

	if threat, ok := engine.NearestThreat(state, config, laneMargin); ok {
		side := "up"
		if threat.DY > 0 {
			side = "down"
		}
		fmt.Fprintf(&b, "\nNearest threat: %s in %.2fs, consider steering %s\n", threat.Label, threat.Seconds, side)
	}
	return b.String()
}

func formatDriveResult(sessionID string, result *service.DriveResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	fmt.Fprintf(&b, "Executed %d/%d frames (dt=%.4f)", result.FramesExecuted, result.FramesRequested, result.DT)
	if result.Truncated {
		fmt.Fprintf(&b, " [truncated to %d]", result.Limit)
	}
	b.WriteString("\n")
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}
	fmt.Fprintf(&b, "Lane: y=%.1f → y=%.1f | Health: %d → %d | Distance +%.0f\n",
		result.StartY, result.EndY, result.HealthBefore, result.HealthAfter, result.DistanceDelta)

	if len(result.Hits) > 0 {
		b.WriteString("\nHits:\n")
		for _, hit := range result.Hits {
			fmt.Fprintf(&b, "- frame %d: %s (health %d)\n", hit.Frame, hit.Obstacle, hit.HealthAfter)
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	if result.GameOver {
		b.WriteString("\n💀 GAME OVER, use reset_game or drive with reset=true\n")
	} else {
		if result.Threat != nil {
			fmt.Fprintf(&b, "\nNearest threat: %s gap %.0f (%.2fs), dy=%.0f\n",
				result.Threat.Label, result.Threat.DX, result.Threat.Seconds, result.Threat.DY)
		}
		if result.Hint != "" {
			fmt.Fprintf(&b, "Hint: %s\n", result.Hint)
		}
	}

	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event History (Page %d/%d) | Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalEvents)

	if len(history.Events) == 0 {
		b.WriteString("No events yet.\n")
	}
	for _, event := range history.Events {
		fmt.Fprintf(&b, "%d. [frame %d] %s: %s [Health: %d]\n",
			event.Number, event.Frame, event.Type, event.Message, event.Health)
	}

	if history.HasNext {
		fmt.Fprintf(&b, "\nMore events on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatConfigs(configs []service.ConfigInfo) string {
	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Health: %d, Obstacles: %d, Road speed: %.0f\n\n",
			config.Name, config.ConfigID, config.Description,
			config.StartingHealth, config.Obstacles, config.RoadSpeed)
	}
	return b.String()
}

const instructions = `🏎️ Road Dodge - Complete Instructions

GAME OBJECTIVE:
Survive as long as possible on a scrolling road. Your car stays on the left
side of the screen while the road, its lane lines and the obstacles move
towards you from the right.

WORLD:
• The screen is 1280x720 world units with (0,0) in the centre, y grows upward
• Your car sits at x=-500 and only moves up and down
• The road is safe between the configured bounds (classic: y=-350..250)
• Obstacles (barrels, cones) respawn at a random spot to the right once they
  leave the screen on the left

CONTROLS (drive tool):
• direction=up / down holds that key for every frame of the call
• direction=none drives straight
• Holding both keys cancels out
• frames: how many frames to run (60 frames ≈ 1 second at the default dt)
• auto=true hands the wheel to a simple built-in autopilot

RULES:
• Touching an obstacle costs 1 health, once per contact
• Leaving the road ends the game immediately
• At 0 health the game is over; nothing moves until you reset

STRATEGY:
1. Call scan_road before each drive. It lists every obstacle ahead with the
   gap to your bumper and the seconds until impact at the current road speed
2. Only obstacles marked IN YOUR LANE can hit you if you keep your lane
3. Drive in short bursts (10-30 frames) when a threat is under a second away
4. Steer to the side with more room; mind the road edges
5. The drive response includes the nearest threat and a hint (up/down/none)

SESSION MANAGEMENT:
• Multiple sessions can run simultaneously, each with a 4-character ID
• Sessions keep independent state and configuration
• event_history shows every collision, reset and game over

Good luck on the road! 🚗💨`
