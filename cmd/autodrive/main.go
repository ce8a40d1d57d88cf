// Command autodrive plays a session on a running server over the REST API.
// It steers with the lane autopilot, sending a few frames per request, and
// retries with a reset until the car covers the target distance.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
	"github.com/wricardo/mcp-training/roaddodge/game/service"
)

const sessionFile = ".session"

// Client talks to one session on the game server
type Client struct {
	baseURL   string
	sessionID string
	config    *engine.GameConfig
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// CreateSession starts a new session, with the server default when configID is empty
func (c *Client) CreateSession(ctx context.Context, configID string) (*engine.GameState, error) {
	var body interface{}
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	c.config = info.GameConfig
	return info.GameState, nil
}

// Resume attaches to an existing session
func (c *Client) Resume(ctx context.Context, sessionID string) (*engine.GameState, error) {
	c.sessionID = sessionID
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &info); err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	c.config = info.GameConfig
	return info.GameState, nil
}

// Drive sends one drive request
func (c *Client) Drive(ctx context.Context, req service.DriveRequest) (*service.DriveResult, error) {
	var result service.DriveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/drive"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reset restarts the session
func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

// Pilot turns autopilot suggestions into drive requests
type Pilot struct {
	Horizon float64
	Chunk   int
}

// Next returns the request for the next few frames
func (p Pilot) Next(state *engine.GameState, config *engine.GameConfig) service.DriveRequest {
	input := engine.SuggestInput(state, config, p.Horizon)
	chunk := p.Chunk
	if chunk < 1 {
		chunk = 1
	}
	// Steering changes lanes quickly, so re-plan sooner while turning
	if input.Direction() != 0 && chunk > 2 {
		chunk = 2
	}
	return service.DriveRequest{Up: input.Up, Down: input.Down, Frames: chunk}
}

// Attempt is the outcome of one run
type Attempt struct {
	Frames   int
	Distance float64
	Health   int
	Hits     int
	GameOver bool
	Reached  bool
}

// Play drives until the game ends, target distance is covered or maxFrames pass
func Play(ctx context.Context, c *Client, state *engine.GameState, pilot Pilot, target float64, maxFrames int, verbose bool, delay time.Duration) (Attempt, error) {
	if c.config == nil {
		return Attempt{}, errors.New("session has no config")
	}

	var attempt Attempt
	for !state.Lost && attempt.Frames < maxFrames && state.Distance < target {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		req := pilot.Next(state, c.config)
		if remaining := maxFrames - attempt.Frames; req.Frames > remaining {
			req.Frames = remaining
		}

		result, err := c.Drive(ctx, req)
		if err != nil {
			return attempt, err
		}
		state = result.GameState
		attempt.Frames += result.FramesExecuted
		attempt.Hits += len(result.Hits)

		if verbose && len(result.Hits) > 0 {
			log.Printf("Hit at frame %d: y=%.0f health=%d distance=%.0f",
				state.Frame, result.EndY, state.Health, state.Distance)
		}
		if result.FramesExecuted == 0 {
			break
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	attempt.Distance = state.Distance
	attempt.Health = state.Health
	attempt.GameOver = state.Lost
	attempt.Reached = state.Distance >= target
	return attempt, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Printf("Connecting to game server at %s", cmd.String("url"))
	client := NewClient(cmd.String("url"))

	savedSessionID := cmd.String("continue")
	if savedSessionID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	var state *engine.GameState
	var err error
	if savedSessionID != "" {
		log.Printf("Resuming session: %s", savedSessionID)
		state, err = client.Resume(ctx, savedSessionID)
		if err != nil {
			log.Printf("Failed to resume session (may be expired): %v", err)
			savedSessionID = ""
		}
	}
	if savedSessionID == "" {
		state, err = client.CreateSession(ctx, cmd.String("config"))
		if err != nil {
			return err
		}
		log.Printf("Session created: %s (%s)", client.sessionID, client.config.Name)
		if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
			log.Printf("Warning: Failed to save session ID: %v", err)
		}
	}

	pilot := Pilot{Horizon: cmd.Float("horizon"), Chunk: cmd.Int("chunk")}
	target := cmd.Float("target")
	maxAttempts := cmd.Int("max-attempts")
	delay := time.Duration(cmd.Int("delay")) * time.Millisecond

	best := 0.0
	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		if attemptNum > 1 || state.Lost || state.Frame > 0 {
			if state, err = client.Reset(ctx); err != nil {
				return err
			}
		}
		log.Printf("=== Attempt %d/%d ===", attemptNum, maxAttempts)

		attempt, err := Play(ctx, client, state, pilot, target, cmd.Int("max-frames"), cmd.Bool("v"), delay)
		if err != nil {
			return err
		}
		log.Printf("Attempt %d: Frames=%d, Distance=%.0f, Health=%d, Hits=%d",
			attemptNum, attempt.Frames, attempt.Distance, attempt.Health, attempt.Hits)
		if attempt.Distance > best {
			best = attempt.Distance
		}

		if attempt.Reached {
			log.Printf("Reached %.0f in attempt %d with %d health left", target, attemptNum, attempt.Health)
			log.Printf("Session: %s", client.sessionID)
			return nil
		}
	}

	log.Printf("Failed to reach %.0f after %d attempts (best %.0f)", target, maxAttempts, best)
	log.Printf("Session: %s", client.sessionID)
	return cli.Exit("", 1)
}

func main() {
	cmd := &cli.Command{
		Name:  "autodrive",
		Usage: "Drive a server session with the autopilot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("API_URL")},
			&cli.StringFlag{Name: "config", Usage: "Config ID for a new session"},
			&cli.StringFlag{Name: "continue", Usage: "Resume an existing session by ID"},
			&cli.FloatFlag{Name: "target", Value: 20000, Usage: "Distance to cover"},
			&cli.IntFlag{Name: "max-frames", Value: 6000, Usage: "Frame limit per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 10, Usage: "Attempts before giving up"},
			&cli.IntFlag{Name: "chunk", Value: 6, Usage: "Frames per drive request"},
			&cli.FloatFlag{Name: "horizon", Value: 1.0, Usage: "Autopilot look-ahead in seconds"},
			&cli.IntFlag{Name: "delay", Usage: "Delay between requests in milliseconds"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
