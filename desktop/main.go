package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/roaddodge/desktop/settings"
	"github.com/wricardo/mcp-training/roaddodge/desktop/sound"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
	"github.com/wricardo/mcp-training/roaddodge/transport/websocket"
)

const appName = "roaddodge"

// Mode selects where the displayed state comes from
type Mode int

const (
	ModeLocal Mode = iota
	ModeWatch
)

// Game is the ebiten game: it either runs an engine in-process or mirrors a
// server session
type Game struct {
	mode     Mode
	engine   *engine.GameEngine
	config   *engine.GameConfig
	paused   bool
	recorded bool

	// configPath is remembered as the last played config on exit
	configPath string

	// Guarded by mu in watch mode, where a websocket goroutine writes them
	mu        sync.Mutex
	state     *engine.GameState
	pending   []engine.AudioCue
	status    string
	sessionID string

	settings *settings.Manager
	sound    *audioSink
	renderer *renderer
	cancel   context.CancelFunc
}

// NewLocalGame runs config in-process
func NewLocalGame(config *engine.GameConfig, seed uint64, prefs *settings.Manager, sink *audioSink) (*Game, error) {
	eng, err := engine.NewEngine(config, seed)
	if err != nil {
		return nil, err
	}

	g := &Game{
		mode:     ModeLocal,
		engine:   eng,
		config:   config,
		state:    eng.GetState(),
		settings: prefs,
		sound:    sink,
		renderer: newRenderer(),
		cancel:   func() {},
	}
	g.status = config.Messages.Welcome
	return g, nil
}

// NewWatchGame follows sessionID on server until ctx is cancelled
func NewWatchGame(ctx context.Context, server, sessionID string, prefs *settings.Manager, sink *audioSink) (*Game, error) {
	wsURL, err := websocket.WatchURL(server, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	g := &Game{
		mode:      ModeWatch,
		sessionID: sessionID,
		status:    "Connecting to " + sessionID + "...",
		settings:  prefs,
		sound:     sink,
		renderer:  newRenderer(),
		cancel:    cancel,
	}

	go func() {
		err := websocket.Watch(ctx, wsURL, g.receive)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[Watch] session=%s: %v", sessionID, err)
			g.setStatus(fmt.Sprintf("Disconnected: %v", err))
		}
	}()
	return g, nil
}

// receive applies a websocket message
func (g *Game) receive(msg *websocket.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if msg.Event == websocket.EventSessionGone {
		g.status = "Session deleted"
		return
	}
	if msg.GameState != nil {
		g.state = msg.GameState
		g.status = ""
	}
	g.pending = append(g.pending, msg.Audio...)
}

func (g *Game) setStatus(status string) {
	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
}

// Update handles input and advances the local engine by one frame
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		on := g.settings.ToggleMusic()
		g.sound.SetMusicEnabled(on)
		if err := g.settings.Save(); err != nil {
			log.Printf("[Settings] %v", err)
		}
	}

	if g.mode == ModeWatch {
		g.mu.Lock()
		cues := g.pending
		g.pending = nil
		g.mu.Unlock()
		g.sound.Handle(cues)
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.engine.Reset()
		g.paused = false
		g.recorded = false
		g.status = g.config.Messages.Welcome
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) && !g.engine.IsGameOver() {
		g.paused = !g.paused
	}

	if !g.paused {
		input := inputFromKeys(
			ebiten.IsKeyPressed(ebiten.KeyArrowUp) || ebiten.IsKeyPressed(ebiten.KeyW),
			ebiten.IsKeyPressed(ebiten.KeyArrowDown) || ebiten.IsKeyPressed(ebiten.KeyS),
		)
		result := g.engine.Step(input, engine.DefaultDT)
		if len(result.Hits) > 0 || result.OutOfBounds {
			g.status = g.engine.GetState().Message
		}
	}
	g.sound.Handle(g.engine.DrainAudio())
	g.state = g.engine.GetState()

	if g.state.Lost && !g.recorded {
		g.recorded = true
		if g.settings.RecordDistance(g.config.Name, g.state.Distance) {
			g.status = fmt.Sprintf("New best distance: %.0f", g.state.Distance)
			if err := g.settings.Save(); err != nil {
				log.Printf("[Settings] %v", err)
			}
		}
	}
	return nil
}

// Draw renders the current state and the HUD
func (g *Game) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	state, status := g.state, g.status
	g.mu.Unlock()

	best := 0.0
	if g.mode == ModeLocal {
		best = g.settings.Best(g.config.Name)
	}
	g.renderer.draw(screen, state, hudLines(g.mode, state, best, g.paused, status, g.sessionID))
}

// Layout fixes the logical screen to the world size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return engine.ScreenWidth, engine.ScreenHeight
}

// Close stops background work and saves settings
func (g *Game) Close() {
	g.cancel()
	if g.mode == ModeLocal {
		g.settings.Get().LastConfig = g.configPath
	}
	if err := g.settings.Save(); err != nil {
		log.Printf("[Settings] %v", err)
	}
}

func inputFromKeys(up, down bool) engine.Input {
	return engine.Input{Up: up, Down: down}
}

// hudLines returns the status lines drawn in the top-left corner
func hudLines(mode Mode, state *engine.GameState, best float64, paused bool, status, sessionID string) []string {
	var lines []string
	if mode == ModeWatch {
		lines = append(lines, "Watching "+sessionID+"   M: music   Esc: quit")
	} else {
		lines = append(lines, "Up/Down: steer   R: restart   P: pause   M: music   Esc: quit")
	}

	if state != nil {
		line := fmt.Sprintf("Distance: %.0f   Hits: %d", state.Distance, state.Collisions)
		if mode == ModeLocal {
			line += fmt.Sprintf("   Best: %.0f", best)
		}
		lines = append(lines, line)
	}
	if paused {
		lines = append(lines, "PAUSED")
	}
	if status != "" {
		lines = append(lines, status)
	}
	return lines
}

// loadConfig reads path, falling back to the classic layout when path is empty
func loadConfig(path string) (*engine.GameConfig, error) {
	if path == "" {
		return engine.DefaultConfig(), nil
	}
	return engine.LoadGameConfig(path)
}

func run(ctx context.Context, cmd *cli.Command) error {
	prefs := settings.Open(appName)

	var sink *audioSink
	if cmd.Bool("mute") {
		sink = newAudioSink(nil, prefs)
	} else {
		sink = newAudioSink(audio.NewContext(sound.SampleRate), prefs)
	}

	var game *Game
	var err error
	if id := cmd.String("watch"); id != "" {
		game, err = NewWatchGame(ctx, cmd.String("server"), id, prefs, sink)
		ebiten.SetWindowTitle("Road Dodge - watching " + id)
	} else {
		configPath := cmd.String("config")
		if configPath == "" {
			configPath = prefs.Get().LastConfig
		}
		config, loadErr := loadConfig(configPath)
		if loadErr != nil && cmd.String("config") == "" {
			log.Printf("[Settings] last config %s unavailable: %v", configPath, loadErr)
			configPath = ""
			config, loadErr = engine.DefaultConfig(), nil
		}
		if loadErr != nil {
			return loadErr
		}

		seed := uint64(cmd.Int("seed"))
		if seed == 0 {
			seed = rand.Uint64()
		}
		game, err = NewLocalGame(config, seed, prefs, sink)
		if game != nil {
			game.configPath = configPath
		}
		ebiten.SetWindowTitle("Road Dodge - " + config.Name)
	}
	if err != nil {
		return err
	}
	defer game.Close()

	ebiten.SetWindowSize(engine.ScreenWidth, engine.ScreenHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "desktop",
		Usage: "Play road dodge locally or watch a server session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Game configuration file (JSON or YAML)"},
			&cli.IntFlag{Name: "seed", Usage: "RNG seed, random when 0"},
			&cli.StringFlag{Name: "watch", Usage: "Session ID to follow instead of playing"},
			&cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "Server to watch", Sources: cli.EnvVars("API_URL")},
			&cli.BoolFlag{Name: "mute", Usage: "Disable audio output"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
