// Command analyze plays every configuration in the configs directory
// headlessly and prints how long a car survives. Each config is driven by
// the built-in autopilot and by a car that never steers, over several
// seeds, so difficulty can be compared across configs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
)

// RunStats summarizes one simulated run
type RunStats struct {
	Seed       uint64  `json:"seed"`
	Frames     int     `json:"frames"`
	Distance   float64 `json:"distance"`
	Collisions int     `json:"collisions"`
	Health     int     `json:"health"`
	Survived   bool    `json:"survived"`
}

// DriverStats aggregates the runs of one driver over all seeds
type DriverStats struct {
	Driver       string     `json:"driver"`
	Runs         []RunStats `json:"runs"`
	SurvivalRate float64    `json:"survival_rate"`
	AvgFrames    float64    `json:"avg_frames"`
	AvgDistance  float64    `json:"avg_distance"`
	AvgHits      float64    `json:"avg_collisions"`
}

// Analysis is the report for one configuration file
type Analysis struct {
	File           string        `json:"file"`
	Name           string        `json:"name"`
	StartingHealth int           `json:"starting_health"`
	Obstacles      int           `json:"obstacles"`
	RoadSpeed      float64       `json:"road_speed"`
	Drivers        []DriverStats `json:"drivers"`
}

// driver picks the input for the next frame
type driver func(state *engine.GameState, config *engine.GameConfig) engine.Input

func autopilot(horizon float64) driver {
	return func(state *engine.GameState, config *engine.GameConfig) engine.Input {
		return engine.SuggestInput(state, config, horizon)
	}
}

func straight(*engine.GameState, *engine.GameConfig) engine.Input {
	return engine.Input{}
}

// simulate runs one game for at most frames frames
func simulate(config *engine.GameConfig, seed uint64, frames int, drive driver) (RunStats, error) {
	eng, err := engine.NewEngine(config, seed)
	if err != nil {
		return RunStats{}, err
	}

	for i := 0; i < frames && !eng.IsGameOver(); i++ {
		eng.Step(drive(eng.GetState(), config), engine.DefaultDT)
	}

	state := eng.GetState()
	return RunStats{
		Seed:       seed,
		Frames:     state.Frame,
		Distance:   state.Distance,
		Collisions: state.Collisions,
		Health:     state.Health,
		Survived:   !state.Lost,
	}, nil
}

func aggregate(name string, runs []RunStats) DriverStats {
	stats := DriverStats{Driver: name, Runs: runs}
	if len(runs) == 0 {
		return stats
	}

	survived := 0
	for _, run := range runs {
		if run.Survived {
			survived++
		}
		stats.AvgFrames += float64(run.Frames)
		stats.AvgDistance += run.Distance
		stats.AvgHits += float64(run.Collisions)
	}
	n := float64(len(runs))
	stats.SurvivalRate = float64(survived) / n
	stats.AvgFrames /= n
	stats.AvgDistance /= n
	stats.AvgHits /= n
	return stats
}

// analyzeConfig loads a configuration and plays it with every driver over seeds 1..seeds
func analyzeConfig(path string, seeds, frames int, horizon float64) (*Analysis, error) {
	config, err := engine.LoadGameConfig(path)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		File:           filepath.Base(path),
		Name:           config.Name,
		StartingHealth: config.StartingHealth,
		Obstacles:      len(config.Obstacles),
		RoadSpeed:      config.Road.Speed,
	}

	drivers := []struct {
		name  string
		drive driver
	}{
		{"autopilot", autopilot(horizon)},
		{"straight", straight},
	}
	for _, d := range drivers {
		runs := make([]RunStats, 0, seeds)
		for seed := 1; seed <= seeds; seed++ {
			run, err := simulate(config, uint64(seed), frames, d.drive)
			if err != nil {
				return nil, err
			}
			runs = append(runs, run)
		}
		analysis.Drivers = append(analysis.Drivers, aggregate(d.name, runs))
	}
	return analysis, nil
}

func printAnalysis(a *Analysis, frames int) {
	fmt.Printf("\n=== Analyzing %s ===\n", a.File)
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Starting Health: %d\n", a.StartingHealth)
	fmt.Printf("Obstacles: %d\n", a.Obstacles)
	fmt.Printf("Road Speed: %.0f\n", a.RoadSpeed)

	for _, d := range a.Drivers {
		fmt.Printf("\n%s:\n", strings.ToUpper(d.Driver[:1])+d.Driver[1:])
		fmt.Printf("  Survived %d frames: %.0f%%\n", frames, d.SurvivalRate*100)
		fmt.Printf("  Avg frames: %.0f  Avg distance: %.0f  Avg hits: %.1f\n", d.AvgFrames, d.AvgDistance, d.AvgHits)
		for _, run := range d.Runs {
			status := "crashed"
			if run.Survived {
				status = "survived"
			}
			fmt.Printf("    seed %d: %s after %d frames, health %d, %d hits\n",
				run.Seed, status, run.Frames, run.Health, run.Collisions)
		}
	}

	if len(a.Drivers) == 2 && a.Drivers[0].AvgFrames <= a.Drivers[1].AvgFrames {
		fmt.Println("\n⚠️  Autopilot does no better than driving straight")
	}
}

func configFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Simulate every configuration and report survival",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "Directory containing configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.IntFlag{Name: "seeds", Value: 5, Usage: "Runs per driver"},
			&cli.IntFlag{Name: "frames", Value: 3600, Usage: "Frame limit per run"},
			&cli.FloatFlag{Name: "horizon", Value: 1.0, Usage: "Autopilot look-ahead in seconds"},
			&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files, err := configFiles(cmd.String("dir"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no configuration files in %s", cmd.String("dir"))
			}

			seeds, frames := cmd.Int("seeds"), cmd.Int("frames")
			var reports []*Analysis
			for _, file := range files {
				analysis, err := analyzeConfig(file, seeds, frames, cmd.Float("horizon"))
				if err != nil {
					fmt.Printf("\n=== Analyzing %s ===\nError: %v\n", filepath.Base(file), err)
					continue
				}
				if cmd.Bool("json") {
					reports = append(reports, analysis)
					continue
				}
				printAnalysis(analysis, frames)
			}

			if cmd.Bool("json") {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(reports)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
