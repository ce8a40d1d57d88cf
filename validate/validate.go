// Command validate checks every game configuration (JSON or YAML) in a
// directory, ../configs by default. For each file it checks:
//   - the file parses and passes engine validation
//   - the road band is taller than the car, so there is room to steer
//   - obstacles spawn where they can reach the road
//   - the car can cross one obstacle's height before it arrives
//   - a short straight drive runs without errors
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.ParseGameConfig(filePath, data)
	if err != nil {
		result.fail("Invalid syntax: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		result.fail("%v", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}
	result.info("Structure: %s, %d health, %d obstacles", config.Name, config.StartingHealth, len(config.Obstacles))

	checkPlayability(config, &result)
	if result.Valid {
		checkDryRun(config, &result)
	}
	return result
}

// checkPlayability looks for configurations that validate but cannot be played
func checkPlayability(config *engine.GameConfig, result *ValidationResult) {
	band := config.Bounds.MaxY - config.Bounds.MinY
	if band <= config.Player.Collider.Y {
		result.fail("Road band %.0f is not taller than the car (%.0f)", band, config.Player.Collider.Y)
	} else {
		result.info("Road band: %.0f units, %.1f car heights", band, band/config.Player.Collider.Y)
	}

	// Obstacles whose spawn lanes never meet the road can never be hit
	halfCar := config.Player.Collider.Y / 2
	if config.Spawn.MaxY < config.Bounds.MinY-halfCar || config.Spawn.MinY > config.Bounds.MaxY+halfCar {
		result.fail("Spawn lanes [%.0f, %.0f] never reach the road [%.0f, %.0f]",
			config.Spawn.MinY, config.Spawn.MaxY, config.Bounds.MinY, config.Bounds.MaxY)
	}

	if config.Spawn.MinX <= config.Player.StartX {
		result.fail("Obstacles spawn at x=%.0f, on top of or behind the car at x=%.0f", config.Spawn.MinX, config.Player.StartX)
		return
	}

	// Time to dodge: cross the tallest obstacle plus the car before it arrives
	tallest := 0.0
	for _, obstacle := range config.Obstacles {
		if obstacle.Collider.Y > tallest {
			tallest = obstacle.Collider.Y
		}
	}
	dodge := (tallest + config.Player.Collider.Y) / config.Player.Speed
	arrival := (config.Spawn.MinX - config.Player.StartX) / config.Road.Speed
	if dodge >= arrival {
		result.fail("Dodging takes %.2fs but obstacles arrive %.2fs after spawning", dodge, arrival)
	} else {
		result.info("Reaction: %.2fs to dodge, %.2fs from spawn to car", dodge, arrival)
	}
}

// checkDryRun drives straight for a couple of seconds to make sure the engine accepts the config
func checkDryRun(config *engine.GameConfig, result *ValidationResult) {
	eng, err := engine.NewEngine(config, 1)
	if err != nil {
		result.fail("Engine rejected config: %v", err)
		return
	}

	steps := eng.Run(engine.Input{}, 120, engine.DefaultDT)
	state := eng.GetState()
	result.info("Dry run: %d frames, health %d/%d, distance %.0f", len(steps), state.Health, state.MaxHealth, state.Distance)
}

// findConfigs returns every configuration file in dir, sorted
func findConfigs(dir string) ([]string, error) {
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

// report prints one block per result and returns whether all were valid
func report(results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
			continue
		}

		fmt.Println("❌ INVALID")
		allValid = false
		for _, err := range result.Errors {
			if !strings.HasPrefix(err, "✓") {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
	}
	return allValid
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate road dodge configuration files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "../configs", Usage: "Directory containing configurations", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files, err := findConfigs(cmd.String("dir"))
			if err != nil {
				return fmt.Errorf("error finding config files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no configuration files in %s", cmd.String("dir"))
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateConfig(file))
			}
			if !report(results) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
