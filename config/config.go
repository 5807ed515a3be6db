// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Collision  CollisionConfig  `yaml:"collision"`
	Population PopulationConfig `yaml:"population"`
	Movement   MovementConfig   `yaml:"movement"`
	Effects    EffectsConfig    `yaml:"effects"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CollisionConfig holds spatial grid parameters.
type CollisionConfig struct {
	RebuildCadence int     `yaml:"rebuild_cadence"` // ticks between full grid rebuilds
	CellWidth      float64 `yaml:"cell_width"`
	CellHeight     float64 `yaml:"cell_height"`
}

// PopulationConfig holds initial entity counts and sizes.
type PopulationConfig struct {
	Dynamic   int     `yaml:"dynamic"`    // movable circles
	Static    int     `yaml:"static"`     // immovable boxes
	Player    bool    `yaml:"player"`     // spawn the designated player
	MinRadius float64 `yaml:"min_radius"` // dynamic circle radius range
	MaxRadius float64 `yaml:"max_radius"`
	MinHalf   float64 `yaml:"min_half"` // static box half-extent range
	MaxHalf   float64 `yaml:"max_half"`
	MaxHealth float64 `yaml:"max_health"`
	Wander    float64 `yaml:"wander"` // random velocity impulse per tick

	RespawnBelow int `yaml:"respawn_below"` // refill actors when fewer remain (0 = never)
}

// MovementConfig holds velocity integration parameters.
type MovementConfig struct {
	MaxSpeed float64 `yaml:"max_speed"`
	Drag     float64 `yaml:"drag"`
	Bounce   float64 `yaml:"bounce"`
}

// EffectsConfig holds transient area-effect parameters.
type EffectsConfig struct {
	Chance float64 `yaml:"chance"` // probability of an area effect per tick
	Radius float64 `yaml:"radius"`
	Damage float64 `yaml:"damage"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow      int `yaml:"stats_window"`      // ticks per stats window
	PerfWindow       int `yaml:"perf_window"`       // ticks averaged by the perf collector
	SnapshotInterval int `yaml:"snapshot_interval"` // rebuilds between grid snapshots (0 = off)
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	WorldW32         float32
	WorldH32         float32
	CellW32          float32
	CellH32          float32
	MaxExtent        float32 // largest collider extent that can spawn
	CellsWide        int
	CellsHigh        int
	FitsNeighborhood bool // any two touching colliders are at most one cell apart
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.ComputeDerived()

	return cfg, nil
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size %dx%d must be positive", c.World.Width, c.World.Height))
	}
	if c.Collision.RebuildCadence < 1 {
		errs = append(errs, fmt.Errorf("collision.rebuild_cadence %d must be at least 1", c.Collision.RebuildCadence))
	}
	if c.Collision.CellWidth <= 0 || c.Collision.CellHeight <= 0 {
		errs = append(errs, fmt.Errorf("collision cell %vx%v must be positive", c.Collision.CellWidth, c.Collision.CellHeight))
	}
	if c.Population.Dynamic < 0 || c.Population.Static < 0 || c.Population.RespawnBelow < 0 {
		errs = append(errs, errors.New("population counts must not be negative"))
	}
	if c.Population.MinRadius > c.Population.MaxRadius || c.Population.MinHalf > c.Population.MaxHalf {
		errs = append(errs, errors.New("population size ranges must have min <= max"))
	}
	if c.Effects.Chance < 0 || c.Effects.Chance > 1 {
		errs = append(errs, fmt.Errorf("effects.chance %v must be in [0, 1]", c.Effects.Chance))
	}
	return errors.Join(errs...)
}

// ComputeDerived calculates values derived from loaded config.
// Call it again after changing fields by hand.
func (c *Config) ComputeDerived() {
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.CellW32 = float32(c.Collision.CellWidth)
	c.Derived.CellH32 = float32(c.Collision.CellHeight)

	c.Derived.CellsWide = int(float64(c.World.Width)/c.Collision.CellWidth) + 1
	c.Derived.CellsHigh = int(float64(c.World.Height)/c.Collision.CellHeight) + 1

	// Boxes reach furthest at their corners
	boxExtent := c.Population.MaxHalf * 1.4143
	maxExtent := max(c.Population.MaxRadius, boxExtent)
	c.Derived.MaxExtent = float32(maxExtent)
	c.Derived.FitsNeighborhood = 2*maxExtent <= min(c.Collision.CellWidth, c.Collision.CellHeight)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
