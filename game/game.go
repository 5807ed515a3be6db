package game

import (
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/config"
	"github.com/pthm-cable/collide/shapes"
	"github.com/pthm-cable/collide/systems"
	"github.com/pthm-cable/collide/telemetry"
)

// Options configures a headless simulation run.
type Options struct {
	Seed        int64
	LogStats    bool
	StatsWindow int    // ticks per stats window (0 = use config)
	SnapshotDir string // grid snapshot directory (empty = disabled)
	OutputDir   string // CSV output directory (empty = disabled)

	// Config overrides the global config when set.
	Config *config.Config

	// AuditOnFlush runs a brute-force overlap audit at every stats flush.
	AuditOnFlush bool

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config

	// Entity mappers
	actorMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Flags,
		shapes.Hitbox,
		components.Health,
		components.Kind,
	]
	obstacleMapper *ecs.Map4[
		components.Position,
		components.Flags,
		shapes.Hitbox,
		components.Kind,
	]

	colliderFilter ecs.Filter2[components.Position, shapes.Hitbox]
	wanderFilter   ecs.Filter2[components.Velocity, components.Flags]

	// Individual component mappers for lookups
	flagsMap  *ecs.Map[components.Flags]
	healthMap *ecs.Map[components.Health]
	kindMap   *ecs.Map[components.Kind]

	// Systems
	movement  *systems.MovementSystem
	collision *systems.CollisionSystem

	player    ecs.Entity
	hasPlayer bool

	// Reused per tick
	entities []ecs.Entity
	dead     []ecs.Entity

	// Telemetry
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	snapshots     *telemetry.SnapshotWriter
	statsCallback func(telemetry.WindowStats)
	logStats      bool
	auditOnFlush  bool

	// State
	tick         int32
	numActors    int
	numObstacles int
}

// NewGameWithOptions creates a headless game and spawns the initial population.
func NewGameWithOptions(opts Options) *Game {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	world := ecs.NewWorld()

	g := &Game{
		world: world,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		cfg:   cfg,
		actorMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Flags,
			shapes.Hitbox,
			components.Health,
			components.Kind,
		](world),
		obstacleMapper: ecs.NewMap4[
			components.Position,
			components.Flags,
			shapes.Hitbox,
			components.Kind,
		](world),
		colliderFilter: *ecs.NewFilter2[components.Position, shapes.Hitbox](world),
		wanderFilter:   *ecs.NewFilter2[components.Velocity, components.Flags](world),
		flagsMap:       ecs.NewMap[components.Flags](world),
		healthMap:      ecs.NewMap[components.Health](world),
		kindMap:        ecs.NewMap[components.Kind](world),
		statsCallback:  opts.StatsCallback,
		logStats:       opts.LogStats,
		auditOnFlush:   opts.AuditOnFlush,
	}

	g.movement = systems.NewMovementSystem(world,
		systems.Bounds{Width: cfg.Derived.WorldW32, Height: cfg.Derived.WorldH32},
		systems.MovementConfig{
			MaxSpeed: float32(cfg.Movement.MaxSpeed),
			Drag:     float32(cfg.Movement.Drag),
			Bounce:   float32(cfg.Movement.Bounce),
		},
	)
	g.collision = systems.NewCollisionSystem(world, systems.CollisionConfig{
		CellWidth:      cfg.Derived.CellW32,
		CellHeight:     cfg.Derived.CellH32,
		RebuildCadence: cfg.Collision.RebuildCadence,
	})

	if !cfg.Derived.FitsNeighborhood {
		slog.Warn("largest collider spans more than one cell; neighbor queries may miss overlaps",
			"max_extent", cfg.Derived.MaxExtent,
			"cell_w", cfg.Collision.CellWidth,
			"cell_h", cfg.Collision.CellHeight,
		)
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindow > 0 {
		statsWindow = opts.StatsWindow
	}
	g.collector = telemetry.NewCollector(statsWindow)
	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	if om, err := telemetry.NewOutputManager(opts.OutputDir); err != nil {
		slog.Error("failed to create output manager", "error", err)
	} else if om != nil {
		g.outputManager = om
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	if sw, err := telemetry.NewSnapshotWriter(opts.SnapshotDir, cfg.Telemetry.SnapshotInterval); err != nil {
		slog.Error("failed to create snapshot writer", "error", err)
	} else {
		g.snapshots = sw
	}

	g.spawnInitialPopulation()

	// Index everything before the first tick
	g.collectEntities()
	g.collision.Rebuild(g.entities)
	g.collision.ResetStats()

	return g
}

// UpdateHeadless advances the simulation by one tick.
func (g *Game) UpdateHeadless() {
	g.perf.StartTick()

	// 1. Behaviour and movement
	g.perf.StartPhase(telemetry.PhaseMovement)
	g.applyWander()
	g.movement.Update()

	// 2. Grid update on cadence
	g.perf.StartPhase(telemetry.PhaseSpatialGrid)
	g.collectEntities()
	if g.collision.UpdateGrid(g.entities) {
		g.onRebuild()
	}

	// 3. Broad and narrow phase per entity
	g.perf.StartPhase(telemetry.PhaseCollisions)
	for _, e := range g.entities {
		g.collision.HandleCollisions(e)
	}

	// 4. Area effects
	g.perf.StartPhase(telemetry.PhaseEffects)
	g.updateEffects()

	// 5. Remove destroyed entities
	g.perf.StartPhase(telemetry.PhaseCleanup)
	g.cleanupDead()

	g.tick++

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.collector.RecordCollisions(g.collision.Stats())
	g.collision.ResetStats()
	g.flushTelemetry()

	g.perf.EndTick()
}

// collectEntities lists every entity carrying a collider, in query order.
func (g *Game) collectEntities() {
	g.entities = g.entities[:0]
	query := g.colliderFilter.Query()
	for query.Next() {
		g.entities = append(g.entities, query.Entity())
	}
}

// Unload flushes and closes output files.
func (g *Game) Unload() {
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.tick
}

// World returns the ECS world.
func (g *Game) World() *ecs.World {
	return g.world
}

// Collision returns the collision system.
func (g *Game) Collision() *systems.CollisionSystem {
	return g.collision
}

// Player returns the designated player entity, if one was spawned.
func (g *Game) Player() (ecs.Entity, bool) {
	return g.player, g.hasPlayer
}

// ActorCount returns the number of live dynamic actors, excluding the player.
func (g *Game) ActorCount() int {
	return g.numActors
}

// ObstacleCount returns the number of static obstacles.
func (g *Game) ObstacleCount() int {
	return g.numObstacles
}
