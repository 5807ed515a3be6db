package systems

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/jakecoffman/cp/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/shapes"
)

// Reference grid parameters.
const (
	DefaultCellSize       = 50
	DefaultRebuildCadence = 5
)

// CollisionConfig holds the tunables of the collision system.
type CollisionConfig struct {
	CellWidth      float32
	CellHeight     float32
	RebuildCadence int // ticks between full grid rebuilds
}

// CollisionStats counts collision work since the last ResetStats.
type CollisionStats struct {
	Rebuilds      int
	Indexed       int // entities inserted by the most recent rebuild
	Queries       int
	Candidates    int
	Displacements int
	Probes        int
	ProbeHits     int
	Exclusions    int
}

// CollisionSystem indexes entities in a SpatialGrid and resolves overlaps
// between dynamic entities and their neighbors.
//
// Resolution is one-sided: only the mover is displaced. A dynamic candidate is
// corrected when its own HandleCollisions runs.
type CollisionSystem struct {
	world  *ecs.World
	grid   *SpatialGrid
	posMap *ecs.Map[components.Position]
	rotMap *ecs.Map[components.Rotation]
	flags  *ecs.Map[components.Flags]
	boxes  *ecs.Map[shapes.Hitbox]

	// Entities removed this cycle; cleared by the next rebuild.
	exclude map[ecs.Entity]struct{}

	player    ecs.Entity
	hasPlayer bool

	cadence     int
	tickCounter int

	buf   []ecs.Entity
	stats CollisionStats
}

// NewCollisionSystem creates a collision system reading components from w.
func NewCollisionSystem(w *ecs.World, cfg CollisionConfig) *CollisionSystem {
	if cfg.CellWidth <= 0 {
		cfg.CellWidth = DefaultCellSize
	}
	if cfg.CellHeight <= 0 {
		cfg.CellHeight = DefaultCellSize
	}
	if cfg.RebuildCadence < 1 {
		cfg.RebuildCadence = 1
	}

	return &CollisionSystem{
		world:   w,
		grid:    NewSpatialGrid(cfg.CellWidth, cfg.CellHeight),
		posMap:  ecs.NewMap[components.Position](w),
		rotMap:  ecs.NewMap[components.Rotation](w),
		flags:   ecs.NewMap[components.Flags](w),
		boxes:   ecs.NewMap[shapes.Hitbox](w),
		exclude: make(map[ecs.Entity]struct{}),
		cadence: cfg.RebuildCadence,
		buf:     make([]ecs.Entity, 0, 32),
	}
}

// Grid returns the current grid snapshot.
func (s *CollisionSystem) Grid() *SpatialGrid {
	return s.grid
}

// SetPlayer designates the player entity, which every rebuild indexes
// whether or not it is in the entity list.
func (s *CollisionSystem) SetPlayer(e ecs.Entity) {
	s.player = e
	s.hasPlayer = true
}

// Stats returns the counters accumulated since the last ResetStats.
func (s *CollisionSystem) Stats() CollisionStats {
	return s.stats
}

// ResetStats zeroes the work counters. Indexed is kept since it describes the grid.
func (s *CollisionSystem) ResetStats() {
	s.stats = CollisionStats{Indexed: s.stats.Indexed}
}

// UpdateGrid counts one tick and rebuilds the grid from entities once the
// rebuild cadence is reached. Reports whether a rebuild happened.
func (s *CollisionSystem) UpdateGrid(entities []ecs.Entity) bool {
	s.tickCounter++
	if s.tickCounter < s.cadence {
		return false
	}
	s.Rebuild(entities)
	s.tickCounter = 0
	return true
}

// Rebuild clears the grid and indexes the player plus every entity in the list
// that is not excluded, then clears the exclusion set.
func (s *CollisionSystem) Rebuild(entities []ecs.Entity) {
	s.grid.Clear()

	if s.hasPlayer && s.world.Alive(s.player) {
		s.assign(s.player)
	}
	for _, e := range entities {
		if s.hasPlayer && e == s.player {
			continue
		}
		if s.IsExcluded(e) {
			continue
		}
		s.assign(e)
	}

	cleared := len(s.exclude)
	clear(s.exclude)

	s.stats.Rebuilds++
	s.stats.Indexed = s.grid.Len()
	slog.Debug("collision grid rebuilt",
		"indexed", s.grid.Len(),
		"exclusions_cleared", cleared,
	)
}

func (s *CollisionSystem) assign(e ecs.Entity) {
	pos := s.posMap.Get(e)
	s.grid.Insert(e, pos.X, pos.Y)
}

// Exclude marks e as removed. It is skipped by every query until the next rebuild.
func (s *CollisionSystem) Exclude(e ecs.Entity) {
	if _, ok := s.exclude[e]; ok {
		return
	}
	s.exclude[e] = struct{}{}
	s.stats.Exclusions++
}

// IsExcluded reports whether e was excluded since the last rebuild.
func (s *CollisionSystem) IsExcluded(e ecs.Entity) bool {
	_, ok := s.exclude[e]
	return ok
}

// CandidatesInto appends to dst the entities in the 3x3 cell block around a
// dynamic entity. Static entities never initiate queries and yield nothing.
// The result includes e itself when it is indexed.
func (s *CollisionSystem) CandidatesInto(dst []ecs.Entity, e ecs.Entity) []ecs.Entity {
	if !s.flags.Get(e).Dynamic {
		return dst
	}

	pos := s.posMap.Get(e)
	before := len(dst)
	dst = s.grid.NeighborhoodInto(dst, s.grid.CellIndex(pos.X, pos.Y), s.IsExcluded)

	s.stats.Queries++
	s.stats.Candidates += len(dst) - before
	return dst
}

// Candidates returns the broad-phase candidates for e in a new slice.
func (s *CollisionSystem) Candidates(e ecs.Entity) []ecs.Entity {
	return s.CandidatesInto(nil, e)
}

// Resolve pushes mover out of candidate if their colliders overlap.
// Only mover's position changes. Reports whether a displacement was applied.
func (s *CollisionSystem) Resolve(mover, candidate ecs.Entity) bool {
	if mover == candidate || s.IsExcluded(candidate) {
		return false
	}

	a := s.Subject(mover)
	pair := shapes.Pair{Mover: a, Target: s.Subject(candidate)}
	fix, ok := a.Shape.CheckCollision(pair)
	if !ok {
		return false
	}

	s.posMap.Get(mover).Move(float32(fix.X), float32(fix.Y))
	s.stats.Displacements++
	return true
}

// HandleCollisions runs the broad and narrow phase for one entity.
// Static and excluded entities return immediately.
func (s *CollisionSystem) HandleCollisions(e ecs.Entity) {
	if !s.flags.Get(e).Dynamic || s.IsExcluded(e) {
		return
	}

	s.buf = s.CandidatesInto(s.buf[:0], e)
	for _, c := range s.buf {
		s.Resolve(e, c)
	}
}

// Update runs one tick: the grid is updated on cadence, then every dynamic
// entity in the list resolves against its neighbors in list order.
func (s *CollisionSystem) Update(entities []ecs.Entity) {
	s.UpdateGrid(entities)
	for _, e := range entities {
		s.HandleCollisions(e)
	}
	if s.hasPlayer && !s.IsExcluded(s.player) && s.world.Alive(s.player) && !slices.Contains(entities, s.player) {
		s.HandleCollisions(s.player)
	}
}

// Query returns every indexed entity whose collider reports an overlap with
// probe centred on origin. Results are unique and nothing is moved.
func (s *CollisionSystem) Query(origin cp.Vector, probe shapes.Collider) []ecs.Entity {
	s.buf = s.grid.NeighborhoodInto(s.buf[:0], s.grid.CellIndex(float32(origin.X), float32(origin.Y)), s.IsExcluded)
	s.stats.Probes++

	var hits []ecs.Entity
	for _, e := range s.buf {
		if slices.Contains(hits, e) {
			continue
		}
		self := s.Subject(e)
		if self.Shape.DetectCollision(origin, probe, self) {
			hits = append(hits, e)
		}
	}

	s.stats.ProbeHits += len(hits)
	return hits
}

// Subject gathers the collision view of e. An indexed entity without a
// collider is a setup defect.
func (s *CollisionSystem) Subject(e ecs.Entity) shapes.Subject {
	if !s.boxes.Has(e) {
		panic(fmt.Sprintf("collision: entity %d has no hitbox", e.ID()))
	}
	hb := s.boxes.Get(e)
	if hb.Shape == nil {
		panic(fmt.Sprintf("collision: entity %d has a nil collider", e.ID()))
	}

	subj := shapes.Subject{
		Entity: e,
		Pos:    *s.posMap.Get(e),
		Shape:  hb.Shape,
	}
	if s.rotMap.Has(e) {
		subj.Rot = *s.rotMap.Get(e)
	}
	return subj
}
