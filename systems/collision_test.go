package systems

import (
	"maps"
	"math/rand"
	"slices"
	"testing"

	"github.com/jakecoffman/cp/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/shapes"
)

func distanceSq(x1, y1, x2, y2 float32) float64 {
	return cp.Vector{X: float64(x1), Y: float64(y1)}.DistanceSq(cp.Vector{X: float64(x2), Y: float64(y2)})
}

// testWorld builds collidable entities for collision tests.
type testWorld struct {
	w      *ecs.World
	mapper *ecs.Map5[components.Position, components.Velocity, components.Rotation, components.Flags, shapes.Hitbox]
	posMap *ecs.Map[components.Position]
}

func newTestWorld() *testWorld {
	w := ecs.NewWorld()
	return &testWorld{
		w:      w,
		mapper: ecs.NewMap5[components.Position, components.Velocity, components.Rotation, components.Flags, shapes.Hitbox](w),
		posMap: ecs.NewMap[components.Position](w),
	}
}

func (tw *testWorld) add(x, y float32, dynamic bool, shape shapes.Collider) ecs.Entity {
	flags := components.StaticFlags()
	if dynamic {
		flags = components.DynamicFlags()
	}
	return tw.mapper.NewEntity(
		&components.Position{X: x, Y: y},
		&components.Velocity{},
		&components.Rotation{},
		&flags,
		&shapes.Hitbox{Shape: shape},
	)
}

func (tw *testWorld) pos(e ecs.Entity) components.Position {
	return *tw.posMap.Get(e)
}

func newTestSystem(tw *testWorld, cadence int) *CollisionSystem {
	return NewCollisionSystem(tw.w, CollisionConfig{CellWidth: 50, CellHeight: 50, RebuildCadence: cadence})
}

var dot = shapes.Circle{Radius: 1}

func TestCandidatesSameCell(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, dot)
	b := tw.add(40, 40, true, dot)
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{a, b})

	if got := s.grid.CellIndex(10, 10); got != (CellIndex{0, 0}) {
		t.Fatalf("a in cell %+v, want (0,0)", got)
	}
	if got := s.grid.CellIndex(40, 40); got != (CellIndex{0, 0}) {
		t.Fatalf("b in cell %+v, want (0,0)", got)
	}
	if !slices.Contains(s.Candidates(a), b) {
		t.Error("query from a should return b")
	}
	if !slices.Contains(s.Candidates(b), a) {
		t.Error("query from b should return a")
	}
}

func TestCandidatesGapCell(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, dot)
	b := tw.add(110, 10, true, dot)
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{a, b})

	if got := s.grid.CellIndex(110, 10); got != (CellIndex{2, 0}) {
		t.Fatalf("b in cell %+v, want (2,0)", got)
	}
	if slices.Contains(s.Candidates(a), b) {
		t.Error("query from a should not return b across an empty cell")
	}
	if slices.Contains(s.Candidates(b), a) {
		t.Error("query from b should not return a across an empty cell")
	}
}

func TestCandidatesNegativeCoordinates(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(-10, -10, true, dot)
	b := tw.add(60, 60, true, dot)
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{a, b})

	// (-10,-10) is cell (-1,-1); (60,60) is cell (1,1): two cells apart on each axis.
	if slices.Contains(s.Candidates(a), b) {
		t.Error("floor division should keep (-10,-10) out of (60,60)'s neighborhood")
	}
}

func TestStaticEntitiesDoNotQuery(t *testing.T) {
	tw := newTestWorld()
	wall := tw.add(10, 10, false, shapes.Box{HalfWidth: 10, HalfHeight: 10})
	mover := tw.add(12, 12, true, shapes.Circle{Radius: 5})
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{wall, mover})

	if got := s.Candidates(wall); len(got) != 0 {
		t.Errorf("static entity returned %d candidates, want 0", len(got))
	}

	before := tw.pos(mover)
	s.HandleCollisions(wall)
	if tw.pos(mover) != before || tw.pos(wall) != (components.Position{X: 10, Y: 10}) {
		t.Error("handling a static entity should not move anything")
	}

	// The static entity is still a valid target
	if !slices.Contains(s.Candidates(mover), wall) {
		t.Error("dynamic query should include the static entity")
	}
}

func TestResolveSelf(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, shapes.Circle{Radius: 5})
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{a})

	if s.Resolve(a, a) {
		t.Error("Resolve(e, e) should never displace")
	}
	if tw.pos(a) != (components.Position{X: 10, Y: 10}) {
		t.Errorf("position changed to %+v", tw.pos(a))
	}
}

func TestResolveAsymmetry(t *testing.T) {
	tests := []struct {
		name          string
		targetDynamic bool
	}{
		{"static target", false},
		{"dynamic target", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tw := newTestWorld()
			a := tw.add(20, 20, true, shapes.Circle{Radius: 5})
			b := tw.add(26, 20, tc.targetDynamic, shapes.Circle{Radius: 5})
			s := newTestSystem(tw, 1)
			s.Rebuild([]ecs.Entity{a, b})

			s.HandleCollisions(a)

			if got := tw.pos(b); got != (components.Position{X: 26, Y: 20}) {
				t.Errorf("target moved to %+v", got)
			}
			got := tw.pos(a)
			if got.X >= 20 || got.Y != 20 {
				t.Errorf("mover at %+v, want pushed left along x", got)
			}
			if d := distanceSq(got.X, got.Y, 26, 20); d < 100-0.01 {
				t.Errorf("mover still overlaps target, distSq = %v", d)
			}
		})
	}
}

func TestRebuildCadence(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, dot)
	s := newTestSystem(tw, 5)
	list := []ecs.Entity{a}
	s.Rebuild(list)

	tw.posMap.Get(a).Move(100, 0)

	for i := 1; i <= 4; i++ {
		if s.UpdateGrid(list) {
			t.Fatalf("call %d rebuilt the grid, want no rebuild before call 5", i)
		}
		if !slices.Contains(s.grid.Cell(CellIndex{0, 0}), a) {
			t.Fatalf("call %d: grid should still hold a in its old cell", i)
		}
	}

	if !s.UpdateGrid(list) {
		t.Fatal("call 5 should rebuild the grid")
	}
	if slices.Contains(s.grid.Cell(CellIndex{0, 0}), a) {
		t.Error("a should have left its old cell after rebuild")
	}
	if !slices.Contains(s.grid.Cell(CellIndex{2, 0}), a) {
		t.Error("a should be in cell (2,0) after rebuild")
	}
	if s.tickCounter != 0 {
		t.Errorf("tick counter = %d after rebuild, want 0", s.tickCounter)
	}
}

// gridContents copies every populated cell of the grid.
func gridContents(g *SpatialGrid) map[CellIndex][]ecs.Entity {
	out := make(map[CellIndex][]ecs.Entity)
	g.Each(func(idx CellIndex, bucket []ecs.Entity) {
		out[idx] = slices.Clone(bucket)
	})
	return out
}

func TestRebuildIsDeterministic(t *testing.T) {
	tw := newTestWorld()
	rng := rand.New(rand.NewSource(7))

	var list []ecs.Entity
	for range 80 {
		x := rng.Float32()*400 - 200
		y := rng.Float32()*400 - 200
		list = append(list, tw.add(x, y, rng.Intn(2) == 0, dot))
	}
	player := tw.add(-1, -1, true, dot)

	s := newTestSystem(tw, 1)
	s.SetPlayer(player)

	s.Rebuild(list)
	first := gridContents(s.Grid())
	s.Rebuild(list)
	second := gridContents(s.Grid())

	if len(first) == 0 {
		t.Fatal("grid is empty after rebuild")
	}
	if !maps.EqualFunc(first, second, slices.Equal[[]ecs.Entity]) {
		t.Errorf("rebuilding with the same list changed the grid:\nfirst  %v\nsecond %v", first, second)
	}

	// A second system fed the same list builds the same grid.
	other := newTestSystem(tw, 1)
	other.SetPlayer(player)
	other.Rebuild(list)
	if !maps.EqualFunc(first, gridContents(other.Grid()), slices.Equal[[]ecs.Entity]) {
		t.Error("independent rebuild from the same list produced a different grid")
	}
}

func TestStaleGridMissesMovedEntity(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, dot)
	b := tw.add(210, 10, true, dot)
	s := newTestSystem(tw, 10)
	s.Rebuild([]ecs.Entity{a, b})

	// b moves next to a, but the grid still has it in cell (4,0)
	tw.posMap.Get(b).Move(-190, 0)
	if slices.Contains(s.Candidates(a), b) {
		t.Error("stale grid should not yet report b near a")
	}

	s.Rebuild([]ecs.Entity{a, b})
	if !slices.Contains(s.Candidates(a), b) {
		t.Error("rebuilt grid should report b near a")
	}
}

func TestExclusionLifecycle(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, shapes.Circle{Radius: 5})
	b := tw.add(14, 10, true, shapes.Circle{Radius: 5})
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{a, b})

	s.Exclude(b)

	if slices.Contains(s.Candidates(a), b) {
		t.Error("excluded entity returned by broad phase")
	}
	if hits := s.Query(cp.Vector{X: 14, Y: 10}, shapes.Point); slices.Contains(hits, b) {
		t.Error("excluded entity returned by ad-hoc query")
	}
	if s.Resolve(a, b) {
		t.Error("resolving against an excluded entity should be skipped")
	}
	if got := tw.pos(a); got != (components.Position{X: 10, Y: 10}) {
		t.Errorf("mover displaced by excluded entity to %+v", got)
	}

	// Excluded entity still in the input list: skipped by this rebuild, then forgotten.
	s.Rebuild([]ecs.Entity{a, b})
	if s.IsExcluded(b) {
		t.Error("exclusion set should be cleared by rebuild")
	}
	if slices.Contains(s.Candidates(a), b) {
		t.Error("entity excluded before rebuild should not be indexed")
	}

	// Gone from the input list: never reappears.
	s.Rebuild([]ecs.Entity{a})
	s.Rebuild([]ecs.Entity{a})
	if slices.Contains(s.Candidates(a), b) {
		t.Error("removed entity reappeared after rebuild")
	}
	if s.grid.Len() != 1 {
		t.Errorf("grid holds %d entities, want 1", s.grid.Len())
	}
}

func TestPlayerAlwaysIndexed(t *testing.T) {
	tw := newTestWorld()
	player := tw.add(10, 10, true, dot)
	other := tw.add(20, 20, true, dot)
	s := newTestSystem(tw, 1)
	s.SetPlayer(player)

	s.Rebuild([]ecs.Entity{other})
	if !slices.Contains(s.grid.Cell(CellIndex{0, 0}), player) {
		t.Error("player should be indexed even when missing from the list")
	}

	s.Rebuild([]ecs.Entity{player, other})
	count := 0
	for _, e := range s.grid.Cell(CellIndex{0, 0}) {
		if e == player {
			count++
		}
	}
	if count != 1 {
		t.Errorf("player indexed %d times, want 1", count)
	}
}

func TestQuery(t *testing.T) {
	tw := newTestWorld()
	near := tw.add(48, 10, true, shapes.Circle{Radius: 5})
	across := tw.add(55, 10, false, shapes.Box{HalfWidth: 3, HalfHeight: 3})
	far := tw.add(140, 10, true, shapes.Circle{Radius: 5})
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{near, across, far})

	hits := s.Query(cp.Vector{X: 51, Y: 10}, shapes.Circle{Radius: 2})
	if !slices.Contains(hits, near) || !slices.Contains(hits, across) {
		t.Errorf("query missed entities overlapping the probe: %v", hits)
	}
	if slices.Contains(hits, far) {
		t.Error("query returned a distant entity")
	}

	// Nothing is moved by a query
	if tw.pos(near) != (components.Position{X: 48, Y: 10}) {
		t.Error("query moved an entity")
	}

	// Empty region
	if hits := s.Query(cp.Vector{X: -500, Y: -500}, shapes.Point); len(hits) != 0 {
		t.Errorf("query in empty region returned %d entities", len(hits))
	}
}

func TestQueryReturnsEachEntityOnce(t *testing.T) {
	tw := newTestWorld()
	wide := tw.add(50, 10, false, shapes.Box{HalfWidth: 20, HalfHeight: 5})
	small := tw.add(45, 12, true, dot)
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{wide, small})

	// Index the wide box in the neighbouring cell as well, the way a
	// multi-cell insert would.
	s.grid.Insert(wide, 30, 10)
	s.grid.Insert(small, 45, 60)

	var copies int
	for _, e := range s.grid.NeighborhoodInto(nil, s.grid.CellIndex(49, 10), nil) {
		if e == wide {
			copies++
		}
	}
	if copies != 2 {
		t.Fatalf("wide box indexed %d times in the neighbourhood, want 2", copies)
	}

	hits := s.Query(cp.Vector{X: 49, Y: 10}, shapes.Circle{Radius: 5})
	if len(hits) != 2 || !slices.Contains(hits, wide) || !slices.Contains(hits, small) {
		t.Errorf("Query = %v, want [wide small] once each", hits)
	}
}

func TestNeighborCompleteness(t *testing.T) {
	tw := newTestWorld()
	s := newTestSystem(tw, 1)
	rng := rand.New(rand.NewSource(42))

	for i := range 500 {
		ax := rng.Float32()*1000 - 500
		ay := rng.Float32()*1000 - 500
		bx := ax + (rng.Float32()*2-1)*50
		by := ay + (rng.Float32()*2-1)*50
		if distanceSq(ax, ay, bx, by) > 50*50 {
			continue
		}

		a := tw.add(ax, ay, true, dot)
		b := tw.add(bx, by, true, dot)
		s.Rebuild([]ecs.Entity{a, b})

		if !slices.Contains(s.Candidates(a), b) || !slices.Contains(s.Candidates(b), a) {
			t.Fatalf("case %d: (%v,%v) and (%v,%v) within one cell width but not neighbors", i, ax, ay, bx, by)
		}
	}
}

func TestUpdateSeparatesOverlaps(t *testing.T) {
	tw := newTestWorld()
	wall := tw.add(100, 100, false, shapes.Box{HalfWidth: 20, HalfHeight: 20})
	a := tw.add(100, 125, true, shapes.Circle{Radius: 8})
	b := tw.add(125, 100, true, shapes.Circle{Radius: 8})
	s := newTestSystem(tw, 1)
	list := []ecs.Entity{wall, a, b}

	s.Update(list)

	if got := tw.pos(wall); got != (components.Position{X: 100, Y: 100}) {
		t.Errorf("static wall moved to %+v", got)
	}
	if got := tw.pos(a); got.Y < 128-0.01 {
		t.Errorf("a at %+v, want pushed to y >= 128", got)
	}
	if got := tw.pos(b); got.X < 128-0.01 {
		t.Errorf("b at %+v, want pushed to x >= 128", got)
	}

	stats := s.Stats()
	if stats.Rebuilds != 1 || stats.Queries != 2 || stats.Displacements != 2 {
		t.Errorf("stats = %+v, want 1 rebuild, 2 queries, 2 displacements", stats)
	}
	s.ResetStats()
	if got := s.Stats(); got.Queries != 0 || got.Indexed != 3 {
		t.Errorf("after reset stats = %+v", got)
	}
}

func TestMissingHitboxPanics(t *testing.T) {
	tw := newTestWorld()
	a := tw.add(10, 10, true, dot)
	bare := ecs.NewMap2[components.Position, components.Flags](tw.w).
		NewEntity(&components.Position{X: 11, Y: 10}, &components.Flags{})
	s := newTestSystem(tw, 1)
	s.Rebuild([]ecs.Entity{a, bare})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for entity without hitbox")
		}
	}()
	s.HandleCollisions(a)
}
