package telemetry

import "github.com/pthm-cable/collide/systems"

// Collector accumulates collision events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks     int32
	windowStartTick int32

	// Counters for current window
	work      systems.CollisionStats
	destroyed int
}

// NewCollector creates a new stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int32(windowTicks)}
}

// RecordCollisions adds one tick's worth of collision work.
func (c *Collector) RecordCollisions(s systems.CollisionStats) {
	c.work.Rebuilds += s.Rebuilds
	c.work.Queries += s.Queries
	c.work.Candidates += s.Candidates
	c.work.Displacements += s.Displacements
	c.work.Probes += s.Probes
	c.work.ProbeHits += s.ProbeHits
	c.work.Exclusions += s.Exclusions
	c.work.Indexed = s.Indexed
}

// RecordDestroyed records an entity destroyed by an area effect.
func (c *Collector) RecordDestroyed() {
	c.destroyed++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// residual is the overlap count from an audit, or -1 when none was run.
func (c *Collector) Flush(currentTick int32, actors, obstacles int, grid *systems.SpatialGrid, residual int) WindowStats {
	var perQuery float64
	if c.work.Queries > 0 {
		perQuery = float64(c.work.Candidates) / float64(c.work.Queries)
	}

	stats := WindowStats{
		WindowStartTick:    c.windowStartTick,
		WindowEndTick:      currentTick,
		Actors:             actors,
		Obstacles:          obstacles,
		Rebuilds:           c.work.Rebuilds,
		Queries:            c.work.Queries,
		Candidates:         c.work.Candidates,
		CandidatesPerQuery: perQuery,
		Displacements:      c.work.Displacements,
		Probes:             c.work.Probes,
		ProbeHits:          c.work.ProbeHits,
		Exclusions:         c.work.Exclusions,
		Destroyed:          c.destroyed,
		Indexed:            c.work.Indexed,
		ResidualOverlaps:   residual,
	}
	if grid != nil {
		stats.Occupancy = ComputeOccupancy(grid.BucketSizes())
	}

	c.windowStartTick = currentTick
	c.work = systems.CollisionStats{}
	c.destroyed = 0

	return stats
}
