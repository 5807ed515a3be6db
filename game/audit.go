package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/shapes"
)

// Audit counts overlapping collider pairs by checking every pair directly,
// without the grid. Pairs of two static entities are ignored since nothing
// resolves them. Cost is quadratic; use it for tests and tuning only.
func (g *Game) Audit() int {
	g.collectEntities()

	// Snapshot single-threaded, then count in parallel
	snaps := make([]auditSnapshot, len(g.entities))
	for i, e := range g.entities {
		snaps[i] = auditSnapshot{
			subject: g.collision.Subject(e),
			dynamic: g.flagsMap.Get(e).Dynamic,
		}
	}
	return countOverlaps(snaps)
}

// OverlapsOf returns the entities whose colliders currently overlap e.
func (g *Game) OverlapsOf(e ecs.Entity) []ecs.Entity {
	g.collectEntities()
	self := g.collision.Subject(e)

	var out []ecs.Entity
	for _, other := range g.entities {
		if other == e {
			continue
		}
		pair := shapes.Pair{Mover: self, Target: g.collision.Subject(other)}
		if _, ok := self.Shape.CheckCollision(pair); ok {
			out = append(out, other)
		}
	}
	return out
}
