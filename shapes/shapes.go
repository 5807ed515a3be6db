// Package shapes provides the collider shapes used by narrow-phase collision tests.
//
// Every shape implements Collider. The collision engine never inspects concrete
// shapes; it hands a Pair to the mover's collider and applies whatever displacement
// comes back. A pairing a shape cannot classify is a configuration defect and panics.
package shapes

import (
	"fmt"

	"github.com/jakecoffman/cp/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
)

// At converts a position component to a vector.
func At(p components.Position) cp.Vector {
	return cp.Vector{X: float64(p.X), Y: float64(p.Y)}
}

// Subject is a read-only view of one entity taking part in a collision test.
type Subject struct {
	Entity ecs.Entity
	Pos    components.Position
	Rot    components.Rotation
	Shape  Collider
}

// Pair binds a mover and one candidate for the duration of a single resolve call.
type Pair struct {
	Mover  Subject
	Target Subject
}

// Collider is the capability attached to every collidable entity.
type Collider interface {
	// CheckCollision returns the displacement that moves p.Mover out of p.Target,
	// or false when the two do not overlap. The receiver is p.Mover's shape.
	CheckCollision(p Pair) (cp.Vector, bool)

	// DetectCollision reports whether probe, centred on origin, overlaps self.
	// The receiver is self's shape.
	DetectCollision(origin cp.Vector, probe Collider, self Subject) bool

	// Extent returns the largest distance from the entity's position to its outline.
	Extent() float32
}

// Hitbox is the ECS component that attaches a collider to an entity.
type Hitbox struct {
	Shape Collider
}

func unclassified(op string, a, b Collider) string {
	return fmt.Sprintf("shapes: %s: %T cannot be tested against %T", op, a, b)
}
