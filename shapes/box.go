package shapes

import (
	"math"

	"github.com/jakecoffman/cp/v2"
)

// Box is an axis-aligned rectangle centred on the entity position.
// Rotation does not affect it.
type Box struct {
	HalfWidth  float32
	HalfHeight float32
}

// bounds places the box at centre c.
func (b Box) bounds(c cp.Vector) cp.BB {
	return cp.NewBBForExtents(c, float64(b.HalfWidth), float64(b.HalfHeight))
}

// CheckCollision implements Collider.
func (b Box) CheckCollision(p Pair) (cp.Vector, bool) {
	mover := At(p.Mover.Pos)
	target := At(p.Target.Pos)

	switch t := p.Target.Shape.(type) {
	case Circle:
		// Moving the box by -v separates it exactly as moving the circle by v would.
		v, ok := circleBox(target, float64(t.Radius), b.bounds(mover))
		return v.Neg(), ok
	case Box:
		return boxBox(b.bounds(mover), t.bounds(target))
	default:
		panic(unclassified("resolve", b, p.Target.Shape))
	}
}

// DetectCollision implements Collider.
func (b Box) DetectCollision(origin cp.Vector, probe Collider, self Subject) bool {
	bb := b.bounds(At(self.Pos))

	switch pr := probe.(type) {
	case Circle:
		return circleBoxOverlap(origin, float64(pr.Radius), bb)
	case Box:
		return bb.Intersects(pr.bounds(origin))
	default:
		panic(unclassified("probe", b, probe))
	}
}

// Extent implements Collider.
func (b Box) Extent() float32 {
	return float32(math.Hypot(float64(b.HalfWidth), float64(b.HalfHeight)))
}

// boxBox pushes box a out of box b along the axis of least penetration.
// Touching edges do not count as overlap.
func boxBox(a, b cp.BB) (cp.Vector, bool) {
	if !a.Intersects(b) {
		return cp.Vector{}, false
	}

	px := min(a.R-b.L, b.R-a.L)
	py := min(a.T-b.B, b.T-a.B)
	if px <= 0 || py <= 0 {
		return cp.Vector{}, false
	}

	// Doubled centre offsets; only the sign is used.
	dx := (a.L + a.R) - (b.L + b.R)
	dy := (a.B + a.T) - (b.B + b.T)
	if px < py {
		return cp.Vector{X: sign(dx) * px}, true
	}
	return cp.Vector{Y: sign(dy) * py}, true
}

// sign treats zero as positive so coincident boxes still separate.
func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
