package shapes

import "github.com/jakecoffman/cp/v2"

// Circle is a disc of the given radius centred on the entity position.
type Circle struct {
	Radius float32
}

// Point is a zero-radius circle, used as a hitscan probe.
var Point = Circle{}

// CheckCollision implements Collider.
func (c Circle) CheckCollision(p Pair) (cp.Vector, bool) {
	mover := At(p.Mover.Pos)
	target := At(p.Target.Pos)

	switch t := p.Target.Shape.(type) {
	case Circle:
		return circleCircle(mover, float64(c.Radius), target, float64(t.Radius))
	case Box:
		return circleBox(mover, float64(c.Radius), t.bounds(target))
	default:
		panic(unclassified("resolve", c, p.Target.Shape))
	}
}

// DetectCollision implements Collider.
func (c Circle) DetectCollision(origin cp.Vector, probe Collider, self Subject) bool {
	pos := At(self.Pos)

	switch pr := probe.(type) {
	case Circle:
		r := float64(c.Radius + pr.Radius)
		return origin.DistanceSq(pos) <= r*r
	case Box:
		return circleBoxOverlap(pos, float64(c.Radius), pr.bounds(origin))
	default:
		panic(unclassified("probe", c, probe))
	}
}

// Extent implements Collider.
func (c Circle) Extent() float32 {
	return c.Radius
}

// circleCircle pushes circle a out of circle b along the line between centres.
func circleCircle(a cp.Vector, ra float64, b cp.Vector, rb float64) (cp.Vector, bool) {
	sum := ra + rb
	d := a.Sub(b)
	if d.LengthSq() >= sum*sum {
		return cp.Vector{}, false
	}

	dist := d.Length()
	if dist == 0 {
		// Coincident centres: no preferred direction, push along +X.
		return cp.Vector{X: sum}, true
	}
	return d.Mult((sum - dist) / dist), true
}

// closestPoint returns the point of bb nearest to v.
func closestPoint(bb cp.BB, v cp.Vector) cp.Vector {
	return cp.Vector{X: cp.Clamp(v.X, bb.L, bb.R), Y: cp.Clamp(v.Y, bb.B, bb.T)}
}

// circleBox pushes a circle out of an axis-aligned box.
func circleBox(c cp.Vector, r float64, bb cp.BB) (cp.Vector, bool) {
	d := c.Sub(closestPoint(bb, c))
	distSq := d.LengthSq()

	if distSq == 0 {
		// Centre is inside the box: leave through the nearest face.
		left := c.X - bb.L
		right := bb.R - c.X
		bottom := c.Y - bb.B
		top := bb.T - c.Y

		switch min(left, right, bottom, top) {
		case left:
			return cp.Vector{X: -(left + r)}, true
		case right:
			return cp.Vector{X: right + r}, true
		case bottom:
			return cp.Vector{Y: -(bottom + r)}, true
		default:
			return cp.Vector{Y: top + r}, true
		}
	}

	if distSq >= r*r {
		return cp.Vector{}, false
	}
	dist := d.Length()
	return d.Mult((r - dist) / dist), true
}

func circleBoxOverlap(c cp.Vector, r float64, bb cp.BB) bool {
	return c.DistanceSq(closestPoint(bb, c)) <= r*r
}
