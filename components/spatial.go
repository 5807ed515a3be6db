package components

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Move translates the position by (dx, dy).
func (p *Position) Move(dx, dy float32) {
	p.X += dx
	p.Y += dy
}

// Velocity represents an entity's velocity in world units per tick.
type Velocity struct {
	X, Y float32
}

// Rotation represents an entity's heading and angular velocity.
type Rotation struct {
	Heading float32 // radians
	AngVel  float32 // angular velocity (radians per tick)
}
