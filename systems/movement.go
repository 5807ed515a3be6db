package systems

import (
	"github.com/jakecoffman/cp/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
)

// Bounds represents the simulation bounds.
type Bounds struct {
	Width, Height float32
}

// MovementConfig holds velocity integration parameters.
type MovementConfig struct {
	MaxSpeed float32
	Drag     float32 // fraction of velocity kept each tick
	Bounce   float32 // fraction of velocity reflected at walls
}

// MovementSystem updates positions of dynamic entities from their velocity.
// It runs between grid rebuilds, so entities drift away from their indexed cells.
type MovementSystem struct {
	filter ecs.Filter4[components.Position, components.Velocity, components.Rotation, components.Flags]
	bounds Bounds
	cfg    MovementConfig
}

// NewMovementSystem creates a new movement system.
func NewMovementSystem(w *ecs.World, bounds Bounds, cfg MovementConfig) *MovementSystem {
	return &MovementSystem{
		filter: *ecs.NewFilter4[components.Position, components.Velocity, components.Rotation, components.Flags](w),
		bounds: bounds,
		cfg:    cfg,
	}
}

// Update runs the movement system.
func (s *MovementSystem) Update() {
	drag := cp.Clamp01(float64(s.cfg.Drag))
	bounce := float32(cp.Clamp01(float64(s.cfg.Bounce)))

	query := s.filter.Query()
	for query.Next() {
		pos, vel, rot, flags := query.Get()
		if !flags.Dynamic {
			continue
		}

		v := cp.Vector{X: float64(vel.X), Y: float64(vel.Y)}.Clamp(float64(s.cfg.MaxSpeed))
		pos.Move(float32(v.X), float32(v.Y))

		v = v.Mult(drag)
		vel.X, vel.Y = float32(v.X), float32(v.Y)

		if v.LengthSq() > 0.01 {
			rot.Heading = float32(v.ToAngle())
		}

		// Walls on all four sides
		if pos.X < 0 {
			pos.X = 0
			vel.X *= -bounce
		} else if pos.X > s.bounds.Width {
			pos.X = s.bounds.Width
			vel.X *= -bounce
		}
		if pos.Y < 0 {
			pos.Y = 0
			vel.Y *= -bounce
		} else if pos.Y > s.bounds.Height {
			pos.Y = s.bounds.Height
			vel.Y *= -bounce
		}
	}
}
