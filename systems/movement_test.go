package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/shapes"
)

func TestMovementSystem(t *testing.T) {
	tests := []struct {
		name    string
		pos     components.Position
		vel     components.Velocity
		dynamic bool
		wantPos components.Position
		wantVel components.Velocity
	}{
		{
			name:    "moves with velocity",
			pos:     components.Position{X: 50, Y: 50},
			vel:     components.Velocity{X: 2, Y: 0},
			dynamic: true,
			wantPos: components.Position{X: 52, Y: 50},
			wantVel: components.Velocity{X: 1, Y: 0},
		},
		{
			name:    "speed is clamped",
			pos:     components.Position{X: 50, Y: 50},
			vel:     components.Velocity{X: 0, Y: 10},
			dynamic: true,
			wantPos: components.Position{X: 50, Y: 54},
			wantVel: components.Velocity{X: 0, Y: 2},
		},
		{
			name:    "bounces off left wall",
			pos:     components.Position{X: 1, Y: 50},
			vel:     components.Velocity{X: -4, Y: 0},
			dynamic: true,
			wantPos: components.Position{X: 0, Y: 50},
			wantVel: components.Velocity{X: 1, Y: 0},
		},
		{
			name:    "static stays put",
			pos:     components.Position{X: 50, Y: 50},
			vel:     components.Velocity{X: 3, Y: 3},
			dynamic: false,
			wantPos: components.Position{X: 50, Y: 50},
			wantVel: components.Velocity{X: 3, Y: 3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ecs.NewWorld()
			mapper := ecs.NewMap5[components.Position, components.Velocity, components.Rotation, components.Flags, shapes.Hitbox](w)
			flags := components.Flags{Dynamic: tc.dynamic}
			pos, vel := tc.pos, tc.vel
			e := mapper.NewEntity(&pos, &vel, &components.Rotation{}, &flags, &shapes.Hitbox{Shape: dot})

			sys := NewMovementSystem(w, Bounds{Width: 100, Height: 100}, MovementConfig{MaxSpeed: 4, Drag: 0.5, Bounce: 0.5})
			sys.Update()

			gotPos := ecs.NewMap[components.Position](w).Get(e)
			gotVel := ecs.NewMap[components.Velocity](w).Get(e)
			if math.Abs(float64(gotPos.X-tc.wantPos.X)) > 0.001 || math.Abs(float64(gotPos.Y-tc.wantPos.Y)) > 0.001 {
				t.Errorf("position = %+v, want %+v", *gotPos, tc.wantPos)
			}
			if math.Abs(float64(gotVel.X-tc.wantVel.X)) > 0.001 || math.Abs(float64(gotVel.Y-tc.wantVel.Y)) > 0.001 {
				t.Errorf("velocity = %+v, want %+v", *gotVel, tc.wantVel)
			}
		})
	}
}

func TestMovementUpdatesHeading(t *testing.T) {
	w := ecs.NewWorld()
	mapper := ecs.NewMap5[components.Position, components.Velocity, components.Rotation, components.Flags, shapes.Hitbox](w)
	flags := components.DynamicFlags()
	e := mapper.NewEntity(&components.Position{X: 50, Y: 50}, &components.Velocity{X: 0, Y: 2}, &components.Rotation{}, &flags, &shapes.Hitbox{Shape: dot})

	NewMovementSystem(w, Bounds{Width: 100, Height: 100}, MovementConfig{MaxSpeed: 4, Drag: 1, Bounce: 0.5}).Update()

	rot := ecs.NewMap[components.Rotation](w).Get(e)
	if math.Abs(float64(rot.Heading)-math.Pi/2) > 0.001 {
		t.Errorf("heading = %v, want pi/2", rot.Heading)
	}
}
