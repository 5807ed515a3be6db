package game

import (
	"log/slog"

	"github.com/jakecoffman/cp/v2"

	"github.com/pthm-cable/collide/shapes"
)

// applyWander nudges the velocity of every entity with attached behaviour.
func (g *Game) applyWander() {
	wander := float32(g.cfg.Population.Wander)
	if wander <= 0 {
		return
	}

	query := g.wanderFilter.Query()
	for query.Next() {
		vel, flags := query.Get()
		if !flags.Dynamic || !flags.BehaviourAttached {
			continue
		}
		vel.X += (g.rng.Float32()*2 - 1) * wander
		vel.Y += (g.rng.Float32()*2 - 1) * wander
	}
}

// updateEffects fires at most one area effect per tick. Damagable entities
// inside the blast lose health; destroyed ones are excluded immediately and
// removed from the world at cleanup.
func (g *Game) updateEffects() {
	fx := &g.cfg.Effects
	if fx.Chance <= 0 || g.rng.Float64() >= fx.Chance {
		return
	}

	origin := cp.Vector{
		X: g.rng.Float64() * float64(g.cfg.World.Width),
		Y: g.rng.Float64() * float64(g.cfg.World.Height),
	}
	hits := g.collision.Query(origin, shapes.Circle{Radius: float32(fx.Radius)})

	damage := float32(fx.Damage)
	for _, e := range hits {
		if !g.flagsMap.Get(e).Damagable || !g.healthMap.Has(e) {
			continue
		}
		health := g.healthMap.Get(e)
		health.Value -= damage
		if health.Alive() {
			continue
		}

		g.collision.Exclude(e)
		g.dead = append(g.dead, e)
		g.collector.RecordDestroyed()
	}
}

// onRebuild hands the fresh grid to the snapshot writer.
func (g *Game) onRebuild() {
	path, err := g.snapshots.OnRebuild(g.tick, g.collision.Grid())
	if err != nil {
		slog.Error("failed to write grid snapshot", "tick", g.tick, "error", err)
		return
	}
	if path != "" {
		slog.Debug("grid snapshot written", "tick", g.tick, "path", path)
	}
}
