package game

import (
	"math"

	"github.com/jakecoffman/cp/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/shapes"
)

// spawnInitialPopulation creates obstacles first, then actors, then the player.
func (g *Game) spawnInitialPopulation() {
	pop := &g.cfg.Population

	for i := 0; i < pop.Static; i++ {
		x := g.rng.Float32() * g.cfg.Derived.WorldW32
		y := g.rng.Float32() * g.cfg.Derived.WorldH32
		g.spawnObstacle(x, y,
			randRange(g.rng, pop.MinHalf, pop.MaxHalf),
			randRange(g.rng, pop.MinHalf, pop.MaxHalf),
		)
	}

	for i := 0; i < pop.Dynamic; i++ {
		g.spawnRandomActor()
	}

	if pop.Player {
		x := g.cfg.Derived.WorldW32 / 2
		y := g.cfg.Derived.WorldH32 / 2
		g.spawnPlayer(x, y, float32(pop.MaxRadius))
	}
}

// spawnObstacle creates an immovable axis-aligned box.
func (g *Game) spawnObstacle(x, y, halfW, halfH float32) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	flags := components.StaticFlags()
	hitbox := shapes.Hitbox{Shape: shapes.Box{HalfWidth: halfW, HalfHeight: halfH}}
	kind := components.KindObstacle

	entity := g.obstacleMapper.NewEntity(&pos, &flags, &hitbox, &kind)
	g.numObstacles++
	return entity
}

// spawnRandomActor creates an actor at a random position with a random radius and drift.
func (g *Game) spawnRandomActor() ecs.Entity {
	pop := &g.cfg.Population
	x := g.rng.Float32() * g.cfg.Derived.WorldW32
	y := g.rng.Float32() * g.cfg.Derived.WorldH32
	heading := g.rng.Float32() * 2 * math.Pi
	speed := g.rng.Float32() * float32(g.cfg.Movement.MaxSpeed)

	return g.spawnActor(x, y, heading, speed, randRange(g.rng, pop.MinRadius, pop.MaxRadius))
}

// spawnActor creates a dynamic, damagable circle moving along heading.
func (g *Game) spawnActor(x, y, heading, speed, radius float32) ecs.Entity {
	maxHealth := float32(g.cfg.Population.MaxHealth)

	drift := cp.ForAngle(float64(heading)).Mult(float64(speed))

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{X: float32(drift.X), Y: float32(drift.Y)}
	rot := components.Rotation{Heading: heading}
	flags := components.DynamicFlags()
	hitbox := shapes.Hitbox{Shape: shapes.Circle{Radius: radius}}
	health := components.Health{Value: maxHealth, Max: maxHealth}
	kind := components.KindActor

	entity := g.actorMapper.NewEntity(&pos, &vel, &rot, &flags, &hitbox, &health, &kind)
	g.numActors++
	return entity
}

// spawnPlayer creates the designated player. It moves and collides but takes
// no damage and runs no wander behaviour.
func (g *Game) spawnPlayer(x, y, radius float32) ecs.Entity {
	maxHealth := float32(g.cfg.Population.MaxHealth)

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	rot := components.Rotation{}
	flags := components.Flags{Dynamic: true}
	hitbox := shapes.Hitbox{Shape: shapes.Circle{Radius: radius}}
	health := components.Health{Value: maxHealth, Max: maxHealth}
	kind := components.KindPlayer

	entity := g.actorMapper.NewEntity(&pos, &vel, &rot, &flags, &hitbox, &health, &kind)
	g.player = entity
	g.hasPlayer = true
	g.collision.SetPlayer(entity)
	return entity
}

// cleanupDead removes entities destroyed this tick. They were excluded from the
// grid when destroyed, so stale grid entries are never read.
func (g *Game) cleanupDead() {
	for _, e := range g.dead {
		if !g.world.Alive(e) {
			continue
		}
		switch *g.kindMap.Get(e) {
		case components.KindActor:
			g.numActors--
		case components.KindObstacle:
			g.numObstacles--
		case components.KindPlayer:
			g.hasPlayer = false
		}
		g.world.RemoveEntity(e)
	}
	g.dead = g.dead[:0]

	// Refill once the population drops too low
	pop := &g.cfg.Population
	if pop.RespawnBelow > 0 && g.numActors < pop.RespawnBelow {
		for g.numActors < pop.Dynamic {
			g.spawnRandomActor()
		}
	}
}
