package components

// Flags describes how an entity can be interacted with.
// Only dynamic entities initiate collision checks; any entity can be a target.
type Flags struct {
	Dynamic           bool // can move, rotate
	Damagable         bool // can take damage
	BehaviourAttached bool // runs behavior logic each tick
}

// StaticFlags returns flags for an immovable obstacle.
func StaticFlags() Flags {
	return Flags{}
}

// DynamicFlags returns flags for a movable, damagable actor.
func DynamicFlags() Flags {
	return Flags{Dynamic: true, Damagable: true, BehaviourAttached: true}
}

// Health tracks damage taken by damagable entities.
type Health struct {
	Value float32
	Max   float32
}

// Alive reports whether the entity still has health left.
func (h *Health) Alive() bool {
	return h.Value > 0
}

// Kind tags the role an entity plays in the simulation.
type Kind uint8

const (
	KindObstacle Kind = iota
	KindActor
	KindPlayer
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindObstacle:
		return "obstacle"
	case KindActor:
		return "actor"
	case KindPlayer:
		return "player"
	}
	return "unknown"
}
