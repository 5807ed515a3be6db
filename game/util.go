package game

import "math/rand"

// randRange returns a uniform value in [lo, hi).
func randRange(rng *rand.Rand, lo, hi float64) float32 {
	if hi <= lo {
		return float32(lo)
	}
	return float32(lo + rng.Float64()*(hi-lo))
}
