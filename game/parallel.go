package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/collide/shapes"
)

// parallelThreshold is the minimum entity count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// auditSnapshot captures read-only collider state for the pairwise audit.
type auditSnapshot struct {
	subject shapes.Subject
	dynamic bool
}

// countOverlaps counts overlapping pairs with at least one dynamic member.
// Rows are interleaved across workers so each gets a similar share of the
// triangular pair matrix.
func countOverlaps(snaps []auditSnapshot) int {
	n := len(snaps)
	if n < parallelThreshold {
		return countRows(snaps, 0, 1)
	}

	numWorkers := runtime.GOMAXPROCS(0)
	counts := make([]int, numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			counts[worker] = countRows(snaps, worker, numWorkers)
		}(w)
	}
	wg.Wait()

	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// countRows checks rows first, first+stride, ... against every later entry.
func countRows(snaps []auditSnapshot, first, stride int) int {
	overlaps := 0
	for i := first; i < len(snaps); i += stride {
		for j := i + 1; j < len(snaps); j++ {
			a, b := snaps[i], snaps[j]
			if !a.dynamic && !b.dynamic {
				continue
			}
			if !a.dynamic {
				a, b = b, a
			}
			if _, ok := a.subject.Shape.CheckCollision(shapes.Pair{Mover: a.subject, Target: b.subject}); ok {
				overlaps++
			}
		}
	}
	return overlaps
}
