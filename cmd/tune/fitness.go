package main

import (
	"sync"

	"github.com/pthm-cable/collide/config"
	"github.com/pthm-cable/collide/game"
	"github.com/pthm-cable/collide/telemetry"
)

// FitnessEvaluator runs headless simulations and scores grid parameters.
type FitnessEvaluator struct {
	params         *ParamVector
	maxTicks       int32
	seeds          []int64
	baseConfig     *config.Config
	statsWindow    int
	overlapPenalty float64

	mu   sync.Mutex
	last Score // score from most recent Evaluate call
}

// Score breaks a fitness value into its parts.
type Score struct {
	WorkPerQuery float64 // candidates examined plus grid insertions, per broad-phase query
	Residual     float64 // mean overlaps left after resolution, per stats window
	Fitness      float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, overlapPenalty float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		maxTicks:       maxTicks,
		seeds:          seeds,
		baseConfig:     baseCfg,
		statsWindow:    100,
		overlapPenalty: overlapPenalty,
	}
}

// LastScore returns the score from the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() Score {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel
	results := make([]Score, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.computeScore(fe.runSimulation(cfg, s))
		}(i, seed)
	}
	wg.Wait()

	var avg Score
	for _, r := range results {
		avg.WorkPerQuery += r.WorkPerQuery
		avg.Residual += r.Residual
		avg.Fitness += r.Fitness
	}
	n := float64(len(results))
	avg.WorkPerQuery /= n
	avg.Residual /= n
	avg.Fitness /= n

	fe.mu.Lock()
	fe.last = avg
	fe.mu.Unlock()

	return avg.Fitness
}

// runSimulation executes a single headless run and returns its stats windows.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) []telemetry.WindowStats {
	var windows []telemetry.WindowStats

	g := game.NewGameWithOptions(game.Options{
		Seed:         seed,
		Config:       cfg,
		StatsWindow:  fe.statsWindow,
		AuditOnFlush: true,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
	}
	return windows
}

// copyConfig returns a copy of the base config that a run may modify.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeScore scores one run. Each rebuild costs one insertion per indexed
// entity; each query costs one check per candidate.
func (fe *FitnessEvaluator) computeScore(windows []telemetry.WindowStats) Score {
	var work, queries, residual float64
	audited := 0
	for _, w := range windows {
		work += float64(w.Candidates) + float64(w.Rebuilds*w.Indexed)
		queries += float64(w.Queries)
		if w.ResidualOverlaps >= 0 {
			residual += float64(w.ResidualOverlaps)
			audited++
		}
	}

	var s Score
	if queries > 0 {
		s.WorkPerQuery = work / queries
	}
	if audited > 0 {
		s.Residual = residual / float64(audited)
	}
	s.Fitness = s.WorkPerQuery + fe.overlapPenalty*s.Residual
	return s
}
