package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated collision statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Population at window end
	Actors    int `csv:"actors"`
	Obstacles int `csv:"obstacles"`

	// Collision work during window
	Rebuilds           int     `csv:"rebuilds"`
	Queries            int     `csv:"queries"`
	Candidates         int     `csv:"candidates"`
	CandidatesPerQuery float64 `csv:"candidates_per_query"`
	Displacements      int     `csv:"displacements"`
	Probes             int     `csv:"probes"`
	ProbeHits          int     `csv:"probe_hits"`
	Exclusions         int     `csv:"exclusions"`
	Destroyed          int     `csv:"destroyed"`

	// Grid occupancy at window end
	Indexed int `csv:"indexed"`
	Occupancy

	// Overlaps left after resolution, -1 when not audited
	ResidualOverlaps int `csv:"residual_overlaps"`
}

// Occupancy summarises how entities are spread over populated grid cells.
type Occupancy struct {
	Cells int     `csv:"cells"`
	Mean  float64 `csv:"occupancy_mean"`
	Std   float64 `csv:"occupancy_std"`
	P50   float64 `csv:"occupancy_p50"`
	P90   float64 `csv:"occupancy_p90"`
	Max   float64 `csv:"occupancy_max"`
}

// ComputeOccupancy calculates bucket-size statistics from per-cell counts.
func ComputeOccupancy(sizes []float64) Occupancy {
	n := len(sizes)
	if n == 0 {
		return Occupancy{}
	}

	sorted := slices.Clone(sizes)
	slices.Sort(sorted)

	occ := Occupancy{
		Cells: n,
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:   floats.Max(sorted),
	}
	if n == 1 {
		occ.Mean = sorted[0]
		return occ
	}
	occ.Mean, occ.Std = stat.MeanStdDev(sorted, nil)
	return occ
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("actors", s.Actors),
		slog.Int("obstacles", s.Obstacles),
		slog.Int("rebuilds", s.Rebuilds),
		slog.Int("queries", s.Queries),
		slog.Float64("candidates_per_query", s.CandidatesPerQuery),
		slog.Int("displacements", s.Displacements),
		slog.Int("probes", s.Probes),
		slog.Int("probe_hits", s.ProbeHits),
		slog.Int("exclusions", s.Exclusions),
		slog.Int("destroyed", s.Destroyed),
		slog.Int("indexed", s.Indexed),
		slog.Int("cells", s.Cells),
		slog.Float64("occupancy_mean", s.Mean),
		slog.Float64("occupancy_max", s.Max),
		slog.Int("residual_overlaps", s.ResidualOverlaps),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
