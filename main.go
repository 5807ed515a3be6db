package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/collide/config"
	"github.com/pthm-cable/collide/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for grid snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	audit := flag.Bool("audit", false, "Count residual overlaps at every stats flush")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g := game.NewGameWithOptions(game.Options{
		Seed:         rngSeed,
		LogStats:     *logStats,
		StatsWindow:  *statsWindow,
		SnapshotDir:  *snapshotDir,
		OutputDir:    *outputDir,
		AuditOnFlush: *audit,
	})
	defer g.Unload()

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"actors", g.ActorCount(),
		"obstacles", g.ObstacleCount(),
	)

	start := time.Now()
	for {
		g.UpdateHeadless()

		if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
			slog.Info("max ticks reached",
				"tick", g.Tick(),
				"elapsed", time.Since(start).String(),
				"residual_overlaps", g.Audit(),
			)
			return
		}
	}
}
