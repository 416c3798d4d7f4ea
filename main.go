package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/driftfield/bridge"
	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/field"
	"github.com/pthm-cable/driftfield/scene"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	preset := flag.String("preset", "", "Config preset to apply over the defaults")
	addr := flag.String("addr", "", "Serve the websocket bridge on this address (empty = batch run)")
	frameStride := flag.Int("frame-stride", 1, "Send every Nth particle in bridge frames")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for moment snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	particles := flag.Int("particles", 0, "Particle count (0 = use config)")
	modeName := flag.String("mode", "playground", "Starting interaction mode")
	audio := flag.Float64("audio", 0, "Constant audio level for batch runs")
	maxTicks := flag.Int("max-ticks", 0, "Stop batch runs after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update loop (higher = faster batch runs)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *preset != "" {
		if err := cfg.ApplyPreset(*preset); err != nil {
			slog.Error("failed to apply preset", "error", err, "available", cfg.PresetNames())
			os.Exit(1)
		}
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	mode, err := scene.ParseMode(*modeName)
	if err != nil {
		slog.Error("failed to parse mode", "error", err)
		os.Exit(1)
	}

	// Use config stats window if not overridden by CLI
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	// Build field options
	opts := field.Options{
		Seed:           rngSeed,
		Particles:      *particles,
		Mode:           mode,
		LogStats:       *logStats,
		StatsWindowSec: statsWindowSec,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
	}

	if *addr != "" {
		// Serve mode: hosts connect over the websocket bridge and drive
		// the field live.
		srv, err := bridge.NewServer(opts, bridge.Options{FrameStride: *frameStride})
		if err != nil {
			slog.Error("failed to build bridge", "error", err)
			os.Exit(1)
		}

		if err := srv.ListenAndServe(*addr); err != nil {
			slog.Error("server stopped", "error", err)
			srv.Close()
			os.Exit(1)
		}
		return
	}

	// Batch mode: run the field without hosts, for soak and telemetry runs.
	f, err := field.New(opts)
	if err != nil {
		slog.Error("failed to build field", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if *audio > 0 {
		f.SetAudioLevel(float32(*audio))
	}

	slog.Info("starting batch run",
		"seed", rngSeed,
		"stats_window", statsWindowSec,
		"max_ticks", *maxTicks,
		"steps_per_update", *stepsPerUpdate,
	)

	for {
		for i := 0; i < *stepsPerUpdate; i++ {
			f.Step(field.DT)
		}

		if *maxTicks > 0 && int(f.Tick()) >= *maxTicks {
			slog.Info("max ticks reached", "tick", f.Tick())
			return
		}
	}
}
