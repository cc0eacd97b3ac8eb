// Command crownworks runs the headless agent-economy simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/crownworks/internal/api"
	"github.com/talgya/crownworks/internal/config"
	"github.com/talgya/crownworks/internal/engine"
	"github.com/talgya/crownworks/internal/persistence"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to yaml config (defaults used when empty)")
		tickMillis = flag.Int("tick-ms", 100, "milliseconds per fast tick")
		noDB       = flag.Bool("no-db", false, "disable persistence")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if key := os.Getenv("CROWNWORKS_ADMIN_KEY"); key != "" {
		cfg.AdminKey = key
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if !*noDB {
		os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)
	}

	// ── World ─────────────────────────────────────────────────────────
	sim := engine.Bootstrap(cfg)

	if db != nil {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(cfg.SlowEvery, cfg.VerySlowEvery, time.Duration(*tickMillis)*time.Millisecond)
	eng.OnFast = sim.TickFast
	eng.OnSlow = sim.TickSlow
	eng.OnVerySlow = func(tick uint64) {
		sim.TickVerySlow(tick)
		if db != nil && cfg.SnapshotEvery > 0 && tick%cfg.SnapshotEvery == 0 {
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("auto-save failed", "error", err)
			}
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("CROWNWORKS_ADMIN_KEY not set — admin POST endpoints disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nCrownworks is alive: %d souls, %d resource nodes, seed %d.\n",
		sim.StatsSnapshot().Population, len(sim.Nodes.Snapshot()), cfg.Seed)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	if db != nil {
		slog.Info("final save...")
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("final save failed", "error", err)
		}
	}
	fmt.Println("Simulation stopped.")
}
