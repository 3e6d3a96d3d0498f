package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qcsim/qcsim/pkg/dataset"
	"github.com/qcsim/qcsim/pkg/logging"
	"github.com/qcsim/qcsim/pkg/runlog"
	"github.com/qcsim/qcsim/sim/internal/config"
	"github.com/qcsim/qcsim/sim/internal/runner"
	"github.com/qcsim/qcsim/sim/internal/shipper"
)

const drainTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "sim.yaml", "path to config file")
	preset := flag.String("preset", "", "override the configured scenario preset")
	team := flag.String("team", "", "save the run to the run log under this team name")
	watch := flag.Bool("watch", false, "re-evaluate whenever the config file changes")
	parts := flag.Bool("parts", false, "include per-part rows in the report")
	lookup := flag.String("lookup", "", "print the ground-truth label of a part id and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Sim.LogLevel))

	if *lookup != "" {
		os.Exit(runLookup(cfg.Sim.Dataset, *lookup))
	}

	overrides := func(c *config.Config) {
		if *preset != "" {
			c.Sim.Preset = *preset
		}
		if *team != "" {
			c.Sim.Team = *team
		}
	}
	overrides(cfg)

	var store runlog.Store
	if cfg.Sim.Team != "" {
		store, err = runlog.Open(cfg.Sim.RunLog)
		if err != nil {
			slog.Error("failed to open run log", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		slog.Info("run log opened", "backend", cfg.Sim.RunLog.Backend, "team", cfg.Sim.Team)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := runner.New(os.Stdout, store)
	r.IncludeParts = *parts

	var ship *shipper.Shipper
	if cfg.Sim.Server.Endpoint != "" {
		ship = shipper.New(cfg.Sim.Server)
		r.Submitter = ship
		go ship.Run(ctx)
		slog.Info("shipping team runs", "endpoint", cfg.Sim.Server.Endpoint)
	}

	if _, err := r.Run(ctx, cfg); err != nil {
		slog.Error("evaluation failed", "err", err)
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch {
		drain(ctx, ship)
		return
	}

	slog.Info("watching config for changes", "config", *configPath)
	if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
		overrides(updated)
		if updated.Sim.Team != "" && store == nil {
			slog.Warn("team set on reload but no run log is open; run will not be saved")
		}
		if _, err := r.Run(ctx, updated); err != nil {
			slog.Error("evaluation failed", "err", err)
		}
	}); err != nil {
		slog.Error("config watcher stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("qcsim shutting down")
}

// drain gives the shipper a short grace period to deliver pending runs
// before a one-shot invocation exits.
func drain(ctx context.Context, ship *shipper.Shipper) {
	if ship == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := ship.Drain(ctx); err != nil {
		slog.Warn("exiting with undelivered runs", "pending", ship.Pending(), "err", err)
	}
}

func runLookup(path, id string) int {
	ds, err := dataset.Load(path)
	if err != nil {
		slog.Error("failed to load dataset", "err", err)
		return 1
	}
	label, ok := ds.Lookup(id)
	if !ok {
		fmt.Println("not found")
		return 2
	}
	fmt.Println(label)
	return 0
}
