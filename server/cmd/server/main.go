package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qcsim/qcsim/pkg/dataset"
	"github.com/qcsim/qcsim/pkg/logging"
	"github.com/qcsim/qcsim/pkg/runlog"
	"github.com/qcsim/qcsim/server/internal/alerts"
	"github.com/qcsim/qcsim/server/internal/api"
	"github.com/qcsim/qcsim/server/internal/auth"
	"github.com/qcsim/qcsim/server/internal/config"
	"github.com/qcsim/qcsim/server/internal/evaluator"
	"github.com/qcsim/qcsim/server/internal/exposition"
	"github.com/qcsim/qcsim/server/internal/store"
	"github.com/qcsim/qcsim/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "server.yaml", "path to config file")
	flag.Parse()

	slog.SetDefault(logging.New(os.Stdout, "info"))
	slog.Info("qcsim-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Server.LogLevel))

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"dataset", cfg.Server.Dataset,
		"auth_mode", cfg.Server.Auth.Mode,
		"evaluation_ttl", cfg.Server.EvaluationTTL,
		"runlog_backend", cfg.Server.RunLog.Backend,
		"gates", len(cfg.Server.Alerts.Rules),
	)
	for _, r := range cfg.Server.Alerts.Rules {
		if !alerts.ValidCondition(r.Condition) {
			slog.Warn("quality gate condition will never fire", "rule", r.Name, "condition", r.Condition)
		}
	}

	ds, err := dataset.Load(cfg.Server.Dataset)
	if err != nil {
		slog.Error("failed to load dataset", "err", err)
		os.Exit(1)
	}
	slog.Info("dataset loaded", "parts", ds.Len())

	runs, err := runlog.Open(cfg.Server.RunLog)
	if err != nil {
		slog.Error("failed to open run log", "err", err)
		os.Exit(1)
	}
	defer runs.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Latest evaluation per team with background TTL eviction.
	st := store.New(cfg.Server.EvaluationTTL)
	go st.Run(ctx)

	// Quality gates run on every evaluation.
	gates := alerts.New(cfg.Server.Alerts)
	eval := evaluator.New(ds, cfg.Server.DefaultPolicy, st, gates)

	// WebSocket hub broadcasts live evaluations every BroadcastInterval.
	hub := ws.New(st, cfg.Server.ROI.InvestmentCost, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	apiHandler := api.New(api.Deps{
		Evaluator:      eval,
		Store:          st,
		Alerts:         gates,
		Runs:           runs,
		InvestmentCost: cfg.Server.ROI.InvestmentCost,
	})

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		apiHandler,
	))
	httpMux.Handle("/metrics", exposition.New(st, ds.Len(), gates, cfg.Server.ROI.InvestmentCost))
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("qcsim-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
