package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/archsift/internal/app"
	"github.com/efebarandurmaz/archsift/internal/config"
	"github.com/efebarandurmaz/archsift/internal/observability"
	"github.com/efebarandurmaz/archsift/internal/server"
	temporalmod "github.com/efebarandurmaz/archsift/internal/temporal"
)

const version = "0.1.0"

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := server.NewShutdown(cfg.Temporal.ShutdownTimeout, logger)

	tp, err := observability.InitTracing(ctx, cfg.TracingConfig("archsift-worker", version))
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	shutdown.Register("tracing", server.PriorityTracing, tp.Shutdown)

	stages, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("stages: %v", err)
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, &temporalmod.Activities{
		Analyzer:  stages.Analyzer,
		Evaluator: stages.Evaluator,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	shutdown.Register("temporal-worker", server.PriorityWorker, func(context.Context) error {
		w.Stop()
		return nil
	})

	if cfg.Temporal.HealthAddr != "" {
		health := server.NewHealth(version)
		health.Register("temporal", server.TemporalCheck(c))
		health.Register("reasoning-service", server.ReasoningServiceCheck(stages.Provider, cfg.LLM.Model))
		addr, err := server.Serve(cfg.Temporal.HealthAddr, health, shutdown)
		if err != nil {
			log.Fatalf("health: %v", err)
		}
		health.SetReady(true)
		logger.Info("health endpoints listening", "addr", addr.String())
	}

	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)

	if err := shutdown.Wait(ctx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
