package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/codec"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/config"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/metrics"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/session"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

// #region root
var rootCmd = &cobra.Command{
	Use:           "roleplay",
	Short:         "Sales roleplay simulation engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig   string
	flagDB       string
	flagProvider string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite path (overrides config and ROLEPLAY_DB)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "generation provider: grpc, anthropic, gemini, echo")

	rootCmd.AddCommand(serveCmd, chatCmd, sampleCmd, replayCmd, inspectCmd)
}

// loadConfig applies command-line overrides on top of config.Load.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagProvider != "" {
		cfg.Codec.Provider = flagProvider
	}
	return cfg, cfg.Validate()
}

// #endregion root

// #region wiring

// app is the fully wired engine shared by serve and chat.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    *state.Store
	svc      *session.Service
	registry *prometheus.Registry
	closeGen func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gen, closeGen, err := codec.New(ctx, cfg.Codec)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("generation provider: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	orch := orchestrator.NewOrchestrator(cfg.Orchestrator, orchestrator.Deps{
		Generator: gen,
		Gate:      cfg.Gate,
		Producer:  cfg.Signals,
		Logger:    logger,
		Metrics:   m,
	})
	svc, err := session.NewService(store, orch, session.Options{
		CacheSize: cfg.CacheSize,
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		closeGen()
		store.Close()
		return nil, err
	}

	logger.Info("engine ready", "db", cfg.DBPath, "provider", orch.Provider())
	return &app{cfg: cfg, log: logger, store: store, svc: svc, registry: reg, closeGen: closeGen}, nil
}

func (a *app) Close() {
	if err := a.closeGen(); err != nil {
		a.log.Warn("close provider", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
}

// #endregion wiring
