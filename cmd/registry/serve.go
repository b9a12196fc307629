// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneskills/cs-agent-registry-api/pkg/config"
	"github.com/conneskills/cs-agent-registry-api/pkg/promptsync"
	"github.com/conneskills/cs-agent-registry-api/pkg/registry"
	"github.com/conneskills/cs-agent-registry-api/pkg/server"
	"github.com/conneskills/cs-agent-registry-api/pkg/skills"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

func newServeCmd(flags *globalFlags, info buildInfo) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, flags, cfg, info)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, flags *globalFlags, cfg *config.Config, info buildInfo) error {
	logger := newLogger(os.Stderr, cfg)
	overrides, err := config.ParseOverrides(flags.overrides)
	if err != nil {
		return err
	}

	shutdownTelemetry := func(context.Context) error { return nil }
	if cfg.Telemetry.Enabled {
		backend, _ := config.BackendName(cfg.Storage.Backend)
		shutdown, err := telemetry.InitWithConfig(cfg.Telemetry.ServiceName, info.version, telemetry.Config{
			Exporter:       cfg.Telemetry.Exporter,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
			OTLPHeaders:    cfg.Telemetry.OTLPHeaders,
			StorageBackend: backend,
			Environment:    flags.profile,
			Attributes:     cfg.Telemetry.ResourceAttributes,
		})
		if err != nil {
			return err
		}
		shutdownTelemetry = shutdown
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry.shutdown.failed", slog.Any("error", err))
		}
	}()

	metrics, err := telemetry.NewRegistryMetrics(ctx)
	if err != nil {
		logger.Warn("telemetry.metrics.disabled", slog.Any("error", err))
	}

	svc, closeService, err := openService(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	if dir := cfg.Seed.SkillsDir; dir != "" {
		specs, err := skills.LoadDir(dir)
		if err != nil {
			logger.Warn("seed.skills.failed", slog.String("dir", dir), slog.Any("error", err))
		} else {
			report, err := skills.Import(ctx, svc.Skills, specs)
			if err != nil {
				logger.Warn("seed.skills.failed", slog.String("dir", dir), slog.Any("error", err))
			}
			logger.Info("seed.skills", slog.Int("created", len(report.Created)), slog.Int("skipped", len(report.Skipped)))
		}
	}

	if flags.configPath != "" {
		watcher, _, err := config.WatchConfig(ctx, flags.configPath,
			config.WithWatchProfile(flags.profile),
			config.WithWatchOverrides(overrides),
			config.WithWatchLogger(logger),
		)
		if err != nil {
			logger.Warn("config.watch.disabled", slog.Any("error", err))
		} else {
			watcher.OnChange(func(c config.Change) {
				applyConfigChange(logger, svc, metrics, c)
			})
			defer watcher.Stop()
		}
	}

	srv := server.NewServer(logger, cfg.Server.Addr, svc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info("registry.started",
		slog.String("addr", srv.Addr()),
		slog.String("storage", svc.StorageType()),
		slog.Bool("promptsync", svc.PromptSync().Enabled()),
		slog.String("version", info.version),
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	logger.Info("registry.stopping")
	if err := srv.Stop(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	if err := closeService(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	return serveErr
}

// applyConfigChange applies the parts of a reloaded configuration that can
// change while serving and reports the rest.
func applyConfigChange(logger *slog.Logger, svc *registry.Service, metrics *telemetry.RegistryMetrics, c config.Change) {
	if c.LogChanged() {
		telemetry.SetLogLevel(c.Current.Log.Level)
		logger.Info("config.log_level", slog.String("level", c.Current.Log.Level))
	}
	if c.PromptSyncChanged() {
		svc.PromptSync().Replace(promptsync.NewFromConfig(c.Current.PromptSync, promptsync.WithMetrics(metrics)))
		logger.Info("config.promptsync", slog.Bool("enabled", svc.PromptSync().Enabled()))
	}
	if sections := c.RestartRequired(); len(sections) > 0 {
		logger.Warn("config.restart_required", slog.Any("sections", sections))
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if d := time.Duration(cfg.Server.ShutdownTimeout) * time.Second; d > 0 {
		return d
	}
	return 10 * time.Second
}
