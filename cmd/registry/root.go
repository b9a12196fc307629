// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/conneskills/cs-agent-registry-api/pkg/config"
	"github.com/conneskills/cs-agent-registry-api/pkg/promptsync"
	"github.com/conneskills/cs-agent-registry-api/pkg/registry"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

type buildInfo struct {
	version string
	commit  string
	date    string
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	profile    string
	overrides  []string
}

// cliArgs renders the flags in the form config.LoadWithCLI understands.
func (g *globalFlags) cliArgs() []string {
	var args []string
	if g.configPath != "" {
		args = append(args, "--config", g.configPath)
	}
	if g.profile != "" {
		args = append(args, "--profile", g.profile)
	}
	for _, o := range g.overrides {
		args = append(args, "--set", o)
	}
	return args
}

func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.LoadWithCLI(g.cliArgs())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newRootCmd(info buildInfo) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "registry",
		Short:         "Agent configuration registry",
		Long:          "registry stores agents, prompts, skills, tools, RAG configs and architectures, and matches free-text queries to agents by capability.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.profile, "profile", "", "config profile layered over the base file (config.<profile>.yaml)")
	root.PersistentFlags().StringArrayVar(&flags.overrides, "set", nil, "override a config key, e.g. --set storage.backend=sqlite")

	root.AddCommand(
		newServeCmd(flags, info),
		newImportSkillsCmd(flags),
		newVersionCmd(info),
	)
	return root
}

// openService builds the registry service from configuration. The returned
// close function drains prompt pushes and closes the backend.
func openService(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.RegistryMetrics) (*registry.Service, func(context.Context) error, error) {
	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	svc := registry.New(backend, registry.Options{
		Logger:  logger,
		Metrics: metrics,
		Syncer:  promptsync.NewFromConfig(cfg.PromptSync, promptsync.WithMetrics(metrics)),
	})
	return svc, svc.Close, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return telemetry.ConfigureSlog(w, cfg.Log.Level, cfg.Log.Format)
}
