// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry composes the resource store, the resolver, the discovery
// matcher and prompt sync into the operations exposed by the boundary layer.
//
// A Service is constructed once at startup around a single store.Backend and
// shared by every request handler.
package registry

import (
	"context"
	"log/slog"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/discovery"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
	"github.com/conneskills/cs-agent-registry-api/pkg/promptsync"
	"github.com/conneskills/cs-agent-registry-api/pkg/resolver"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

// Options carries the optional collaborators of a Service.
type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.RegistryMetrics
	Syncer  promptsync.Syncer
	Matcher *discovery.Matcher
}

// Service owns the registry collections.
type Service struct {
	Skills        *Resources[core.Skill, *core.Skill]
	Tools         *Resources[core.Tool, *core.Tool]
	RAG           *Resources[core.RAGConfig, *core.RAGConfig]
	Prompts       *Resources[core.Prompt, *core.Prompt]
	Architectures *Resources[core.Architecture, *core.Architecture]
	Agents        *Agents

	backend store.Backend
	matcher *discovery.Matcher
	sync    *promptsync.Dispatcher
	health  *core.DefaultHealthCheckProvider
	obs     *observer
}

// New builds a service on backend.
func New(backend store.Backend, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = discovery.NewMatcher()
	}
	obs := &observer{logger: logger, metrics: opts.Metrics, backend: backend.Type()}

	s := &Service{
		backend: backend,
		matcher: matcher,
		sync:    promptsync.NewDispatcher(opts.Syncer, logger, opts.Metrics),
		health:  core.NewDefaultHealthCheckProvider(),
		obs:     obs,
	}

	s.Skills = newResources(backend, core.KindSkill, obs, func(v core.Skill) []string { return v.Tags })
	s.Tools = newResources(backend, core.KindTool, obs, func(v core.Tool) []string { return v.Tags })
	s.RAG = newResources(backend, core.KindRAGConfig, obs, func(v core.RAGConfig) []string { return v.Tags })
	s.RAG.prepare = core.RAGConfig.WithDefaults
	s.Prompts = newResources(backend, core.KindPrompt, obs, func(v core.Prompt) []string { return v.Tags })
	s.Prompts.afterWrite = func(ctx context.Context, p core.Prompt) {
		s.sync.Dispatch(ctx, p)
	}
	s.Architectures = newResources(backend, core.KindArchitecture, obs, func(v core.Architecture) []string { return v.Tags })

	agents := store.NewCollection[core.Agent](backend, core.KindAgent)
	s.Agents = &Agents{
		coll: agents,
		resolver: resolver.New(resolver.Sources{
			Skills:  s.Skills.coll,
			Tools:   s.Tools.coll,
			RAG:     s.RAG.coll,
			Prompts: s.Prompts.coll,
		}),
		obs: obs,
	}

	s.health.RegisterChecker("storage", backend)
	s.health.RegisterChecker("promptsync", s.sync)
	return s
}

// StorageType returns the configured backend type.
func (s *Service) StorageType() string { return s.backend.Type() }

// PromptSync exposes the dispatcher, mainly so callers can wait on pushes.
func (s *Service) PromptSync() *promptsync.Dispatcher { return s.sync }

// Discover ranks agents against query and returns at most limit matches
// (limit <= 0 means all). No match is an empty slice, not an error.
func (s *Service) Discover(ctx context.Context, query string, limit int) ([]discovery.Match, error) {
	ctx, span := telemetry.StartSpan(ctx, "registry.discover")
	agents, err := s.Agents.coll.List(ctx)
	if err != nil {
		s.obs.metrics.RecordOperation(ctx, core.KindAgent.Singular(), "discover", err)
		telemetry.EndSpan(span, err)
		return nil, err
	}

	matches := s.matcher.Rank(query, agents, limit)
	best, score := "", 0
	if len(matches) > 0 {
		best, score = matches[0].Agent.ID, matches[0].Score
	}
	span.SetAttributes(telemetry.DiscoveryAttributes(query, len(discovery.Tokenize(query)), best, score)...)
	s.obs.metrics.RecordDiscovery(ctx, score)
	s.obs.logger.DebugContext(ctx, "registry.discover",
		slog.String("query", query),
		slog.Int("candidates", len(agents)),
		slog.String("agent_id", best),
		slog.Int("score", score),
	)
	telemetry.EndSpan(span, nil)
	return matches, nil
}

// Health runs every registered checker.
func (s *Service) Health(ctx context.Context) ([]core.HealthResult, core.HealthStatus) {
	results, overall := s.health.CheckAll(ctx)
	for _, r := range results {
		s.obs.metrics.RecordHealthStatus(ctx, r.Component, healthValue(r.Status))
	}
	return results, overall
}

// CheckStorage runs the storage checker only.
func (s *Service) CheckStorage(ctx context.Context) core.HealthResult {
	result, err := s.health.Check(ctx, "storage")
	if err != nil {
		return core.HealthResult{Status: core.HealthUnhealthy, Component: "storage", Error: err}
	}
	return result
}

// Close drains pending prompt pushes and closes the backend.
func (s *Service) Close(ctx context.Context) error {
	if err := s.sync.Close(ctx); err != nil {
		s.obs.logger.WarnContext(ctx, "promptsync.drain.incomplete", slog.Any("error", err))
	}
	if err := s.backend.Close(); err != nil {
		return errors.Unavailable("close", err)
	}
	return nil
}

func healthValue(status core.HealthStatus) int64 {
	switch status {
	case core.HealthHealthy:
		return 2
	case core.HealthDegraded:
		return 1
	default:
		return 0
	}
}
