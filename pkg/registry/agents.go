// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"log/slog"
	"strings"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
	"github.com/conneskills/cs-agent-registry-api/pkg/resolver"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

// AgentFilter narrows agent listings. Empty fields match everything.
type AgentFilter struct {
	Tag           string
	AgentType     string
	ExecutionType string
}

func (f AgentFilter) filters() []store.Filter[core.Agent] {
	var out []store.Filter[core.Agent]
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		out = append(out, func(a core.Agent) bool { return core.HasTag(a.Tags, tag) })
	}
	if t := strings.TrimSpace(f.AgentType); t != "" {
		out = append(out, func(a core.Agent) bool { return strings.EqualFold(a.AgentType, t) })
	}
	if t := strings.TrimSpace(f.ExecutionType); t != "" {
		out = append(out, func(a core.Agent) bool { return strings.EqualFold(a.RuntimeConfig.ExecutionType, t) })
	}
	return out
}

// Agents stores resolved agent records. Writes go through the resolver, so a
// stored agent never carries skill, tool or RAG reference identifiers.
type Agents struct {
	coll     *store.Collection[core.Agent, *core.Agent]
	resolver *resolver.Resolver
	obs      *observer
}

// Create resolves req and stores the resulting agent. Nothing is stored when
// any reference fails to resolve.
func (a *Agents) Create(ctx context.Context, req core.AgentRequest) (core.Agent, error) {
	var out core.Agent
	err := a.obs.do(ctx, core.KindAgent, "create", req.ID, func(ctx context.Context) (string, error) {
		agent, err := a.resolve(ctx, req)
		if err != nil {
			return "", err
		}
		out, err = a.coll.Create(ctx, agent)
		return out.ID, err
	})
	return out, err
}

// Update re-resolves req from scratch and replaces the agent stored under id.
// Previously embedded copies are discarded.
func (a *Agents) Update(ctx context.Context, id string, req core.AgentRequest) (core.Agent, error) {
	var out core.Agent
	err := a.obs.do(ctx, core.KindAgent, "update", id, func(ctx context.Context) (string, error) {
		if _, err := a.coll.Get(ctx, id); err != nil {
			return "", err
		}
		agent, err := a.resolve(ctx, req)
		if err != nil {
			return "", err
		}
		out, err = a.coll.Update(ctx, id, agent)
		return "", err
	})
	return out, err
}

// SetURL records the invocation URL of a deployed agent. Every other field,
// embedded copies included, is kept.
func (a *Agents) SetURL(ctx context.Context, id, url string) (core.Agent, error) {
	var out core.Agent
	err := a.obs.do(ctx, core.KindAgent, "set_url", id, func(ctx context.Context) (string, error) {
		url = strings.TrimSpace(url)
		if url == "" {
			return "", errors.Invalid("url", "is required")
		}
		current, err := a.coll.Get(ctx, id)
		if err != nil {
			return "", err
		}
		current.URL = url
		out, err = a.coll.Update(ctx, id, current)
		return "", err
	})
	return out, err
}

// Get returns the agent stored under id.
func (a *Agents) Get(ctx context.Context, id string) (core.Agent, error) {
	var out core.Agent
	err := a.obs.do(ctx, core.KindAgent, "get", id, func(ctx context.Context) (string, error) {
		var err error
		out, err = a.coll.Get(ctx, id)
		return "", err
	})
	return out, err
}

// List returns agents in creation order.
func (a *Agents) List(ctx context.Context, filter AgentFilter) ([]core.Agent, error) {
	var out []core.Agent
	err := a.obs.do(ctx, core.KindAgent, "list", "", func(ctx context.Context) (string, error) {
		var err error
		out, err = a.coll.List(ctx, filter.filters()...)
		return "", err
	})
	return out, err
}

// Delete removes the agent stored under id.
func (a *Agents) Delete(ctx context.Context, id string) error {
	return a.obs.do(ctx, core.KindAgent, "delete", id, func(ctx context.Context) (string, error) {
		return "", a.coll.Delete(ctx, id)
	})
}

func (a *Agents) resolve(ctx context.Context, req core.AgentRequest) (core.Agent, error) {
	ctx, span := telemetry.StartSpan(ctx, "registry.agent.resolve",
		telemetry.ResolveAttributes(len(req.SkillIDs), len(req.ToolIDs), len(req.RAGIDs))...)
	agent, err := a.resolver.ResolveAgent(ctx, req)
	telemetry.EndSpan(span, err)
	if err != nil && errors.IsCode(err, errors.CodeUnresolvedReference) {
		re := errors.AsRegistryError(err)
		a.obs.logger.InfoContext(ctx, "registry.agent.unresolved",
			slog.String("agent", req.Name),
			slog.Any("kind", re.Context["kind"]),
			slog.Any("ref", re.Context["id"]),
		)
	}
	return agent, err
}
