// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolver turns agent write requests into self-contained agent
// records by embedding copies of every referenced skill, tool and RAG config.
package resolver

import (
	"context"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Getter looks up one resource by identifier.
type Getter[T any] interface {
	Get(ctx context.Context, id string) (T, error)
}

// Sources are the collections referenced by agent requests. Prompts may be nil,
// in which case role prompt references are kept without an existence check.
type Sources struct {
	Skills  Getter[core.Skill]
	Tools   Getter[core.Tool]
	RAG     Getter[core.RAGConfig]
	Prompts Getter[core.Prompt]
}

// Resolver denormalizes agent requests.
type Resolver struct {
	src Sources
}

// New creates a resolver reading from src.
func New(src Sources) *Resolver {
	return &Resolver{src: src}
}

// ResolveAgent validates req and returns the agent it describes with every
// skill, tool and RAG reference replaced by a copy of the referenced record,
// in the caller's order. The first missing reference aborts resolution with
// UNRESOLVED_REFERENCE; other lookup failures (e.g. STORAGE_UNAVAILABLE) are
// returned unchanged. Nothing is written here, so a failed resolution never
// leaves a partial agent behind.
//
// Updates call ResolveAgent again with the new request; previously embedded
// copies are discarded, never merged.
func (r *Resolver) ResolveAgent(ctx context.Context, req core.AgentRequest) (core.Agent, error) {
	if err := req.Validate(); err != nil {
		return core.Agent{}, err
	}
	agent := req.Agent()

	var err error
	if agent.Skills, err = resolveAll(ctx, r.src.Skills, core.KindSkill, req.SkillIDs); err != nil {
		return core.Agent{}, err
	}
	if agent.Tools, err = resolveAll(ctx, r.src.Tools, core.KindTool, req.ToolIDs); err != nil {
		return core.Agent{}, err
	}
	rags, err := resolveAll(ctx, r.src.RAG, core.KindRAGConfig, req.RAGIDs)
	if err != nil {
		return core.Agent{}, err
	}
	for i := range rags {
		rags[i] = rags[i].WithDefaults()
	}
	agent.RAGConfigs = rags

	if err := r.checkPrompts(ctx, agent); err != nil {
		return core.Agent{}, err
	}
	return agent, nil
}

func (r *Resolver) checkPrompts(ctx context.Context, agent core.Agent) error {
	if r.src.Prompts == nil {
		return nil
	}
	for _, ref := range agent.PromptRefs() {
		if _, err := r.src.Prompts.Get(ctx, ref); err != nil {
			return unresolved(err, core.KindPrompt, ref)
		}
	}
	return nil
}

func resolveAll[T any](ctx context.Context, src Getter[T], kind core.Kind, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if src == nil {
		return nil, errors.Unresolved(kind.Singular(), ids[0])
	}
	for _, id := range ids {
		item, err := src.Get(ctx, id)
		if err != nil {
			return nil, unresolved(err, kind, id)
		}
		out = append(out, item)
	}
	return out, nil
}

func unresolved(err error, kind core.Kind, id string) error {
	if errors.IsCode(err, errors.CodeNotFound) {
		return errors.Unresolved(kind.Singular(), id)
	}
	return err
}
