// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"testing"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
)

type fixture struct {
	skills  *store.Collection[core.Skill, *core.Skill]
	tools   *store.Collection[core.Tool, *core.Tool]
	rag     *store.Collection[core.RAGConfig, *core.RAGConfig]
	prompts *store.Collection[core.Prompt, *core.Prompt]
	r       *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := store.NewMemoryBackend()
	f := &fixture{
		skills:  store.NewCollection[core.Skill](backend, core.KindSkill),
		tools:   store.NewCollection[core.Tool](backend, core.KindTool),
		rag:     store.NewCollection[core.RAGConfig](backend, core.KindRAGConfig),
		prompts: store.NewCollection[core.Prompt](backend, core.KindPrompt),
	}
	f.r = New(Sources{Skills: f.skills, Tools: f.tools, RAG: f.rag, Prompts: f.prompts})

	ctx := context.Background()
	for _, s := range []core.Skill{
		{Metadata: core.Metadata{ID: "s1"}, Name: "Translation", Description: "x"},
		{Metadata: core.Metadata{ID: "s2"}, Name: "Summarization"},
	} {
		if _, err := f.skills.Create(ctx, s); err != nil {
			t.Fatalf("create skill: %v", err)
		}
	}
	if _, err := f.tools.Create(ctx, core.Tool{Metadata: core.Metadata{ID: "t1"}, Name: "search"}); err != nil {
		t.Fatalf("create tool: %v", err)
	}
	if _, err := f.rag.Create(ctx, core.RAGConfig{Metadata: core.Metadata{ID: "r1"}, Name: "docs", RAGType: core.RAGDocument}); err != nil {
		t.Fatalf("create rag: %v", err)
	}
	if _, err := f.prompts.Create(ctx, core.Prompt{Metadata: core.Metadata{ID: "p1"}, Name: "writer", Template: "Write {{topic}}"}); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	return f
}

func TestResolveAgentEmbedsInCallerOrder(t *testing.T) {
	f := newFixture(t)

	agent, err := f.r.ResolveAgent(context.Background(), core.AgentRequest{
		Name:     "Polyglot",
		SkillIDs: []string{"s2", "s1"},
		ToolIDs:  []string{"t1"},
		RAGIDs:   []string{"r1"},
	})
	if err != nil {
		t.Fatalf("ResolveAgent failed: %v", err)
	}

	if len(agent.Skills) != 2 || agent.Skills[0].ID != "s2" || agent.Skills[1].ID != "s1" {
		t.Fatalf("expected skills [s2 s1], got %+v", agent.Skills)
	}
	if agent.Skills[1].Name != "Translation" || agent.Skills[1].Description != "x" {
		t.Errorf("expected full skill copy, got %+v", agent.Skills[1])
	}
	if len(agent.Tools) != 1 || agent.Tools[0].Name != "search" {
		t.Errorf("unexpected tools %+v", agent.Tools)
	}
	if len(agent.RAGConfigs) != 1 || agent.RAGConfigs[0].TopK != core.DefaultTopK {
		t.Errorf("expected rag copy with default top_k, got %+v", agent.RAGConfigs)
	}
	if agent.RuntimeConfig.ExecutionType != core.ExecutionSingle {
		t.Errorf("expected default execution type, got %q", agent.RuntimeConfig.ExecutionType)
	}
}

func TestResolveAgentEmptyReferences(t *testing.T) {
	f := newFixture(t)

	agent, err := f.r.ResolveAgent(context.Background(), core.AgentRequest{Name: "Plain"})
	if err != nil {
		t.Fatalf("ResolveAgent failed: %v", err)
	}
	if agent.Skills == nil || agent.Tools == nil || agent.RAGConfigs == nil {
		t.Errorf("embedded sequences must be empty, not nil: %+v", agent)
	}
}

func TestResolveAgentUnresolvedReference(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		req    core.AgentRequest
		wantID string
		kind   string
	}{
		{
			name:   "missing skill after existing one",
			req:    core.AgentRequest{Name: "a", SkillIDs: []string{"s1", "missing-skill"}},
			wantID: "missing-skill",
			kind:   "skill",
		},
		{
			name:   "missing tool",
			req:    core.AgentRequest{Name: "a", ToolIDs: []string{"nope"}},
			wantID: "nope",
			kind:   "tool",
		},
		{
			name:   "missing rag",
			req:    core.AgentRequest{Name: "a", RAGIDs: []string{"r1", "r9"}},
			wantID: "r9",
			kind:   "rag_config",
		},
		{
			name: "missing prompt ref",
			req: core.AgentRequest{Name: "a", Roles: []core.Role{
				{Name: "writer", PromptRef: "p-missing"},
			}},
			wantID: "p-missing",
			kind:   "prompt",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.r.ResolveAgent(context.Background(), tc.req)
			if !errors.IsCode(err, errors.CodeUnresolvedReference) {
				t.Fatalf("expected UNRESOLVED_REFERENCE, got %v", err)
			}
			re := errors.AsRegistryError(err)
			if re.Context["id"] != tc.wantID {
				t.Errorf("expected offending id %q, got %v", tc.wantID, re.Context["id"])
			}
			if re.Context["kind"] != tc.kind {
				t.Errorf("expected kind %q, got %v", tc.kind, re.Context["kind"])
			}
		})
	}
}

func TestResolveAgentRoles(t *testing.T) {
	f := newFixture(t)

	agent, err := f.r.ResolveAgent(context.Background(), core.AgentRequest{
		Name:          "Pipeline",
		ExecutionType: core.ExecutionSequential,
		Roles: []core.Role{
			{Name: "researcher", PromptInline: "Research the topic"},
			{Name: "writer", PromptRef: "p1"},
			{Name: "reviewer"},
		},
	})
	if err != nil {
		t.Fatalf("ResolveAgent failed: %v", err)
	}
	roles := agent.RuntimeConfig.Roles
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(roles))
	}
	if roles[1].PromptRef != "p1" {
		t.Errorf("prompt ref must be kept, got %+v", roles[1])
	}
	if roles[2].PromptInline != "" || roles[2].PromptRef != "" {
		t.Errorf("role without prompt must be preserved as-is, got %+v", roles[2])
	}

	_, err = f.r.ResolveAgent(context.Background(), core.AgentRequest{
		Name:  "Bad",
		Roles: []core.Role{{Name: "both", PromptInline: "x", PromptRef: "p1"}},
	})
	if !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for both prompt forms, got %v", err)
	}
}

func TestResolveAgentValidation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.r.ResolveAgent(context.Background(), core.AgentRequest{}); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for missing name, got %v", err)
	}
	if _, err := f.r.ResolveAgent(context.Background(), core.AgentRequest{Name: "a", SkillIDs: []string{" "}}); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for blank skill id, got %v", err)
	}
}

func TestResolveAgentSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent, err := f.r.ResolveAgent(ctx, core.AgentRequest{Name: "a", SkillIDs: []string{"s1"}})
	if err != nil {
		t.Fatalf("ResolveAgent failed: %v", err)
	}
	if _, err := f.skills.Update(ctx, "s1", core.Skill{Name: "Translation", Description: "y"}); err != nil {
		t.Fatalf("update skill: %v", err)
	}
	if agent.Skills[0].Description != "x" {
		t.Errorf("embedded copy changed after source update: %q", agent.Skills[0].Description)
	}

	again, err := f.r.ResolveAgent(ctx, core.AgentRequest{Name: "a", SkillIDs: []string{"s1"}})
	if err != nil {
		t.Fatalf("re-resolve failed: %v", err)
	}
	if again.Skills[0].Description != "y" || again.Skills[0].Version != 2 {
		t.Errorf("re-resolution must pick up the current skill, got %+v", again.Skills[0])
	}
}

type failingGetter[T any] struct{ err error }

func (g failingGetter[T]) Get(context.Context, string) (T, error) {
	var zero T
	return zero, g.err
}

func TestResolveAgentPropagatesStorageErrors(t *testing.T) {
	unavailable := errors.Unavailable("get", nil)
	r := New(Sources{Skills: failingGetter[core.Skill]{err: unavailable}})

	_, err := r.ResolveAgent(context.Background(), core.AgentRequest{Name: "a", SkillIDs: []string{"s1"}})
	if !errors.IsCode(err, errors.CodeStorageUnavailable) {
		t.Fatalf("expected STORAGE_UNAVAILABLE to propagate, got %v", err)
	}
}
