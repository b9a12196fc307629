// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"testing"

	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		value   Validator
		wantErr bool
	}{
		{"skill ok", Skill{Name: "Translation"}, false},
		{"skill missing name", Skill{Description: "x"}, true},
		{"tool ok", Tool{Name: "web_search"}, false},
		{"tool blank name", Tool{Name: "   "}, true},
		{"rag ok", RAGConfig{Name: "docs", RAGType: RAGDocument}, false},
		{"rag missing type", RAGConfig{Name: "docs"}, true},
		{"rag unknown type", RAGConfig{Name: "docs", RAGType: "graph"}, true},
		{"rag negative top_k", RAGConfig{Name: "docs", RAGType: RAGVectorStore, TopK: -1}, true},
		{"prompt ok", Prompt{Name: "greeting", Template: "Hello {{name}}"}, false},
		{"prompt missing template", Prompt{Name: "greeting"}, true},
		{"architecture ok", Architecture{Name: "pipeline", Pattern: "sequential"}, false},
		{"architecture missing pattern", Architecture{Name: "pipeline"}, true},
		{"architecture member without agent", Architecture{Name: "p", Pattern: "parallel", Agents: []ArchitectureAgent{{Role: "worker"}}}, true},
		{"agent request ok", AgentRequest{Name: "Translator"}, false},
		{"agent request missing name", AgentRequest{}, true},
		{"agent request empty skill id", AgentRequest{Name: "a", SkillIDs: []string{"s1", ""}}, true},
		{"role with both prompts", AgentRequest{Name: "a", Roles: []Role{{Name: "r", PromptInline: "x", PromptRef: "p"}}}, true},
		{"role with neither prompt", AgentRequest{Name: "a", Roles: []Role{{Name: "r"}}}, false},
		{"role without name", AgentRequest{Name: "a", Roles: []Role{{PromptInline: "x"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.value.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected validation error")
				}
				if !errors.IsCode(err, errors.CodeInvalidInput) {
					t.Fatalf("expected INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAgentRequestBuildsRecord(t *testing.T) {
	req := AgentRequest{
		Name:     "Pipeline",
		Version:  "1.0.0",
		Roles:    []Role{{Name: "researcher", PromptInline: "Research"}, {Name: "writer", PromptRef: "p-writer"}},
		SkillIDs: []string{"s1"},
	}
	agent := req.Agent()

	if agent.RuntimeConfig.ExecutionType != ExecutionSingle {
		t.Fatalf("expected default execution type, got %q", agent.RuntimeConfig.ExecutionType)
	}
	if agent.AgentVersion != "1.0.0" {
		t.Fatalf("expected agent version to carry over, got %q", agent.AgentVersion)
	}
	if len(agent.Skills) != 0 {
		t.Fatalf("request ids must not leak into embedded skills")
	}
	req.Roles[0].Name = "mutated"
	if agent.RuntimeConfig.Roles[0].Name != "researcher" {
		t.Fatalf("roles must be copied")
	}
	if refs := agent.PromptRefs(); len(refs) != 1 || refs[0] != "p-writer" {
		t.Fatalf("unexpected prompt refs %v", refs)
	}
}

func TestHasTag(t *testing.T) {
	if !HasTag([]string{"NLP", "ml"}, "nlp") {
		t.Fatalf("expected case-insensitive tag match")
	}
	if HasTag(nil, "nlp") {
		t.Fatalf("expected no match on empty tags")
	}
}

func TestRAGDefaults(t *testing.T) {
	if got := (RAGConfig{}).WithDefaults().TopK; got != DefaultTopK {
		t.Fatalf("expected default top_k %d, got %d", DefaultTopK, got)
	}
	if got := (RAGConfig{TopK: 10}).WithDefaults().TopK; got != 10 {
		t.Fatalf("expected explicit top_k to stay, got %d", got)
	}
}
