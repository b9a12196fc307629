// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"strings"

	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Execution topologies. Other values are accepted as free-form tags.
const (
	ExecutionSingle     = "single"
	ExecutionSequential = "sequential"
	ExecutionParallel   = "parallel"
	ExecutionLoop       = "loop"
)

// Role is one step of an agent's runtime topology.
//
// A role carries at most one prompt form. A role with neither is kept as is;
// runtimes fall back to a templated default prompt for it.
type Role struct {
	Name         string   `json:"name"`
	PromptInline string   `json:"prompt_inline,omitempty"`
	PromptRef    string   `json:"prompt_ref,omitempty"`
	Tools        []string `json:"tools,omitempty"`
}

// Validate checks the role name and prompt exclusivity.
func (r Role) Validate() error {
	if err := required("name", r.Name); err != nil {
		return err
	}
	if r.PromptInline != "" && r.PromptRef != "" {
		return errors.Invalid("role "+r.Name, "must set only one of prompt_inline or prompt_ref")
	}
	return nil
}

// RuntimeConfig describes how a runtime executes the agent.
type RuntimeConfig struct {
	ExecutionType string `json:"execution_type"`
	Roles         []Role `json:"roles"`
}

// Agent is a fully resolved agent record. Skills, Tools and RAGConfigs are
// snapshots taken at write time, never references.
type Agent struct {
	Metadata
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	URL           string        `json:"url"`
	AgentVersion  string        `json:"agent_version,omitempty"`
	AgentType     string        `json:"agent_type,omitempty"`
	IsPublic      bool          `json:"is_public"`
	Tags          []string      `json:"tags,omitempty"`
	RuntimeConfig RuntimeConfig `json:"runtime_config"`
	Skills        []Skill       `json:"skills"`
	Tools         []Tool        `json:"tools"`
	RAGConfigs    []RAGConfig   `json:"rag_configs"`
}

// Validate checks required fields of the composed record.
func (a Agent) Validate() error {
	if err := required("name", a.Name); err != nil {
		return err
	}
	for _, role := range a.RuntimeConfig.Roles {
		if err := role.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PromptRefs returns the prompt identifiers referenced by roles, in role order.
func (a Agent) PromptRefs() []string {
	var refs []string
	for _, role := range a.RuntimeConfig.Roles {
		if role.PromptRef != "" {
			refs = append(refs, role.PromptRef)
		}
	}
	return refs
}

// AgentRequest is the write payload for agents. It names skills, tools and
// RAG configs by identifier; resolution turns them into embedded copies.
type AgentRequest struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	URL           string   `json:"url,omitempty"`
	Version       string   `json:"version,omitempty"`
	AgentType     string   `json:"agent_type,omitempty"`
	IsPublic      bool     `json:"is_public,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	ExecutionType string   `json:"execution_type,omitempty"`
	Roles         []Role   `json:"roles,omitempty"`
	SkillIDs      []string `json:"skill_ids,omitempty"`
	ToolIDs       []string `json:"tool_ids,omitempty"`
	RAGIDs        []string `json:"rag_ids,omitempty"`
}

// Validate rejects malformed requests before any lookup happens.
func (r AgentRequest) Validate() error {
	if err := required("name", r.Name); err != nil {
		return err
	}
	for _, role := range r.Roles {
		if err := role.Validate(); err != nil {
			return err
		}
	}
	refs := []struct {
		field string
		ids   []string
	}{
		{"skill_ids", r.SkillIDs},
		{"tool_ids", r.ToolIDs},
		{"rag_ids", r.RAGIDs},
	}
	for _, ref := range refs {
		for i, id := range ref.ids {
			if strings.TrimSpace(id) == "" {
				return errors.Invalid(fmt.Sprintf("%s[%d]", ref.field, i), "must not be empty")
			}
		}
	}
	return nil
}

// Agent builds the record without embedded resources.
func (r AgentRequest) Agent() Agent {
	execType := strings.TrimSpace(r.ExecutionType)
	if execType == "" {
		execType = ExecutionSingle
	}
	roles := make([]Role, len(r.Roles))
	copy(roles, r.Roles)
	return Agent{
		Metadata:     Metadata{ID: r.ID},
		Name:         r.Name,
		Description:  r.Description,
		URL:          r.URL,
		AgentVersion: r.Version,
		AgentType:    r.AgentType,
		IsPublic:     r.IsPublic,
		Tags:         append([]string(nil), r.Tags...),
		RuntimeConfig: RuntimeConfig{
			ExecutionType: execType,
			Roles:         roles,
		},
		Skills:     []Skill{},
		Tools:      []Tool{},
		RAGConfigs: []RAGConfig{},
	}
}
