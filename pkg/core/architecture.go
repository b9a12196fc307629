// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package core

// ArchitectureAgent places an agent in a multi-agent architecture.
type ArchitectureAgent struct {
	AgentID string `json:"agent_id"`
	Role    string `json:"role,omitempty"`
	Order   int    `json:"order,omitempty"`
}

// Architecture describes a multi-agent topology. Agent ids are descriptive
// and are not resolved.
type Architecture struct {
	Metadata
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Pattern     string              `json:"pattern"`
	Agents      []ArchitectureAgent `json:"agents"`
	Tags        []string            `json:"tags,omitempty"`
}

// Validate checks required fields.
func (a Architecture) Validate() error {
	if err := required("name", a.Name); err != nil {
		return err
	}
	if err := required("pattern", a.Pattern); err != nil {
		return err
	}
	for _, member := range a.Agents {
		if err := required("agents.agent_id", member.AgentID); err != nil {
			return err
		}
	}
	return nil
}
