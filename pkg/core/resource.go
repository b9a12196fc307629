// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package core defines the registry resource types and shared contracts.
package core

import (
	"strings"
	"time"

	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Kind names a resource collection.
type Kind string

const (
	KindAgent        Kind = "agents"
	KindPrompt       Kind = "prompts"
	KindSkill        Kind = "skills"
	KindTool         Kind = "tools"
	KindRAGConfig    Kind = "rag_configs"
	KindArchitecture Kind = "architectures"
)

// Kinds lists every collection the registry manages.
func Kinds() []Kind {
	return []Kind{KindAgent, KindPrompt, KindSkill, KindTool, KindRAGConfig, KindArchitecture}
}

// Singular returns the human name for one resource of the kind.
func (k Kind) Singular() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindPrompt:
		return "prompt"
	case KindSkill:
		return "skill"
	case KindTool:
		return "tool"
	case KindRAGConfig:
		return "rag_config"
	case KindArchitecture:
		return "architecture"
	default:
		return string(k)
	}
}

// Metadata holds the fields the store owns. Callers may only choose ID;
// Version starts at 1 and increments on every update.
type Metadata struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta gives the store access to the embedded metadata.
func (m *Metadata) Meta() *Metadata { return m }

// Resource is implemented by pointers to every registry record.
type Resource interface {
	Meta() *Metadata
}

// Validator is implemented by records that check their own required fields.
type Validator interface {
	Validate() error
}

// HasTag reports whether tags contains tag, ignoring case.
func HasTag(tags []string, tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Invalid(field, "is required")
	}
	return nil
}
