// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Skill describes a capability an agent advertises. Examples are phrases a
// user might type when they need the skill; discovery matches against them.
type Skill struct {
	Metadata
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Validate checks required fields.
func (s Skill) Validate() error {
	return required("name", s.Name)
}

// Tool describes a callable tool an agent may use.
type Tool struct {
	Metadata
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

// Validate checks required fields.
func (t Tool) Validate() error {
	return required("name", t.Name)
}

// RAG source types.
const (
	RAGVectorStore = "vector_store"
	RAGWebSearch   = "web_search"
	RAGDocument    = "document"
)

// DefaultTopK is applied when a RAG config does not set top_k.
const DefaultTopK = 5

// RAGConfig describes a retrieval source attached to agents.
type RAGConfig struct {
	Metadata
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	RAGType     string            `json:"rag_type"`
	Source      string            `json:"source,omitempty"`
	Collection  string            `json:"collection,omitempty"`
	TopK        int               `json:"top_k"`
	Params      map[string]string `json:"params,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

// Validate checks required fields and the RAG type.
func (r RAGConfig) Validate() error {
	if err := required("name", r.Name); err != nil {
		return err
	}
	switch r.RAGType {
	case RAGVectorStore, RAGWebSearch, RAGDocument:
	case "":
		return errors.Invalid("rag_type", "is required")
	default:
		return errors.Invalid("rag_type", "must be one of vector_store, web_search, document")
	}
	if r.TopK < 0 {
		return errors.Invalid("top_k", "must not be negative")
	}
	return nil
}

// WithDefaults fills optional fields that have defaults.
func (r RAGConfig) WithDefaults() RAGConfig {
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	return r
}
