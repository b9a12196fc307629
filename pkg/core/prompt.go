// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package core

// Prompt is a named, versioned prompt template. The local record is the
// source of truth; pushes to external prompt managers are advisory.
type Prompt struct {
	Metadata
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Template    string   `json:"template"`
	Variables   []string `json:"variables,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Validate checks required fields.
func (p Prompt) Validate() error {
	if err := required("name", p.Name); err != nil {
		return err
	}
	return required("template", p.Template)
}
