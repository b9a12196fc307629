// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

func writeSkill(t *testing.T, root, dir, content string) string {
	t.Helper()
	skillDir := filepath.Join(root, dir)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(skillDir, "SKILL.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSkill(t, t.TempDir(), "translation", `---
name: translation
title: Translation
description: Translates text between languages.
tags: [translation, language, translation]
examples:
  - translate this to Spanish
metadata:
  author: example-org
---

Use this skill for any language pair.

## Examples

- "translate this to Spanish"
- render the paragraph in French

## Notes

- not an example
`)

	spec, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.Name != "translation" || spec.Title != "Translation" {
		t.Fatalf("unexpected name: %s / %s", spec.Name, spec.Title)
	}
	if len(spec.Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", spec.Tags)
	}
	want := []string{"translate this to Spanish", "render the paragraph in French"}
	if strings.Join(spec.Examples, "|") != strings.Join(want, "|") {
		t.Errorf("expected examples %v, got %v", want, spec.Examples)
	}
	if spec.Metadata["author"] != "example-org" {
		t.Errorf("unexpected metadata %v", spec.Metadata)
	}

	skill := spec.ToSkill()
	if skill.ID != "translation" || skill.Name != "Translation" || len(skill.Examples) != 2 {
		t.Errorf("unexpected skill %+v", skill)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		content string
		want    string
	}{
		{"no frontmatter", "x", "just text", "missing frontmatter"},
		{"no name", "x", "---\ndescription: d\n---\n", "name is required"},
		{"bad name", "Bad_Name", "---\nname: Bad_Name\ndescription: d\n---\n", "name must match"},
		{"dir mismatch", "other", "---\nname: code-review\ndescription: d\n---\n", "directory name"},
		{"no description", "x", "---\nname: x\n---\n", "description is required"},
		{"bad tags", "x", "---\nname: x\ndescription: d\ntags: {a: b}\n---\n", "tags must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSkill(t, t.TempDir(), tt.dir, tt.content)
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "code-review", "---\nname: code-review\ndescription: Review code changes.\ntags: review, code\n---\n")
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	skills, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(skills))
	}
	if len(skills[0].Tags) != 2 || skills[0].Tags[1] != "code" {
		t.Errorf("unexpected tags %v", skills[0].Tags)
	}
}

type fakeCreator struct {
	existing map[string]bool
	fail     string
}

func (f *fakeCreator) Create(_ context.Context, s core.Skill) (core.Skill, error) {
	if s.ID == f.fail {
		return core.Skill{}, errors.Unavailable("insert", nil)
	}
	if f.existing[s.ID] {
		return core.Skill{}, errors.Duplicate("skill", s.ID)
	}
	f.existing[s.ID] = true
	return s, nil
}

func TestImport(t *testing.T) {
	specs := []SkillSpec{
		{Name: "a", Description: "A"},
		{Name: "b", Description: "B"},
	}
	dst := &fakeCreator{existing: map[string]bool{"b": true}}

	report, err := Import(context.Background(), dst, specs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Created) != 1 || report.Created[0] != "a" {
		t.Errorf("unexpected created %v", report.Created)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "b" {
		t.Errorf("unexpected skipped %v", report.Skipped)
	}

	dst = &fakeCreator{existing: map[string]bool{}, fail: "b"}
	if _, err := Import(context.Background(), dst, specs); !errors.IsCode(err, errors.CodeStorageUnavailable) {
		t.Errorf("expected storage error to stop the import, got %v", err)
	}
}
