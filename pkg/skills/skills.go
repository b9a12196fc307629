// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills loads SKILL.md catalogs (YAML frontmatter plus a markdown
// body) and imports them as registry skills.
package skills

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// SkillSpec is a skill as written in a SKILL.md file.
type SkillSpec struct {
	Name        string
	Title       string
	Description string
	Tags        []string
	Examples    []string
	Metadata    map[string]string
	Body        string
	Path        string
	Dir         string
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// LoadDir scans a directory for skill subdirectories with SKILL.md.
// Subdirectories without one are skipped.
func LoadDir(root string) ([]SkillSpec, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []SkillSpec
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(root, entry.Name(), "SKILL.md")
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		skill, err := LoadFile(skillPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", skillPath, err)
		}
		out = append(out, skill)
	}
	return out, nil
}

// LoadFile parses a single SKILL.md file. Examples come from the
// frontmatter and from the bullet list under an "## Examples" heading.
func LoadFile(path string) (SkillSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SkillSpec{}, err
	}
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return SkillSpec{}, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return SkillSpec{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	tags, err := normalizeList("tags", parsed.Tags)
	if err != nil {
		return SkillSpec{}, err
	}
	examples, err := normalizeList("examples", parsed.Examples)
	if err != nil {
		return SkillSpec{}, err
	}
	spec := SkillSpec{
		Name:        strings.TrimSpace(parsed.Name),
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Tags:        tags,
		Examples:    dedupe(append(examples, bodyExamples(body)...)),
		Metadata:    parsed.Metadata,
		Body:        strings.TrimSpace(body),
		Path:        path,
		Dir:         filepath.Dir(path),
	}
	if err := validate(spec); err != nil {
		return SkillSpec{}, err
	}
	return spec, nil
}

// ToSkill converts the spec into a registry skill. The directory name becomes
// the identifier so re-imports collide instead of duplicating.
func (s SkillSpec) ToSkill() core.Skill {
	name := s.Title
	if name == "" {
		name = s.Name
	}
	skill := core.Skill{
		Name:        name,
		Description: s.Description,
		Tags:        append([]string(nil), s.Tags...),
		Examples:    append([]string(nil), s.Examples...),
	}
	skill.ID = s.Name
	return skill
}

// Creator stores skills.
type Creator interface {
	Create(ctx context.Context, skill core.Skill) (core.Skill, error)
}

// ImportReport lists what Import did, by skill identifier.
type ImportReport struct {
	Created []string
	Skipped []string
}

// Import creates every spec. Skills that already exist are skipped; any other
// failure stops the import.
func Import(ctx context.Context, dst Creator, specs []SkillSpec) (ImportReport, error) {
	var report ImportReport
	for _, spec := range specs {
		skill, err := dst.Create(ctx, spec.ToSkill())
		switch {
		case err == nil:
			report.Created = append(report.Created, skill.ID)
		case errors.IsCode(err, errors.CodeDuplicateID):
			report.Skipped = append(report.Skipped, spec.Name)
		default:
			return report, fmt.Errorf("import %s: %w", spec.Name, err)
		}
	}
	return report, nil
}

type frontmatter struct {
	Name        string            `yaml:"name"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Tags        any               `yaml:"tags"`
	Examples    any               `yaml:"examples"`
	Metadata    map[string]string `yaml:"metadata"`
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", stderrors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", stderrors.New("invalid frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

// bodyExamples returns the "- " items listed under an "## Examples" heading.
func bodyExamples(body string) []string {
	var out []string
	inSection := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			inSection = strings.EqualFold(heading, "examples")
			continue
		}
		if !inSection {
			continue
		}
		if item, ok := strings.CutPrefix(line, "- "); ok {
			out = append(out, strings.Trim(strings.TrimSpace(item), `"`))
		}
	}
	return out
}

func validate(spec SkillSpec) error {
	if spec.Name == "" {
		return stderrors.New("name is required")
	}
	if utf8.RuneCountInString(spec.Name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(spec.Name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	if dirName := filepath.Base(spec.Dir); dirName != spec.Name {
		return fmt.Errorf("name must match directory name (%s)", dirName)
	}
	if spec.Description == "" {
		return stderrors.New("description is required")
	}
	if utf8.RuneCountInString(spec.Description) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}

// normalizeList accepts a comma separated string or a list of strings.
func normalizeList(field string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return dedupe(strings.Split(v, ",")), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a list of strings", field)
			}
			out = append(out, str)
		}
		return dedupe(out), nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list", field)
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
