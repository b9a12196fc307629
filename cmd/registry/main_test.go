// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/conneskills/cs-agent-registry-api/pkg/config"
	"github.com/conneskills/cs-agent-registry-api/pkg/registry"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(buildInfo{version: "1.2.3", commit: "abc123", date: "2026-01-01"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "1.2.3") || !strings.Contains(out, "abc123") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["version"] != "1.2.3" || info["date"] != "2026-01-01" {
		t.Fatalf("unexpected info: %v", info)
	}
}

func TestGlobalFlagsCLIArgs(t *testing.T) {
	flags := &globalFlags{
		configPath: "registry.yaml",
		profile:    "dev",
		overrides:  []string{"storage.backend=sqlite", "log.level=debug"},
	}
	want := []string{
		"--config", "registry.yaml",
		"--profile", "dev",
		"--set", "storage.backend=sqlite",
		"--set", "log.level=debug",
	}
	if got := flags.cliArgs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("cliArgs = %v, want %v", got, want)
	}
	if got := (&globalFlags{}).cliArgs(); len(got) != 0 {
		t.Fatalf("empty flags rendered %v", got)
	}
}

func TestImportSkillsCommand(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "translation")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	skill := "---\nname: translation\ndescription: Translates text between languages.\ntags: [translation]\n---\n\nBody.\n"
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(skill), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dsn := filepath.Join(t.TempDir(), "registry.db")
	args := []string{
		"import-skills", root,
		"--set", "storage.backend=sqlite",
		"--set", "storage.dsn=" + dsn,
	}

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if !strings.Contains(out, "created translation") || !strings.Contains(out, "1 created, 0 skipped") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = run(t, args...)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !strings.Contains(out, "skipped translation") || !strings.Contains(out, "0 created, 1 skipped") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestImportSkillsRequiresDir(t *testing.T) {
	if _, err := run(t, "import-skills"); err == nil {
		t.Fatal("expected an argument error")
	}
	if _, err := run(t, "import-skills", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected a load error for a missing directory")
	}
}

func TestUnknownStorageBackend(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "import-skills", dir, "--set", "storage.backend=cassandra"); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestApplyConfigChange(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := registry.New(store.NewMemoryBackend(), registry.Options{Logger: logger})
	defer svc.Close(context.Background())

	base := &config.Config{Log: config.LogConfig{Level: "info"}}
	if svc.PromptSync().Enabled() {
		t.Fatal("prompt sync should start disabled")
	}

	enabled := *base
	enabled.PromptSync = config.PromptSyncConfig{Enabled: true, BaseURL: "http://prompts.internal:3000"}
	applyConfigChange(logger, svc, nil, config.Change{Previous: base, Current: &enabled})
	if !svc.PromptSync().Enabled() {
		t.Fatal("prompt sync should be enabled after reload")
	}

	applyConfigChange(logger, svc, nil, config.Change{Previous: &enabled, Current: base})
	if svc.PromptSync().Enabled() {
		t.Fatal("prompt sync should be disabled after reload")
	}
}

func TestApplyConfigChangeLogLevel(t *testing.T) {
	before := telemetry.LogLevel()
	defer telemetry.SetLogLevel(before.String())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := registry.New(store.NewMemoryBackend(), registry.Options{Logger: logger})
	defer svc.Close(context.Background())

	prev := &config.Config{Log: config.LogConfig{Level: "info"}}
	next := &config.Config{Log: config.LogConfig{Level: "debug"}}
	applyConfigChange(logger, svc, nil, config.Change{Previous: prev, Current: next})
	if telemetry.LogLevel() != slog.LevelDebug {
		t.Fatalf("log level = %v, want debug", telemetry.LogLevel())
	}
}
