// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads registry settings from defaults, YAML files,
// environment variables and command line overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before mapping them to
// keys (REGISTRY_STORAGE_BACKEND -> storage.backend).
const EnvPrefix = "REGISTRY_"

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Storage    StorageConfig    `koanf:"storage"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	PromptSync PromptSyncConfig `koanf:"promptsync"`
	Seed       SeedConfig       `koanf:"seed"`
}

type ServerConfig struct {
	Addr            string `koanf:"addr"`
	ShutdownTimeout int    `koanf:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type StorageConfig struct {
	Backend string `koanf:"backend"` // memory, sqlite, postgres
	DSN     string `koanf:"dsn"`
	Table   string `koanf:"table"`
}

type TelemetryConfig struct {
	Enabled            bool              `koanf:"enabled"`
	Exporter           string            `koanf:"exporter"` // stdout, otlp, none
	ServiceName        string            `koanf:"service_name"`
	OTLPEndpoint       string            `koanf:"otlp_endpoint"`
	OTLPInsecure       bool              `koanf:"otlp_insecure"`
	OTLPHeaders        map[string]string `koanf:"otlp_headers"`
	ResourceAttributes map[string]string `koanf:"resource_attributes"` // extra telemetry resource attributes
}

// PromptSyncConfig configures best-effort pushes of prompts to an external
// prompt-management service.
type PromptSyncConfig struct {
	Enabled        bool   `koanf:"enabled"`
	BaseURL        string `koanf:"base_url"`
	PublicKey      string `koanf:"public_key"`
	SecretKey      string `koanf:"secret_key"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MaxAttempts    int    `koanf:"max_attempts"`
}

// Timeout returns the per-request timeout.
func (c PromptSyncConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SeedConfig struct {
	SkillsDir string `koanf:"skills_dir"`
}

var defaults = map[string]any{
	"server.addr":                     ":8000",
	"server.shutdown_timeout_seconds": 10,
	"log.level":                       "info",
	"log.format":                      "text",
	"storage.backend":                 "memory",
	"storage.dsn":                     "",
	"storage.table":                   "registry_resources",
	"telemetry.enabled":               false,
	"telemetry.exporter":              "stdout",
	"telemetry.service_name":          "agent-registry",
	"telemetry.otlp_endpoint":         "localhost:4317",
	"telemetry.otlp_insecure":         true,
	"promptsync.enabled":              false,
	"promptsync.timeout_seconds":      5,
	"promptsync.max_attempts":         3,
}

// Load reads defaults, then the file at path (if any), then REGISTRY_ env vars.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile layers config.<profile>.yaml next to path over the base file.
// A missing profile file is ignored.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI understands --config, --profile (alias --env) and repeated
// --set key=value arguments. Overrides win over env vars.
func LoadWithCLI(args []string) (*Config, error) {
	opts, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(opts.path, opts.profile, overrides)
}

func load(path, profile string, overrides map[string]string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if p := profileConfigPath(path, profile); p != "" {
			if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load profile %s: %w", p, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps REGISTRY_PROMPTSYNC_BASE_URL to promptsync.base_url. The first
// underscore separates the section, the rest belong to the field name.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}

// Storage backend names as reported by BackendName.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var backendNames = map[string]string{
	"":           BackendMemory,
	"memory":     BackendMemory,
	"sqlite":     BackendSQLite,
	"sqlite3":    BackendSQLite,
	"postgres":   BackendPostgres,
	"postgresql": BackendPostgres,
	"pg":         BackendPostgres,
}

// BackendName maps a configured storage backend, or one of its aliases, to
// its canonical name. An empty name selects the memory backend.
func BackendName(name string) (string, bool) {
	canonical, ok := backendNames[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	backend, ok := BackendName(c.Storage.Backend)
	if !ok {
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if backend != BackendMemory && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("storage.dsn is required for backend %q", c.Storage.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if c.PromptSync.Enabled && strings.TrimSpace(c.PromptSync.BaseURL) == "" {
		return fmt.Errorf("promptsync.base_url is required when promptsync is enabled")
	}
	return nil
}

type cliOptions struct {
	path    string
	profile string
}

func parseCLIOverrides(args []string) (cliOptions, map[string]string, error) {
	var opts cliOptions
	overrides := map[string]string{}

	value := func(i *int, arg, name string) (string, error) {
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("missing value for %s", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || strings.HasPrefix(arg, "--config="):
			v, err := value(&i, arg, "--config")
			if err != nil {
				return opts, nil, err
			}
			opts.path = v
		case arg == "--profile" || strings.HasPrefix(arg, "--profile="):
			v, err := value(&i, arg, "--profile")
			if err != nil {
				return opts, nil, err
			}
			opts.profile = v
		case arg == "--env" || strings.HasPrefix(arg, "--env="):
			v, err := value(&i, arg, "--env")
			if err != nil {
				return opts, nil, err
			}
			opts.profile = v
		case arg == "--set" || strings.HasPrefix(arg, "--set="):
			v, err := value(&i, arg, "--set")
			if err != nil {
				return opts, nil, err
			}
			key, val, err := parseOverride(v)
			if err != nil {
				return opts, nil, err
			}
			overrides[key] = val
		}
	}
	return opts, overrides, nil
}

// ParseOverrides turns key=value pairs, as given to --set, into an override map.
func ParseOverrides(sets []string) (map[string]string, error) {
	overrides := make(map[string]string, len(sets))
	for _, v := range sets {
		key, val, err := parseOverride(v)
		if err != nil {
			return nil, err
		}
		overrides[key] = val
	}
	return overrides, nil
}

func parseOverride(v string) (string, string, error) {
	key, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid --set %q, want key=value", v)
	}
	return strings.TrimSpace(key), val, nil
}

// profileConfigPath returns config.<profile>.yaml beside base when it exists.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	p := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
