// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package promptsync pushes prompt definitions to an external
// prompt-management service. Pushes are advisory: the local prompt record is
// the source of truth and a failed push never fails the local write.
package promptsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/conneskills/cs-agent-registry-api/pkg/config"
	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
	"github.com/conneskills/cs-agent-registry-api/pkg/resilience"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

// PromptsPath is the endpoint prompts are posted to.
const PromptsPath = "/api/public/v2/prompts"

// Syncer pushes one prompt to an external service.
type Syncer interface {
	Push(ctx context.Context, prompt core.Prompt) error
}

// Noop discards every push. It is used when sync is disabled.
type Noop struct{}

// Push implements Syncer.
func (Noop) Push(context.Context, core.Prompt) error { return nil }

// HTTPSyncer posts prompts as JSON with basic auth, retrying transient
// failures behind a circuit breaker.
type HTTPSyncer struct {
	BaseURL   string
	PublicKey string
	SecretKey string
	HTTP      *http.Client

	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	metrics *telemetry.RegistryMetrics
}

// Option customizes an HTTPSyncer.
type Option func(*HTTPSyncer)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSyncer) { s.HTTP = client }
}

// WithRetry replaces the retry policy.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(s *HTTPSyncer) { s.retry = rc }
}

// WithCircuitBreaker replaces the circuit breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *HTTPSyncer) { s.breaker = cb }
}

// WithMetrics records breaker transitions of the default circuit breaker.
func WithMetrics(m *telemetry.RegistryMetrics) Option {
	return func(s *HTTPSyncer) { s.metrics = m }
}

// NewHTTPSyncer builds a syncer from configuration.
func NewHTTPSyncer(cfg config.PromptSyncConfig, opts ...Option) *HTTPSyncer {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	s := &HTTPSyncer{
		BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
		HTTP:      &http.Client{Timeout: cfg.Timeout()},
		retry:     resilience.DefaultRetryConfig().WithMaxAttempts(attempts),
	}
	s.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		Name:             "promptsync",
		OnStateChange: func(name string, _, to resilience.CircuitBreakerState) {
			s.metrics.RecordCircuitBreakerState(context.Background(), name, to.Value())
		},
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig returns an HTTPSyncer when sync is enabled and Noop otherwise.
func NewFromConfig(cfg config.PromptSyncConfig, opts ...Option) Syncer {
	if !cfg.Enabled || strings.TrimSpace(cfg.BaseURL) == "" {
		return Noop{}
	}
	return NewHTTPSyncer(cfg, opts...)
}

type promptPayload struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Prompt string         `json:"prompt"`
	Labels []string       `json:"labels"`
	Tags   []string       `json:"tags"`
	Config map[string]any `json:"config"`
}

func newPromptPayload(p core.Prompt) promptPayload {
	labels := p.Labels
	if labels == nil {
		labels = []string{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	cfg := map[string]any{
		"registry_id":      p.ID,
		"registry_version": p.Version,
	}
	if len(p.Variables) > 0 {
		cfg["variables"] = p.Variables
	}
	if p.Description != "" {
		cfg["description"] = p.Description
	}
	return promptPayload{
		Name:   p.Name,
		Type:   "text",
		Prompt: p.Template,
		Labels: labels,
		Tags:   tags,
		Config: cfg,
	}
}

// Push implements Syncer.
func (s *HTTPSyncer) Push(ctx context.Context, prompt core.Prompt) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "promptsync.push")
	attempts := 0
	defer func() {
		outcome := OutcomeSynced
		if err != nil {
			outcome = OutcomeFailed
		}
		span.SetAttributes(telemetry.PromptSyncAttributes(prompt.ID, attempts, outcome)...)
		telemetry.EndSpan(span, err)
	}()

	if s.BaseURL == "" {
		return errors.Invalid("promptsync.base_url", "is required")
	}
	payload, err := json.Marshal(newPromptPayload(prompt))
	if err != nil {
		return errors.New(errors.CodeInvalidInput, "encode prompt", err)
	}

	return s.breaker.Call(ctx, func() error {
		n, err := s.retry.DoCount(ctx, func() error {
			return s.post(ctx, payload)
		})
		attempts = n
		return err
	})
}

func (s *HTTPSyncer) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+PromptsPath, bytes.NewReader(payload))
	if err != nil {
		return errors.New(errors.CodeInvalidInput, "build prompt request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.PublicKey != "" || s.SecretKey != "" {
		req.SetBasicAuth(s.PublicKey, s.SecretKey)
	}

	resp, err := s.http().Do(req)
	if err != nil {
		return errors.SyncUnavailable(s.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	cause := fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return errors.SyncUnavailable(s.BaseURL, cause).WithContext("status", resp.StatusCode)
	}
	return errors.New(errors.CodeInvalidInput, "prompt service rejected prompt", cause).
		WithContext("target", s.BaseURL).
		WithContext("status", resp.StatusCode)
}

func (s *HTTPSyncer) http() *http.Client {
	if s.HTTP != nil {
		return s.HTTP
	}
	return http.DefaultClient
}
