// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package promptsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/resilience"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

// Push outcomes reported in results, logs and metrics.
const (
	OutcomeSynced  = "synced"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Result describes one finished push.
type Result struct {
	PromptID string
	Outcome  string
	Err      error
}

// Pending is the handle of a push running in the background. Callers are
// free to drop it; Wait exists for tests and for callers that want to report
// the sync status.
type Pending struct {
	done   chan struct{}
	result Result
}

func completed(r Result) *Pending {
	p := &Pending{done: make(chan struct{}), result: r}
	close(p.done)
	return p
}

// Done is closed once the push finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the push finished or ctx is done. When ctx ends first the
// returned result has an empty Outcome and ctx's error.
func (p *Pending) Wait(ctx context.Context) Result {
	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		return Result{PromptID: p.result.PromptID, Err: ctx.Err()}
	}
}

// Dispatcher runs pushes in the background, detached from the request that
// triggered them. Failures are logged and counted, never returned.
type Dispatcher struct {
	mu      sync.RWMutex
	syncer  Syncer
	logger  *slog.Logger
	metrics *telemetry.RegistryMetrics
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps syncer. A nil syncer behaves like Noop.
func NewDispatcher(syncer Syncer, logger *slog.Logger, metrics *telemetry.RegistryMetrics) *Dispatcher {
	if syncer == nil {
		syncer = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		syncer:  syncer,
		logger:  logger,
		metrics: metrics,
		timeout: 30 * time.Second,
	}
}

// Replace swaps the syncer used by later pushes, e.g. after a config reload.
// Pushes already running finish against the previous syncer.
func (d *Dispatcher) Replace(syncer Syncer) {
	if syncer == nil {
		syncer = Noop{}
	}
	d.mu.Lock()
	d.syncer = syncer
	d.mu.Unlock()
}

func (d *Dispatcher) current() Syncer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.syncer
}

// Enabled reports whether pushes reach a real service.
func (d *Dispatcher) Enabled() bool {
	return enabled(d.current())
}

func enabled(s Syncer) bool {
	_, noop := s.(Noop)
	return !noop
}

// Dispatch starts pushing prompt and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt core.Prompt) *Pending {
	syncer := d.current()
	if !enabled(syncer) {
		d.metrics.RecordPromptSync(ctx, OutcomeSkipped)
		return completed(Result{PromptID: prompt.ID, Outcome: OutcomeSkipped})
	}

	p := &Pending{done: make(chan struct{}), result: Result{PromptID: prompt.ID}}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(p.done)

		pushCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		err := syncer.Push(pushCtx, prompt)
		if err != nil {
			p.result.Outcome = OutcomeFailed
			p.result.Err = err
			d.logger.WarnContext(ctx, "promptsync.push.failed",
				slog.String("prompt_id", prompt.ID),
				slog.String("prompt_name", prompt.Name),
				slog.Any("error", err),
			)
		} else {
			p.result.Outcome = OutcomeSynced
			d.logger.DebugContext(ctx, "promptsync.push.ok",
				slog.String("prompt_id", prompt.ID),
				slog.Int("prompt_version", prompt.Version),
			)
		}
		d.metrics.RecordPromptSync(ctx, p.result.Outcome)
	}()
	return p
}

// Close waits for in-flight pushes or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Check reports whether the sync target is reachable from the breaker's
// point of view. A disabled dispatcher is healthy.
func (d *Dispatcher) Check(ctx context.Context) core.HealthResult {
	result := core.HealthResult{
		Status:    core.HealthHealthy,
		Details:   map[string]string{"enabled": "false"},
		LastCheck: time.Now(),
	}
	syncer := d.current()
	s, ok := syncer.(*HTTPSyncer)
	if !ok {
		if enabled(syncer) {
			result.Details["enabled"] = "true"
		}
		return result
	}
	result.Details["enabled"] = "true"
	result.Details["target"] = s.BaseURL
	state := s.breaker.State()
	result.Details["circuit"] = string(state)
	if state != resilience.StateClosed {
		result.Status = core.HealthDegraded
		result.Message = "prompt sync target failing"
	}
	return result
}
