// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package promptsync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
)

type funcSyncer func(ctx context.Context, p core.Prompt) error

func (f funcSyncer) Push(ctx context.Context, p core.Prompt) error { return f(ctx, p) }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDispatchDisabledIsSkipped(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	if d.Enabled() {
		t.Fatalf("nil syncer must disable the dispatcher")
	}
	res := d.Dispatch(context.Background(), testPrompt()).Wait(context.Background())
	if res.Outcome != OutcomeSkipped || res.Err != nil {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDispatchSuccess(t *testing.T) {
	var pushed string
	d := NewDispatcher(funcSyncer(func(_ context.Context, p core.Prompt) error {
		pushed = p.ID
		return nil
	}), nil, nil)

	res := d.Dispatch(context.Background(), testPrompt()).Wait(context.Background())
	if res.Outcome != OutcomeSynced || res.PromptID != "p1" {
		t.Errorf("unexpected result %+v", res)
	}
	if pushed != "p1" {
		t.Errorf("expected prompt p1 to be pushed, got %q", pushed)
	}
}

func TestDispatchFailureIsLoggedNotReturned(t *testing.T) {
	var logs lockedBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	d := NewDispatcher(funcSyncer(func(context.Context, core.Prompt) error {
		return errors.New("service down")
	}), logger, nil)

	res := d.Dispatch(context.Background(), testPrompt()).Wait(context.Background())
	if res.Outcome != OutcomeFailed || res.Err == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	out := logs.String()
	if !strings.Contains(out, "promptsync.push.failed") || !strings.Contains(out, "prompt_id=p1") {
		t.Errorf("expected failure log, got %q", out)
	}
}

func TestDispatchOutlivesRequestContext(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(funcSyncer(func(ctx context.Context, _ core.Prompt) error {
		<-release
		return ctx.Err()
	}), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pending := d.Dispatch(ctx, testPrompt())
	cancel()
	close(release)

	res := pending.Wait(context.Background())
	if res.Outcome != OutcomeSynced {
		t.Errorf("request cancellation must not cancel the push, got %+v", res)
	}
}

func TestPendingWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	d := NewDispatcher(funcSyncer(func(context.Context, core.Prompt) error {
		<-release
		return nil
	}), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := d.Dispatch(context.Background(), testPrompt()).Wait(ctx)
	if !errors.Is(res.Err, context.DeadlineExceeded) || res.Outcome != "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDispatcherClose(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(funcSyncer(func(context.Context, core.Prompt) error {
		<-release
		return nil
	}), nil, nil)
	d.Dispatch(context.Background(), testPrompt())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); err == nil {
		t.Fatalf("expected Close to time out with a push in flight")
	}

	close(release)
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestDispatcherCheck(t *testing.T) {
	disabled := NewDispatcher(nil, nil, nil).Check(context.Background())
	if disabled.Status != core.HealthHealthy || disabled.Details["enabled"] != "false" {
		t.Errorf("unexpected disabled check %+v", disabled)
	}

	s := fastSyncer("http://127.0.0.1:1", 1)
	s.breaker.Open()
	degraded := NewDispatcher(s, nil, nil).Check(context.Background())
	if degraded.Status != core.HealthDegraded || degraded.Details["circuit"] != "open" {
		t.Errorf("unexpected degraded check %+v", degraded)
	}
}

func TestDispatcherReplace(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)

	var pushes int
	d.Replace(funcSyncer(func(context.Context, core.Prompt) error {
		pushes++
		return nil
	}))
	if !d.Enabled() {
		t.Fatalf("expected dispatcher enabled after Replace")
	}
	if res := d.Dispatch(context.Background(), testPrompt()).Wait(context.Background()); res.Outcome != OutcomeSynced {
		t.Errorf("unexpected result %+v", res)
	}
	if pushes != 1 {
		t.Errorf("expected 1 push, got %d", pushes)
	}

	d.Replace(nil)
	if d.Enabled() {
		t.Fatalf("expected dispatcher disabled after Replace(nil)")
	}
	if res := d.Dispatch(context.Background(), testPrompt()).Wait(context.Background()); res.Outcome != OutcomeSkipped {
		t.Errorf("unexpected result %+v", res)
	}
}
