// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	rerrors "github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

func fastRetry() RetryConfig {
	return DefaultRetryConfig().WithInitialDelay(time.Millisecond).WithMaxDelay(5 * time.Millisecond)
}

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := fastRetry().WithMaxAttempts(2).Do(context.Background(), func() error {
		attempts++
		return errors.New("always fails")
	})

	if err == nil {
		t.Errorf("expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryNonRecoverable(t *testing.T) {
	attempts := 0
	config := fastRetry().WithIsRecoverable(func(err error) bool {
		return false
	})
	err := config.Do(context.Background(), func() error {
		attempts++
		return errors.New("non-recoverable error")
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithInitialDelay(time.Second).WithMaxAttempts(5)

	attempts := 0
	err := config.Do(ctx, func() error {
		attempts++
		cancel()
		return errors.New("transient error")
	})

	if err == nil {
		t.Fatalf("expected context error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected error to wrap context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryDoCountAndOnRetry(t *testing.T) {
	var retried []int
	config := fastRetry().WithMaxAttempts(4).WithOnRetry(func(attempt int, err error) {
		if err == nil {
			t.Errorf("OnRetry called without the previous error")
		}
		retried = append(retried, attempt)
	})

	calls := 0
	n, err := config.DoCount(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DoCount: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
	if len(retried) != 2 || retried[0] != 2 || retried[1] != 3 {
		t.Errorf("unexpected retry attempts %v", retried)
	}
}

func TestDoValue(t *testing.T) {
	attempts := 0
	result, err := DoValue(context.Background(), fastRetry(), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRegistryErrorRecoverableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
	}{
		{"recoverable", rerrors.Unavailable("push", errors.New("503")), 3},
		{"not recoverable", rerrors.Invalid("name", "is required"), 1},
		{"wrapped recoverable", errors.Join(errors.New("ctx"), rerrors.Unavailable("push", nil)), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			_ = fastRetry().Do(context.Background(), func() error {
				attempts++
				return tt.err
			})
			if attempts != tt.attempts {
				t.Errorf("expected %d attempts, got %d", tt.attempts, attempts)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	rc := RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond}
	for i, w := range want {
		if got := calculateBackoff(i+1, rc); got != w {
			t.Errorf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}

	rc.Jitter = 0.5
	for i := 0; i < 50; i++ {
		got := calculateBackoff(1, rc)
		if got < 5*time.Millisecond || got > 15*time.Millisecond {
			t.Fatalf("jittered delay %s out of range", got)
		}
	}
}

func TestCircuitBreakerClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		Name:             "test",
	})

	if cb.State() != StateClosed {
		t.Errorf("expected initial state Closed")
	}

	for i := 0; i < 5; i++ {
		err := cb.Call(context.Background(), func() error { return nil })
		if err != nil {
			t.Errorf("call %d failed: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("expected state to remain Closed after success")
	}
}

func TestCircuitBreakerOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		Name:             "test",
	})

	for i := 0; i < 2; i++ {
		_ = cb.Call(context.Background(), func() error {
			return errors.New("failure")
		})
	}

	if cb.State() != StateOpen {
		t.Errorf("expected state Open after %d failures", 2)
	}

	err := cb.Call(context.Background(), func() error {
		t.Fatalf("should not execute in open state")
		return nil
	})

	if err == nil {
		t.Fatalf("expected error when circuit is open")
	}
	re := rerrors.AsRegistryError(err)
	if !re.Recoverable {
		t.Errorf("expected circuit breaker error to be marked recoverable")
	}
	if re.Context["breaker"] != "test" {
		t.Errorf("expected breaker name in context, got %v", re.Context)
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	fail := func() error { return errors.New("fail") }
	_ = cb.Call(context.Background(), fail)
	_ = cb.Call(context.Background(), func() error { return nil })
	_ = cb.Call(context.Background(), fail)

	if cb.State() != StateClosed {
		t.Errorf("non-consecutive failures must not open the circuit")
	}
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
		Name:             "test",
	})
	clock := time.Now()
	cb.now = func() time.Time { return clock }

	_ = cb.Call(context.Background(), func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected circuit to be open")
	}

	clock = clock.Add(2 * time.Minute)
	_ = cb.Call(context.Background(), func() error { return nil })

	if cb.State() != StateHalfOpen {
		t.Errorf("expected state HalfOpen after timeout")
	}

	_ = cb.Call(context.Background(), func() error { return nil })

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after successes in half-open")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, Timeout: time.Minute})
	clock := time.Now()
	cb.now = func() time.Time { return clock }

	cb.Open()
	clock = clock.Add(2 * time.Minute)
	_ = cb.Call(context.Background(), func() error { return errors.New("still down") })

	if cb.State() != StateOpen {
		t.Errorf("a failed half-open call must reopen the circuit, got %s", cb.State())
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Name:             "test",
	})

	_ = cb.Call(context.Background(), func() error { return errors.New("fail") })

	if cb.State() != StateOpen {
		t.Fatalf("expected circuit to be open")
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after reset")
	}

	err := cb.Call(context.Background(), func() error { return nil })
	if err != nil {
		t.Errorf("call failed after reset: %v", err)
	}
}

func TestCircuitBreakerOnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		Name:             "promptsync",
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			mu.Lock()
			defer mu.Unlock()
			if name != "promptsync" {
				t.Errorf("unexpected breaker name %q", name)
			}
			transitions = append(transitions, string(from)+"->"+string(to))
		},
	})
	clock := time.Now()
	cb.now = func() time.Time { return clock }

	_ = cb.Call(context.Background(), func() error { return errors.New("fail") })
	clock = clock.Add(2 * time.Minute)
	_ = cb.Call(context.Background(), func() error { return nil })

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreakerStateValue(t *testing.T) {
	if StateClosed.Value() != 0 || StateHalfOpen.Value() != 1 || StateOpen.Value() != 2 {
		t.Errorf("unexpected state values")
	}
}
