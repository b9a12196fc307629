// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultHealthCheckProvider implements HealthCheckProvider.
// Results are reported in component name order.
type DefaultHealthCheckProvider struct {
	checkers map[string]HealthChecker
	mu       sync.RWMutex
}

// NewDefaultHealthCheckProvider creates a new health check provider.
func NewDefaultHealthCheckProvider() *DefaultHealthCheckProvider {
	return &DefaultHealthCheckProvider{
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker registers a health checker for a component.
func (p *DefaultHealthCheckProvider) RegisterChecker(name string, checker HealthChecker) {
	if checker == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkers[name] = checker
}

// Check checks the health of a specific component.
func (p *DefaultHealthCheckProvider) Check(ctx context.Context, name string) (HealthResult, error) {
	p.mu.RLock()
	checker, exists := p.checkers[name]
	p.mu.RUnlock()

	if !exists {
		return HealthResult{}, fmt.Errorf("checker not registered: %s", name)
	}

	result := checker.Check(ctx)
	result.Component = name
	return result, nil
}

// CheckAll checks the health of all registered components.
// Returns individual results and overall status (Healthy only if all Healthy).
func (p *DefaultHealthCheckProvider) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	names, checkers := p.snapshot()

	results := make([]HealthResult, 0, len(names))
	degraded, unhealthy := 0, 0
	for i, name := range names {
		result := checkers[i].Check(ctx)
		result.Component = name
		results = append(results, result)

		switch result.Status {
		case HealthDegraded:
			degraded++
		case HealthUnhealthy:
			unhealthy++
		}
	}

	overall := HealthHealthy
	if unhealthy > 0 {
		overall = HealthUnhealthy
	} else if degraded > 0 {
		overall = HealthDegraded
	}
	return results, overall
}

func (p *DefaultHealthCheckProvider) snapshot() ([]string, []HealthChecker) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.checkers))
	for name := range p.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]HealthChecker, len(names))
	for i, name := range names {
		checkers[i] = p.checkers[name]
	}
	return names, checkers
}

// SimpleHealthChecker is a basic health checker that returns a constant status.
type SimpleHealthChecker struct {
	status  HealthStatus
	message string
}

// NewSimpleHealthChecker creates a new simple health checker.
func NewSimpleHealthChecker(status HealthStatus, message string) *SimpleHealthChecker {
	return &SimpleHealthChecker{
		status:  status,
		message: message,
	}
}

// Check returns the constant health status.
func (s *SimpleHealthChecker) Check(ctx context.Context) HealthResult {
	return HealthResult{
		Status:    s.status,
		Message:   s.message,
		LastCheck: time.Now(),
	}
}

// FunctionHealthChecker wraps a function as a health checker.
type FunctionHealthChecker struct {
	fn func(ctx context.Context) HealthResult
}

// NewFunctionHealthChecker creates a health checker from a function.
func NewFunctionHealthChecker(fn func(ctx context.Context) HealthResult) *FunctionHealthChecker {
	return &FunctionHealthChecker{fn: fn}
}

// Check calls the underlying function.
func (f *FunctionHealthChecker) Check(ctx context.Context) HealthResult {
	result := f.fn(ctx)
	if result.LastCheck.IsZero() {
		result.LastCheck = time.Now()
	}
	return result
}
