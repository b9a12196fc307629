// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// RegistryMetrics tracks operation and error rates for production monitoring.
// A nil *RegistryMetrics is valid and records nothing.
type RegistryMetrics struct {
	// operationCounter tracks store operations by kind, operation and outcome
	operationCounter metric.Int64Counter

	// errorCounter tracks failures by code, kind and operation
	errorCounter metric.Int64Counter

	// discoveryScore records the best score of every discovery query (0 = no match)
	discoveryScore metric.Int64Histogram

	// promptSyncCounter tracks prompt pushes by outcome
	promptSyncCounter metric.Int64Counter

	// healthStatusGauge tracks component health (0=unhealthy, 1=degraded, 2=healthy)
	healthStatusGauge metric.Int64Gauge

	// circuitBreakerStateGauge tracks circuit breaker state per target
	circuitBreakerStateGauge metric.Int64Gauge
}

// NewRegistryMetrics creates the registry instruments on the global meter
// provider. Without an SDK provider the instruments are no-ops.
func NewRegistryMetrics(ctx context.Context) (*RegistryMetrics, error) {
	meter := otel.Meter("agent-registry")

	operationCounter, err := meter.Int64Counter(
		"registry.operations.total",
		metric.WithDescription("Registry operations by resource kind, operation and outcome"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"registry.errors.total",
		metric.WithDescription("Registry errors by code, resource kind and operation"),
	)
	if err != nil {
		return nil, err
	}

	discoveryScore, err := meter.Int64Histogram(
		"registry.discovery.score",
		metric.WithDescription("Best discovery score per query (0 = no match)"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 13, 21),
	)
	if err != nil {
		return nil, err
	}

	promptSyncCounter, err := meter.Int64Counter(
		"registry.promptsync.total",
		metric.WithDescription("Prompt pushes to the external prompt service by outcome"),
	)
	if err != nil {
		return nil, err
	}

	healthStatusGauge, err := meter.Int64Gauge(
		"registry.health.status",
		metric.WithDescription("Component health status (0=unhealthy, 1=degraded, 2=healthy)"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerStateGauge, err := meter.Int64Gauge(
		"registry.circuitbreaker.state",
		metric.WithDescription("Circuit breaker state per target (0=closed, 1=half-open, 2=open)"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		operationCounter:         operationCounter,
		errorCounter:             errorCounter,
		discoveryScore:           discoveryScore,
		promptSyncCounter:        promptSyncCounter,
		healthStatusGauge:        healthStatusGauge,
		circuitBreakerStateGauge: circuitBreakerStateGauge,
	}, nil
}

// RecordOperation counts one operation and, when err is set, one error.
func (m *RegistryMetrics) RecordOperation(ctx context.Context, kind, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrResourceKind, kind),
			attribute.String(AttrOperation, op),
			attribute.String("outcome", outcome),
		),
	)
	if err != nil {
		m.RecordError(ctx, err, kind, op)
	}
}

// RecordError increments the error counter for err.
func (m *RegistryMetrics) RecordError(ctx context.Context, err error, kind, op string) {
	if m == nil || err == nil {
		return
	}
	re := errors.AsRegistryError(err)
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrErrorCode, string(re.Code)),
			attribute.String(AttrResourceKind, kind),
			attribute.String(AttrOperation, op),
			attribute.String("recoverable", re.RecoverableString()),
		),
	)
}

// RecordDiscovery records the best score of a query.
func (m *RegistryMetrics) RecordDiscovery(ctx context.Context, score int) {
	if m == nil {
		return
	}
	m.discoveryScore.Record(ctx, int64(score),
		metric.WithAttributes(attribute.Bool(AttrDiscoveryMatched, score > 0)),
	)
}

// RecordPromptSync counts one prompt push by outcome (synced, failed, skipped).
func (m *RegistryMetrics) RecordPromptSync(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.promptSyncCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrPromptSyncOutcome, outcome)),
	)
}

// RecordHealthStatus records the health status of a component (0=unhealthy, 1=degraded, 2=healthy).
func (m *RegistryMetrics) RecordHealthStatus(ctx context.Context, component string, status int64) {
	if m == nil {
		return
	}
	m.healthStatusGauge.Record(ctx, status,
		metric.WithAttributes(attribute.String("component", component)),
	)
}

// RecordCircuitBreakerState records the circuit breaker state (0=closed, 1=half-open, 2=open).
func (m *RegistryMetrics) RecordCircuitBreakerState(ctx context.Context, target string, state int64) {
	if m == nil {
		return
	}
	m.circuitBreakerStateGauge.Record(ctx, state,
		metric.WithAttributes(attribute.String("target", target)),
	)
}
