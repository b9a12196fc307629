// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
	"github.com/conneskills/cs-agent-registry-api/pkg/telemetry"
)

// observer wraps every operation in a span, a metric and a log line.
type observer struct {
	logger  *slog.Logger
	metrics *telemetry.RegistryMetrics
	backend string
}

func (o *observer) do(ctx context.Context, kind core.Kind, op, id string, fn func(ctx context.Context) (string, error)) error {
	name := kind.Singular()
	attrs := append(telemetry.ResourceAttributes(name, id, op),
		attribute.String(telemetry.AttrStorageBackend, o.backend))
	ctx, span := telemetry.StartSpan(ctx, "registry."+name+"."+op, attrs...)

	resultID, err := fn(ctx)
	if resultID == "" {
		resultID = id
	}

	o.metrics.RecordOperation(ctx, name, op, err)
	telemetry.EndSpan(span, err)

	event := "registry." + name + "." + op
	switch {
	case err == nil:
		o.logger.DebugContext(ctx, event, slog.String("id", resultID))
	case isClientError(err):
		o.logger.InfoContext(ctx, event,
			slog.String("id", resultID),
			slog.String("code", string(errors.CodeOf(err))),
			slog.String("error", err.Error()),
		)
	default:
		o.logger.ErrorContext(ctx, event,
			slog.String("id", resultID),
			slog.String("code", string(errors.CodeOf(err))),
			slog.Any("error", err),
		)
	}
	return err
}

func isClientError(err error) bool {
	switch errors.CodeOf(err) {
	case errors.CodeNotFound, errors.CodeDuplicateID, errors.CodeInvalidInput, errors.CodeUnresolvedReference:
		return true
	}
	return false
}
