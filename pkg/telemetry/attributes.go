// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration for the registry:
// exporter setup, trace-aware logging, span helpers and metrics.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Semantic conventions for registry telemetry.
const (
	// Resource attributes
	AttrResourceKind    = "registry.resource.kind"
	AttrResourceID      = "registry.resource.id"
	AttrResourceVersion = "registry.resource.version"
	AttrOperation       = "registry.operation"

	// Storage attributes
	AttrStorageBackend = "registry.storage.backend"

	// Resolution attributes
	AttrResolveSkills = "registry.resolve.skills"
	AttrResolveTools  = "registry.resolve.tools"
	AttrResolveRAG    = "registry.resolve.rag_configs"

	// Discovery attributes
	AttrDiscoveryQuery   = "registry.discovery.query"
	AttrDiscoveryTerms   = "registry.discovery.terms"
	AttrDiscoveryMatched = "registry.discovery.matched"
	AttrDiscoveryAgentID = "registry.discovery.agent_id"
	AttrDiscoveryScore   = "registry.discovery.score"

	// Prompt sync attributes
	AttrPromptSyncPromptID = "registry.promptsync.prompt_id"
	AttrPromptSyncAttempts = "registry.promptsync.attempts"
	AttrPromptSyncOutcome  = "registry.promptsync.outcome"

	// Error attributes
	AttrErrorCode        = "error.code"
	AttrErrorRecoverable = "error.recoverable"
)

// ResourceAttributes returns attributes for a store operation span.
func ResourceAttributes(kind, id, op string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrResourceKind, kind),
		attribute.String(AttrOperation, op),
	}
	if id != "" {
		attrs = append(attrs, attribute.String(AttrResourceID, id))
	}
	return attrs
}

// ResolveAttributes returns the reference counts of an agent request.
func ResolveAttributes(skills, tools, rag int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrResolveSkills, skills),
		attribute.Int(AttrResolveTools, tools),
		attribute.Int(AttrResolveRAG, rag),
	}
}

// DiscoveryAttributes returns attributes for a discovery span. The query is
// truncated to keep span payloads small.
func DiscoveryAttributes(query string, terms int, agentID string, score int) []attribute.KeyValue {
	if len(query) > 200 {
		query = query[:200] + "..."
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrDiscoveryQuery, query),
		attribute.Int(AttrDiscoveryTerms, terms),
		attribute.Bool(AttrDiscoveryMatched, agentID != ""),
	}
	if agentID != "" {
		attrs = append(attrs,
			attribute.String(AttrDiscoveryAgentID, agentID),
			attribute.Int(AttrDiscoveryScore, score),
		)
	}
	return attrs
}

// PromptSyncAttributes returns attributes for a prompt push.
func PromptSyncAttributes(promptID string, attempts int, outcome string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPromptSyncPromptID, promptID),
	}
	if attempts > 0 {
		attrs = append(attrs, attribute.Int(AttrPromptSyncAttempts, attempts))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(AttrPromptSyncOutcome, outcome))
	}
	return attrs
}

// ErrorAttributes returns the code and recoverability of err.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	re := errors.AsRegistryError(err)
	attrs := []attribute.KeyValue{
		attribute.String(AttrErrorCode, string(re.Code)),
		attribute.Bool(AttrErrorRecoverable, re.Recoverable),
	}
	for k, v := range re.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
