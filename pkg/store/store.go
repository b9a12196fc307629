// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides the registry's pluggable resource storage.
//
// A Backend persists opaque documents per collection; MemoryBackend keeps
// them in process memory and SQLBackend in a relational table. Collection
// layers typed records on top of any Backend, so the rest of the system is
// backend-agnostic.
//
// Both backends share one policy:
//
//   - creating an existing identifier fails with DUPLICATE_ID (never reassigned)
//   - get, update and delete of an absent identifier fail with NOT_FOUND,
//     including a second delete of the same identifier
//   - list returns documents in insertion order
//   - every update increments the version by one
//   - connectivity failures surface as STORAGE_UNAVAILABLE
package store

import (
	"context"
	"time"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
)

// Document is the stored form of one resource. Version and timestamps are
// authoritative over whatever the encoded Data says.
type Document struct {
	ID        string
	Version   int
	Seq       int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      []byte
}

func (d Document) clone() Document {
	out := d
	out.Data = append([]byte(nil), d.Data...)
	return out
}

// Backend is the storage contract shared by every implementation.
type Backend interface {
	// Insert stores a new document with version 1.
	Insert(ctx context.Context, collection string, doc Document) (Document, error)

	// Get returns the document stored under id.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns every document of the collection in insertion order.
	List(ctx context.Context, collection string) ([]Document, error)

	// Replace swaps the stored data, bumps the version and sets UpdatedAt.
	Replace(ctx context.Context, collection, id string, data []byte, at time.Time) (Document, error)

	// Delete removes the document.
	Delete(ctx context.Context, collection, id string) error

	// Type names the backend ("memory", "sqlite", "postgres").
	Type() string

	core.HealthChecker

	Close() error
}

// Filter narrows a typed list.
type Filter[T any] func(T) bool

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func singular(collection string) string {
	return core.Kind(collection).Singular()
}
