// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"
	"time"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// MemoryBackend implements Backend with in-process storage.
// Suitable for development and tests. Data is lost on restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	seq         int64
}

type memoryCollection struct {
	order []string
	docs  map[string]Document
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]*memoryCollection),
	}
}

// Insert stores a new document.
func (m *MemoryBackend) Insert(_ context.Context, collection string, doc Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collection(collection)
	if _, exists := coll.docs[doc.ID]; exists {
		return Document{}, errors.Duplicate(singular(collection), doc.ID)
	}

	m.seq++
	doc = doc.clone()
	doc.Version = 1
	doc.Seq = m.seq
	coll.docs[doc.ID] = doc
	coll.order = append(coll.order, doc.ID)
	return doc.clone(), nil
}

// Get returns a copy of the stored document.
func (m *MemoryBackend) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return Document{}, errors.NotFound(singular(collection), id)
	}
	doc, ok := coll.docs[id]
	if !ok {
		return Document{}, errors.NotFound(singular(collection), id)
	}
	return doc.clone(), nil
}

// List returns copies of all documents in insertion order.
func (m *MemoryBackend) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	out := make([]Document, 0, len(coll.order))
	for _, id := range coll.order {
		out = append(out, coll.docs[id].clone())
	}
	return out, nil
}

// Replace swaps the document data and bumps its version.
func (m *MemoryBackend) Replace(_ context.Context, collection, id string, data []byte, at time.Time) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		return Document{}, errors.NotFound(singular(collection), id)
	}
	doc, ok := coll.docs[id]
	if !ok {
		return Document{}, errors.NotFound(singular(collection), id)
	}
	doc.Version++
	doc.UpdatedAt = at
	doc.Data = append([]byte(nil), data...)
	coll.docs[id] = doc
	return doc.clone(), nil
}

// Delete removes a document. Deleting an absent id is NOT_FOUND.
func (m *MemoryBackend) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		return errors.NotFound(singular(collection), id)
	}
	if _, ok := coll.docs[id]; !ok {
		return errors.NotFound(singular(collection), id)
	}
	delete(coll.docs, id)
	for i, existing := range coll.order {
		if existing == id {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	return nil
}

// Type implements Backend.
func (m *MemoryBackend) Type() string { return "memory" }

// Check reports the backend as always healthy.
func (m *MemoryBackend) Check(_ context.Context) core.HealthResult {
	return core.HealthResult{
		Status:    core.HealthHealthy,
		Message:   "in-memory storage",
		Details:   map[string]string{"type": m.Type(), "status": "ok"},
		LastCheck: time.Now(),
	}
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

// collection returns the named collection, creating it. Must be called under lock.
func (m *MemoryBackend) collection(name string) *memoryCollection {
	coll, ok := m.collections[name]
	if !ok {
		coll = &memoryCollection{docs: make(map[string]Document)}
		m.collections[name] = coll
	}
	return coll
}
