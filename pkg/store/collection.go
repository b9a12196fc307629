// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Record is satisfied by pointers to the core resource types.
type Record[T any] interface {
	*T
	core.Resource
}

// Collection is a typed view over one backend collection. Records are
// encoded as JSON on the way in and decoded on the way out, so callers never
// share memory with stored state.
type Collection[T any, PT Record[T]] struct {
	backend Backend
	kind    core.Kind
	clock   func() time.Time
	newID   func() string
}

// NewCollection binds a backend collection to a record type.
func NewCollection[T any, PT Record[T]](backend Backend, kind core.Kind) *Collection[T, PT] {
	return &Collection[T, PT]{
		backend: backend,
		kind:    kind,
		clock:   now,
		newID:   uuid.NewString,
	}
}

// Kind returns the collection kind.
func (c *Collection[T, PT]) Kind() core.Kind { return c.kind }

// Create stores item. An empty ID is replaced by a generated UUID.
func (c *Collection[T, PT]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	meta := PT(&item).Meta()
	id := strings.TrimSpace(meta.ID)
	if id == "" {
		id = c.newID()
	}
	at := c.clock()
	*meta = core.Metadata{ID: id, Version: 1, CreatedAt: at, UpdatedAt: at}

	data, err := json.Marshal(item)
	if err != nil {
		return zero, errors.New(errors.CodeInvalidInput, "encode "+c.kind.Singular(), err)
	}
	doc, err := c.backend.Insert(ctx, string(c.kind), Document{
		ID:        id,
		CreatedAt: at,
		UpdatedAt: at,
		Data:      data,
	})
	if err != nil {
		return zero, err
	}
	return c.decode(doc)
}

// Get returns the record stored under id.
func (c *Collection[T, PT]) Get(ctx context.Context, id string) (T, error) {
	doc, err := c.backend.Get(ctx, string(c.kind), id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(doc)
}

// List returns records in insertion order, keeping those accepted by every filter.
func (c *Collection[T, PT]) List(ctx context.Context, filters ...Filter[T]) ([]T, error) {
	docs, err := c.backend.List(ctx, string(c.kind))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		if matchAll(item, filters) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Update replaces every mutable field of the record stored under id and
// bumps its version. Identifier and creation time are preserved.
func (c *Collection[T, PT]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	meta := PT(&item).Meta()
	meta.ID = id

	data, err := json.Marshal(item)
	if err != nil {
		return zero, errors.New(errors.CodeInvalidInput, "encode "+c.kind.Singular(), err)
	}
	doc, err := c.backend.Replace(ctx, string(c.kind), id, data, c.clock())
	if err != nil {
		return zero, err
	}
	return c.decode(doc)
}

// Delete removes the record stored under id.
func (c *Collection[T, PT]) Delete(ctx context.Context, id string) error {
	return c.backend.Delete(ctx, string(c.kind), id)
}

func (c *Collection[T, PT]) decode(doc Document) (T, error) {
	var item T
	if err := json.Unmarshal(doc.Data, &item); err != nil {
		var zero T
		return zero, errors.New(errors.CodeInternal, "decode "+c.kind.Singular(), err).
			WithContext("id", doc.ID)
	}
	*PT(&item).Meta() = core.Metadata{
		ID:        doc.ID,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	return item, nil
}

func matchAll[T any](item T, filters []Filter[T]) bool {
	for _, keep := range filters {
		if keep != nil && !keep(item) {
			return false
		}
	}
	return true
}
