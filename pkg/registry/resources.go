// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
)

// Resources exposes CRUD for one directly stored kind (everything but agents).
type Resources[T any, PT store.Record[T]] struct {
	coll *store.Collection[T, PT]
	obs  *observer
	tags func(T) []string

	// prepare normalizes a record before it is written.
	prepare func(T) T
	// afterWrite runs after a successful create or update.
	afterWrite func(context.Context, T)
}

func newResources[T any, PT store.Record[T]](backend store.Backend, kind core.Kind, obs *observer, tags func(T) []string) *Resources[T, PT] {
	return &Resources[T, PT]{
		coll: store.NewCollection[T, PT](backend, kind),
		obs:  obs,
		tags: tags,
	}
}

// Kind returns the collection kind.
func (r *Resources[T, PT]) Kind() core.Kind { return r.coll.Kind() }

// Create validates and stores item.
func (r *Resources[T, PT]) Create(ctx context.Context, item T) (T, error) {
	var out T
	err := r.obs.do(ctx, r.Kind(), "create", PT(&item).Meta().ID, func(ctx context.Context) (string, error) {
		if err := validate(item); err != nil {
			return "", err
		}
		var err error
		out, err = r.coll.Create(ctx, r.normalize(item))
		if err != nil {
			return "", err
		}
		return PT(&out).Meta().ID, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	r.notify(ctx, out)
	return out, nil
}

// Get returns the record stored under id.
func (r *Resources[T, PT]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.obs.do(ctx, r.Kind(), "get", id, func(ctx context.Context) (string, error) {
		var err error
		out, err = r.coll.Get(ctx, id)
		return "", err
	})
	return out, err
}

// List returns records in creation order. A non-empty tag keeps only records
// carrying it (case-insensitive).
func (r *Resources[T, PT]) List(ctx context.Context, tag string) ([]T, error) {
	var out []T
	err := r.obs.do(ctx, r.Kind(), "list", "", func(ctx context.Context) (string, error) {
		var err error
		out, err = r.coll.List(ctx, r.tagFilter(tag))
		return "", err
	})
	return out, err
}

// Update replaces the record stored under id.
func (r *Resources[T, PT]) Update(ctx context.Context, id string, item T) (T, error) {
	var out T
	err := r.obs.do(ctx, r.Kind(), "update", id, func(ctx context.Context) (string, error) {
		if err := validate(item); err != nil {
			return "", err
		}
		var err error
		out, err = r.coll.Update(ctx, id, r.normalize(item))
		return "", err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	r.notify(ctx, out)
	return out, nil
}

// Delete removes the record stored under id.
func (r *Resources[T, PT]) Delete(ctx context.Context, id string) error {
	return r.obs.do(ctx, r.Kind(), "delete", id, func(ctx context.Context) (string, error) {
		return "", r.coll.Delete(ctx, id)
	})
}

func (r *Resources[T, PT]) normalize(item T) T {
	if r.prepare != nil {
		return r.prepare(item)
	}
	return item
}

func (r *Resources[T, PT]) notify(ctx context.Context, item T) {
	if r.afterWrite != nil {
		r.afterWrite(ctx, item)
	}
}

func (r *Resources[T, PT]) tagFilter(tag string) store.Filter[T] {
	if tag == "" || r.tags == nil {
		return nil
	}
	return func(item T) bool { return core.HasTag(r.tags(item), tag) }
}

func validate(v any) error {
	if val, ok := v.(core.Validator); ok {
		return val.Validate()
	}
	return nil
}
