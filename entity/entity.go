// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package entity implements a generic dependency graph with damage
// tracking: entities declare the ids of other entities they depend on,
// edges run from the depended-upon entity to the dependent one, and a
// change to any entity can be propagated forward to everything that
// transitively depends on it. Build order comes from a deterministic
// topological traversal that always visits dependencies first.
package entity

import "github.com/cogentcore/wgpuengine/base/errors"

// ID is an opaque identity for an entity in a [Manager] graph.
// The zero value is never a valid id. IDs are allocated from a
// monotonic counter and are never reused after removal, so a stale
// id can never alias a newer entity.
type ID int64

// Entity is the minimal interface the graph requires: an entity
// must be able to report the ids of the entities it depends on.
type Entity interface {
	// Dependencies returns the ids of the entities this entity
	// structurally refers to. All of them must already exist in the
	// graph when the entity is added or updated.
	Dependencies() []ID
}

var (
	// ErrMissingDependencies is returned when an entity is added or
	// updated while declaring a dependency id not present in the graph.
	ErrMissingDependencies = errors.New("entity: missing dependencies")

	// ErrNotFound is returned by operations on an id that is not in
	// the graph.
	ErrNotFound = errors.New("entity: not found")

	// ErrCycle is returned when an update declares a dependency that
	// would make the graph cyclic. Cyclic entities have no valid
	// build order.
	ErrCycle = errors.New("entity: dependency cycle")
)
