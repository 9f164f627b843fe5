// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entity

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Manager is a generic dependency graph over entities of type N.
// Edges always run from the depended-upon entity to the dependent one,
// so the forward direction is "toward consumers": breadth-first
// traversal from a changed node reaches everything that must react,
// and topological order visits dependencies before dependents.
type Manager[N Entity] struct {
	nextID ID
	nodes  map[ID]N

	// out maps an entity to its dependents, in maps an entity to its
	// dependencies. The two are mirror images and are always mutated
	// together.
	out map[ID]map[ID]struct{}
	in  map[ID]map[ID]struct{}
}

// NewManager returns a new empty graph [Manager].
func NewManager[N Entity]() *Manager[N] {
	return &Manager[N]{
		nodes: map[ID]N{},
		out:   map[ID]map[ID]struct{}{},
		in:    map[ID]map[ID]struct{}{},
	}
}

// Len returns the number of entities in the graph.
func (m *Manager[N]) Len() int {
	return len(m.nodes)
}

// Has reports whether id is present in the graph.
func (m *Manager[N]) Has(id ID) bool {
	_, ok := m.nodes[id]
	return ok
}

// Get returns the entity for id, if present.
func (m *Manager[N]) Get(id ID) (N, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Add inserts a new entity, allocating a fresh id and adding one edge
// from each declared dependency to the new entity. It returns
// [ErrMissingDependencies], leaving the graph unchanged, if any
// declared dependency is not present.
func (m *Manager[N]) Add(n N) (ID, error) {
	deps := n.Dependencies()
	for _, d := range deps {
		if !m.Has(d) {
			return 0, fmt.Errorf("%w: adding entity with unknown dependency %d", ErrMissingDependencies, d)
		}
	}
	m.nextID++
	id := m.nextID
	m.nodes[id] = n
	m.out[id] = map[ID]struct{}{}
	m.in[id] = map[ID]struct{}{}
	for _, d := range deps {
		m.AddEdge(d, id)
	}
	return id, nil
}

// Update replaces the entity stored at id with n and reconciles the
// dependency edges: edges to dependencies no longer declared are
// removed, edges to newly declared dependencies are added. It returns
// [ErrNotFound] if id is absent, and, with the graph unchanged,
// [ErrMissingDependencies] if a newly declared dependency does not
// exist or [ErrCycle] if a declared dependency is id itself or
// anything downstream of it.
func (m *Manager[N]) Update(id ID, n N) error {
	old, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: updating entity %d", ErrNotFound, id)
	}
	deps := n.Dependencies()
	for _, d := range deps {
		if !m.Has(d) {
			return fmt.Errorf("%w: updating entity %d with unknown dependency %d", ErrMissingDependencies, id, d)
		}
	}
	downstream := m.Reachable(id)
	for _, d := range deps {
		if slices.Contains(downstream, d) {
			return fmt.Errorf("%w: entity %d depending on %d", ErrCycle, id, d)
		}
	}
	before := map[ID]struct{}{}
	for _, d := range old.Dependencies() {
		before[d] = struct{}{}
	}
	after := map[ID]struct{}{}
	for _, d := range deps {
		after[d] = struct{}{}
	}
	for d := range before {
		if _, ok := after[d]; !ok {
			m.RemoveEdge(d, id)
		}
	}
	for d := range after {
		if _, ok := before[d]; !ok {
			m.AddEdge(d, id)
		}
	}
	m.nodes[id] = n
	return nil
}

// Remove removes the entity at id along with all of its incident
// edges. Removing an entity that others still depend on is not blocked
// at this layer; callers wanting that protection must check
// [Manager.Children] first.
func (m *Manager[N]) Remove(id ID) error {
	if !m.Has(id) {
		return fmt.Errorf("%w: removing entity %d", ErrNotFound, id)
	}
	for dep := range m.in[id] {
		delete(m.out[dep], id)
	}
	for child := range m.out[id] {
		delete(m.in[child], id)
	}
	delete(m.nodes, id)
	delete(m.out, id)
	delete(m.in, id)
	return nil
}

// AddEdge adds a dependency edge from entity from to entity to.
// Adding an edge that already exists, or whose endpoints are missing,
// logs and is otherwise a no-op.
func (m *Manager[N]) AddEdge(from, to ID) {
	if !m.Has(from) || !m.Has(to) {
		slog.Warn("entity: not adding edge with missing endpoint", "from", from, "to", to)
		return
	}
	if _, ok := m.out[from][to]; ok {
		slog.Debug("entity: edge already exists", "from", from, "to", to)
		return
	}
	m.out[from][to] = struct{}{}
	m.in[to][from] = struct{}{}
}

// RemoveEdge removes the dependency edge from entity from to entity
// to, if it exists.
func (m *Manager[N]) RemoveEdge(from, to ID) {
	if _, ok := m.out[from]; ok {
		delete(m.out[from], to)
	}
	if _, ok := m.in[to]; ok {
		delete(m.in[to], from)
	}
}

// Parents returns the ids that id depends on (entities with an edge
// into id), in ascending order.
func (m *Manager[N]) Parents(id ID) []ID {
	return sortedKeys(m.in[id])
}

// Children returns the ids that depend on id (entities with an edge
// out of id), in ascending order.
func (m *Manager[N]) Children(id ID) []ID {
	return sortedKeys(m.out[id])
}

// IDs returns all entity ids in ascending order.
func (m *Manager[N]) IDs() []ID {
	return sortedKeys(m.nodes)
}

// Topological returns all entity ids in a deterministic topological
// order: every entity appears after all of its dependencies, with ties
// broken by ascending id.
func (m *Manager[N]) Topological() []ID {
	indeg := map[ID]int{}
	for id := range m.nodes {
		indeg[id] = len(m.in[id])
	}
	var ready []ID
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)
	order := make([]ID, 0, len(m.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, child := range m.Children(id) {
			indeg[child]--
			if indeg[child] == 0 {
				at, _ := slices.BinarySearch(ready, child)
				ready = slices.Insert(ready, at, child)
			}
		}
	}
	if len(order) < len(m.nodes) {
		slog.Error("entity: graph contains a cycle, omitting cyclic entities from order", "omitted", len(m.nodes)-len(order))
	}
	return order
}

// Reachable returns id and every entity reachable from it by
// following dependency edges forward (toward dependents), in
// breadth-first order. It returns nil if id is absent.
func (m *Manager[N]) Reachable(id ID) []ID {
	if !m.Has(id) {
		return nil
	}
	seen := map[ID]struct{}{id: {}}
	queue := []ID{id}
	var order []ID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, child := range m.Children(cur) {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return order
}

// GraphString returns a graphviz-style rendering of the graph,
// for debugging.
func (m *Manager[N]) GraphString() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for _, id := range m.IDs() {
		fmt.Fprintf(&b, "\t%d [label=%q];\n", id, fmt.Sprintf("%v", any(m.nodes[id])))
	}
	for _, id := range m.IDs() {
		for _, child := range m.Children(id) {
			fmt.Fprintf(&b, "\t%d -> %d;\n", id, child)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func sortedKeys[V any](m map[ID]V) []ID {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
