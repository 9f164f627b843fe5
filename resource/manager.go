// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cogentcore/wgpuengine/base/errors"
	"github.com/cogentcore/wgpuengine/entity"
)

var (
	// ErrMissingDependencies is returned when a descriptor references
	// a resource id not present in the graph.
	ErrMissingDependencies = entity.ErrMissingDependencies

	// ErrNotFound is returned by operations on an absent resource id.
	ErrNotFound = entity.ErrNotFound

	// ErrNotAnOwner is returned when removing a resource on behalf of
	// a task that does not own it.
	ErrNotAnOwner = errors.New("resource: task is not an owner")

	// ErrKindMismatch is returned when updating a resource with a
	// descriptor of a different kind.
	ErrKindMismatch = errors.New("resource: descriptor kind mismatch")
)

// Builder turns a descriptor into a live handle. It is the boundary
// to the concrete graphics API: given the descriptor and the manager
// to look up the already-built handles of the descriptor's declared
// dependencies, it produces a handle or fails. A failed build is
// never fatal; the resource stays damaged and is retried on the next
// commit.
type Builder interface {
	Build(ctx context.Context, m *Manager, id ID, d Descriptor) (Handle, error)
}

// Manager tracks GPU resources in a dependency graph with damage
// propagation, deduplicates structurally equal stateless descriptors
// with ownership reference counting, and rebuilds damaged resources
// in dependency order. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	nodes   *entity.DamageManager[Descriptor, Handle, *Resource]
	kinds   map[Kind]map[ID]struct{}
	builder Builder
}

// NewManager returns a new empty [Manager] building handles through b.
func NewManager(b Builder) *Manager {
	m := &Manager{
		nodes:   entity.NewDamageManager[Descriptor, Handle, *Resource](),
		kinds:   map[Kind]map[ID]struct{}{},
		builder: b,
	}
	for _, k := range Kinds {
		m.kinds[k] = map[ID]struct{}{}
	}
	return m
}

// Add registers the descriptor on behalf of owner and returns its
// resource id. For stateless kinds, an existing resource with an
// equal descriptor is reused: owner is added to its owner list and
// the existing id returned, so equal stateless descriptors always
// resolve to one underlying GPU object. New resources start damaged
// and are built on the next commit.
func (m *Manager) Add(owner TaskID, d Descriptor) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(owner, d, nil)
}

// AddWithHandle registers the descriptor with an already-built
// handle, so the resource starts out fixed. Deduplication applies as
// in [Manager.Add].
func (m *Manager) AddWithHandle(owner TaskID, d Descriptor, h Handle) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(owner, d, h)
}

func (m *Manager) add(owner TaskID, d Descriptor, h Handle) (ID, error) {
	if d.Kind().State() == Stateless {
		if id := m.searchCompatible(d, 0); id != 0 {
			n, _ := m.nodes.Get(id)
			n.AddOwner(owner)
			return id, nil
		}
	}
	var r *Resource
	if h != nil {
		r = NewResourceWithHandle(owner, d, h)
	} else {
		r = NewResource(owner, d)
	}
	id, err := m.nodes.Add(r)
	if err != nil {
		return 0, err
	}
	m.kinds[d.Kind()][id] = struct{}{}
	return id, nil
}

// Update replaces the descriptor of id on behalf of owner and returns
// the id the caller must use from now on. For stateless kinds the
// deduplication search runs again (excluding id itself): on a match,
// ownership migrates to the matching resource and its id is returned,
// which may differ from id. Otherwise the descriptor is replaced in
// place, damaging the resource and its dependents if the change
// requires a rebuild; an update to an equal descriptor changes
// nothing.
func (m *Manager) Update(owner TaskID, id ID, d Descriptor) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes.Get(id)
	if !ok {
		return 0, fmt.Errorf("%w: updating resource %d", ErrNotFound, id)
	}
	if n.Descriptor().Kind() != d.Kind() {
		return 0, fmt.Errorf("%w: resource %d is %v, descriptor is %v",
			ErrKindMismatch, id, n.Descriptor().Kind(), d.Kind())
	}
	if d.Kind().State() == Stateless {
		if match := m.searchCompatible(d, id); match != 0 {
			if err := m.removeOwner(owner, id); err != nil {
				return 0, err
			}
			mn, _ := m.nodes.Get(match)
			mn.AddOwner(owner)
			return match, nil
		}
	}
	if err := m.nodes.UpdateDescriptor(id, d); err != nil {
		return 0, err
	}
	return id, nil
}

// Remove drops owner's interest in id. Only when the last owner is
// removed is the resource actually deleted: its handle is released,
// its dependents are damaged, and its node leaves the graph.
func (m *Manager) Remove(owner TaskID, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeOwner(owner, id)
}

func (m *Manager) removeOwner(owner TaskID, id ID) error {
	n, ok := m.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: removing resource %d", ErrNotFound, id)
	}
	if !n.RemoveOwner(owner) {
		return fmt.Errorf("%w: task %d does not own resource %d", ErrNotAnOwner, owner, id)
	}
	if n.NumOwners() > 0 {
		return nil
	}
	if h, ok := m.nodes.TakeHandle(id); ok {
		if rel, ok := h.(releaser); ok {
			rel.Release()
		}
	}
	delete(m.kinds[n.Descriptor().Kind()], id)
	return m.nodes.Remove(id)
}

// searchCompatible returns the id of an existing same-kind resource
// with a descriptor equal to d, excluding exclude, or zero. Only
// called for stateless kinds.
func (m *Manager) searchCompatible(d Descriptor, exclude ID) ID {
	for id := range m.kinds[d.Kind()] {
		if id == exclude {
			continue
		}
		if n, ok := m.nodes.Get(id); ok && Equal(n.Descriptor(), d) {
			return id
		}
	}
	return 0
}

// Descriptor returns the descriptor of id, if present.
func (m *Manager) Descriptor(id ID) (Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes.Get(id)
	if !ok {
		return nil, false
	}
	return n.Descriptor(), true
}

// Handle returns the realized handle of id, or ok=false if id is
// absent or not built.
func (m *Manager) Handle(id ID) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes.Get(id)
	if !ok {
		return nil, false
	}
	return n.Handle()
}

// DescriptorAs returns the descriptor of id as concrete type D,
// or ok=false if id is absent or of another kind.
func DescriptorAs[D Descriptor](m *Manager, id ID) (D, bool) {
	d, ok := m.Descriptor(id)
	if !ok {
		var zero D
		return zero, false
	}
	cd, ok := d.(D)
	return cd, ok
}

// HandleAs returns the handle of id as concrete type H, or ok=false
// if id is absent, unbuilt, or of another handle type.
func HandleAs[H any](m *Manager, id ID) (H, bool) {
	h, ok := m.Handle(id)
	if !ok {
		var zero H
		return zero, false
	}
	ch, ok := h.(H)
	return ch, ok
}

// TakeHandle removes and returns the handle of id, re-damaging it and
// its dependents. Used for one-shot handles such as submitted command
// buffers.
func (m *Manager) TakeHandle(id ID) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodes.TakeHandle(id)
}

// IsDamaged reports whether id is currently damaged.
func (m *Manager) IsDamaged(id ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes.IsDamaged(id)
}

// Damage marks id and everything depending on it for rebuild.
func (m *Manager) Damage(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes.Damage(id)
}

// Owners returns the owning task ids of id.
func (m *Manager) Owners(id ID) []TaskID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes.Get(id)
	if !ok {
		return nil
	}
	return n.Owners()
}

// IDs returns the ids of all resources of the given kind, ascending.
func (m *Manager) IDs(kind Kind) []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]ID, 0, len(m.kinds[kind]))
	for id := range m.kinds[kind] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the total number of resources.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes.Len()
}

// Has reports whether id is a live resource.
func (m *Manager) Has(id ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes.Has(id)
}

// DeviceOf walks the dependency chain upward from id and returns the
// id of the Device resource it ultimately lives on, or zero for
// resources above the device level (instances, the devices' own
// instance). Used to route writes and command buffers to the right
// device queue.
func (m *Manager) DeviceOf(id ID) ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deviceOf(id, map[ID]struct{}{})
}

func (m *Manager) deviceOf(id ID, seen map[ID]struct{}) ID {
	if _, ok := seen[id]; ok {
		return 0
	}
	seen[id] = struct{}{}
	n, ok := m.nodes.Get(id)
	if !ok {
		return 0
	}
	switch n.Descriptor().Kind() {
	case Device:
		return id
	case Instance:
		return 0
	}
	for _, parent := range m.nodes.Parents(id) {
		if dev := m.deviceOf(parent, seen); dev != 0 {
			return dev
		}
	}
	return 0
}

// GraphString returns a graphviz-style rendering of the resource
// graph, for debugging.
func (m *Manager) GraphString() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes.GraphString()
}
