// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entity

import (
	"fmt"
	"log/slog"
)

// Node is a damage-tracked entity: a descriptor of type D saying what
// the entity should be, and an optional handle of type H holding what
// it currently is. The handle is absent exactly when the entity is
// damaged or has never been built.
type Node[D, H any] interface {
	Entity

	// Descriptor returns the current descriptor.
	Descriptor() D

	// SetDescriptor replaces the descriptor.
	SetDescriptor(d D)

	// NeedsRebuild reports whether replacing the current descriptor
	// with d requires the handle to be rebuilt.
	NeedsRebuild(d D) bool

	// Handle returns the current handle, if one has been built.
	Handle() (H, bool)

	// SetHandle installs a freshly built handle.
	SetHandle(h H)

	// TakeHandle removes and returns the handle, if present.
	TakeHandle() (H, bool)
}

// DamageManager wraps a graph [Manager] with a damage set: the ids
// whose handles are absent or stale and must be rebuilt before next
// use. Damage always propagates forward to every transitive dependent,
// and propagation is idempotent within a build cycle.
type DamageManager[D, H any, N Node[D, H]] struct {
	*Manager[N]

	damaged map[ID]struct{}
}

// NewDamageManager returns a new empty [DamageManager].
func NewDamageManager[D, H any, N Node[D, H]]() *DamageManager[D, H, N] {
	return &DamageManager[D, H, N]{
		Manager: NewManager[N](),
		damaged: map[ID]struct{}{},
	}
}

// Add inserts a new entity as [Manager.Add] does. If the entity has no
// handle yet, the new id starts out damaged.
func (dm *DamageManager[D, H, N]) Add(n N) (ID, error) {
	id, err := dm.Manager.Add(n)
	if err != nil {
		return 0, err
	}
	if _, ok := n.Handle(); !ok {
		dm.damaged[id] = struct{}{}
	}
	return id, nil
}

// Remove removes the entity at id and drops it from the damage set.
func (dm *DamageManager[D, H, N]) Remove(id ID) error {
	if err := dm.Manager.Remove(id); err != nil {
		return err
	}
	delete(dm.damaged, id)
	return nil
}

// Damage marks id and everything transitively depending on it as
// damaged, via breadth-first traversal over forward edges. If id is
// already damaged, a previous traversal has already covered its
// dependents, so the call logs and is a no-op.
func (dm *DamageManager[D, H, N]) Damage(id ID) {
	if !dm.Has(id) {
		slog.Warn("entity: not damaging missing entity", "id", id)
		return
	}
	if dm.IsDamaged(id) {
		slog.Debug("entity: already damaged", "id", id)
		return
	}
	for _, r := range dm.Reachable(id) {
		dm.damaged[r] = struct{}{}
	}
}

// Fix removes id from the damage set, after its handle has been
// successfully rebuilt.
func (dm *DamageManager[D, H, N]) Fix(id ID) {
	delete(dm.damaged, id)
}

// IsDamaged reports whether id is currently damaged.
func (dm *DamageManager[D, H, N]) IsDamaged(id ID) bool {
	_, ok := dm.damaged[id]
	return ok
}

// Damaged returns the currently damaged ids in ascending order.
func (dm *DamageManager[D, H, N]) Damaged() []ID {
	return sortedKeys(dm.damaged)
}

// SetHandle installs a freshly built handle on id and fixes it.
func (dm *DamageManager[D, H, N]) SetHandle(id ID, h H) error {
	n, ok := dm.Get(id)
	if !ok {
		return fmt.Errorf("%w: setting handle on entity %d", ErrNotFound, id)
	}
	n.SetHandle(h)
	dm.Fix(id)
	return nil
}

// TakeHandle removes and returns the handle of id, re-damaging id and
// its dependents, since consuming the handle leaves the entity
// unbuilt. It returns ok=false if id is absent or has no handle.
func (dm *DamageManager[D, H, N]) TakeHandle(id ID) (H, bool) {
	n, ok := dm.Get(id)
	if !ok {
		var zero H
		return zero, false
	}
	h, ok := n.TakeHandle()
	if !ok {
		var zero H
		return zero, false
	}
	dm.Damage(id)
	return h, true
}

// UpdateDescriptor replaces the descriptor of id, reconciling
// dependency edges, and damages id and its dependents if the entity
// reports that the change requires a rebuild. An update to an
// equivalent descriptor neither damages nor rebuilds anything.
func (dm *DamageManager[D, H, N]) UpdateDescriptor(id ID, d D) error {
	n, ok := dm.Get(id)
	if !ok {
		return fmt.Errorf("%w: updating descriptor of entity %d", ErrNotFound, id)
	}
	needs := n.NeedsRebuild(d)
	old := n.Descriptor()
	n.SetDescriptor(d)
	if err := dm.Update(id, n); err != nil {
		n.SetDescriptor(old)
		return err
	}
	if needs {
		dm.Damage(id)
	}
	return nil
}
