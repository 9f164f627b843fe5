// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cogentcore/wgpuengine/base/errors"
)

// ErrDependencyFailed is reported for a resource whose build was
// skipped because one of its dependencies failed to build in the same
// commit. The resource stays damaged and is retried next commit.
var ErrDependencyFailed = errors.New("resource: dependency failed to build")

// buildEntry is one damaged resource scheduled for rebuilding,
// captured with its dependency ids at planning time.
type buildEntry struct {
	id   ID
	deps []ID
}

// plan captures all damaged resources in deterministic topological
// order, dependencies before dependents.
func (m *Manager) plan() []buildEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []buildEntry
	for _, id := range m.nodes.Topological() {
		if m.nodes.IsDamaged(id) {
			entries = append(entries, buildEntry{id: id, deps: m.nodes.Parents(id)})
		}
	}
	return entries
}

func (m *Manager) setHandle(id ID, h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// rebuilds can return the same handle (reconfigured swapchains)
	if old, ok := m.nodes.TakeHandle(id); ok && old != h {
		if rel, ok := old.(releaser); ok {
			rel.Release()
		}
	}
	errors.Log(m.nodes.SetHandle(id, h))
}

// Commit walks all damaged resources in dependency order and rebuilds
// each through the [Builder]: the builder sees the descriptor and the
// already-built handles of the resource's dependencies, which the
// build order guarantees were rebuilt earlier in the same walk. A
// build failure is logged and the resource left damaged, to be
// retried on the next commit; dependents of a failed build are
// skipped the same way. Commit reports whether no damage remains.
func (m *Manager) Commit(ctx context.Context) bool {
	if m.builder == nil {
		errors.Log(errors.New("resource: commit with no builder"))
		return false
	}
	for _, e := range m.plan() {
		if ctx.Err() != nil {
			errors.Log(ctx.Err())
			break
		}
		d, ok := m.Descriptor(e.id)
		if !ok { // removed by an earlier build's side effects
			continue
		}
		if dep, ok := m.damagedDep(e.deps); ok {
			slog.Debug("resource: skipping build, dependency still damaged",
				"id", e.id, "kind", d.Kind(), "dependency", dep)
			continue
		}
		h, err := m.builder.Build(ctx, m, e.id, d)
		if err != nil {
			errors.Log(fmt.Errorf("resource: building %v %q (id %d): %w", d.Kind(), d.Label(), e.id, err))
			continue
		}
		m.setHandle(e.id, h)
	}
	return len(m.Damaged()) == 0
}

// Damaged returns the currently damaged resource ids, ascending.
func (m *Manager) Damaged() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes.Damaged()
}

func (m *Manager) damagedDep(deps []ID) (ID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dep := range deps {
		if m.nodes.IsDamaged(dep) {
			return dep, true
		}
	}
	return 0, false
}

// buildSignal broadcasts the completion of one concurrent build.
// err is written before done is closed and read only after.
type buildSignal struct {
	done chan struct{}
	err  error
}

func (s *buildSignal) finish(err error) {
	s.err = err
	close(s.done)
}

// CommitConcurrent is [Manager.Commit] with the builds running
// concurrently: each damaged resource becomes a goroutine that waits
// for the completion signal of every dependency being rebuilt in the
// same commit, builds, then broadcasts its own completion. A failed
// dependency propagates [ErrDependencyFailed] to its waiters, which
// skip their builds and propagate in turn; nothing panics and nothing
// is cancelled once started. The ordering guarantee is the same as
// the serial commit: no resource starts building before all of its
// dependencies have finished, successfully or not.
func (m *Manager) CommitConcurrent(ctx context.Context) bool {
	if m.builder == nil {
		errors.Log(errors.New("resource: commit with no builder"))
		return false
	}
	entries := m.plan()
	sigs := make(map[ID]*buildSignal, len(entries))
	for _, e := range entries {
		sigs[e.id] = &buildSignal{done: make(chan struct{})}
	}
	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e buildEntry) {
			defer wg.Done()
			sig := sigs[e.id]
			for _, dep := range e.deps {
				ds, ok := sigs[dep]
				if !ok {
					continue // not damaged, already built
				}
				select {
				case <-ctx.Done():
					sig.finish(ctx.Err())
					return
				case <-ds.done:
				}
				if ds.err != nil {
					slog.Debug("resource: skipping build, dependency failed",
						"id", e.id, "dependency", dep)
					sig.finish(fmt.Errorf("%w: %d", ErrDependencyFailed, dep))
					return
				}
			}
			d, ok := m.Descriptor(e.id)
			if !ok {
				sig.finish(fmt.Errorf("%w: %d", ErrNotFound, e.id))
				return
			}
			h, err := m.builder.Build(ctx, m, e.id, d)
			if err != nil {
				errors.Log(fmt.Errorf("resource: building %v %q (id %d): %w", d.Kind(), d.Label(), e.id, err))
				sig.finish(err)
				return
			}
			m.setHandle(e.id, h)
			sig.finish(nil)
		}(e)
	}
	wg.Wait()
	return len(m.Damaged()) == 0
}
