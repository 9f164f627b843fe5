// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine orchestrates the per-dispatch cycle over a
// [resource.Manager]: tasks mutate the resource graph through scoped
// update contexts, damaged resources are rebuilt in dependency order,
// and pending writes and command buffers are batched and submitted
// per device.
package engine

import (
	"context"
	"fmt"

	"github.com/cogentcore/wgpuengine/base/errors"
	"github.com/cogentcore/wgpuengine/entity"
	"github.com/cogentcore/wgpuengine/resource"
)

// TaskID identifies a task in the task graph. It doubles as the owner
// stamp on every resource the task registers.
type TaskID = resource.TaskID

// Tasker is the capability interface a task implements. Tasks declare
// GPU resources declaratively during [Tasker.Update] and report the
// command buffers they want submitted each dispatch.
type Tasker interface {
	// Name returns the task name, for logs.
	Name() string

	// Update is the one place task logic mutates the resource graph,
	// through the task-scoped context. Returning an error marks the
	// task broken; it is skipped on subsequent dispatches.
	Update(ctx *UpdateContext) error

	// CommandBuffers returns the ids of the command buffer resources
	// to submit this dispatch.
	CommandBuffers() []resource.ID
}

// TaskDescriptor describes a task: its name, whether it is broken,
// and the tasks it must run after. Task dependencies are ordering
// hints only; they imply no resource sharing.
type TaskDescriptor struct {
	Name         string
	Broken       bool
	Dependencies []TaskID
}

// Task is one node in the task graph.
type Task struct {
	desc TaskDescriptor
	impl Tasker
}

func (t *Task) Dependencies() []entity.ID { return t.desc.Dependencies }

// Descriptor returns the task's descriptor.
func (t *Task) Descriptor() TaskDescriptor { return t.desc }

// Impl returns the task's [Tasker] implementation.
func (t *Task) Impl() Tasker { return t.impl }

// TaskManager holds tasks in their own dependency graph and runs them
// in topological order each dispatch, collecting their resource
// writes and command buffers into a [Batch].
type TaskManager struct {
	tasks  *entity.Manager[*Task]
	rm     *resource.Manager
	events []ResourceEvent
}

// NewTaskManager returns a new [TaskManager] over the given resource
// manager.
func NewTaskManager(rm *resource.Manager) *TaskManager {
	return &TaskManager{tasks: entity.NewManager[*Task](), rm: rm}
}

// Resources returns the shared resource manager.
func (tm *TaskManager) Resources() *resource.Manager { return tm.rm }

// Create adds a task whose implementation is constructed by make with
// the task's own id, so tasks can stamp resources they create outside
// Update. It returns [entity.ErrMissingDependencies] if a declared
// task dependency does not exist.
func (tm *TaskManager) Create(name string, deps []TaskID, make func(id TaskID) Tasker) (TaskID, error) {
	t := &Task{desc: TaskDescriptor{Name: name, Dependencies: deps}}
	id, err := tm.tasks.Add(t)
	if err != nil {
		return 0, err
	}
	t.impl = make(id)
	return id, nil
}

// Remove removes the task at id. Resources it still owns are not
// removed; a task should release its resources before it is removed.
func (tm *TaskManager) Remove(id TaskID) error {
	return tm.tasks.Remove(id)
}

// Get returns the task at id, if present.
func (tm *TaskManager) Get(id TaskID) (*Task, bool) {
	return tm.tasks.Get(id)
}

// Len returns the number of tasks.
func (tm *TaskManager) Len() int { return tm.tasks.Len() }

// Commit visits every non-broken task in topological order, runs its
// Update with a context scoped to its id, and drains the accumulated
// writes and the task's command buffers into batch. A task returning
// an error is marked broken and logged; later tasks still run.
func (tm *TaskManager) Commit(ctx context.Context, batch *Batch) {
	for _, id := range tm.tasks.Topological() {
		if ctx.Err() != nil {
			errors.Log(ctx.Err())
			return
		}
		t, ok := tm.tasks.Get(id)
		if !ok || t.desc.Broken {
			continue
		}
		uc := &UpdateContext{task: id, rm: tm.rm, tm: tm}
		if err := t.impl.Update(uc); err != nil {
			t.desc.Broken = true
			errors.Log(fmt.Errorf("engine: task %q (id %d) failed, marking broken: %w", t.desc.Name, id, err))
			continue
		}
		for _, w := range uc.writes {
			batch.AddWrite(w)
		}
		for _, cb := range t.impl.CommandBuffers() {
			batch.AddCommandBuffer(cb)
		}
	}
}

// PushEvent appends a resource event to the shared feed, collapsing
// it if it is identical to the immediately preceding event. Only the
// last event is checked; this is not a full dedup.
func (tm *TaskManager) PushEvent(ev ResourceEvent) {
	if n := len(tm.events); n > 0 && tm.events[n-1] == ev {
		return
	}
	tm.events = append(tm.events, ev)
}

// Events returns the currently queued resource events.
func (tm *TaskManager) Events() []ResourceEvent {
	return append([]ResourceEvent{}, tm.events...)
}

// DrainEvents returns the queued resource events and clears the feed.
func (tm *TaskManager) DrainEvents() []ResourceEvent {
	evs := tm.events
	tm.events = nil
	return evs
}
