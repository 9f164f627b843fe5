// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import "github.com/cogentcore/wgpuengine/resource"

// UpdateContext is the capability object a task mutates the resource
// graph through. Every mutation is stamped with the owning task's id,
// so ownership reference counting stays consistent without the task
// passing its own id around. The context also accumulates the task's
// pending host-to-GPU writes and carries the shared resource event
// feed.
type UpdateContext struct {
	task   TaskID
	rm     *resource.Manager
	tm     *TaskManager
	writes []resource.Write
}

// Task returns the id of the task this context is scoped to.
func (c *UpdateContext) Task() TaskID { return c.task }

// Resources returns the shared resource manager for read access.
func (c *UpdateContext) Resources() *resource.Manager { return c.rm }

// Add registers a descriptor owned by this task. See
// [resource.Manager.Add].
func (c *UpdateContext) Add(d resource.Descriptor) (resource.ID, error) {
	return c.rm.Add(c.task, d)
}

// AddWithHandle registers a descriptor with an already-built handle.
// See [resource.Manager.AddWithHandle].
func (c *UpdateContext) AddWithHandle(d resource.Descriptor, h resource.Handle) (resource.ID, error) {
	return c.rm.AddWithHandle(c.task, d, h)
}

// Update replaces the descriptor of id and returns the id to use from
// now on, which differs from id when deduplication migrates ownership
// to an existing equal resource. See [resource.Manager.Update].
func (c *UpdateContext) Update(id resource.ID, d resource.Descriptor) (resource.ID, error) {
	return c.rm.Update(c.task, id, d)
}

// Remove drops this task's ownership of id. See
// [resource.Manager.Remove].
func (c *UpdateContext) Remove(id resource.ID) error {
	return c.rm.Remove(c.task, id)
}

// Descriptor returns the descriptor of id, if present.
func (c *UpdateContext) Descriptor(id resource.ID) (resource.Descriptor, bool) {
	return c.rm.Descriptor(id)
}

// Handle returns the realized handle of id, if built.
func (c *UpdateContext) Handle(id resource.ID) (resource.Handle, bool) {
	return c.rm.Handle(id)
}

// IsDamaged reports whether id is waiting to be rebuilt.
func (c *UpdateContext) IsDamaged(id resource.ID) bool {
	return c.rm.IsDamaged(id)
}

// Damage marks id and its dependents for rebuild.
func (c *UpdateContext) Damage(id resource.ID) {
	c.rm.Damage(id)
}

// DeviceOf returns the Device resource id that id ultimately lives
// on, or zero.
func (c *UpdateContext) DeviceOf(id resource.ID) resource.ID {
	return c.rm.DeviceOf(id)
}

// Write queues a host-to-GPU data upload, applied through the owning
// device's queue before this dispatch's command buffers are
// submitted.
func (c *UpdateContext) Write(w resource.Write) {
	c.writes = append(c.writes, w)
}

// PushEvent emits a resource event to the shared feed. Consecutive
// identical events are collapsed.
func (c *UpdateContext) PushEvent(ev ResourceEvent) {
	c.tm.PushEvent(ev)
}

// Events returns the resource events currently queued on the shared
// feed.
func (c *UpdateContext) Events() []ResourceEvent {
	return c.tm.Events()
}
