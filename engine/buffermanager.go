// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/wgpuengine/base/errors"
	"github.com/cogentcore/wgpuengine/resource"
)

// growSlots is how many slots the backing buffer grows by when full.
const growSlots = 32

type bufferSlot[A any] struct {
	slot int
	aux  A
}

// BufferManager packs many fixed-stride elements into one growable
// GPU buffer, handing out slots keyed by caller-chosen ids. Removing
// an element swap-moves the last slot into the hole on the GPU, via a
// one-slot support buffer, so the live slots stay dense. Writes and
// copies accumulate between frames; [BufferManager.Update] flushes
// them through the task's context each dispatch, growing and
// rebuilding the buffer first when requests overflowed its capacity.
// The auxiliary value A travels with each element, typically the CPU
// side of the packed data.
type BufferManager[A any] struct {
	label   string
	device  resource.ID
	buffer  resource.ID
	support resource.ID
	desc    resource.BufferDescriptor
	stride  uint64
	rebuild bool

	slots  map[int]bufferSlot[A]
	copies []resource.Command
	writes []resource.BufferWrite
}

// NewBufferManager declares the backing and support buffers through
// ctx, owned by its task. Elements are stride bytes each; the buffer
// starts with room for capacity of them. usage is or-ed with the copy
// usages the swap-removes need.
func NewBufferManager[A any](ctx *UpdateContext, label string, device resource.ID, stride uint64, capacity int, usage wgpu.BufferUsage) (*BufferManager[A], error) {
	m := &BufferManager[A]{
		label:  label,
		device: device,
		stride: stride,
		slots:  map[int]bufferSlot[A]{},
		desc: resource.BufferDescriptor{
			Name:   label + " buffer",
			Device: device,
			Size:   stride * uint64(capacity),
			Usage:  usage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		},
	}
	var err error
	d := m.desc
	if m.buffer, err = ctx.Add(&d); err != nil {
		return nil, err
	}
	m.support, err = ctx.Add(&resource.BufferDescriptor{
		Name:   label + " support buffer",
		Device: device,
		Size:   stride,
		Usage:  wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Buffer returns the backing buffer's resource id.
func (m *BufferManager[A]) Buffer() resource.ID { return m.buffer }

// Len returns the number of live elements.
func (m *BufferManager[A]) Len() int { return len(m.slots) }

// Size returns the bytes occupied by live elements.
func (m *BufferManager[A]) Size() uint64 { return uint64(len(m.slots)) * m.stride }

// Capacity returns how many elements fit before the buffer must grow.
func (m *BufferManager[A]) Capacity() int { return int(m.desc.Size / m.stride) }

// Keys returns the live element keys in ascending order.
func (m *BufferManager[A]) Keys() []int {
	keys := make([]int, 0, len(m.slots))
	for k := range m.slots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Request allocates the next slot for key, queues the initial element
// write, and stores aux alongside. When the buffer is full its
// descriptor grows; the realloc happens on the next [Update].
func (m *BufferManager[A]) Request(key int, aux A, data []byte) {
	if _, ok := m.slots[key]; ok {
		errors.Log(fmt.Errorf("engine: %s: requesting key %d twice", m.label, key))
		return
	}
	if len(m.slots) >= m.Capacity() {
		m.desc.Size += m.stride * growSlots
		m.rebuild = true
	}
	m.slots[key] = bufferSlot[A]{slot: len(m.slots), aux: aux}
	m.Write(key, 0, data)
}

// Release frees key's slot and returns its auxiliary value. Unless
// the slot was the last one, the last element is swap-moved into the
// hole with a round trip through the support buffer, queued for the
// next [Update].
func (m *BufferManager[A]) Release(key int) (A, bool) {
	removed, ok := m.slots[key]
	if !ok {
		errors.Log(fmt.Errorf("engine: %s: releasing unknown key %d", m.label, key))
		var zero A
		return zero, false
	}
	delete(m.slots, key)
	last := len(m.slots)
	if removed.slot == last {
		return removed.aux, true
	}
	for k, s := range m.slots {
		if s.slot == last {
			s.slot = removed.slot
			m.slots[k] = s
			break
		}
	}
	m.copies = append(m.copies,
		&resource.CopyBufferToBuffer{
			Source:       m.buffer,
			SourceOffset: uint64(last) * m.stride,
			Destination:  m.support,
			Size:         m.stride,
		},
		&resource.CopyBufferToBuffer{
			Source:            m.support,
			Destination:       m.buffer,
			DestinationOffset: uint64(removed.slot) * m.stride,
			Size:              m.stride,
		},
	)
	return removed.aux, true
}

// Write queues data at a byte offset within key's slot. Writes past
// the slot's stride are logged and dropped.
func (m *BufferManager[A]) Write(key int, offset uint64, data []byte) bool {
	s, ok := m.slots[key]
	if !ok {
		errors.Log(fmt.Errorf("engine: %s: writing unknown key %d", m.label, key))
		return false
	}
	if offset+uint64(len(data)) > m.stride {
		errors.Log(fmt.Errorf("engine: %s: write of %d bytes at offset %d exceeds stride %d", m.label, len(data), offset, m.stride))
		return false
	}
	m.writes = append(m.writes, resource.BufferWrite{
		Buffer: m.buffer,
		Offset: uint64(s.slot)*m.stride + offset,
		Data:   data,
	})
	return true
}

// Aux returns the auxiliary value stored with key.
func (m *BufferManager[A]) Aux(key int) (A, bool) {
	s, ok := m.slots[key]
	return s.aux, ok
}

// SetAux replaces the auxiliary value stored with key.
func (m *BufferManager[A]) SetAux(key int, aux A) bool {
	s, ok := m.slots[key]
	if !ok {
		return false
	}
	s.aux = aux
	m.slots[key] = s
	return true
}

// Slot returns key's current slot index. Slots move when other
// elements are released, so do not cache across updates.
func (m *BufferManager[A]) Slot(key int) (int, bool) {
	s, ok := m.slots[key]
	return s.slot, ok
}

// Update flushes this frame's state through ctx: the grown buffer
// descriptor if requests overflowed capacity, then the queued element
// writes. It returns the queued swap-move copies for the caller to
// record into its command buffer.
func (m *BufferManager[A]) Update(ctx *UpdateContext) ([]resource.Command, error) {
	if m.rebuild {
		d := m.desc
		id, err := ctx.Update(m.buffer, &d)
		if err != nil {
			return nil, err
		}
		m.buffer = id // buffers are never deduplicated, but keep the contract
		m.rebuild = false
	}
	for i := range m.writes {
		w := m.writes[i]
		ctx.Write(&w)
	}
	m.writes = m.writes[:0]
	copies := m.copies
	m.copies = nil
	return copies, nil
}
