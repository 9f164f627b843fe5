// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/wgpuengine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBMContext(t *testing.T) (*UpdateContext, *resource.Manager, resource.ID) {
	tm := newTM()
	rm := tm.Resources()
	uc := &UpdateContext{task: TaskID(1), rm: rm, tm: tm}
	inst, err := uc.Add(&resource.InstanceDescriptor{Name: "inst"})
	require.NoError(t, err)
	dev, err := uc.Add(&resource.DeviceDescriptor{Name: "dev", Instance: inst})
	require.NoError(t, err)
	return uc, rm, dev
}

func TestBufferManagerSlots(t *testing.T) {
	uc, _, dev := newBMContext(t)
	bm, err := NewBufferManager[string](uc, "insts", dev, 16, 2, wgpu.BufferUsageStorage)
	require.NoError(t, err)
	assert.Equal(t, 2, bm.Capacity())
	assert.Equal(t, 0, bm.Len())

	bm.Request(10, "a", make([]byte, 16))
	bm.Request(11, "b", make([]byte, 16))
	assert.Equal(t, 2, bm.Len())
	assert.Equal(t, uint64(32), bm.Size())
	assert.Equal(t, []int{10, 11}, bm.Keys())

	s, ok := bm.Slot(10)
	require.True(t, ok)
	assert.Equal(t, 0, s)
	s, _ = bm.Slot(11)
	assert.Equal(t, 1, s)

	aux, ok := bm.Aux(11)
	require.True(t, ok)
	assert.Equal(t, "b", aux)
	require.True(t, bm.SetAux(11, "b2"))
	aux, _ = bm.Aux(11)
	assert.Equal(t, "b2", aux)

	copies, err := bm.Update(uc)
	require.NoError(t, err)
	assert.Empty(t, copies)
	require.Len(t, uc.writes, 2)
	w := uc.writes[1].(*resource.BufferWrite)
	assert.Equal(t, bm.Buffer(), w.Buffer)
	assert.Equal(t, uint64(16), w.Offset)
}

func TestBufferManagerGrows(t *testing.T) {
	uc, rm, dev := newBMContext(t)
	bm, err := NewBufferManager[int](uc, "insts", dev, 8, 1, wgpu.BufferUsageVertex)
	require.NoError(t, err)
	require.True(t, rm.Commit(context.Background()))

	bm.Request(1, 0, make([]byte, 8))
	_, err = bm.Update(uc)
	require.NoError(t, err)
	require.False(t, rm.IsDamaged(bm.Buffer()))

	// second request overflows the 1-slot capacity
	bm.Request(2, 0, make([]byte, 8))
	assert.Equal(t, 2, bm.Len())
	assert.Equal(t, 1+growSlots, bm.Capacity())

	_, err = bm.Update(uc)
	require.NoError(t, err)
	assert.True(t, rm.IsDamaged(bm.Buffer()))
	d, ok := resource.DescriptorAs[*resource.BufferDescriptor](rm, bm.Buffer())
	require.True(t, ok)
	assert.Equal(t, uint64(8*(1+growSlots)), d.Size)
}

func TestBufferManagerRelease(t *testing.T) {
	uc, _, dev := newBMContext(t)
	bm, err := NewBufferManager[string](uc, "insts", dev, 16, 4, wgpu.BufferUsageStorage)
	require.NoError(t, err)
	bm.Request(10, "a", make([]byte, 16))
	bm.Request(11, "b", make([]byte, 16))
	bm.Request(12, "c", make([]byte, 16))
	uc.writes = nil

	// releasing the last slot needs no data movement
	aux, ok := bm.Release(12)
	require.True(t, ok)
	assert.Equal(t, "c", aux)
	copies, err := bm.Update(uc)
	require.NoError(t, err)
	assert.Empty(t, copies)

	bm.Request(12, "c", make([]byte, 16))
	// releasing slot 0 swap-moves the last element into the hole
	aux, ok = bm.Release(10)
	require.True(t, ok)
	assert.Equal(t, "a", aux)
	assert.Equal(t, 2, bm.Len())
	s, ok := bm.Slot(12)
	require.True(t, ok)
	assert.Equal(t, 0, s)

	copies, err = bm.Update(uc)
	require.NoError(t, err)
	require.Len(t, copies, 2)
	toSupport := copies[0].(*resource.CopyBufferToBuffer)
	fromSupport := copies[1].(*resource.CopyBufferToBuffer)
	assert.Equal(t, bm.Buffer(), toSupport.Source)
	assert.Equal(t, uint64(2*16), toSupport.SourceOffset)
	assert.Equal(t, bm.Buffer(), fromSupport.Destination)
	assert.Equal(t, uint64(0), fromSupport.DestinationOffset)
	assert.Equal(t, toSupport.Destination, fromSupport.Source)

	// unknown key
	_, ok = bm.Release(99)
	assert.False(t, ok)
	ok = bm.Write(99, 0, nil)
	assert.False(t, ok)
}
