// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"testing"

	"github.com/cogentcore/wgpuengine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoDevices returns a manager with two devices on one instance,
// plus one buffer on each.
func twoDevices(t *testing.T) (rm *resource.Manager, dev1, dev2, buf1, buf2 resource.ID) {
	rm = resource.NewManager(nullBuilder{})
	const task = TaskID(1)
	inst, err := rm.Add(task, &resource.InstanceDescriptor{Name: "i"})
	require.NoError(t, err)
	dev1, err = rm.Add(task, &resource.DeviceDescriptor{Name: "d1", Instance: inst})
	require.NoError(t, err)
	dev2, err = rm.Add(task, &resource.DeviceDescriptor{Name: "d2", Instance: inst, ForceFallback: true})
	require.NoError(t, err)
	buf1, err = rm.Add(task, &resource.BufferDescriptor{Name: "b1", Device: dev1, Size: 16})
	require.NoError(t, err)
	buf2, err = rm.Add(task, &resource.BufferDescriptor{Name: "b2", Device: dev2, Size: 16})
	require.NoError(t, err)
	return rm, dev1, dev2, buf1, buf2
}

func TestBatchRoutesWritesPerDevice(t *testing.T) {
	rm, dev1, dev2, buf1, buf2 := twoDevices(t)
	b := NewBatch(rm)

	b.AddWrite(&resource.BufferWrite{Buffer: buf1, Data: []byte{1}})
	b.AddWrite(&resource.BufferWrite{Buffer: buf2, Data: []byte{2}})
	b.AddWrite(&resource.BufferWrite{Buffer: 999, Data: []byte{3}}) // no device: dropped

	require.Len(t, b.devices, 2)
	assert.Len(t, b.devices[dev1].writes, 1)
	assert.Len(t, b.devices[dev2].writes, 1)
}

func TestBatchRoutesCommandBuffers(t *testing.T) {
	rm, dev1, _, buf1, _ := twoDevices(t)
	const task = TaskID(1)
	sc, err := rm.Add(task, &resource.SwapchainDescriptor{Name: "sc", Device: dev1, ExternalID: 1})
	require.NoError(t, err)
	cb, err := rm.Add(task, &resource.CommandBufferDescriptor{
		Name: "cb", Device: dev1,
		Commands: []resource.Command{
			&resource.RenderPass{
				Target: resource.RenderTarget{Swapchain: sc},
				Commands: []resource.RenderCommand{
					&resource.SetVertexBuffer{Slot: 0, Buffer: buf1},
					&resource.Draw{VertexCount: 3},
				},
			},
		},
	})
	require.NoError(t, err)

	b := NewBatch(rm)
	b.AddCommandBuffer(cb)
	b.RegisterSwapchain(sc)
	b.RegisterSwapchain(sc) // idempotent

	db := b.devices[dev1]
	require.NotNil(t, db)
	require.Len(t, db.buffers, 1)
	assert.Equal(t, cb, db.buffers[0].id)
	assert.Equal(t, []resource.ID{sc}, db.buffers[0].swapchains)
	assert.Equal(t, []resource.ID{sc}, db.swapchains)
}

func TestCommandBufferDependsOnEverythingItTouches(t *testing.T) {
	rm, dev1, _, buf1, _ := twoDevices(t)
	const task = TaskID(1)
	sc, _ := rm.Add(task, &resource.SwapchainDescriptor{Name: "sc", Device: dev1, ExternalID: 1})
	cb, err := rm.Add(task, &resource.CommandBufferDescriptor{
		Name: "cb", Device: dev1,
		Commands: []resource.Command{
			&resource.RenderPass{
				Target: resource.RenderTarget{Swapchain: sc},
				Commands: []resource.RenderCommand{
					&resource.SetVertexBuffer{Slot: 0, Buffer: buf1},
					&resource.Draw{VertexCount: 3},
				},
			},
		},
	})
	require.NoError(t, err)
	require.True(t, rm.Commit(context.Background()))
	require.False(t, rm.IsDamaged(cb))

	// resizing the swapchain must damage the command buffer
	d, _ := resource.DescriptorAs[*resource.SwapchainDescriptor](rm, sc)
	nd := *d
	nd.Width = 800
	_, err = rm.Update(task, sc, &nd)
	require.NoError(t, err)
	assert.True(t, rm.IsDamaged(cb))
}
