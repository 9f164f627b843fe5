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

// Batch aggregates one dispatch cycle's pending resource writes,
// command buffers, and live swapchains, grouped by the device they
// belong to. Each device gets exactly one queue submission per
// dispatch; there is no ordering across devices.
type Batch struct {
	rm *resource.Manager

	// ClearColor is used for the clear pass injected for any
	// registered swapchain nothing rendered to this cycle.
	ClearColor wgpu.Color

	devices map[resource.ID]*DeviceBatch
}

// NewBatch returns an empty [Batch] over the resource manager.
func NewBatch(rm *resource.Manager) *Batch {
	return &Batch{
		rm:         rm,
		ClearColor: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		devices:    map[resource.ID]*DeviceBatch{},
	}
}

// DeviceBatch is the per-device slice of a [Batch].
type DeviceBatch struct {
	device resource.ID

	writes     []resource.Write
	buffers    []pendingCommandBuffer
	swapchains []resource.ID
}

type pendingCommandBuffer struct {
	id resource.ID
	// swapchains this command buffer renders to, per its descriptor
	swapchains []resource.ID
}

func (b *Batch) deviceBatch(dev resource.ID) *DeviceBatch {
	db, ok := b.devices[dev]
	if !ok {
		db = &DeviceBatch{device: dev}
		b.devices[dev] = db
	}
	return db
}

// AddWrite routes a pending write to the batch of the device its
// target lives on. A target with no device ancestor is logged and
// dropped.
func (b *Batch) AddWrite(w resource.Write) {
	dev := b.rm.DeviceOf(w.Target())
	if dev == 0 {
		errors.Log(fmt.Errorf("engine: write target %d has no device, dropping write", w.Target()))
		return
	}
	db := b.deviceBatch(dev)
	db.writes = append(db.writes, w)
}

// AddCommandBuffer routes a command buffer to its device's batch and
// records which swapchains its render passes target.
func (b *Batch) AddCommandBuffer(id resource.ID) {
	dev := b.rm.DeviceOf(id)
	if dev == 0 {
		errors.Log(fmt.Errorf("engine: command buffer %d has no device, dropping", id))
		return
	}
	pcb := pendingCommandBuffer{id: id}
	if d, ok := resource.DescriptorAs[*resource.CommandBufferDescriptor](b.rm, id); ok {
		for _, c := range d.Commands {
			if rp, ok := c.(*resource.RenderPass); ok && rp.Target.Swapchain != 0 {
				if !slices.Contains(pcb.swapchains, rp.Target.Swapchain) {
					pcb.swapchains = append(pcb.swapchains, rp.Target.Swapchain)
				}
			}
		}
	}
	db := b.deviceBatch(dev)
	db.buffers = append(db.buffers, pcb)
}

// RegisterSwapchain registers a live swapchain with its device's
// batch, so it is cleared if nothing renders to it and presented at
// the end of the cycle.
func (b *Batch) RegisterSwapchain(id resource.ID) {
	dev := b.rm.DeviceOf(id)
	if dev == 0 {
		errors.Log(fmt.Errorf("engine: swapchain %d has no device, not registering", id))
		return
	}
	db := b.deviceBatch(dev)
	if !slices.Contains(db.swapchains, id) {
		db.swapchains = append(db.swapchains, id)
	}
}

// Submit submits every device batch: writes first, then one queue
// submission holding the injected clear passes and all finished
// command buffers, then a present of each swapchain with an acquired
// frame.
func (b *Batch) Submit() {
	devs := make([]resource.ID, 0, len(b.devices))
	for dev := range b.devices {
		devs = append(devs, dev)
	}
	slices.Sort(devs)
	for _, dev := range devs {
		b.submitDevice(b.devices[dev])
	}
}

func (b *Batch) submitDevice(db *DeviceBatch) {
	dev, ok := resource.HandleAs[*resource.DeviceHandle](b.rm, db.device)
	if !ok {
		errors.Log(fmt.Errorf("engine: device %d not built, dropping its batch", db.device))
		return
	}
	for _, w := range db.writes {
		h, ok := b.rm.Handle(w.Target())
		if !ok {
			errors.Log(fmt.Errorf("engine: write target %d not built, dropping write", w.Target()))
			continue
		}
		errors.Log(w.Record(dev.Queue, h))
	}

	// take finished command buffers; taking re-damages them so they
	// are re-recorded next cycle
	var cmds []*wgpu.CommandBuffer
	rendered := map[resource.ID]struct{}{}
	for _, pcb := range db.buffers {
		h, ok := b.rm.TakeHandle(pcb.id)
		if !ok {
			errors.Log(fmt.Errorf("engine: command buffer %d not built, skipping", pcb.id))
			continue
		}
		cb, ok := h.(*wgpu.CommandBuffer)
		if !ok {
			errors.Log(fmt.Errorf("engine: command buffer %d has handle %T, skipping", pcb.id, h))
			continue
		}
		cmds = append(cmds, cb)
		for _, sc := range pcb.swapchains {
			rendered[sc] = struct{}{}
		}
	}

	// inject a clear pass for every registered swapchain nothing
	// rendered to, so it still presents a defined frame
	var clears []*wgpu.CommandBuffer
	for _, scID := range db.swapchains {
		if _, ok := rendered[scID]; ok {
			continue
		}
		if cb := b.encodeClear(dev, scID); cb != nil {
			clears = append(clears, cb)
		}
	}

	all := append(clears, cmds...)
	if len(all) > 0 {
		dev.Queue.Submit(all...)
		for _, cb := range all {
			cb.Release()
		}
	}

	for _, scID := range db.swapchains {
		sc, ok := resource.HandleAs[*resource.SwapchainHandle](b.rm, scID)
		if !ok {
			continue
		}
		if _, ok := sc.CurrentView(); ok {
			sc.Present()
		}
	}
}

func (b *Batch) encodeClear(dev *resource.DeviceHandle, scID resource.ID) *wgpu.CommandBuffer {
	sc, ok := resource.HandleAs[*resource.SwapchainHandle](b.rm, scID)
	if !ok {
		return nil
	}
	view, ok := sc.CurrentView()
	if !ok {
		return nil
	}
	enc, err := dev.Device.CreateCommandEncoder(nil)
	if errors.Log(err) != nil {
		return nil
	}
	defer enc.Release()
	rp := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "swapchain clear",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: b.ClearColor,
		}},
	})
	rp.End()
	rp.Release()
	cb, err := enc.Finish(nil)
	if errors.Log(err) != nil {
		return nil
	}
	return cb
}
