// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/wgpuengine/base/errors"
	"github.com/cogentcore/wgpuengine/resource"
)

// Engine is the top-level facade: it brings up the WebGPU instance
// and device, owns the resource and task managers, manages the
// swapchain lifecycle for externally provided surfaces, and drives
// the dispatch cycle.
type Engine struct {
	cfg *Config
	rm  *resource.Manager
	tm  *TaskManager

	// task is the internal lifecycle task owning the instance, the
	// device, and every swapchain.
	task     TaskID
	instance resource.ID
	device   resource.ID

	mu         sync.Mutex
	pending    []surfaceCommand
	swapchains map[uint64]resource.ID
}

type surfaceOp int32

const (
	surfaceCreate surfaceOp = iota
	surfaceResize
	surfaceRemove
)

type surfaceCommand struct {
	op         surfaceOp
	externalID uint64
	desc       *wgpu.SurfaceDescriptor
	width      uint32
	height     uint32
}

// New brings up the engine: it creates the WebGPU instance, requests
// an adapter and device per the config, and installs both as
// pre-built resources owned by the internal lifecycle task.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	rm := resource.NewManager(&resource.WGPUBuilder{})
	tm := NewTaskManager(rm)
	e := &Engine{cfg: cfg, rm: rm, tm: tm, swapchains: map[uint64]resource.ID{}}
	task, err := tm.Create("engine", nil, func(id TaskID) Tasker {
		return &lifecycleTask{eng: e}
	})
	if err != nil {
		return nil, err
	}
	e.task = task

	inst := wgpu.CreateInstance(nil)
	e.instance, err = rm.AddWithHandle(task, &resource.InstanceDescriptor{Name: "instance"}, inst)
	if err != nil {
		return nil, err
	}
	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      cfg.PowerPreference(),
		ForceFallbackAdapter: cfg.ForceFallback,
	})
	if err != nil {
		return nil, errors.Log(fmt.Errorf("engine: requesting adapter: %w", err))
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "wgpuengine device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: cfg.Requirements().Limits},
	})
	if err != nil {
		adapter.Release()
		return nil, errors.Log(fmt.Errorf("engine: requesting device: %w", err))
	}
	e.device, err = rm.AddWithHandle(task, &resource.DeviceDescriptor{
		Name:            "device",
		Instance:        e.instance,
		PowerPreference: cfg.PowerPreference(),
		ForceFallback:   cfg.ForceFallback,
	}, &resource.DeviceHandle{Adapter: adapter, Device: device, Queue: device.GetQueue()})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Resources returns the resource manager, for direct read access and
// for clients managing resources outside tasks.
func (e *Engine) Resources() *resource.Manager { return e.rm }

// Tasks returns the task manager.
func (e *Engine) Tasks() *TaskManager { return e.tm }

// Instance returns the instance resource id.
func (e *Engine) Instance() resource.ID { return e.instance }

// Device returns the device resource id.
func (e *Engine) Device() resource.ID { return e.device }

// Devices returns all device resource ids.
func (e *Engine) Devices() []resource.ID { return e.rm.IDs(resource.Device) }

// CreateTask adds a task to run each dispatch, after its declared
// dependencies. make receives the new task's id.
func (e *Engine) CreateTask(name string, deps []TaskID, make func(id TaskID) Tasker) (TaskID, error) {
	return e.tm.Create(name, deps, make)
}

// RemoveTask removes a task from the dispatch cycle.
func (e *Engine) RemoveTask(id TaskID) error {
	return e.tm.Remove(id)
}

// CreateSurface schedules a swapchain for the windowing-layer surface
// described by desc, keyed by the caller-chosen externalID. The
// swapchain is created inside the next dispatch and announced with a
// [SwapchainCreated] event.
func (e *Engine) CreateSurface(externalID uint64, desc *wgpu.SurfaceDescriptor, width, height uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, surfaceCommand{
		op: surfaceCreate, externalID: externalID, desc: desc,
		width: width, height: height,
	})
}

// ResizeSurface schedules a reconfiguration of the swapchain for
// externalID, damaging it and everything rendering to it.
func (e *Engine) ResizeSurface(externalID uint64, width, height uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, surfaceCommand{
		op: surfaceResize, externalID: externalID,
		width: width, height: height,
	})
}

// RemoveSurface schedules the removal of the swapchain for
// externalID.
func (e *Engine) RemoveSurface(externalID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, surfaceCommand{op: surfaceRemove, externalID: externalID})
}

// Swapchain returns the swapchain resource id for externalID, if one
// exists yet.
func (e *Engine) Swapchain(externalID uint64) (resource.ID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.swapchains[externalID]
	return id, ok
}

// Dispatch runs one cycle: tasks update the resource graph in
// topological order, live swapchains acquire their frames, damaged
// resources are rebuilt in dependency order, and each device's batch
// of writes and command buffers is submitted and presented. It
// returns the resource events emitted during the cycle.
func (e *Engine) Dispatch(ctx context.Context) []ResourceEvent {
	batch := NewBatch(e.rm)
	e.tm.Commit(ctx, batch)

	e.mu.Lock()
	live := make([]resource.ID, 0, len(e.swapchains))
	for _, id := range e.swapchains {
		live = append(live, id)
	}
	e.mu.Unlock()
	for _, id := range live {
		batch.RegisterSwapchain(id)
		// a damaged swapchain is reconfigured by the commit below and
		// acquires its first frame next cycle
		if e.rm.IsDamaged(id) {
			continue
		}
		if sc, ok := resource.HandleAs[*resource.SwapchainHandle](e.rm, id); ok {
			errors.Log(sc.AcquireFrame())
		}
	}

	if e.cfg.ConcurrentCommit {
		e.rm.CommitConcurrent(ctx)
	} else {
		e.rm.Commit(ctx)
	}
	batch.Submit()
	return e.tm.DrainEvents()
}

// Release tears the engine down: swapchains, device, and instance are
// removed and their GPU objects released.
func (e *Engine) Release() {
	e.mu.Lock()
	scs := e.swapchains
	e.swapchains = map[uint64]resource.ID{}
	e.pending = nil
	e.mu.Unlock()
	for _, id := range scs {
		errors.Log(e.rm.Remove(e.task, id))
	}
	errors.Log(e.rm.Remove(e.task, e.device))
	errors.Log(e.rm.Remove(e.task, e.instance))
}

// lifecycleTask is the internal task processing pending surface
// commands and emitting swapchain lifecycle events.
type lifecycleTask struct {
	eng *Engine
}

func (t *lifecycleTask) Name() string { return "engine" }

func (t *lifecycleTask) CommandBuffers() []resource.ID { return nil }

func (t *lifecycleTask) Update(ctx *UpdateContext) error {
	e := t.eng
	e.mu.Lock()
	cmds := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, cmd := range cmds {
		switch cmd.op {
		case surfaceCreate:
			t.create(ctx, cmd)
		case surfaceResize:
			t.resize(ctx, cmd)
		case surfaceRemove:
			t.remove(ctx, cmd)
		}
	}
	return nil
}

func (t *lifecycleTask) create(ctx *UpdateContext, cmd surfaceCommand) {
	e := t.eng
	inst, ok := resource.HandleAs[*wgpu.Instance](e.rm, e.instance)
	if !ok {
		errors.Log(fmt.Errorf("engine: instance not built, dropping surface %d", cmd.externalID))
		return
	}
	surface := inst.CreateSurface(cmd.desc)
	id, err := ctx.AddWithHandle(&resource.SwapchainDescriptor{
		Name:        fmt.Sprintf("surface-%d", cmd.externalID),
		Device:      e.device,
		ExternalID:  cmd.externalID,
		Width:       cmd.width,
		Height:      cmd.height,
		PresentMode: e.cfg.PresentModeValue(),
	}, &resource.SwapchainHandle{Surface: surface})
	if errors.Log(err) != nil {
		surface.Release()
		return
	}
	// force the first configuration
	ctx.Damage(id)
	e.mu.Lock()
	e.swapchains[cmd.externalID] = id
	e.mu.Unlock()
	ctx.PushEvent(ResourceEvent{Kind: SwapchainCreated, ExternalID: cmd.externalID, Swapchain: id})
}

func (t *lifecycleTask) resize(ctx *UpdateContext, cmd surfaceCommand) {
	e := t.eng
	e.mu.Lock()
	id, ok := e.swapchains[cmd.externalID]
	e.mu.Unlock()
	if !ok {
		errors.Log(fmt.Errorf("engine: resizing unknown surface %d", cmd.externalID))
		return
	}
	d, ok := resource.DescriptorAs[*resource.SwapchainDescriptor](e.rm, id)
	if !ok {
		return
	}
	nd := *d
	nd.Width = cmd.width
	nd.Height = cmd.height
	if _, err := ctx.Update(id, &nd); errors.Log(err) != nil {
		return
	}
	ctx.PushEvent(ResourceEvent{Kind: SwapchainUpdated, ExternalID: cmd.externalID, Swapchain: id})
}

func (t *lifecycleTask) remove(ctx *UpdateContext, cmd surfaceCommand) {
	e := t.eng
	e.mu.Lock()
	id, ok := e.swapchains[cmd.externalID]
	delete(e.swapchains, cmd.externalID)
	e.mu.Unlock()
	if !ok {
		errors.Log(fmt.Errorf("engine: removing unknown surface %d", cmd.externalID))
		return
	}
	errors.Log(ctx.Remove(id))
	ctx.PushEvent(ResourceEvent{Kind: SwapchainDestroyed, ExternalID: cmd.externalID})
}
