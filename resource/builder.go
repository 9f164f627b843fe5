// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"context"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/wgpuengine/base/errors"
)

// ErrFrameNotAcquired is returned when a command buffer renders to a
// swapchain whose current frame has not been acquired yet. The
// command buffer stays damaged and is retried next commit.
var ErrFrameNotAcquired = errors.New("resource: swapchain frame not acquired")

// WGPUBuilder is the [Builder] realizing descriptors as WebGPU
// objects. It is stateless: everything a build needs comes from the
// descriptor and the already-built handles of its dependencies.
type WGPUBuilder struct{}

func (b *WGPUBuilder) Build(ctx context.Context, m *Manager, id ID, d Descriptor) (Handle, error) {
	switch d := d.(type) {
	case *InstanceDescriptor:
		return wgpu.CreateInstance(nil), nil
	case *DeviceDescriptor:
		return b.buildDevice(m, d)
	case *SwapchainDescriptor:
		return b.buildSwapchain(m, id, d)
	case *BufferDescriptor:
		dev, err := deviceHandle(m, d.Device)
		if err != nil {
			return nil, err
		}
		return dev.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            d.Name,
			Size:             d.Size,
			Usage:            d.Usage,
			MappedAtCreation: d.MappedAtCreation,
		})
	case *TextureDescriptor:
		dev, err := deviceHandle(m, d.Device)
		if err != nil {
			return nil, err
		}
		return dev.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         d.Name,
			Size:          d.Size,
			MipLevelCount: max(d.MipLevelCount, 1),
			SampleCount:   max(d.SampleCount, 1),
			Dimension:     d.Dimension,
			Format:        d.Format,
			Usage:         d.Usage,
		})
	case *TextureViewDescriptor:
		tex, err := dependencyHandle[*wgpu.Texture](m, d.Texture, "texture")
		if err != nil {
			return nil, err
		}
		return tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           d.Name,
			Format:          d.Format,
			Dimension:       d.Dimension,
			Aspect:          d.Aspect,
			BaseMipLevel:    d.BaseMipLevel,
			MipLevelCount:   d.MipLevelCount,
			BaseArrayLayer:  d.BaseArrayLayer,
			ArrayLayerCount: d.ArrayLayerCount,
		})
	case *SamplerDescriptor:
		dev, err := deviceHandle(m, d.Device)
		if err != nil {
			return nil, err
		}
		return dev.Device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         d.Name,
			AddressModeU:  d.AddressModeU,
			AddressModeV:  d.AddressModeV,
			AddressModeW:  d.AddressModeW,
			MagFilter:     d.MagFilter,
			MinFilter:     d.MinFilter,
			MipmapFilter:  d.MipmapFilter,
			LodMinClamp:   d.LodMinClamp,
			LodMaxClamp:   d.LodMaxClamp,
			Compare:       d.Compare,
			MaxAnisotropy: max(d.MaxAnisotropy, 1),
		})
	case *ShaderModuleDescriptor:
		dev, err := deviceHandle(m, d.Device)
		if err != nil {
			return nil, err
		}
		return dev.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          d.Name,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: d.Source},
		})
	case *BindGroupLayoutDescriptor:
		dev, err := deviceHandle(m, d.Device)
		if err != nil {
			return nil, err
		}
		return dev.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   d.Name,
			Entries: d.Entries,
		})
	case *BindGroupDescriptor:
		return b.buildBindGroup(m, id, d)
	case *PipelineLayoutDescriptor:
		dev, err := deviceHandle(m, d.Device)
		if err != nil {
			return nil, err
		}
		layouts := make([]*wgpu.BindGroupLayout, len(d.BindGroupLayouts))
		for i, lid := range d.BindGroupLayouts {
			l, err := dependencyHandle[*wgpu.BindGroupLayout](m, lid, "bind group layout")
			if err != nil {
				return nil, err
			}
			layouts[i] = l
		}
		return dev.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            d.Name,
			BindGroupLayouts: layouts,
		})
	case *RenderPipelineDescriptor:
		return b.buildRenderPipeline(m, id, d)
	case *ComputePipelineDescriptor:
		return b.buildComputePipeline(m, id, d)
	case *CommandBufferDescriptor:
		return b.buildCommandBuffer(m, d)
	}
	return nil, fmt.Errorf("resource: no builder for descriptor %T", d)
}

// deviceHandle resolves a Device resource id to its handle.
func deviceHandle(m *Manager, id ID) (*DeviceHandle, error) {
	return dependencyHandle[*DeviceHandle](m, id, "device")
}

// owningDevice resolves the device handle a resource ultimately lives
// on, for descriptors that do not reference their device directly.
func owningDevice(m *Manager, id ID) (*DeviceHandle, error) {
	dev := m.DeviceOf(id)
	if dev == 0 {
		return nil, fmt.Errorf("resource: %d has no device ancestor", id)
	}
	return deviceHandle(m, dev)
}

func dependencyHandle[H any](m *Manager, id ID, what string) (H, error) {
	h, ok := HandleAs[H](m, id)
	if !ok {
		var zero H
		return zero, fmt.Errorf("resource: %s %d has no handle", what, id)
	}
	return h, nil
}

func (b *WGPUBuilder) buildDevice(m *Manager, d *DeviceDescriptor) (Handle, error) {
	inst, err := dependencyHandle[*wgpu.Instance](m, d.Instance, "instance")
	if err != nil {
		return nil, err
	}
	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      d.PowerPreference,
		ForceFallbackAdapter: d.ForceFallback,
	})
	if err != nil {
		return nil, err
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          d.Name,
		RequiredLimits: &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		adapter.Release()
		return nil, err
	}
	return &DeviceHandle{Adapter: adapter, Device: device, Queue: device.GetQueue()}, nil
}

// buildSwapchain reconfigures the existing swapchain handle for the
// current descriptor. The surface itself comes from the windowing
// layer when the swapchain is first installed, so a swapchain that
// lost its handle entirely cannot be rebuilt here and must be
// recreated through the surface lifecycle.
func (b *WGPUBuilder) buildSwapchain(m *Manager, id ID, d *SwapchainDescriptor) (Handle, error) {
	sc, ok := HandleAs[*SwapchainHandle](m, id)
	if !ok {
		return nil, fmt.Errorf("resource: swapchain %d has no surface", id)
	}
	dev, err := deviceHandle(m, d.Device)
	if err != nil {
		return nil, err
	}
	caps := sc.Surface.GetCapabilities(dev.Adapter)
	format := d.Format
	if format == wgpu.TextureFormatUndefined && len(caps.Formats) > 0 {
		format = caps.Formats[0]
	}
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}
	cfg := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       d.Width,
		Height:      d.Height,
		PresentMode: d.PresentMode,
		AlphaMode:   alpha,
	}
	sc.DropFrame()
	sc.Surface.Configure(dev.Adapter, dev.Device, &cfg)
	sc.Config = cfg
	return sc, nil
}

func (b *WGPUBuilder) buildBindGroup(m *Manager, id ID, d *BindGroupDescriptor) (Handle, error) {
	dev, err := owningDevice(m, id)
	if err != nil {
		return nil, err
	}
	layout, err := dependencyHandle[*wgpu.BindGroupLayout](m, d.Layout, "bind group layout")
	if err != nil {
		return nil, err
	}
	entries := make([]wgpu.BindGroupEntry, len(d.Entries))
	for i, e := range d.Entries {
		we := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != 0:
			buf, err := dependencyHandle[*wgpu.Buffer](m, e.Buffer, "buffer")
			if err != nil {
				return nil, err
			}
			we.Buffer = buf
			we.Offset = e.Offset
			we.Size = e.Size
			if we.Size == 0 {
				we.Size = wgpu.WholeSize
			}
		case e.Sampler != 0:
			smp, err := dependencyHandle[*wgpu.Sampler](m, e.Sampler, "sampler")
			if err != nil {
				return nil, err
			}
			we.Sampler = smp
		case e.TextureView != 0:
			tv, err := dependencyHandle[*wgpu.TextureView](m, e.TextureView, "texture view")
			if err != nil {
				return nil, err
			}
			we.TextureView = tv
		default:
			return nil, fmt.Errorf("resource: bind group entry %d binds nothing", e.Binding)
		}
		entries[i] = we
	}
	return dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   d.Name,
		Layout:  layout,
		Entries: entries,
	})
}

func (b *WGPUBuilder) buildRenderPipeline(m *Manager, id ID, d *RenderPipelineDescriptor) (Handle, error) {
	dev, err := owningDevice(m, id)
	if err != nil {
		return nil, err
	}
	layout, err := dependencyHandle[*wgpu.PipelineLayout](m, d.Layout, "pipeline layout")
	if err != nil {
		return nil, err
	}
	vmod, err := dependencyHandle[*wgpu.ShaderModule](m, d.Vertex.ShaderModule, "shader module")
	if err != nil {
		return nil, err
	}
	buffers := make([]wgpu.VertexBufferLayout, len(d.Vertex.Buffers))
	for i, vb := range d.Vertex.Buffers {
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: vb.ArrayStride,
			StepMode:    vb.StepMode,
			Attributes:  vb.Attributes,
		}
	}
	wd := &wgpu.RenderPipelineDescriptor{
		Label:  d.Name,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vmod,
			EntryPoint: d.Vertex.EntryPoint,
			Buffers:    buffers,
		},
		Primitive: d.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: max(d.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}
	if d.Fragment != nil {
		fmod, err := dependencyHandle[*wgpu.ShaderModule](m, d.Fragment.ShaderModule, "shader module")
		if err != nil {
			return nil, err
		}
		targets := make([]wgpu.ColorTargetState, len(d.Fragment.Targets))
		for i, t := range d.Fragment.Targets {
			targets[i] = wgpu.ColorTargetState{
				Format:    t.Format,
				Blend:     t.Blend,
				WriteMask: t.WriteMask,
			}
		}
		wd.Fragment = &wgpu.FragmentState{
			Module:     fmod,
			EntryPoint: d.Fragment.EntryPoint,
			Targets:    targets,
		}
	}
	if d.DepthStencil != nil {
		wd.DepthStencil = &wgpu.DepthStencilState{
			Format:            d.DepthStencil.Format,
			DepthWriteEnabled: d.DepthStencil.DepthWriteEnabled,
			DepthCompare:      d.DepthStencil.DepthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}
	return dev.Device.CreateRenderPipeline(wd)
}

func (b *WGPUBuilder) buildComputePipeline(m *Manager, id ID, d *ComputePipelineDescriptor) (Handle, error) {
	dev, err := owningDevice(m, id)
	if err != nil {
		return nil, err
	}
	layout, err := dependencyHandle[*wgpu.PipelineLayout](m, d.Layout, "pipeline layout")
	if err != nil {
		return nil, err
	}
	mod, err := dependencyHandle[*wgpu.ShaderModule](m, d.ShaderModule, "shader module")
	if err != nil {
		return nil, err
	}
	return dev.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  d.Name,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: d.EntryPoint,
		},
	})
}

func (b *WGPUBuilder) buildCommandBuffer(m *Manager, d *CommandBufferDescriptor) (Handle, error) {
	dev, err := deviceHandle(m, d.Device)
	if err != nil {
		return nil, err
	}
	enc, err := dev.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Release()
	for _, c := range d.Commands {
		if err := b.encodeCommand(m, enc, c); err != nil {
			return nil, err
		}
	}
	return enc.Finish(nil)
}

func (b *WGPUBuilder) encodeCommand(m *Manager, enc *wgpu.CommandEncoder, c Command) error {
	switch c := c.(type) {
	case *CopyBufferToBuffer:
		src, err := dependencyHandle[*wgpu.Buffer](m, c.Source, "buffer")
		if err != nil {
			return err
		}
		dst, err := dependencyHandle[*wgpu.Buffer](m, c.Destination, "buffer")
		if err != nil {
			return err
		}
		return enc.CopyBufferToBuffer(src, c.SourceOffset, dst, c.DestinationOffset, c.Size)
	case *CopyBufferToTexture:
		buf, tex, err := b.copyViews(m, c.Source, c.Destination)
		if err != nil {
			return err
		}
		return enc.CopyBufferToTexture(buf, tex, &c.Size)
	case *CopyTextureToBuffer:
		buf, tex, err := b.copyViews(m, c.Destination, c.Source)
		if err != nil {
			return err
		}
		return enc.CopyTextureToBuffer(tex, buf, &c.Size)
	case *CopyTextureToTexture:
		src, err := b.textureView(m, c.Source)
		if err != nil {
			return err
		}
		dst, err := b.textureView(m, c.Destination)
		if err != nil {
			return err
		}
		return enc.CopyTextureToTexture(src, dst, &c.Size)
	case *RenderPass:
		return b.encodeRenderPass(m, enc, c)
	case *ComputePass:
		return b.encodeComputePass(m, enc, c)
	}
	return fmt.Errorf("resource: no encoder for command %T", c)
}

func (b *WGPUBuilder) copyViews(m *Manager, bv BufferCopyView, tv TextureCopyView) (*wgpu.ImageCopyBuffer, *wgpu.ImageCopyTexture, error) {
	buf, err := dependencyHandle[*wgpu.Buffer](m, bv.Buffer, "buffer")
	if err != nil {
		return nil, nil, err
	}
	tex, err := b.textureView(m, tv)
	if err != nil {
		return nil, nil, err
	}
	return &wgpu.ImageCopyBuffer{Buffer: buf, Layout: bv.Layout}, tex, nil
}

func (b *WGPUBuilder) textureView(m *Manager, tv TextureCopyView) (*wgpu.ImageCopyTexture, error) {
	tex, err := dependencyHandle[*wgpu.Texture](m, tv.Texture, "texture")
	if err != nil {
		return nil, err
	}
	return &wgpu.ImageCopyTexture{
		Texture:  tex,
		MipLevel: tv.MipLevel,
		Origin:   tv.Origin,
		Aspect:   tv.Aspect,
	}, nil
}

func (b *WGPUBuilder) targetView(m *Manager, t RenderTarget) (*wgpu.TextureView, error) {
	if t.Swapchain != 0 {
		sc, err := dependencyHandle[*SwapchainHandle](m, t.Swapchain, "swapchain")
		if err != nil {
			return nil, err
		}
		view, ok := sc.CurrentView()
		if !ok {
			return nil, fmt.Errorf("%w: swapchain %d", ErrFrameNotAcquired, t.Swapchain)
		}
		return view, nil
	}
	return dependencyHandle[*wgpu.TextureView](m, t.TextureView, "texture view")
}

func (b *WGPUBuilder) encodeRenderPass(m *Manager, enc *wgpu.CommandEncoder, c *RenderPass) error {
	view, err := b.targetView(m, c.Target)
	if err != nil {
		return err
	}
	color := wgpu.RenderPassColorAttachment{
		View:    view,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if c.Clear != nil {
		color.LoadOp = wgpu.LoadOpClear
		color.ClearValue = *c.Clear
	}
	rpd := &wgpu.RenderPassDescriptor{
		Label:            c.Name,
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
	}
	if c.DepthStencil != nil {
		dview, err := dependencyHandle[*wgpu.TextureView](m, c.DepthStencil.View, "texture view")
		if err != nil {
			return err
		}
		rpd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            dview,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: c.DepthStencil.ClearDepth,
		}
	}
	rp := enc.BeginRenderPass(rpd)
	defer rp.Release()
	for _, rc := range c.Commands {
		if err := b.encodeRenderCommand(m, rp, rc); err != nil {
			rp.End()
			return err
		}
	}
	rp.End()
	return nil
}

func (b *WGPUBuilder) encodeRenderCommand(m *Manager, rp *wgpu.RenderPassEncoder, rc RenderCommand) error {
	switch rc := rc.(type) {
	case *SetPipeline:
		pl, err := dependencyHandle[*wgpu.RenderPipeline](m, rc.Pipeline, "render pipeline")
		if err != nil {
			return err
		}
		rp.SetPipeline(pl)
	case *SetBindGroup:
		bg, err := dependencyHandle[*wgpu.BindGroup](m, rc.BindGroup, "bind group")
		if err != nil {
			return err
		}
		rp.SetBindGroup(rc.Index, bg, nil)
	case *SetVertexBuffer:
		buf, err := dependencyHandle[*wgpu.Buffer](m, rc.Buffer, "buffer")
		if err != nil {
			return err
		}
		rp.SetVertexBuffer(rc.Slot, buf, rc.Offset, wgpu.WholeSize)
	case *SetIndexBuffer:
		buf, err := dependencyHandle[*wgpu.Buffer](m, rc.Buffer, "buffer")
		if err != nil {
			return err
		}
		rp.SetIndexBuffer(buf, rc.Format, rc.Offset, wgpu.WholeSize)
	case *Draw:
		rp.Draw(rc.VertexCount, max(rc.InstanceCount, 1), rc.FirstVertex, rc.FirstInstance)
	case *DrawIndexed:
		rp.DrawIndexed(rc.IndexCount, max(rc.InstanceCount, 1), rc.FirstIndex, rc.BaseVertex, rc.FirstInstance)
	default:
		return fmt.Errorf("resource: no encoder for render command %T", rc)
	}
	return nil
}

func (b *WGPUBuilder) encodeComputePass(m *Manager, enc *wgpu.CommandEncoder, c *ComputePass) error {
	pl, err := dependencyHandle[*wgpu.ComputePipeline](m, c.Pipeline, "compute pipeline")
	if err != nil {
		return err
	}
	groups := make([]*wgpu.BindGroup, len(c.BindGroups))
	for i, gid := range c.BindGroups {
		bg, err := dependencyHandle[*wgpu.BindGroup](m, gid, "bind group")
		if err != nil {
			return err
		}
		groups[i] = bg
	}
	cp := enc.BeginComputePass(nil)
	defer cp.Release()
	cp.SetPipeline(pl)
	for i, bg := range groups {
		cp.SetBindGroup(uint32(i), bg, nil)
	}
	cp.DispatchWorkgroups(c.Workgroups[0], c.Workgroups[1], c.Workgroups[2])
	cp.End()
	return nil
}
