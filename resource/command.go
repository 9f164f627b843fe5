// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import "github.com/cogentcore/webgpu/wgpu"

// Command is one declarative GPU command recorded into a
// [CommandBufferDescriptor]. Commands reference resources by id so
// the command buffer can depend on everything it touches.
type Command interface {
	// References returns the ids of the resources the command uses.
	References() []ID
}

// CopyBufferToBuffer copies a byte range between two buffers.
type CopyBufferToBuffer struct {
	Source            ID
	SourceOffset      uint64
	Destination       ID
	DestinationOffset uint64
	Size              uint64
}

func (c *CopyBufferToBuffer) References() []ID {
	return appendValid(nil, c.Source, c.Destination)
}

// TextureCopyView locates a region within a texture for a copy.
type TextureCopyView struct {
	Texture  ID
	MipLevel uint32
	Origin   wgpu.Origin3D
	Aspect   wgpu.TextureAspect
}

// BufferCopyView locates linear texel data within a buffer for a copy.
type BufferCopyView struct {
	Buffer ID
	Layout wgpu.TextureDataLayout
}

// CopyBufferToTexture copies linear buffer data into a texture region.
type CopyBufferToTexture struct {
	Source      BufferCopyView
	Destination TextureCopyView
	Size        wgpu.Extent3D
}

func (c *CopyBufferToTexture) References() []ID {
	return appendValid(nil, c.Source.Buffer, c.Destination.Texture)
}

// CopyTextureToBuffer copies a texture region into linear buffer data.
type CopyTextureToBuffer struct {
	Source      TextureCopyView
	Destination BufferCopyView
	Size        wgpu.Extent3D
}

func (c *CopyTextureToBuffer) References() []ID {
	return appendValid(nil, c.Source.Texture, c.Destination.Buffer)
}

// CopyTextureToTexture copies between texture regions.
type CopyTextureToTexture struct {
	Source      TextureCopyView
	Destination TextureCopyView
	Size        wgpu.Extent3D
}

func (c *CopyTextureToTexture) References() []ID {
	return appendValid(nil, c.Source.Texture, c.Destination.Texture)
}

// RenderTarget names where a render pass draws: the current frame of
// a swapchain, or an offscreen texture view. Exactly one field should
// be set.
type RenderTarget struct {
	Swapchain   ID
	TextureView ID
}

// DepthStencilAttachment attaches a depth texture view to a render
// pass.
type DepthStencilAttachment struct {
	View       ID
	ClearDepth float32
}

// RenderPass records one render pass: a target, an optional clear,
// and an ordered list of [RenderCommand]s.
type RenderPass struct {
	Name   string
	Target RenderTarget

	// Clear, when non-nil, clears the target to this color at the
	// start of the pass; otherwise prior contents are loaded.
	Clear *wgpu.Color

	DepthStencil *DepthStencilAttachment

	Commands []RenderCommand
}

func (c *RenderPass) References() []ID {
	deps := appendValid(nil, c.Target.Swapchain, c.Target.TextureView)
	if c.DepthStencil != nil {
		deps = appendValid(deps, c.DepthStencil.View)
	}
	for _, rc := range c.Commands {
		deps = appendValid(deps, rc.renderReferences()...)
	}
	return deps
}

// ComputePass records one compute dispatch.
type ComputePass struct {
	Name     string
	Pipeline ID

	BindGroups []ID

	// Workgroups is the dispatch size in x, y, z.
	Workgroups [3]uint32
}

func (c *ComputePass) References() []ID {
	deps := appendValid(nil, c.Pipeline)
	return appendValid(deps, c.BindGroups...)
}

// RenderCommand is one command inside a [RenderPass].
type RenderCommand interface {
	renderReferences() []ID
}

// SetPipeline selects the render pipeline for subsequent draws.
type SetPipeline struct {
	Pipeline ID
}

func (c *SetPipeline) renderReferences() []ID { return appendValid(nil, c.Pipeline) }

// SetBindGroup binds a bind group at an index.
type SetBindGroup struct {
	Index     uint32
	BindGroup ID
}

func (c *SetBindGroup) renderReferences() []ID { return appendValid(nil, c.BindGroup) }

// SetVertexBuffer binds a vertex buffer at a slot.
type SetVertexBuffer struct {
	Slot   uint32
	Buffer ID
	Offset uint64
}

func (c *SetVertexBuffer) renderReferences() []ID { return appendValid(nil, c.Buffer) }

// SetIndexBuffer binds the index buffer.
type SetIndexBuffer struct {
	Buffer ID
	Format wgpu.IndexFormat
	Offset uint64
}

func (c *SetIndexBuffer) renderReferences() []ID { return appendValid(nil, c.Buffer) }

// Draw draws non-indexed primitives.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

func (c *Draw) renderReferences() []ID { return nil }

// DrawIndexed draws indexed primitives.
type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

func (c *DrawIndexed) renderReferences() []ID { return nil }
