// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import "github.com/cogentcore/webgpu/wgpu"

// InstanceDescriptor describes the root WebGPU instance. It has no
// dependencies; everything else ultimately descends from an instance.
type InstanceDescriptor struct {
	Name string
}

func (d *InstanceDescriptor) Kind() Kind         { return Instance }
func (d *InstanceDescriptor) Label() string      { return d.Name }
func (d *InstanceDescriptor) Dependencies() []ID { return nil }

// DeviceDescriptor describes an adapter + logical device + queue on a
// given instance.
type DeviceDescriptor struct {
	Name     string
	Instance ID

	// PowerPreference selects between integrated and discrete
	// adapters where both are available.
	PowerPreference wgpu.PowerPreference

	// ForceFallback requests a software adapter.
	ForceFallback bool
}

func (d *DeviceDescriptor) Kind() Kind         { return Device }
func (d *DeviceDescriptor) Label() string      { return d.Name }
func (d *DeviceDescriptor) Dependencies() []ID { return appendValid(nil, d.Instance) }

// SwapchainDescriptor describes the presentable surface configuration
// for one window. The surface itself is runtime state owned by the
// swapchain handle; the descriptor only carries what a reconfiguration
// needs, so a resize is an ordinary descriptor update that damages the
// swapchain and everything rendering to it.
type SwapchainDescriptor struct {
	Name   string
	Device ID

	// ExternalID correlates the swapchain with a windowing-layer
	// surface chosen by the caller.
	ExternalID uint64

	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
	PresentMode wgpu.PresentMode
}

func (d *SwapchainDescriptor) Kind() Kind         { return Swapchain }
func (d *SwapchainDescriptor) Label() string      { return d.Name }
func (d *SwapchainDescriptor) Dependencies() []ID { return appendValid(nil, d.Device) }

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Name   string
	Device ID

	Size             uint64
	Usage            wgpu.BufferUsage
	MappedAtCreation bool
}

func (d *BufferDescriptor) Kind() Kind         { return Buffer }
func (d *BufferDescriptor) Label() string      { return d.Name }
func (d *BufferDescriptor) Dependencies() []ID { return appendValid(nil, d.Device) }

// TextureDescriptor describes a GPU texture.
type TextureDescriptor struct {
	Name   string
	Device ID

	Size          wgpu.Extent3D
	MipLevelCount uint32
	SampleCount   uint32
	Dimension     wgpu.TextureDimension
	Format        wgpu.TextureFormat
	Usage         wgpu.TextureUsage
}

func (d *TextureDescriptor) Kind() Kind         { return Texture }
func (d *TextureDescriptor) Label() string      { return d.Name }
func (d *TextureDescriptor) Dependencies() []ID { return appendValid(nil, d.Device) }

// TextureViewDescriptor describes a view onto a texture.
type TextureViewDescriptor struct {
	Name    string
	Texture ID

	Format          wgpu.TextureFormat
	Dimension       wgpu.TextureViewDimension
	Aspect          wgpu.TextureAspect
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

func (d *TextureViewDescriptor) Kind() Kind         { return TextureView }
func (d *TextureViewDescriptor) Label() string      { return d.Name }
func (d *TextureViewDescriptor) Dependencies() []ID { return appendValid(nil, d.Texture) }

// SamplerDescriptor describes a texture sampler.
type SamplerDescriptor struct {
	Name   string
	Device ID

	AddressModeU  wgpu.AddressMode
	AddressModeV  wgpu.AddressMode
	AddressModeW  wgpu.AddressMode
	MagFilter     wgpu.FilterMode
	MinFilter     wgpu.FilterMode
	MipmapFilter  wgpu.MipmapFilterMode
	LodMinClamp   float32
	LodMaxClamp   float32
	Compare       wgpu.CompareFunction
	MaxAnisotropy uint16
}

func (d *SamplerDescriptor) Kind() Kind         { return Sampler }
func (d *SamplerDescriptor) Label() string      { return d.Name }
func (d *SamplerDescriptor) Dependencies() []ID { return appendValid(nil, d.Device) }

// ShaderModuleDescriptor describes a compiled WGSL shader module.
type ShaderModuleDescriptor struct {
	Name   string
	Device ID

	// Source is the WGSL source code.
	Source string
}

func (d *ShaderModuleDescriptor) Kind() Kind         { return ShaderModule }
func (d *ShaderModuleDescriptor) Label() string      { return d.Name }
func (d *ShaderModuleDescriptor) Dependencies() []ID { return appendValid(nil, d.Device) }

// BindGroupLayoutDescriptor describes the shape of a bind group.
type BindGroupLayoutDescriptor struct {
	Name   string
	Device ID

	Entries []wgpu.BindGroupLayoutEntry
}

func (d *BindGroupLayoutDescriptor) Kind() Kind         { return BindGroupLayout }
func (d *BindGroupLayoutDescriptor) Label() string      { return d.Name }
func (d *BindGroupLayoutDescriptor) Dependencies() []ID { return appendValid(nil, d.Device) }

// BindGroupEntry binds one resource to one binding slot. Exactly one
// of Buffer, Sampler, and TextureView should be set.
type BindGroupEntry struct {
	Binding uint32

	Buffer ID
	Offset uint64
	// Size is the bound byte range of Buffer; zero means the whole
	// buffer.
	Size uint64

	Sampler     ID
	TextureView ID
}

// BindGroupDescriptor describes a bind group over a layout.
type BindGroupDescriptor struct {
	Name   string
	Layout ID

	Entries []BindGroupEntry
}

func (d *BindGroupDescriptor) Kind() Kind    { return BindGroup }
func (d *BindGroupDescriptor) Label() string { return d.Name }

func (d *BindGroupDescriptor) Dependencies() []ID {
	deps := appendValid(nil, d.Layout)
	for _, e := range d.Entries {
		deps = appendValid(deps, e.Buffer, e.Sampler, e.TextureView)
	}
	return deps
}

// PipelineLayoutDescriptor describes a pipeline layout over bind
// group layouts.
type PipelineLayoutDescriptor struct {
	Name   string
	Device ID

	BindGroupLayouts []ID
}

func (d *PipelineLayoutDescriptor) Kind() Kind    { return PipelineLayout }
func (d *PipelineLayoutDescriptor) Label() string { return d.Name }

func (d *PipelineLayoutDescriptor) Dependencies() []ID {
	deps := appendValid(nil, d.Device)
	return appendValid(deps, d.BindGroupLayouts...)
}

// VertexBufferLayout describes the memory layout of one vertex buffer
// slot.
type VertexBufferLayout struct {
	ArrayStride uint64
	StepMode    wgpu.VertexStepMode
	Attributes  []wgpu.VertexAttribute
}

// VertexState is the vertex stage of a render pipeline.
type VertexState struct {
	ShaderModule ID
	EntryPoint   string
	Buffers      []VertexBufferLayout
}

// ColorTargetState describes one color output of the fragment stage.
type ColorTargetState struct {
	Format    wgpu.TextureFormat
	Blend     *wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// FragmentState is the fragment stage of a render pipeline.
type FragmentState struct {
	ShaderModule ID
	EntryPoint   string
	Targets      []ColorTargetState
}

// DepthStencilState configures depth/stencil testing.
type DepthStencilState struct {
	Format            wgpu.TextureFormat
	DepthWriteEnabled bool
	DepthCompare      wgpu.CompareFunction
}

// RenderPipelineDescriptor describes a render pipeline.
type RenderPipelineDescriptor struct {
	Name   string
	Layout ID

	Vertex       VertexState
	Fragment     *FragmentState
	Primitive    wgpu.PrimitiveState
	DepthStencil *DepthStencilState
	SampleCount  uint32
}

func (d *RenderPipelineDescriptor) Kind() Kind    { return RenderPipeline }
func (d *RenderPipelineDescriptor) Label() string { return d.Name }

func (d *RenderPipelineDescriptor) Dependencies() []ID {
	deps := appendValid(nil, d.Layout, d.Vertex.ShaderModule)
	if d.Fragment != nil {
		deps = appendValid(deps, d.Fragment.ShaderModule)
	}
	return deps
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Name   string
	Layout ID

	ShaderModule ID
	EntryPoint   string
}

func (d *ComputePipelineDescriptor) Kind() Kind    { return ComputePipeline }
func (d *ComputePipelineDescriptor) Label() string { return d.Name }

func (d *ComputePipelineDescriptor) Dependencies() []ID {
	return appendValid(nil, d.Layout, d.ShaderModule)
}

// CommandBufferDescriptor describes a recorded command buffer as a
// list of declarative commands. The command buffer depends on every
// resource its commands touch, so rebuilding any of them re-records
// the commands.
type CommandBufferDescriptor struct {
	Name   string
	Device ID

	Commands []Command
}

func (d *CommandBufferDescriptor) Kind() Kind    { return CommandBuffer }
func (d *CommandBufferDescriptor) Label() string { return d.Name }

func (d *CommandBufferDescriptor) Dependencies() []ID {
	deps := appendValid(nil, d.Device)
	for _, c := range d.Commands {
		deps = appendValid(deps, c.References()...)
	}
	return deps
}
