// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resource implements a dependency-tracked GPU resource
// manager: tasks describe GPU objects declaratively as descriptors
// referencing other resources by id, the manager derives the
// dependency graph, tracks which resources are stale, deduplicates
// structurally equal stateless descriptors, and rebuilds damaged
// resources in dependency order through a pluggable [Builder].
package resource

import (
	"strconv"

	"github.com/cogentcore/wgpuengine/entity"
)

// ID identifies a resource in a [Manager].
type ID = entity.ID

// TaskID identifies a task owning resources. Tasks live in their own
// graph (see the engine package); here they are only owner stamps.
type TaskID = entity.ID

// Kind enumerates the resource kinds the manager knows how to build.
type Kind int32

const (
	UnknownKind Kind = iota
	Instance
	Device
	Swapchain
	Buffer
	Texture
	TextureView
	Sampler
	ShaderModule
	BindGroupLayout
	BindGroup
	PipelineLayout
	RenderPipeline
	ComputePipeline
	CommandBuffer
)

var kindNames = map[Kind]string{
	UnknownKind:     "Unknown",
	Instance:        "Instance",
	Device:          "Device",
	Swapchain:       "Swapchain",
	Buffer:          "Buffer",
	Texture:         "Texture",
	TextureView:     "TextureView",
	Sampler:         "Sampler",
	ShaderModule:    "ShaderModule",
	BindGroupLayout: "BindGroupLayout",
	BindGroup:       "BindGroup",
	PipelineLayout:  "PipelineLayout",
	RenderPipeline:  "RenderPipeline",
	ComputePipeline: "ComputePipeline",
	CommandBuffer:   "CommandBuffer",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Kinds lists every buildable kind, in dependency-friendly order.
var Kinds = []Kind{Instance, Device, Swapchain, Buffer, Texture,
	TextureView, Sampler, ShaderModule, BindGroupLayout, BindGroup,
	PipelineLayout, RenderPipeline, ComputePipeline, CommandBuffer}

// StateType classifies a resource kind for deduplication purposes.
type StateType int32

const (
	// Stateless resources are fully described by their descriptor:
	// two equal descriptors always resolve to one underlying object.
	Stateless StateType = iota

	// Stateful resources carry runtime state beyond their descriptor
	// (buffer and texture contents, acquired swapchain frames) and
	// are never deduplicated.
	Stateful
)

func (s StateType) String() string {
	if s == Stateful {
		return "Stateful"
	}
	return "Stateless"
}

// State returns the [StateType] of the kind.
func (k Kind) State() StateType {
	switch k {
	case Buffer, Texture, Swapchain:
		return Stateful
	default:
		return Stateless
	}
}
