// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import "github.com/cogentcore/wgpuengine/resource"

// EventKind enumerates the resource lifecycle events the engine
// emits.
type EventKind int32

const (
	// SwapchainCreated reports a new swapchain for an external
	// surface id.
	SwapchainCreated EventKind = iota

	// SwapchainUpdated reports that a swapchain was reconfigured
	// (typically a resize).
	SwapchainUpdated

	// SwapchainDestroyed reports that a swapchain and its surface
	// were removed.
	SwapchainDestroyed
)

func (k EventKind) String() string {
	switch k {
	case SwapchainCreated:
		return "SwapchainCreated"
	case SwapchainUpdated:
		return "SwapchainUpdated"
	case SwapchainDestroyed:
		return "SwapchainDestroyed"
	}
	return "UnknownEvent"
}

// ResourceEvent is an out-of-band notification from the engine-managed
// swapchain lifecycle into arbitrary tasks, so they can react to
// surfaces appearing, resizing, and disappearing without polling.
type ResourceEvent struct {
	Kind EventKind

	// ExternalID is the caller-chosen id correlating the swapchain
	// with a windowing-layer surface.
	ExternalID uint64

	// Swapchain is the swapchain resource id; zero for
	// [SwapchainDestroyed].
	Swapchain resource.ID
}
