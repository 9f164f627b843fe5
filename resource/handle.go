// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/wgpuengine/base/errors"
)

// Handle is the realized backing object for a descriptor, produced by
// a [Builder]. The manager never inspects a handle; it only stores it,
// retrieves it by id, and passes it to the next builder. Concrete
// handle types are the wgpu objects (*wgpu.Buffer, *wgpu.Texture,
// ...), [*DeviceHandle], and [*SwapchainHandle].
type Handle = any

// releaser is implemented by handles holding GPU objects that must be
// released when the resource is removed.
type releaser interface {
	Release()
}

// DeviceHandle is the handle of a Device resource: the adapter, the
// logical device, and its single submission queue.
type DeviceHandle struct {
	Adapter *wgpu.Adapter
	Device  *wgpu.Device
	Queue   *wgpu.Queue
}

func (h *DeviceHandle) Release() {
	if h.Queue != nil {
		h.Queue.Release()
	}
	if h.Device != nil {
		h.Device.Release()
	}
	if h.Adapter != nil {
		h.Adapter.Release()
	}
}

// SwapchainHandle is the handle of a Swapchain resource: a configured
// surface plus the explicitly acquired current frame. Frame
// acquisition is a separate step ([SwapchainHandle.AcquireFrame], called
// once per dispatch before resources are committed) so that builders
// stay pure functions of descriptors and dependency handles.
type SwapchainHandle struct {
	Surface *wgpu.Surface
	Config  wgpu.SurfaceConfiguration

	frame *wgpu.Texture
	view  *wgpu.TextureView
}

// AcquireFrame acquires the surface's current texture and creates the
// view render passes draw to. It is a no-op if a frame is already
// acquired.
func (sc *SwapchainHandle) AcquireFrame() error {
	if sc.view != nil {
		return nil
	}
	frame, err := sc.Surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := frame.CreateView(nil)
	if err != nil {
		frame.Release()
		return err
	}
	sc.frame = frame
	sc.view = view
	return nil
}

// CurrentView returns the view of the acquired frame, or ok=false if
// no frame is currently acquired.
func (sc *SwapchainHandle) CurrentView() (*wgpu.TextureView, bool) {
	if sc.view == nil {
		return nil, false
	}
	return sc.view, true
}

// Present presents the acquired frame and releases it. It logs and
// no-ops if no frame is acquired.
func (sc *SwapchainHandle) Present() {
	if sc.view == nil {
		errors.Log(errors.New("resource: presenting swapchain with no acquired frame"))
		return
	}
	sc.view.Release()
	sc.frame.Release()
	sc.view = nil
	sc.frame = nil
	sc.Surface.Present()
}

// DropFrame releases an acquired frame without presenting it, for
// teardown paths.
func (sc *SwapchainHandle) DropFrame() {
	if sc.view != nil {
		sc.view.Release()
		sc.view = nil
	}
	if sc.frame != nil {
		sc.frame.Release()
		sc.frame = nil
	}
}

func (sc *SwapchainHandle) Release() {
	sc.DropFrame()
	if sc.Surface != nil {
		sc.Surface.Release()
	}
}
