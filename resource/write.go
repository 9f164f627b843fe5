// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Write is a pending host-to-GPU data upload, applied through the
// owning device's queue just before command buffers are submitted.
type Write interface {
	// Target returns the id of the resource written to, used to route
	// the write to the right device queue.
	Target() ID

	// Record applies the write through the queue, given the realized
	// handle of the target resource.
	Record(queue *wgpu.Queue, target Handle) error
}

// BufferWrite uploads Data into a buffer at Offset.
type BufferWrite struct {
	Buffer ID
	Offset uint64
	Data   []byte
}

func (w *BufferWrite) Target() ID { return w.Buffer }

func (w *BufferWrite) Record(queue *wgpu.Queue, target Handle) error {
	buf, ok := target.(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("resource: buffer write target %d is %T, not a buffer", w.Buffer, target)
	}
	return queue.WriteBuffer(buf, w.Offset, w.Data)
}

// TextureWrite uploads Data into a region of a texture.
type TextureWrite struct {
	Texture  ID
	MipLevel uint32
	Origin   wgpu.Origin3D
	Layout   wgpu.TextureDataLayout
	Size     wgpu.Extent3D
	Data     []byte
}

func (w *TextureWrite) Target() ID { return w.Texture }

func (w *TextureWrite) Record(queue *wgpu.Queue, target Handle) error {
	tex, ok := target.(*wgpu.Texture)
	if !ok {
		return fmt.Errorf("resource: texture write target %d is %T, not a texture", w.Texture, target)
	}
	return queue.WriteTexture(&wgpu.ImageCopyTexture{
		Texture:  tex,
		MipLevel: w.MipLevel,
		Origin:   w.Origin,
		Aspect:   wgpu.TextureAspectAll,
	}, w.Data, &w.Layout, &w.Size)
}
