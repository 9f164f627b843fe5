// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapchainHandleNoFrame(t *testing.T) {
	sc := &SwapchainHandle{}
	_, ok := sc.CurrentView()
	assert.False(t, ok)
	sc.DropFrame() // safe with nothing acquired
	_, ok = sc.CurrentView()
	assert.False(t, ok)
}

func TestSwapchainHandleInstalls(t *testing.T) {
	m, _, dev := newTestChain(t, newFakeBuilder())
	id, err := m.AddWithHandle(task1, &SwapchainDescriptor{
		Name: "sc", Device: dev, ExternalID: 1, Width: 640, Height: 480,
	}, &SwapchainHandle{})
	require.NoError(t, err)

	d, ok := m.Descriptor(id)
	require.True(t, ok)
	assert.Equal(t, Swapchain, d.Kind())
	assert.Equal(t, Stateful, d.Kind().State())

	sc, ok := HandleAs[*SwapchainHandle](m, id)
	require.True(t, ok)
	_, ok = sc.CurrentView()
	assert.False(t, ok)
}
