// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	cfg := &Config{
		Power:         "high",
		PresentMode:   "mailbox",
		MaxBindGroups: 8,
	}
	require.NoError(t, SaveConfig(cfg, path))
	got, err := OpenConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestConfigMappings(t *testing.T) {
	assert.Equal(t, wgpu.PowerPreferenceUndefined, (&Config{}).PowerPreference())
	assert.Equal(t, wgpu.PowerPreferenceLowPower, (&Config{Power: "low"}).PowerPreference())
	assert.Equal(t, wgpu.PowerPreferenceHighPerformance, (&Config{Power: "high"}).PowerPreference())

	assert.Equal(t, wgpu.PresentModeFifo, (&Config{}).PresentModeValue())
	assert.Equal(t, wgpu.PresentModeImmediate, (&Config{PresentMode: "immediate"}).PresentModeValue())
	assert.Equal(t, wgpu.PresentModeMailbox, (&Config{PresentMode: "mailbox"}).PresentModeValue())
}

func TestRequirementsMerge(t *testing.T) {
	var a, b Requirements
	a.Limits.MaxBindGroups = limitU32Undefined
	a.Limits.MaxUniformBufferBindingSize = limitU64Undefined
	a.Limits.MinUniformBufferOffsetAlignment = 256
	b.Limits.MaxBindGroups = 8
	b.Limits.MaxUniformBufferBindingSize = 1 << 20
	b.Limits.MinUniformBufferOffsetAlignment = limitU32Undefined

	// a defined limit beats the undefined sentinel in either direction
	got := a.Merge(b)
	assert.Equal(t, uint32(8), got.Limits.MaxBindGroups)
	assert.Equal(t, uint64(1<<20), got.Limits.MaxUniformBufferBindingSize)
	assert.Equal(t, uint32(256), got.Limits.MinUniformBufferOffsetAlignment)

	// both defined: max limits take the larger value, Min* alignments
	// the smaller
	a.Limits.MaxBindGroups = 16
	b.Limits.MinUniformBufferOffsetAlignment = 64
	got = a.Merge(b)
	assert.Equal(t, uint32(16), got.Limits.MaxBindGroups)
	assert.Equal(t, uint32(64), got.Limits.MinUniformBufferOffsetAlignment)
}

func TestRequirementsMergeOverDefaults(t *testing.T) {
	over := DefaultRequirements()
	over.Limits.MaxBindGroups = 8
	got := DefaultRequirements().Merge(over)
	assert.Equal(t, uint32(8), got.Limits.MaxBindGroups)
}

func TestConfigRequirements(t *testing.T) {
	req := (&Config{MaxBindGroups: 8}).Requirements()
	assert.Equal(t, uint32(8), req.Limits.MaxBindGroups)
	def := (&Config{}).Requirements()
	assert.Equal(t, wgpu.DefaultLimits().MaxBindGroups, def.Limits.MaxBindGroups)
}
