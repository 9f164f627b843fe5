// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
)

// Config holds engine settings, loadable from a TOML file with
// [OpenConfig]. The zero value is usable.
type Config struct {
	// Power selects the adapter power preference: "low", "high", or
	// empty for no preference.
	Power string `toml:"power"`

	// ForceFallback requests a software adapter.
	ForceFallback bool `toml:"force-fallback"`

	// PresentMode is the swapchain present mode: "fifo" (default),
	// "immediate", or "mailbox".
	PresentMode string `toml:"present-mode"`

	// ConcurrentCommit builds damaged resources concurrently instead
	// of serially.
	ConcurrentCommit bool `toml:"concurrent-commit"`

	// MaxBindGroups raises the device bind group limit above the
	// spec default when non-zero.
	MaxBindGroups uint32 `toml:"max-bind-groups"`
}

// OpenConfig reads a [Config] from the TOML file at path.
func OpenConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config as TOML to the file at path.
func SaveConfig(cfg *Config, path string) error {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0666)
}

// PowerPreference returns the wgpu power preference for the config.
func (c *Config) PowerPreference() wgpu.PowerPreference {
	switch c.Power {
	case "low":
		return wgpu.PowerPreferenceLowPower
	case "high":
		return wgpu.PowerPreferenceHighPerformance
	}
	return wgpu.PowerPreferenceUndefined
}

// PresentModeValue returns the wgpu present mode for the config.
func (c *Config) PresentModeValue() wgpu.PresentMode {
	switch c.PresentMode {
	case "immediate":
		return wgpu.PresentModeImmediate
	case "mailbox":
		return wgpu.PresentModeMailbox
	}
	return wgpu.PresentModeFifo
}

// Requirements returns the device requirements implied by the config,
// merged over the defaults.
func (c *Config) Requirements() Requirements {
	req := DefaultRequirements()
	if c.MaxBindGroups > 0 {
		over := req
		over.Limits.MaxBindGroups = c.MaxBindGroups
		req = req.Merge(over)
	}
	return req
}
