// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"reflect"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Requirements captures what a client needs from the device the
// engine creates. Multiple requirement sets merge field by field:
// "max" limits take the larger value, "min" alignment limits take the
// smaller.
type Requirements struct {
	Limits wgpu.Limits
}

// DefaultRequirements returns the WebGPU spec default limits.
func DefaultRequirements() Requirements {
	return Requirements{Limits: wgpu.DefaultLimits()}
}

// wgpu-native marks limits with no requirement using all-ones
// sentinels rather than numeric defaults.
const (
	limitU32Undefined = 0xFFFFFFFF
	limitU64Undefined = 0xFFFFFFFFFFFFFFFF
)

// Merge returns the union of r and o: per numeric limit field, the
// larger value, except Min*-prefixed alignment limits, which take the
// smaller. An undefined limit on either side never overrides a
// defined one.
func (r Requirements) Merge(o Requirements) Requirements {
	rv := reflect.ValueOf(&r.Limits).Elem()
	ov := reflect.ValueOf(o.Limits)
	for i := range rv.NumField() {
		f := rv.Field(i)
		of := ov.Field(i)
		lower := strings.HasPrefix(rv.Type().Field(i).Name, "Min")
		switch f.Kind() {
		case reflect.Uint32, reflect.Uint64:
			undef := uint64(limitU32Undefined)
			if f.Kind() == reflect.Uint64 {
				undef = limitU64Undefined
			}
			a, b := f.Uint(), of.Uint()
			switch {
			case b == undef:
			case a == undef:
				f.SetUint(b)
			case lower && b < a || !lower && b > a:
				f.SetUint(b)
			}
		}
	}
	return r
}
