// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import "reflect"

// Descriptor is the declarative, comparable specification of what a
// resource should be. Descriptors reference their dependencies by
// resource id; the dependency list is always derived structurally from
// those fields, never stored separately.
type Descriptor interface {
	// Kind returns the resource kind this descriptor builds.
	Kind() Kind

	// Label returns the debug label for the resource.
	Label() string

	// Dependencies returns the ids of every resource this descriptor
	// references. All of them must exist before the resource can be
	// added.
	Dependencies() []ID
}

// Equal reports whether two descriptors are structurally equal,
// ignoring handles. Equal stateless descriptors always resolve to one
// underlying GPU object.
func Equal(a, b Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// appendValid appends the non-zero ids to deps, skipping unset
// optional references.
func appendValid(deps []ID, ids ...ID) []ID {
	for _, id := range ids {
		if id != 0 {
			deps = append(deps, id)
		}
	}
	return deps
}
