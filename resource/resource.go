// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import "slices"

// Resource is one node in the resource graph: the tasks that own it,
// the authoritative descriptor, and the realized handle, which is nil
// exactly when the resource is damaged or has never been built.
type Resource struct {
	owners []TaskID
	desc   Descriptor
	handle Handle
}

// NewResource returns a new unbuilt resource owned by owner.
func NewResource(owner TaskID, d Descriptor) *Resource {
	return &Resource{owners: []TaskID{owner}, desc: d}
}

// NewResourceWithHandle returns a new resource with an already-built
// handle, owned by owner.
func NewResourceWithHandle(owner TaskID, d Descriptor, h Handle) *Resource {
	return &Resource{owners: []TaskID{owner}, desc: d, handle: h}
}

func (r *Resource) Dependencies() []ID { return r.desc.Dependencies() }

func (r *Resource) Descriptor() Descriptor { return r.desc }

func (r *Resource) SetDescriptor(d Descriptor) { r.desc = d }

// NeedsRebuild reports whether replacing the descriptor with d
// requires rebuilding the handle: any structural change does.
func (r *Resource) NeedsRebuild(d Descriptor) bool { return !Equal(r.desc, d) }

func (r *Resource) Handle() (Handle, bool) { return r.handle, r.handle != nil }

func (r *Resource) SetHandle(h Handle) { r.handle = h }

func (r *Resource) TakeHandle() (Handle, bool) {
	if r.handle == nil {
		return nil, false
	}
	h := r.handle
	r.handle = nil
	return h, true
}

// AddOwner registers owner, deduplicating: a task owns a resource at
// most once.
func (r *Resource) AddOwner(owner TaskID) {
	if !slices.Contains(r.owners, owner) {
		r.owners = append(r.owners, owner)
	}
}

// RemoveOwner removes owner from the owner list, reporting whether it
// was present.
func (r *Resource) RemoveOwner(owner TaskID) bool {
	i := slices.Index(r.owners, owner)
	if i < 0 {
		return false
	}
	r.owners = slices.Delete(r.owners, i, i+1)
	return true
}

// Owners returns a copy of the owning task ids.
func (r *Resource) Owners() []TaskID { return slices.Clone(r.owners) }

// NumOwners returns the number of owning tasks.
func (r *Resource) NumOwners() int { return len(r.owners) }

func (r *Resource) String() string {
	return r.desc.Kind().String() + ":" + r.desc.Label()
}
