// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testNode is a damage-trackable entity with a string descriptor and
// a string handle.
type testNode struct {
	deps   []ID
	desc   string
	handle string
	built  bool
}

func (n *testNode) Dependencies() []ID { return n.deps }
func (n *testNode) Descriptor() string { return n.desc }

func (n *testNode) SetDescriptor(d string) { n.desc = d }

func (n *testNode) NeedsRebuild(d string) bool { return n.desc != d }

func (n *testNode) Handle() (string, bool) { return n.handle, n.built }

func (n *testNode) SetHandle(h string) {
	n.handle = h
	n.built = true
}

func (n *testNode) TakeHandle() (string, bool) {
	if !n.built {
		return "", false
	}
	h := n.handle
	n.handle = ""
	n.built = false
	return h, true
}

func newDM() *DamageManager[string, string, *testNode] {
	return NewDamageManager[string, string, *testNode]()
}

func TestAddStartsDamaged(t *testing.T) {
	dm := newDM()
	a, err := dm.Add(&testNode{desc: "a"})
	assert.NoError(t, err)
	assert.True(t, dm.IsDamaged(a))

	b, err := dm.Add(&testNode{desc: "b", handle: "hb", built: true})
	assert.NoError(t, err)
	assert.False(t, dm.IsDamaged(b))
}

func TestDamageClosure(t *testing.T) {
	dm := newDM()
	// a <- b <- c, with d off to the side
	a, _ := dm.Add(&testNode{desc: "a"})
	b, _ := dm.Add(&testNode{desc: "b", deps: []ID{a}})
	c, _ := dm.Add(&testNode{desc: "c", deps: []ID{b}})
	d, _ := dm.Add(&testNode{desc: "d"})
	for _, id := range []ID{a, b, c, d} {
		assert.NoError(t, dm.SetHandle(id, "h"))
	}
	assert.Empty(t, dm.Damaged())

	dm.Damage(a)
	assert.Equal(t, []ID{a, b, c}, dm.Damaged())
	assert.False(t, dm.IsDamaged(d))

	// damaging an already-damaged id is a no-op
	dm.Damage(a)
	assert.Equal(t, []ID{a, b, c}, dm.Damaged())
}

func TestFixAndSetHandle(t *testing.T) {
	dm := newDM()
	a, _ := dm.Add(&testNode{desc: "a"})
	assert.True(t, dm.IsDamaged(a))
	assert.NoError(t, dm.SetHandle(a, "ha"))
	assert.False(t, dm.IsDamaged(a))
	n, _ := dm.Get(a)
	h, ok := n.Handle()
	assert.True(t, ok)
	assert.Equal(t, "ha", h)

	assert.ErrorIs(t, dm.SetHandle(99, "x"), ErrNotFound)
}

func TestTakeHandleRedamages(t *testing.T) {
	dm := newDM()
	a, _ := dm.Add(&testNode{desc: "a"})
	b, _ := dm.Add(&testNode{desc: "b", deps: []ID{a}})
	dm.SetHandle(a, "ha")
	dm.SetHandle(b, "hb")

	h, ok := dm.TakeHandle(a)
	assert.True(t, ok)
	assert.Equal(t, "ha", h)
	assert.True(t, dm.IsDamaged(a))
	assert.True(t, dm.IsDamaged(b))

	_, ok = dm.TakeHandle(a)
	assert.False(t, ok)
	_, ok = dm.TakeHandle(99)
	assert.False(t, ok)
}

func TestUpdateDescriptorDamagesOnChange(t *testing.T) {
	dm := newDM()
	a, _ := dm.Add(&testNode{desc: "a"})
	b, _ := dm.Add(&testNode{desc: "b", deps: []ID{a}})
	dm.SetHandle(a, "ha")
	dm.SetHandle(b, "hb")

	assert.NoError(t, dm.UpdateDescriptor(a, "a2"))
	assert.True(t, dm.IsDamaged(a))
	assert.True(t, dm.IsDamaged(b))
}

func TestUpdateDescriptorNoopNotDamaging(t *testing.T) {
	dm := newDM()
	a, _ := dm.Add(&testNode{desc: "a"})
	dm.SetHandle(a, "ha")

	assert.NoError(t, dm.UpdateDescriptor(a, "a"))
	assert.False(t, dm.IsDamaged(a))
}

func TestDamageTransitiveClosure(t *testing.T) {
	dm := newDM()
	// device <- {b1, b2}, bindgroup <- b1 only: damaging the device
	// must still reach the bindgroup through b1.
	dev, _ := dm.Add(&testNode{desc: "device"})
	b1, _ := dm.Add(&testNode{desc: "b1", deps: []ID{dev}})
	b2, _ := dm.Add(&testNode{desc: "b2", deps: []ID{dev}})
	grp, _ := dm.Add(&testNode{desc: "grp", deps: []ID{b1}})
	for _, id := range []ID{dev, b1, b2, grp} {
		dm.SetHandle(id, "h")
	}

	dm.Damage(dev)
	assert.Equal(t, []ID{dev, b1, b2, grp}, dm.Damaged())
}
