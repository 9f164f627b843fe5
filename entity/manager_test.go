// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testEnt struct {
	name string
	deps []ID
}

func (e *testEnt) Dependencies() []ID { return e.deps }

func TestAddMissingDependency(t *testing.T) {
	m := NewManager[*testEnt]()
	_, err := m.Add(&testEnt{name: "a", deps: []ID{42}})
	assert.ErrorIs(t, err, ErrMissingDependencies)
	assert.Equal(t, 0, m.Len())
}

func TestAddEdges(t *testing.T) {
	m := NewManager[*testEnt]()
	a, err := m.Add(&testEnt{name: "a"})
	assert.NoError(t, err)
	b, err := m.Add(&testEnt{name: "b", deps: []ID{a}})
	assert.NoError(t, err)
	c, err := m.Add(&testEnt{name: "c", deps: []ID{a, b}})
	assert.NoError(t, err)

	assert.Equal(t, []ID{a, b}, m.Parents(c))
	assert.Equal(t, []ID{b, c}, m.Children(a))
	assert.Equal(t, []ID{a, b, c}, m.IDs())
}

func TestIDsNotReused(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	assert.NoError(t, m.Remove(a))
	b, _ := m.Add(&testEnt{name: "b"})
	assert.NotEqual(t, a, b)
	assert.False(t, m.Has(a))
	assert.True(t, m.Has(b))
}

func TestUpdateRejectsCycle(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	b, _ := m.Add(&testEnt{name: "b", deps: []ID{a}})
	c, _ := m.Add(&testEnt{name: "c", deps: []ID{b}})

	// a -> b -> c, so a depending on c (or b, or itself) would cycle
	assert.ErrorIs(t, m.Update(a, &testEnt{name: "a", deps: []ID{c}}), ErrCycle)
	assert.ErrorIs(t, m.Update(a, &testEnt{name: "a", deps: []ID{b}}), ErrCycle)
	assert.ErrorIs(t, m.Update(b, &testEnt{name: "b", deps: []ID{b}}), ErrCycle)

	// graph unchanged, order still covers every entity
	assert.Empty(t, m.Parents(a))
	assert.Equal(t, []ID{a}, m.Parents(b))
	assert.Equal(t, []ID{a, b, c}, m.Topological())

	// a legal reshuffle still works
	assert.NoError(t, m.Update(c, &testEnt{name: "c", deps: []ID{a}}))
	assert.Equal(t, []ID{a}, m.Parents(c))
}

func TestUpdateEdgeDiff(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	b, _ := m.Add(&testEnt{name: "b"})
	c, _ := m.Add(&testEnt{name: "c", deps: []ID{a}})

	assert.NoError(t, m.Update(c, &testEnt{name: "c", deps: []ID{b}}))
	assert.Equal(t, []ID{b}, m.Parents(c))
	assert.Empty(t, m.Children(a))
	assert.Equal(t, []ID{c}, m.Children(b))

	// unknown new dependency leaves edges untouched
	assert.ErrorIs(t, m.Update(c, &testEnt{name: "c", deps: []ID{99}}), ErrMissingDependencies)
	assert.Equal(t, []ID{b}, m.Parents(c))

	assert.ErrorIs(t, m.Update(99, &testEnt{name: "x"}), ErrNotFound)
}

func TestRemoveClearsEdges(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	b, _ := m.Add(&testEnt{name: "b", deps: []ID{a}})

	assert.NoError(t, m.Remove(b))
	assert.Empty(t, m.Children(a))
	assert.ErrorIs(t, m.Remove(b), ErrNotFound)
}

func TestAddEdgeIdempotent(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	b, _ := m.Add(&testEnt{name: "b"})
	m.AddEdge(a, b)
	m.AddEdge(a, b)
	assert.Equal(t, []ID{b}, m.Children(a))
	m.RemoveEdge(a, b)
	m.RemoveEdge(a, b)
	assert.Empty(t, m.Children(a))
}

func TestTopological(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	b, _ := m.Add(&testEnt{name: "b", deps: []ID{a}})
	c, _ := m.Add(&testEnt{name: "c", deps: []ID{a}})
	d, _ := m.Add(&testEnt{name: "d", deps: []ID{b, c}})

	order := m.Topological()
	assert.Len(t, order, 4)
	pos := map[ID]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos[a], pos[b])
	assert.Less(t, pos[a], pos[c])
	assert.Less(t, pos[b], pos[d])
	assert.Less(t, pos[c], pos[d])
	// deterministic: ties broken by ascending id
	assert.Equal(t, []ID{a, b, c, d}, order)
}

func TestReachable(t *testing.T) {
	m := NewManager[*testEnt]()
	a, _ := m.Add(&testEnt{name: "a"})
	b, _ := m.Add(&testEnt{name: "b", deps: []ID{a}})
	c, _ := m.Add(&testEnt{name: "c", deps: []ID{b}})
	d, _ := m.Add(&testEnt{name: "d"})

	assert.ElementsMatch(t, []ID{a, b, c}, m.Reachable(a))
	assert.Equal(t, []ID{d}, m.Reachable(d))
	assert.Nil(t, m.Reachable(99))
}
