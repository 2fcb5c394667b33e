package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-eve/eve"
)

func TestTripleIndex_InsertSetSemantics(t *testing.T) {
	idx := New()
	e := eve.NewId("e1")
	a := eve.NewAttribute("tag")

	added := idx.Insert(e, a, "person", eve.NodeID("n1"))
	assert.True(t, added)

	addedAgain := idx.Insert(e, a, "person", eve.NodeID("n2"))
	assert.False(t, addedAgain, "a second producer asserting the same triple does not re-add it")

	quads := idx.Iterate(Pattern{E: &e, A: &a})
	require.Len(t, quads, 1)
}

func TestTripleIndex_ProvenanceReferenceCounting(t *testing.T) {
	idx := New()
	e := eve.NewId("e1")
	a := eve.NewAttribute("a")

	idx.Insert(e, a, "v", eve.NodeID("n1"))
	idx.Insert(e, a, "v", eve.NodeID("n2"))
	assert.True(t, idx.Contains(e, a, "v"))

	removed := idx.Remove(e, a, "v", eve.NodeID("n1"))
	assert.False(t, removed, "n2's provenance keeps the triple alive")
	assert.True(t, idx.Contains(e, a, "v"))

	removed = idx.Remove(e, a, "v", eve.NodeID("n2"))
	assert.True(t, removed)
	assert.False(t, idx.Contains(e, a, "v"))
}

func TestTripleIndex_RemoveAbsentIsNoOp(t *testing.T) {
	idx := New()
	e := eve.NewId("e1")
	a := eve.NewAttribute("a")
	removed := idx.Remove(e, a, "v", eve.NodeID("n1"))
	assert.False(t, removed)
}

func TestTripleIndex_IterateByEntity(t *testing.T) {
	idx := New()
	e1 := eve.NewId("e1")
	e2 := eve.NewId("e2")
	a := eve.NewAttribute("tag")

	idx.Insert(e1, a, "person", eve.NodeID("n1"))
	idx.Insert(e1, eve.NewAttribute("age"), int64(30), eve.NodeID("n1"))
	idx.Insert(e2, a, "robot", eve.NodeID("n1"))

	quads := idx.Iterate(Pattern{E: &e1})
	assert.Len(t, quads, 2)
}

func TestTripleIndex_IterateByAttribute(t *testing.T) {
	idx := New()
	e1 := eve.NewId("e1")
	e2 := eve.NewId("e2")
	tag := eve.NewAttribute("tag")

	idx.Insert(e1, tag, "person", eve.NodeID("n1"))
	idx.Insert(e2, tag, "robot", eve.NodeID("n1"))

	quads := idx.Iterate(Pattern{A: &tag})
	assert.Len(t, quads, 2)
}

func TestTripleIndex_IterateByValue(t *testing.T) {
	idx := New()
	e1 := eve.NewId("e1")
	e2 := eve.NewId("e2")
	idx.Insert(e1, eve.NewAttribute("tag"), "person", eve.NodeID("n1"))
	idx.Insert(e2, eve.NewAttribute("kind"), "person", eve.NodeID("n1"))

	quads := idx.Iterate(Pattern{V: "person"})
	assert.Len(t, quads, 2)
}

func TestTripleIndex_IterateDeterministicOrder(t *testing.T) {
	idx := New()
	idx.Insert(eve.NewId("e2"), eve.NewAttribute("a"), "v", eve.NodeID("n1"))
	idx.Insert(eve.NewId("e1"), eve.NewAttribute("a"), "v", eve.NodeID("n1"))
	idx.Insert(eve.NewId("e3"), eve.NewAttribute("a"), "v", eve.NodeID("n1"))

	first := idx.Iterate(Pattern{})
	second := idx.Iterate(Pattern{})
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].E.Equal(second[i].E))
	}
}

func TestTripleIndex_ToTriples(t *testing.T) {
	idx := New()
	e := eve.NewId("e1")
	a := eve.NewAttribute("tag")
	idx.Insert(e, a, "person", eve.NodeID("n1"))
	idx.Insert(e, a, "person", eve.NodeID("n2"))

	withoutProv := idx.ToTriples(false)
	require.Len(t, withoutProv, 1)

	withProv := idx.ToTriples(true)
	require.Len(t, withProv, 2)
}

func TestTripleIndex_ApplyDeltaDirectNet(t *testing.T) {
	idx := New()
	e := eve.NewId("e1")
	a := eve.NewAttribute("a")

	was, now := idx.ApplyDelta(e, a, "v", eve.NodeID("n1"), 2)
	assert.False(t, was)
	assert.True(t, now)
	assert.True(t, idx.Contains(e, a, "v"))

	was, now = idx.ApplyDelta(e, a, "v", eve.NodeID("n1"), -2)
	assert.True(t, was)
	assert.False(t, now)
	assert.False(t, idx.Contains(e, a, "v"))
}
