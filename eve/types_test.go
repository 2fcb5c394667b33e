package eve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttribute_CompareOrdersByName(t *testing.T) {
	a := NewAttribute("age")
	b := NewAttribute("name")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestQuad_String(t *testing.T) {
	q := Quad{
		E: NewId("alice"),
		A: NewAttribute("age"),
		V: int64(30),
		N: NodeID("input"),
	}
	s := q.String()
	assert.Contains(t, s, "alice")
	assert.Contains(t, s, "age")
	assert.Contains(t, s, "30")
	assert.Contains(t, s, "input")
}

func TestTagAttribute_Name(t *testing.T) {
	assert.Equal(t, "tag", TagAttribute.String())
}
