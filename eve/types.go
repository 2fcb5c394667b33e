package eve

import "fmt"

// Quad is the fundamental unit of data held by a triple index: an
// Entity-Attribute-Value-Node fact, exactly the EAVN quadruple spec.md §3
// describes. Equality on all four fields defines quad identity; the
// committed store itself only ever holds one logical (E,A,V), with N
// tracked separately for reference-counted provenance (§4.1).
type Quad struct {
	E Id        // Entity
	A Attribute // Attribute (conventionally a symbol)
	V Value     // Value
	N NodeID    // Provenance: the block or input that produced the fact
}

// Attribute is an attribute name. Unlike Id, Attributes are plain
// strings rather than hashes — there are usually few distinct attributes
// and they benefit from cheap equality and sorted iteration.
type Attribute struct {
	name string
}

// NewAttribute builds an attribute from its string form (e.g. "tag").
func NewAttribute(s string) Attribute {
	return Attribute{name: s}
}

// String returns the attribute's name.
func (a Attribute) String() string { return a.name }

// Compare orders two attributes lexicographically by name.
func (a Attribute) Compare(other Attribute) int {
	switch {
	case a.name < other.name:
		return -1
	case a.name > other.name:
		return 1
	default:
		return 0
	}
}

// Bytes returns the attribute name as bytes.
func (a Attribute) Bytes() []byte { return []byte(a.name) }

// TagAttribute is the distinguished attribute used by the tag merge lookup
// (spec.md §3, §4.1): tag values loosely categorize an entity (its "kind")
// and are what the block activation filter indexes blocks by.
var TagAttribute = NewAttribute("tag")

// NodeID identifies the producer of a fact: a block id, or a tag for
// externally-supplied input. It has no internal structure the core cares
// about beyond equality, so it is a plain string rather than a minted Id —
// nodes are never looked up by partial key the way entities are.
type NodeID string

// String returns the node id's string form.
func (n NodeID) String() string { return string(n) }

// String returns a human-readable representation of the quad.
func (q Quad) String() string {
	return fmt.Sprintf("[%s %s %v %s]", q.E.String(), q.A, q.V, q.N)
}
