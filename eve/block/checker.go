package block

import (
	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/index"
)

// Checker is the block activation filter: an over-approximating predicate
// that decides whether a block might observe a new binding as a result of
// one changed triple. Returning true when no binding actually fires is
// permitted (wasted work); returning false when a binding would fire is
// forbidden — soundness here is the absolute obligation spec.md §4.5
// describes, never optional.
type Checker interface {
	// Check reports whether change to (e,a,v) — with change's entity
	// already carrying the merged tag set tags — might activate the
	// block. idx is passed through for checkers that need more than the
	// merged tag set to decide; the canonical implementation doesn't.
	Check(idx *index.TripleIndex, change int, tags []eve.Value, e eve.Id, a eve.Attribute, v eve.Value) bool
}

// Pattern is one (tag, attribute) requirement a block's patterns compile
// down to. A nil Attribute means the pattern is satisfied by any attribute
// once its tag matches — the "unconstrained attribute" case spec.md §4.5
// calls out explicitly.
type Pattern struct {
	Tag       eve.Value
	Attribute *eve.Attribute
}

type tagEntry struct {
	anyAttribute bool
	attributes   map[string]struct{}
}

// PatternChecker is the canonical (tag, attribute)-indexed implementation,
// grounded on indexed_memory_matcher.go's "index by what's bound, probe the
// cheapest index first" strategy, simplified to this filter's two-key
// shape: index blocks by tag, then narrow by attribute.
type PatternChecker struct {
	byTag map[string]*tagEntry
}

// NewPatternChecker builds a checker from a block's compiled patterns.
func NewPatternChecker(patterns []Pattern) *PatternChecker {
	c := &PatternChecker{byTag: make(map[string]*tagEntry)}
	for _, p := range patterns {
		key := tagKey(p.Tag)
		entry, ok := c.byTag[key]
		if !ok {
			entry = &tagEntry{attributes: make(map[string]struct{})}
			c.byTag[key] = entry
		}
		if p.Attribute == nil {
			entry.anyAttribute = true
			continue
		}
		entry.attributes[p.Attribute.String()] = struct{}{}
	}
	return c
}

func tagKey(v eve.Value) string {
	return string(append([]byte{byte(eve.Type(v))}, eve.EncodeValue(v)...))
}

// Check returns true iff the block has a pattern whose tag is in tags and
// whose attribute equals a (or is unconstrained).
func (c *PatternChecker) Check(_ *index.TripleIndex, _ int, tags []eve.Value, _ eve.Id, a eve.Attribute, _ eve.Value) bool {
	for _, tag := range tags {
		entry, ok := c.byTag[tagKey(tag)]
		if !ok {
			continue
		}
		if entry.anyAttribute {
			return true
		}
		if _, ok := entry.attributes[a.String()]; ok {
			return true
		}
	}
	return false
}
