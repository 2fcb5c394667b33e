// Package index holds the triple index, change set, and multi-index
// registry: the mutable EAVN storage layer blocks read from and write to.
package index

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/wbrown/janus-eve/eve"
)

// Pattern specifies which of e, a, v are bound for Iterate and the merge
// lookup. A nil field is unbound.
type Pattern struct {
	E *eve.Id
	A *eve.Attribute
	V eve.Value // nil means unbound
}

// entry is one logical (e,a,v) triple, reference-counted by provenance node
// so that two producers asserting the same triple don't let either one's
// removal delete it out from under the other (spec'd provenance balance
// invariant).
type entry struct {
	quad  eve.Quad // representative; N is whichever producer inserted first
	refs  map[eve.NodeID]int
	total int
}

func (e *entry) present() bool { return e.total > 0 }

// TripleIndex is a mutable, reference-counted EAVN store with multi-axis
// lookup, generalized from the read-only pattern matching in
// indexed_memory_matcher.go to support Insert/Remove against a live index.
type TripleIndex struct {
	mu sync.RWMutex

	facts map[string]*entry

	byEntity    map[[20]byte]map[string]struct{}
	byAttribute map[string]map[string]struct{}
	byEA        map[string]map[string]struct{}
	byValue     map[string]map[string]struct{}
}

// New returns an empty triple index.
func New() *TripleIndex {
	return &TripleIndex{
		facts:       make(map[string]*entry),
		byEntity:    make(map[[20]byte]map[string]struct{}),
		byAttribute: make(map[string]map[string]struct{}),
		byEA:        make(map[string]map[string]struct{}),
		byValue:     make(map[string]map[string]struct{}),
	}
}

func valueHash(v eve.Value) uint64 {
	return xxhash.Sum64(eve.EncodeValue(v))
}

// factKey identifies a logical (e,a,v) triple independent of provenance.
// The value type tag is included so two values that happen to encode to the
// same bytes under different types (e.g. a string and a []byte of equal
// content) are not confused with each other.
func factKey(e eve.Id, a eve.Attribute, v eve.Value) string {
	vType := eve.Type(v)
	vBytes := eve.EncodeValue(v)
	buf := make([]byte, 0, 20+1+len(a.String())+1+len(vBytes)+1)
	buf = append(buf, e.Bytes()...)
	buf = append(buf, '|')
	buf = append(buf, a.Bytes()...)
	buf = append(buf, '|')
	buf = append(buf, byte(vType))
	buf = append(buf, '|')
	buf = append(buf, vBytes...)
	return string(buf)
}

func eaKey(e eve.Id, a eve.Attribute) string {
	return string(e.Bytes()) + "|" + a.String()
}

func addToSet(m map[string]map[string]struct{}, bucket, key string) {
	s, ok := m[bucket]
	if !ok {
		s = make(map[string]struct{})
		m[bucket] = s
	}
	s[key] = struct{}{}
}

func removeFromSet(m map[string]map[string]struct{}, bucket, key string) {
	s, ok := m[bucket]
	if !ok {
		return
	}
	delete(s, key)
	if len(s) == 0 {
		delete(m, bucket)
	}
}

// ApplyDelta adjusts the reference count of (e,a,v) for node n by delta
// (positive for insertion, negative for removal) and reports whether the
// logical triple's presence changed. It is the primitive both Insert/Remove
// and ChangeSet.Commit build on: Insert/Remove call it with delta ±1, while
// a commit applies a change set's already-netted per-entry delta directly.
func (t *TripleIndex) ApplyDelta(e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID, delta int) (wasPresent, nowPresent bool) {
	if delta == 0 {
		t.mu.RLock()
		ent := t.facts[factKey(e, a, v)]
		present := ent != nil && ent.present()
		t.mu.RUnlock()
		return present, present
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := factKey(e, a, v)
	ent, ok := t.facts[key]
	if !ok {
		ent = &entry{
			quad: eve.Quad{E: e, A: a, V: v, N: n},
			refs: make(map[eve.NodeID]int),
		}
		t.facts[key] = ent
	}
	wasPresent = ent.present()

	ent.refs[n] += delta
	ent.total += delta
	if ent.refs[n] == 0 {
		delete(ent.refs, n)
	}

	nowPresent = ent.present()

	if !wasPresent && nowPresent {
		t.index(e, a, v, key)
	} else if wasPresent && !nowPresent {
		t.deindex(e, a, key)
		delete(t.facts, key)
	}

	return wasPresent, nowPresent
}

func (t *TripleIndex) index(e eve.Id, a eve.Attribute, v eve.Value, key string) {
	eHash := e.Hash()
	if t.byEntity[eHash] == nil {
		t.byEntity[eHash] = make(map[string]struct{})
	}
	t.byEntity[eHash][key] = struct{}{}

	addToSet(t.byAttribute, a.String(), key)
	addToSet(t.byEA, eaKey(e, a), key)

	vh := valueHash(v)
	bucketKey := formatUint64(vh)
	addToSet(t.byValue, bucketKey, key)
}

func (t *TripleIndex) deindex(e eve.Id, a eve.Attribute, key string) {
	eHash := e.Hash()
	if s, ok := t.byEntity[eHash]; ok {
		delete(s, key)
		if len(s) == 0 {
			delete(t.byEntity, eHash)
		}
	}
	removeFromSet(t.byAttribute, a.String(), key)
	removeFromSet(t.byEA, eaKey(e, a), key)

	ent := t.facts[key]
	if ent != nil {
		vh := valueHash(ent.quad.V)
		removeFromSet(t.byValue, formatUint64(vh), key)
	}
}

func formatUint64(v uint64) string {
	const hex = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hex[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// Insert adds the quad (e,a,v,n). added is true iff the logical (e,a,v)
// triple became present, i.e. it had no positive provenance before.
func (t *TripleIndex) Insert(e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID) (added bool) {
	was, now := t.ApplyDelta(e, a, v, n, 1)
	return !was && now
}

// Remove retracts node n's provenance for (e,a,v). removed is true iff the
// last provenance for the triple is gone. Removing a quad with no recorded
// provenance for n is a no-op.
func (t *TripleIndex) Remove(e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID) (removed bool) {
	t.mu.RLock()
	ent, ok := t.facts[factKey(e, a, v)]
	present := ok && ent.refs[n] != 0
	t.mu.RUnlock()
	if !present {
		return false
	}
	was, now := t.ApplyDelta(e, a, v, n, -1)
	return was && !now
}

// Contains reports point membership for a fully specified (e,a,v).
func (t *TripleIndex) Contains(e eve.Id, a eve.Attribute, v eve.Value) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ent, ok := t.facts[factKey(e, a, v)]
	return ok && ent.present()
}

// Iterate returns every quad matching pattern, in a deterministic order
// (stable across equal index states) as required by spec.
func (t *TripleIndex) Iterate(pattern Pattern) []eve.Quad {
	t.mu.RLock()
	keys := t.candidateKeys(pattern)
	quads := make([]eve.Quad, 0, len(keys))
	for key := range keys {
		ent, ok := t.facts[key]
		if !ok || !ent.present() {
			continue
		}
		if !matches(ent.quad, pattern) {
			continue
		}
		quads = append(quads, ent.quad)
	}
	t.mu.RUnlock()

	sort.Slice(quads, func(i, j int) bool {
		return quadLess(quads[i], quads[j])
	})
	return quads
}

func quadLess(a, b eve.Quad) bool {
	if c := eve.CompareValues(a.E, b.E); c != 0 {
		return c < 0
	}
	if c := a.A.Compare(b.A); c != 0 {
		return c < 0
	}
	if c := eve.CompareValues(a.V, b.V); c != 0 {
		return c < 0
	}
	return a.N < b.N
}

// candidateKeys picks the cheapest available index given which of e, a, v
// are bound, mirroring indexed_memory_matcher.go's chooseStrategy priority:
// EA bound beats E or A alone, which beat V alone, which beats a full scan.
func (t *TripleIndex) candidateKeys(pattern Pattern) map[string]struct{} {
	switch {
	case pattern.E != nil && pattern.A != nil:
		return cloneSet(t.byEA[eaKey(*pattern.E, *pattern.A)])
	case pattern.E != nil:
		return cloneSet(t.byEntity[pattern.E.Hash()])
	case pattern.A != nil:
		return cloneSet(t.byAttribute[pattern.A.String()])
	case pattern.V != nil:
		return cloneSet(t.byValue[formatUint64(valueHash(pattern.V))])
	default:
		all := make(map[string]struct{}, len(t.facts))
		for k := range t.facts {
			all[k] = struct{}{}
		}
		return all
	}
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

func matches(q eve.Quad, pattern Pattern) bool {
	if pattern.E != nil && !q.E.Equal(*pattern.E) {
		return false
	}
	if pattern.A != nil && q.A.Compare(*pattern.A) != 0 {
		return false
	}
	if pattern.V != nil && !eve.ValuesEqual(q.V, pattern.V) {
		return false
	}
	return true
}

// ToTriples dumps every present quad, used by save(). When includeProvenance
// is false, only one representative quad per (e,a,v) is returned (its N is
// still populated, but duplicate provenance entries for the same triple are
// collapsed); when true, one quad is returned per distinct provenance node.
func (t *TripleIndex) ToTriples(includeProvenance bool) []eve.Quad {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var quads []eve.Quad
	for _, ent := range t.facts {
		if !ent.present() {
			continue
		}
		if !includeProvenance {
			quads = append(quads, ent.quad)
			continue
		}
		for n, count := range ent.refs {
			if count <= 0 {
				continue
			}
			q := ent.quad
			q.N = n
			quads = append(quads, q)
		}
	}

	sort.Slice(quads, func(i, j int) bool { return quadLess(quads[i], quads[j]) })
	return quads
}
