package index

import "github.com/wbrown/janus-eve/eve"

// RoundView is the scoped read-view DangerousMergeLookup is exposed through
// (spec.md §9's design note): it is created fresh per round and must never
// be cached on a TripleIndex, since the pending half of its answer stops
// being valid the moment the owning change set commits.
type RoundView struct {
	db      string
	index   *TripleIndex
	changes *ChangeSet
}

// NewRoundView scopes a dangerous merge lookup to one db's index and its
// evaluation's in-flight change set for the current round.
func NewRoundView(db string, index *TripleIndex, changes *ChangeSet) *RoundView {
	return &RoundView{db: db, index: index, changes: changes}
}

// DangerousMergeLookup returns the values consistent with (e,a) in the
// committed index, union-merged with pending additions from the active
// change set and minus pending removals. The result is only valid for the
// current round; it must be recomputed after every commit.
func (r *RoundView) DangerousMergeLookup(e eve.Id, a eve.Attribute) []eve.Value {
	seen := make(map[string]eve.Value)
	keyOf := func(v eve.Value) string {
		return string(append([]byte{byte(eve.Type(v))}, eve.EncodeValue(v)...))
	}

	for _, q := range r.index.Iterate(Pattern{E: &e, A: &a}) {
		seen[keyOf(q.V)] = q.V
	}

	for _, pending := range r.changes.PendingFor(r.db, e, a) {
		k := keyOf(pending.V)
		if pending.Change > 0 {
			seen[k] = pending.V
		} else {
			delete(seen, k)
		}
	}

	out := make([]eve.Value, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out
}

// TagMergeLookup is DangerousMergeLookup specialized to eve.TagAttribute,
// the shape the block activation filter actually consumes.
func (r *RoundView) TagMergeLookup(e eve.Id) []eve.Value {
	return r.DangerousMergeLookup(e, eve.TagAttribute)
}
