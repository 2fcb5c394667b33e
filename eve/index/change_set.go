package index

import (
	"sync"

	"github.com/wbrown/janus-eve/eve"
)

// CommitEntry is one element of a committed delta: the flat six-wide
// sequence [change, e, a, v, n, round] spec.md describes, expressed here as
// a struct rather than an actual flattened slice for callers that don't
// want to re-parse positional fields.
type CommitEntry struct {
	Change   int // +1 for an addition, -1 for a removal
	Database string
	E        eve.Id
	A        eve.Attribute
	V        eve.Value
	N        eve.NodeID
	Round    int
}

type stagedKey struct {
	db string
	e  [20]byte
	a  string
	v  string
	n  eve.NodeID
}

func buildStagedKey(db string, e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID) stagedKey {
	vBytes := append([]byte{byte(eve.Type(v))}, eve.EncodeValue(v)...)
	return stagedKey{
		db: db,
		e:  e.Hash(),
		a:  a.String(),
		v:  string(vBytes),
		n:  n,
	}
}

type stagedDelta struct {
	db    string
	e     eve.Id
	a     eve.Attribute
	v     eve.Value
	n     eve.NodeID
	delta int
}

// ChangeSet is the append-only staging area for one evaluation's in-flight
// fixpoint: a round-tagged multiset of signed (e,a,v,n) deltas per database,
// generalized from storage/database.go's single flush-once Transaction
// (staged datoms/retracts) into a repeatedly-committed, round-aware stage.
type ChangeSet struct {
	mu        sync.Mutex
	round     int
	changed   bool
	staged    map[stagedKey]*stagedDelta
	committed []CommitEntry
}

// NewChangeSet returns an empty change set at round 0.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{staged: make(map[stagedKey]*stagedDelta)}
}

// Store stages a +1 for (db,e,a,v,n).
func (c *ChangeSet) Store(db string, e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID) {
	c.stage(db, e, a, v, n, 1)
}

// Unstore stages a -1 for (db,e,a,v,n).
func (c *ChangeSet) Unstore(db string, e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID) {
	c.stage(db, e, a, v, n, -1)
}

func (c *ChangeSet) stage(db string, e eve.Id, a eve.Attribute, v eve.Value, n eve.NodeID, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildStagedKey(db, e, a, v, n)
	d, ok := c.staged[key]
	if !ok {
		d = &stagedDelta{db: db, e: e, a: a, v: v, n: n}
		c.staged[key] = d
	}
	d.delta += delta
}

// Round returns the current round number.
func (c *ChangeSet) Round() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// Changed reports whether the last commit produced a non-empty delta.
func (c *ChangeSet) Changed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// Committed returns the delta from the last commit.
func (c *ChangeSet) Committed() []CommitEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CommitEntry, len(c.committed))
	copy(out, c.committed)
	return out
}

// NextRound increments round and clears changed, as step 1 of every
// fixpoint round transition (spec.md §4.6).
func (c *ChangeSet) NextRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round++
	c.changed = false
	return c.round
}

// Commit atomically applies every staged entry with a nonzero net delta to
// its target index (by name, via indexes), computes the net per-entry
// commit list (opposing ±1 pairs for the same (db,e,a,v,n) having already
// cancelled during staging), updates changed, and returns the delta.
//
// Two calls to Commit with no intervening Store/Unstore are idempotent: the
// second finds nothing staged and returns an empty delta without touching
// any index.
func (c *ChangeSet) Commit(indexes map[string]*TripleIndex) []CommitEntry {
	c.mu.Lock()
	staged := c.staged
	c.staged = make(map[stagedKey]*stagedDelta)
	round := c.round
	c.mu.Unlock()

	var committed []CommitEntry
	for _, d := range staged {
		if d.delta == 0 {
			continue
		}
		idx, ok := indexes[d.db]
		if !ok {
			continue
		}
		idx.ApplyDelta(d.e, d.a, d.v, d.n, d.delta)

		change := 1
		if d.delta < 0 {
			change = -1
		}
		committed = append(committed, CommitEntry{
			Change:   change,
			Database: d.db,
			E:        d.e,
			A:        d.a,
			V:        d.v,
			N:        d.n,
			Round:    round,
		})
	}

	c.mu.Lock()
	c.committed = committed
	c.changed = len(committed) > 0
	c.mu.Unlock()

	return committed
}

// MergeRound folds other's pending (uncommitted) entries into c without
// committing either change set. Used by the remote-block resumption path
// (spec.md §4.7) to combine a response's staged changes into the
// evaluation's live change set before the next commit.
func (c *ChangeSet) MergeRound(other *ChangeSet) {
	other.mu.Lock()
	entries := make([]*stagedDelta, 0, len(other.staged))
	for _, d := range other.staged {
		entries = append(entries, d)
	}
	other.mu.Unlock()

	for _, d := range entries {
		c.stage(d.db, d.e, d.a, d.v, d.n, d.delta)
	}
}

// PendingFor returns every currently staged (uncommitted) entry for db
// matching the given entity and attribute, used by DangerousMergeLookup to
// merge pending state into a committed-state read (spec.md §4.1).
func (c *ChangeSet) PendingFor(db string, e eve.Id, a eve.Attribute) []CommitEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []CommitEntry
	for _, d := range c.staged {
		if d.db != db || d.delta == 0 {
			continue
		}
		if !d.e.Equal(e) || d.a.Compare(a) != 0 {
			continue
		}
		change := 1
		if d.delta < 0 {
			change = -1
		}
		out = append(out, CommitEntry{Change: change, Database: d.db, E: d.e, A: d.a, V: d.v, N: d.n, Round: c.round})
	}
	return out
}
