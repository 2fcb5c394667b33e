package eval

import (
	"fmt"
	"sync"

	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/block"
	"github.com/wbrown/janus-eve/eve/index"
)

// Database is the ownership boundary spec.md §3/§4's "Database" component
// describes: a named, long-lived triple index plus its ordered block list.
// Per spec.md §5, each evaluation owns its own TripleIndex — a Database
// value is registered with exactly one Evaluation at a time (AddDatabase
// panics on a second owner). Two databases that represent the same logical
// name across separate evaluations are "shared" by calling Link, which
// keeps their distinct indices in sync via queued commits rather than by
// pointing two evaluations at one *TripleIndex.
type Database struct {
	mu sync.Mutex

	name         string
	index        *index.TripleIndex
	blocks       []block.Block
	nonExecuting bool

	owner  *Evaluation
	linked []*Database

	// AnalyzeFunc, if set, is invoked for every pair of databases owned by
	// the same evaluation at registration time (spec.md §6's analyze
	// hook). It is allowed to be a no-op, which is the default.
	AnalyzeFunc func(e *Evaluation, other *Database)
}

// NewDatabase returns an empty, executing database named name.
func NewDatabase(name string) *Database {
	return &Database{
		name:  name,
		index: index.New(),
	}
}

// Link connects two distinct Database values that represent the same
// logical database across separate evaluations (spec.md §9's weak
// back-reference design note, resolved here by name-linking distinct
// databases rather than sharing one *TripleIndex or a live pointer cycle
// the GC must reason about). Commits to one are propagated — via a queued
// WorkCommit item — to the other's own index once both are registered with
// an evaluation. Link panics if the two databases don't share a name or if
// d is linked to itself.
func (d *Database) Link(other *Database) {
	if other == d {
		panic("eval: database " + d.name + " cannot be linked to itself")
	}
	if other.name != d.name {
		panic(fmt.Sprintf("eval: cannot link databases with different names (%q vs %q)", d.name, other.name))
	}

	d.mu.Lock()
	d.linked = append(d.linked, other)
	d.mu.Unlock()

	other.mu.Lock()
	other.linked = append(other.linked, d)
	other.mu.Unlock()
}

// Name returns the database's name.
func (d *Database) Name() string { return d.name }

// Index returns the database's triple index.
func (d *Database) Index() *index.TripleIndex { return d.index }

// Blocks returns the database's ordered block list.
func (d *Database) Blocks() []block.Block {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]block.Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// AddBlock appends b to the database's ordered block list.
func (d *Database) AddBlock(b block.Block) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocks = append(d.blocks, b)
}

// NonExecuting reports whether this database is excluded from block
// activation.
func (d *Database) NonExecuting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nonExecuting
}

// SetNonExecuting sets the non-executing flag.
func (d *Database) SetNonExecuting(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nonExecuting = v
}

// register records e as this database's owning evaluation, then invokes
// analyze for every pair formed between d and every database e already
// owns. It is a precondition violation to register a Database that already
// has a different owner — that would make two evaluations share one
// *TripleIndex with zero isolation between them; Link two distinct
// same-named Database objects instead.
func (d *Database) register(e *Evaluation, siblings []*Database) {
	d.mu.Lock()
	if d.owner != nil && d.owner != e {
		d.mu.Unlock()
		panic(fmt.Sprintf("eval: database %q is already owned by another evaluation; use Link to share a database's state across evaluations instead of registering the same *Database twice", d.name))
	}
	d.owner = e
	d.mu.Unlock()

	for _, sibling := range siblings {
		d.Analyze(e, sibling)
		sibling.Analyze(e, d)
	}
}

// unregister clears d's owning evaluation. It is a precondition violation
// to unregister an evaluation that does not own this database.
func (d *Database) unregister(e *Evaluation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owner != e {
		panic("eval: database " + d.name + ": unregister of unknown evaluation")
	}
	d.owner = nil
}

// Analyze invokes AnalyzeFunc if set; otherwise it is a no-op, as spec.md
// §6 explicitly permits.
func (d *Database) Analyze(e *Evaluation, other *Database) {
	if d.AnalyzeFunc != nil {
		d.AnalyzeFunc(e, other)
	}
}

// onFixpoint packages the portion of delta belonging to this database and
// enqueues a Commit work item on every linked peer database's owning
// evaluation, except source (spec.md §4.6's "each database notifies peer
// evaluations that share it"). Each peer holds its own distinct
// *TripleIndex, so the enqueued WorkCommit is the only way its state
// changes here — this never re-applies a commit an evaluation already made
// directly against its own index.
func (d *Database) onFixpoint(source *Evaluation, delta []index.CommitEntry) {
	var mine []index.CommitEntry
	for _, entry := range delta {
		if entry.Database == d.name {
			mine = append(mine, entry)
		}
	}
	if len(mine) == 0 {
		return
	}

	d.mu.Lock()
	linked := make([]*Database, len(d.linked))
	copy(linked, d.linked)
	d.mu.Unlock()

	for _, peer := range linked {
		peer.mu.Lock()
		owner := peer.owner
		peer.mu.Unlock()
		if owner == nil || owner == source {
			continue
		}
		owner.enqueue(&WorkItem{
			Kind:     WorkCommit,
			Database: peer.name,
			Delta:    mine,
		})
	}
}

// ToTriples dumps every present quad in this database's index, one entry
// per logical (e,a,v) triple (provenance is not exploded), for save().
func (d *Database) ToTriples() []eve.Quad {
	return d.index.ToTriples(false)
}
