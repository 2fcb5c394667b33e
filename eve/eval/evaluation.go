// Package eval owns the evaluation core: Database, Evaluation, the fixpoint
// driver, the evaluation queue, and save/load. This is the largest
// component spec.md's budget allots (Evaluation alone is 30% of the core),
// so it is the package that ties the triple index, change set, and block
// contract together into a running system.
package eval

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/wbrown/janus-eve/eve/index"
	"github.com/wbrown/janus-eve/eve/metrics"
)

// EvaluationID identifies an Evaluation for the lifetime of a process.
// Ephemeral by design (spec.md §9): minted from a process-wide source, never
// persisted, never compared across processes.
type EvaluationID string

// Reporter delivers a non-fatal error report: a kind ("Fixpoint Error") and
// a human-readable message. When Options.Reporter is nil, reports go to
// stderr, matching storage/database.go's Commit() warning style rather than
// reaching for a structured logging library the teacher's core never uses.
type Reporter func(kind, message string)

func defaultReporter(kind, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", kind, message)
}

// MaxRounds is the fixpoint divergence cap (spec.md §4.6).
const MaxRounds = 300

// Options configures an Evaluation. Tunables are struct fields rather than
// flags or environment variables, the same shape as
// planner.PlannerOptions/DefaultPlannerOptions() — the core is a library,
// not a CLI.
type Options struct {
	// Reporter receives non-fatal error reports. Defaults to a
	// stderr-writing reporter when nil.
	Reporter Reporter
	// Metrics, if set, receives timing events for each round and block
	// execution. Nil disables collection.
	Metrics *metrics.Collector
	// MaxRounds overrides MaxRounds when positive.
	MaxRounds int
}

// DefaultOptions returns the zero-tuning configuration: stderr reporting,
// no metrics collection, MaxRounds divergence cap.
func DefaultOptions() Options {
	return Options{MaxRounds: MaxRounds}
}

func (o Options) maxRounds() int {
	if o.MaxRounds > 0 {
		return o.MaxRounds
	}
	return MaxRounds
}

// Evaluation owns a multi-index, an ordered list of databases, a FIFO queue
// of work items, and the fixpoint driver. Exactly one work item is active
// at a time; suspension happens only between work items and between
// fixpoint rounds awaiting a remote block (spec.md §5).
type Evaluation struct {
	id         EvaluationID
	multiIndex *index.MultiIndex
	reporter   Reporter
	metrics    *metrics.Collector
	maxRounds  int

	mu        sync.Mutex // guards databases, byName, queue, and active
	databases []*Database
	byName    map[string]*Database

	queue  []*WorkItem
	active *activeItem

	wake chan struct{}
	done chan struct{}
}

// NewEvaluation returns a running Evaluation. Its drain loop runs on a
// dedicated goroutine for the lifetime of the Evaluation; call Close to
// stop it.
func NewEvaluation(opts Options) *Evaluation {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = defaultReporter
	}

	e := &Evaluation{
		id:         EvaluationID(uuid.NewString()),
		multiIndex: index.NewMultiIndex(),
		reporter:   reporter,
		metrics:    opts.Metrics,
		maxRounds:  opts.maxRounds(),
		byName:     make(map[string]*Database),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	go e.runLoop()
	return e
}

// ID returns the evaluation's process-local identifier.
func (e *Evaluation) ID() EvaluationID { return e.id }

// Close stops the drain loop. Any item currently parked Awaiting remote
// responses is left exactly as it was; Close does not flush or cancel it.
func (e *Evaluation) Close() {
	close(e.done)
}

// AddDatabase registers db with this evaluation: db joins the evaluation's
// named set and multi-index, then db's own Analyze hook is invoked against
// every database this evaluation already owned, and vice versa.
func (e *Evaluation) AddDatabase(db *Database) {
	e.mu.Lock()
	if _, exists := e.byName[db.Name()]; exists {
		e.mu.Unlock()
		panic(fmt.Sprintf("eval: database %q already registered with this evaluation", db.Name()))
	}
	siblings := make([]*Database, len(e.databases))
	copy(siblings, e.databases)
	e.databases = append(e.databases, db)
	e.byName[db.Name()] = db
	e.mu.Unlock()

	e.multiIndex.Register(db.Name(), db.Index())
	db.register(e, siblings)
}

// RemoveDatabase unregisters db from this evaluation.
func (e *Evaluation) RemoveDatabase(db *Database) {
	e.mu.Lock()
	if _, exists := e.byName[db.Name()]; !exists {
		e.mu.Unlock()
		panic(fmt.Sprintf("eval: database %q is not registered with this evaluation", db.Name()))
	}
	delete(e.byName, db.Name())
	for i, d := range e.databases {
		if d == db {
			e.databases = append(e.databases[:i], e.databases[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	db.unregister(e)
	e.multiIndex.Unregister(db.Name())
}

// Database returns the database registered under name, or nil.
func (e *Evaluation) Database(name string) *Database {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byName[name]
}

// Databases returns every database this evaluation owns.
func (e *Evaluation) Databases() []*Database {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Database, len(e.databases))
	copy(out, e.databases)
	return out
}

// MultiIndex returns the evaluation's name→index namespace.
func (e *Evaluation) MultiIndex() *index.MultiIndex { return e.multiIndex }
