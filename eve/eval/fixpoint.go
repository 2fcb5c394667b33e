package eval

import (
	"fmt"
	"time"

	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/block"
	"github.com/wbrown/janus-eve/eve/index"
	"github.com/wbrown/janus-eve/eve/metrics"
)

// State names one phase of an active work item's fixpoint, exactly the five
// spec.md §4.6 describes.
type State int

const (
	StateSeeding State = iota
	StateRunning
	StateAwaiting
	StateQuiescent
	StateDiverged
	// stateAborted is an internal outcome for a collaborator failure; it is
	// not one of spec.md's five named states, since spec.md treats
	// collaborator failure as an error-handling concern (§7) rather than a
	// fixpoint state.
	stateAborted
)

// activeItem is the driver's working state for the one work item currently
// in flight. It is preserved verbatim across an Awaiting suspension
// (spec.md §5): changes, blockSet, waitingFor, and waitingCount are exactly
// as a paused round left them.
type activeItem struct {
	item     *WorkItem
	changes  *index.ChangeSet
	blockSet map[string]block.Block
	state    State

	// fanoutDelta accumulates every commit entry from this item's fixpoint
	// that a linked peer database hasn't already seen: the item's own
	// seeded input (but never a replayed WorkCommit — the sender that
	// produced it already holds it) plus every round's block-derived
	// commit, which is always genuinely new regardless of what triggered
	// the round. finalize hands this to onFixpoint.
	fanoutDelta []index.CommitEntry

	waitingFor   map[string]bool
	waitingCount int
}

// seed stages a work item's initial input, commits it as round 0, and
// computes the starting block set — the Seeding state of spec.md §4.6.
func (e *Evaluation) seed(item *WorkItem) *activeItem {
	changes := index.NewChangeSet()

	switch item.Kind {
	case WorkActions:
		scratch := []block.Binding{}
		for _, action := range item.Actions {
			if err := action.Execute(e.multiIndex, scratch, changes); err != nil {
				e.reporter("Collaborator Error", err.Error())
			}
		}
	case WorkCommit:
		for _, entry := range item.Delta {
			if entry.Change > 0 {
				changes.Store(item.Database, entry.E, entry.A, entry.V, entry.N)
			} else {
				changes.Unstore(item.Database, entry.E, entry.A, entry.V, entry.N)
			}
		}
	}

	delta := changes.Commit(e.multiIndex.Snapshot())
	e.emitCommit(len(delta))

	active := &activeItem{
		item:     item,
		changes:  changes,
		blockSet: e.computeBlockSet(changes, delta),
		state:    StateSeeding,
	}
	if item.Kind != WorkCommit {
		active.fanoutDelta = delta
	}
	return active
}

// runRounds advances active through fixpoint rounds until it reaches
// Quiescent, Diverged, or Awaiting. Called again to resume an Awaiting item
// once its last remote response has arrived.
func (e *Evaluation) runRounds(active *activeItem) State {
	for {
		if active.state != StateAwaiting {
			round := active.changes.NextRound()
			e.emitRoundBegin(round)

			if round > e.maxRounds {
				return e.handleDivergence(active)
			}

			active.waitingFor = make(map[string]bool)
			active.waitingCount = 0

			for _, blk := range active.blockSet {
				if blk.Dormant() {
					continue
				}
				if remote, ok := blk.(block.RemoteBlock); ok && remote.IsRemote() {
					active.waitingFor[blk.ID()] = true
					active.waitingCount++
					e.emitEvent(metrics.RemoteSuspended, map[string]interface{}{"block": blk.ID()})
				}

				start := time.Now()
				err := blk.Execute(e.multiIndex, active.changes)
				e.emitBlockExecuted(blk.ID(), start)
				if err != nil {
					return e.handleFailure(active, err)
				}
			}

			if active.waitingCount > 0 {
				active.state = StateAwaiting
				return StateAwaiting
			}
		}

		active.state = StateRunning
		delta := active.changes.Commit(e.multiIndex.Snapshot())
		e.emitCommit(len(delta))
		active.fanoutDelta = append(active.fanoutDelta, delta...)
		e.emitRoundComplete(active.changes.Round(), active.changes.Changed())

		if !active.changes.Changed() {
			return StateQuiescent
		}

		active.blockSet = e.computeBlockSet(active.changes, delta)
	}
}

func (e *Evaluation) handleDivergence(active *activeItem) State {
	active.state = StateDiverged
	e.emitEvent(metrics.Divergence, map[string]interface{}{"round": active.changes.Round()})
	e.reporter("Fixpoint Error", fmt.Sprintf("evaluation %s reached MAX_ROUNDS=%d without quiescing", e.id, e.maxRounds))
	return StateDiverged
}

func (e *Evaluation) handleFailure(active *activeItem, err error) State {
	active.state = stateAborted
	e.reporter("Collaborator Error", err.Error())
	return stateAborted
}

// OnRemoteChanges delivers a remote block's derived changes. Delivering a
// change for a block not currently in waitingFor is a precondition
// violation. When this is the last outstanding remote block, the drain loop
// is woken to resume the paused round.
func (e *Evaluation) OnRemoteChanges(blockID string, delivered *index.ChangeSet) {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()

	if active == nil || !active.waitingFor[blockID] {
		panic(fmt.Sprintf("eval: remote change delivered for block %q not awaited", blockID))
	}

	active.changes.MergeRound(delivered)
	delete(active.waitingFor, blockID)
	active.waitingCount--
	e.emitEvent(metrics.RemoteResumed, map[string]interface{}{"block": blockID})

	if active.waitingCount == 0 {
		select {
		case e.wake <- struct{}{}:
		default:
		}
	}
}

// finalize runs the quiescence/divergence/abort epilogue: on Quiescent or
// Diverged, every registered database notifies its peer evaluations and the
// item's callback (if any) is invoked with the final change set. The
// decision to still notify peers after a divergence error is deliberate
// (spec.md §9's "error after divergence" open question): a partially
// committed state is still worth propagating rather than quarantined.
func (e *Evaluation) finalize(active *activeItem, state State) {
	if state == stateAborted {
		return
	}

	for _, db := range e.Databases() {
		db.onFixpoint(e, active.fanoutDelta)
	}

	if active.item.Callback != nil {
		active.item.Callback(active.changes)
	}
}

func (e *Evaluation) emitEvent(name string, data map[string]interface{}) {
	if e.metrics == nil {
		return
	}
	e.metrics.Add(metrics.Event{Name: name, Data: data})
}

func (e *Evaluation) emitRoundBegin(round int) {
	e.emitEvent(metrics.RoundBegin, map[string]interface{}{"round": round})
}

func (e *Evaluation) emitRoundComplete(round int, changed bool) {
	e.emitEvent(metrics.RoundComplete, map[string]interface{}{"round": round, "changed": changed})
}

func (e *Evaluation) emitBlockExecuted(blockID string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.AddTiming(metrics.BlockExecuted, start, map[string]interface{}{"block": blockID})
}

func (e *Evaluation) emitCommit(entries int) {
	e.emitEvent(metrics.CommitApplied, map[string]interface{}{"entries": entries})
}

// computeBlockSet scans a commit's delta exactly as spec.md §4.5 describes:
// for each database not flagged non-executing, for each non-dormant block, for each
// changed triple in the commit, if the block's checker returns true the
// block joins the next round's set and scanning for that block stops. Tag
// lookups are cached per entity for the duration of the scan.
func (e *Evaluation) computeBlockSet(changes *index.ChangeSet, delta []index.CommitEntry) map[string]block.Block {
	result := make(map[string]block.Block)
	tagCache := make(map[[20]byte][]eve.Value)

	for _, entry := range delta {
		db := e.Database(entry.Database)
		if db == nil || db.NonExecuting() {
			continue
		}

		tags, ok := tagCache[entry.E.Hash()]
		if !ok {
			view := index.NewRoundView(entry.Database, db.Index(), changes)
			tags = view.TagMergeLookup(entry.E)
			tagCache[entry.E.Hash()] = tags
		}

		for _, blk := range db.Blocks() {
			if blk.Dormant() {
				continue
			}
			if _, already := result[blk.ID()]; already {
				continue
			}
			if blk.Checker().Check(db.Index(), entry.Change, tags, entry.E, entry.A, entry.V) {
				result[blk.ID()] = blk
			}
		}
	}

	return result
}
