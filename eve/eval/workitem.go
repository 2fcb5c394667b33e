package eval

import (
	"github.com/wbrown/janus-eve/eve/block"
	"github.com/wbrown/janus-eve/eve/index"
)

// WorkItemKind tags a WorkItem's variant.
type WorkItemKind int

const (
	// WorkCommit replays a committed delta from a peer evaluation.
	WorkCommit WorkItemKind = iota
	// WorkActions stages external actions, then drives a fixpoint.
	WorkActions
)

// WorkItem is the queued unit of external work spec.md §3 describes as a
// tagged union: Commit(delta) or Actions(actions, changes, callback). The
// waitingFor set and waitingCount are not stored on WorkItem itself: they
// live on the driver's activeItem while the item's fixpoint is in flight.
type WorkItem struct {
	Kind WorkItemKind

	// Commit variant.
	Database string
	Delta    []index.CommitEntry

	// Actions variant.
	Actions  []block.Action
	Callback func(*index.ChangeSet)
}

// enqueue appends item to the queue and wakes the drain loop if it's idle.
func (e *Evaluation) enqueue(item *WorkItem) {
	e.mu.Lock()
	e.queue = append(e.queue, item)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// ExecuteActions is the standard entry point for external input (spec.md
// §4.7): it enqueues an Actions work item. callback, if non-nil, is invoked
// with the final change set once the item reaches Quiescent or Diverged.
func (e *Evaluation) ExecuteActions(actions []block.Action, callback func(*index.ChangeSet)) {
	e.enqueue(&WorkItem{Kind: WorkActions, Actions: actions, Callback: callback})
}

func (e *Evaluation) runLoop() {
	for {
		select {
		case <-e.wake:
			e.drain()
		case <-e.done:
			return
		}
	}
}

// drain pulls queued items one at a time, running each to Quiescent,
// Diverged, or Awaiting. An Awaiting item parks the loop: drain returns
// without advancing to the next queued item, and a wake that arrives while
// remote responses are still outstanding returns again at once. The parked
// item resumes only after OnRemoteChanges resolves the last pending remote
// block.
func (e *Evaluation) drain() {
	for {
		e.mu.Lock()
		active := e.active
		if active == nil {
			if len(e.queue) == 0 {
				e.mu.Unlock()
				return
			}
			item := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()

			active = e.seed(item)
			e.mu.Lock()
			e.active = active
			e.mu.Unlock()
		} else {
			parked := active.state == StateAwaiting && active.waitingCount > 0
			e.mu.Unlock()
			if parked {
				return
			}
		}

		state := e.runRounds(active)
		if state == StateAwaiting {
			return
		}

		e.finalize(active, state)
		e.mu.Lock()
		e.active = nil
		e.mu.Unlock()
	}
}
