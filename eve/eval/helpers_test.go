package eval

import (
	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/block"
	"github.com/wbrown/janus-eve/eve/index"
)

// alwaysChecker activates its block on every change, the coarsest (but
// sound) activation filter — used where a test cares about the fixpoint
// driver's behavior, not the checker's precision.
type alwaysChecker struct{}

func (alwaysChecker) Check(*index.TripleIndex, int, []eve.Value, eve.Id, eve.Attribute, eve.Value) bool {
	return true
}

// tagValueChecker activates only when the changed entity's merged tag set
// contains match — a precise (rather than coarsest-possible) filter, used
// where a test needs a block to stop being reactivated by its own output.
type tagValueChecker struct {
	match string
}

func (c tagValueChecker) Check(_ *index.TripleIndex, _ int, tags []eve.Value, _ eve.Id, _ eve.Attribute, _ eve.Value) bool {
	for _, tag := range tags {
		if s, ok := tag.(string); ok && s == c.match {
			return true
		}
	}
	return false
}

// fakeBlock is a minimal block.Block for driver tests: execFunc runs on
// every Execute call, and runCount records how many times that happened.
type fakeBlock struct {
	id       string
	dormant  bool
	checker  block.Checker
	execFunc func(multiIndex *index.MultiIndex, changes *index.ChangeSet) error
	runCount int
}

func (b *fakeBlock) ID() string { return b.id }
func (b *fakeBlock) Dormant() bool { return b.dormant }

func (b *fakeBlock) Checker() block.Checker {
	if b.checker != nil {
		return b.checker
	}
	return alwaysChecker{}
}

func (b *fakeBlock) Execute(multiIndex *index.MultiIndex, changes *index.ChangeSet) error {
	b.runCount++
	if b.execFunc != nil {
		return b.execFunc(multiIndex, changes)
	}
	return nil
}

// remoteBlock wraps a fakeBlock so it also satisfies block.RemoteBlock.
// Execute stages nothing itself; the test delivers its changes later via
// Evaluation.OnRemoteChanges.
type remoteBlock struct {
	fakeBlock
}

func (b *remoteBlock) IsRemote() bool { return true }

// insertAction is a block.Action that stages a single fact, the shape
// ExecuteActions's callers use to seed a fixpoint.
type insertAction struct {
	database string
	e        eve.Id
	a        eve.Attribute
	v        eve.Value
	n        eve.NodeID
}

func (ia *insertAction) Execute(_ *index.MultiIndex, _ []block.Binding, changes *index.ChangeSet) error {
	changes.Store(ia.database, ia.e, ia.a, ia.v, ia.n)
	return nil
}

// unstoreAction is insertAction's inverse, staging a retraction.
type unstoreAction struct {
	database string
	e        eve.Id
	a        eve.Attribute
	v        eve.Value
	n        eve.NodeID
}

func (ua *unstoreAction) Execute(_ *index.MultiIndex, _ []block.Binding, changes *index.ChangeSet) error {
	changes.Unstore(ua.database, ua.e, ua.a, ua.v, ua.n)
	return nil
}
