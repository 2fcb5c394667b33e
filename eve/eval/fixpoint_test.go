package eval

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/block"
	"github.com/wbrown/janus-eve/eve/index"
)

func runActionsAndWait(t *testing.T, e *Evaluation, actions []block.Action) *index.ChangeSet {
	t.Helper()
	done := make(chan *index.ChangeSet, 1)
	e.ExecuteActions(actions, func(cs *index.ChangeSet) { done <- cs })

	select {
	case cs := <-done:
		return cs
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation did not reach quiescence/divergence in time")
		return nil
	}
}

func TestEvaluation_SingleFactInsertionReachesQuiescence(t *testing.T) {
	e := NewEvaluation(DefaultOptions())
	defer e.Close()

	db := NewDatabase("main")
	e.AddDatabase(db)

	entity := eve.NewId("alice")
	attr := eve.NewAttribute("tag")

	cs := runActionsAndWait(t, e, []block.Action{
		&insertAction{database: "main", e: entity, a: attr, v: "person", n: eve.NodeID("input")},
	})

	assert.Equal(t, 1, cs.Round())
	assert.True(t, db.Index().Contains(entity, attr, "person"))
}

func TestEvaluation_TrivialDerivationRunsUntilIdempotent(t *testing.T) {
	e := NewEvaluation(DefaultOptions())
	defer e.Close()

	db := NewDatabase("main")
	e.AddDatabase(db)

	source := eve.NewId("alice")
	derived := eve.NewId("alice-derived")
	tag := eve.NewAttribute("tag")

	blk := &fakeBlock{
		id: "deriver",
		execFunc: func(multiIndex *index.MultiIndex, changes *index.ChangeSet) error {
			idx := multiIndex.Get("main")
			if idx.Contains(derived, tag, "derived") {
				return nil
			}
			changes.Store("main", derived, tag, "derived", eve.NodeID("deriver"))
			return nil
		},
	}
	db.AddBlock(blk)

	cs := runActionsAndWait(t, e, []block.Action{
		&insertAction{database: "main", e: source, a: tag, v: "person", n: eve.NodeID("input")},
	})

	assert.Equal(t, 2, cs.Round())
	assert.Equal(t, 2, blk.runCount, "the block must run again after its own derivation, then stop once idempotent")
	assert.True(t, db.Index().Contains(derived, tag, "derived"))
}

func TestEvaluation_DivergentProgramReportsAndStillCallsBack(t *testing.T) {
	var reported bool
	opts := Options{
		MaxRounds: 3,
		Reporter: func(kind, message string) {
			if kind == "Fixpoint Error" {
				reported = true
			}
		},
	}
	e := NewEvaluation(opts)
	defer e.Close()

	db := NewDatabase("main")
	e.AddDatabase(db)

	tag := eve.NewAttribute("tag")
	round := 0
	blk := &fakeBlock{
		id: "grower",
		execFunc: func(multiIndex *index.MultiIndex, changes *index.ChangeSet) error {
			round++
			entity := eve.NewId(fmt.Sprintf("grown%d", round))
			changes.Store("main", entity, tag, "grown", eve.NodeID("grower"))
			return nil
		},
	}
	db.AddBlock(blk)

	source := eve.NewId("seed")
	callbackFired := false
	done := make(chan struct{}, 1)
	e.ExecuteActions([]block.Action{
		&insertAction{database: "main", e: source, a: tag, v: "seed", n: eve.NodeID("input")},
	}, func(*index.ChangeSet) {
		callbackFired = true
		done <- struct{}{}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("divergent evaluation never finalized")
	}

	assert.True(t, reported, "a divergent fixpoint must report via Reporter")
	assert.True(t, callbackFired, "finalize still runs its callback after divergence")
}

func TestEvaluation_RemoteBlockSuspendsAndResumes(t *testing.T) {
	e := NewEvaluation(DefaultOptions())
	defer e.Close()

	db := NewDatabase("main")
	e.AddDatabase(db)

	rb := &remoteBlock{fakeBlock{id: "remote1", checker: tagValueChecker{match: "person"}}}
	db.AddBlock(rb)

	source := eve.NewId("alice")
	tag := eve.NewAttribute("tag")

	done := make(chan *index.ChangeSet, 1)
	e.ExecuteActions([]block.Action{
		&insertAction{database: "main", e: source, a: tag, v: "person", n: eve.NodeID("input")},
	}, func(cs *index.ChangeSet) { done <- cs })

	deadline := time.After(5 * time.Second)
	for {
		e.mu.Lock()
		active := e.active
		e.mu.Unlock()
		if active != nil && active.state == StateAwaiting {
			break
		}
		select {
		case <-deadline:
			t.Fatal("evaluation never reached Awaiting")
		case <-time.After(10 * time.Millisecond):
		}
	}

	delivered := index.NewChangeSet()
	remoteEntity := eve.NewId("remote-fact")
	delivered.Store("main", remoteEntity, tag, "from-remote", eve.NodeID("remote1"))
	e.OnRemoteChanges("remote1", delivered)

	var cs *index.ChangeSet
	select {
	case cs = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation never finalized after remote delivery")
	}

	require.Equal(t, 1, rb.runCount, "the remote block executes exactly once per awaited round")
	assert.True(t, db.Index().Contains(remoteEntity, tag, "from-remote"))
	_ = cs
}

func TestEvaluation_OnRemoteChangesPanicsForUnawaitedBlock(t *testing.T) {
	e := NewEvaluation(DefaultOptions())
	defer e.Close()

	db := NewDatabase("main")
	e.AddDatabase(db)

	assert.Panics(t, func() {
		e.OnRemoteChanges("never-awaited", index.NewChangeSet())
	})
}

func TestEvaluation_ProvenanceSurvivesOneOfTwoRemovals(t *testing.T) {
	e := NewEvaluation(DefaultOptions())
	defer e.Close()

	db := NewDatabase("main")
	e.AddDatabase(db)

	entity := eve.NewId("alice")
	tag := eve.NewAttribute("tag")

	runActionsAndWait(t, e, []block.Action{
		&insertAction{database: "main", e: entity, a: tag, v: "person", n: eve.NodeID("block1")},
		&insertAction{database: "main", e: entity, a: tag, v: "person", n: eve.NodeID("block2")},
	})
	require.True(t, db.Index().Contains(entity, tag, "person"))

	runActionsAndWait(t, e, []block.Action{
		&unstoreAction{database: "main", e: entity, a: tag, v: "person", n: eve.NodeID("block1")},
	})
	assert.True(t, db.Index().Contains(entity, tag, "person"), "triple survives while one producer remains")

	runActionsAndWait(t, e, []block.Action{
		&unstoreAction{database: "main", e: entity, a: tag, v: "person", n: eve.NodeID("block2")},
	})
	assert.False(t, db.Index().Contains(entity, tag, "person"), "triple is gone once its last producer is removed")
}
