// Package block defines the contracts an external block compiler's output
// must satisfy to participate in a fixpoint: Block, RemoteBlock, Action, and
// the activation filter (Checker) that gates a block from running on a
// given commit. No compilation or pattern-matching logic lives here — that
// is the explicitly out-of-scope block compiler and join operator.
package block

import (
	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/index"
)

// Block is the contract a compiled rule must satisfy.
type Block interface {
	// ID returns the block's stable identifier.
	ID() string
	// Dormant reports whether the block is excluded from execution.
	Dormant() bool
	// Checker returns the activation filter used to decide whether a
	// commit might cause this block to produce new bindings.
	Checker() Checker
	// Execute runs the block against the committed state (via multiIndex)
	// plus any pending changes visible through changes's round view,
	// staging derived facts into changes. Must be deterministic given
	// identical inputs.
	Execute(multiIndex *index.MultiIndex, changes *index.ChangeSet) error
}

// RemoteBlock is a Block whose Execute may return before its derived facts
// are ready. The evaluation marks it as awaited and later delivers its
// changes out of band via Evaluation.OnRemoteChanges.
type RemoteBlock interface {
	Block
	// IsRemote always returns true; present so a plain type assertion to
	// RemoteBlock also satisfies an explicit interface check.
	IsRemote() bool
}

// Action is the abstract "write to change set" contract used to stage
// external inputs before a fixpoint begins.
type Action interface {
	// Execute stages the action's effect into changes. scratch is a
	// per-action list of bindings used by join-producing actions; the core
	// always passes an empty slice.
	Execute(multiIndex *index.MultiIndex, scratch []Binding, changes *index.ChangeSet) error
}

// Binding is one row of scratch bindings an Action may consult. Its shape is
// intentionally open since a binding's symbol set is a block-compiler
// concern; the core treats it as an opaque map from symbol name to value.
type Binding map[string]eve.Value
