// Package execution defines the boundary between the consensus core
// and the deterministic execution engine. Nothing here runs a VM; it
// only describes the contract the core depends on, plus a
// deterministic fake used by the storage package's tests.
package execution

import (
	"context"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// Trees is the (state SMT, transaction accumulator) pair representing
// execution state after applying a block — the "executed trees".
// Implementations are expected to be persistent/functional data
// structures so that ExecutedBlock snapshots can share structure
// across siblings without copying.
type Trees interface {
	Version() uint64
	StateID() types.Hash
}

// Output is what StateComputer.Compute returns: the new executed
// trees and, when the block triggers a reconfiguration, the
// validator set that will take effect once this block's branch
// commits.
type Output[P any] struct {
	Trees          Trees
	NextValidators *types.ValidatorSet
}

// StateComputer is the pluggable deterministic execution engine. The
// core only ever calls it outside the BlockTree writer lock.
type StateComputer[P any] interface {
	// Compute deterministically executes block against parentTrees and
	// returns the resulting output. It must not mutate parentTrees.
	Compute(ctx context.Context, block *types.Block[P], parentTrees Trees) (Output[P], error)

	// Commit durably finalizes blocks as the prefix proven by proof. A
	// failure here is fatal to the process.
	Commit(ctx context.Context, blocks []ExecutedBlockView[P], proof types.LedgerInfoWithSignatures) error

	// CommittedTrees returns the currently committed execution state.
	// Used only at startup, to cross-check the recovered root.
	CommittedTrees() Trees

	// SyncTo drives the execution engine to catch up to target. The
	// core never calls this itself; it is invoked by the core's caller
	// ahead of a Rebuild.
	SyncTo(ctx context.Context, target types.LedgerInfoWithSignatures) error
}

// ExecutedBlockView is the minimal read-only view of an executed block
// that StateComputer.Commit needs. storage.ExecutedBlock implements
// it; the interface exists so this package does not import storage
// (which imports this package) and create a cycle.
type ExecutedBlockView[P any] interface {
	Block() *types.Block[P]
	Output() Output[P]
}
