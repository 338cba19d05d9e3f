package storage

import "github.com/cristianizzo/libra-fork/consensus/types"

// PersistentStorage is the durable-storage collaborator the core
// relies on but never implements: saving the tree before it mutates
// in memory, saving the highest timeout certificate before replacing
// it, best-effort pruning, and handing back whatever is needed to
// rebuild the tree at startup.
type PersistentStorage[P any] interface {
	// SaveTree durably and atomically records blocks and qcs.
	// BlockStore calls this before the corresponding in-memory mutation;
	// a failure here aborts the insertion.
	SaveTree(blocks []*types.Block[P], qcs []*types.QuorumCert) error

	// SaveHighestTimeoutCert durably records tc. Called before the
	// in-memory highest TC is replaced.
	SaveHighestTimeoutCert(tc *types.TimeoutCert) error

	// PruneTree best-effort removes ids from durable storage. Failures
	// are logged and ignored: a dangling persisted artifact is cleaned
	// up on the next restart's recovery pass.
	PruneTree(ids []types.Hash) error

	// Start returns everything needed to rebuild the in-memory tree and
	// resume safely: the root triple, orphan blocks/QCs reachable from
	// it, an optional highest timeout certificate, the last vote cast
	// (so a restarted node never equivocates by voting twice in the
	// same round), and the validator set in effect.
	Start() (RecoveryData[P], error)
}

// RecoveryData is everything PersistentStorage.Start hands back to
// drive BuildBlockTree.
type RecoveryData[P any] struct {
	RootBlock        *types.Block[P]
	RootQC           *types.QuorumCert
	RootLedgerInfoQC *types.QuorumCert

	OrphanBlocks []*types.Block[P]
	OrphanQCs    []*types.QuorumCert

	HighestTimeoutCert *types.TimeoutCert

	// LastVote is the most recent vote this node cast before
	// restarting, if any. BuildBlockTree does not consume it — voting
	// is the pacemaker/safety-rule module's responsibility, which is
	// out of scope here — but it is part of the recovery contract a
	// PersistentStorage implementation must still hand back so that
	// collaborator is available to whatever does own voting.
	LastVote *types.Vote

	// ValidatorSet is the validator set in effect for the recovered
	// epoch, needed to verify votes/QCs/TCs against. Like LastVote,
	// it passes through BuildBlockTree unused by this package.
	ValidatorSet *types.ValidatorSet
}
