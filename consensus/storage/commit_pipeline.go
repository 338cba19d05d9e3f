package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

// CommitPipeline drives a finality proof to a durable commit and
// returns the blocks it committed. It holds no state
// of its own across calls; every call is tagged with a fresh
// correlation id purely for log correlation across the
// execute/persist/prune sequence.
type CommitPipeline[P any] struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewCommitPipeline builds a pipeline that logs through logger and
// reports through metrics (either may be nil).
func NewCommitPipeline[P any](logger *slog.Logger, metrics *Metrics) *CommitPipeline[P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitPipeline[P]{logger: logger, metrics: metrics}
}

// Commit resolves the block named by proof, requires it to be strictly
// ahead of root, drives the state computer to durably finalize the
// path from root to it, and returns the committed blocks. It does not
// itself mutate tree or storage beyond the state computer's own commit
// call; pruning is left to the caller, which after this returns runs
// FindBlocksToPrune/ProcessPrunedBlocks under its own writer lock.
func (p *CommitPipeline[P]) Commit(ctx context.Context, tree *BlockTree[P], computer execution.StateComputer[P], proof types.LedgerInfoWithSignatures) ([]*ExecutedBlock[P], error) {
	correlation := uuid.New()
	targetID := proof.ConsensusBlockID()

	target, ok := tree.GetBlock(targetID)
	if !ok {
		return nil, fmt.Errorf("%w: commit target %s", types.ErrBlockNotFound, targetID)
	}
	if target.Round() <= tree.Root().Round() {
		return nil, fmt.Errorf("%w: target round %d does not exceed root round %d", types.ErrStaleCommit, target.Round(), tree.Root().Round())
	}

	path, ok := tree.PathFromRoot(targetID)
	if !ok {
		// target is a known block but not reachable from the current
		// root; nothing safe to commit.
		return nil, fmt.Errorf("%w: %s not reachable from root", types.ErrCommitFailed, targetID)
	}

	views := make([]execution.ExecutedBlockView[P], len(path))
	for i, b := range path {
		views[i] = b
	}

	p.logger.Debug("committing path", "correlation_id", correlation, "target", targetID, "blocks", len(path))

	if err := computer.Commit(ctx, views, proof); err != nil {
		// Per the propagation policy this is fatal: the process cannot
		// safely continue with a durable state that disagrees with the
		// rest of the cluster's finality proof.
		p.logger.Error("state computer commit failed, this is fatal", "correlation_id", correlation, "error", err)
		return nil, fmt.Errorf("%w: %v", types.ErrCommitFailed, err)
	}

	if p.metrics != nil {
		p.metrics.commits.Inc()
		p.metrics.committedRound.Set(float64(target.Round()))
	}

	return path, nil
}
