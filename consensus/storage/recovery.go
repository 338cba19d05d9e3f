package storage

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

// BuildBlockTree reconstructs the in-memory tree from a persisted
// snapshot: the root triple plus whatever orphan blocks and orphan
// QCs storage still holds. Orphan blocks are re-executed (never
// trusted from disk, since executed trees are volatile); any
// disagreement between a re-executed output and a persisted QC for
// that block is fatal, since a silent mismatch there would be a
// safety violation, not a recoverable error.
//
// Orphan blocks are processed in batches of equal round. Every block
// in a batch must already have its parent in the tree (the root or a
// block from an earlier batch); the batch's blocks then execute
// concurrently, since Compute does not mutate the parent trees it
// reads, and the final insertion into the tree itself is always
// sequential.
func BuildBlockTree[P any](ctx context.Context, data RecoveryData[P], computer execution.StateComputer[P], maxPrunedBlocksInMem int) (*BlockTree[P], error) {
	if data.RootBlock == nil {
		return nil, fmt.Errorf("%w: recovery data has no root block", types.ErrFatalStartupInconsistency)
	}

	committed := computer.CommittedTrees()
	if data.RootQC != nil {
		if committed == nil || committed.Version() != data.RootQC.CertifiedBlock.Version || committed.StateID() != data.RootQC.CertifiedBlock.ExecutedStateID {
			return nil, fmt.Errorf("%w: root qc (version=%d, state=%s) disagrees with committed trees", types.ErrFatalStartupInconsistency, data.RootQC.CertifiedBlock.Version, data.RootQC.CertifiedBlock.ExecutedStateID)
		}
	}

	var rootNextValidators *types.ValidatorSet
	if data.RootQC != nil {
		rootNextValidators = data.RootQC.CertifiedBlock.NextValidators
	}
	rootExecuted := NewExecutedBlock[P](data.RootBlock, execution.Output[P]{Trees: committed, NextValidators: rootNextValidators})

	tree := NewBlockTree[P](rootExecuted, data.RootQC, data.RootLedgerInfoQC, data.HighestTimeoutCert, maxPrunedBlocksInMem)

	qcIndex := make(map[types.Hash]*types.QuorumCert, len(data.OrphanQCs))
	for _, qc := range data.OrphanQCs {
		qcIndex[qc.CertifiedBlock.ID] = qc
	}

	ordered := append([]*types.Block[P]{}, data.OrphanBlocks...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Round < ordered[j].Round })

	for start := 0; start < len(ordered); {
		end := start + 1
		for end < len(ordered) && ordered[end].Round == ordered[start].Round {
			end++
		}
		batch := ordered[start:end]
		outputs := make([]execution.Output[P], len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, blk := range batch {
			i, blk := i, blk
			parent, ok := tree.GetBlock(blk.ParentID)
			if !ok {
				return nil, fmt.Errorf("%w: orphan block %s parent %s not yet resolved", types.ErrBlockNotFound, blk.ID, blk.ParentID)
			}
			g.Go(func() error {
				out, err := computer.Compute(gctx, blk, parent.ExecutedTrees())
				if err != nil {
					return fmt.Errorf("%w: recovering block %s: %v", types.ErrExecutionFailed, blk.ID, err)
				}
				outputs[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, blk := range batch {
			out := outputs[i]
			if qc, ok := qcIndex[blk.ID]; ok {
				if qc.CertifiedBlock.ExecutedStateID != out.Trees.StateID() {
					return nil, fmt.Errorf("%w: recovered block %s state %s disagrees with persisted qc %s", types.ErrFatalStartupInconsistency, blk.ID, out.Trees.StateID(), qc.CertifiedBlock.ExecutedStateID)
				}
			}
			if _, err := tree.InsertBlock(NewExecutedBlock[P](blk, out)); err != nil {
				return nil, fmt.Errorf("recovering block %s: %w", blk.ID, err)
			}
		}

		start = end
	}

	for _, qc := range data.OrphanQCs {
		if err := tree.InsertQuorumCert(qc); err != nil {
			return nil, fmt.Errorf("recovering qc for %s: %w", qc.CertifiedBlock.ID, err)
		}
	}

	return tree, nil
}
