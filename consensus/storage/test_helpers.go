package storage

import (
	"context"
	"fmt"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// PrunedBlocksInMem reports how many recently-evicted blocks the
// bounded pruned window currently holds. Test-only introspection, not
// used by production insertion paths.
func (s *BlockStore[P]) PrunedBlocksInMem() int {
	return len(s.PrunedBlockIDs())
}

// InsertVoteAndQC inserts vote and, if it completes a quorum
// certificate, immediately inserts that QC too. Production code never
// does this in one step, because forming a QC may require a state-sync
// round trip before the certified block's info can be reconciled;
// tests that don't care about that distinction use this instead of the
// two calls.
func (s *BlockStore[P]) InsertVoteAndQC(vote *types.Vote, verifier *types.ValidatorVerifier) VoteReceptionResult {
	result := s.InsertVote(vote, verifier)
	if result.QC != nil {
		if err := s.InsertSingleQuorumCert(result.QC); err != nil {
			result.Err = fmt.Errorf("insert vote and qc: %w", err)
		}
	}
	return result
}

// InsertBlockWithQC inserts block's embedded QC before executing and
// inserting the block itself, the order production callers must
// follow but that tests building a fixture block-by-block otherwise
// have to repeat at every call site.
func (s *BlockStore[P]) InsertBlockWithQC(ctx context.Context, block *types.Block[P]) (*ExecutedBlock[P], error) {
	if block.QC != nil {
		if err := s.InsertSingleQuorumCert(block.QC); err != nil {
			return nil, fmt.Errorf("insert block with qc: %w", err)
		}
	}
	return s.ExecuteAndInsertBlock(ctx, block)
}

// InsertReconfigurationBlock inserts block's QC, executes block
// normally, then overwrites the resulting output's NextValidators with
// validators — a test fixture for exercising the reconfiguration
// suffix rule without needing a StateComputer that actually triggers
// one.
func (s *BlockStore[P]) InsertReconfigurationBlock(ctx context.Context, block *types.Block[P], validators *types.ValidatorSet) (*ExecutedBlock[P], error) {
	if block.QC != nil {
		if err := s.InsertSingleQuorumCert(block.QC); err != nil {
			return nil, fmt.Errorf("insert reconfiguration block: %w", err)
		}
	}

	s.mu.RLock()
	parent, ok := s.tree.GetBlock(block.ParentID)
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: parent %s of block %s", types.ErrBlockNotFound, block.ParentID, block.ID)
	}

	output, err := s.computer.Compute(ctx, block, parent.ExecutedTrees())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExecutionFailed, err)
	}
	output.NextValidators = validators

	if err := s.storage.SaveTree([]*types.Block[P]{block}, nil); err != nil {
		return nil, fmt.Errorf("persisting reconfiguration block %s: %w", block.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.InsertBlock(NewExecutedBlock[P](block, output))
}
