package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

// TestBlockStore_S1_HappyPathCommit mirrors scenario S1: a three-block
// chain off genesis, committing the first block.
func TestBlockStore_S1_HappyPathCommit(t *testing.T) {
	ctx := context.Background()
	recovery, computer := genesisFixture(t)
	genesisInfo := recovery.RootQC.CertifiedBlock
	bs, _ := newStore(t, recovery, computer)

	b1, b1Info := childBlock(t, computer, genesisInfo, nonCommittingQC(genesisInfo), 1, 10, "b1")
	_, err := bs.InsertBlockWithQC(ctx, b1)
	require.NoError(t, err)

	b2, b2Info := childBlock(t, computer, b1Info, nonCommittingQC(b1Info), 2, 20, "b2")
	_, err = bs.InsertBlockWithQC(ctx, b2)
	require.NoError(t, err)

	b3, b3Info := childBlock(t, computer, b2Info, nonCommittingQC(b2Info), 3, 30, "b3")
	_, err = bs.InsertBlockWithQC(ctx, b3)
	require.NoError(t, err)

	path, ok := bs.PathFromRoot(b1Info.ID)
	require.True(t, ok)
	require.Len(t, path, 1)
	require.Equal(t, b1Info.ID, path[0].ID())

	require.Len(t, bs.AllUncommittedBlocks(), 3)

	proof := types.LedgerInfoWithSignatures{LedgerInfo: types.LedgerInfo{CommitInfo: b1Info}}
	committed, err := bs.Commit(ctx, proof)
	require.NoError(t, err)
	require.Len(t, committed, 1)

	require.Equal(t, b1Info.ID, bs.Root().ID())
	require.True(t, bs.BlockExists(b2Info.ID))
	require.True(t, bs.BlockExists(b3Info.ID))
	require.False(t, bs.BlockExists(genesisInfo.ID))
}

// TestBlockStore_S2_ForkPruning mirrors scenario S2.
func TestBlockStore_S2_ForkPruning(t *testing.T) {
	ctx := context.Background()
	recovery, computer := genesisFixture(t)
	genesisInfo := recovery.RootQC.CertifiedBlock
	bs, _ := newStore(t, recovery, computer)

	b1, b1Info := childBlock(t, computer, genesisInfo, nonCommittingQC(genesisInfo), 1, 10, "b1")
	_, err := bs.InsertBlockWithQC(ctx, b1)
	require.NoError(t, err)

	b2, b2Info := childBlock(t, computer, b1Info, nonCommittingQC(b1Info), 2, 20, "b2")
	_, err = bs.InsertBlockWithQC(ctx, b2)
	require.NoError(t, err)

	b2f, b2fInfo := childBlock(t, computer, b1Info, nonCommittingQC(b1Info), 2, 21, "b2-fork")
	_, err = bs.InsertBlockWithQC(ctx, b2f)
	require.NoError(t, err)

	b3f, b3fInfo := childBlock(t, computer, b2fInfo, nonCommittingQC(b2fInfo), 3, 31, "b3-fork")
	_, err = bs.InsertBlockWithQC(ctx, b3f)
	require.NoError(t, err)

	proof := types.LedgerInfoWithSignatures{LedgerInfo: types.LedgerInfo{CommitInfo: b2Info}}
	_, err = bs.Commit(ctx, proof)
	require.NoError(t, err)

	require.Equal(t, b2Info.ID, bs.Root().ID())
	require.False(t, bs.BlockExists(b2fInfo.ID))
	require.False(t, bs.BlockExists(b3fInfo.ID))
	require.ElementsMatch(t, []types.Hash{genesisInfo.ID, b1Info.ID, b2fInfo.ID, b3fInfo.ID}, bs.PrunedBlockIDs())
}

// TestBlockStore_S3_DuplicateInsertIsIdempotent mirrors scenario S3.
func TestBlockStore_S3_DuplicateInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	recovery, computer := genesisFixture(t)
	genesisInfo := recovery.RootQC.CertifiedBlock
	bs, store := newStore(t, recovery, computer)

	b1, _ := childBlock(t, computer, genesisInfo, nonCommittingQC(genesisInfo), 1, 10, "b1")

	first, err := bs.ExecuteAndInsertBlock(ctx, b1)
	require.NoError(t, err)
	callsAfterFirst := store.SaveTreeCalls()

	second, err := bs.ExecuteAndInsertBlock(ctx, b1)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, callsAfterFirst, store.SaveTreeCalls(), "duplicate insert must not re-persist")
}

func TestBlockStore_StaleCommitRejected(t *testing.T) {
	ctx := context.Background()
	recovery, computer := genesisFixture(t)
	genesisInfo := recovery.RootQC.CertifiedBlock
	bs, _ := newStore(t, recovery, computer)

	proof := types.LedgerInfoWithSignatures{LedgerInfo: types.LedgerInfo{CommitInfo: genesisInfo}}
	_, err := bs.Commit(ctx, proof)
	require.ErrorIs(t, err, types.ErrStaleCommit)
}

func TestBlockStore_ReconfigurationSuffix(t *testing.T) {
	ctx := context.Background()
	recovery, computer := genesisFixture(t)
	genesisInfo := recovery.RootQC.CertifiedBlock
	bs, _ := newStore(t, recovery, computer)

	b1, b1Info := childBlock(t, computer, genesisInfo, nonCommittingQC(genesisInfo), 1, 10, "b1")
	validators := &types.ValidatorSet{Epoch: 2}
	reconfigured, err := bs.InsertReconfigurationBlock(ctx, b1, validators)
	require.NoError(t, err)
	require.True(t, reconfigured.HasReconfiguration())

	// a descendant of a reconfiguring block must carry an empty
	// payload and inherit its parent's trees/validator set untouched.
	b2 := &types.Block[execution.Payload]{
		ID:            mustHash(t, "b2"),
		Round:         2,
		TimestampUsec: 20,
		ParentID:      b1Info.ID,
		QC:            nonCommittingQC(reconfigured.BlockInfo()),
	}
	executed, err := bs.InsertBlockWithQC(ctx, b2)
	require.NoError(t, err)
	require.Equal(t, reconfigured.ExecutedTrees().StateID(), executed.ExecutedTrees().StateID())
	require.Equal(t, validators, executed.Output().NextValidators)

	// a payload-carrying descendant of a reconfiguring block is rejected.
	payload := execution.Payload{"not-allowed"}
	b3 := &types.Block[execution.Payload]{
		ID:            mustHash(t, "b3"),
		Round:         2,
		TimestampUsec: 20,
		ParentID:      b1Info.ID,
		QC:            nonCommittingQC(reconfigured.BlockInfo()),
		Payload:       &payload,
	}
	_, err = bs.InsertBlockWithQC(ctx, b3)
	require.ErrorIs(t, err, types.ErrInvalidBlock)
}

func TestBlockStore_InsertSingleQuorumCert_ExecutionDivergence(t *testing.T) {
	ctx := context.Background()
	recovery, computer := genesisFixture(t)
	genesisInfo := recovery.RootQC.CertifiedBlock
	bs, _ := newStore(t, recovery, computer)

	b1, b1Info := childBlock(t, computer, genesisInfo, nonCommittingQC(genesisInfo), 1, 10, "b1")
	_, err := bs.InsertBlockWithQC(ctx, b1)
	require.NoError(t, err)

	diverged := b1Info
	diverged.ExecutedStateID = mustHash(t, "divergent")
	err = bs.InsertSingleQuorumCert(nonCommittingQC(diverged))
	require.ErrorIs(t, err, types.ErrExecutionDivergence)
}
