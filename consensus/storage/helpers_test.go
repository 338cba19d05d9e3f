package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

func mustHash(t *testing.T, s string) types.Hash {
	t.Helper()
	h, err := types.HashOf(s)
	require.NoError(t, err)
	return h
}

// genesisFixture builds a genesis block whose QC both certifies and
// commits it, matching a freshly bootstrapped validator's recovery
// data.
func genesisFixture(t *testing.T) (RecoveryData[execution.Payload], *execution.MockStateComputer) {
	t.Helper()
	computer := execution.NewMockStateComputer()
	committed := computer.CommittedTrees()

	genesis := &types.Block[execution.Payload]{
		ID:      mustHash(t, "genesis"),
		Round:   0,
		Genesis: true,
	}
	genesisInfo := types.BlockInfo{
		Round:           0,
		ID:              genesis.ID,
		ExecutedStateID: committed.StateID(),
		Version:         committed.Version(),
	}
	qc := &types.QuorumCert{
		CertifiedBlock: genesisInfo,
		LedgerInfo:     types.LedgerInfoWithSignatures{LedgerInfo: types.LedgerInfo{CommitInfo: genesisInfo}},
	}

	return RecoveryData[execution.Payload]{
		RootBlock:        genesis,
		RootQC:           qc,
		RootLedgerInfoQC: qc,
	}, computer
}

// childBlock deterministically computes what block would look like if
// executed against parentInfo with payload, returning the constructed
// block (carrying parentQC) and the BlockInfo it would produce — so
// the caller can build a non-committing QC for it ahead of actually
// inserting it.
func childBlock(t *testing.T, computer *execution.MockStateComputer, parentInfo types.BlockInfo, parentQC *types.QuorumCert, round uint64, tsUsec uint64, name string, cmds ...execution.Command) (*types.Block[execution.Payload], types.BlockInfo) {
	t.Helper()
	var payload execution.Payload
	if len(cmds) > 0 {
		payload = execution.Payload(cmds)
	}
	block := &types.Block[execution.Payload]{
		ID:            mustHash(t, name),
		Round:         round,
		TimestampUsec: tsUsec,
		ParentID:      parentInfo.ID,
		QC:            parentQC,
	}
	if len(cmds) > 0 {
		block.Payload = &payload
	}

	parentTrees := mockTreesFromInfo(parentInfo)
	out, err := computer.Compute(context.Background(), block, parentTrees)
	require.NoError(t, err)

	info := types.BlockInfo{
		Round:           block.Round,
		ID:              block.ID,
		ExecutedStateID: out.Trees.StateID(),
		Version:         out.Trees.Version(),
		TimestampUsec:   block.TimestampUsec,
	}
	return block, info
}

func mockTreesFromInfo(info types.BlockInfo) execution.Trees {
	return staticTrees{version: info.Version, stateID: info.ExecutedStateID}
}

type staticTrees struct {
	version uint64
	stateID types.Hash
}

func (t staticTrees) Version() uint64     { return t.version }
func (t staticTrees) StateID() types.Hash { return t.stateID }

// nonCommittingQC certifies info without carrying a commit decision.
func nonCommittingQC(info types.BlockInfo) *types.QuorumCert {
	return &types.QuorumCert{CertifiedBlock: info, LedgerInfo: types.LedgerInfoWithSignatures{}}
}

// committingQC certifies certified while its embedded ledger info
// commits committedAncestor.
func committingQC(certified, committedAncestor types.BlockInfo) *types.QuorumCert {
	return &types.QuorumCert{
		CertifiedBlock: certified,
		LedgerInfo:     types.LedgerInfoWithSignatures{LedgerInfo: types.LedgerInfo{CommitInfo: committedAncestor}},
	}
}

func newStore(t *testing.T, recovery RecoveryData[execution.Payload], computer *execution.MockStateComputer, opts ...Option) (*BlockStore[execution.Payload], *MemoryPersistentStore[execution.Payload]) {
	t.Helper()
	store := NewMemoryPersistentStore[execution.Payload](recovery)
	bs, err := New[execution.Payload](context.Background(), store, computer, opts...)
	require.NoError(t, err)
	return bs, store
}
