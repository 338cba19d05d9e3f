package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// Command is a single opaque operation a MockStateComputer "executes".
// Real payloads are application-defined; this stands in for them the
// same way original_source/executor/src/mock_vm/mod.rs's MockVM stands
// in for the Move VM: enough behavior to drive the surrounding
// bookkeeping deterministically, none of the actual semantics.
type Command string

// Payload is the mock payload type: a batch of commands.
type Payload []Command

type mockTrees struct {
	version uint64
	stateID types.Hash
}

func (t mockTrees) Version() uint64       { return t.version }
func (t mockTrees) StateID() types.Hash   { return t.stateID }

// MockStateComputer deterministically folds each block's commands
// into a running digest, so two computations over the same parent
// state and the same payload always agree — the property the block
// tree's divergence checks rely on.
type MockStateComputer struct {
	mu        sync.Mutex
	committed mockTrees
	onCommit  func(round uint64)
}

var _ StateComputer[Payload] = (*MockStateComputer)(nil)

// NewMockStateComputer builds a computer whose committed state starts
// at genesis (version 0, zero state id).
func NewMockStateComputer() *MockStateComputer {
	return &MockStateComputer{}
}

// OnCommit installs a callback invoked synchronously at the end of
// Commit, after the committed trees have been updated. Tests use it to
// observe commit ordering without a second lock.
func (m *MockStateComputer) OnCommit(fn func(round uint64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCommit = fn
}

func (m *MockStateComputer) Compute(_ context.Context, block *types.Block[Payload], parent Trees) (Output[Payload], error) {
	parentTrees, ok := parent.(mockTrees)
	if !ok && parent != nil {
		// accept any Trees implementation that reports version/stateID,
		// so callers can hand in the genuine committed trees too.
		parentTrees = mockTrees{version: parent.Version(), stateID: parent.StateID()}
	}
	var payload Payload
	if block.Payload != nil {
		payload = *block.Payload
	}
	h, err := types.HashOf(struct {
		_       struct{} `cbor:",toarray"`
		Parent  types.Hash
		Payload Payload
	}{Parent: parentTrees.stateID, Payload: payload})
	if err != nil {
		return Output[Payload]{}, fmt.Errorf("mock compute: %w", err)
	}
	return Output[Payload]{
		Trees: mockTrees{version: parentTrees.version + uint64(len(payload)), stateID: h},
	}, nil
}

func (m *MockStateComputer) Commit(_ context.Context, blocks []ExecutedBlockView[Payload], proof types.LedgerInfoWithSignatures) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(blocks) == 0 {
		return nil
	}
	last := blocks[len(blocks)-1]
	out := last.Output()
	trees, ok := out.Trees.(mockTrees)
	if !ok {
		return fmt.Errorf("mock commit: unexpected trees type %T", out.Trees)
	}
	if trees.stateID != proof.LedgerInfo.CommitInfo.ExecutedStateID {
		return fmt.Errorf("mock commit: state id %s disagrees with finality proof %s", trees.stateID, proof.LedgerInfo.CommitInfo.ExecutedStateID)
	}
	m.committed = trees
	if m.onCommit != nil {
		m.onCommit(last.Block().Round)
	}
	return nil
}

func (m *MockStateComputer) CommittedTrees() Trees {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

func (m *MockStateComputer) SyncTo(_ context.Context, target types.LedgerInfoWithSignatures) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = mockTrees{
		version: target.LedgerInfo.CommitInfo.Version,
		stateID: target.LedgerInfo.CommitInfo.ExecutedStateID,
	}
	return nil
}
