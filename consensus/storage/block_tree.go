package storage

import (
	"fmt"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// BlockTree is the in-memory DAG of executed blocks: a rooted tree of
// ExecutedBlock values plus the quorum-certificate index and the
// highest-round trackers that drive round progression.
//
// BlockTree performs no locking of its own — every mutating method
// assumes the caller already holds exclusive access, and every
// read-only method at least shared (read) access. BlockStore is the
// concurrency envelope that provides that.
type BlockTree[P any] struct {
	blocks   map[types.Hash]*ExecutedBlock[P]
	children map[types.Hash][]types.Hash // parent id -> child ids, insertion order

	rootID types.Hash

	qcByCertifiedID map[types.Hash]*types.QuorumCert
	highestQC       *types.QuorumCert
	highestLI       *types.QuorumCert // the QC whose embedded ledger info is highest-committed
	highestTC       *types.TimeoutCert

	maxPrunedBlocksInMem int
	prunedIDs            []types.Hash // bounded FIFO, insertion order (oldest first)

	pendingVotes *PendingVotes
}

// NewBlockTree seeds a tree with root as its sole block. rootQC
// certifies root and rootLI is the QC whose embedded ledger info is
// the highest commit known as of root (for a genesis root these are
// typically the same certificate).
func NewBlockTree[P any](root *ExecutedBlock[P], rootQC, rootLI *types.QuorumCert, highestTC *types.TimeoutCert, maxPrunedBlocksInMem int) *BlockTree[P] {
	t := &BlockTree[P]{
		blocks:               map[types.Hash]*ExecutedBlock[P]{root.ID(): root},
		children:             map[types.Hash][]types.Hash{},
		rootID:               root.ID(),
		qcByCertifiedID:      map[types.Hash]*types.QuorumCert{},
		highestQC:            rootQC,
		highestLI:            rootLI,
		highestTC:            highestTC,
		maxPrunedBlocksInMem: maxPrunedBlocksInMem,
		pendingVotes:         NewPendingVotes(),
	}
	if rootQC != nil {
		t.qcByCertifiedID[rootQC.CertifiedBlock.ID] = rootQC
	}
	return t
}

// InsertBlock adds block as a leaf under its parent. A duplicate id
// returns the existing block unchanged. Violating round/timestamp/
// root monotonicity against the parent or current root returns
// ErrInvalidBlock rather than silently accepting an unsafe insert.
func (t *BlockTree[P]) InsertBlock(block *ExecutedBlock[P]) (*ExecutedBlock[P], error) {
	if existing, ok := t.blocks[block.ID()]; ok {
		return existing, nil
	}
	parent, ok := t.blocks[block.ParentID()]
	if !ok {
		return nil, fmt.Errorf("%w: parent %s of block %s", types.ErrBlockNotFound, block.ParentID(), block.ID())
	}
	root := t.blocks[t.rootID]
	switch {
	case block.Round() <= parent.Round():
		return nil, fmt.Errorf("%w: round %d does not exceed parent round %d", types.ErrInvalidBlock, block.Round(), parent.Round())
	case block.TimestampUsec() <= parent.TimestampUsec():
		return nil, fmt.Errorf("%w: timestamp %d does not exceed parent timestamp %d", types.ErrInvalidBlock, block.TimestampUsec(), parent.TimestampUsec())
	case block.Round() <= root.Round():
		return nil, fmt.Errorf("%w: round %d does not exceed root round %d", types.ErrInvalidBlock, block.Round(), root.Round())
	}
	t.blocks[block.ID()] = block
	t.children[parent.ID()] = append(t.children[parent.ID()], block.ID())
	return block, nil
}

// classifyQCConsistency compares a QC's certified block against the
// block held locally under the same id and reports whether they
// agree. A mismatch confined to the executed state id is reported as
// ErrExecutionDivergence (the caller should trigger state-sync); any
// other mismatch is ErrInconsistentBlockInfo (the caller should
// ignore the QC).
func classifyQCConsistency(local, certified types.BlockInfo) error {
	switch {
	case local.Equal(certified):
		return nil
	case local.DivergesOnExecutedState(certified):
		return fmt.Errorf("%w: qc for %s asserts state %s, locally executed state is %s", types.ErrExecutionDivergence, certified.ID, certified.ExecutedStateID, local.ExecutedStateID)
	default:
		return fmt.Errorf("%w: qc for %s carries %+v, local block is %+v", types.ErrInconsistentBlockInfo, certified.ID, certified, local)
	}
}

// InsertQuorumCert records qc against the block it certifies, updating
// the highest-QC and highest-ledger-info trackers as needed.
func (t *BlockTree[P]) InsertQuorumCert(qc *types.QuorumCert) error {
	b, ok := t.blocks[qc.CertifiedBlock.ID]
	if !ok {
		return fmt.Errorf("%w: certified block %s", types.ErrBlockNotFound, qc.CertifiedBlock.ID)
	}
	if err := classifyQCConsistency(b.BlockInfo(), qc.CertifiedBlock); err != nil {
		return err
	}
	t.qcByCertifiedID[qc.CertifiedBlock.ID] = qc
	if qc.CertifiedBlock.Round > t.highestQC.CertifiedRound() {
		t.highestQC = qc
	}
	if qc.CommitsBlock() && qc.LedgerInfo.CommitRound() > t.highestLI.CommitRound() {
		t.highestLI = qc
	}
	return nil
}

// ReplaceTimeoutCert installs tc as the highest known timeout
// certificate if its round exceeds the current one; otherwise it is a
// no-op.
func (t *BlockTree[P]) ReplaceTimeoutCert(tc *types.TimeoutCert) {
	if tc.GetRound() <= t.highestTC.GetRound() {
		return
	}
	t.highestTC = tc
}

// InsertVote forwards to the PendingVotes aggregator.
func (t *BlockTree[P]) InsertVote(vote *types.Vote, verifier *types.ValidatorVerifier) VoteReceptionResult {
	return t.pendingVotes.InsertVote(vote, verifier)
}

// Root returns the current root block: the most recently committed
// block, and the in-memory tree's base.
func (t *BlockTree[P]) Root() *ExecutedBlock[P] {
	return t.blocks[t.rootID]
}

func (t *BlockTree[P]) GetBlock(id types.Hash) (*ExecutedBlock[P], bool) {
	b, ok := t.blocks[id]
	return b, ok
}

func (t *BlockTree[P]) BlockExists(id types.Hash) bool {
	_, ok := t.blocks[id]
	return ok
}

func (t *BlockTree[P]) GetQuorumCertForBlock(id types.Hash) (*types.QuorumCert, bool) {
	qc, ok := t.qcByCertifiedID[id]
	return qc, ok
}

func (t *BlockTree[P]) HighestCertifiedBlock() *ExecutedBlock[P] {
	return t.blocks[t.highestQC.CertifiedID()]
}

func (t *BlockTree[P]) HighestQuorumCert() *types.QuorumCert   { return t.highestQC }
func (t *BlockTree[P]) HighestLedgerInfo() *types.QuorumCert   { return t.highestLI }
func (t *BlockTree[P]) HighestTimeoutCert() *types.TimeoutCert { return t.highestTC }

// PathFromRoot returns the ordered list of blocks from the first block
// after root down to id. It returns ok=false if id is not a known
// descendant of root; it returns an empty, ok=true slice if id is the
// root itself, distinguishing the three cases (unknown id, root
// itself, strict descendant) rather than collapsing them.
func (t *BlockTree[P]) PathFromRoot(id types.Hash) ([]*ExecutedBlock[P], bool) {
	if id == t.rootID {
		return []*ExecutedBlock[P]{}, true
	}
	b, ok := t.blocks[id]
	if !ok {
		return nil, false
	}
	path := []*ExecutedBlock[P]{b}
	for b.ParentID() != t.rootID {
		parent, ok := t.blocks[b.ParentID()]
		if !ok {
			return nil, false
		}
		path = append(path, parent)
		b = parent
	}
	// reverse into root-to-id order
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, true
}

// FindBlocksToPrune returns, in deterministic BFS order from the
// current root, the ids reachable from root that are not in
// newRootID's subtree. That includes the current root itself and every
// ancestor of newRootID below it, not only the losing branches.
// newRootID must be a present descendant of root or an error is
// returned.
func (t *BlockTree[P]) FindBlocksToPrune(newRootID types.Hash) ([]types.Hash, error) {
	if newRootID == t.rootID {
		return nil, nil
	}
	if _, ok := t.blocks[newRootID]; !ok {
		return nil, fmt.Errorf("%w: new root %s", types.ErrBlockNotFound, newRootID)
	}
	var pruned []types.Hash
	found := false
	queue := []types.Hash{t.rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		pruned = append(pruned, id)
		for _, child := range t.children[id] {
			if child == newRootID {
				found = true
				continue
			}
			queue = append(queue, child)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: new root %s not reachable from current root", types.ErrBlockNotFound, newRootID)
	}
	return pruned, nil
}

// ProcessPrunedBlocks removes ids from the primary index, records them
// in the bounded pruned-block FIFO (evicting the oldest entries beyond
// maxPrunedBlocksInMem), advances root to newRootID, and drops any QC
// certifying a round below the new root's round.
func (t *BlockTree[P]) ProcessPrunedBlocks(newRootID types.Hash, ids []types.Hash) {
	for _, id := range ids {
		delete(t.blocks, id)
		delete(t.children, id)
		delete(t.qcByCertifiedID, id)
	}
	t.rootID = newRootID
	newRootRound := t.Root().Round()
	for id, qc := range t.qcByCertifiedID {
		if qc.CertifiedBlock.Round < newRootRound {
			delete(t.qcByCertifiedID, id)
		}
	}
	t.prunedIDs = append(t.prunedIDs, ids...)
	if over := len(t.prunedIDs) - t.maxPrunedBlocksInMem; over > 0 {
		t.prunedIDs = t.prunedIDs[over:]
	}
}

// PrunedBlockIDs returns the bounded, recently-evicted-blocks window,
// oldest first, used to answer late retrieval requests.
func (t *BlockTree[P]) PrunedBlockIDs() []types.Hash {
	out := make([]types.Hash, len(t.prunedIDs))
	copy(out, t.prunedIDs)
	return out
}

// Len reports the number of blocks currently in the tree
// (test/introspection surface).
func (t *BlockTree[P]) Len() int { return len(t.blocks) }

// ChildLinks reports the number of parent->child edges in the tree.
func (t *BlockTree[P]) ChildLinks() int {
	n := 0
	for _, cs := range t.children {
		n += len(cs)
	}
	return n
}

// AllUncommittedBlocks returns every block in the tree except root, in
// an unspecified but deterministic (DFS) order. Used by callers that
// need to scan in-flight blocks, eg to check for a pending change
// before proposing a new one.
func (t *BlockTree[P]) AllUncommittedBlocks() []*ExecutedBlock[P] {
	var out []*ExecutedBlock[P]
	stack := append([]types.Hash{}, t.children[t.rootID]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, t.children[id]...)
		out = append(out, t.blocks[id])
	}
	return out
}
