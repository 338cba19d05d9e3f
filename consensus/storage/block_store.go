package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

// BlockStore is the concurrency envelope around BlockTree: a single
// readers-writer lock serializes mutations while letting many readers
// proceed concurrently. Calls into the state computer and into
// persistent storage happen outside the writer lock; only the final
// in-memory mutation is made under it.
type BlockStore[P any] struct {
	mu sync.RWMutex

	tree     *BlockTree[P]
	storage  PersistentStorage[P]
	computer execution.StateComputer[P]
	pipeline *CommitPipeline[P]

	conf *storeConf
}

// New builds a BlockStore by recovering the tree from storage.Start()
// via BuildBlockTree. Any inconsistency uncovered during recovery is
// fatal: it is a startup-time assertion, not a runtime error a caller
// can shrug off.
func New[P any](ctx context.Context, storage PersistentStorage[P], computer execution.StateComputer[P], opts ...Option) (*BlockStore[P], error) {
	conf := defaultConf()
	for _, o := range opts {
		o(conf)
	}

	recovery, err := storage.Start()
	if err != nil {
		return nil, fmt.Errorf("loading recovery data: %w", err)
	}

	tree, err := BuildBlockTree[P](ctx, recovery, computer, conf.maxPrunedBlocksInMem)
	if err != nil {
		return nil, fmt.Errorf("building block tree: %w", err)
	}

	return &BlockStore[P]{
		tree:     tree,
		storage:  storage,
		computer: computer,
		pipeline: NewCommitPipeline[P](conf.logger, conf.metrics),
		conf:     conf,
	}, nil
}

// ExecuteAndInsertBlock validates block's parent linkage, executes it
// against the parent's trees (or, if the parent signals a pending
// reconfiguration, synthesizes an empty-payload child without
// invoking the computer at all), persists it, and inserts it into the
// tree. Idempotent: a duplicate id returns the existing block without
// re-executing or re-persisting.
func (s *BlockStore[P]) ExecuteAndInsertBlock(ctx context.Context, block *types.Block[P]) (*ExecutedBlock[P], error) {
	s.mu.RLock()
	if existing, ok := s.tree.GetBlock(block.ID); ok {
		s.mu.RUnlock()
		return existing, nil
	}
	parent, ok := s.tree.GetBlock(block.ParentID)
	root := s.tree.Root()
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: parent %s of block %s", types.ErrBlockNotFound, block.ParentID, block.ID)
	}
	if parent.Round() >= block.Round || parent.TimestampUsec() >= block.TimestampUsec {
		s.logSecurityEvent("InvalidBlock", "block", block.ID, "parent", parent.ID())
		return nil, fmt.Errorf("%w: block %s fails round/timestamp admission against parent %s", types.ErrInvalidBlock, block.ID, parent.ID())
	}
	if block.Round <= root.Round() {
		s.logSecurityEvent("InvalidBlock", "block", block.ID, "reason", "round below root")
		return nil, fmt.Errorf("%w: block %s round %d does not exceed root round %d", types.ErrInvalidBlock, block.ID, block.Round, root.Round())
	}

	output, err := s.computeOutput(ctx, block, parent)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SaveTree([]*types.Block[P]{block}, nil); err != nil {
		return nil, fmt.Errorf("persisting block %s: %w", block.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inserted, err := s.tree.InsertBlock(NewExecutedBlock[P](block, output))
	if err != nil {
		return nil, err
	}
	if s.conf.metrics != nil {
		s.conf.metrics.blocksInserted.Inc()
		s.conf.metrics.treeSize.Set(float64(s.tree.Len()))
	}
	return inserted, nil
}

// computeOutput implements the reconfiguration suffix rule: once a
// parent's output carries a pending validator set and the parent is
// not itself the root, every descendant inherits that output verbatim
// with no payload and no call into the computer.
func (s *BlockStore[P]) computeOutput(ctx context.Context, block *types.Block[P], parent *ExecutedBlock[P]) (execution.Output[P], error) {
	if parent.HasReconfiguration() && parent.ID() != s.currentRootID() {
		if block.Payload != nil {
			return execution.Output[P]{}, fmt.Errorf("%w: block %s carries a payload after a reconfiguration", types.ErrInvalidBlock, block.ID)
		}
		return execution.Output[P]{Trees: parent.ExecutedTrees(), NextValidators: parent.Output().NextValidators}, nil
	}
	out, err := s.computer.Compute(ctx, block, parent.ExecutedTrees())
	if err != nil {
		return execution.Output[P]{}, fmt.Errorf("%w: %v", types.ErrExecutionFailed, err)
	}
	return out, nil
}

func (s *BlockStore[P]) currentRootID() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Root().ID()
}

// InsertSingleQuorumCert requires the certified block to already be
// present and consistent, persists qc, then inserts it.
func (s *BlockStore[P]) InsertSingleQuorumCert(qc *types.QuorumCert) error {
	s.mu.RLock()
	b, ok := s.tree.GetBlock(qc.CertifiedBlock.ID)
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: certified block %s", types.ErrBlockNotFound, qc.CertifiedBlock.ID)
	}
	if err := classifyQCConsistency(b.BlockInfo(), qc.CertifiedBlock); err != nil {
		if errors.Is(err, types.ErrExecutionDivergence) && s.conf.metrics != nil {
			s.conf.metrics.execDivergence.Inc()
		}
		return err
	}

	if err := s.storage.SaveTree(nil, []*types.QuorumCert{qc}); err != nil {
		return fmt.Errorf("persisting qc for %s: %w", qc.CertifiedBlock.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.InsertQuorumCert(qc)
}

// InsertTimeoutCertificate writes tc through to storage only when it
// is strictly newer than the current highest, then replaces it in
// memory.
func (s *BlockStore[P]) InsertTimeoutCertificate(tc *types.TimeoutCert) error {
	s.mu.RLock()
	stale := tc.GetRound() <= s.tree.HighestTimeoutCert().GetRound()
	s.mu.RUnlock()
	if stale {
		return nil
	}

	if err := s.storage.SaveHighestTimeoutCert(tc); err != nil {
		return fmt.Errorf("persisting timeout cert for round %d: %w", tc.Round, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceTimeoutCert(tc)
	return nil
}

// InsertVote is a thin pass-through to PendingVotes under the writer
// lock.
func (s *BlockStore[P]) InsertVote(vote *types.Vote, verifier *types.ValidatorVerifier) VoteReceptionResult {
	s.mu.Lock()
	result := s.tree.InsertVote(vote, verifier)
	s.mu.Unlock()

	if s.conf.metrics != nil {
		s.conf.metrics.observeVote(result.Kind.String())
		if result.Kind == EquivocateVote {
			s.conf.metrics.equivocations.Inc()
		}
	}
	if result.Kind == EquivocateVote {
		s.logSecurityEvent("EquivocateVote", "author", vote.Author, "round", vote.Round)
	}
	return result
}

// Commit drives the finality proof through the commit pipeline and
// prunes the tree to the newly committed root. Storage pruning is
// best-effort and never aborts the in-memory prune.
func (s *BlockStore[P]) Commit(ctx context.Context, proof types.LedgerInfoWithSignatures) ([]*ExecutedBlock[P], error) {
	s.mu.RLock()
	tree := s.tree
	s.mu.RUnlock()

	committed, err := s.pipeline.Commit(ctx, tree, s.computer, proof)
	if err != nil {
		return nil, err
	}

	newRootID := proof.ConsensusBlockID()

	s.mu.Lock()
	ids, err := s.tree.FindBlocksToPrune(newRootID)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("finding blocks to prune: %w", err)
	}
	s.tree.ProcessPrunedBlocks(newRootID, ids)
	if s.conf.metrics != nil {
		s.conf.metrics.treeSize.Set(float64(s.tree.Len()))
	}
	s.mu.Unlock()

	if err := s.storage.PruneTree(ids); err != nil {
		s.conf.logger.Warn("storage prune failed, will be cleaned up on next recovery", "error", err)
	}

	return committed, nil
}

// Rebuild atomically swaps the tree for one built from root/blocks/
// qcs (preserving the prior highest TC), prunes storage of stale ids,
// and, if the rebuilt tree's highest ledger info is ahead of its new
// root, immediately recurses into Commit to catch the executor up.
// This is the path a caller takes after a state-sync jump.
func (s *BlockStore[P]) Rebuild(ctx context.Context, recovery RecoveryData[P]) error {
	s.mu.RLock()
	priorTC := s.tree.HighestTimeoutCert()
	s.mu.RUnlock()
	if recovery.HighestTimeoutCert == nil {
		recovery.HighestTimeoutCert = priorTC
	}

	newTree, err := BuildBlockTree[P](ctx, recovery, s.computer, s.conf.maxPrunedBlocksInMem)
	if err != nil {
		return fmt.Errorf("rebuilding block tree: %w", err)
	}

	s.mu.Lock()
	oldRoot := s.tree.Root()
	s.tree = newTree
	s.mu.Unlock()

	if err := s.storage.PruneTree([]types.Hash{oldRoot.ID()}); err != nil {
		s.conf.logger.Warn("storage prune after rebuild failed", "error", err)
	}

	s.mu.RLock()
	needsCommit := newTree.HighestLedgerInfo().CommitRound() > newTree.Root().Round()
	s.mu.RUnlock()
	if needsCommit {
		li := newTree.HighestLedgerInfo().LedgerInfo
		if _, err := s.Commit(ctx, li); err != nil {
			return fmt.Errorf("catching up commit after rebuild: %w", err)
		}
	}
	return nil
}

func (s *BlockStore[P]) logSecurityEvent(event string, args ...any) {
	s.conf.logger.Warn("security event", append([]any{"event", event}, args...)...)
}

// --- BlockReader ---

func (s *BlockStore[P]) BlockExists(id types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.BlockExists(id)
}

func (s *BlockStore[P]) GetBlock(id types.Hash) (*ExecutedBlock[P], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.GetBlock(id)
}

func (s *BlockStore[P]) Root() *ExecutedBlock[P] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Root()
}

func (s *BlockStore[P]) GetQuorumCertForBlock(id types.Hash) (*types.QuorumCert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.GetQuorumCertForBlock(id)
}

func (s *BlockStore[P]) PathFromRoot(id types.Hash) ([]*ExecutedBlock[P], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.PathFromRoot(id)
}

func (s *BlockStore[P]) HighestCertifiedBlock() *ExecutedBlock[P] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.HighestCertifiedBlock()
}

func (s *BlockStore[P]) HighestQuorumCert() *types.QuorumCert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.HighestQuorumCert()
}

func (s *BlockStore[P]) HighestLedgerInfo() *types.QuorumCert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.HighestLedgerInfo()
}

func (s *BlockStore[P]) HighestTimeoutCert() *types.TimeoutCert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.HighestTimeoutCert()
}

// AllUncommittedBlocks returns every block in the tree except root, in
// an unspecified but deterministic order. A proposer uses this to scan
// in-flight blocks, eg to check for a pending reconfiguration before
// proposing a new one.
func (s *BlockStore[P]) AllUncommittedBlocks() []*ExecutedBlock[P] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.AllUncommittedBlocks()
}

// --- test/introspection surface ---

// Len reports the number of blocks currently held in the tree.
func (s *BlockStore[P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// ChildLinks reports the number of parent->child edges in the tree.
func (s *BlockStore[P]) ChildLinks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.ChildLinks()
}

// PrunedBlockIDs returns the bounded, recently-evicted-blocks window.
func (s *BlockStore[P]) PrunedBlockIDs() []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.PrunedBlockIDs()
}
