package storage

import (
	"sync"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// MemoryPersistentStore is an in-memory PersistentStorage used by
// tests and the demo binary. It has no durability whatsoever; its
// only job is to faithfully record what BlockStore asks it to save so
// tests can assert on what was saved and on call counts.
type MemoryPersistentStore[P any] struct {
	mu sync.Mutex

	blocks map[types.Hash]*types.Block[P]
	qcs    map[types.Hash]*types.QuorumCert
	tc     *types.TimeoutCert

	recovery RecoveryData[P]

	saveTreeCalls  int
	pruneTreeCalls int
}

var _ PersistentStorage[struct{}] = (*MemoryPersistentStore[struct{}])(nil)

// NewMemoryPersistentStore seeds a store whose Start call will return
// recovery exactly as given; blocks/qcs named within it are pre-loaded
// so a later SaveTree of the same ids is treated as already durable.
func NewMemoryPersistentStore[P any](recovery RecoveryData[P]) *MemoryPersistentStore[P] {
	s := &MemoryPersistentStore[P]{
		blocks:   map[types.Hash]*types.Block[P]{},
		qcs:      map[types.Hash]*types.QuorumCert{},
		recovery: recovery,
		tc:       recovery.HighestTimeoutCert,
	}
	if recovery.RootBlock != nil {
		s.blocks[recovery.RootBlock.ID] = recovery.RootBlock
	}
	for _, b := range recovery.OrphanBlocks {
		s.blocks[b.ID] = b
	}
	if recovery.RootQC != nil {
		s.qcs[recovery.RootQC.CertifiedBlock.ID] = recovery.RootQC
	}
	for _, qc := range recovery.OrphanQCs {
		s.qcs[qc.CertifiedBlock.ID] = qc
	}
	return s
}

func (s *MemoryPersistentStore[P]) SaveTree(blocks []*types.Block[P], qcs []*types.QuorumCert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveTreeCalls++
	for _, b := range blocks {
		s.blocks[b.ID] = b
	}
	for _, qc := range qcs {
		s.qcs[qc.CertifiedBlock.ID] = qc
	}
	return nil
}

func (s *MemoryPersistentStore[P]) SaveHighestTimeoutCert(tc *types.TimeoutCert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tc = tc
	return nil
}

func (s *MemoryPersistentStore[P]) PruneTree(ids []types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneTreeCalls++
	for _, id := range ids {
		delete(s.blocks, id)
		delete(s.qcs, id)
	}
	return nil
}

func (s *MemoryPersistentStore[P]) Start() (RecoveryData[P], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovery, nil
}

// SaveTreeCalls and PruneTreeCalls let tests assert on call counts,
// eg the idempotent-duplicate-insert property of S3.
func (s *MemoryPersistentStore[P]) SaveTreeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTreeCalls
}

func (s *MemoryPersistentStore[P]) PruneTreeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneTreeCalls
}
