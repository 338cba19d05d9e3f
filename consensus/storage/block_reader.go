package storage

import "github.com/cristianizzo/libra-fork/consensus/types"

// BlockReader is the read-only surface of the block store, the
// contract external collaborators (pacemaker, proposer election,
// safety rules) are handed instead of the full BlockStore.
type BlockReader[P any] interface {
	BlockExists(id types.Hash) bool
	GetBlock(id types.Hash) (*ExecutedBlock[P], bool)
	Root() *ExecutedBlock[P]
	GetQuorumCertForBlock(id types.Hash) (*types.QuorumCert, bool)
	PathFromRoot(id types.Hash) ([]*ExecutedBlock[P], bool)
	HighestCertifiedBlock() *ExecutedBlock[P]
	HighestQuorumCert() *types.QuorumCert
	HighestLedgerInfo() *types.QuorumCert
	HighestTimeoutCert() *types.TimeoutCert
}

var _ BlockReader[struct{}] = (*BlockStore[struct{}])(nil)
