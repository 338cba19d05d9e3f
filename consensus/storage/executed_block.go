package storage

import (
	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

// ExecutedBlock is a Block plus the output of running it through the
// StateComputer. The BlockTree is its sole owner; readers only ever
// see shared, immutable references to it — nothing in this package
// mutates an ExecutedBlock after construction.
type ExecutedBlock[P any] struct {
	block  *types.Block[P]
	output execution.Output[P]
}

var _ execution.ExecutedBlockView[struct{}] = (*ExecutedBlock[struct{}])(nil)

// NewExecutedBlock pairs a block with its execution output.
func NewExecutedBlock[P any](block *types.Block[P], output execution.Output[P]) *ExecutedBlock[P] {
	return &ExecutedBlock[P]{block: block, output: output}
}

func (b *ExecutedBlock[P]) Block() *types.Block[P]        { return b.block }
func (b *ExecutedBlock[P]) Output() execution.Output[P]    { return b.output }
func (b *ExecutedBlock[P]) ID() types.Hash                 { return b.block.ID }
func (b *ExecutedBlock[P]) ParentID() types.Hash           { return b.block.ParentID }
func (b *ExecutedBlock[P]) Round() uint64                  { return b.block.Round }
func (b *ExecutedBlock[P]) Epoch() uint64                  { return b.block.Epoch }
func (b *ExecutedBlock[P]) TimestampUsec() uint64          { return b.block.TimestampUsec }
func (b *ExecutedBlock[P]) ExecutedTrees() execution.Trees { return b.output.Trees }

// BlockInfo derives this block's identity-triple, the value any QC
// certifying it must carry verbatim.
func (b *ExecutedBlock[P]) BlockInfo() types.BlockInfo {
	var stateID types.Hash
	var version uint64
	if b.output.Trees != nil {
		stateID = b.output.Trees.StateID()
		version = b.output.Trees.Version()
	}
	return types.BlockInfo{
		Epoch:           b.Epoch(),
		Round:           b.Round(),
		ID:              b.ID(),
		ExecutedStateID: stateID,
		Version:         version,
		TimestampUsec:   b.TimestampUsec(),
		NextValidators:  b.output.NextValidators,
	}
}

// HasReconfiguration reports whether this block's output carries a
// pending validator-set change.
func (b *ExecutedBlock[P]) HasReconfiguration() bool {
	return b.output.NextValidators != nil
}
