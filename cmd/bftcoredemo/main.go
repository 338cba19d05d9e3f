// Command bftcoredemo wires a BlockStore to an in-memory persistent
// store and the mock state computer, inserts one proposal on top of
// genesis, and commits it — enough to exercise the
// full execute/insert/commit/prune path end to end outside of tests.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cristianizzo/libra-fork/consensus/execution"
	"github.com/cristianizzo/libra-fork/consensus/storage"
	"github.com/cristianizzo/libra-fork/consensus/types"
)

func main() {
	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	logger := slog.Default()

	computer := execution.NewMockStateComputer()

	genesisID, err := hashLabel("genesis")
	if err != nil {
		return fmt.Errorf("hashing genesis id: %w", err)
	}
	genesisInfo := types.BlockInfo{ID: genesisID, Round: 0, TimestampUsec: 0}
	genesisQC := &types.QuorumCert{
		CertifiedBlock: genesisInfo,
		LedgerInfo: types.LedgerInfoWithSignatures{
			LedgerInfo: types.LedgerInfo{CommitInfo: genesisInfo},
		},
	}

	store := storage.NewMemoryPersistentStore[execution.Payload](storage.RecoveryData[execution.Payload]{
		RootBlock:        &types.Block[execution.Payload]{ID: genesisID, Genesis: true},
		RootQC:           genesisQC,
		RootLedgerInfoQC: genesisQC,
	})

	bs, err := storage.New[execution.Payload](ctx, store, computer,
		storage.WithLogger(logger),
		storage.WithMaxPrunedBlocksInMem(5),
	)
	if err != nil {
		return fmt.Errorf("building block store: %w", err)
	}

	b1ID, err := hashLabel("b1")
	if err != nil {
		return err
	}
	payload := execution.Payload{"deposit(alice, 10)", "deposit(bob, 5)"}
	b1 := &types.Block[execution.Payload]{
		ID:            b1ID,
		Round:         1,
		TimestampUsec: 10,
		ParentID:      genesisID,
		QC:            genesisQC,
		Payload:       &payload,
	}

	executed, err := bs.ExecuteAndInsertBlock(ctx, b1)
	if err != nil {
		return fmt.Errorf("inserting block 1: %w", err)
	}
	logger.Info("inserted block", "round", executed.Round(), "state_id", executed.ExecutedTrees().StateID())

	commitProof := types.LedgerInfoWithSignatures{
		LedgerInfo: types.LedgerInfo{CommitInfo: executed.BlockInfo()},
	}
	committed, err := bs.Commit(ctx, commitProof)
	if err != nil {
		return fmt.Errorf("committing block 1: %w", err)
	}
	logger.Info("committed", "blocks", len(committed), "new_root", bs.Root().ID())

	return nil
}

func hashLabel(label string) (types.Hash, error) {
	return types.HashOf(struct {
		_     struct{} `cbor:",toarray"`
		Label string
	}{Label: label})
}
