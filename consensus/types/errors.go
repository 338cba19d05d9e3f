package types

import "errors"

// Sentinel errors returned by the consensus core. Callers match them
// with errors.Is/errors.As.
var (
	// ErrBlockNotFound is returned when an operation names a parent or
	// certified block id that is not present in the tree. Recoverable:
	// the caller typically retries after a block-retrieval round trip.
	ErrBlockNotFound = errors.New("block not found")

	// ErrInvalidBlock is returned when a block fails parent/round/
	// timestamp admission checks.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrInconsistentBlockInfo is returned when a QC's certified
	// BlockInfo disagrees with the locally stored block.
	ErrInconsistentBlockInfo = errors.New("inconsistent block info")

	// ErrExecutionDivergence is returned when a locally computed state
	// root disagrees with a QC's asserted state root.
	ErrExecutionDivergence = errors.New("execution divergence")

	// ErrExecutionFailed wraps a StateComputer.Compute failure.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrStaleCommit is returned for a commit request at round <= root.
	ErrStaleCommit = errors.New("stale commit")

	// ErrCommitFailed is returned when the block to commit is not
	// reachable from root, and wraps a StateComputer.Commit failure.
	ErrCommitFailed = errors.New("commit failed")

	// ErrFatalStartupInconsistency is returned by recovery when a
	// persisted certificate disagrees with re-executed state. The
	// caller must treat this as fatal and not continue operating on
	// the tree.
	ErrFatalStartupInconsistency = errors.New("fatal startup inconsistency")

	// ErrDuplicateVote is returned (informationally, not as a hard
	// error) when the same author votes the same digest twice.
	ErrDuplicateVote = errors.New("duplicate vote")

	// ErrEquivocatingVote is returned when an author votes two
	// different digests within the same round.
	ErrEquivocatingVote = errors.New("equivocating vote")

	// ErrInvalidSignature is returned when a vote or timeout signature
	// fails verification against the ValidatorVerifier.
	ErrInvalidSignature = errors.New("invalid signature")
)
