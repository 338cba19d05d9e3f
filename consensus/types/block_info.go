package types

// ValidatorSet is the (opaque to this package) set of validators that
// becomes active at the next epoch boundary. A non-nil value embedded
// in a BlockInfo signals a pending reconfiguration (the
// "reconfiguration suffix" rule).
type ValidatorSet struct {
	Epoch     uint64
	Verifier  *ValidatorVerifier
	Authority []Author
}

// BlockInfo is the immutable identity-triple of a block plus the
// summary of what executing it produced. Two BlockInfo values compare
// equal with == only if every field matches; callers should prefer
// BlockInfo.Equal to remain robust to the embedded ValidatorSet
// pointer.
type BlockInfo struct {
	Epoch           uint64
	Round           uint64
	ID              Hash
	ExecutedStateID Hash
	Version         uint64
	TimestampUsec   uint64
	NextValidators  *ValidatorSet // optional, non-nil signals reconfiguration
}

// Equal compares two BlockInfo values field-by-field (ignoring the
// pointer identity of NextValidators, comparing by epoch instead,
// since that's the only observable part a proposer/verifier relies
// on).
func (b BlockInfo) Equal(o BlockInfo) bool {
	if b.Epoch != o.Epoch || b.Round != o.Round || b.ID != o.ID ||
		b.ExecutedStateID != o.ExecutedStateID || b.Version != o.Version ||
		b.TimestampUsec != o.TimestampUsec {
		return false
	}
	return sameReconfiguration(b.NextValidators, o.NextValidators)
}

// DivergesOnExecutedState reports whether b and o identify the same
// block — same epoch, round, id, version, timestamp and validator
// set — but disagree on the executed state id. This is the signature
// of a local execution divergence from a remote QC: the QC names the
// right block, but this node computed a different state root for it.
// It is distinct from any other mismatch, which means the QC names an
// inconsistent block outright rather than a divergent execution.
func (b BlockInfo) DivergesOnExecutedState(o BlockInfo) bool {
	if b.Epoch != o.Epoch || b.Round != o.Round || b.ID != o.ID ||
		b.Version != o.Version || b.TimestampUsec != o.TimestampUsec {
		return false
	}
	if !sameReconfiguration(b.NextValidators, o.NextValidators) {
		return false
	}
	return b.ExecutedStateID != o.ExecutedStateID
}

func sameReconfiguration(a, b *ValidatorSet) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return a.Epoch == b.Epoch
	}
}

func (b BlockInfo) HasReconfiguration() bool {
	return b.NextValidators != nil
}
