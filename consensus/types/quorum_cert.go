package types

// QuorumCert is proof that a supermajority of validators voted for a
// block's identity and execution result. Its embedded LedgerInfo may
// additionally carry a commit decision when the certified block's
// 3-chain has completed.
type QuorumCert struct {
	CertifiedBlock BlockInfo
	LedgerInfo     LedgerInfoWithSignatures
}

func (qc *QuorumCert) CertifiedRound() uint64 {
	if qc == nil {
		return 0
	}
	return qc.CertifiedBlock.Round
}

func (qc *QuorumCert) CertifiedID() Hash {
	if qc == nil {
		return ZeroHash
	}
	return qc.CertifiedBlock.ID
}

// CommitRound returns the round committed by this QC's embedded
// ledger info, or 0 if qc is nil.
func (qc *QuorumCert) CommitRound() uint64 {
	if qc == nil {
		return 0
	}
	return qc.LedgerInfo.CommitRound()
}

// CommitsBlock reports whether this QC's embedded ledger info carries
// an actual commit decision (as opposed to certifying the block
// without yet committing anything, eg the genesis-adjacent QCs).
func (qc *QuorumCert) CommitsBlock() bool {
	return qc != nil && !qc.LedgerInfo.LedgerInfo.CommitInfo.ID.IsZero()
}

// TimeoutCert proves that a supermajority of validators timed out at
// Round, granting the round's next proposer permission to skip it.
type TimeoutCert struct {
	Round      uint64
	Signatures map[Author]Signature
}

func (tc *TimeoutCert) GetRound() uint64 {
	if tc == nil {
		return 0
	}
	return tc.Round
}
