package types

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Author identifies a validator. It is opaque to this package; hosts
// typically derive it from a peer id or a public-key fingerprint.
type Author string

// Signature is a detached secp256k1 signature over a Hash digest.
type Signature []byte

// ValidatorConsensusInfo is the per-validator entry a ValidatorVerifier
// is built from: its public key and its voting power in the epoch.
type ValidatorConsensusInfo struct {
	Author      Author
	PublicKey   *btcec.PublicKey
	VotingPower uint64
}

// ValidatorVerifier bounds per-signature validity and exposes the
// quorum threshold used by PendingVotes to decide when a QC/TC forms.
// It is immutable once constructed (one instance per epoch).
type ValidatorVerifier struct {
	infos            map[Author]*ValidatorConsensusInfo
	totalVotingPower uint64
	quorumVotingPow  uint64
}

// NewValidatorVerifier builds a verifier for a validator set. Quorum
// is the smallest power that is a strict supermajority (> 2/3) of the
// total, the standard BFT threshold for 3f+1 participants tolerating
// f faults.
func NewValidatorVerifier(infos []*ValidatorConsensusInfo) (*ValidatorVerifier, error) {
	if len(infos) == 0 {
		return nil, errors.New("validator verifier: empty validator set")
	}
	m := make(map[Author]*ValidatorConsensusInfo, len(infos))
	var total uint64
	for _, vi := range infos {
		if vi.VotingPower == 0 {
			return nil, fmt.Errorf("validator verifier: %s has zero voting power", vi.Author)
		}
		if _, dup := m[vi.Author]; dup {
			return nil, fmt.Errorf("validator verifier: duplicate author %s", vi.Author)
		}
		m[vi.Author] = vi
		total += vi.VotingPower
	}
	return &ValidatorVerifier{
		infos:            m,
		totalVotingPower: total,
		quorumVotingPow:  quorumThreshold(total),
	}, nil
}

// quorumThreshold returns the smallest power strictly greater than
// 2*total/3, ie the standard 3f+1 BFT quorum size.
func quorumThreshold(total uint64) uint64 {
	return total - (total-1)/3
}

func (v *ValidatorVerifier) QuorumVotingPower() uint64 { return v.quorumVotingPow }
func (v *ValidatorVerifier) TotalVotingPower() uint64  { return v.totalVotingPower }

func (v *ValidatorVerifier) VotingPower(author Author) (uint64, bool) {
	vi, ok := v.infos[author]
	if !ok {
		return 0, false
	}
	return vi.VotingPower, true
}

// VerifySignature checks that sig is a valid secp256k1 signature by
// author over digest.
func (v *ValidatorVerifier) VerifySignature(author Author, digest Hash, sig Signature) error {
	vi, ok := v.infos[author]
	if !ok {
		return fmt.Errorf("%w: unknown author %s", ErrInvalidSignature, author)
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: malformed signature from %s: %v", ErrInvalidSignature, author, err)
	}
	if !parsed.Verify(digest[:], vi.PublicKey) {
		return fmt.Errorf("%w: signature from %s does not verify", ErrInvalidSignature, author)
	}
	return nil
}

// CheckVotingPower sums the voting power of authors and reports
// whether it has reached quorum.
func (v *ValidatorVerifier) CheckVotingPower(authors []Author) bool {
	var sum uint64
	for _, a := range authors {
		p, ok := v.infos[a]
		if !ok {
			continue
		}
		sum += p.VotingPower
	}
	return sum >= v.quorumVotingPow
}
