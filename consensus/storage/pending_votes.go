package storage

import (
	"fmt"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// VoteReceptionKind classifies the outcome of handing a single vote to
// PendingVotes.
type VoteReceptionKind int

const (
	VoteAdded VoteReceptionKind = iota
	NewQuorumCertificate
	NewTimeoutCertificate
	DuplicateVote
	EquivocateVote
	ErrorAddingVote
)

func (k VoteReceptionKind) String() string {
	switch k {
	case VoteAdded:
		return "VoteAdded"
	case NewQuorumCertificate:
		return "NewQuorumCertificate"
	case NewTimeoutCertificate:
		return "NewTimeoutCertificate"
	case DuplicateVote:
		return "DuplicateVote"
	case EquivocateVote:
		return "EquivocateVote"
	case ErrorAddingVote:
		return "ErrorAddingVote"
	default:
		return "Unknown"
	}
}

// VoteReceptionResult reports what inserting one vote produced. QC and
// TC are populated independently of Kind: a single vote can complete a
// QC and a TC at once (a vote with both a regular signature and a
// timeout signature attached), so callers must check both fields
// rather than switch exclusively on Kind.
type VoteReceptionResult struct {
	Kind      VoteReceptionKind
	VoteCount int
	QC        *types.QuorumCert
	TC        *types.TimeoutCert
	Err       error
}

type voteTally struct {
	proposed   types.BlockInfo
	ledgerInfo types.LedgerInfo
	sigs       map[types.Author]types.Signature
}

type timeoutTally struct {
	sigs map[types.Author]types.Signature
}

// PendingVotes aggregates votes for not-yet-certified blocks and
// round-timeouts for not-yet-certified rounds. It tracks, per author,
// the single digest that author has most recently voted for at each
// round so a second, different vote for the same round can be
// reported as equivocation rather than silently dropped or
// double-counted.
type PendingVotes struct {
	votesByDigest map[types.Hash]*voteTally
	authorVote    map[roundAuthor]types.Hash // last regular-vote digest seen from author at round

	timeoutsByRound map[uint64]*timeoutTally
	authorTimeout   map[roundAuthor]bool // whether author has already contributed a timeout sig at round
}

type roundAuthor struct {
	round  uint64
	author types.Author
}

// NewPendingVotes returns an empty aggregator.
func NewPendingVotes() *PendingVotes {
	return &PendingVotes{
		votesByDigest:   map[types.Hash]*voteTally{},
		authorVote:      map[roundAuthor]types.Hash{},
		timeoutsByRound: map[uint64]*timeoutTally{},
		authorTimeout:   map[roundAuthor]bool{},
	}
}

// InsertVote verifies vote's signature(s) against verifier, aggregates
// it into the matching vote/timeout tally, and reports whether a new
// quorum certificate and/or timeout certificate was just completed.
func (p *PendingVotes) InsertVote(vote *types.Vote, verifier *types.ValidatorVerifier) VoteReceptionResult {
	if _, ok := verifier.VotingPower(vote.Author); !ok {
		return VoteReceptionResult{Kind: ErrorAddingVote, Err: fmt.Errorf("%w: unknown author %s", types.ErrInvalidSignature, vote.Author)}
	}

	digest, err := vote.Digest()
	if err != nil {
		return VoteReceptionResult{Kind: ErrorAddingVote, Err: fmt.Errorf("compute vote digest: %w", err)}
	}
	if err := verifier.VerifySignature(vote.Author, digest, vote.Signature); err != nil {
		return VoteReceptionResult{Kind: ErrorAddingVote, Err: err}
	}

	ra := roundAuthor{round: vote.Round, author: vote.Author}
	if prior, seen := p.authorVote[ra]; seen {
		if prior == digest {
			return VoteReceptionResult{Kind: DuplicateVote, Err: types.ErrDuplicateVote}
		}
		return VoteReceptionResult{Kind: EquivocateVote, Err: fmt.Errorf("%w: author %s already voted differently at round %d", types.ErrEquivocatingVote, vote.Author, vote.Round)}
	}

	tally, ok := p.votesByDigest[digest]
	if !ok {
		tally = &voteTally{proposed: vote.Proposed, ledgerInfo: vote.LedgerInfo, sigs: map[types.Author]types.Signature{}}
		p.votesByDigest[digest] = tally
	}
	tally.sigs[vote.Author] = vote.Signature
	p.authorVote[ra] = digest

	result := VoteReceptionResult{Kind: VoteAdded, VoteCount: len(tally.sigs)}

	authors := authorsOf(tally.sigs)
	if verifier.CheckVotingPower(authors) {
		result.QC = &types.QuorumCert{
			CertifiedBlock: tally.proposed,
			LedgerInfo: types.LedgerInfoWithSignatures{
				LedgerInfo: tally.ledgerInfo,
				Signatures: cloneSignatures(tally.sigs),
			},
		}
		result.Kind = NewQuorumCertificate
	}

	if vote.Timeout != nil {
		if timeoutDigest, tErr := types.TimeoutDigest(vote.Round); tErr == nil {
			if vErr := verifier.VerifySignature(vote.Author, timeoutDigest, vote.Timeout.Signature); vErr == nil {
				if !p.authorTimeout[ra] {
					tt, ok := p.timeoutsByRound[vote.Round]
					if !ok {
						tt = &timeoutTally{sigs: map[types.Author]types.Signature{}}
						p.timeoutsByRound[vote.Round] = tt
					}
					tt.sigs[vote.Author] = vote.Timeout.Signature
					p.authorTimeout[ra] = true
					if verifier.CheckVotingPower(authorsOf(tt.sigs)) {
						result.TC = &types.TimeoutCert{Round: vote.Round, Signatures: cloneSignatures(tt.sigs)}
						if result.Kind == VoteAdded {
							result.Kind = NewTimeoutCertificate
						}
					}
				}
			}
		}
	}

	return result
}

func authorsOf(sigs map[types.Author]types.Signature) []types.Author {
	out := make([]types.Author, 0, len(sigs))
	for a := range sigs {
		out = append(out, a)
	}
	return out
}

func cloneSignatures(sigs map[types.Author]types.Signature) map[types.Author]types.Signature {
	out := make(map[types.Author]types.Signature, len(sigs))
	for a, s := range sigs {
		out[a] = s
	}
	return out
}
