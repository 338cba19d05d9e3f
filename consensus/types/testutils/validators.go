// Package testvalidator builds signed fixtures for the consensus
// packages' tests: a validator set backed by real secp256k1 keys, and
// helpers to produce correctly signed votes (optionally carrying a
// timeout signature) without every test re-deriving the crypto by hand.
package testvalidator

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/cristianizzo/libra-fork/consensus/types"
)

// Set is a validator set together with the private keys backing it,
// so tests can sign votes for any author.
type Set struct {
	Verifier *types.ValidatorVerifier
	Authors  []types.Author
	keys     map[types.Author]*btcec.PrivateKey
}

// NewSet builds a set of n validators, each with equal voting power 1.
func NewSet(t *testing.T, n int) *Set {
	t.Helper()
	infos := make([]*types.ValidatorConsensusInfo, 0, n)
	keys := make(map[types.Author]*btcec.PrivateKey, n)
	authors := make([]types.Author, 0, n)

	for i := 0; i < n; i++ {
		key, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		author := types.Author(rune('A' + i))
		authors = append(authors, author)
		keys[author] = key
		infos = append(infos, &types.ValidatorConsensusInfo{
			Author:      author,
			PublicKey:   key.PubKey(),
			VotingPower: 1,
		})
	}

	verifier, err := types.NewValidatorVerifier(infos)
	require.NoError(t, err)

	return &Set{Verifier: verifier, Authors: authors, keys: keys}
}

// Sign signs digest as author, failing the test if author is unknown.
func (s *Set) Sign(t *testing.T, author types.Author, digest types.Hash) types.Signature {
	t.Helper()
	key, ok := s.keys[author]
	require.True(t, ok, "unknown author %s", author)
	sig := ecdsa.Sign(key, digest[:])
	return types.Signature(sig.Serialize())
}

// Vote builds a fully signed vote from author for proposed/ledgerInfo
// at round.
func (s *Set) Vote(t *testing.T, author types.Author, round uint64, proposed types.BlockInfo, li types.LedgerInfo) *types.Vote {
	t.Helper()
	v := &types.Vote{Author: author, Round: round, Proposed: proposed, LedgerInfo: li}
	digest, err := v.Digest()
	require.NoError(t, err)
	v.Signature = s.Sign(t, author, digest)
	return v
}

// TimeoutVote builds a vote that additionally carries a valid timeout
// signature for round.
func (s *Set) TimeoutVote(t *testing.T, author types.Author, round uint64, proposed types.BlockInfo, li types.LedgerInfo) *types.Vote {
	t.Helper()
	v := s.Vote(t, author, round, proposed, li)
	digest, err := types.TimeoutDigest(round)
	require.NoError(t, err)
	v.Timeout = &types.TimeoutSignature{Signature: s.Sign(t, author, digest)}
	return v
}
