package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cristianizzo/libra-fork/consensus/types"
	testvalidator "github.com/cristianizzo/libra-fork/consensus/types/testutils"
)

func TestPendingVotes_QuorumFormation_S5(t *testing.T) {
	set := testvalidator.NewSet(t, 4) // quorum = 3
	proposed := types.BlockInfo{Round: 1, ID: mustHash(t, "b")}
	li := types.LedgerInfo{}

	pv := NewPendingVotes()

	r1 := pv.InsertVote(set.Vote(t, set.Authors[0], 1, proposed, li), set.Verifier)
	require.Equal(t, VoteAdded, r1.Kind)
	require.Equal(t, 1, r1.VoteCount)
	require.Nil(t, r1.QC)

	r2 := pv.InsertVote(set.Vote(t, set.Authors[1], 1, proposed, li), set.Verifier)
	require.Equal(t, VoteAdded, r2.Kind)
	require.Nil(t, r2.QC)

	r3 := pv.InsertVote(set.Vote(t, set.Authors[2], 1, proposed, li), set.Verifier)
	require.Equal(t, NewQuorumCertificate, r3.Kind)
	require.NotNil(t, r3.QC)
	require.True(t, proposed.Equal(r3.QC.CertifiedBlock))
	require.Len(t, r3.QC.LedgerInfo.Signatures, 3)
}

func TestPendingVotes_DuplicateVote(t *testing.T) {
	set := testvalidator.NewSet(t, 4)
	proposed := types.BlockInfo{Round: 1, ID: mustHash(t, "b")}
	li := types.LedgerInfo{}
	pv := NewPendingVotes()

	vote := set.Vote(t, set.Authors[0], 1, proposed, li)
	first := pv.InsertVote(vote, set.Verifier)
	require.Equal(t, VoteAdded, first.Kind)

	second := pv.InsertVote(vote, set.Verifier)
	require.Equal(t, DuplicateVote, second.Kind)
	require.ErrorIs(t, second.Err, types.ErrDuplicateVote)
}

func TestPendingVotes_EquivocatingVote_S4(t *testing.T) {
	set := testvalidator.NewSet(t, 4)
	li := types.LedgerInfo{}
	pv := NewPendingVotes()

	first := pv.InsertVote(set.Vote(t, set.Authors[0], 1, types.BlockInfo{Round: 1, ID: mustHash(t, "b")}, li), set.Verifier)
	require.Equal(t, VoteAdded, first.Kind)
	require.Equal(t, 1, first.VoteCount)

	second := pv.InsertVote(set.Vote(t, set.Authors[0], 1, types.BlockInfo{Round: 1, ID: mustHash(t, "b-fork")}, li), set.Verifier)
	require.Equal(t, EquivocateVote, second.Kind)
	require.ErrorIs(t, second.Err, types.ErrEquivocatingVote)
}

func TestPendingVotes_DifferentExecutionIdsAggregateSeparately(t *testing.T) {
	set := testvalidator.NewSet(t, 4)
	proposed := types.BlockInfo{Round: 1, ID: mustHash(t, "b")}
	pv := NewPendingVotes()

	li1 := types.LedgerInfo{CommitInfo: types.BlockInfo{ExecutedStateID: mustHash(t, "state-1")}}
	li2 := types.LedgerInfo{CommitInfo: types.BlockInfo{ExecutedStateID: mustHash(t, "state-2")}}

	r1 := pv.InsertVote(set.Vote(t, set.Authors[0], 1, proposed, li1), set.Verifier)
	require.Equal(t, 1, r1.VoteCount)
	r2 := pv.InsertVote(set.Vote(t, set.Authors[1], 1, proposed, li2), set.Verifier)
	require.Equal(t, 1, r2.VoteCount, "a different ledger info digest starts its own tally")
}

func TestPendingVotes_TimeoutCertificateFormation(t *testing.T) {
	set := testvalidator.NewSet(t, 4)
	proposed := types.BlockInfo{Round: 1, ID: mustHash(t, "b")}
	li := types.LedgerInfo{}
	pv := NewPendingVotes()

	for i := 0; i < 2; i++ {
		r := pv.InsertVote(set.TimeoutVote(t, set.Authors[i], 1, proposed, li), set.Verifier)
		require.Nil(t, r.TC)
	}
	r := pv.InsertVote(set.TimeoutVote(t, set.Authors[2], 1, proposed, li), set.Verifier)
	require.NotNil(t, r.TC)
	require.Equal(t, uint64(1), r.TC.Round)
	require.Len(t, r.TC.Signatures, 3)
}

func TestPendingVotes_UnknownAuthorRejected(t *testing.T) {
	set := testvalidator.NewSet(t, 4)
	pv := NewPendingVotes()
	vote := &types.Vote{Author: "ghost", Round: 1}
	r := pv.InsertVote(vote, set.Verifier)
	require.Equal(t, ErrorAddingVote, r.Kind)
	require.ErrorIs(t, r.Err, types.ErrInvalidSignature)
}
