package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashOf_Deterministic(t *testing.T) {
	type payload struct {
		_     struct{} `cbor:",toarray"`
		Round uint64
		Name  string
	}

	h1, err := HashOf(payload{Round: 7, Name: "alice"})
	require.NoError(t, err)
	h2, err := HashOf(payload{Round: 7, Name: "alice"})
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	h3, err := HashOf(payload{Round: 8, Name: "alice"})
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestHash_StringAndZero(t *testing.T) {
	require.True(t, ZeroHash.IsZero())
	h, err := HashOf("anything")
	require.NoError(t, err)
	require.False(t, h.IsZero())
	require.Len(t, h.String(), 64)
}
