package fairness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShuffleThenVerifyRoundTrips(t *testing.T) {
	set, indicator, commitment, err := Shuffle("client-seed", 1)
	require.NoError(t, err)
	require.Len(t, set, 106)
	require.False(t, indicator.IsFalseJoker)
	require.True(t, Verify(commitment, commitment.Hash))
}

func TestVerifyFailsOnTamper(t *testing.T) {
	_, _, commitment, err := Shuffle("seed-a", 5)
	require.NoError(t, err)

	tamperedNonce := commitment
	tamperedNonce.Nonce++
	require.False(t, Verify(tamperedNonce, commitment.Hash))

	tamperedSeed := commitment
	tamperedSeed.ServerSeed += "x"
	require.False(t, Verify(tamperedSeed, commitment.Hash))

	tamperedState := commitment
	tamperedState.InitialState += " "
	require.False(t, Verify(tamperedState, commitment.Hash))
}

func TestDeterministicRNGIsReproducible(t *testing.T) {
	rngA := DeterministicRNG("seed", "client", 3)
	rngB := DeterministicRNG("seed", "client", 3)
	for i := 0; i < 20; i++ {
		require.Equal(t, rngA.Int63(), rngB.Int63())
	}
}

func TestComputeCommitmentHashBitExact(t *testing.T) {
	h1 := ComputeCommitmentHash("s", "[]", 0, "")
	h2 := ComputeCommitmentHash("s", "[]", 0, "")
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, ComputeCommitmentHash("s", "[]", 1, ""))
}
