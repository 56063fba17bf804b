package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
)

func fourValidators(t *testing.T) []crypto.PublicKey {
	t.Helper()
	out := make([]crypto.PublicKey, 4)
	for i := range out {
		kp, err := crypto.KeyPairRandom()
		require.NoError(t, err)
		out[i] = kp.Public
	}
	return out
}

func TestDeriveQuorumSliceFractionalThreshold(t *testing.T) {
	validators := fourValidators(t)
	params := config.Consensus
	params.FullAgreementThreshold = false

	qs := DeriveQuorumSlice(validators, params)
	require.Len(t, qs.Validators, 4)
	require.Equal(t, params.QuorumThreshold(4), qs.Threshold)
	require.Equal(t, 4, qs.Threshold, "ceil(2*4/3)+1 = 4, capped at the set size")
}

func TestDeriveQuorumSliceFullAgreement(t *testing.T) {
	validators := fourValidators(t)
	params := config.Consensus
	params.FullAgreementThreshold = true

	qs := DeriveQuorumSlice(validators, params)
	require.Equal(t, 4, qs.Threshold)
}

func TestDeriveQuorumSliceIsSortedDeterministically(t *testing.T) {
	validators := fourValidators(t)
	params := config.Consensus

	a := DeriveQuorumSlice(validators, params)
	reversed := make([]crypto.PublicKey, len(validators))
	for i, v := range validators {
		reversed[len(validators)-1-i] = v
	}
	b := DeriveQuorumSlice(reversed, params)

	require.Equal(t, a.Validators, b.Validators)
}
