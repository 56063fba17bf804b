package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/crypto"
)

func deterministicValidators(t *testing.T, n int) []GenesisValidator {
	t.Helper()
	out := make([]GenesisValidator, n)
	for i := 0; i < n; i++ {
		var seed crypto.Seed
		seed[0] = byte(i + 1)
		kp := crypto.KeyPairFromSeed(seed)
		out[i] = GenesisValidator{KeyPair: kp, DistributionAmount: AmountOf(1_000_000)}
	}
	return out
}

// Genesis construction is byte-for-byte reproducible from the same
// deterministic validator keys.
func TestMakeGenesisBlockDeterministic(t *testing.T) {
	validators := deterministicValidators(t, 3)

	a := MakeGenesisBlock(validators, AmountOf(40_000_000_000), 20)
	b := MakeGenesisBlock(validators, AmountOf(40_000_000_000), 20)

	require.Equal(t, a.Hash(), b.Hash())
	require.Equal(t, a, b)
}

func TestMakeGenesisBlockShape(t *testing.T) {
	validators := deterministicValidators(t, 2)
	block := MakeGenesisBlock(validators, AmountOf(40_000_000_000), 20)

	require.True(t, block.Header.PrevBlockHash.IsZero())
	require.Equal(t, uint64(0), block.Header.Height)
	require.Len(t, block.Txs, 3, "one distribution tx plus one freeze tx per validator")
	require.Len(t, block.Header.Enrollments, 2)

	for i := 1; i < len(block.Header.Enrollments); i++ {
		require.True(t, block.Header.Enrollments[i-1].UTXOKey.Less(block.Header.Enrollments[i].UTXOKey))
	}
	for i := 1; i < len(block.Txs); i++ {
		require.True(t, block.Txs[i-1].Hash().Less(block.Txs[i].Hash()))
	}

	for _, en := range block.Header.Enrollments {
		found := false
		for _, v := range validators {
			if en.VerifySignature(v.KeyPair.Public) {
				found = true
				break
			}
		}
		require.True(t, found, "every genesis enrollment must verify against some validator's key")
	}
}

func TestMakeNewBlockLinksToPrev(t *testing.T) {
	validators := deterministicValidators(t, 2)
	genesis := MakeGenesisBlock(validators, AmountOf(40_000_000_000), 20)

	kp, err := crypto.KeyPairRandom()
	require.NoError(t, err)
	txs := []Transaction{newPaymentTx(t, kp.Public, 1)}

	next := MakeNewBlock(genesis, txs, nil)
	require.Equal(t, genesis.Hash(), next.Header.PrevBlockHash)
	require.Equal(t, uint64(1), next.Header.Height)
	require.Equal(t, next.Tree.Root(), next.Header.MerkleRoot)
}
