package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rheehot/agora/crypto"
)

func txWithAmount(t *testing.T, amount uint64) Transaction {
	t.Helper()
	kp, err := crypto.KeyPairRandom()
	require.NoError(t, err)
	return newPaymentTx(t, kp.Public, amount)
}

func TestMerkleTreeSingleLeafIsRoot(t *testing.T) {
	tx := txWithAmount(t, 1)
	tree := BuildMerkleTree([]Transaction{tx})
	require.Equal(t, tx.Hash(), tree.Root())
}

func TestMerkleTreeOddCountDuplicatesLast(t *testing.T) {
	txs := []Transaction{txWithAmount(t, 1), txWithAmount(t, 2), txWithAmount(t, 3)}
	tree := BuildMerkleTree(txs)

	leaves := tree.Levels[0]
	require.Len(t, leaves, 3)

	expectedLevel1 := []crypto.Hash{
		hashPair(leaves[0], leaves[1]),
		hashPair(leaves[2], leaves[2]),
	}
	require.Equal(t, expectedLevel1, tree.Levels[1])
	require.Equal(t, hashPair(expectedLevel1[0], expectedLevel1[1]), tree.Root())
}

func TestMerkleTreeDeterministic(t *testing.T) {
	txs := []Transaction{txWithAmount(t, 1), txWithAmount(t, 2)}
	a := BuildMerkleTree(txs)
	b := BuildMerkleTree(txs)
	require.Equal(t, a.Root(), b.Root())
}

func TestMerkleTreeEmpty(t *testing.T) {
	tree := BuildMerkleTree(nil)
	require.Equal(t, crypto.Hash{}, tree.Root())
}

// TestMerkleTreeRootChangesWithAnyLeaf draws a random-sized batch of
// transactions and checks that rebuilding is deterministic while replacing
// any single leaf's amount changes the root.
func TestMerkleTreeRootChangesWithAnyLeaf(t *testing.T) {
	var dest crypto.PublicKey
	txAt := func(amount uint64) Transaction {
		return Transaction{
			Type:    Payment,
			Outputs: []TxOutput{{Amount: AmountOf(amount), Destination: dest}},
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		amounts := rapid.SliceOfN(rapid.Uint64Range(1, 1_000_000), n, n).Draw(t, "amounts")

		txs := make([]Transaction, n)
		for i, amt := range amounts {
			txs[i] = txAt(amt)
		}

		first := BuildMerkleTree(txs)
		second := BuildMerkleTree(txs)
		if first.Root() != second.Root() {
			t.Fatalf("rebuilding %d transactions produced a different root", n)
		}

		flipIdx := rapid.IntRange(0, n-1).Draw(t, "flipIdx")
		mutated := append([]Transaction(nil), txs...)
		mutated[flipIdx] = txAt(amounts[flipIdx] + 1)
		if BuildMerkleTree(mutated).Root() == first.Root() {
			t.Fatalf("changing leaf %d did not change the root", flipIdx)
		}
	})
}
