package chain

import "github.com/rheehot/agora/crypto"

// merkleNode is the Hashable carrier for an internal Merkle node: the
// concatenation of its two children's hashes, domain-separated from a leaf
// hash so a transaction can never be mistaken for an internal node.
type merkleNode struct {
	left, right crypto.Hash
}

func (n merkleNode) ToBeHashed() (crypto.HashID, []byte) {
	buf := make([]byte, 0, 2*crypto.HashSize)
	buf = append(buf, n.left[:]...)
	buf = append(buf, n.right[:]...)
	return crypto.HashIDMerkleNode, buf
}

func hashPair(left, right crypto.Hash) crypto.Hash {
	return crypto.HashObj(merkleNode{left: left, right: right})
}

// MerkleTree retains every level of the tree, not just the root, so that
// inclusion proofs can be built without recomputing anything. Levels[0] is
// the leaves; the last entry is a single-element slice holding the root.
type MerkleTree struct {
	Levels [][]crypto.Hash
}

// BuildMerkleTree hashes each transaction as a leaf and folds pairs upward,
// duplicating the last node at each odd-sized level.
func BuildMerkleTree(txs []Transaction) MerkleTree {
	leaves := make([]crypto.Hash, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.Hash()
	}
	return buildFromLeaves(leaves)
}

func buildFromLeaves(leaves []crypto.Hash) MerkleTree {
	levels := [][]crypto.Hash{leaves}
	cur := leaves
	for len(cur) > 1 {
		if len(cur)%2 == 1 {
			cur = append(cur, cur[len(cur)-1])
		}
		next := make([]crypto.Hash, len(cur)/2)
		for i := range next {
			next[i] = hashPair(cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
		cur = next
	}
	return MerkleTree{Levels: levels}
}

// Root returns the tree's root hash, or the zero hash for an empty tree.
func (t MerkleTree) Root() crypto.Hash {
	if len(t.Levels) == 0 {
		return crypto.Hash{}
	}
	last := t.Levels[len(t.Levels)-1]
	if len(last) == 0 {
		return crypto.Hash{}
	}
	return last[0]
}
