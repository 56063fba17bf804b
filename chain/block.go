package chain

import (
	"sort"

	"github.com/rheehot/agora/codec"
	"github.com/rheehot/agora/crypto"
)

// BlockHeader is the chain-linking, verifiable summary of a block. Height
// 0 is genesis and carries the zero hash as its PrevBlockHash.
type BlockHeader struct {
	PrevBlockHash      crypto.Hash
	Height             uint64
	MerkleRoot         crypto.Hash
	ValidatorsBitfield []byte
	AggregateSignature []byte
	Enrollments        []Enrollment
}

func (h BlockHeader) ToBeHashed() (crypto.HashID, []byte) {
	return crypto.HashIDBlockHeader, codec.Marshal(h)
}

// Hash returns the header's content-addressed hash. A block's identity on
// the chain is its header's hash; the body (transactions) is addressed only
// through the header's MerkleRoot.
func (h BlockHeader) Hash() crypto.Hash {
	return crypto.HashObj(h)
}

// Block bundles a header with its transactions and the Merkle tree built
// over them. The tree is retained for inclusion proofs but is not itself
// part of the header's hash — only MerkleRoot is.
type Block struct {
	Header BlockHeader
	Txs    []Transaction
	Tree   MerkleTree
}

// Hash returns the block's identity, its header's hash.
func (b Block) Hash() crypto.Hash {
	return b.Header.Hash()
}

// sortedTxs returns txs sorted strictly ascending by hash.
func sortedTxs(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hash().Less(out[j].Hash())
	})
	return out
}

// sortedEnrollments returns enrollments sorted strictly ascending by
// utxo_key.
func sortedEnrollments(enrollments []Enrollment) []Enrollment {
	out := make([]Enrollment, len(enrollments))
	copy(out, enrollments)
	sort.Slice(out, func(i, j int) bool {
		return out[i].UTXOKey.Less(out[j].UTXOKey)
	})
	return out
}

// MakeNewBlock builds a non-genesis block on top of prev:
// prev_block_hash = hash(prev.header), height = prev.height + 1,
// merkle_root = merkle(sort(txs)).
func MakeNewBlock(prev Block, txs []Transaction, enrollments []Enrollment) Block {
	sortedTx := sortedTxs(txs)
	tree := BuildMerkleTree(sortedTx)
	header := BlockHeader{
		PrevBlockHash: prev.Header.Hash(),
		Height:        prev.Header.Height + 1,
		MerkleRoot:    tree.Root(),
		Enrollments:   sortedEnrollments(enrollments),
	}
	return Block{Header: header, Txs: sortedTx, Tree: tree}
}
