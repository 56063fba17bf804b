package chain

import (
	"encoding/binary"

	"github.com/rheehot/agora/crypto"
)

// UTXOKey identifies one output of one transaction: hash(tx_hash ‖
// output_index_as_LE_u64).
type UTXOKey crypto.Hash

// ToBeHashed implements crypto.Hashable for the (tx_hash, output_index) pair
// that produces a UTXOKey. This isn't UTXOKey itself — UTXOKey is the output
// of hashing this pair — so it's a distinct unexported carrier type.
type utxoKeyInput struct {
	txHash      crypto.Hash
	outputIndex uint32
}

func (k utxoKeyInput) ToBeHashed() (crypto.HashID, []byte) {
	buf := make([]byte, crypto.HashSize+8)
	copy(buf, k.txHash[:])
	binary.LittleEndian.PutUint64(buf[crypto.HashSize:], uint64(k.outputIndex))
	return crypto.HashIDUTXOKey, buf
}

// MakeUTXOKey derives the key for the output at index of the transaction
// hashing to txHash.
func MakeUTXOKey(txHash crypto.Hash, outputIndex uint32) UTXOKey {
	h := crypto.HashObj(utxoKeyInput{txHash: txHash, outputIndex: outputIndex})
	return UTXOKey(h)
}

// String renders the key as hex, for logs.
func (k UTXOKey) String() string {
	return crypto.Hash(k).String()
}

// Less gives UTXOKey a strict total order, used to sort a block's
// enrollments by the utxo_key they reference.
func (k UTXOKey) Less(o UTXOKey) bool {
	return crypto.Hash(k).Less(crypto.Hash(o))
}

// UTXOValue is what a UTXOKey maps to in the set: the maturity height, the
// originating transaction's type, and the output itself.
type UTXOValue struct {
	UnlockHeight uint64
	Type         TxType
	Output       TxOutput
}

// IsMature reports whether the UTXO may be spent at the given height.
func (v UTXOValue) IsMature(height uint64) bool {
	return height >= v.UnlockHeight
}
