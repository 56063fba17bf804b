package chain

import (
	"github.com/rheehot/agora/codec"
	"github.com/rheehot/agora/crypto"
)

// TxType distinguishes a value-moving Payment from a stake-locking Freeze.
type TxType uint8

const (
	Payment TxType = iota
	Freeze
)

func (t TxType) String() string {
	switch t {
	case Payment:
		return "Payment"
	case Freeze:
		return "Freeze"
	default:
		return "Unknown"
	}
}

// TxInput references a previous output by (tx hash, output index) and
// authenticates the spend with a signature over the transaction's signing
// hash (the transaction with every input's Signature blanked).
type TxInput struct {
	PrevTxHash  crypto.Hash
	OutputIndex uint32
	Signature   crypto.Signature
}

// TxOutput pays an Amount to a destination public key. Outputs are
// pay-to-public-key only; there is no scripting.
type TxOutput struct {
	Amount      Amount
	Destination crypto.PublicKey
}

// Transaction is either a Payment or a Freeze, carrying ordered inputs and
// outputs.
type Transaction struct {
	Type    TxType
	Inputs  []TxInput
	Outputs []TxOutput
}

// ToBeHashed implements crypto.Hashable. The full transaction, signatures
// included, is what other structures (the UTXO key, the Merkle tree) address
// by hash.
func (t Transaction) ToBeHashed() (crypto.HashID, []byte) {
	return crypto.HashIDTransaction, codec.Marshal(t)
}

// Hash returns the transaction's content-addressed hash, the tx_hash used to
// key its outputs' UTXOs.
func (t Transaction) Hash() crypto.Hash {
	return crypto.HashObj(t)
}

// blankSignatures returns a copy of t with every input signature zeroed, the
// form that gets signed and verified so a signature never has to cover
// itself.
func (t Transaction) blankSignatures() Transaction {
	clone := Transaction{
		Type:    t.Type,
		Inputs:  make([]TxInput, len(t.Inputs)),
		Outputs: t.Outputs,
	}
	for i, in := range t.Inputs {
		clone.Inputs[i] = TxInput{PrevTxHash: in.PrevTxHash, OutputIndex: in.OutputIndex}
	}
	return clone
}

// SigningTransaction is the value every input's signature authenticates: the
// transaction with all signatures blanked. Signing the full transaction
// minus signatures avoids a circular dependency where a signature would
// need to cover itself. Callers sign and verify against this directly
// (crypto.Sign/crypto.Verify take a Hashable and hash it themselves).
func (t Transaction) SigningTransaction() Transaction {
	return t.blankSignatures()
}

// SigningHash is the content-addressed hash of SigningTransaction.
func (t Transaction) SigningHash() crypto.Hash {
	return t.SigningTransaction().Hash()
}

// TotalOutput sums the transaction's outputs, reporting overflow.
func (t Transaction) TotalOutput() (Amount, bool) {
	var sum Amount
	for _, out := range t.Outputs {
		var overflowed bool
		sum, overflowed = AddA(sum, out.Amount)
		if overflowed {
			return Amount{}, true
		}
	}
	return sum, false
}

// IsWellFormed checks the shape-only rules from the isValid(): the
// transaction has at least one output, outputs are non-negative
// (guaranteed by the unsigned Amount type), and summing them does not
// overflow. It does not check inputs exist, are unspent, or are mature —
// that requires ledger state and is the block validator's job.
func (t Transaction) IsWellFormed() error {
	if len(t.Outputs) == 0 {
		return ErrEmptyOutputs
	}
	if _, overflowed := t.TotalOutput(); overflowed {
		return ErrAmountOverflow
	}
	return nil
}
