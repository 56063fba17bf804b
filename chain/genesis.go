package chain

import "github.com/rheehot/agora/crypto"

// GenesisValidator is one of the validators genesis enrolls: its key pair
// (owner of its freeze output and signer of its enrollment) and
// the starting balance it receives from the distribution transaction.
type GenesisValidator struct {
	KeyPair          crypto.KeyPair
	DistributionAmount Amount
}

// genesisPreimageSeed derives a validator's pre-image chain root
// deterministically from its public key alone, so MakeGenesisBlock is a
// pure function of its inputs and byte-for-byte reproducible, without
// needing an external source of randomness at genesis time.
func genesisPreimageSeed(pub crypto.PublicKey) crypto.Hash {
	return crypto.HashBytes(append([]byte("agora-genesis-preimage:"), pub[:]...))
}

// MakeGenesisBlock builds the height-0 block: one payment-distribution
// transaction funding every validator, one Freeze transaction per validator
// staking minFreezeAmount, and one enrollment per freeze output.
func MakeGenesisBlock(validators []GenesisValidator, minFreezeAmount Amount, cycleLength uint32) Block {
	txs := make([]Transaction, 0, len(validators)+1)

	distOutputs := make([]TxOutput, len(validators))
	for i, v := range validators {
		distOutputs[i] = TxOutput{Amount: v.DistributionAmount, Destination: v.KeyPair.Public}
	}
	txs = append(txs, Transaction{Type: Payment, Outputs: distOutputs})

	freezeTxs := make([]Transaction, len(validators))
	for i, v := range validators {
		freezeTxs[i] = Transaction{
			Type:    Freeze,
			Outputs: []TxOutput{{Amount: minFreezeAmount, Destination: v.KeyPair.Public}},
		}
		txs = append(txs, freezeTxs[i])
	}

	sortedTx := sortedTxs(txs)

	enrollments := make([]Enrollment, len(validators))
	for i, v := range validators {
		utxoKey := MakeUTXOKey(freezeTxs[i].Hash(), 0)
		seed := genesisPreimageSeed(v.KeyPair.Public)
		head := CommittedHead(seed, cycleLength)
		enrollments[i] = MakeEnrollment(v.KeyPair, utxoKey, head, cycleLength)
	}

	tree := BuildMerkleTree(sortedTx)
	header := BlockHeader{
		PrevBlockHash: crypto.Hash{},
		Height:        0,
		MerkleRoot:    tree.Root(),
		Enrollments:   sortedEnrollments(enrollments),
	}
	return Block{Header: header, Txs: sortedTx, Tree: tree}
}
