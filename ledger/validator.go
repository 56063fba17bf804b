package ledger

import (
	"fmt"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
)

// IsInvalidReason runs the block-acceptance predicate in
// its specified order and returns the first failing rule's reason, or "" if
// the block is valid. It is pure: base is read through an overlay that is
// discarded when this function returns, and no ledger state is mutated.
func IsInvalidReason(
	block chain.Block,
	prevHeight uint64,
	prevHash crypto.Hash,
	base *chain.UTXOSet,
	activeEnrollments int,
	params config.ConsensusParams,
) string {
	// 1. height = prev_height + 1
	if block.Header.Height != prevHeight+1 {
		return fmt.Sprintf("height %d is not prev_height+1 (%d)", block.Header.Height, prevHeight+1)
	}
	// 2. prev_block_hash = prev_hash
	if !block.Header.PrevBlockHash.Equal(prevHash) {
		return "prev_block_hash does not match the chain tip"
	}
	// 3. |txs| = TxsInBlock
	if uint32(len(block.Txs)) != params.TxsInBlock {
		return fmt.Sprintf("block has %d transactions, want %d", len(block.Txs), params.TxsInBlock)
	}
	// 4. txs sorted strictly ascending by hash
	for i := 1; i < len(block.Txs); i++ {
		if !block.Txs[i-1].Hash().Less(block.Txs[i].Hash()) {
			return "transactions are not strictly ascending by hash"
		}
	}
	// 5. every tx passes transaction validation. Input signatures across the
	// whole block are queued into one BatchVerifier and checked together
	// below, rather than one at a time, the way a block validator amortizes
	// signature checking over every transaction it admits.
	overlay := chain.NewOverlay(base)
	bv := crypto.MakeBatchVerifier()
	var sigRefs []sigRef
	for i, tx := range block.Txs {
		reason, inputs := validateTransaction(tx, block.Header.Height, overlay, params, bv)
		if reason != "" {
			return fmt.Sprintf("tx %d: %s", i, reason)
		}
		for _, inputIdx := range inputs {
			sigRefs = append(sigRefs, sigRef{txIdx: i, inputIdx: inputIdx})
		}
	}
	if allValid, failed := bv.VerifyWithFeedback(); !allValid {
		for batchIdx, bad := range failed {
			if bad {
				ref := sigRefs[batchIdx]
				return fmt.Sprintf("tx %d: input %d: signature does not authenticate spend", ref.txIdx, ref.inputIdx)
			}
		}
	}
	// 6. merkle_root matches a freshly computed tree
	if got, want := block.Header.MerkleRoot, chain.BuildMerkleTree(block.Txs).Root(); !got.Equal(want) {
		return "merkle_root does not match transactions"
	}
	// 7. enrollments strictly ascending by utxo_key
	for i := 1; i < len(block.Header.Enrollments); i++ {
		if !block.Header.Enrollments[i-1].UTXOKey.Less(block.Header.Enrollments[i].UTXOKey) {
			return "enrollments are not strictly ascending by utxo_key"
		}
	}
	// 8. |enrollments| + active_enrollments >= MinValidatorCount
	if uint32(len(block.Header.Enrollments)+activeEnrollments) < params.MinValidatorCount {
		return fmt.Sprintf("only %d validators would be active, want at least %d",
			len(block.Header.Enrollments)+activeEnrollments, params.MinValidatorCount)
	}
	// 9. every enrollment passes enrollment validation
	for i, en := range block.Header.Enrollments {
		if reason := validateEnrollment(en, overlay, params); reason != "" {
			return fmt.Sprintf("enrollment %d: %s", i, reason)
		}
	}
	return ""
}

// sigRef locates one queued signature back to the (transaction, input) pair
// it authenticates, so a batch verification failure can still be reported
// against the specific input that produced it.
type sigRef struct {
	txIdx, inputIdx int
}

// validateTransaction checks one transaction against the overlay, staging
// its spends and its own outputs into the overlay so later transactions in
// the same block may reference it in-block spend rule. Input signatures are
// queued into bv rather than verified immediately; the caller checks bv
// once every transaction it cares about has been queued.
func validateTransaction(tx chain.Transaction, height uint64, overlay *chain.Overlay, params config.ConsensusParams, bv *crypto.BatchVerifier) (reason string, sigInputs []int) {
	if err := tx.IsWellFormed(); err != nil {
		return err.Error(), nil
	}

	signingHash := crypto.HashRep(tx.SigningTransaction())

	var totalIn chain.Amount
	for i, in := range tx.Inputs {
		key := chain.MakeUTXOKey(in.PrevTxHash, in.OutputIndex)
		utxo, ok := overlay.Find(key)
		if !ok {
			return fmt.Sprintf("input %d: utxo %s not found or already spent", i, key), nil
		}
		if !utxo.IsMature(height) {
			return fmt.Sprintf("input %d: utxo %s is not yet mature (unlocks at %d, height %d)", i, key, utxo.UnlockHeight, height), nil
		}
		bv.EnqueueSignature(utxo.Output.Destination, signingHash, in.Signature)
		sigInputs = append(sigInputs, i)
		sum, overflowed := chain.AddA(totalIn, utxo.Output.Amount)
		if overflowed {
			return "sum of inputs overflows", nil
		}
		totalIn = sum
		overlay.Consume(key)
	}

	// tx.IsWellFormed already ruled out an overflowing sum above.
	totalOut, _ := tx.TotalOutput()
	for i, out := range tx.Outputs {
		if out.Amount.IsZero() {
			return fmt.Sprintf("output %d has zero amount", i), nil
		}
	}
	if totalIn.Less(totalOut) {
		return "sum of inputs is less than sum of outputs", nil
	}

	overlay.Put(tx.Hash(), tx, height, false, uint64(params.PaymentMaturityDelay), uint64(params.FreezeMaturityDelay))
	return "", sigInputs
}

func validateEnrollment(en chain.Enrollment, overlay *chain.Overlay, params config.ConsensusParams) string {
	utxo, ok := overlay.Find(en.UTXOKey)
	if !ok {
		return fmt.Sprintf("utxo_key %s does not resolve", en.UTXOKey)
	}
	if utxo.Type != chain.Freeze {
		return fmt.Sprintf("utxo_key %s is not a freeze output", en.UTXOKey)
	}
	if utxo.Output.Amount.Raw < params.MinFreezeAmount {
		return fmt.Sprintf("utxo_key %s stakes %d, below MinFreezeAmount %d", en.UTXOKey, utxo.Output.Amount.Raw, params.MinFreezeAmount)
	}
	if !en.VerifySignature(utxo.Output.Destination) {
		return "enrollment signature does not verify"
	}
	return ""
}

// IsGenesisInvalidReason validates a height-0 block against the
// genesis predicate, distinct from IsInvalidReason: every transaction has
// zero inputs, and enrollments reference freeze outputs created by this
// same genesis block.
func IsGenesisInvalidReason(block chain.Block, params config.ConsensusParams) string {
	if block.Header.Height != 0 {
		return "genesis height must be 0"
	}
	if !block.Header.PrevBlockHash.IsZero() {
		return "genesis prev_block_hash must be zero"
	}
	if len(block.Txs) < 1 || uint32(len(block.Txs)) > params.TxsInBlock {
		return fmt.Sprintf("genesis has %d transactions, want 1..%d", len(block.Txs), params.TxsInBlock)
	}
	for i := 1; i < len(block.Txs); i++ {
		if !block.Txs[i-1].Hash().Less(block.Txs[i].Hash()) {
			return "transactions are not strictly ascending by hash"
		}
	}

	genesisSet := chain.NewUTXOSet()
	for _, tx := range block.Txs {
		if len(tx.Inputs) != 0 {
			return "genesis transaction has inputs"
		}
		if len(tx.Outputs) == 0 {
			return "genesis transaction has no outputs"
		}
		positive := false
		for _, out := range tx.Outputs {
			if !out.Amount.IsZero() {
				positive = true
			}
		}
		if !positive {
			return "genesis transaction has no output of positive value"
		}
		genesisSet.Put(tx.Hash(), tx, 0, true, 0, 0)
	}

	if got, want := block.Header.MerkleRoot, chain.BuildMerkleTree(block.Txs).Root(); !got.Equal(want) {
		return "merkle_root does not match transactions"
	}

	for i := 1; i < len(block.Header.Enrollments); i++ {
		if !block.Header.Enrollments[i-1].UTXOKey.Less(block.Header.Enrollments[i].UTXOKey) {
			return "enrollments are not strictly ascending by utxo_key"
		}
	}
	overlay := chain.NewOverlay(genesisSet)
	for i, en := range block.Header.Enrollments {
		if reason := validateEnrollment(en, overlay, params); reason != "" {
			return fmt.Sprintf("enrollment %d: %s", i, reason)
		}
	}
	return ""
}
