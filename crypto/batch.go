package crypto

// BatchVerifier accumulates (public key, message, signature) triples and
// verifies them together, in the EnqueueSignature/Verify shape common to
// batch-signature APIs. ed25519consensus has no true batch-verification
// entry point, so verification here runs each signature individually; the
// batching value is purely in the call pattern, letting a caller queue an
// entire block's signatures and get back one aggregate pass/fail plus
// per-index detail.
type BatchVerifier struct {
	messages   [][]byte
	publicKeys []PublicKey
	sigs       []Signature
}

// MakeBatchVerifier returns an empty verifier.
func MakeBatchVerifier() *BatchVerifier {
	return &BatchVerifier{}
}

// EnqueueSignature adds one signature to the batch.
func (b *BatchVerifier) EnqueueSignature(public PublicKey, message []byte, sig Signature) {
	b.publicKeys = append(b.publicKeys, public)
	b.messages = append(b.messages, message)
	b.sigs = append(b.sigs, sig)
}

// GetNumberOfEnqueuedSignatures reports how many signatures are queued.
func (b *BatchVerifier) GetNumberOfEnqueuedSignatures() int {
	return len(b.sigs)
}

// Verify reports whether every queued signature is valid. It stops at the
// first failure; callers that need to know which signature failed should use
// VerifyWithFeedback instead.
func (b *BatchVerifier) Verify() bool {
	for i := range b.sigs {
		if !VerifyBytes(b.publicKeys[i], b.messages[i], b.sigs[i]) {
			return false
		}
	}
	return true
}

// VerifyWithFeedback verifies every queued signature and reports, per index,
// whether it failed. The returned slice has one entry per enqueued signature,
// true meaning that signature failed to verify.
func (b *BatchVerifier) VerifyWithFeedback() (allValid bool, failed []bool) {
	failed = make([]bool, len(b.sigs))
	allValid = true
	for i := range b.sigs {
		ok := VerifyBytes(b.publicKeys[i], b.messages[i], b.sigs[i])
		failed[i] = !ok
		if !ok {
			allValid = false
		}
	}
	return allValid, failed
}
