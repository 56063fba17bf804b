package chain

import (
	"github.com/rheehot/agora/codec"
	"github.com/rheehot/agora/crypto"
)

// Enrollment is a validator's stake commitment against a frozen UTXO.
type Enrollment struct {
	UTXOKey     UTXOKey
	RandomSeed  crypto.Hash
	CycleLength uint32
	EnrollSig   crypto.SchnorrSignature
}

func (e Enrollment) ToBeHashed() (crypto.HashID, []byte) {
	return crypto.HashIDEnrollment, codec.Marshal(e)
}

// Hash returns the enrollment's content-addressed hash.
func (e Enrollment) Hash() crypto.Hash {
	return crypto.HashObj(e)
}

// signingBytes is what EnrollSig authenticates: the utxo_key, random_seed and
// cycle_length, but not the signature itself.
func (e Enrollment) signingBytes() []byte {
	buf := make([]byte, 0, crypto.HashSize+crypto.HashSize+4)
	keyHash := crypto.Hash(e.UTXOKey)
	buf = append(buf, keyHash[:]...)
	buf = append(buf, e.RandomSeed[:]...)
	buf = append(buf, byte(e.CycleLength), byte(e.CycleLength>>8), byte(e.CycleLength>>16), byte(e.CycleLength>>24))
	return buf
}

// MakeEnrollment signs an enrollment for utxoKey with the node's Curve25519
// scalar derived from kp.Secret. committedHead should come from
// CommittedHead(secretSeed, cycleLength); the caller keeps secretSeed (and
// the full chain PreimageChain returns) private, to reveal one step at a
// time as blocks pass.
func MakeEnrollment(kp crypto.KeyPair, utxoKey UTXOKey, committedHead crypto.Hash, cycleLength uint32) Enrollment {
	e := Enrollment{UTXOKey: utxoKey, RandomSeed: committedHead, CycleLength: cycleLength}
	scalar := crypto.Ed25519SecretToCurveScalar(kp.Secret)
	e.EnrollSig = crypto.SignSchnorr(scalar, e.signingBytes())
	return e
}

// VerifySignature checks EnrollSig against the enroller's Ed25519 public key,
// reconstructing the Curve25519 public point from it.
func (e Enrollment) VerifySignature(enroller crypto.PublicKey) bool {
	return crypto.VerifySchnorr(enroller, e.signingBytes(), e.EnrollSig)
}

// PreimageChain computes h_0 = secretSeed, h_{i+1} = hash(h_i), for a chain
// of the given length. Index 0 is the enroller's private seed; index
// cycleLength-1 is the committed head that gets published as the
// Enrollment's RandomSeed field. The published field is named "random_seed"
// but it is this chain's terminal hash, not its root — the root is kept
// private and revealed one step at a time.
func PreimageChain(secretSeed crypto.Hash, cycleLength uint32) []crypto.Hash {
	chain := make([]crypto.Hash, cycleLength)
	chain[0] = secretSeed
	for i := uint32(1); i < cycleLength; i++ {
		chain[i] = crypto.HashBytes(chain[i-1][:])
	}
	return chain
}

// CommittedHead returns the value an enrollment should publish as its
// RandomSeed: the terminal hash of the chain rooted at secretSeed.
func CommittedHead(secretSeed crypto.Hash, cycleLength uint32) crypto.Hash {
	return PreimageChain(secretSeed, cycleLength)[cycleLength-1]
}

// VerifyPreimage reports whether preimage hashes forward, in steps, to
// committedHead. steps is how many blocks after enrollment the preimage is
// being revealed for.
func VerifyPreimage(preimage crypto.Hash, steps uint32, committedHead crypto.Hash) bool {
	cur := preimage
	for i := uint32(0); i < steps; i++ {
		cur = crypto.HashBytes(cur[:])
	}
	return cur.Equal(committedHead)
}
