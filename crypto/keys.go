package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/hdevalence/ed25519consensus"

	"github.com/rheehot/agora/metrics"
)

// Sizes of the Ed25519 byte arrays used throughout the wire format.
const (
	SeedSize      = ed25519.SeedSize      // 32
	PublicKeySize = ed25519.PublicKeySize // 32
	SecretKeySize = ed25519.PrivateKeySize // 64 (seed || public key)
	SignatureSize = ed25519.SignatureSize // 64
)

// Seed is the entropy a key pair is derived from.
type Seed [SeedSize]byte

// PublicKey is an Ed25519 public key, renders to an address string
// beginning with 'G'.
type PublicKey [PublicKeySize]byte

// SecretKey is an Ed25519 private key in the standard expanded
// seed||public-key form.
type SecretKey [SecretKeySize]byte

// Signature is a 64-byte detached Ed25519 signature.
type Signature [SignatureSize]byte

// KeyPair bundles a public/secret key produced from the same seed.
type KeyPair struct {
	Public PublicKey
	Secret SecretKey
}

// KeyPairFromSeed derives a deterministic key pair from a seed, built on the
// standard library's ed25519 implementation (see DESIGN.md for why a cgo
// signing backend was not carried over).
func KeyPairFromSeed(seed Seed) KeyPair {
	priv := ed25519.NewKeyFromSeed(seed[:])
	var kp KeyPair
	copy(kp.Secret[:], priv)
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// KeyPairRandom generates a key pair from a fresh random seed.
func KeyPairRandom() (KeyPair, error) {
	var seed Seed
	if _, err := rand.Read(seed[:]); err != nil {
		return KeyPair{}, err
	}
	return KeyPairFromSeed(seed), nil
}

// SignBytes signs a raw byte message. Callers are responsible for domain
// separation if the message isn't already a Hashable.
func SignBytes(secret SecretKey, message []byte) Signature {
	sig := ed25519.Sign(ed25519.PrivateKey(secret[:]), message)
	var out Signature
	copy(out[:], sig)
	return out
}

// Sign signs a Hashable value by feeding its domain-tagged representation
// directly to Ed25519 (no extra hashing pass, since Ed25519 already hashes
// internally).
func Sign(secret SecretKey, message Hashable) Signature {
	return SignBytes(secret, HashRep(message))
}

// VerifyBytes verifies a signature over a raw message. It never panics and
// never returns an error: an invalid signature simply verifies to false.
//
// Verification runs through ed25519consensus rather than the stdlib
// verifier because ed25519consensus enforces the stricter (S, R) canonical
// checks that make signature validity consensus-safe across nodes; the
// stdlib verifier accepts a handful of malleable signatures that could
// otherwise let a byzantine proposer produce a block two honest nodes
// disagree about.
func VerifyBytes(public PublicKey, message []byte, sig Signature) bool {
	ok := ed25519consensus.Verify(public[:], message, sig[:])
	metrics.SignatureVerifications.WithLabelValues(verificationOutcome(ok)).Inc()
	return ok
}

func verificationOutcome(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

// Verify verifies a signature over a Hashable value.
func Verify(public PublicKey, message Hashable, sig Signature) bool {
	return VerifyBytes(public, HashRep(message), sig)
}

// Blank reports whether s is the all-zero signature.
func (s Signature) Blank() bool {
	return s == Signature{}
}

// Destroy zeroes the secret key's backing bytes. Call this when a key pair
// is no longer needed.
func (k *KeyPair) Destroy() {
	for i := range k.Secret {
		k.Secret[i] = 0
	}
}
