// Package crypto provides the cryptographic primitives used throughout the
// system: a content-addressed hash, Ed25519 key pairs and detached
// signatures, Schnorr signatures over Curve25519, and Stellar-style base32
// address encoding.
//
// The hash sponge is BLAKE3 (lukechampine.com/blake3) rather than a SHA-2
// variant: it is a genuine sponge construction with a native 64-byte output
// mode, so Hash and HashObj need no truncation or double-hashing, and it is
// the fastest option available in the example pack for the volume of
// transactions and blocks a validator hashes per round.
package crypto

import (
	"bytes"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashSize is the fixed width of a hash produced by this package.
const HashSize = 64

// Hash is a fixed 64-byte opaque content-addressed value. Equality is
// bytewise.
type Hash [HashSize]byte

// String renders the hash as lowercase hex, for logs and error messages.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash, used as the
// prev_block_hash sentinel for genesis.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Equal reports bytewise equality.
func (h Hash) Equal(o Hash) bool {
	return bytes.Equal(h[:], o[:])
}

// Less provides a strict total order over hashes, used to sort transactions
// and enrollments invariants.
func (h Hash) Less(o Hash) bool {
	return bytes.Compare(h[:], o[:]) < 0
}

// HashID is a short domain-separation prefix mixed into a hash's input so
// that, for example, a Transaction and a BlockHeader can never collide even
// if their serialized bytes happened to coincide.
type HashID string

// Hash IDs for every hashable domain type, kept in lexicographic order to
// avoid accidental duplicates.
const (
	HashIDBlockHeader  HashID = "BH"
	HashIDEnrollment   HashID = "EN"
	HashIDMerkleNode   HashID = "MK"
	HashIDPreimage     HashID = "PI"
	HashIDTransaction  HashID = "TX"
	HashIDUTXOKey      HashID = "UK"
)

// Hashable is implemented by any value that can be content-addressed: it
// reports its domain-separation tag and the canonical bytes to hash.
type Hashable interface {
	ToBeHashed() (HashID, []byte)
}

// HashRep returns the exact bytes fed to the hash function for a Hashable:
// its domain tag followed by its canonical encoding.
func HashRep(h Hashable) []byte {
	id, data := h.ToBeHashed()
	rep := make([]byte, 0, len(id)+len(data))
	rep = append(rep, id...)
	return append(rep, data...)
}

// HashBytes hashes an arbitrary byte string with BLAKE3's 64-byte output
// mode. Used internally by HashObj and by callers that already have a
// canonical encoding in hand (e.g. Merkle tree construction).
func HashBytes(b []byte) Hash {
	var out Hash
	h := blake3.New(HashSize, nil)
	h.Write(b)
	copy(out[:], h.Sum(nil))
	return out
}

// HashObj computes the content-addressed hash of a Hashable value.
func HashObj(h Hashable) Hash {
	return HashBytes(HashRep(h))
}
