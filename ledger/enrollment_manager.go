package ledger

import (
	"fmt"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/crypto"
)

// ValidatorEntry is one active (or recently expired) enrollment: the tuple
// (enrolled_at_height, cycle_length, random_seed, pre_image_chain).
// SecretSeed is only ever populated for enrollments this node itself
// created — it is the private root of the pre-image chain, never published,
// and lets RevealPreimage answer without a peer's help.
type ValidatorEntry struct {
	UTXOKey          chain.UTXOKey
	Owner            crypto.PublicKey
	EnrolledAtHeight uint64
	CycleLength      uint32
	CommittedHead    crypto.Hash
	SecretSeed       *crypto.Hash
	Enrollment       chain.Enrollment
}

// expiresAt is the first height at which this entry no longer counts toward
// the active validator set.
func (e *ValidatorEntry) expiresAt() uint64 {
	return e.EnrolledAtHeight + uint64(e.CycleLength)
}

// EnrollmentManager holds the active validator table, keyed by utxo_key.
// It performs no I/O and holds no lock of its own — like the UTXO set, it
// is owned exclusively by the Ledger, which serializes access.
type EnrollmentManager struct {
	entries map[chain.UTXOKey]*ValidatorEntry
}

// NewEnrollmentManager returns an empty manager.
func NewEnrollmentManager() *EnrollmentManager {
	return &EnrollmentManager{entries: make(map[chain.UTXOKey]*ValidatorEntry)}
}

// Accept records a validated enrollment as active from atHeight.
func (m *EnrollmentManager) Accept(en chain.Enrollment, owner crypto.PublicKey, atHeight uint64) {
	m.entries[en.UTXOKey] = &ValidatorEntry{
		UTXOKey:          en.UTXOKey,
		Owner:            owner,
		EnrolledAtHeight: atHeight,
		CycleLength:      en.CycleLength,
		CommittedHead:    en.RandomSeed,
		Enrollment:       en,
	}
}

// AcceptLocal is like Accept but additionally retains the local node's
// private pre-image chain root, so RevealPreimage can answer for this
// enrollment later. Call it instead of Accept when this node is the
// enroller.
func (m *EnrollmentManager) AcceptLocal(en chain.Enrollment, owner crypto.PublicKey, atHeight uint64, secretSeed crypto.Hash) {
	m.Accept(en, owner, atHeight)
	m.entries[en.UTXOKey].SecretSeed = &secretSeed
}

// Find returns the entry for a utxo_key, if any.
func (m *EnrollmentManager) Find(key chain.UTXOKey) (*ValidatorEntry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

// ValidatorCount reports how many entries are still active at height, per
// entries with enrolled_at + cycle_length > height. Expired
// entries are not physically removed — the count is a live filter — so a
// re-enrollment referencing the same key before the old one's data is
// pruned behaves predictably.
func (m *EnrollmentManager) ValidatorCount(height uint64) int {
	n := 0
	for _, e := range m.entries {
		if e.expiresAt() > height {
			n++
		}
	}
	return n
}

// ActiveAt returns every entry active at height.
func (m *EnrollmentManager) ActiveAt(height uint64) []*ValidatorEntry {
	var out []*ValidatorEntry
	for _, e := range m.entries {
		if e.expiresAt() > height {
			out = append(out, e)
		}
	}
	return out
}

// Prune drops entries no longer active at height (enrolled_at +
// cycle_length <= height), bounding the
// table's size. Safe to call any time; ValidatorCount is correct with or
// without pruning since it filters live.
func (m *EnrollmentManager) Prune(height uint64) {
	for k, e := range m.entries {
		if e.expiresAt() <= height {
			delete(m.entries, k)
		}
	}
}

// RevealPreimage computes the pre-image this node should reveal at height
// for its own enrollment key: it reveals h_{cycle_length-1-k} at height
// enrolled_at + k.
func (m *EnrollmentManager) RevealPreimage(key chain.UTXOKey, height uint64) (crypto.Hash, error) {
	e, ok := m.entries[key]
	if !ok {
		return crypto.Hash{}, fmt.Errorf("ledger: no enrollment for utxo_key %s", key)
	}
	if e.SecretSeed == nil {
		return crypto.Hash{}, fmt.Errorf("ledger: utxo_key %s is not a local enrollment", key)
	}
	if height < e.EnrolledAtHeight {
		return crypto.Hash{}, fmt.Errorf("ledger: height %d precedes enrollment at %d", height, e.EnrolledAtHeight)
	}
	k := height - e.EnrolledAtHeight
	if k >= uint64(e.CycleLength) {
		return crypto.Hash{}, fmt.Errorf("ledger: utxo_key %s expired before height %d", key, height)
	}
	chainOfHashes := chain.PreimageChain(*e.SecretSeed, e.CycleLength)
	return chainOfHashes[uint64(e.CycleLength)-1-k], nil
}

// VerifyRevealed checks a preimage a peer claims to reveal at height for
// key, against the committed head from that key's enrollment. A slashable
// fault elsewhere in the system is simply a rejected reveal here.
func (m *EnrollmentManager) VerifyRevealed(key chain.UTXOKey, preimage crypto.Hash, height uint64) bool {
	e, ok := m.entries[key]
	if !ok || height < e.EnrolledAtHeight {
		return false
	}
	steps := height - e.EnrolledAtHeight
	if steps >= uint64(e.CycleLength) {
		return false
	}
	return chain.VerifyPreimage(preimage, uint32(steps), e.CommittedHead)
}
