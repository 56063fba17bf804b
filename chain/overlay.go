package chain

import "github.com/rheehot/agora/crypto"

// Overlay models in-block spends over a base UTXOSet without mutating it:
// one transaction may spend another's output if it appears later in the
// sorted block, and the whole overlay is discarded on rejection.
type Overlay struct {
	base    *UTXOSet
	added   map[UTXOKey]UTXOValue
	removed map[UTXOKey]struct{}
}

// NewOverlay returns a scratch overlay backed by base.
func NewOverlay(base *UTXOSet) *Overlay {
	return &Overlay{
		base:    base,
		added:   make(map[UTXOKey]UTXOValue),
		removed: make(map[UTXOKey]struct{}),
	}
}

// Find resolves a key through the overlay first, then the base set. A key
// marked removed in this overlay is treated as absent even if it is still
// live in the base set.
func (o *Overlay) Find(key UTXOKey) (UTXOValue, bool) {
	if _, gone := o.removed[key]; gone {
		return UTXOValue{}, false
	}
	if v, ok := o.added[key]; ok {
		return v, true
	}
	return o.base.Find(key)
}

// Consume marks a key spent within this overlay.
func (o *Overlay) Consume(key UTXOKey) {
	delete(o.added, key)
	o.removed[key] = struct{}{}
}

// Put stages one UTXO per output of tx within this overlay, visible to Find
// but not yet committed to the base set.
func (o *Overlay) Put(txHash crypto.Hash, tx Transaction, currentHeight uint64, isGenesis bool, paymentDelay, freezeDelay uint64) {
	scratch := NewUTXOSet()
	scratch.Put(txHash, tx, currentHeight, isGenesis, paymentDelay, freezeDelay)
	for k, v := range scratch.entries {
		o.added[k] = v
	}
}

// Commit applies every staged add and removal to the base set atomically
// from the caller's point of view (no partial state is ever observable
// through Find on the base set alone during Commit, since map writes here
// are synchronous and the ledger already serializes callers).
func (o *Overlay) Commit() {
	for k, v := range o.added {
		o.base.putRaw(k, v)
	}
	for k := range o.removed {
		o.base.Consume(k)
	}
}
