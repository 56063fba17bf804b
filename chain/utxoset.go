package chain

import "github.com/rheehot/agora/crypto"

// UTXOSet is the mapping UTXOKey → UTXOValue. It carries no internal
// locking: the UTXO set is owned exclusively by the ledger, which
// serializes all access.
type UTXOSet struct {
	entries map[UTXOKey]UTXOValue
}

// NewUTXOSet returns an empty set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{entries: make(map[UTXOKey]UTXOValue)}
}

// Find looks up a UTXO by key.
func (s *UTXOSet) Find(key UTXOKey) (UTXOValue, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Consume removes a UTXO, modelling a spend.
func (s *UTXOSet) Consume(key UTXOKey) {
	delete(s.entries, key)
}

// putRaw inserts a single key/value pair directly, used both by Put and by
// Overlay.Commit, which writes already-computed UTXO values.
func (s *UTXOSet) putRaw(key UTXOKey, value UTXOValue) {
	s.entries[key] = value
}

// Put inserts one UTXO per output of tx, keyed by hash(tx_hash, index).
// unlock_height follows current_height+PaymentMaturityDelay
// for Payment outputs, current_height+FreezeMaturityDelay for Freeze
// outputs, or 0 uniformly when isGenesis is set.
func (s *UTXOSet) Put(txHash crypto.Hash, tx Transaction, currentHeight uint64, isGenesis bool, paymentDelay, freezeDelay uint64) {
	for i, out := range tx.Outputs {
		key := MakeUTXOKey(txHash, uint32(i))
		var unlock uint64
		switch {
		case isGenesis:
			unlock = 0
		case tx.Type == Freeze:
			unlock = currentHeight + freezeDelay
		default:
			unlock = currentHeight + paymentDelay
		}
		s.putRaw(key, UTXOValue{UnlockHeight: unlock, Type: tx.Type, Output: out})
	}
}

// UTXOEntry pairs a key with its value, returned by UTXOsFor.
type UTXOEntry struct {
	Key   UTXOKey
	Value UTXOValue
}

// UTXOsFor iterates the UTXOs whose output pays pub. Used by the enrollment
// manager to find freeze outputs a node can enroll against.
func (s *UTXOSet) UTXOsFor(pub crypto.PublicKey) []UTXOEntry {
	var out []UTXOEntry
	for k, v := range s.entries {
		if v.Output.Destination == pub {
			out = append(out, UTXOEntry{Key: k, Value: v})
		}
	}
	return out
}

// Len reports the number of live UTXOs, for tests and metrics.
func (s *UTXOSet) Len() int {
	return len(s.entries)
}
