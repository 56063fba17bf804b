package ledger

import (
	"github.com/algorand/go-deadlock"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/crypto"
)

// Pool holds pending, pool-validated transactions in arrival order.
// Transactions enter the pool in arrival order but are consumed in
// hash-sorted order at block time. It is safe for concurrent
// use directly (unlike UTXOSet/EnrollmentManager) because the network
// layer's put_transaction handlers may call Add from multiple peer tasks
// even in a single-threaded-cooperative deployment reinterpreted as
// goroutines.
type Pool struct {
	mu     deadlock.Mutex
	byHash map[crypto.Hash]chain.Transaction
	order  []crypto.Hash
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{byHash: make(map[crypto.Hash]chain.Transaction)}
}

// Contains reports whether a transaction hash is already pooled.
func (p *Pool) Contains(hash crypto.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byHash[hash]
	return ok
}

// Add appends a transaction to the pool if it isn't already present. It
// reports whether the transaction was newly added.
func (p *Pool) Add(tx chain.Transaction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	hash := tx.Hash()
	if _, ok := p.byHash[hash]; ok {
		return false
	}
	p.byHash[hash] = tx
	p.order = append(p.order, hash)
	return true
}

// Remove evicts a transaction, used once its hash is included in an
// externalized block or once it's found to double-spend against the new
// chain tip.
func (p *Pool) Remove(hash crypto.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byHash[hash]; !ok {
		return
	}
	delete(p.byHash, hash)
	for i, h := range p.order {
		if h.Equal(hash) {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// PendingInArrivalOrder returns a snapshot of pooled transactions in the
// order they were added.
func (p *Pool) PendingInArrivalOrder() []chain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]chain.Transaction, len(p.order))
	for i, h := range p.order {
		out[i] = p.byHash[h]
	}
	return out
}

// Len reports how many transactions are pooled.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// EvictIncluded removes every transaction in txs from the pool, called
// after a block externalizes.
func (p *Pool) EvictIncluded(txs []chain.Transaction) {
	for _, tx := range txs {
		p.Remove(tx.Hash())
	}
}

// EvictNowInvalid removes every remaining pooled transaction for which
// isValid reports false, called after a block externalizes to drop
// transactions double-spent by a transaction in that block (or one whose
// inputs are no longer mature at the new chain tip).
func (p *Pool) EvictNowInvalid(isValid func(chain.Transaction) bool) {
	p.mu.Lock()
	var stale []crypto.Hash
	for _, h := range p.order {
		if !isValid(p.byHash[h]) {
			stale = append(stale, h)
		}
	}
	p.mu.Unlock()

	for _, h := range stale {
		p.Remove(h)
	}
}
