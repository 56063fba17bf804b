package ledger

import (
	"fmt"

	"github.com/algorand/go-deadlock"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
	"github.com/rheehot/agora/logging"
	"github.com/rheehot/agora/metrics"
)

// Ledger owns the block chain, UTXO set, transaction pool, and enrollment
// state. It is the single writer: appendMu serializes accept_block calls,
// so no two blocks are ever applied concurrently.
type Ledger struct {
	appendMu deadlock.Mutex

	params config.ConsensusParams
	store  BlockStore
	utxos  *chain.UTXOSet
	pool   *Pool
	enroll *EnrollmentManager
	log    logging.Logger

	tip                chain.Block
	pendingEnrollments map[chain.UTXOKey]chain.Enrollment
}

// NewLedger creates a ledger rooted at genesis, which must already pass
// IsGenesisInvalidReason. It replays genesis into the UTXO set and
// enrollment manager immediately.
func NewLedger(genesis chain.Block, store BlockStore, params config.ConsensusParams) (*Ledger, error) {
	if reason := IsGenesisInvalidReason(genesis, params); reason != "" {
		return nil, newErr(KindProtocolViolation, "genesis block invalid: %s", reason)
	}

	l := &Ledger{
		params:             params,
		store:              store,
		utxos:              chain.NewUTXOSet(),
		pool:               NewPool(),
		enroll:             NewEnrollmentManager(),
		log:                logging.Base().With(logging.Fields{"component": "ledger"}),
		tip:                genesis,
		pendingEnrollments: make(map[chain.UTXOKey]chain.Enrollment),
	}
	if err := store.Append(genesis); err != nil {
		return nil, fmt.Errorf("ledger: append genesis: %w", err)
	}
	l.applyAccepted(genesis)
	return l, nil
}

// GetBlockHeight returns the height of the most recently accepted block.
func (l *Ledger) GetBlockHeight() uint64 {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	return l.tip.Header.Height
}

// GetBlocksFrom returns up to max blocks starting at height start.
func (l *Ledger) GetBlocksFrom(start uint64, max int) ([]chain.Block, error) {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	var out []chain.Block
	for h := start; h <= l.tip.Header.Height && len(out) < max; h++ {
		b, ok, err := l.store.Get(h)
		if err != nil {
			return nil, fmt.Errorf("ledger: get block %d: %w", h, err)
		}
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out, nil
}

// PutTransaction validates tx against the current UTXO set plus the pool's
// implicit overlay and adds it to the pool. The overlay marks every output
// already spent by a pooled transaction as consumed, so a transaction that
// spends the same output as a pooled one is rejected. The pool itself
// doesn't chain transactions together: outputs created by pooled
// transactions are not spendable until their block is accepted.
func (l *Ledger) PutTransaction(tx chain.Transaction) error {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	if l.pool.Contains(tx.Hash()) {
		return TransactionInLedgerError{TxHash: tx.Hash()}
	}
	overlay := chain.NewOverlay(l.utxos)
	for _, pooled := range l.pool.PendingInArrivalOrder() {
		for _, in := range pooled.Inputs {
			overlay.Consume(chain.MakeUTXOKey(in.PrevTxHash, in.OutputIndex))
		}
	}
	bv := crypto.MakeBatchVerifier()
	if reason, _ := validateTransaction(tx, l.tip.Header.Height+1, overlay, l.params, bv); reason != "" {
		return newErr(KindProtocolViolation, "%s", reason)
	}
	if !bv.Verify() {
		return newErr(KindProtocolViolation, "a signature does not authenticate its spend")
	}
	l.pool.Add(tx)
	metrics.PoolSize.Set(float64(l.pool.Len()))
	metrics.TransactionsAccepted.Inc()
	return nil
}

// PutEnrollment validates en against the current UTXO set and stages it
// for inclusion in the next candidate block a driver assembles.
func (l *Ledger) PutEnrollment(en chain.Enrollment) error {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	if _, ok := l.pendingEnrollments[en.UTXOKey]; ok {
		return nil
	}
	overlay := chain.NewOverlay(l.utxos)
	if reason := validateEnrollment(en, overlay, l.params); reason != "" {
		return newErr(KindProtocolViolation, "%s", reason)
	}
	l.pendingEnrollments[en.UTXOKey] = en
	return nil
}

// PendingEnrollments returns a snapshot of staged enrollments, used by the
// consensus driver to assemble a candidate block alongside pending
// transactions.
func (l *Ledger) PendingEnrollments() []chain.Enrollment {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	out := make([]chain.Enrollment, 0, len(l.pendingEnrollments))
	for _, en := range l.pendingEnrollments {
		out = append(out, en)
	}
	return out
}

// AcceptBlock re-validates and appends an externalized block: it
// (a) re-validates, (b) applies the UTXO delta atomically, (c) updates the
// enrollment manager, and (d) evicts included and now-invalid transactions
// from the pool.
func (l *Ledger) AcceptBlock(block chain.Block) error {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	if block.Header.Height != l.tip.Header.Height+1 {
		return BlockInLedgerError{LastHeight: l.tip.Header.Height, NextHeight: block.Header.Height}
	}
	if reason := IsInvalidReason(block, l.tip.Header.Height, l.tip.Header.Hash(), l.utxos, l.enroll.ValidatorCount(l.tip.Header.Height+1), l.params); reason != "" {
		return newErr(KindProtocolViolation, "%s", reason)
	}
	if err := l.store.Append(block); err != nil {
		// The ledger already voted to externalize this block; failing to
		// persist it now leaves this node unable to agree with peers about
		// its own chain tip, a fatal condition.
		l.log.Errorf("failed to append externalized block %d: %v", block.Header.Height, err)
		return Fatal{Reason: fmt.Sprintf("append block %d: %v", block.Header.Height, err)}
	}
	l.applyAccepted(block)
	metrics.BlocksAccepted.Inc()
	return nil
}

// applyAccepted commits a block's UTXO delta, enrollment updates, and pool
// eviction. Called only for blocks that already passed validation
// (including genesis, which uses its own predicate).
func (l *Ledger) applyAccepted(block chain.Block) {
	isGenesis := block.Header.Height == 0
	overlay := chain.NewOverlay(l.utxos)
	for _, tx := range block.Txs {
		for _, in := range tx.Inputs {
			overlay.Consume(chain.MakeUTXOKey(in.PrevTxHash, in.OutputIndex))
		}
		overlay.Put(tx.Hash(), tx, block.Header.Height, isGenesis, uint64(l.params.PaymentMaturityDelay), uint64(l.params.FreezeMaturityDelay))
	}
	overlay.Commit()

	for _, en := range block.Header.Enrollments {
		utxo, ok := l.utxos.Find(en.UTXOKey)
		owner := crypto.PublicKey{}
		if ok {
			owner = utxo.Output.Destination
		}
		l.enroll.Accept(en, owner, block.Header.Height)
		delete(l.pendingEnrollments, en.UTXOKey)
	}
	l.enroll.Prune(block.Header.Height)
	metrics.ValidatorCount.Set(float64(l.enroll.ValidatorCount(block.Header.Height)))

	l.pool.EvictIncluded(block.Txs)
	l.pool.EvictNowInvalid(func(tx chain.Transaction) bool {
		for _, in := range tx.Inputs {
			utxo, ok := l.utxos.Find(chain.MakeUTXOKey(in.PrevTxHash, in.OutputIndex))
			if !ok || !utxo.IsMature(block.Header.Height) {
				return false
			}
		}
		return true
	})
	l.tip = block
}

// ValidatorCount reports the active validator count at the ledger's current
// height, used by the consensus driver for quorum derivation.
func (l *Ledger) ValidatorCount() int {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	return l.enroll.ValidatorCount(l.tip.Header.Height)
}

// EnrollmentManager exposes the manager for the consensus driver to build
// enrollments against (e.g. AcceptLocal for a self-owned enrollment before
// it's externalized). Callers must not mutate it concurrently with
// AcceptBlock; in practice this is only ever called from the same
// single-writer path.
func (l *Ledger) EnrollmentManager() *EnrollmentManager {
	return l.enroll
}

// UTXOsFor iterates UTXOs owned by pub, used when preparing an enrollment.
func (l *Ledger) UTXOsFor(pub crypto.PublicKey) []chain.UTXOEntry {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	return l.utxos.UTXOsFor(pub)
}

// PendingTransactions returns a snapshot of the pool in arrival order, used
// by the consensus driver to assemble a candidate block.
func (l *Ledger) PendingTransactions() []chain.Transaction {
	return l.pool.PendingInArrivalOrder()
}

// HasTransaction reports whether hash is currently pooled, answering the
// has_transaction_hash RPC without exposing the pool itself.
func (l *Ledger) HasTransaction(hash crypto.Hash) bool {
	return l.pool.Contains(hash)
}

// Tip returns the most recently accepted block.
func (l *Ledger) Tip() chain.Block {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	return l.tip
}
