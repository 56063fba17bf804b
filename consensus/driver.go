package consensus

import (
	"context"
	"fmt"
	"sync"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
	"github.com/rheehot/agora/ledger"
	"github.com/rheehot/agora/logging"
)

// Broadcaster gossips a produced envelope or a newly externalized block to
// the rest of the quorum. The driver owns no peer clients directly, per
// the cyclic-reference note: it calls out through this narrow
// interface instead of holding the network layer.
type Broadcaster interface {
	BroadcastEnvelope(envelope []byte)
	BroadcastBlock(block chain.Block)
}

// Driver bridges the ledger and an Engine implementing federated agreement:
// it derives this node's quorum slice, translates candidate blocks to
// nomination hashes and back, and applies externalized blocks to the
// ledger. It never blocks the engine's own goroutines; it drains
// Envelopes()/Externalized() on its own loop.
type Driver struct {
	mu sync.Mutex

	engine    Engine
	ledger    *ledger.Ledger
	broadcast Broadcaster
	params    config.ConsensusParams
	log       logging.Logger

	self       chain.Enrollment
	kp         crypto.KeyPair
	candidates map[crypto.Hash]chain.Block
	nextRound  uint64
	cancelLoop context.CancelFunc
}

// NewDriver builds a driver over engine, wired to l for reading pending
// transactions and applying externalized blocks, and broadcast for gossip.
func NewDriver(engine Engine, l *ledger.Ledger, broadcast Broadcaster, kp crypto.KeyPair, params config.ConsensusParams) *Driver {
	return &Driver{
		engine:     engine,
		ledger:     l,
		broadcast:  broadcast,
		params:     params,
		kp:         kp,
		candidates: make(map[crypto.Hash]chain.Block),
		nextRound:  l.GetBlockHeight() + 1,
		log:        logging.Base().With(logging.Fields{"component": "consensus.driver"}),
	}
}

// SetLogger overrides the driver's logger, used by tests that need to
// substitute a Logger whose exit function doesn't call os.Exit before
// exercising a fatal invariant path.
func (d *Driver) SetLogger(log logging.Logger) {
	d.log = log
}

// RefreshQuorumSlice recomputes and installs the quorum slice from the
// ledger's current active enrollment set.
func (d *Driver) RefreshQuorumSlice(validators []crypto.PublicKey) error {
	qs := DeriveQuorumSlice(validators, d.params)
	if err := d.engine.SetQuorumSlice(qs); err != nil {
		return fmt.Errorf("consensus: set quorum slice: %w", err)
	}
	return nil
}

// ProposeCandidate assembles a candidate block from the current pool plus
// any enrollments known to be ready, and nominates its hash for the next
// round. The concrete block is retained locally so applyExternalized can
// recover it purely from the hash the engine externalizes.
func (d *Driver) ProposeCandidate(ctx context.Context, enrollments []chain.Enrollment) error {
	d.mu.Lock()
	txs := d.ledger.PendingTransactions()
	tip := d.ledger.Tip()
	round := d.nextRound
	d.mu.Unlock()

	if uint32(len(txs)) < d.params.TxsInBlock {
		return fmt.Errorf("consensus: not enough pending transactions for round %d: have %d, need %d", round, len(txs), d.params.TxsInBlock)
	}
	txs = txs[:d.params.TxsInBlock]

	block := chain.MakeNewBlock(tip, txs, enrollments)
	hash := block.Hash()

	d.mu.Lock()
	d.candidates[hash] = block
	d.mu.Unlock()

	if err := d.engine.Nominate(ctx, round, hash); err != nil {
		return fmt.Errorf("consensus: nominate round %d: %w", round, err)
	}
	return nil
}

// Run drains the engine's envelope and externalization channels until ctx
// is cancelled. It is meant to run on its own goroutine; every ledger
// mutation it triggers goes through Ledger.AcceptBlock, which is itself
// single-writer serialized, so Run never needs its own lock around that
// call.
func (d *Driver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-d.engine.Envelopes():
			if !ok {
				return
			}
			d.broadcast.BroadcastEnvelope(envelope)
		case ev, ok := <-d.engine.Externalized():
			if !ok {
				return
			}
			d.applyExternalized(ev)
		}
	}
}

// ReceiveEnvelope feeds an envelope arriving from a peer into the engine.
func (d *Driver) ReceiveEnvelope(ctx context.Context, envelope []byte) error {
	return d.engine.ReceiveEnvelope(ctx, envelope)
}

// applyExternalized resolves ev.ValueHash against the locally-retained
// candidate set and appends the winning block to the ledger; the concrete
// block comes from that set, not from the transaction pool.
//
// A validator that externalized a round for a block it cannot resolve, or
// whose ledger append then fails, has violated its own invariant and must
// halt rather than keep processing further rounds against a ledger it can
// no longer trust; both paths call Fatalf, which terminates the process
// after logging.
func (d *Driver) applyExternalized(ev ExternalizeEvent) {
	d.mu.Lock()
	block, ok := d.candidates[ev.ValueHash]
	d.candidates = make(map[crypto.Hash]chain.Block)
	d.mu.Unlock()

	if !ok {
		d.log.Fatalf("round %d externalized unknown block %s", ev.Round, ev.ValueHash)
		return
	}

	if err := d.ledger.AcceptBlock(block); err != nil {
		d.log.Fatalf("round %d failed to accept externalized block: %v", ev.Round, err)
		return
	}

	d.mu.Lock()
	d.nextRound = ev.Round + 1
	d.mu.Unlock()

	d.broadcast.BroadcastBlock(block)
}
