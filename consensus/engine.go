// Package consensus bridges the ledger and network layers to an embedded
// federated-agreement engine, treated here as an out-of-scope external
// collaborator: it exposes envelope exchange and externalization callbacks,
// and this package is the only place that talks to it.
package consensus

import (
	"context"

	"github.com/rheehot/agora/crypto"
)

// QuorumSlice is a federated-agreement quorum slice: the set of validators
// whose agreement this node accepts, and how many of them must concur.
type QuorumSlice struct {
	Validators []crypto.PublicKey
	Threshold  int
}

// Engine is the opaque federated-agreement engine's interface as consumed
// by the driver. A concrete engine (Stellar-SCP-shaped) is assumed to be
// supplied by the embedding application; the driver only needs to push its
// quorum set, hand it candidate value hashes to nominate, feed it envelopes
// received from peers, and be told when a round externalizes.
type Engine interface {
	// SetQuorumSlice installs this node's quorum slice, normalized and
	// sanity-checked by the engine itself.
	SetQuorumSlice(qs QuorumSlice) error

	// Nominate proposes valueHash as a candidate for round.
	Nominate(ctx context.Context, round uint64, valueHash crypto.Hash) error

	// ReceiveEnvelope feeds an opaque envelope received from a peer into
	// the engine's state machine.
	ReceiveEnvelope(ctx context.Context, envelope []byte) error

	// Envelopes returns a channel of outbound envelopes the engine wants
	// broadcast to every quorum-slice peer.
	Envelopes() <-chan []byte

	// Externalized returns a channel of externalization events: the
	// engine's commit event for a proposed round.
	Externalized() <-chan ExternalizeEvent
}

// ExternalizeEvent reports that round has committed to valueHash.
type ExternalizeEvent struct {
	Round     uint64
	ValueHash crypto.Hash
}
