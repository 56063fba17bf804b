package network

import (
	"context"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/crypto"
)

// NodeInfo is the reply to get_node_info: enough for a peer to decide
// whether it's worth syncing further with this node.
type NodeInfo struct {
	PublicKey      crypto.PublicKey
	BlockHeight    uint64
	ValidatorCount int
}

// PeerAPI is the set of RPC methods a remote peer exposes. Every method
// takes a context so a slow peer can be cancelled from
// outside attempt_request's own retry loop.
type PeerAPI interface {
	GetPublicKey(ctx context.Context) (crypto.PublicKey, error)
	GetNodeInfo(ctx context.Context) (NodeInfo, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	GetBlocksFrom(ctx context.Context, start uint64, max int) ([]chain.Block, error)
	PutTransaction(ctx context.Context, tx chain.Transaction) error
	HasTransactionHash(ctx context.Context, hash crypto.Hash) (bool, error)
	EnrollValidator(ctx context.Context, en chain.Enrollment) error
	GetEnrollment(ctx context.Context, key chain.UTXOKey) (chain.Enrollment, bool, error)
	ReceivePreimage(ctx context.Context, key chain.UTXOKey, preimage crypto.Hash, height uint64) error
	ReceiveEnvelope(ctx context.Context, envelope []byte) error
	RegisterListener(ctx context.Context, listenerAddr string) error
}

// Handler is implemented by whatever local component answers these RPCs on
// behalf of this node — normally the ledger plus the consensus driver. The
// stream server dispatches into a Handler; PeerAPI is the client-side view
// of the exact same method set.
type Handler interface {
	PeerAPI
}

// blocksFromRequest/blocksFromResponse and similar wire structs are the
// canonical-serialized argument/return pairs for each RPC method beyond a
// single scalar, encoded with codec.Marshal on the wire.
type blocksFromRequest struct {
	Start uint64
	Max   int
}

type preimageRequest struct {
	UTXOKey  chain.UTXOKey
	Preimage crypto.Hash
	Height   uint64
}

type enrollmentQuery struct {
	UTXOKey chain.UTXOKey
}

type enrollmentReply struct {
	Enrollment chain.Enrollment
	Found      bool
}

type registerListenerRequest struct {
	ListenerAddr string
}
