package network

import (
	"context"
	"testing"
	"time"

	libp2pnetwork "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
)

// fakeHost records every protocol a Server registers, without opening any
// real transport, so RegisterProtocols can be checked in isolation.
type fakeHost struct {
	registered map[protocol.ID]libp2pnetwork.StreamHandler
}

func newFakeHost() *fakeHost {
	return &fakeHost{registered: make(map[protocol.ID]libp2pnetwork.StreamHandler)}
}

func (h *fakeHost) SetStreamHandler(pid protocol.ID, handler libp2pnetwork.StreamHandler) {
	h.registered[pid] = handler
}

// stubHandler answers every PeerAPI method with a fixed value, enough to
// drive the server/client wire path without a real ledger behind it.
type stubHandler struct {
	pub crypto.PublicKey
}

func (h stubHandler) GetPublicKey(ctx context.Context) (crypto.PublicKey, error) { return h.pub, nil }
func (h stubHandler) GetNodeInfo(ctx context.Context) (NodeInfo, error) {
	return NodeInfo{PublicKey: h.pub, BlockHeight: 7, ValidatorCount: 3}, nil
}
func (h stubHandler) GetBlockHeight(ctx context.Context) (uint64, error) { return 7, nil }
func (h stubHandler) GetBlocksFrom(ctx context.Context, start uint64, max int) ([]chain.Block, error) {
	return nil, nil
}
func (h stubHandler) PutTransaction(ctx context.Context, tx chain.Transaction) error { return nil }
func (h stubHandler) HasTransactionHash(ctx context.Context, hash crypto.Hash) (bool, error) {
	return true, nil
}
func (h stubHandler) EnrollValidator(ctx context.Context, en chain.Enrollment) error { return nil }
func (h stubHandler) GetEnrollment(ctx context.Context, key chain.UTXOKey) (chain.Enrollment, bool, error) {
	return chain.Enrollment{}, false, nil
}
func (h stubHandler) ReceivePreimage(ctx context.Context, key chain.UTXOKey, preimage crypto.Hash, height uint64) error {
	return nil
}
func (h stubHandler) ReceiveEnvelope(ctx context.Context, envelope []byte) error { return nil }
func (h stubHandler) RegisterListener(ctx context.Context, listenerAddr string) error {
	return nil
}

func TestServerRegistersEveryProtocol(t *testing.T) {
	h := newFakeHost()
	s := NewServer(h, stubHandler{}, config.Network)
	s.RegisterProtocols()

	want := []protocol.ID{
		protoGetPublicKey, protoGetNodeInfo, protoGetBlockHeight, protoGetBlocksFrom,
		protoPutTransaction, protoHasTransactionHash, protoEnrollValidator, protoGetEnrollment,
		protoReceivePreimage, protoReceiveEnvelope, protoRegisterListener,
	}
	require.Len(t, h.registered, len(want))
	for _, pid := range want {
		require.Contains(t, h.registered, pid)
	}
}

func TestAllowEnforcesPerPeerRateLimit(t *testing.T) {
	h := newFakeHost()
	params := config.Network
	params.RPCRateLimitMax = 1
	params.RPCRateLimitWindow = time.Minute
	s := NewServer(h, stubHandler{}, params)

	require.True(t, s.limiter.Allow("peer-a", "put_transaction"))
	require.False(t, s.limiter.Allow("peer-a", "put_transaction"))
	require.True(t, s.limiter.Allow("peer-b", "put_transaction"), "a different peer has its own budget")
}

// connectedHostPair returns two real libp2p hosts, dialed to each other, so
// Server and RemotePeer can be exercised end to end over an actual stream.
func connectedHostPair(t *testing.T) (server, client hostHandle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverHost, err := NewHost(ctx, HostConfig{ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverHost.Close() })

	clientHost, err := NewHost(ctx, HostConfig{ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientHost.Close() })

	require.NoError(t, clientHost.Connect(ctx, peer.AddrInfo{ID: serverHost.ID(), Addrs: serverHost.Addrs()}))
	return serverHost, clientHost
}

// hostHandle is the subset of host.Host these round-trip tests need.
type hostHandle interface {
	libp2pHost
	libp2pStreamOpener
	ID() peer.ID
}

func TestServerAndRemotePeerRoundTrip(t *testing.T) {
	serverHost, clientHost := connectedHostPair(t)

	kp, err := crypto.KeyPairRandom()
	require.NoError(t, err)
	handler := stubHandler{pub: kp.Public}

	srv := NewServer(serverHost, handler, config.Network)
	srv.RegisterProtocols()

	remote := NewRemotePeer(clientHost, serverHost.ID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub, err := remote.GetPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, handler.pub, pub)

	info, err := remote.GetNodeInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(7), info.BlockHeight)
	require.Equal(t, 3, info.ValidatorCount)

	has, err := remote.HasTransactionHash(ctx, crypto.Hash{})
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, remote.PutTransaction(ctx, chain.Transaction{}))
}

func TestServerRateLimitsFloodingPeer(t *testing.T) {
	serverHost, clientHost := connectedHostPair(t)

	params := config.Network
	params.RPCRateLimitMax = 1
	params.RPCRateLimitWindow = time.Minute

	srv := NewServer(serverHost, stubHandler{}, params)
	srv.RegisterProtocols()

	remote := NewRemotePeer(clientHost, serverHost.ID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, remote.PutTransaction(ctx, chain.Transaction{}))
	require.Error(t, remote.PutTransaction(ctx, chain.Transaction{}), "second put_transaction within the window must be throttled")
}
