package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
)

// fakePeer implements PeerAPI with per-method canned behavior, so client
// tests can exercise attemptRequest's retry/ban/Throw handling without a
// real libp2p transport.
type fakePeer struct {
	getPublicKeyErrsThen int // number of calls to fail before succeeding
	getPublicKeyCalls    int

	hasTxHash    bool
	hasTxHashErr error

	putTransactionCalls int
	putTransactionErr   error
}

func (p *fakePeer) GetPublicKey(ctx context.Context) (crypto.PublicKey, error) {
	p.getPublicKeyCalls++
	if p.getPublicKeyCalls <= p.getPublicKeyErrsThen {
		return crypto.PublicKey{}, errors.New("transient failure")
	}
	return crypto.PublicKey{0x1}, nil
}
func (p *fakePeer) GetNodeInfo(ctx context.Context) (NodeInfo, error) { return NodeInfo{}, nil }
func (p *fakePeer) GetBlockHeight(ctx context.Context) (uint64, error) { return 0, nil }
func (p *fakePeer) GetBlocksFrom(ctx context.Context, start uint64, max int) ([]chain.Block, error) {
	return nil, nil
}
func (p *fakePeer) PutTransaction(ctx context.Context, tx chain.Transaction) error {
	p.putTransactionCalls++
	return p.putTransactionErr
}
func (p *fakePeer) HasTransactionHash(ctx context.Context, hash crypto.Hash) (bool, error) {
	return p.hasTxHash, p.hasTxHashErr
}
func (p *fakePeer) EnrollValidator(ctx context.Context, en chain.Enrollment) error { return nil }
func (p *fakePeer) GetEnrollment(ctx context.Context, key chain.UTXOKey) (chain.Enrollment, bool, error) {
	return chain.Enrollment{}, false, nil
}
func (p *fakePeer) ReceivePreimage(ctx context.Context, key chain.UTXOKey, preimage crypto.Hash, height uint64) error {
	return nil
}
func (p *fakePeer) ReceiveEnvelope(ctx context.Context, envelope []byte) error { return nil }
func (p *fakePeer) RegisterListener(ctx context.Context, listenerAddr string) error {
	return nil
}

func testClientParams() config.NetworkParams {
	return config.NetworkParams{
		RetryDelay:        time.Millisecond,
		MaxRetries:        3,
		RequestTimeout:    time.Second,
		MaxFailedRequests: 2,
		BanDuration:       time.Minute,
	}
}

func TestClientRetriesThenSucceeds(t *testing.T) {
	peer := &fakePeer{getPublicKeyErrsThen: 2}
	params := testClientParams()
	c := NewClient("peer1", peer, NewBanManager(NewFakeClock(time.Now()), params), params)

	pub, err := c.GetPublicKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, crypto.PublicKey{0x1}, pub)
	require.Equal(t, 3, peer.getPublicKeyCalls)
}

func TestClientExhaustsRetriesAndBansOnThrowYes(t *testing.T) {
	peer := &fakePeer{getPublicKeyErrsThen: 100}
	params := testClientParams()
	ban := NewBanManager(NewFakeClock(time.Now()), params)
	c := NewClient("peer1", peer, ban, params)

	_, err := c.GetPublicKey(context.Background())
	require.Error(t, err)
	require.Equal(t, params.MaxRetries, peer.getPublicKeyCalls)

	// One more exhausted call trips MaxFailedRequests (2).
	_, err = c.GetPublicKey(context.Background())
	require.Error(t, err)
	require.True(t, ban.IsBanned("peer1"))
}

func TestClientThrowNoSwallowsError(t *testing.T) {
	peer := &fakePeer{hasTxHashErr: errors.New("down")}
	params := testClientParams()
	c := NewClient("peer1", peer, NewBanManager(NewFakeClock(time.Now()), params), params)

	has, err := c.HasTransactionHash(context.Background(), crypto.Hash{})
	require.NoError(t, err, "ThrowNo must swallow the error once retries are exhausted")
	require.False(t, has)
}

func TestSendTransactionSkipsPushWhenPeerAlreadyHasIt(t *testing.T) {
	peer := &fakePeer{hasTxHash: true}
	params := testClientParams()
	c := NewClient("peer1", peer, NewBanManager(NewFakeClock(time.Now()), params), params)

	tx := chain.Transaction{Type: chain.Payment}
	c.SendTransaction(tx)

	require.Eventually(t, func() bool { return true }, 50*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, 0, peer.putTransactionCalls)
}

func TestSendTransactionPushesWhenPeerLacksIt(t *testing.T) {
	peer := &fakePeer{hasTxHash: false}
	params := testClientParams()
	c := NewClient("peer1", peer, NewBanManager(NewFakeClock(time.Now()), params), params)

	tx := chain.Transaction{Type: chain.Payment}
	c.SendTransaction(tx)

	require.Eventually(t, func() bool { return peer.putTransactionCalls == 1 }, 200*time.Millisecond, 5*time.Millisecond)
}
