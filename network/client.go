package network

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
	"github.com/rheehot/agora/logging"
	"github.com/rheehot/agora/metrics"
)

// Throw controls what attempt_request does once retries are exhausted, per
// either surface a failure to the caller (Yes) or return a
// zero value silently (No).
type Throw bool

const (
	ThrowYes Throw = true
	ThrowNo  Throw = false
)

// Client wraps a remote peer behind the retry/backoff policy of
// attemptRequest and reports transport failures to a BanManager.
type Client struct {
	Addr string

	peer   PeerAPI
	ban    *BanManager
	params config.NetworkParams
	log    logging.Logger
}

// NewClient wraps peer (however it's actually transported — an in-memory
// fake in tests, a libp2p-backed RemotePeer in production) with retry and
// ban-reporting behavior.
func NewClient(addr string, peer PeerAPI, ban *BanManager, params config.NetworkParams) *Client {
	return &Client{
		Addr:   addr,
		peer:   peer,
		ban:    ban,
		params: params,
		log:    logging.Base().With(logging.Fields{"component": "network.client", "peer": addr}),
	}
}

// attemptRequest is a free function, not a method, because Go methods can't
// carry their own type parameters: it invokes call, making up to
// params.MaxRetries attempts in all with RetryDelay between them, reports the
// peer to the ban manager on exhaustion, and either returns the error or
// swallows it per throw.
func attemptRequest[T any](ctx context.Context, c *Client, method string, throw Throw, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	// requestID ties every retry of one logical call together in the logs,
	// the way a telemetry session GUID lets scattered log lines be
	// reassembled into one story.
	requestID := uuid.NewString()

	for attempt := 1; attempt <= c.params.MaxRetries; attempt++ {
		res, err := call(ctx)
		if err == nil {
			c.ban.OnSuccessfulRequest(c.Addr)
			return res, nil
		}
		lastErr = err
		c.log.Warnf("%s attempt %d/%d failed (request %s): %v", method, attempt, c.params.MaxRetries, requestID, err)
		if attempt == c.params.MaxRetries {
			break
		}
		metrics.RequestRetries.WithLabelValues(method).Inc()
		select {
		case <-time.After(c.params.RetryDelay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	c.ban.OnFailedRequest(c.Addr)
	if throw == ThrowYes {
		return zero, fmt.Errorf("network: %s exhausted retries against %s (request %s): %w", method, c.Addr, requestID, lastErr)
	}
	return zero, nil
}

func (c *Client) GetPublicKey(ctx context.Context) (crypto.PublicKey, error) {
	return attemptRequest(ctx, c, "get_public_key", ThrowYes, c.peer.GetPublicKey)
}

func (c *Client) GetNodeInfo(ctx context.Context) (NodeInfo, error) {
	return attemptRequest(ctx, c, "get_node_info", ThrowYes, c.peer.GetNodeInfo)
}

func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	return attemptRequest(ctx, c, "get_block_height", ThrowYes, c.peer.GetBlockHeight)
}

func (c *Client) GetBlocksFrom(ctx context.Context, start uint64, max int) ([]chain.Block, error) {
	return attemptRequest(ctx, c, "get_blocks_from", ThrowYes, func(ctx context.Context) ([]chain.Block, error) {
		return c.peer.GetBlocksFrom(ctx, start, max)
	})
}

func (c *Client) HasTransactionHash(ctx context.Context, hash crypto.Hash) (bool, error) {
	return attemptRequest(ctx, c, "has_transaction_hash", ThrowNo, func(ctx context.Context) (bool, error) {
		return c.peer.HasTransactionHash(ctx, hash)
	})
}

func (c *Client) GetEnrollment(ctx context.Context, key chain.UTXOKey) (chain.Enrollment, bool, error) {
	type result struct {
		en    chain.Enrollment
		found bool
	}
	r, err := attemptRequest(ctx, c, "get_enrollment", ThrowYes, func(ctx context.Context) (result, error) {
		en, found, err := c.peer.GetEnrollment(ctx, key)
		return result{en: en, found: found}, err
	})
	return r.en, r.found, err
}

// EnrollValidator submits an enrollment to a peer, waiting for
// confirmation. Unlike the fire-and-forget senders below, this is a
// deliberate registration a caller wants to know succeeded.
func (c *Client) EnrollValidator(ctx context.Context, en chain.Enrollment) error {
	_, err := attemptRequest(ctx, c, "enroll_validator", ThrowYes, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.peer.EnrollValidator(ctx, en)
	})
	return err
}

func (c *Client) RegisterListener(ctx context.Context, listenerAddr string) error {
	_, err := attemptRequest(ctx, c, "register_listener", ThrowYes, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.peer.RegisterListener(ctx, listenerAddr)
	})
	return err
}

// fireAndForget runs fn on an independent goroutine bounded by
// params.RequestTimeout, so callers never block and failures never
// surface.
func (c *Client) fireAndForget(name string, fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.params.RequestTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// SendTransaction pushes tx to the peer, first checking has_transaction_hash
// so an already-seen transaction isn't retransmitted.
func (c *Client) SendTransaction(tx chain.Transaction) {
	c.fireAndForget("send_transaction", func(ctx context.Context) {
		has, err := attemptRequest(ctx, c, "has_transaction_hash", ThrowNo, func(ctx context.Context) (bool, error) {
			return c.peer.HasTransactionHash(ctx, tx.Hash())
		})
		if err == nil && has {
			return
		}
		_, _ = attemptRequest(ctx, c, "put_transaction", ThrowNo, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.peer.PutTransaction(ctx, tx)
		})
	})
}

// SendEnrollment pushes an enrollment to the peer without waiting.
func (c *Client) SendEnrollment(en chain.Enrollment) {
	c.fireAndForget("send_enrollment", func(ctx context.Context) {
		_, _ = attemptRequest(ctx, c, "enroll_validator", ThrowNo, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.peer.EnrollValidator(ctx, en)
		})
	})
}

// SendPreimage pushes a revealed pre-image to the peer without waiting.
func (c *Client) SendPreimage(key chain.UTXOKey, preimage crypto.Hash, height uint64) {
	c.fireAndForget("send_preimage", func(ctx context.Context) {
		_, _ = attemptRequest(ctx, c, "receive_preimage", ThrowNo, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.peer.ReceivePreimage(ctx, key, preimage, height)
		})
	})
}

// SendEnvelope pushes an opaque federated-agreement envelope to the peer
// without waiting.
func (c *Client) SendEnvelope(envelope []byte) {
	c.fireAndForget("send_envelope", func(ctx context.Context) {
		_, _ = attemptRequest(ctx, c, "receive_envelope", ThrowNo, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.peer.ReceiveEnvelope(ctx, envelope)
		})
	})
}
