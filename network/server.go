package network

import (
	"context"
	"fmt"
	"io"
	"time"

	libp2pnetwork "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/codec"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
	"github.com/rheehot/agora/logging"
	"github.com/rheehot/agora/wireframe"
)

// Protocol IDs, one per RPC method, following the per-method protocol
// convention rather than multiplexing everything over one stream type.
const (
	protoGetPublicKey       = protocol.ID("/agora/get_public_key/1")
	protoGetNodeInfo        = protocol.ID("/agora/get_node_info/1")
	protoGetBlockHeight     = protocol.ID("/agora/get_block_height/1")
	protoGetBlocksFrom      = protocol.ID("/agora/get_blocks_from/1")
	protoPutTransaction     = protocol.ID("/agora/put_transaction/1")
	protoHasTransactionHash = protocol.ID("/agora/has_transaction_hash/1")
	protoEnrollValidator    = protocol.ID("/agora/enroll_validator/1")
	protoGetEnrollment      = protocol.ID("/agora/get_enrollment/1")
	protoReceivePreimage    = protocol.ID("/agora/receive_preimage/1")
	protoReceiveEnvelope    = protocol.ID("/agora/receive_envelope/1")
	protoRegisterListener   = protocol.ID("/agora/register_listener/1")
)

const (
	streamReadTimeout  = 10 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// Response codes, mirroring the success/invalid-request/server-error triage
// a single-message req/resp stream reports before its payload.
const (
	respSuccess     byte = 0x00
	respInvalidReq  byte = 0x01
	respServerError byte = 0x02
)

// Server registers stream handlers for every PeerAPI method on a libp2p
// host, dispatching each into a local Handler implementation.
type Server struct {
	host    libp2pHost
	handler Handler
	log     logging.Logger
	limiter *PeerRateLimiter
}

// libp2pHost is the subset of host.Host the server needs, kept narrow so
// tests can supply a fake.
type libp2pHost interface {
	SetStreamHandler(pid protocol.ID, handler libp2pnetwork.StreamHandler)
}

// NewServer wraps h, dispatching incoming RPC streams into handler. Incoming
// put_transaction and receive_envelope calls, the two methods a flooding
// peer benefits most from spamming, are throttled per remote peer by a
// PeerRateLimiter built from params.
func NewServer(h libp2pHost, handler Handler, params config.NetworkParams) *Server {
	return &Server{
		host:    h,
		handler: handler,
		log:     logging.Base().With(logging.Fields{"component": "network.server"}),
		limiter: NewPeerRateLimiter(SystemClock{}, params),
	}
}

// RegisterProtocols installs a stream handler for every RPC method.
func (s *Server) RegisterProtocols() {
	s.host.SetStreamHandler(protoGetPublicKey, s.handleGetPublicKey)
	s.host.SetStreamHandler(protoGetNodeInfo, s.handleGetNodeInfo)
	s.host.SetStreamHandler(protoGetBlockHeight, s.handleGetBlockHeight)
	s.host.SetStreamHandler(protoGetBlocksFrom, s.handleGetBlocksFrom)
	s.host.SetStreamHandler(protoPutTransaction, s.handlePutTransaction)
	s.host.SetStreamHandler(protoHasTransactionHash, s.handleHasTransactionHash)
	s.host.SetStreamHandler(protoEnrollValidator, s.handleEnrollValidator)
	s.host.SetStreamHandler(protoGetEnrollment, s.handleGetEnrollment)
	s.host.SetStreamHandler(protoReceivePreimage, s.handleReceivePreimage)
	s.host.SetStreamHandler(protoReceiveEnvelope, s.handleReceiveEnvelope)
	s.host.SetStreamHandler(protoRegisterListener, s.handleRegisterListener)
}

func (s *Server) handleGetPublicKey(stream libp2pnetwork.Stream) {
	defer stream.Close()
	s.respondNoInput(stream, "get_public_key", func(ctx context.Context) (interface{}, error) {
		return s.handler.GetPublicKey(ctx)
	})
}

func (s *Server) handleGetNodeInfo(stream libp2pnetwork.Stream) {
	defer stream.Close()
	s.respondNoInput(stream, "get_node_info", func(ctx context.Context) (interface{}, error) {
		return s.handler.GetNodeInfo(ctx)
	})
}

func (s *Server) handleGetBlockHeight(stream libp2pnetwork.Stream) {
	defer stream.Close()
	s.respondNoInput(stream, "get_block_height", func(ctx context.Context) (interface{}, error) {
		return s.handler.GetBlockHeight(ctx)
	})
}

func (s *Server) handleGetBlocksFrom(stream libp2pnetwork.Stream) {
	defer stream.Close()
	var req blocksFromRequest
	if !s.readRequest(stream, "get_blocks_from", &req) {
		return
	}
	s.writeReply(stream, "get_blocks_from", func(ctx context.Context) (interface{}, error) {
		return s.handler.GetBlocksFrom(ctx, req.Start, req.Max)
	})
}

func (s *Server) handlePutTransaction(stream libp2pnetwork.Stream) {
	defer stream.Close()
	if !s.allow(stream, "put_transaction") {
		return
	}
	var tx chain.Transaction
	if !s.readRequest(stream, "put_transaction", &tx) {
		return
	}
	s.writeReply(stream, "put_transaction", func(ctx context.Context) (interface{}, error) {
		return struct{}{}, s.handler.PutTransaction(ctx, tx)
	})
}

func (s *Server) handleHasTransactionHash(stream libp2pnetwork.Stream) {
	defer stream.Close()
	var hash crypto.Hash
	if !s.readRequest(stream, "has_transaction_hash", &hash) {
		return
	}
	s.writeReply(stream, "has_transaction_hash", func(ctx context.Context) (interface{}, error) {
		return s.handler.HasTransactionHash(ctx, hash)
	})
}

func (s *Server) handleEnrollValidator(stream libp2pnetwork.Stream) {
	defer stream.Close()
	var en chain.Enrollment
	if !s.readRequest(stream, "enroll_validator", &en) {
		return
	}
	s.writeReply(stream, "enroll_validator", func(ctx context.Context) (interface{}, error) {
		return struct{}{}, s.handler.EnrollValidator(ctx, en)
	})
}

func (s *Server) handleGetEnrollment(stream libp2pnetwork.Stream) {
	defer stream.Close()
	var q enrollmentQuery
	if !s.readRequest(stream, "get_enrollment", &q) {
		return
	}
	s.writeReply(stream, "get_enrollment", func(ctx context.Context) (interface{}, error) {
		en, found, err := s.handler.GetEnrollment(ctx, q.UTXOKey)
		return enrollmentReply{Enrollment: en, Found: found}, err
	})
}

func (s *Server) handleReceivePreimage(stream libp2pnetwork.Stream) {
	defer stream.Close()
	var req preimageRequest
	if !s.readRequest(stream, "receive_preimage", &req) {
		return
	}
	s.writeReply(stream, "receive_preimage", func(ctx context.Context) (interface{}, error) {
		return struct{}{}, s.handler.ReceivePreimage(ctx, req.UTXOKey, req.Preimage, req.Height)
	})
}

func (s *Server) handleReceiveEnvelope(stream libp2pnetwork.Stream) {
	defer stream.Close()
	if !s.allow(stream, "receive_envelope") {
		return
	}
	_ = stream.SetReadDeadline(time.Now().Add(streamReadTimeout))
	envelope, err := wireframe.ReadMessage(stream)
	if err != nil {
		s.log.Debugf("receive_envelope: read: %v", err)
		writeErrorResponse(stream, respInvalidReq)
		return
	}
	s.writeReply(stream, "receive_envelope", func(ctx context.Context) (interface{}, error) {
		return struct{}{}, s.handler.ReceiveEnvelope(ctx, envelope)
	})
}

func (s *Server) handleRegisterListener(stream libp2pnetwork.Stream) {
	defer stream.Close()
	var req registerListenerRequest
	if !s.readRequest(stream, "register_listener", &req) {
		return
	}
	s.writeReply(stream, "register_listener", func(ctx context.Context) (interface{}, error) {
		return struct{}{}, s.handler.RegisterListener(ctx, req.ListenerAddr)
	})
}

// allow checks stream's remote peer against the rate limiter for method,
// writing an invalid-request response and returning false if the peer has
// exceeded its budget.
func (s *Server) allow(stream libp2pnetwork.Stream, method string) bool {
	peerID := stream.Conn().RemotePeer().String()
	if s.limiter.Allow(peerID, method) {
		return true
	}
	s.log.Debugf("%s: rate limit exceeded for peer %s", method, peerID)
	writeErrorResponse(stream, respInvalidReq)
	return false
}

// readRequest decodes a single canonical-encoded request from stream into
// out, writing an invalid-request response and returning false on failure.
func (s *Server) readRequest(stream libp2pnetwork.Stream, method string, out interface{}) bool {
	_ = stream.SetReadDeadline(time.Now().Add(streamReadTimeout))
	data, err := wireframe.ReadMessage(stream)
	if err != nil {
		s.log.Debugf("%s: read: %v", method, err)
		writeErrorResponse(stream, respInvalidReq)
		return false
	}
	if err := codec.Unmarshal(data, out); err != nil {
		s.log.Debugf("%s: decode: %v", method, err)
		writeErrorResponse(stream, respInvalidReq)
		return false
	}
	return true
}

// respondNoInput runs call (a Handler method with no request payload) and
// writes its result as the response.
func (s *Server) respondNoInput(stream libp2pnetwork.Stream, method string, call func(context.Context) (interface{}, error)) {
	s.writeReply(stream, method, call)
}

func (s *Server) writeReply(stream libp2pnetwork.Stream, method string, call func(context.Context) (interface{}, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), streamReadTimeout)
	defer cancel()

	result, err := call(ctx)
	if err != nil {
		s.log.Debugf("%s: handler error: %v", method, err)
		writeErrorResponse(stream, respServerError)
		return
	}
	_ = stream.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := writeSuccessResponse(stream, codec.Marshal(result)); err != nil {
		s.log.Debugf("%s: write response: %v", method, err)
	}
}

func writeSuccessResponse(w io.Writer, data []byte) error {
	if _, err := w.Write([]byte{respSuccess}); err != nil {
		return err
	}
	return wireframe.WriteMessage(w, data)
}

func writeErrorResponse(w io.Writer, code byte) {
	_, _ = w.Write([]byte{code})
}

func readResponse(r io.Reader) (byte, []byte, error) {
	var codeBuf [1]byte
	if _, err := io.ReadFull(r, codeBuf[:]); err != nil {
		return 0, nil, fmt.Errorf("network: read response code: %w", err)
	}
	data, err := wireframe.ReadMessage(r)
	return codeBuf[0], data, err
}

// RemotePeer implements PeerAPI by opening a fresh libp2p stream per call,
// one protocol ID per method, matching the request/response convention
// used across the RPC surface.
type RemotePeer struct {
	host libp2pStreamOpener
	id   peer.ID
}

// libp2pStreamOpener is the subset of host.Host needed to dial a peer.
type libp2pStreamOpener interface {
	NewStream(ctx context.Context, p peer.ID, pids ...protocol.ID) (libp2pnetwork.Stream, error)
}

// NewRemotePeer wraps a connected peer ID reachable through h.
func NewRemotePeer(h libp2pStreamOpener, id peer.ID) *RemotePeer {
	return &RemotePeer{host: h, id: id}
}

func (p *RemotePeer) call(ctx context.Context, pid protocol.ID, request interface{}, reply interface{}) error {
	stream, err := p.host.NewStream(ctx, p.id, pid)
	if err != nil {
		return fmt.Errorf("network: open stream %s: %w", pid, err)
	}
	defer stream.Close()

	_ = stream.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if request != nil {
		if err := wireframe.WriteMessage(stream, codec.Marshal(request)); err != nil {
			return fmt.Errorf("network: write request %s: %w", pid, err)
		}
	}
	if err := stream.CloseWrite(); err != nil {
		return fmt.Errorf("network: close write %s: %w", pid, err)
	}

	_ = stream.SetReadDeadline(time.Now().Add(streamReadTimeout))
	code, data, err := readResponse(stream)
	if err != nil {
		return fmt.Errorf("network: read response %s: %w", pid, err)
	}
	if code != respSuccess {
		return fmt.Errorf("network: peer returned error code %d for %s", code, pid)
	}
	if reply != nil {
		if err := codec.Unmarshal(data, reply); err != nil {
			return fmt.Errorf("network: decode response %s: %w", pid, err)
		}
	}
	return nil
}

func (p *RemotePeer) GetPublicKey(ctx context.Context) (crypto.PublicKey, error) {
	var reply crypto.PublicKey
	err := p.call(ctx, protoGetPublicKey, nil, &reply)
	return reply, err
}

func (p *RemotePeer) GetNodeInfo(ctx context.Context) (NodeInfo, error) {
	var reply NodeInfo
	err := p.call(ctx, protoGetNodeInfo, nil, &reply)
	return reply, err
}

func (p *RemotePeer) GetBlockHeight(ctx context.Context) (uint64, error) {
	var reply uint64
	err := p.call(ctx, protoGetBlockHeight, nil, &reply)
	return reply, err
}

func (p *RemotePeer) GetBlocksFrom(ctx context.Context, start uint64, max int) ([]chain.Block, error) {
	var reply []chain.Block
	err := p.call(ctx, protoGetBlocksFrom, blocksFromRequest{Start: start, Max: max}, &reply)
	return reply, err
}

func (p *RemotePeer) PutTransaction(ctx context.Context, tx chain.Transaction) error {
	return p.call(ctx, protoPutTransaction, tx, nil)
}

func (p *RemotePeer) HasTransactionHash(ctx context.Context, hash crypto.Hash) (bool, error) {
	var reply bool
	err := p.call(ctx, protoHasTransactionHash, hash, &reply)
	return reply, err
}

func (p *RemotePeer) EnrollValidator(ctx context.Context, en chain.Enrollment) error {
	return p.call(ctx, protoEnrollValidator, en, nil)
}

func (p *RemotePeer) GetEnrollment(ctx context.Context, key chain.UTXOKey) (chain.Enrollment, bool, error) {
	var reply enrollmentReply
	err := p.call(ctx, protoGetEnrollment, enrollmentQuery{UTXOKey: key}, &reply)
	return reply.Enrollment, reply.Found, err
}

func (p *RemotePeer) ReceivePreimage(ctx context.Context, key chain.UTXOKey, preimage crypto.Hash, height uint64) error {
	return p.call(ctx, protoReceivePreimage, preimageRequest{UTXOKey: key, Preimage: preimage, Height: height}, nil)
}

// ReceiveEnvelope bypasses call's canonical-encode wrapping: the envelope
// is already an opaque, self-describing byte blob produced by the
// consensus layer, and the server reads it back raw rather than through
// codec.Unmarshal.
func (p *RemotePeer) ReceiveEnvelope(ctx context.Context, envelope []byte) error {
	stream, err := p.host.NewStream(ctx, p.id, protoReceiveEnvelope)
	if err != nil {
		return fmt.Errorf("network: open stream %s: %w", protoReceiveEnvelope, err)
	}
	defer stream.Close()

	_ = stream.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := wireframe.WriteMessage(stream, envelope); err != nil {
		return fmt.Errorf("network: write request %s: %w", protoReceiveEnvelope, err)
	}
	if err := stream.CloseWrite(); err != nil {
		return fmt.Errorf("network: close write %s: %w", protoReceiveEnvelope, err)
	}

	_ = stream.SetReadDeadline(time.Now().Add(streamReadTimeout))
	code, _, err := readResponse(stream)
	if err != nil {
		return fmt.Errorf("network: read response %s: %w", protoReceiveEnvelope, err)
	}
	if code != respSuccess {
		return fmt.Errorf("network: peer returned error code %d for %s", code, protoReceiveEnvelope)
	}
	return nil
}

func (p *RemotePeer) RegisterListener(ctx context.Context, listenerAddr string) error {
	return p.call(ctx, protoRegisterListener, registerListenerRequest{ListenerAddr: listenerAddr}, nil)
}
