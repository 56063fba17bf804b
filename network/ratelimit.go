package network

import (
	"github.com/algorand/go-deadlock"
	"golang.org/x/crypto/blake2b"

	"github.com/rheehot/agora/config"
)

// rateLimiterEntry is a fixed-window counter for one (peer, method) pair.
type rateLimiterEntry struct {
	windowStart int64 // unix nanoseconds
	count       uint64
}

// PeerRateLimiter throttles how often a single remote peer may hit a given
// RPC method, protecting a Server from a flooding or misbehaving peer the
// way the ban manager protects a Client from a flooding or misbehaving
// server. Keys are hashed with blake2b rather than kept as raw
// peerID+method strings, since the map only needs a fast, fixed-size,
// collision-resistant-enough key and never needs to recover the original
// peer ID from it.
type PeerRateLimiter struct {
	mu      deadlock.Mutex
	clock   Clock
	window  int64 // nanoseconds
	max     uint64
	entries map[[blake2b.Size256]byte]*rateLimiterEntry
}

// NewPeerRateLimiter returns a limiter allowing at most max calls to a
// given method from a given peer within window.
func NewPeerRateLimiter(clock Clock, params config.NetworkParams) *PeerRateLimiter {
	return &PeerRateLimiter{
		clock:   clock,
		window:  params.RPCRateLimitWindow.Nanoseconds(),
		max:     params.RPCRateLimitMax,
		entries: make(map[[blake2b.Size256]byte]*rateLimiterEntry),
	}
}

func rateLimiterKey(peerID, method string) [blake2b.Size256]byte {
	return blake2b.Sum256(append([]byte(method+"|"), []byte(peerID)...))
}

// Allow reports whether peerID may make one more call to method within the
// current window, incrementing its counter as a side effect. A zero or
// negative configured max disables limiting entirely.
func (r *PeerRateLimiter) Allow(peerID, method string) bool {
	if r.max == 0 {
		return true
	}

	key := rateLimiterKey(peerID, method)
	now := r.clock.Now().UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok || now-e.windowStart >= r.window {
		r.entries[key] = &rateLimiterEntry{windowStart: now, count: 1}
		return true
	}
	if e.count >= r.max {
		return false
	}
	e.count++
	return true
}
