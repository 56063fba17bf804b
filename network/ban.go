package network

import (
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/metrics"
)

// banEntry tracks one peer's failure count and, once banned, when the ban
// lifts.
type banEntry struct {
	failureCount int
	bannedUntil  time.Time
}

// BanManager maintains { peer_address -> (failure_count, banned_until) }.
type BanManager struct {
	mu      deadlock.Mutex
	clock   Clock
	params  config.NetworkParams
	entries map[string]*banEntry
}

// NewBanManager returns an empty ban manager using clock as its time
// source.
func NewBanManager(clock Clock, params config.NetworkParams) *BanManager {
	return &BanManager{clock: clock, params: params, entries: make(map[string]*banEntry)}
}

// OnFailedRequest increments peer's failure counter, banning it once the
// counter reaches MaxFailedRequests.
func (b *BanManager) OnFailedRequest(peer string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[peer]
	if !ok {
		e = &banEntry{}
		b.entries[peer] = e
	}
	e.failureCount++
	if e.failureCount >= b.params.MaxFailedRequests {
		e.bannedUntil = b.clock.Now().Add(b.params.BanDuration)
		metrics.PeersBanned.Inc()
	}
}

// IsBanned reports whether peer is currently banned.
func (b *BanManager) IsBanned(peer string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[peer]
	if !ok {
		return false
	}
	return b.clock.Now().Before(e.bannedUntil)
}

// OnSuccessfulRequest clears a peer's failure count, letting a peer recover
// its standing after the ban period elapses without needing an explicit
// unban call.
func (b *BanManager) OnSuccessfulRequest(peer string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[peer]
	if !ok {
		return
	}
	if b.clock.Now().Before(e.bannedUntil) {
		return
	}
	e.failureCount = 0
}
