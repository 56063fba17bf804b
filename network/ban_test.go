package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/config"
)

func testNetworkParams() config.NetworkParams {
	return config.NetworkParams{
		RetryDelay:        time.Millisecond,
		MaxRetries:        1,
		RequestTimeout:    time.Second,
		MaxFailedRequests: 3,
		BanDuration:       time.Minute,
	}
}

// Enough consecutive failures bans a peer, the ban lifts after
// BanDuration, and a subsequent success resets the counter.
func TestBanManagerBansAfterThresholdAndRecoversAfterDuration(t *testing.T) {
	clock := NewFakeClock(time.Now())
	params := testNetworkParams()
	b := NewBanManager(clock, params)

	for i := 0; i < params.MaxFailedRequests-1; i++ {
		b.OnFailedRequest("peer1")
		require.False(t, b.IsBanned("peer1"))
	}
	b.OnFailedRequest("peer1")
	require.True(t, b.IsBanned("peer1"))

	clock.Advance(params.BanDuration + time.Second)
	require.False(t, b.IsBanned("peer1"))

	b.OnSuccessfulRequest("peer1")
	for i := 0; i < params.MaxFailedRequests-1; i++ {
		b.OnFailedRequest("peer1")
	}
	require.False(t, b.IsBanned("peer1"), "counter must have reset after recovery")
}

func TestBanManagerSuccessDuringBanDoesNotResetCounter(t *testing.T) {
	clock := NewFakeClock(time.Now())
	params := testNetworkParams()
	b := NewBanManager(clock, params)

	for i := 0; i < params.MaxFailedRequests; i++ {
		b.OnFailedRequest("peer1")
	}
	require.True(t, b.IsBanned("peer1"))

	b.OnSuccessfulRequest("peer1")
	require.True(t, b.IsBanned("peer1"), "a success while still banned must not lift the ban early")
}

func TestBanManagerUnknownPeerIsNotBanned(t *testing.T) {
	b := NewBanManager(NewFakeClock(time.Now()), testNetworkParams())
	require.False(t, b.IsBanned("stranger"))
}
