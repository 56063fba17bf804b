// Package config holds the protocol-wide constants that gate consensus:
// how many transactions a block must carry, how long a freeze must mature,
// how many validators must stay enrolled, and the retry/ban tunables of the
// peer network. A single struct of named parameters replaces scattered
// literals, so a genesis file can pin the values a chain was born with.
package config

import "time"

// ConsensusParams are the protocol constants that every block validator,
// enrollment manager, and ledger instance for a given chain must agree on.
// Changing any of these values for a running chain is a hard fork.
type ConsensusParams struct {
	// TxsInBlock is the fixed number of transactions every non-genesis
	// block must carry. Genesis may carry between 1 and TxsInBlock.
	TxsInBlock uint32

	// MinValidatorCount is the minimum number of active (non-expired)
	// enrollments required at every height for the chain to keep making
	// progress; a block that would leave fewer validators active is
	// rejected.
	MinValidatorCount uint32

	// MinFreezeAmount is the minimum amount a Freeze output must carry to
	// be eligible as enrollment stake.
	MinFreezeAmount uint64

	// PaymentMaturityDelay is the number of blocks a Payment output must
	// wait, past the block that created it, before it can be spent.
	// unlock_height = creation_height + PaymentMaturityDelay.
	PaymentMaturityDelay uint32

	// FreezeMaturityDelay is the equivalent maturity delay for Freeze
	// outputs, which must lock up for substantially longer than payments.
	FreezeMaturityDelay uint32

	// ValidatorCycleLength is the default number of blocks an enrollment
	// remains active for, absent an explicit override at enroll time.
	ValidatorCycleLength uint32

	// QuorumThresholdNumerator/Denominator express the BFT-safe default
	// quorum threshold as a fraction of the validator set size:
	// ceil(2n/3) + 1 by default.
	QuorumThresholdNumerator   uint64
	QuorumThresholdDenominator uint64

	// FullAgreementThreshold, when true, overrides the fractional
	// threshold above and requires unanimous agreement (the historic
	// 100%-agreement default), preserved until network governance can
	// negotiate a lower bound.
	FullAgreementThreshold bool
}

// NetworkParams are the retry/ban tunables of the peer client and ban
// manager. They are per-deployment, not part of the
// consensus-critical fork surface, so they live in a separate struct from
// ConsensusParams.
type NetworkParams struct {
	RetryDelay        time.Duration
	MaxRetries        int
	RequestTimeout    time.Duration
	MaxFailedRequests int
	BanDuration       time.Duration

	// RPCRateLimitWindow/Max bound how often a single remote peer may hit
	// a single RPC method on this node's Server. RPCRateLimitMax of 0
	// disables the limiter.
	RPCRateLimitWindow time.Duration
	RPCRateLimitMax    uint64
}

// Consensus is the reference protocol configuration. TxsInBlock=8 and
// MinValidatorCount=2 mirror the literal values used throughout the
// scenarios and tests.
var Consensus = ConsensusParams{
	TxsInBlock:                 8,
	MinValidatorCount:          2,
	MinFreezeAmount:            40_000_000_000,
	PaymentMaturityDelay:       1,
	FreezeMaturityDelay:        1008,
	ValidatorCycleLength:       20,
	QuorumThresholdNumerator:   2,
	QuorumThresholdDenominator: 3,
	FullAgreementThreshold:     false,
}

// Network is the reference network configuration.
var Network = NetworkParams{
	RetryDelay:         500 * time.Millisecond,
	MaxRetries:         3,
	RequestTimeout:     5 * time.Second,
	MaxFailedRequests:  32,
	BanDuration:        10 * time.Minute,
	RPCRateLimitWindow: time.Second,
	RPCRateLimitMax:    64,
}

// QuorumThreshold computes the number of quorum-slice agreements required
// out of n validators, honoring FullAgreementThreshold.
func (c ConsensusParams) QuorumThreshold(n int) int {
	if n <= 0 {
		return 0
	}
	if c.FullAgreementThreshold {
		return n
	}
	num := uint64(n) * c.QuorumThresholdNumerator
	threshold := (num+c.QuorumThresholdDenominator-1)/c.QuorumThresholdDenominator + 1
	if threshold > uint64(n) {
		threshold = uint64(n)
	}
	return int(threshold)
}
