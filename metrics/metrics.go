// Package metrics exposes the small set of counters and gauges an operator
// needs to watch a running node: how many blocks and transactions it has
// accepted, how many signatures it has verified, how many peers it has
// banned. It is built on prometheus/client_golang/prometheus, the ordinary
// way a Go service exposes metrics for a /metrics scrape endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BlocksAccepted counts blocks the ledger has appended through
	// AcceptBlock; genesis, appended when the ledger is created, is not
	// counted.
	BlocksAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agora_ledger_blocks_accepted_total",
		Help: "Total number of blocks appended to the ledger.",
	})

	// TransactionsAccepted counts transactions admitted to the pool.
	TransactionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agora_ledger_transactions_accepted_total",
		Help: "Total number of transactions admitted to the transaction pool.",
	})

	// PoolSize tracks the current transaction pool size.
	PoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agora_ledger_pool_size",
		Help: "Current number of transactions in the pool.",
	})

	// ValidatorCount tracks the ledger's active validator count.
	ValidatorCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agora_ledger_validator_count",
		Help: "Current number of active enrollments.",
	})

	// SignatureVerifications counts every Ed25519/Schnorr verification,
	// split by outcome.
	SignatureVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_crypto_signature_verifications_total",
		Help: "Total number of signature verifications performed.",
	}, []string{"outcome"})

	// PeersBanned counts ban manager bans issued.
	PeersBanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agora_network_peers_banned_total",
		Help: "Total number of peers banned for exceeding the failure threshold.",
	})

	// RequestRetries counts peer-client retry attempts, split by RPC
	// method.
	RequestRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_network_request_retries_total",
		Help: "Total number of retried peer RPC attempts.",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(
		BlocksAccepted,
		TransactionsAccepted,
		PoolSize,
		ValidatorCount,
		SignatureVerifications,
		PeersBanned,
		RequestRetries,
	)
}
