package ledger

import (
	"fmt"

	"github.com/rheehot/agora/crypto"
)

// ErrKind classifies a ledger-facing failure so callers (REST handlers,
// the consensus driver, tests) can branch on cause without string
// matching.
type ErrKind int

const (
	KindMalformedWire ErrKind = iota
	KindMalformedAddress
	KindSignatureInvalid
	KindUTXONotFound
	KindDoubleSpend
	KindInsufficientStake
	KindProtocolViolation
	KindFatal
)

func (k ErrKind) String() string {
	switch k {
	case KindMalformedWire:
		return "MalformedWire"
	case KindMalformedAddress:
		return "MalformedAddress"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	case KindUTXONotFound:
		return "UtxoNotFound"
	case KindDoubleSpend:
		return "DoubleSpend"
	case KindInsufficientStake:
		return "InsufficientStake"
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error wraps a rejection reason with its kind, so the block validator's
// human-readable string still carries a machine-checkable classification
// for the REST layer's 4xx/5xx split.
type Error struct {
	Kind   ErrKind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func newErr(kind ErrKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// TransactionInLedgerError is returned when put_transaction is called with a
// transaction already in the pool.
type TransactionInLedgerError struct {
	TxHash crypto.Hash
}

func (e TransactionInLedgerError) Error() string {
	return fmt.Sprintf("transaction already in ledger: %s", e.TxHash)
}

// BlockInLedgerError is returned when accept_block is called with any height
// other than the next one: one already appended, or one further ahead.
type BlockInLedgerError struct {
	LastHeight uint64
	NextHeight uint64
}

func (e BlockInLedgerError) Error() string {
	return fmt.Sprintf("block already in ledger: have height %d, got %d", e.LastHeight, e.NextHeight)
}

// ErrNoEntry indicates a requested height is not present in the ledger.
type ErrNoEntry struct {
	Height    uint64
	Latest    uint64
}

func (e ErrNoEntry) Error() string {
	return fmt.Sprintf("ledger has no entry at height %d (latest %d)", e.Height, e.Latest)
}

// Fatal reports that a node observed a violation of its own invariants:
// the process must halt.
type Fatal struct {
	Reason string
}

func (e Fatal) Error() string {
	return fmt.Sprintf("fatal ledger invariant violated: %s", e.Reason)
}
