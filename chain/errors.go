package chain

import "errors"

// Errors returned by transaction- and block-shape checks that don't need
// ledger state to evaluate. Ledger- and validator-level rejection reasons
// live in the ledger package's errors.go.
var (
	ErrAmountOverflow = errors.New("chain: amount overflow")
	ErrEmptyOutputs   = errors.New("chain: transaction has no outputs")
)
