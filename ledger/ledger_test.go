package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
)

var errStoreFull = errors.New("store: disk full")

func newTestLedger(t *testing.T, n int) (*Ledger, []crypto.KeyPair, chain.Transaction) {
	t.Helper()
	genesis, kps := makeTestGenesis(t, n)
	params := testParams()
	params.TxsInBlock = 1

	l, err := NewLedger(genesis, NewMemoryBlockStore(), params)
	require.NoError(t, err)

	var distTx chain.Transaction
	for _, tx := range genesis.Txs {
		if len(tx.Outputs) == n {
			distTx = tx
		}
	}
	return l, kps, distTx
}

func TestNewLedgerReplaysGenesis(t *testing.T) {
	l, _, _ := newTestLedger(t, 2)
	require.Equal(t, uint64(0), l.GetBlockHeight())
	require.Equal(t, 2, l.ValidatorCount())
}

func TestPutTransactionAddsToPoolAndRejectsDuplicates(t *testing.T) {
	l, kps, distTx := newTestLedger(t, 2)
	tx := buildSpendingTx(kps[0], distTx, kps[1].Public, 1)

	require.NoError(t, l.PutTransaction(tx))
	require.Len(t, l.PendingTransactions(), 1)

	err := l.PutTransaction(tx)
	require.Error(t, err)
	require.IsType(t, TransactionInLedgerError{}, err)
}

func TestPutTransactionRejectsInvalid(t *testing.T) {
	l, kps, distTx := newTestLedger(t, 2)
	bad := buildSpendingTx(kps[1], distTx, kps[1].Public, 1) // wrong signer

	err := l.PutTransaction(bad)
	require.Error(t, err)
}

func TestAcceptBlockAppliesAndEvictsPool(t *testing.T) {
	l, kps, distTx := newTestLedger(t, 2)
	tx := buildSpendingTx(kps[0], distTx, kps[1].Public, 1)
	require.NoError(t, l.PutTransaction(tx))

	block := chain.MakeNewBlock(l.Tip(), []chain.Transaction{tx}, nil)
	require.NoError(t, l.AcceptBlock(block))

	require.Equal(t, uint64(1), l.GetBlockHeight())
	require.Empty(t, l.PendingTransactions())

	blocks, err := l.GetBlocksFrom(0, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, block.Hash(), blocks[1].Hash())
}

func TestAcceptBlockRejectsWrongHeight(t *testing.T) {
	l, kps, distTx := newTestLedger(t, 2)
	tx := buildSpendingTx(kps[0], distTx, kps[1].Public, 1)
	block := chain.MakeNewBlock(l.Tip(), []chain.Transaction{tx}, nil)
	block.Header.Height = 5

	err := l.AcceptBlock(block)
	require.Error(t, err)
	require.IsType(t, BlockInLedgerError{}, err)
}

func TestAcceptBlockRejectsInvalidBlock(t *testing.T) {
	l, kps, distTx := newTestLedger(t, 2)
	bad := buildSpendingTx(kps[1], distTx, kps[1].Public, 1) // wrong signer
	block := chain.MakeNewBlock(l.Tip(), []chain.Transaction{bad}, nil)

	err := l.AcceptBlock(block)
	require.Error(t, err)
	require.Equal(t, uint64(0), l.GetBlockHeight(), "rejected block must not advance the tip")
}

// failingStore always fails Append after genesis, to exercise AcceptBlock's
// Fatal path when persistence can't keep up with externalization.
type failingStore struct {
	*MemoryBlockStore
	failAfter uint64
}

func (s *failingStore) Append(block chain.Block) error {
	if block.Header.Height >= s.failAfter {
		return errStoreFull
	}
	return s.MemoryBlockStore.Append(block)
}

func TestAcceptBlockReturnsFatalOnStoreFailure(t *testing.T) {
	genesis, kps := makeTestGenesis(t, 2)
	params := testParams()
	params.TxsInBlock = 1

	store := &failingStore{MemoryBlockStore: NewMemoryBlockStore(), failAfter: 1}
	l, err := NewLedger(genesis, store, params)
	require.NoError(t, err)

	var distTx chain.Transaction
	for _, tx := range genesis.Txs {
		if len(tx.Outputs) == 2 {
			distTx = tx
		}
	}
	tx := buildSpendingTx(kps[0], distTx, kps[1].Public, 1)
	block := chain.MakeNewBlock(l.Tip(), []chain.Transaction{tx}, nil)

	err = l.AcceptBlock(block)
	require.Error(t, err)
	require.IsType(t, Fatal{}, err)
	require.Equal(t, uint64(0), l.GetBlockHeight())
}

func TestUTXOsForReturnsOwnedOutputs(t *testing.T) {
	l, kps, _ := newTestLedger(t, 2)
	utxos := l.UTXOsFor(kps[0].Public)
	require.NotEmpty(t, utxos)
	for _, u := range utxos {
		require.Equal(t, kps[0].Public, u.Value.Output.Destination)
	}
}

func TestTipReturnsGenesisInitially(t *testing.T) {
	l, _, _ := newTestLedger(t, 2)
	require.Equal(t, uint64(0), l.Tip().Header.Height)
}

func TestPutEnrollmentStagesValidAndRejectsInvalid(t *testing.T) {
	l, kps, _ := newTestLedger(t, 2)

	var freezeKey chain.UTXOKey
	for _, u := range l.UTXOsFor(kps[0].Public) {
		if u.Value.Output.Amount.Raw >= config.Consensus.MinFreezeAmount {
			freezeKey = u.Key
		}
	}
	require.NotZero(t, freezeKey)

	secretSeed := crypto.HashBytes([]byte("test-enrollment-seed"))
	head := chain.CommittedHead(secretSeed, config.Consensus.ValidatorCycleLength)
	en := chain.MakeEnrollment(kps[0], freezeKey, head, config.Consensus.ValidatorCycleLength)

	require.NoError(t, l.PutEnrollment(en))
	require.Len(t, l.PendingEnrollments(), 1)

	// Re-submitting the same key is a silent no-op, not an error.
	require.NoError(t, l.PutEnrollment(en))
	require.Len(t, l.PendingEnrollments(), 1)

	bad := chain.MakeEnrollment(kps[1], freezeKey, head, config.Consensus.ValidatorCycleLength)
	require.Error(t, l.PutEnrollment(bad))
}
