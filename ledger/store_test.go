package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rheehot/agora/chain"
)

func TestMemoryBlockStoreAppendGetHeight(t *testing.T) {
	s := NewMemoryBlockStore()

	_, ok, err := s.Height()
	require.NoError(t, err)
	require.False(t, ok)

	b0 := chain.Block{Header: chain.BlockHeader{Height: 0}}
	require.NoError(t, s.Append(b0))

	height, ok, err := s.Height()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), height)

	got, ok, err := s.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b0.Hash(), got.Hash())

	require.Error(t, s.Append(chain.Block{Header: chain.BlockHeader{Height: 5}}))
}

func TestFileBlockStoreAppendAndReopenReplays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.dat")

	s, err := OpenFileBlockStore(path)
	require.NoError(t, err)

	b0 := chain.Block{Header: chain.BlockHeader{Height: 0}}
	b1 := chain.MakeNewBlock(b0, nil, nil)
	require.NoError(t, s.Append(b0))
	require.NoError(t, s.Append(b1))
	require.NoError(t, s.Close())

	reopened, err := OpenFileBlockStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	height, ok, err := reopened.Height()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), height)

	got0, ok, err := reopened.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b0.Hash(), got0.Hash())

	got1, ok, err := reopened.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b1.Hash(), got1.Hash())
}
