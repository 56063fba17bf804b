package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rheehot/agora/chain"
	"github.com/rheehot/agora/codec"
	"github.com/rheehot/agora/wireframe"
)

// BlockStore is the append-only block archive abstraction;
// implementations may be file-backed or in-memory. It never sees a block
// out of height order — the ledger is the only caller and it appends
// strictly.
type BlockStore interface {
	Append(block chain.Block) error
	Get(height uint64) (chain.Block, bool, error)
	Height() (uint64, bool, error)
}

// MemoryBlockStore is an in-process BlockStore backed by a slice, used by
// tests and simulated nodes.
type MemoryBlockStore struct {
	mu     sync.RWMutex
	blocks []chain.Block
}

// NewMemoryBlockStore returns an empty in-memory store.
func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{}
}

func (s *MemoryBlockStore) Append(block chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(len(s.blocks)) != block.Header.Height {
		return fmt.Errorf("ledger: memory store expected height %d, got %d", len(s.blocks), block.Header.Height)
	}
	s.blocks = append(s.blocks, block)
	return nil
}

func (s *MemoryBlockStore) Get(height uint64) (chain.Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if height >= uint64(len(s.blocks)) {
		return chain.Block{}, false, nil
	}
	return s.blocks[height], true, nil
}

func (s *MemoryBlockStore) Height() (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return 0, false, nil
	}
	return uint64(len(s.blocks) - 1), true, nil
}

// FileBlockStore is a BlockStore backed by a single append-only file: each
// record is written with wireframe.WriteRecord (compressed-length prefix +
// snappy payload) and the whole file is re-read into an in-memory height
// index on open, since blocks are always looked up by sequential height.
type FileBlockStore struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	blocks []chain.Block
}

// OpenFileBlockStore opens (creating if necessary) an append-only block
// file at path and replays any blocks already in it.
func OpenFileBlockStore(path string) (*FileBlockStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open block store: %w", err)
	}
	s := &FileBlockStore{path: path, file: f}
	if err := s.replay(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileBlockStore) replay() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("ledger: seek block store: %w", err)
	}
	r := bufio.NewReader(s.file)
	for {
		data, err := wireframe.ReadRecord(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("ledger: replay block store: %w", err)
		}
		var block chain.Block
		if err := codec.Unmarshal(data, &block); err != nil {
			return fmt.Errorf("ledger: decode replayed block: %w", err)
		}
		s.blocks = append(s.blocks, block)
	}
	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("ledger: seek block store to end: %w", err)
	}
	return nil
}

func (s *FileBlockStore) Append(block chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(len(s.blocks)) != block.Header.Height {
		return fmt.Errorf("ledger: file store expected height %d, got %d", len(s.blocks), block.Header.Height)
	}
	data := codec.Marshal(block)
	if err := wireframe.WriteRecord(s.file, data); err != nil {
		return fmt.Errorf("ledger: append block: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync block store: %w", err)
	}
	s.blocks = append(s.blocks, block)
	return nil
}

func (s *FileBlockStore) Get(height uint64) (chain.Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if height >= uint64(len(s.blocks)) {
		return chain.Block{}, false, nil
	}
	return s.blocks[height], true, nil
}

func (s *FileBlockStore) Height() (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return 0, false, nil
	}
	return uint64(len(s.blocks) - 1), true, nil
}

// Close releases the underlying file handle.
func (s *FileBlockStore) Close() error {
	return s.file.Close()
}
