// Package wireframe implements the varint-length-prefixed, snappy-framed
// message envelopes shared by the peer RPC transport and the on-disk block
// store.
//
// Two shapes are provided. WriteMessage/ReadMessage match a libp2p
// request/response stream, where exactly one message occupies the whole
// stream: the varint prefix carries the uncompressed length and the
// remainder of the stream, read to EOF, is the compressed payload.
// WriteRecord/ReadRecord are for a shared, appended-to file where many
// records sit back to back: the varint prefix instead carries the
// compressed length, so a reader knows exactly where one record ends and
// the next begins without needing EOF.
package wireframe

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// MaxMessageSize bounds the size a frame's length prefix may declare (the
// uncompressed size for messages, the compressed size for records), guarding
// against a corrupt length prefix causing an unbounded allocation.
const MaxMessageSize = 32 * 1024 * 1024

// WriteMessage writes data to w as a varint uncompressed-length prefix
// followed by its snappy-compressed bytes. Intended for a transport where
// the stream itself delimits one message (a fresh libp2p stream per call).
func WriteMessage(w io.Writer, data []byte) error {
	compressed := snappy.Encode(nil, data)

	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, uint64(len(data)))
	if _, err := w.Write(prefix[:n]); err != nil {
		return fmt.Errorf("wireframe: write length prefix: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("wireframe: write payload: %w", err)
	}
	return nil
}

// ReadMessage reads a varint uncompressed-length prefix followed by the
// compressed payload, which occupies the rest of r (read to EOF).
func ReadMessage(r io.Reader) ([]byte, error) {
	br := toByteReader(r)
	uncompressedSize, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("wireframe: read length prefix: %w", err)
	}
	if uncompressedSize > MaxMessageSize {
		return nil, fmt.Errorf("wireframe: frame too large: %d bytes", uncompressedSize)
	}

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wireframe: read payload: %w", err)
	}
	return decodeAndCheck(compressed, uncompressedSize)
}

// WriteRecord writes one self-delimited record to w: a varint
// compressed-length prefix followed by the compressed bytes, suitable for
// packing many records sequentially into an append-only file.
func WriteRecord(w io.Writer, data []byte) error {
	compressed := snappy.Encode(nil, data)

	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, uint64(len(compressed)))
	if _, err := w.Write(prefix[:n]); err != nil {
		return fmt.Errorf("wireframe: write length prefix: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("wireframe: write payload: %w", err)
	}
	return nil
}

// ReadRecord reads one record written by WriteRecord from r, returning
// io.EOF (unwrapped, so callers can loop with errors.Is) when there is
// nothing left to read at all.
func ReadRecord(r io.ByteReader) ([]byte, error) {
	compressedSize, err := binary.ReadUvarint(r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wireframe: read length prefix: %w", err)
	}
	if compressedSize > MaxMessageSize {
		return nil, fmt.Errorf("wireframe: record too large: %d bytes", compressedSize)
	}

	compressed := make([]byte, compressedSize)
	for i := uint64(0); i < compressedSize; {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wireframe: read payload: %w", err)
		}
		compressed[i] = b
		i++
	}

	decoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("wireframe: snappy decode: %w", err)
	}
	return decoded, nil
}

func decodeAndCheck(compressed []byte, wantSize uint64) ([]byte, error) {
	decoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("wireframe: snappy decode: %w", err)
	}
	if uint64(len(decoded)) != wantSize {
		return nil, fmt.Errorf("wireframe: length mismatch: header said %d, got %d", wantSize, len(decoded))
	}
	return decoded, nil
}

type byteReader struct {
	io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.Reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func toByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return byteReader{r}
}
