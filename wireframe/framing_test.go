package wireframe

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteMessageReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("a message that occupies the whole stream")

	require.NoError(t, WriteMessage(&buf, payload))
	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteMessageReadMessageEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, nil))
	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestWriteRecordReadRecordMultipleBackToBack(t *testing.T) {
	var buf bytes.Buffer
	records := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, r := range records {
		require.NoError(t, WriteRecord(&buf, r))
	}

	br := bufio.NewReader(&buf)
	for _, want := range records {
		got, err := ReadRecord(br)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ReadRecord(br)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadRecordRejectsOversizedLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, MaxMessageSize+1)
	buf.Write(prefix[:n])

	_, err := ReadRecord(bufio.NewReader(&buf))
	require.Error(t, err)
}
