package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHashable struct {
	id  HashID
	rep []byte
}

func (f fakeHashable) ToBeHashed() (HashID, []byte) { return f.id, f.rep }

func TestHashObjDeterministicAndCollisionResistantAcrossDomains(t *testing.T) {
	a := fakeHashable{id: HashIDTransaction, rep: []byte("same bytes")}
	b := fakeHashable{id: HashIDEnrollment, rep: []byte("same bytes")}

	require.Equal(t, HashObj(a), HashObj(a))
	require.NotEqual(t, HashObj(a), HashObj(b), "domain tags must separate identical payloads")
}

func TestHashObjDiffersOnPayload(t *testing.T) {
	a := fakeHashable{id: HashIDTransaction, rep: []byte("payload one")}
	b := fakeHashable{id: HashIDTransaction, rep: []byte("payload two")}
	require.NotEqual(t, HashObj(a), HashObj(b))
}

func TestHashZeroAndEqual(t *testing.T) {
	var z Hash
	require.True(t, z.IsZero())

	h := HashBytes([]byte("nonzero"))
	require.False(t, h.IsZero())
	require.True(t, h.Equal(h))
	require.False(t, h.Equal(z))
}

func TestHashLessTotalOrder(t *testing.T) {
	a := HashBytes([]byte("a"))
	b := HashBytes([]byte("b"))
	require.NotEqual(t, a, b)
	require.True(t, a.Less(b) != b.Less(a))
}
