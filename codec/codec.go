// Package codec provides the single canonical, deterministic serializer used
// for both hashing and wire encoding. A consensus-critical wire format is
// exactly the case where reusing a battle-tested canonical encoder beats a
// bespoke one, and go-codec's Canonical msgpack mode (map keys sorted, no
// float promotion, no non-determinism) already gives every serialized
// struct one true encoding.
//
// Every type that participates in hashing or the wire protocol must encode
// deterministically: field order is fixed by struct declaration order and
// map keys, if any ever appear, are sorted by the Canonical flag below.
package codec

import (
	"sync"

	"github.com/algorand/go-codec/codec"
)

// Handle is the shared msgpack handle every encoder/decoder in this package
// is built from, configured the way protocol/codec.go configures its
// CodecHandle: canonical output, strict about unknown fields and array
// shape, unsigned encoding for non-negative integers.
var Handle *codec.MsgpackHandle

func init() {
	Handle = new(codec.MsgpackHandle)
	Handle.Canonical = true
	Handle.ErrorIfNoField = true
	Handle.ErrorIfNoArrayExpand = true
	Handle.RecursiveEmptyCheck = true
	Handle.PositiveIntUnsigned = true
	Handle.WriteExt = true
}

var encoderPool = sync.Pool{
	New: func() interface{} {
		return codec.NewEncoderBytes(nil, Handle)
	},
}

// Marshal returns the canonical msgpack encoding of obj.
func Marshal(obj interface{}) []byte {
	enc := encoderPool.Get().(*codec.Encoder)
	var buf []byte
	enc.ResetBytes(&buf)
	enc.MustEncode(obj)
	encoderPool.Put(enc)
	return buf
}

// Unmarshal decodes a canonical msgpack buffer into objptr, which must be a
// pointer.
func Unmarshal(b []byte, objptr interface{}) error {
	dec := codec.NewDecoderBytes(b, Handle)
	return dec.Decode(objptr)
}
