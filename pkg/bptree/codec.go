package bptree

import "bptreedb/pkg/stream"

// Uint64 is a ready-made fixed-width key/value type satisfying both
// stream.Ordered and, via Uint64Codec, stream.Codec. Handy for the
// integer-keyed scenarios the design walks through and for tests.
type Uint64 uint64

func (a Uint64) Compare(b Uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Uint64Codec marshals a Uint64 as 8 little-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Size() int { return 8 }

func (Uint64Codec) Encode(dst []byte, v Uint64) { stream.Bin.PutUint64(dst, uint64(v)) }

func (Uint64Codec) Decode(src []byte) Uint64 { return Uint64(stream.Bin.Uint64(src)) }
