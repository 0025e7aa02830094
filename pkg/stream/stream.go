// Package stream implements the seekable byte-stream abstraction the B+
// tree engine reads and writes nodes through, plus typed helpers for the
// key/value/offset arrays that make up a node record.
package stream

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Bin is the byte order used for every on-disk integer. Fixed explicitly
// so files are portable across hosts regardless of native endianness.
var Bin = binary.LittleEndian

// ErrClosed is returned by any operation on a stream that has already
// been closed.
var ErrClosed = errors.New("stream: use of closed stream")

// Stream is a seekable sequence of bytes a B+ tree reads nodes from and
// writes nodes to. Implementations back it with a file, a memory
// mapping, or a plain in-memory buffer.
type Stream interface {
	// Seek moves the read/write cursor to an absolute byte offset.
	Seek(offset uint64) error
	// Tell reports the current cursor position.
	Tell() uint64
	// Read fills buf completely from the current position, advancing it.
	Read(buf []byte) error
	// Write writes buf at the current position, advancing it. It may
	// grow the underlying storage.
	Write(buf []byte) error
	// Skip advances the cursor by delta bytes without reading or writing
	// (a relative seek), used to step over padding.
	Skip(delta int64) error
	// SetCompact toggles whether key/value/offset array helpers below
	// emit/consume unused-slot padding.
	SetCompact(compact bool)
	// Compact reports the current padding mode.
	Compact() bool
	// Size reports the current length of the backing storage.
	Size() (uint64, error)
	// Close releases any OS resources held by the stream.
	Close() error
}

// Codec marshals and unmarshals a fixed-width value of type T to and
// from a byte slice of exactly Size() bytes. K must additionally satisfy
// Ordered[K] to give the tree a total order; V needs no such thing.
type Codec[T any] interface {
	Size() int
	Encode(dst []byte, v T)
	Decode(src []byte) T
}

// Ordered is satisfied by key types that can compare themselves to one
// another, giving the tree a total order over its keys.
type Ordered[T any] interface {
	Compare(other T) int
}

// ReadArray reads the used prefix of a fixed-width array of n logical
// slots (capacity cap), honouring the stream's compact mode: when not
// compact, the unread (cap-n) slots are skipped rather than read.
func ReadArray[T any](s Stream, codec Codec[T], used, cap int) ([]T, error) {
	width := codec.Size()
	buf := make([]byte, width*used)
	if err := s.Read(buf); err != nil {
		return nil, errors.Wrap(err, "stream: read array")
	}

	out := make([]T, used)
	for i := 0; i < used; i++ {
		out[i] = codec.Decode(buf[i*width : (i+1)*width])
	}

	if !s.Compact() {
		if err := s.Skip(int64(width * (cap - used))); err != nil {
			return nil, errors.Wrap(err, "stream: skip array padding")
		}
	}
	return out, nil
}

// WriteArray writes the used values of a fixed-width array of n logical
// slots (capacity cap), honouring the stream's compact mode: when not
// compact, (cap-n) slots of padding are skipped over (left untouched)
// rather than zero-filled.
func WriteArray[T any](s Stream, codec Codec[T], vals []T, cap int) error {
	width := codec.Size()
	buf := make([]byte, width*len(vals))
	for i, v := range vals {
		codec.Encode(buf[i*width:(i+1)*width], v)
	}
	if err := s.Write(buf); err != nil {
		return errors.Wrap(err, "stream: write array")
	}

	if !s.Compact() {
		if err := s.Skip(int64(width * (cap - len(vals)))); err != nil {
			return errors.Wrap(err, "stream: skip array padding")
		}
	}
	return nil
}

// OffsetCodec is the Codec for the stream's uint64 offset type, used for
// child references and sibling links.
type OffsetCodec struct{}

func (OffsetCodec) Size() int { return 8 }

func (OffsetCodec) Encode(dst []byte, v uint64) { Bin.PutUint64(dst, v) }

func (OffsetCodec) Decode(src []byte) uint64 { return Bin.Uint64(src) }
