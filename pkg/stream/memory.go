package stream

import "github.com/pkg/errors"

// MemStream is a Stream backed by a growable in-memory buffer. Used for
// the ":memory:" tree instance and throughout the test suite where a
// real file would only add noise.
type MemStream struct {
	buf     []byte
	pos     uint64
	compact bool
	closed  bool
}

// NewMemStream returns an empty in-memory stream.
func NewMemStream() *MemStream {
	return &MemStream{}
}

// NewMemStreamFromBytes wraps an existing buffer in a fresh, open
// MemStream, simulating what closing and reopening a real file does
// without actually touching a filesystem.
func NewMemStreamFromBytes(data []byte) *MemStream {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &MemStream{buf: buf}
}

func (s *MemStream) Seek(offset uint64) error {
	if s.closed {
		return ErrClosed
	}
	s.pos = offset
	return nil
}

func (s *MemStream) Tell() uint64 { return s.pos }

func (s *MemStream) Read(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	end := s.pos + uint64(len(buf))
	if end > uint64(len(s.buf)) {
		return errors.New("stream: short read past end of buffer")
	}
	copy(buf, s.buf[s.pos:end])
	s.pos = end
	return nil
}

func (s *MemStream) Write(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	end := s.pos + uint64(len(buf))
	if end > uint64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], buf)
	s.pos = end
	return nil
}

func (s *MemStream) Skip(delta int64) error {
	return s.Seek(uint64(int64(s.pos) + delta))
}

func (s *MemStream) SetCompact(compact bool) { s.compact = compact }

func (s *MemStream) Compact() bool { return s.compact }

func (s *MemStream) Size() (uint64, error) { return uint64(len(s.buf)), nil }

func (s *MemStream) Close() error {
	s.closed = true
	return nil
}

// Bytes returns the stream's current backing buffer, for tests and
// diagnostics that need to compare two in-memory streams byte for byte.
func (s *MemStream) Bytes() []byte { return s.buf }
