package stream

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileStream is a Stream backed by a regular file opened with ordinary
// read/write syscalls. It is the default backend that
// bptree.OpenFile constructs.
type FileStream struct {
	f       *os.File
	pos     uint64
	compact bool
	closed  bool
}

// OpenFile opens (creating if necessary) the named file as a FileStream.
func OpenFile(name string) (*FileStream, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "stream: open file")
	}
	return &FileStream{f: f}, nil
}

func (s *FileStream) Seek(offset uint64) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.f.Seek(int64(offset), io.SeekStart); err != nil {
		return errors.Wrap(err, "stream: seek")
	}
	s.pos = offset
	return nil
}

func (s *FileStream) Tell() uint64 { return s.pos }

func (s *FileStream) Read(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	n, err := io.ReadFull(s.f, buf)
	s.pos += uint64(n)
	if err != nil {
		return errors.Wrap(err, "stream: short read")
	}
	return nil
}

func (s *FileStream) Write(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	n, err := s.f.Write(buf)
	s.pos += uint64(n)
	if err != nil {
		return errors.Wrap(err, "stream: write failed")
	}
	return nil
}

func (s *FileStream) Skip(delta int64) error {
	return s.Seek(uint64(int64(s.pos) + delta))
}

func (s *FileStream) SetCompact(compact bool) { s.compact = compact }

func (s *FileStream) Compact() bool { return s.compact }

func (s *FileStream) Size() (uint64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stream: stat")
	}
	return uint64(info.Size()), nil
}

func (s *FileStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Wrap(s.f.Close(), "stream: close file")
}
