package stream

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// growthChunk is the amount a memory-mapped stream over-allocates by
// when it has to grow the backing file, so that a run of small writes
// near the current end doesn't force a remap on every single one.
const growthChunk = 1 << 20 // 1 MiB

// MMapStream is a Stream backed by a memory-mapped file, wired in as an
// alternative to FileStream for hosts where page-cache-free access to
// node records matters more than syscall-per-read/write simplicity.
// Selected via Options.Backend == BackendMMap.
type MMapStream struct {
	f       *os.File
	m       mmap.MMap
	pos     uint64
	compact bool
	closed  bool
}

// OpenMMap opens (creating if necessary) the named file and maps it into
// memory for reading and writing.
func OpenMMap(name string) (*MMapStream, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "stream: open file for mmap")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stream: stat")
	}

	s := &MMapStream{f: f}
	if err := s.remap(uint64(info.Size())); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *MMapStream) remap(size uint64) error {
	if s.m != nil {
		if err := s.m.Unmap(); err != nil {
			return errors.Wrap(err, "stream: unmap")
		}
		s.m = nil
	}

	if size == 0 {
		// mmap-go refuses to map a zero-length file; leave m nil until
		// the first grow gives it something to map.
		return nil
	}

	m, err := mmap.Map(s.f, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "stream: map")
	}
	s.m = m
	return nil
}

func (s *MMapStream) grow(minSize uint64) error {
	if uint64(len(s.m)) >= minSize {
		return nil
	}

	newSize := minSize + growthChunk
	if err := s.f.Truncate(int64(newSize)); err != nil {
		return errors.Wrap(err, "stream: truncate for grow")
	}
	return s.remap(newSize)
}

func (s *MMapStream) Seek(offset uint64) error {
	if s.closed {
		return ErrClosed
	}
	s.pos = offset
	return nil
}

func (s *MMapStream) Tell() uint64 { return s.pos }

func (s *MMapStream) Read(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	end := s.pos + uint64(len(buf))
	if end > uint64(len(s.m)) {
		return errors.New("stream: short read past end of mapping")
	}
	copy(buf, s.m[s.pos:end])
	s.pos = end
	return nil
}

func (s *MMapStream) Write(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	end := s.pos + uint64(len(buf))
	if err := s.grow(end); err != nil {
		return err
	}
	copy(s.m[s.pos:end], buf)
	s.pos = end
	return nil
}

func (s *MMapStream) Skip(delta int64) error {
	return s.Seek(uint64(int64(s.pos) + delta))
}

func (s *MMapStream) SetCompact(compact bool) { s.compact = compact }

func (s *MMapStream) Compact() bool { return s.compact }

func (s *MMapStream) Size() (uint64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stream: stat")
	}
	return uint64(info.Size()), nil
}

func (s *MMapStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.m != nil {
		err = s.m.Unmap()
	}
	if cerr := s.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return errors.Wrap(err, "stream: close mmap")
}
