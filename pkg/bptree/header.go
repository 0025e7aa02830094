package bptree

import (
	"bptreedb/pkg/stream"

	"github.com/pkg/errors"
)

var signature = [2]byte{'B', '+'}
var leafMarker = [2]byte{'<', '>'}

// headerSize includes an explicit eof offset. Without it, reopening a
// file would have to infer the next allocation point from the stream's
// physical length, which is unreliable once non-compact padding has
// been skipped (never written) past the last node in the file. See
// DESIGN.md.
const headerSize = 2 + 8 + 1 + 1 + 8 + 8 + 8 + 8 // sig+item_count+flags+root_level+root+head+tail+eof

type fileHeader struct {
	itemCount                          uint64
	compact                            bool
	rootLevel                          uint8
	rootOffset, headOffset, tailOffset uint64
	eof                                uint64
}

func readHeader(s stream.Stream) (fileHeader, error) {
	if err := s.Seek(0); err != nil {
		return fileHeader{}, errors.Wrap(err, "bptree: seek header")
	}

	var sig [2]byte
	if err := s.Read(sig[:]); err != nil {
		return fileHeader{}, errors.Wrap(ErrShortRead, err.Error())
	}
	if sig != signature {
		return fileHeader{}, ErrBadSignature
	}

	var h fileHeader
	buf8 := make([]byte, 8)
	buf1 := make([]byte, 1)

	if err := s.Read(buf8); err != nil {
		return fileHeader{}, errors.Wrap(ErrShortRead, err.Error())
	}
	h.itemCount = stream.Bin.Uint64(buf8)

	if err := s.Read(buf1); err != nil {
		return fileHeader{}, errors.Wrap(ErrShortRead, err.Error())
	}
	h.compact = buf1[0]&1 != 0

	if err := s.Read(buf1); err != nil {
		return fileHeader{}, errors.Wrap(ErrShortRead, err.Error())
	}
	h.rootLevel = buf1[0]

	for _, dst := range []*uint64{&h.rootOffset, &h.headOffset, &h.tailOffset, &h.eof} {
		if err := s.Read(buf8); err != nil {
			return fileHeader{}, errors.Wrap(ErrShortRead, err.Error())
		}
		*dst = stream.Bin.Uint64(buf8)
	}

	return h, nil
}

func writeHeader(s stream.Stream, h fileHeader) error {
	if err := s.Seek(0); err != nil {
		return errors.Wrap(err, "bptree: seek header")
	}
	if err := s.Write(signature[:]); err != nil {
		return errors.Wrap(err, "bptree: write signature")
	}

	buf8 := make([]byte, 8)
	stream.Bin.PutUint64(buf8, h.itemCount)
	if err := s.Write(buf8); err != nil {
		return errors.Wrap(err, "bptree: write item_count")
	}

	flags := byte(0)
	if h.compact {
		flags = 1
	}
	if err := s.Write([]byte{flags}); err != nil {
		return errors.Wrap(err, "bptree: write flags")
	}
	if err := s.Write([]byte{h.rootLevel}); err != nil {
		return errors.Wrap(err, "bptree: write root_level")
	}

	for _, v := range []uint64{h.rootOffset, h.headOffset, h.tailOffset, h.eof} {
		stream.Bin.PutUint64(buf8, v)
		if err := s.Write(buf8); err != nil {
			return errors.Wrap(err, "bptree: write header offset field")
		}
	}
	return nil
}
