package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStreamReadWriteRoundTrip(t *testing.T) {
	s := NewMemStream()

	require.NoError(t, s.Write([]byte("hello")))
	size, err := s.Size()
	require.NoError(t, err)
	require.EqualValues(t, 5, size)

	require.NoError(t, s.Seek(0))
	buf := make([]byte, 5)
	require.NoError(t, s.Read(buf))
	require.Equal(t, "hello", string(buf))
}

func TestMemStreamSkipAdvancesWithoutWriting(t *testing.T) {
	s := NewMemStream()
	require.NoError(t, s.Write([]byte("ab")))
	require.NoError(t, s.Skip(6))
	require.NoError(t, s.Write([]byte("cd")))

	size, err := s.Size()
	require.NoError(t, err)
	require.EqualValues(t, 10, size)

	require.NoError(t, s.Seek(2))
	gap := make([]byte, 6)
	require.NoError(t, s.Read(gap))
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0}, gap)
}

func TestWriteArrayReadArrayCompactRoundTrip(t *testing.T) {
	s := NewMemStream()
	s.SetCompact(true)

	in := []uint64{10, 20, 30}
	require.NoError(t, WriteArray(s, OffsetCodec{}, in, 8))

	size, err := s.Size()
	require.NoError(t, err)
	require.EqualValues(t, 3*8, size, "compact mode must not pad unused slots")

	require.NoError(t, s.Seek(0))
	out, err := ReadArray[uint64](s, OffsetCodec{}, 3, 8)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestWriteArrayReadArrayPaddedRoundTrip(t *testing.T) {
	s := NewMemStream()
	s.SetCompact(false)

	in := []uint64{10, 20, 30}
	require.NoError(t, WriteArray(s, OffsetCodec{}, in, 8))

	size, err := s.Size()
	require.NoError(t, err)
	require.EqualValues(t, 3*8, size, "non-compact padding after the last written slot is skipped, not written")

	require.NoError(t, s.Seek(0))
	out, err := ReadArray[uint64](s, OffsetCodec{}, 3, 8)
	require.NoError(t, err)
	require.Equal(t, in, out)

	// the cursor must land exactly past the padded region for the next field
	require.EqualValues(t, 8*8, s.Tell())
}

func TestFileStreamRoundTrip(t *testing.T) {
	name := t.TempDir() + "/stream.db"
	s, err := OpenFile(name)
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte("payload")))
	require.NoError(t, s.Seek(0))
	buf := make([]byte, 7)
	require.NoError(t, s.Read(buf))
	require.Equal(t, "payload", string(buf))
	require.NoError(t, s.Close())

	s2, err := OpenFile(name)
	require.NoError(t, err)
	defer s2.Close()
	size, err := s2.Size()
	require.NoError(t, err)
	require.EqualValues(t, 7, size)
}

func TestMMapStreamGrowsAndRoundTrips(t *testing.T) {
	name := t.TempDir() + "/stream.mmap"
	s, err := OpenMMap(name)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write([]byte("grown past the initial empty mapping")))
	require.NoError(t, s.Seek(0))
	buf := make([]byte, len("grown past the initial empty mapping"))
	require.NoError(t, s.Read(buf))
	require.Equal(t, "grown past the initial empty mapping", string(buf))
}
