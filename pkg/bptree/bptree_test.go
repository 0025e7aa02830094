package bptree

import (
	"math/rand"
	"testing"

	"bptreedb/pkg/stream"

	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T, opts Options) *BPlusTree[Uint64, Uint64] {
	t.Helper()
	tree, err := Open[Uint64, Uint64](stream.NewMemStream(), Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	return tree
}

func collectForward(t *testing.T, tree *BPlusTree[Uint64, Uint64]) []uint64 {
	t.Helper()
	var out []uint64
	for cur := tree.Begin(); cur.Valid(); require.NoError(t, cur.Next()) {
		out = append(out, uint64(cur.Key()))
	}
	return out
}

func collectReverse(t *testing.T, tree *BPlusTree[Uint64, Uint64]) []uint64 {
	t.Helper()
	var out []uint64
	for cur := tree.RBegin(); cur.Valid(); require.NoError(t, cur.Next()) {
		out = append(out, uint64(cur.Key()))
	}
	return out
}

// Scenario 1: a handful of out-of-order inserts fit in a single leaf at
// the default slot count.
func TestScenarioSingleLeafInsertOrder(t *testing.T) {
	tree := openMem(t, DefaultOptions)

	for _, k := range []uint64{5, 1, 9, 3, 7, 2, 8, 4, 6} {
		_, inserted, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
		require.True(t, inserted)
	}

	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}, collectForward(t, tree))
	require.EqualValues(t, 9, tree.Size())
	require.Equal(t, 1, tree.Depth())
}

// Scenarios 2-4: a small cache forces eviction and lazy refaulting while
// 200 ascending keys are inserted, split the tree past a single leaf,
// and exercise forward/backward cursor stepping after a close/reopen.
func TestScenarioSmallCacheManyKeysReopenAndStep(t *testing.T) {
	opts := Options{SlotCount: 63, CacheSize: 4, Compact: false}
	s := stream.NewMemStream()

	tree, err := Open[Uint64, Uint64](s, Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	for k := uint64(0); k < 200; k++ {
		_, inserted, err := tree.Insert(Uint64(k), Uint64(k*10))
		require.NoError(t, err)
		require.True(t, inserted)
	}
	require.NoError(t, tree.Close())

	reopened, err := Open[Uint64, Uint64](stream.NewMemStreamFromBytes(s.Bytes()), Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)

	var want []uint64
	for k := uint64(0); k < 200; k++ {
		want = append(want, k)
	}
	require.Equal(t, want, collectForward(t, reopened))
	require.GreaterOrEqual(t, reopened.Depth(), 2)

	cur, err := reopened.Find(Uint64(57))
	require.NoError(t, err)
	require.True(t, cur.Valid())
	require.EqualValues(t, 57, cur.Key())
	require.EqualValues(t, 570, cur.Value())

	require.NoError(t, cur.Next())
	require.EqualValues(t, 58, cur.Key())
	require.NoError(t, cur.Prev())
	require.NoError(t, cur.Prev())
	require.EqualValues(t, 56, cur.Key())

	require.Equal(t, reverseOf(want), collectReverse(t, reopened))
}

func reverseOf(in []uint64) []uint64 {
	out := make([]uint64, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// Scenario 5: a large random fill survives a close/reopen round trip in
// both iteration directions.
func TestScenarioLargeRandomFillRoundTrip(t *testing.T) {
	opts := Options{SlotCount: 63, CacheSize: 32, Compact: false}
	s := stream.NewMemStream()

	rng := rand.New(rand.NewSource(1))
	keys := rng.Perm(20000)

	tree, err := Open[Uint64, Uint64](s, Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	for _, k := range keys {
		_, inserted, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
		require.True(t, inserted)
	}
	require.EqualValues(t, 20000, tree.Size())
	require.NoError(t, tree.Close())

	reopened, err := Open[Uint64, Uint64](stream.NewMemStreamFromBytes(s.Bytes()), Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	require.EqualValues(t, 20000, reopened.Size())

	forward := collectForward(t, reopened)
	require.Len(t, forward, 20000)
	for i := 1; i < len(forward); i++ {
		require.Less(t, forward[i-1], forward[i])
	}
	require.Equal(t, reverseOf(forward), collectReverse(t, reopened))
}

// Scenario 6: compacting a tree preserves its ascending sequence and
// never grows the file.
func TestScenarioCompactToPreservesOrderAndShrinks(t *testing.T) {
	opts := Options{SlotCount: 8, CacheSize: 16, Compact: false}
	src := stream.NewMemStream()

	tree, err := Open[Uint64, Uint64](src, Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	for k := uint64(0); k < 500; k++ {
		_, _, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
	}

	origSize := tree.eof

	dst := stream.NewMemStream()
	require.NoError(t, tree.CompactTo(dst))

	compactedSize, err := dst.Size()
	require.NoError(t, err)
	require.LessOrEqual(t, compactedSize, origSize)

	compacted, err := Open[Uint64, Uint64](dst, Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	require.True(t, compacted.compact)

	var want []uint64
	for k := uint64(0); k < 500; k++ {
		want = append(want, k)
	}
	require.Equal(t, want, collectForward(t, compacted))
}

// Compaction is deterministic: compacting the same tree twice produces
// byte-identical output.
func TestCompactionIsIdempotentAcrossRuns(t *testing.T) {
	opts := Options{SlotCount: 8, CacheSize: 16, Compact: false}
	s := stream.NewMemStream()

	tree, err := Open[Uint64, Uint64](s, Uint64Codec{}, Uint64Codec{}, opts)
	require.NoError(t, err)
	for k := uint64(0); k < 300; k++ {
		_, _, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
	}

	a := stream.NewMemStream()
	b := stream.NewMemStream()
	require.NoError(t, tree.CompactTo(a))
	require.NoError(t, tree.CompactTo(b))

	require.Equal(t, a.Bytes(), b.Bytes())
}

func TestSingleLeafCompactionProducesValidFile(t *testing.T) {
	tree := openMem(t, DefaultOptions)
	_, _, err := tree.Insert(Uint64(1), Uint64(100))
	require.NoError(t, err)
	_, _, err = tree.Insert(Uint64(2), Uint64(200))
	require.NoError(t, err)

	dst := stream.NewMemStream()
	require.NoError(t, tree.CompactTo(dst))

	compacted, err := Open[Uint64, Uint64](dst, Uint64Codec{}, Uint64Codec{}, DefaultOptions)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, collectForward(t, compacted))
}

func TestInsertDuplicateIsRejected(t *testing.T) {
	tree := openMem(t, DefaultOptions)

	_, inserted, err := tree.Insert(Uint64(1), Uint64(100))
	require.NoError(t, err)
	require.True(t, inserted)

	cur, inserted, err := tree.Insert(Uint64(1), Uint64(999))
	require.NoError(t, err)
	require.False(t, inserted)
	require.EqualValues(t, 100, cur.Value(), "a rejected duplicate insert must not overwrite the existing value")
	require.EqualValues(t, 1, tree.Size())
}

func TestEraseReturnsNotImplemented(t *testing.T) {
	tree := openMem(t, DefaultOptions)
	require.ErrorIs(t, tree.Erase(Uint64(1)), ErrNotImplemented)
}

func TestClearResetsTreeToEmpty(t *testing.T) {
	tree := openMem(t, DefaultOptions)
	for k := uint64(0); k < 10; k++ {
		_, _, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
	}

	require.NoError(t, tree.Clear())
	require.EqualValues(t, 0, tree.Size())
	require.False(t, tree.Begin().Valid())
	require.Equal(t, tree.Begin(), tree.End())
}

func TestPrintDoesNotLeavePinsDangling(t *testing.T) {
	opts := Options{SlotCount: 4, CacheSize: 8, Compact: false}
	tree := openMem(t, opts)
	for k := uint64(0); k < 50; k++ {
		_, _, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
	}

	var buf []byte
	w := &sliceWriter{buf: &buf}
	require.NoError(t, tree.Print(w))
	require.NotEmpty(t, buf)

	// root must still be pinned after Print, exactly as before it ran.
	cur, ok := tree.cache.Find(tree.root.offset, false)
	require.True(t, ok)
	require.True(t, tree.cache.IsPinned(cur))
}

type sliceWriter struct{ buf *[]byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
