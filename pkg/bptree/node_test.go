package bptree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLowerBound(t *testing.T) {
	keys := []Uint64{1, 3, 5, 7, 9}

	require.Equal(t, 0, lowerBound(keys, Uint64(0)))
	require.Equal(t, 0, lowerBound(keys, Uint64(1)))
	require.Equal(t, 2, lowerBound(keys, Uint64(4)))
	require.Equal(t, 4, lowerBound(keys, Uint64(9)))
	require.Equal(t, 5, lowerBound(keys, Uint64(10)))
}

func TestInsertLeafAtShiftsRight(t *testing.T) {
	n := &node[Uint64, Uint64]{
		keys: make([]Uint64, 0, 4),
		data: make([]Uint64, 0, 4),
	}
	n.insertLeafAt(0, 5, 50)
	n.insertLeafAt(1, 7, 70)
	n.insertLeafAt(0, 1, 10)
	n.insertLeafAt(2, 6, 60)

	require.Equal(t, []Uint64{1, 5, 6, 7}, n.keys)
	require.Equal(t, []Uint64{10, 50, 60, 70}, n.data)
	require.Equal(t, 4, n.used)
	require.True(t, n.dirty)
}

func TestInsertInnerAtShiftsRightAndReparents(t *testing.T) {
	left := &node[Uint64, Uint64]{offset: 1}
	right := &node[Uint64, Uint64]{offset: 2}

	n := &node[Uint64, Uint64]{
		level:    1,
		keys:     make([]Uint64, 0, 4),
		children: make([]ref[Uint64, Uint64], 0, 5),
	}
	n.children = append(n.children, refTo(left))
	n.used = 0

	n.insertInnerAt(0, 10, 1, refTo(right))

	require.Equal(t, []Uint64{10}, n.keys)
	require.Equal(t, 1, n.used)
	require.Same(t, left, n.children[0].node)
	require.Same(t, right, n.children[1].node)
	require.Same(t, n, right.parent)
}

// Split parity for the default slot count follows the
// mid = ceil((S+1)/2) rule: 64 logical entries split 32/32.
func TestSplitLeafBalancesDefaultSlotCount(t *testing.T) {
	tree := openMem(t, DefaultOptions)

	for k := uint64(0); k < 64; k++ {
		_, _, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
	}

	require.NotNil(t, tree.head)
	require.NotNil(t, tree.tail)
	require.NotSame(t, tree.head, tree.tail, "64 inserts at S=63 must have split into at least two leaves")
	require.Equal(t, 32, tree.head.used)
	require.Equal(t, 32, tree.tail.used)
}

// Split parity for a slot count whose S+1 is odd leaves one more entry
// on the left than the right, per the same ceil() rule: S=6 gives 7
// logical entries split 4/3.
func TestSplitLeafBalancesUnevenSlotCount(t *testing.T) {
	tree := openMem(t, Options{SlotCount: 6, CacheSize: 16})

	for k := uint64(0); k < 7; k++ {
		_, _, err := tree.Insert(Uint64(k), Uint64(k))
		require.NoError(t, err)
	}

	require.NotSame(t, tree.head, tree.tail)
	require.Equal(t, 4, tree.head.used)
	require.Equal(t, 3, tree.tail.used)
}
