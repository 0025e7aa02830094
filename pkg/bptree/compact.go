package bptree

import (
	"sort"

	"bptreedb/pkg/stream"
)

// compactEntry pairs a resident node with its current offset and the
// byte size it will occupy once rewritten without padding.
type compactEntry[K stream.Ordered[K], V any] struct {
	oldOffset uint64
	size      uint64
	node      *node[K, V]
}

// CompactTo rewrites the tree into dst with padding stripped from
// every record. It runs in two passes: the first
// walks the whole tree (faulting in every node, including ones
// currently swapped out) to compute each node's new offset; the
// second re-walks and writes each node at its assigned offset with
// children/sibling links translated through the old-to-new map. A
// single-leaf tree (root==head==tail) falls out of the same walk with
// no special case.
func (t *BPlusTree[K, V]) CompactTo(dst stream.Stream) error {
	if t.err != nil {
		return t.err
	}
	dst.SetCompact(true)

	if t.root == nil {
		return writeHeader(dst, fileHeader{eof: headerSize, compact: true})
	}

	var entries []*compactEntry[K, V]
	if err := t.collectCompact(t.root, &entries); err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].oldOffset < entries[j].oldOffset })

	offsetMap := make(map[uint64]uint64, len(entries))
	next := uint64(headerSize)
	for _, e := range entries {
		offsetMap[e.oldOffset] = next
		next += e.size
	}

	for _, e := range entries {
		if err := t.writeCompactNode(dst, e.node, offsetMap); err != nil {
			return err
		}
	}

	h := fileHeader{
		itemCount:  t.itemCount,
		compact:    true,
		rootLevel:  t.root.level,
		rootOffset: offsetMap[t.root.offset],
		headOffset: offsetMap[t.head.offset],
		tailOffset: offsetMap[t.tail.offset],
		eof:        next,
	}
	return writeHeader(dst, h)
}

func (t *BPlusTree[K, V]) collectCompact(n *node[K, V], out *[]*compactEntry[K, V]) error {
	*out = append(*out, &compactEntry[K, V]{oldOffset: n.offset, size: t.compactSize(n), node: n})
	if n.isLeaf() {
		return nil
	}
	for i := 0; i <= n.used; i++ {
		child, err := t.getChild(n, i)
		if err != nil {
			return err
		}
		if err := t.collectCompact(child, out); err != nil {
			return err
		}
	}
	return nil
}

func (t *BPlusTree[K, V]) writeCompactNode(dst stream.Stream, n *node[K, V], offsetMap map[uint64]uint64) error {
	if err := dst.Seek(offsetMap[n.offset]); err != nil {
		return err
	}
	if n.isLeaf() {
		return t.writeCompactLeaf(dst, n, offsetMap)
	}
	return t.writeCompactInner(dst, n, offsetMap)
}

func (t *BPlusTree[K, V]) writeCompactLeaf(dst stream.Stream, n *node[K, V], offsetMap map[uint64]uint64) error {
	if err := dst.Write(leafMarker[:]); err != nil {
		return err
	}
	if err := dst.Write([]byte{byte(n.used)}); err != nil {
		return err
	}
	if err := stream.WriteArray(dst, t.kcodec, n.keys[:n.used], t.slots); err != nil {
		return err
	}

	buf8 := make([]byte, 8)
	stream.Bin.PutUint64(buf8, offsetMap[n.next.offset])
	if err := dst.Write(buf8); err != nil {
		return err
	}
	stream.Bin.PutUint64(buf8, offsetMap[n.prev.offset])
	if err := dst.Write(buf8); err != nil {
		return err
	}

	return stream.WriteArray(dst, t.vcodec, n.data[:n.used], t.slots)
}

func (t *BPlusTree[K, V]) writeCompactInner(dst stream.Stream, n *node[K, V], offsetMap map[uint64]uint64) error {
	if err := dst.Write([]byte{byte(n.used)}); err != nil {
		return err
	}
	if err := stream.WriteArray(dst, t.kcodec, n.keys[:n.used], t.slots); err != nil {
		return err
	}

	offsets := make([]uint64, n.used+1)
	for i := 0; i <= n.used; i++ {
		offsets[i] = offsetMap[n.children[i].offset]
	}
	return stream.WriteArray(dst, stream.OffsetCodec{}, offsets, t.slots+1)
}
