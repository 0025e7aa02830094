// Package bptree implements an on-disk B+ tree index fronted by a
// bounded LRU cache of resident nodes. A single BPlusTree owns its
// backing stream exclusively for the duration it is open; every public
// method runs to completion on the caller's goroutine, and nothing here
// is safe for concurrent use from more than one goroutine at a time.
package bptree

import (
	"fmt"
	"io"
	"strings"

	"bptreedb/pkg/lru"
	"bptreedb/pkg/stream"
	applog "bptreedb/util/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BPlusTree is an embedded, ordered key -> value index over a
// stream.Stream.
type BPlusTree[K stream.Ordered[K], V any] struct {
	stream stream.Stream
	kcodec stream.Codec[K]
	vcodec stream.Codec[V]

	slots     int
	leafSize  uint64
	innerSize uint64

	cache *lru.Cache[uint64, *node[K, V]]

	root, head, tail *node[K, V]
	pinnedSpecial    map[uint64]struct{}

	itemCount   uint64
	eof         uint64
	compact     bool
	headerDirty bool

	err    error
	closed bool

	log *logrus.Entry
}

// Open initializes a fresh tree on an empty stream, or resumes an
// existing one.
func Open[K stream.Ordered[K], V any](s stream.Stream, kcodec stream.Codec[K], vcodec stream.Codec[V], opts Options) (*BPlusTree[K, V], error) {
	if opts.SlotCount <= 0 {
		opts = DefaultOptions
	}

	t := &BPlusTree[K, V]{
		stream:        s,
		kcodec:        kcodec,
		vcodec:        vcodec,
		slots:         opts.SlotCount,
		pinnedSpecial: map[uint64]struct{}{},
		log:           applog.L.WithField("component", "bptree"),
	}
	t.leafSize = uint64(2 + 1 + t.slots*kcodec.Size() + 8 + 8 + t.slots*vcodec.Size())
	t.innerSize = uint64(1 + t.slots*kcodec.Size() + (t.slots+1)*8)
	t.cache = lru.NewWithStats[uint64, *node[K, V]](opts.CacheSize, &nodeManager[K, V]{tree: t}, &lru.RealStats{})

	size, err := s.Size()
	if err != nil {
		return nil, errors.Wrap(err, "bptree: stat stream")
	}

	if size == 0 {
		t.compact = opts.Compact
		s.SetCompact(t.compact)
		t.eof = headerSize
		if err := writeHeader(s, fileHeader{eof: t.eof}); err != nil {
			return nil, err
		}
		return t, nil
	}

	h, err := readHeader(s)
	if err != nil {
		return nil, err
	}
	t.compact = h.compact
	s.SetCompact(t.compact)
	t.itemCount = h.itemCount
	t.eof = h.eof

	if h.rootOffset != 0 {
		t.root, err = t.loadNode(h.rootOffset, h.rootLevel == 0, h.rootLevel)
		if err != nil {
			return nil, err
		}
		if err := t.admit(t.root); err != nil {
			return nil, err
		}

		t.head, err = t.residentLeafAt(h.headOffset)
		if err != nil {
			return nil, err
		}
		t.tail, err = t.residentLeafAt(h.tailOffset)
		if err != nil {
			return nil, err
		}
		t.syncPins()
	}

	return t, nil
}

// OpenFile is a convenience wrapper around Open that constructs the
// stream.Stream backend named by opts.Backend over the given path.
// Pass ":memory:" for an in-memory tree backed by stream.MemStream.
func OpenFile[K stream.Ordered[K], V any](path string, kcodec stream.Codec[K], vcodec stream.Codec[V], opts Options) (*BPlusTree[K, V], error) {
	var s stream.Stream
	switch {
	case path == ":memory:", opts.Backend == BackendMemory:
		s = stream.NewMemStream()
	case opts.Backend == BackendMMap:
		mm, err := stream.OpenMMap(path)
		if err != nil {
			return nil, err
		}
		s = mm
	default:
		fs, err := stream.OpenFile(path)
		if err != nil {
			return nil, err
		}
		s = fs
	}
	return Open[K, V](s, kcodec, vcodec, opts)
}

// residentLeafAt returns the already-resident root/head/tail node at
// offset if one of those aliases it, else faults it in as a leaf.
func (t *BPlusTree[K, V]) residentLeafAt(offset uint64) (*node[K, V], error) {
	if t.root != nil && t.root.offset == offset {
		return t.root, nil
	}
	if t.head != nil && t.head.offset == offset {
		return t.head, nil
	}
	n, err := t.loadNode(offset, true, 0)
	if err != nil {
		return nil, err
	}
	t.rewireSiblings(n)
	if err := t.admit(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *BPlusTree[K, V]) poison(err error) {
	if t.err == nil {
		t.err = err
		t.log.WithError(err).Error("tree poisoned by flush/I-O failure")
	}
}

// Size returns the number of live keys.
func (t *BPlusTree[K, V]) Size() uint64 { return t.itemCount }

// Depth returns the tree's height in levels; a single-leaf tree has
// depth 1.
func (t *BPlusTree[K, V]) Depth() int {
	if t.root == nil {
		return 0
	}
	return int(t.root.level) + 1
}

// CacheStats surfaces the resident-node cache's hit/miss counters.
func (t *BPlusTree[K, V]) CacheStats() lru.Stats { return t.cache.Stats() }

// syncPins reconciles the cache's pin set with {root, head, tail},
// which must always stay resident and immune to eviction while the
// tree is open.
func (t *BPlusTree[K, V]) syncPins() {
	want := map[uint64]struct{}{}
	if t.root != nil {
		want[t.root.offset] = struct{}{}
	}
	if t.head != nil {
		want[t.head.offset] = struct{}{}
	}
	if t.tail != nil {
		want[t.tail.offset] = struct{}{}
	}

	for offset := range t.pinnedSpecial {
		if _, ok := want[offset]; !ok {
			if cur, ok := t.cache.Find(offset, false); ok {
				t.cache.Unpin(cur)
			}
			delete(t.pinnedSpecial, offset)
		}
	}
	for offset := range want {
		if _, ok := t.pinnedSpecial[offset]; !ok {
			if cur, ok := t.cache.Find(offset, false); ok {
				t.cache.Pin(cur)
			}
			t.pinnedSpecial[offset] = struct{}{}
		}
	}
}

// admit inserts a freshly allocated or loaded node into the cache.
func (t *BPlusTree[K, V]) admit(n *node[K, V]) error {
	cur, _, err := t.cache.Get(n.offset)
	if err != nil {
		return err
	}
	cur.Set(n)
	return nil
}

func (t *BPlusTree[K, V]) allocLeaf() (*node[K, V], error) {
	n := &node[K, V]{
		offset: t.eof,
		level:  0,
		keys:   make([]K, 0, t.slots),
		data:   make([]V, 0, t.slots),
	}
	t.eof += t.leafSize
	t.headerDirty = true
	if err := t.admit(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *BPlusTree[K, V]) allocInner(level uint8) (*node[K, V], error) {
	n := &node[K, V]{
		offset:   t.eof,
		level:    level,
		keys:     make([]K, 0, t.slots),
		children: make([]ref[K, V], 0, t.slots+1),
	}
	t.eof += t.innerSize
	t.headerDirty = true
	if err := t.admit(n); err != nil {
		return nil, err
	}
	return n, nil
}

// findChildIndex is the inner-node descent rule: the first position p
// with keys[p] >= key; child p+1 if keys[p] == key, else child p.
func (t *BPlusTree[K, V]) findChildIndex(n *node[K, V], key K) int {
	p := lowerBound(n.keys[:n.used], key)
	if p < n.used && n.keys[p].Compare(key) == 0 {
		return p + 1
	}
	return p
}

// getChild lazily faults in a child: promote the parent (unless it's
// the pinned root), return the resident child if the slot already
// holds one, otherwise load it from the stream and link it into the
// parent.
func (t *BPlusTree[K, V]) getChild(parent *node[K, V], i int) (*node[K, V], error) {
	if parent != t.root {
		t.cache.Touch(parent.offset)
	}

	r := &parent.children[i]
	if r.node != nil {
		if r.node != t.head && r.node != t.tail {
			t.cache.Touch(r.node.offset)
		}
		return r.node, nil
	}

	if cur, ok := t.cache.Find(r.offset, true); ok {
		child := cur.Value()
		parent.children[i] = refTo(child)
		child.parent = parent
		return child, nil
	}

	child, err := t.loadNode(r.offset, parent.level == 1, parent.level-1)
	if err != nil {
		return nil, err
	}
	if child.isLeaf() {
		t.rewireSiblings(child)
	}
	if err := t.admit(child); err != nil {
		return nil, err
	}
	parent.children[i] = refTo(child)
	child.parent = parent
	return child, nil
}

// faultLeaf resolves a sibling ref into a resident leaf, loading it
// from the stream if necessary.
func (t *BPlusTree[K, V]) faultLeaf(r ref[K, V]) (*node[K, V], error) {
	if r.node != nil {
		t.cache.Touch(r.offset)
		return r.node, nil
	}
	if cur, ok := t.cache.Find(r.offset, true); ok {
		return cur.Value(), nil
	}
	leaf, err := t.loadNode(r.offset, true, 0)
	if err != nil {
		return nil, err
	}
	t.rewireSiblings(leaf)
	if err := t.admit(leaf); err != nil {
		return nil, err
	}
	return leaf, nil
}

// rewireSiblings cross-links a newly faulted-in leaf with any already
// resident neighbor.
func (t *BPlusTree[K, V]) rewireSiblings(leaf *node[K, V]) {
	if leaf.next.offset != 0 {
		var nextNode *node[K, V]
		switch {
		case t.head != nil && leaf.next.offset == t.head.offset:
			nextNode = t.head
		case t.tail != nil && leaf.next.offset == t.tail.offset:
			nextNode = t.tail
		default:
			if cur, ok := t.cache.Find(leaf.next.offset, false); ok {
				nextNode = cur.Value()
			}
		}
		if nextNode != nil {
			leaf.next = refTo(nextNode)
			nextNode.prev = refTo(leaf)
		}
	}

	if leaf.prev.offset != 0 {
		var prevNode *node[K, V]
		switch {
		case t.head != nil && leaf.prev.offset == t.head.offset:
			prevNode = t.head
		case t.tail != nil && leaf.prev.offset == t.tail.offset:
			prevNode = t.tail
		default:
			if cur, ok := t.cache.Find(leaf.prev.offset, false); ok {
				prevNode = cur.Value()
			}
		}
		if prevNode != nil {
			leaf.prev = refTo(prevNode)
			prevNode.next = refTo(leaf)
		}
	}
}

// Find returns a cursor to the first slot whose key is >= key. A tree
// with no such key returns a cursor positioned past-the-end of the
// leaf the search reached.
func (t *BPlusTree[K, V]) Find(key K) (Cursor[K, V], error) {
	if t.err != nil {
		return Cursor[K, V]{}, t.err
	}
	if t.root == nil {
		return Cursor[K, V]{tree: t}, nil
	}

	n := t.root
	for !n.isLeaf() {
		idx := t.findChildIndex(n, key)
		child, err := t.getChild(n, idx)
		if err != nil {
			t.poison(err)
			return Cursor[K, V]{}, err
		}
		n = child
	}

	pos := lowerBound(n.keys[:n.used], key)
	return Cursor[K, V]{tree: t, leaf: n, idx: pos}, nil
}

// Begin returns a cursor to the smallest key, or End() if empty.
func (t *BPlusTree[K, V]) Begin() Cursor[K, V] {
	if t.head == nil || t.itemCount == 0 {
		return t.End()
	}
	return Cursor[K, V]{tree: t, leaf: t.head, idx: 0}
}

// End returns the past-the-end forward cursor.
func (t *BPlusTree[K, V]) End() Cursor[K, V] { return Cursor[K, V]{tree: t} }

// RBegin returns a reverse cursor to the largest key, or REnd() if
// empty.
func (t *BPlusTree[K, V]) RBegin() ReverseCursor[K, V] {
	if t.tail == nil || t.itemCount == 0 {
		return t.REnd()
	}
	return ReverseCursor[K, V]{fwd: Cursor[K, V]{tree: t, leaf: t.tail, idx: t.tail.used - 1}}
}

// REnd returns the past-the-beginning reverse cursor.
func (t *BPlusTree[K, V]) REnd() ReverseCursor[K, V] {
	return ReverseCursor[K, V]{fwd: Cursor[K, V]{tree: t}}
}

// Insert inserts key if absent and returns a cursor to its slot. A
// duplicate key returns a cursor to the existing slot and reports
// inserted=false without bumping Size().
func (t *BPlusTree[K, V]) Insert(key K, val V) (cur Cursor[K, V], inserted bool, err error) {
	if t.err != nil {
		return Cursor[K, V]{}, false, t.err
	}

	if t.root == nil {
		leaf, err := t.allocLeaf()
		if err != nil {
			t.poison(err)
			return Cursor[K, V]{}, false, err
		}
		t.root, t.head, t.tail = leaf, leaf, leaf
		t.syncPins()
	}

	sepKey, newRight, cur, existed, err := t.insertDescend(t.root, key, val)
	if err != nil {
		t.poison(err)
		return Cursor[K, V]{}, false, err
	}

	if newRight != nil {
		newRoot, err := t.allocInner(t.root.level + 1)
		if err != nil {
			t.poison(err)
			return Cursor[K, V]{}, false, err
		}
		newRoot.keys = append(newRoot.keys, sepKey)
		newRoot.children = append(newRoot.children, refTo(t.root), refTo(newRight))
		newRoot.used = 1
		newRoot.dirty = true
		t.root.parent = newRoot
		newRight.parent = newRoot
		t.root = newRoot
		t.syncPins()
	}

	if !existed {
		t.itemCount++
		t.headerDirty = true
	}
	return cur, !existed, nil
}

// insertDescend recurses to the target leaf, carrying back an optional
// (separator, new right sibling) pair when a split propagates up.
func (t *BPlusTree[K, V]) insertDescend(n *node[K, V], key K, val V) (sepKey K, newRight *node[K, V], cur Cursor[K, V], existed bool, err error) {
	if n.isLeaf() {
		pos := lowerBound(n.keys[:n.used], key)
		if pos < n.used && n.keys[pos].Compare(key) == 0 {
			return sepKey, nil, Cursor[K, V]{tree: t, leaf: n, idx: pos}, true, nil
		}
		if n.used < t.slots {
			n.insertLeafAt(pos, key, val)
			return sepKey, nil, Cursor[K, V]{tree: t, leaf: n, idx: pos}, false, nil
		}
		sepKey, newRight, cur, err = t.splitLeaf(n, pos, key, val)
		return sepKey, newRight, cur, false, err
	}

	childIdx := t.findChildIndex(n, key)
	child, err := t.getChild(n, childIdx)
	if err != nil {
		return sepKey, nil, cur, false, err
	}

	sk, nr, cur, existed, err := t.insertDescend(child, key, val)
	if err != nil || nr == nil {
		return sepKey, nil, cur, existed, err
	}

	if n.used < t.slots {
		n.insertInnerAt(childIdx, sk, childIdx+1, refTo(nr))
		return sepKey, nil, cur, existed, nil
	}

	sepKey, newRight, err = t.splitInner(n, childIdx, sk, nr)
	return sepKey, newRight, cur, existed, err
}

// splitLeaf builds the S+1 logical entries (S existing plus the new
// one), keeps the first mid in the old (left) leaf and moves the other
// S+1-mid to the new (right) leaf, where mid = ceil((S+1)/2), relinks
// siblings, and reports the
// separator (the new right leaf's first key) plus a cursor to the
// inserted key.
func (t *BPlusTree[K, V]) splitLeaf(n *node[K, V], pos int, key K, val V) (sepKey K, newRight *node[K, V], cur Cursor[K, V], err error) {
	S := t.slots
	keys := make([]K, S+1)
	vals := make([]V, S+1)

	copy(keys[:pos], n.keys[:pos])
	copy(vals[:pos], n.data[:pos])
	keys[pos] = key
	vals[pos] = val
	copy(keys[pos+1:], n.keys[pos:n.used])
	copy(vals[pos+1:], n.data[pos:n.used])

	mid := (S + 2) / 2
	leftLen, rightLen := mid, S+1-mid

	n.keys = append(n.keys[:0], keys[:leftLen]...)
	n.data = append(n.data[:0], vals[:leftLen]...)
	n.used = leftLen
	n.dirty = true

	newRight, err = t.allocLeaf()
	if err != nil {
		return
	}
	newRight.keys = append(newRight.keys[:0], keys[leftLen:]...)
	newRight.data = append(newRight.data[:0], vals[leftLen:]...)
	newRight.used = rightLen
	newRight.dirty = true

	if n.next.node == nil && n.next.offset != 0 {
		// The old next leaf is swapped out; fault it in so its prev link
		// can be repointed at newRight below.
		var next *node[K, V]
		if next, err = t.faultLeaf(n.next); err != nil {
			return
		}
		n.next = refTo(next)
	}
	newRight.next = n.next
	newRight.prev = refTo(n)
	if n.next.node != nil {
		n.next.node.prev = refTo(newRight)
		n.next.node.dirty = true
	}
	n.next = refTo(newRight)

	if n == t.tail {
		t.tail = newRight
		t.syncPins()
	}

	if pos < leftLen {
		cur = Cursor[K, V]{tree: t, leaf: n, idx: pos}
	} else {
		cur = Cursor[K, V]{tree: t, leaf: newRight, idx: pos - leftLen}
	}
	sepKey = newRight.keys[0]
	return
}

// splitInner splits an overfull inner node; the separator is promoted
// to the grandparent rather than retained on either side.
func (t *BPlusTree[K, V]) splitInner(n *node[K, V], childIdx int, newSepKey K, newChild *node[K, V]) (promoted K, newRight *node[K, V], err error) {
	S := t.slots
	combKeys := make([]K, S+1)
	combChildren := make([]ref[K, V], S+2)

	copy(combKeys[:childIdx], n.keys[:childIdx])
	combKeys[childIdx] = newSepKey
	copy(combKeys[childIdx+1:], n.keys[childIdx:S])

	copy(combChildren[:childIdx+1], n.children[:childIdx+1])
	combChildren[childIdx+1] = refTo(newChild)
	copy(combChildren[childIdx+2:], n.children[childIdx+1:S+1])

	mid := (S + 2) / 2
	promoted = combKeys[mid]

	n.keys = append(n.keys[:0], combKeys[:mid]...)
	n.children = append(n.children[:0], combChildren[:mid+1]...)
	n.used = mid
	n.dirty = true

	newRight, err = t.allocInner(n.level)
	if err != nil {
		return
	}
	newRight.keys = append(newRight.keys[:0], combKeys[mid+1:]...)
	newRight.children = append(newRight.children[:0], combChildren[mid+1:]...)
	newRight.used = S - mid
	newRight.dirty = true

	for i := range n.children {
		if n.children[i].node != nil {
			n.children[i].node.parent = n
		}
	}
	for i := range newRight.children {
		if newRight.children[i].node != nil {
			newRight.children[i].node.parent = newRight
		}
	}
	return
}

// Erase is not implemented.
func (t *BPlusTree[K, V]) Erase(key K) error { return ErrNotImplemented }

// Clear drops all resident state and resets item_count/eof to the
// header's end.
func (t *BPlusTree[K, V]) Clear() error {
	if err := t.cache.Clear(); err != nil {
		t.poison(err)
		return err
	}

	t.root, t.head, t.tail = nil, nil, nil
	t.pinnedSpecial = map[uint64]struct{}{}
	t.itemCount = 0
	t.eof = headerSize
	t.headerDirty = false
	return writeHeader(t.stream, fileHeader{eof: t.eof, compact: t.compact})
}

// Close clears the cache (flushing every resident dirty node), writes
// the header if it changed, and releases the stream. It always
// attempts the final flush and returns whatever error resulted, even
// on an already-poisoned tree.
func (t *BPlusTree[K, V]) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.cache.Clear(); err != nil {
		return err
	}

	if t.headerDirty {
		h := fileHeader{itemCount: t.itemCount, compact: t.compact, eof: t.eof}
		if t.root != nil {
			h.rootLevel = t.root.level
			h.rootOffset = t.root.offset
			h.headOffset = t.head.offset
			h.tailOffset = t.tail.offset
		}
		if err := writeHeader(t.stream, h); err != nil {
			return err
		}
		t.headerDirty = false
	}

	return t.stream.Close()
}

// Print writes a diagnostic dump of the tree, pinning each descended
// inner node for the duration of its subtree traversal so it cannot
// self-evict mid-walk.
func (t *BPlusTree[K, V]) Print(w io.Writer) error {
	if t.root == nil {
		fmt.Fprintln(w, "<empty>")
		return nil
	}
	return t.printNode(w, t.root, 0)
}

func (t *BPlusTree[K, V]) printNode(w io.Writer, n *node[K, V], depth int) error {
	indent := strings.Repeat("  ", depth)
	if n.isLeaf() {
		fmt.Fprintf(w, "%sleaf@%d used=%d keys=%v\n", indent, n.offset, n.used, n.keys[:n.used])
		return nil
	}
	fmt.Fprintf(w, "%sinner@%d level=%d used=%d keys=%v\n", indent, n.offset, n.level, n.used, n.keys[:n.used])

	weOwnPin := false
	if cur, ok := t.cache.Find(n.offset, false); ok && !t.cache.IsPinned(cur) {
		t.cache.Pin(cur)
		weOwnPin = true
		defer func() {
			if weOwnPin {
				t.cache.Unpin(cur)
			}
		}()
	}

	for i := 0; i <= n.used; i++ {
		child, err := t.getChild(n, i)
		if err != nil {
			return err
		}
		if err := t.printNode(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// loadNode reads a node record from the stream at offset. level must
// be supplied by the caller (the parent's level minus one, or the
// header's root_level for the root): node records on disk carry no
// level field of their own.
func (t *BPlusTree[K, V]) loadNode(offset uint64, isLeaf bool, level uint8) (*node[K, V], error) {
	if err := t.stream.Seek(offset); err != nil {
		return nil, errors.Wrap(err, "bptree: seek node")
	}
	if isLeaf {
		return t.readLeaf(offset)
	}
	return t.readInner(offset, level)
}

func (t *BPlusTree[K, V]) readLeaf(offset uint64) (*node[K, V], error) {
	var marker [2]byte
	if err := t.stream.Read(marker[:]); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	if marker != leafMarker {
		return nil, ErrCorruption
	}

	usedBuf := make([]byte, 1)
	if err := t.stream.Read(usedBuf); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	used := int(usedBuf[0])

	keys, err := stream.ReadArray[K](t.stream, t.kcodec, used, t.slots)
	if err != nil {
		return nil, err
	}

	offBuf := make([]byte, 8)
	if err := t.stream.Read(offBuf); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	nextOffset := stream.Bin.Uint64(offBuf)
	if err := t.stream.Read(offBuf); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	prevOffset := stream.Bin.Uint64(offBuf)

	data, err := stream.ReadArray[V](t.stream, t.vcodec, used, t.slots)
	if err != nil {
		return nil, err
	}

	n := &node[K, V]{
		level:  0,
		used:   used,
		offset: offset,
		keys:   append(make([]K, 0, t.slots), keys...),
		data:   append(make([]V, 0, t.slots), data...),
		next:   refOffset[K, V](nextOffset),
		prev:   refOffset[K, V](prevOffset),
	}
	return n, nil
}

func (t *BPlusTree[K, V]) readInner(offset uint64, level uint8) (*node[K, V], error) {
	usedBuf := make([]byte, 1)
	if err := t.stream.Read(usedBuf); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	used := int(usedBuf[0])

	keys, err := stream.ReadArray[K](t.stream, t.kcodec, used, t.slots)
	if err != nil {
		return nil, err
	}

	offsets, err := stream.ReadArray[uint64](t.stream, stream.OffsetCodec{}, used+1, t.slots+1)
	if err != nil {
		return nil, err
	}

	children := make([]ref[K, V], len(offsets))
	for i, off := range offsets {
		children[i] = refOffset[K, V](off)
	}

	n := &node[K, V]{
		level:    level,
		used:     used,
		offset:   offset,
		keys:     append(make([]K, 0, t.slots), keys...),
		children: append(make([]ref[K, V], 0, t.slots+1), children...),
	}
	return n, nil
}

// writeNode is the inverse of loadNode, used by the eviction observer
// to flush a node to the live stream. CompactTo does not use it; its
// write pass goes through writeCompactNode.
func (t *BPlusTree[K, V]) writeNode(n *node[K, V]) error {
	if err := t.stream.Seek(n.offset); err != nil {
		return errors.Wrap(err, "bptree: seek node for write")
	}
	if n.isLeaf() {
		return t.writeLeaf(n)
	}
	return t.writeInner(n)
}

func (t *BPlusTree[K, V]) writeLeaf(n *node[K, V]) error {
	if err := t.stream.Write(leafMarker[:]); err != nil {
		return errors.Wrap(err, "bptree: write leaf marker")
	}
	if err := t.stream.Write([]byte{byte(n.used)}); err != nil {
		return errors.Wrap(err, "bptree: write leaf used")
	}
	if err := stream.WriteArray(t.stream, t.kcodec, n.keys[:n.used], t.slots); err != nil {
		return err
	}

	buf8 := make([]byte, 8)
	stream.Bin.PutUint64(buf8, n.next.offset)
	if err := t.stream.Write(buf8); err != nil {
		return errors.Wrap(err, "bptree: write next sibling")
	}
	stream.Bin.PutUint64(buf8, n.prev.offset)
	if err := t.stream.Write(buf8); err != nil {
		return errors.Wrap(err, "bptree: write prev sibling")
	}

	return stream.WriteArray(t.stream, t.vcodec, n.data[:n.used], t.slots)
}

func (t *BPlusTree[K, V]) writeInner(n *node[K, V]) error {
	if err := t.stream.Write([]byte{byte(n.used)}); err != nil {
		return errors.Wrap(err, "bptree: write inner used")
	}
	if err := stream.WriteArray(t.stream, t.kcodec, n.keys[:n.used], t.slots); err != nil {
		return err
	}

	offsets := make([]uint64, n.used+1)
	for i := 0; i <= n.used; i++ {
		offsets[i] = n.children[i].offset
	}
	return stream.WriteArray(t.stream, stream.OffsetCodec{}, offsets, t.slots+1)
}

// compactSize is the record size a node would occupy in compact
// layout: no padding for unused slots.
func (t *BPlusTree[K, V]) compactSize(n *node[K, V]) uint64 {
	if n.isLeaf() {
		return uint64(2+1+n.used*t.kcodec.Size()+8+8) + uint64(n.used*t.vcodec.Size())
	}
	return uint64(1+n.used*t.kcodec.Size()) + uint64((n.used+1)*8)
}
