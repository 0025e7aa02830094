package bptree

import "bptreedb/pkg/stream"

// nodeManager is C2: the cache's eviction observer. It flushes a dirty
// node to the backing stream and then severs the links that would
// otherwise dangle across the eviction — the parent's slot for this
// node downgrades from resident to offset-only, any still-resident
// children lose their parent back-link, and leaf siblings learn this
// node's offset in place of its pointer.
type nodeManager[K stream.Ordered[K], V any] struct {
	tree *BPlusTree[K, V]
}

func (m *nodeManager[K, V]) OnEvict(n *node[K, V]) error {
	t := m.tree

	if n.dirty {
		if err := t.writeNode(n); err != nil {
			return err
		}
		n.dirty = false
	}

	if n.parent != nil {
		for i := range n.parent.children {
			if n.parent.children[i].node == n {
				n.parent.children[i].node = nil
				break
			}
		}
		n.parent = nil
	}

	if n.level > 0 {
		for i := range n.children {
			if n.children[i].node != nil {
				n.children[i].node.parent = nil
			}
		}
	} else {
		if n.next.node != nil {
			n.next.node.prev = refOffset[K, V](n.offset)
		}
		if n.prev.node != nil {
			n.prev.node.next = refOffset[K, V](n.offset)
		}
	}

	return nil
}
