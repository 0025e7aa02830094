package lru

// Cursor addresses one resident entry in a Cache. The zero Cursor is
// invalid and Valid() reports false for it; a Cursor obtained from Find
// becomes stale the moment the entry it names is evicted or removed —
// callers that need to hold on to an entry across other cache
// operations should Pin it first.
type Cursor[K comparable, V any] struct {
	c *cell[K, V]
}

// Valid reports whether the cursor names an entry at all (false for the
// zero Cursor). It does not detect a cursor left stale by eviction or
// removal.
func (cur Cursor[K, V]) Valid() bool { return cur.c != nil }

// Key returns the entry's key. Panics on an invalid cursor.
func (cur Cursor[K, V]) Key() K { return cur.c.key }

// Value returns the entry's value. Panics on an invalid cursor.
func (cur Cursor[K, V]) Value() V { return cur.c.val }

// Set overwrites the entry's value in place.
func (cur Cursor[K, V]) Set(v V) { cur.c.val = v }
