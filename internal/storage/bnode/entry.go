package bnode

import "bytes"

// ChildRef identifies a child node of an internal node. Its meaning (page
// id, file offset, arena slot) belongs to the tree manager.
type ChildRef uint64

// NoChild is the child reference carried by leaf entries.
const NoChild ChildRef = 0

// KvEntry is one record of a node.
// Entries handed out by a node share memory with it and must not be modified.
type KvEntry struct {
	Key   []byte
	Value []byte

	// Child is the child reached through Key. Only set in internal nodes.
	Child ChildRef
}

// KeyLen returns the length of the key in bytes.
func (e KvEntry) KeyLen() int {
	return len(e.Key)
}

// ValueLen returns the length of the value in bytes.
func (e KvEntry) ValueLen() int {
	return len(e.Value)
}

// HasChild reports whether the entry points at a child node.
func (e KvEntry) HasChild() bool {
	return e.Child != NoChild
}

// Compare orders entries by key.
// Returns -1 if e sorts before other, 0 if the keys are equal, 1 otherwise.
func (e KvEntry) Compare(other KvEntry) int {
	return bytes.Compare(e.Key, other.Key)
}

// newOwnedEntry builds an entry whose byte slices are private copies.
func newOwnedEntry(key, value []byte, child ChildRef) KvEntry {
	return KvEntry{
		Key:   cloneBytes(key),
		Value: cloneBytes(value),
		Child: child,
	}
}

// cloneBytes returns a private copy of b, or nil if b is empty.
func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
