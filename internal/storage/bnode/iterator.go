package bnode

import (
	"bytes"
	"sort"
)

// Cursor sentinels.
const (
	beforeFirst = -1
	afterLast   = -2
)

// Iterator is a cursor over the entries of one node.
//
// The cursor is either on an entry or on one of two sentinels, before the
// first entry and after the last. Movement methods return true when they
// land on an entry; landing on a sentinel is how iteration ends and is not
// an error.
//
// The iterator borrows the node. Adding or removing entries while an
// iterator is in use is unsupported: the iterator keeps its numeric position
// and may skip or repeat entries, though it never indexes out of range.
type Iterator struct {
	node *Bnode
	pos  int
}

// NewIterator returns an iterator on the first entry of n, or after the
// last entry if n is empty.
func NewIterator(n *Bnode) *Iterator {
	it := &Iterator{node: n}
	it.Begin()
	return it
}

// NewIteratorGreater returns an iterator on the first entry whose key is
// strictly greater than key. It is the starting point of a scan with an
// exclusive lower bound.
func NewIteratorGreater(n *Bnode, key []byte) *Iterator {
	it := &Iterator{node: n}
	it.SeekGreater(key)
	return it
}

// Begin moves to the first entry.
func (it *Iterator) Begin() bool {
	if len(it.node.entries) == 0 {
		it.pos = afterLast
		return false
	}
	it.pos = 0
	return true
}

// End moves to the last entry, or before the first one if the node is empty.
func (it *Iterator) End() bool {
	if len(it.node.entries) == 0 {
		it.pos = beforeFirst
		return false
	}
	it.pos = len(it.node.entries) - 1
	return true
}

// Seek moves to key, or to the first entry after it if key is absent.
func (it *Iterator) Seek(key []byte) bool {
	entries := it.node.entries
	i := sort.Search(len(entries), func(i int) bool {
		return bytes.Compare(entries[i].Key, key) >= 0
	})
	return it.moveTo(i)
}

// SeekGreater moves to the first entry whose key is strictly greater than key.
func (it *Iterator) SeekGreater(key []byte) bool {
	entries := it.node.entries
	i := sort.Search(len(entries), func(i int) bool {
		return bytes.Compare(entries[i].Key, key) > 0
	})
	return it.moveTo(i)
}

// SeekSmallerOrEqual moves to the last entry whose key is less than or equal
// to key. If every key is greater the cursor ends up before the first entry.
func (it *Iterator) SeekSmallerOrEqual(key []byte) bool {
	entries := it.node.entries
	i := sort.Search(len(entries), func(i int) bool {
		return bytes.Compare(entries[i].Key, key) > 0
	})
	if i == 0 {
		it.pos = beforeFirst
		return false
	}
	it.pos = i - 1
	return true
}

// Next advances one entry.
func (it *Iterator) Next() bool {
	switch it.pos {
	case afterLast:
		return false
	case beforeFirst:
		return it.Begin()
	}

	if it.pos+1 >= len(it.node.entries) {
		it.pos = afterLast
		return false
	}
	it.pos++
	return true
}

// Prev steps back one entry.
func (it *Iterator) Prev() bool {
	switch it.pos {
	case beforeFirst:
		return false
	case afterLast:
		return it.End()
	}

	if it.pos-1 >= len(it.node.entries) {
		// The node shrank underneath us.
		return it.End()
	}
	if it.pos == 0 {
		it.pos = beforeFirst
		return false
	}
	it.pos--
	return true
}

// Valid returns true if the cursor is on an entry.
func (it *Iterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.node.entries)
}

// Kv returns the entry under the cursor without moving it.
// ok is false when the cursor is on a sentinel.
func (it *Iterator) Kv() (kv KvEntry, ok bool) {
	if !it.Valid() {
		return KvEntry{}, false
	}
	return it.node.entries[it.pos], true
}

// moveTo positions the cursor at index i, or after the last entry if i is
// out of range.
func (it *Iterator) moveTo(i int) bool {
	if i >= len(it.node.entries) {
		it.pos = afterLast
		return false
	}
	it.pos = i
	return true
}
