// Package bnode implements a single node of an on-disk B+ tree.
//
// # Overview
//
// A Bnode holds a sorted run of key/value entries. Leaf nodes (level 0) map
// keys to opaque values; internal nodes (level > 0) map keys to child
// references. The node never owns its children: a ChildRef is an identifier
// (page id, file offset) that the tree manager resolves on its own.
//
// The node does not split or merge itself. AddKv reports ErrEntryTooLarge
// when an insert would push the serialized image past the node's size budget
// and leaves the decision to the caller.
//
// # Binary Layout
//
// Nodes serialize to a flat little-endian image:
//
//	off  size  field
//	0    4     total size
//	4    2     level
//	6    2     flags (FlagInternal, FlagBorrowed)
//	8    4     entry count
//	12   4     meta length
//	16   ...   meta bytes
//	     ...   entries: [keylen u16][key][vallen u32][value][child u64, internal only]
//
// The total size comes first so a reader can fetch a short prefix, call
// ReadNodeSize, and then fetch exactly the rest of the node:
//
//	prefix := make([]byte, bnode.HeaderSize)
//	f.ReadAt(prefix, off)
//	size, err := bnode.ReadNodeSize(prefix)
//	buf := make([]byte, size)
//	f.ReadAt(buf, off)
//	err = node.ImportRaw(buf, true)
//
// # Memory Modes
//
// ImportRaw with copy=false keeps the entries as views into the source
// buffer (ModeBorrowed). The buffer must outlive the node. Any mutation, or
// an explicit call to Own, first copies everything into node-owned storage
// and switches the node to ModeOwned.
//
// # Iteration
//
// An Iterator is a cursor over one node's entries with Seek (first key >=),
// SeekGreater (first key >) and SeekSmallerOrEqual (last key <=) positioning.
// Mutating the node while an iterator is in use leaves the iterator's
// position meaningless; accessors stay within bounds but may skip or repeat
// entries.
//
// Nothing in this package is safe for concurrent use.
package bnode
