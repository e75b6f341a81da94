package bnode

import (
	"bytes"
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultMaxNodeSize is the serialized size budget of a node created
	// without WithMaxNodeSize. It matches one storage page.
	DefaultMaxNodeSize = 4096

	// MaxKeyLen is the longest key the key length field can describe.
	MaxKeyLen = math.MaxUint16
)

// Mode tells whether a node's byte slices are its own or views into an
// imported buffer.
type Mode uint8

const (
	// ModeOwned nodes hold independently allocated entries and may be mutated freely.
	ModeOwned Mode = iota
	// ModeBorrowed nodes alias the buffer passed to ImportRaw.
	ModeBorrowed
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeOwned:
		return "owned"
	case ModeBorrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

// Option configures a Bnode.
type Option func(*Bnode)

// WithMaxNodeSize sets the serialized size budget enforced by AddKv and
// SetMeta. Sizes that cannot hold a header, or that the total size field
// cannot express, are ignored.
func WithMaxNodeSize(size int) Option {
	return func(n *Bnode) {
		if size < HeaderSize || uint64(size) > math.MaxUint32 {
			return
		}
		n.maxSize = size
	}
}

// Bnode is one B+ tree node: a sorted sequence of entries plus a level and
// an opaque meta blob.
//
// Entries are kept strictly increasing by key under bytes.Compare. The
// serialized size is tracked on every mutation so NodeSize is O(1).
//
// The zero value is an empty owned leaf with the default size budget.
type Bnode struct {
	level   uint16
	meta    []byte
	entries []KvEntry

	// size is the exact serialized size of the current state.
	size    int
	maxSize int
	mode    Mode
}

// New creates an empty node at the given level. Level 0 is a leaf.
func New(level uint16, opts ...Option) *Bnode {
	n := &Bnode{
		level:   level,
		size:    HeaderSize,
		maxSize: DefaultMaxNodeSize,
		mode:    ModeOwned,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewLeaf creates an empty leaf node.
func NewLeaf(opts ...Option) *Bnode {
	return New(0, opts...)
}

// Level returns the node level. Leaves are level 0.
func (n *Bnode) Level() uint16 {
	return n.level
}

// IsLeaf returns true if the node is at level 0.
func (n *Bnode) IsLeaf() bool {
	return n.level == 0
}

// Nentry returns the number of entries.
func (n *Bnode) Nentry() int {
	return len(n.entries)
}

// Mode returns the node's memory mode.
func (n *Bnode) Mode() Mode {
	return n.mode
}

// MaxNodeSize returns the serialized size budget.
func (n *Bnode) MaxNodeSize() int {
	return n.budget()
}

// Meta returns the meta blob. The slice is shared with the node.
func (n *Bnode) Meta() []byte {
	return n.meta
}

// MetaSize returns the length of the meta blob.
func (n *Bnode) MetaSize() int {
	return len(n.meta)
}

// SetMeta replaces the meta blob with a copy of meta.
// A borrowed node is promoted to owned first.
func (n *Bnode) SetMeta(meta []byte) error {
	if uint64(len(meta)) > math.MaxUint32 {
		return errors.Wrapf(ErrEntryTooLarge, "meta length %d", len(meta))
	}

	newSize := n.NodeSize() - len(n.meta) + len(meta)
	if limit := n.budget(); newSize > limit {
		return errors.Wrapf(ErrEntryTooLarge, "node size would be %d, limit %d", newSize, limit)
	}

	n.Own()
	n.meta = cloneBytes(meta)
	n.size = newSize
	return nil
}

// AddKv inserts the entry for key, or replaces it if the key is present.
//
// child must be NoChild for leaves and a real reference for internal nodes.
// When incrementCount is false the call is a replace-only rewrite: the key
// must already exist and ErrKeyNotFound is returned otherwise. Replacing an
// entry never changes Nentry, whatever incrementCount says.
//
// On any error the node is unchanged.
func (n *Bnode) AddKv(key, value []byte, child ChildRef, incrementCount bool) error {
	if len(key) > MaxKeyLen {
		return errors.Wrapf(ErrEntryTooLarge, "key length %d exceeds %d", len(key), MaxKeyLen)
	}
	if uint64(len(value)) > math.MaxUint32 {
		return errors.Wrapf(ErrEntryTooLarge, "value length %d", len(value))
	}
	if n.IsLeaf() && child != NoChild {
		return errors.Wrapf(ErrInvalidChildRef, "leaf entry %q carries child %d", key, child)
	}
	if !n.IsLeaf() && child == NoChild {
		return errors.Wrapf(ErrInvalidChildRef, "internal entry %q has no child", key)
	}

	index, found := n.findIndex(key)
	if !found && !incrementCount {
		return errors.Wrapf(ErrKeyNotFound, "replace of %q", key)
	}

	newSize := n.NodeSize() + n.entrySize(len(key), len(value))
	if found {
		old := n.entries[index]
		newSize -= n.entrySize(len(old.Key), len(old.Value))
	}
	if limit := n.budget(); newSize > limit {
		return errors.Wrapf(ErrEntryTooLarge, "node size would be %d, limit %d", newSize, limit)
	}

	n.Own()
	kv := newOwnedEntry(key, value, child)
	if found {
		n.entries[index] = kv
	} else {
		n.entries = append(n.entries, KvEntry{})
		copy(n.entries[index+1:], n.entries[index:])
		n.entries[index] = kv
	}
	n.size = newSize

	return nil
}

// FindKv returns the value and child reference stored under key.
// The returned value is shared with the node.
func (n *Bnode) FindKv(key []byte) ([]byte, ChildRef, error) {
	index, found := n.findIndex(key)
	if !found {
		return nil, NoChild, ErrKeyNotFound
	}
	kv := n.entries[index]
	return kv.Value, kv.Child, nil
}

// RemoveKv deletes the entry for key.
func (n *Bnode) RemoveKv(key []byte) error {
	index, found := n.findIndex(key)
	if !found {
		return errors.Wrapf(ErrKeyNotFound, "remove of %q", key)
	}

	n.Own()
	old := n.entries[index]
	n.size = n.NodeSize() - n.entrySize(len(old.Key), len(old.Value))

	last := len(n.entries) - 1
	copy(n.entries[index:], n.entries[index+1:])
	n.entries[last] = KvEntry{}
	n.entries = n.entries[:last]

	return nil
}

// FirstKey returns the smallest key, or nil if the node is empty.
func (n *Bnode) FirstKey() []byte {
	if len(n.entries) == 0 {
		return nil
	}
	return n.entries[0].Key
}

// LastKey returns the largest key, or nil if the node is empty.
func (n *Bnode) LastKey() []byte {
	if len(n.entries) == 0 {
		return nil
	}
	return n.entries[len(n.entries)-1].Key
}

// Own copies every byte slice the node borrows from an imported buffer and
// switches it to ModeOwned. After Own returns the source buffer may be
// reused. It is a no-op on owned nodes.
func (n *Bnode) Own() {
	if n.mode == ModeOwned {
		return
	}

	n.meta = cloneBytes(n.meta)
	for i := range n.entries {
		kv := &n.entries[i]
		kv.Key = cloneBytes(kv.Key)
		kv.Value = cloneBytes(kv.Value)
	}
	n.mode = ModeOwned
}

// budget returns the size limit, falling back to DefaultMaxNodeSize for a
// node that was not built by New.
func (n *Bnode) budget() int {
	if n.maxSize == 0 {
		return DefaultMaxNodeSize
	}
	return n.maxSize
}

// findIndex returns the index of key, or the index where it would be
// inserted. found is true if the key exists.
func (n *Bnode) findIndex(key []byte) (index int, found bool) {
	low, high := 0, len(n.entries)

	for low < high {
		mid := int(uint(low+high) >> 1)
		cmp := bytes.Compare(n.entries[mid].Key, key)
		if cmp < 0 {
			low = mid + 1
		} else if cmp > 0 {
			high = mid
		} else {
			return mid, true
		}
	}

	return low, false
}

// entrySize returns the serialized size of one entry at this node's level.
func (n *Bnode) entrySize(keyLen, valueLen int) int {
	size := keyLenSize + keyLen + valueLenSize + valueLen
	if !n.IsLeaf() {
		size += childRefSize
	}
	return size
}
