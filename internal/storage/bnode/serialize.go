package bnode

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/cockroachdb/errors"
)

// Serialization constants.
const (
	// HeaderSize is the size of the fixed node header in bytes.
	// Layout:
	//   - Bytes 0-3:   TotalSize (uint32)
	//   - Bytes 4-5:   Level (uint16)
	//   - Bytes 6-7:   Flags (uint16)
	//   - Bytes 8-11:  Nentry (uint32)
	//   - Bytes 12-15: MetaLen (uint32)
	HeaderSize = 16

	// SizeFieldLen is the number of leading bytes ReadNodeSize needs.
	SizeFieldLen = 4

	offTotalSize = 0
	offLevel     = 4
	offFlags     = 6
	offNentry    = 8
	offMetaLen   = 12

	keyLenSize   = 2
	valueLenSize = 4
	childRefSize = 8

	// minEntrySize is the smallest possible serialized entry (empty key and value).
	minEntrySize = keyLenSize + valueLenSize
)

// Flags is the header bitfield.
type Flags uint16

const (
	// FlagInternal marks a node above level 0 whose entries carry child references.
	FlagInternal Flags = 1 << iota
	// FlagBorrowed records that the node was exported while still borrowing
	// an imported buffer. It is informational only.
	FlagBorrowed
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String returns the string representation of the flags.
func (f Flags) String() string {
	parts := []string{"leaf"}
	if f.Has(FlagInternal) {
		parts[0] = "internal"
	}
	if f.Has(FlagBorrowed) {
		parts = append(parts, "borrowed")
	}
	return strings.Join(parts, "|")
}

// Header is the fixed-size prefix of a serialized node.
type Header struct {
	Size    uint32
	Level   uint16
	Flags   Flags
	Nentry  uint32
	MetaLen uint32
}

// ReadNodeSize returns the total serialized size of the node whose image
// starts at buf. Only the first SizeFieldLen bytes are read.
func ReadNodeSize(buf []byte) (int, error) {
	if len(buf) < SizeFieldLen {
		return 0, errors.Wrapf(ErrCorruptData, "size prefix needs %d bytes, have %d", SizeFieldLen, len(buf))
	}

	size := binary.LittleEndian.Uint32(buf[offTotalSize:])
	if size < HeaderSize {
		return 0, errors.Wrapf(ErrCorruptData, "declared size %d smaller than header", size)
	}
	return int(size), nil
}

// ReadHeader parses the fixed header at the start of buf.
// The rest of the node is not inspected.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errors.Wrapf(ErrCorruptData, "header needs %d bytes, have %d", HeaderSize, len(buf))
	}

	h := Header{
		Size:    binary.LittleEndian.Uint32(buf[offTotalSize:]),
		Level:   binary.LittleEndian.Uint16(buf[offLevel:]),
		Flags:   Flags(binary.LittleEndian.Uint16(buf[offFlags:])),
		Nentry:  binary.LittleEndian.Uint32(buf[offNentry:]),
		MetaLen: binary.LittleEndian.Uint32(buf[offMetaLen:]),
	}
	if h.Size < HeaderSize {
		return Header{}, errors.Wrapf(ErrCorruptData, "declared size %d smaller than header", h.Size)
	}
	return h, nil
}

// NodeSize returns the exact number of bytes ExportRaw would write now.
func (n *Bnode) NodeSize() int {
	if n.size == 0 {
		return HeaderSize
	}
	return n.size
}

// computeSize recomputes the serialized size from scratch.
func (n *Bnode) computeSize() int {
	size := HeaderSize + len(n.meta)
	for _, kv := range n.entries {
		size += n.entrySize(len(kv.Key), len(kv.Value))
	}
	return size
}

// ExportRaw writes the node image to the start of buf and returns the number
// of bytes written, which is always NodeSize. buf[NodeSize():] is never
// touched.
func (n *Bnode) ExportRaw(buf []byte) (int, error) {
	size := n.NodeSize()
	if len(buf) < size {
		return 0, errors.Wrapf(ErrBufferTooSmall, "need %d bytes, have %d", size, len(buf))
	}
	buf = buf[:size:size]

	var flags Flags
	if !n.IsLeaf() {
		flags |= FlagInternal
	}
	if n.mode == ModeBorrowed {
		flags |= FlagBorrowed
	}

	binary.LittleEndian.PutUint32(buf[offTotalSize:], uint32(size))
	binary.LittleEndian.PutUint16(buf[offLevel:], n.level)
	binary.LittleEndian.PutUint16(buf[offFlags:], uint16(flags))
	binary.LittleEndian.PutUint32(buf[offNentry:], uint32(len(n.entries)))
	binary.LittleEndian.PutUint32(buf[offMetaLen:], uint32(len(n.meta)))

	offset := HeaderSize
	offset += copy(buf[offset:], n.meta)

	for _, kv := range n.entries {
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(kv.Key)))
		offset += keyLenSize
		offset += copy(buf[offset:], kv.Key)

		binary.LittleEndian.PutUint32(buf[offset:], uint32(len(kv.Value)))
		offset += valueLenSize
		offset += copy(buf[offset:], kv.Value)

		if !n.IsLeaf() {
			binary.LittleEndian.PutUint64(buf[offset:], uint64(kv.Child))
			offset += childRefSize
		}
	}

	return offset, nil
}

// ImportRaw replaces the node's contents with the image at the start of buf.
//
// With copyData set every byte slice is duplicated and the node is
// ModeOwned. Otherwise the node keeps views into buf (ModeBorrowed) and buf
// must stay valid and unmodified until the node is dropped or Own is called.
//
// Bytes past the declared size are ignored. On error the node is unchanged.
// The node's size budget is not applied to imported images.
func (n *Bnode) ImportRaw(buf []byte, copyData bool) error {
	h, err := ReadHeader(buf)
	if err != nil {
		return err
	}

	if uint64(h.Size) > uint64(len(buf)) {
		return errors.Wrapf(ErrCorruptData, "declared size %d exceeds buffer length %d", h.Size, len(buf))
	}
	size := int(h.Size)
	internal := h.Flags.Has(FlagInternal)
	if internal != (h.Level > 0) {
		return errors.Wrapf(ErrCorruptData, "level %d inconsistent with flags %s", h.Level, h.Flags)
	}

	data := buf[:size:size]
	offset := HeaderSize

	if uint64(h.MetaLen) > uint64(size-offset) {
		return errors.Wrapf(ErrCorruptData, "meta length %d overruns node of %d bytes", h.MetaLen, size)
	}
	metaLen := int(h.MetaLen)
	meta := sliceOut(data, offset, metaLen, copyData)
	offset += metaLen

	if uint64(h.Nentry)*minEntrySize > uint64(size-offset) {
		return errors.Wrapf(ErrCorruptData, "%d entries cannot fit in %d bytes", h.Nentry, size-offset)
	}

	entries := make([]KvEntry, 0, h.Nentry)
	for i := 0; i < int(h.Nentry); i++ {
		if size-offset < keyLenSize {
			return errors.Wrapf(ErrCorruptData, "entry %d: truncated key length", i)
		}
		keyLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += keyLenSize
		if size-offset < keyLen {
			return errors.Wrapf(ErrCorruptData, "entry %d: key of %d bytes overruns node", i, keyLen)
		}
		key := sliceOut(data, offset, keyLen, copyData)
		offset += keyLen

		if size-offset < valueLenSize {
			return errors.Wrapf(ErrCorruptData, "entry %d: truncated value length", i)
		}
		valueLen := binary.LittleEndian.Uint32(data[offset:])
		offset += valueLenSize
		if uint64(valueLen) > uint64(size-offset) {
			return errors.Wrapf(ErrCorruptData, "entry %d: value of %d bytes overruns node", i, valueLen)
		}
		value := sliceOut(data, offset, int(valueLen), copyData)
		offset += int(valueLen)

		child := NoChild
		if internal {
			if size-offset < childRefSize {
				return errors.Wrapf(ErrCorruptData, "entry %d: truncated child reference", i)
			}
			child = ChildRef(binary.LittleEndian.Uint64(data[offset:]))
			offset += childRefSize
			if child == NoChild {
				return errors.Wrapf(ErrCorruptData, "entry %d: internal entry without child", i)
			}
		}

		if i > 0 && bytes.Compare(entries[i-1].Key, key) >= 0 {
			return errors.Wrapf(ErrCorruptData, "entry %d: keys out of order", i)
		}
		entries = append(entries, KvEntry{Key: key, Value: value, Child: child})
	}

	if offset != size {
		return errors.Wrapf(ErrCorruptData, "%d entries end at byte %d, declared size %d", h.Nentry, offset, size)
	}

	n.level = h.Level
	n.meta = meta
	n.entries = entries
	n.size = size
	if copyData {
		n.mode = ModeOwned
	} else {
		n.mode = ModeBorrowed
	}

	return nil
}

// MarshalBinary returns a freshly allocated image of the node.
func (n *Bnode) MarshalBinary() ([]byte, error) {
	buf := make([]byte, n.NodeSize())
	if _, err := n.ExportRaw(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary imports data as an owned copy.
func (n *Bnode) UnmarshalBinary(data []byte) error {
	return n.ImportRaw(data, true)
}

// sliceOut returns data[offset:offset+length], copied when copyData is set.
// Borrowed slices have their capacity clamped so appends cannot reach
// neighbouring fields.
func sliceOut(data []byte, offset, length int, copyData bool) []byte {
	if length == 0 {
		return nil
	}
	if copyData {
		return cloneBytes(data[offset : offset+length])
	}
	return data[offset : offset+length : offset+length]
}
