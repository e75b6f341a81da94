package bnode

import "github.com/cockroachdb/errors"

// Node errors.
var (
	// ErrKeyNotFound is returned when a lookup, removal or replace-only
	// insert names a key the node does not hold.
	ErrKeyNotFound = errors.New("bnode: key not found")

	// ErrEntryTooLarge is returned when an insert or meta update would grow
	// the serialized node past its size budget. The node is left unchanged;
	// the caller is expected to split and retry.
	ErrEntryTooLarge = errors.New("bnode: entry exceeds node size budget")

	// ErrCorruptData is returned by the import path when a serialized image
	// is structurally inconsistent.
	ErrCorruptData = errors.New("bnode: corrupt node data")

	// ErrBufferTooSmall is returned by ExportRaw when the destination cannot
	// hold NodeSize bytes.
	ErrBufferTooSmall = errors.New("bnode: buffer too small")

	// ErrInvalidChildRef is returned when a leaf entry carries a child
	// reference or an internal entry lacks one.
	ErrInvalidChildRef = errors.New("bnode: invalid child reference")
)
