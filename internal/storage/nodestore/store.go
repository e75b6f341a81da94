// Package nodestore persists serialized B+ tree nodes keyed by ChildRef.
package nodestore

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/KilimcininKorOglu/bnode/internal/logging"
	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// Store errors.
var (
	ErrNodeNotFound     = errors.New("nodestore: node not found")
	ErrChecksumMismatch = errors.New("nodestore: checksum mismatch")
	ErrClosed           = errors.New("nodestore: store is closed")
	ErrInvalidID        = errors.New("nodestore: invalid node id")
	ErrBadMagic         = errors.New("nodestore: not a node file")
)

// Store saves node images and loads them back.
//
// Get with copyData=false returns a node in bnode.ModeBorrowed. Its backing
// buffer is never written again by the store, so the node may be kept for
// as long as the caller likes.
type Store interface {
	Put(id bnode.ChildRef, n *bnode.Bnode) error
	Get(id bnode.ChildRef, copyData bool) (*bnode.Bnode, error)
	Delete(id bnode.ChildRef) error
	IDs() ([]bnode.ChildRef, error)
	Close() error
}

// Options configures a store.
type Options struct {
	// Sync forces every write to stable storage before it returns.
	Sync bool

	// NodeOptions are applied to every node returned by Get.
	NodeOptions []bnode.Option

	// CacheBytes bounds the FileStore's in-memory image cache. Zero disables it.
	CacheBytes int

	// Logger receives open/close and recovery messages. Defaults to a no-op logger.
	Logger logging.Logger

	// PebbleOptions is passed to pebble.Open by OpenPebble. Nil means defaults.
	PebbleOptions *pebble.Options
}

func (o Options) logger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

func validID(id bnode.ChildRef) error {
	if id == bnode.NoChild {
		return errors.Wrapf(ErrInvalidID, "%d", id)
	}
	return nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*PebbleStore)(nil)
)
