package nodestore

import (
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/KilimcininKorOglu/bnode/internal/logging"
	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// PebbleStore keeps one pebble key per node.
type PebbleStore struct {
	mu     sync.RWMutex
	db     *pebble.DB
	dir    string
	opts   Options
	write  *pebble.WriteOptions
	logger logging.Logger
	closed bool
}

// OpenPebble opens (or creates) a pebble database at dir.
func OpenPebble(dir string, opts Options) (*PebbleStore, error) {
	popts := opts.PebbleOptions
	if popts == nil {
		popts = &pebble.Options{}
	}

	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", dir)
	}

	write := pebble.NoSync
	if opts.Sync {
		write = pebble.Sync
	}

	s := &PebbleStore{
		db:     db,
		dir:    dir,
		opts:   opts,
		write:  write,
		logger: opts.logger().WithFields("store", "pebble", "path", dir),
	}
	s.logger.Info("node store opened")
	return s, nil
}

// Put stores the image of n under id, replacing any previous image.
func (s *PebbleStore) Put(id bnode.ChildRef, n *bnode.Bnode) error {
	if err := validID(id); err != nil {
		return err
	}

	image, err := n.MarshalBinary()
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.db.Set(encodeID(id), image, s.write); err != nil {
		return errors.Wrapf(err, "put node %d", id)
	}

	s.logger.Debug("node stored", "id", id, "size", len(image), "entries", n.Nentry())
	return nil
}

// Get loads the node stored under id.
func (s *PebbleStore) Get(id bnode.ChildRef, copyData bool) (*bnode.Bnode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	val, closer, err := s.db.Get(encodeID(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errors.Wrapf(ErrNodeNotFound, "%d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get node %d", id)
	}

	// val is only valid until closer.Close.
	image := make([]byte, len(val))
	copy(image, val)
	closer.Close()

	size, err := bnode.ReadNodeSize(image)
	if err != nil {
		return nil, errors.Wrapf(err, "node %d", id)
	}
	if size != len(image) {
		return nil, errors.Wrapf(bnode.ErrCorruptData, "node %d: declared size %d, stored %d bytes", id, size, len(image))
	}

	n := bnode.NewLeaf(s.opts.NodeOptions...)
	if err := n.ImportRaw(image, copyData); err != nil {
		return nil, errors.Wrapf(err, "import node %d", id)
	}
	return n, nil
}

// Delete removes the node stored under id.
func (s *PebbleStore) Delete(id bnode.ChildRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, closer, err := s.db.Get(encodeID(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return errors.Wrapf(ErrNodeNotFound, "%d", id)
	}
	if err != nil {
		return errors.Wrapf(err, "get node %d", id)
	}
	closer.Close()

	if err := s.db.Delete(encodeID(id), s.write); err != nil {
		return errors.Wrapf(err, "delete node %d", id)
	}

	s.logger.Debug("node deleted", "id", id)
	return nil
}

// IDs returns the stored node ids in ascending order.
func (s *PebbleStore) IDs() ([]bnode.ChildRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "iterate nodes")
	}

	var ids []bnode.ChildRef
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != 8 {
			iter.Close()
			return nil, errors.Newf("nodestore: unexpected key length %d", len(key))
		}
		ids = append(ids, decodeID(key))
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(err, "iterate nodes")
	}
	return ids, nil
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return errors.Wrapf(err, "close pebble at %s", s.dir)
	}
	s.logger.Info("node store closed")
	return nil
}

// encodeID encodes id big-endian so pebble's key order is id order.
func encodeID(id bnode.ChildRef) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func decodeID(key []byte) bnode.ChildRef {
	return bnode.ChildRef(binary.BigEndian.Uint64(key))
}
