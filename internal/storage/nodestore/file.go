package nodestore

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/bnode/internal/logging"
	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// File layout constants.
const (
	// fileHeaderSize covers the magic and the format version.
	fileHeaderSize = 8

	// frameHeaderSize is the size of [id u64][kind u32][length u32][header xxhash64 u64].
	frameHeaderSize = 24

	// frameHeaderSumOffset is where the header checksum starts; it covers
	// the bytes before it.
	frameHeaderSumOffset = 16

	// frameTrailerSize is the size of the xxhash64 checksum over header and image.
	frameTrailerSize = 8

	fileVersion uint32 = 2
)

var fileMagic = [4]byte{'B', 'N', 'O', 'D'}

// errTornFrame marks a frame whose verified header describes more bytes
// than the file holds. Only such a frame at the tail may be cut away.
var errTornFrame = errors.New("nodestore: torn frame")

// Frame kinds.
const (
	frameNode      uint32 = 1
	frameTombstone uint32 = 2
)

// frameRef locates the latest image of a node in the file.
type frameRef struct {
	offset int64
	size   int
}

// FileStore is an append-only node file with an in-memory index.
type FileStore struct {
	mu     sync.RWMutex
	f      *os.File
	path   string
	index  map[bnode.ChildRef]frameRef
	end    int64
	opts   Options
	cache  *imageCache
	logger logging.Logger
	closed bool
}

// OpenFile opens or creates the node file at path and rebuilds the index.
// A frame cut short by a crash at the end of the file is truncated away.
func OpenFile(path string, opts Options) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	s := &FileStore{
		f:      f,
		path:   path,
		index:  make(map[bnode.ChildRef]frameRef),
		opts:   opts,
		logger: opts.logger().WithFields("store", "file", "path", path),
	}
	if opts.CacheBytes > 0 {
		s.cache = newImageCache(opts.CacheBytes)
	}

	if err := s.load(); err != nil {
		f.Close()
		return nil, err
	}

	s.logger.Info("node store opened", "nodes", len(s.index), "bytes", s.end)
	return s, nil
}

// load writes a fresh file header or verifies the existing one, then scans
// every frame.
func (s *FileStore) load() error {
	info, err := s.f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", s.path)
	}

	if info.Size() == 0 {
		var hdr [fileHeaderSize]byte
		copy(hdr[:4], fileMagic[:])
		binary.LittleEndian.PutUint32(hdr[4:], fileVersion)
		if _, err := s.f.WriteAt(hdr[:], 0); err != nil {
			return errors.Wrap(err, "write file header")
		}
		s.end = fileHeaderSize
		return s.sync()
	}

	var hdr [fileHeaderSize]byte
	if _, err := s.f.ReadAt(hdr[:], 0); err != nil {
		return errors.Wrapf(ErrBadMagic, "read file header: %v", err)
	}
	if [4]byte(hdr[:4]) != fileMagic {
		return errors.Wrapf(ErrBadMagic, "%s", s.path)
	}
	if v := binary.LittleEndian.Uint32(hdr[4:]); v != fileVersion {
		return errors.Newf("nodestore: unsupported file version %d", v)
	}

	return s.scan(info.Size())
}

// scan walks the frames from the file header to fileSize.
func (s *FileStore) scan(fileSize int64) error {
	offset := int64(fileHeaderSize)

	for offset < fileSize {
		id, kind, image, err := s.readFrame(offset, fileSize)
		if err != nil {
			if errors.Is(err, errTornFrame) {
				s.logger.Warn("truncating torn frame", "offset", offset, "file_size", fileSize)
				if err := s.f.Truncate(offset); err != nil {
					return errors.Wrapf(err, "truncate %s", s.path)
				}
				break
			}
			return errors.Wrapf(err, "frame at offset %d", offset)
		}

		switch kind {
		case frameNode:
			s.index[id] = frameRef{offset: offset, size: len(image)}
		case frameTombstone:
			delete(s.index, id)
		}
		offset += frameSize(len(image))
	}

	s.end = offset
	return nil
}

// readFrame reads and verifies the frame at offset. Tombstones have no
// image. Nothing past limit is read.
//
// errTornFrame is returned only when the frame header is cut short or
// verifies but runs past limit. Any other damage is reported as
// ErrChecksumMismatch or bnode.ErrCorruptData.
func (s *FileStore) readFrame(offset, limit int64) (id bnode.ChildRef, kind uint32, image []byte, err error) {
	if offset+frameHeaderSize > limit {
		return 0, 0, nil, errTornFrame
	}
	var hdr [frameHeaderSize]byte
	if err := s.readFull(hdr[:], offset); err != nil {
		return 0, 0, nil, err
	}
	if binary.LittleEndian.Uint64(hdr[frameHeaderSumOffset:]) != xxhash.Sum64(hdr[:frameHeaderSumOffset]) {
		return 0, 0, nil, errors.Wrapf(ErrChecksumMismatch, "frame header at offset %d", offset)
	}

	id = bnode.ChildRef(binary.LittleEndian.Uint64(hdr[0:]))
	kind = binary.LittleEndian.Uint32(hdr[8:])
	length := int(binary.LittleEndian.Uint32(hdr[12:]))

	switch kind {
	case frameTombstone:
		if length != 0 {
			return 0, 0, nil, errors.Wrapf(bnode.ErrCorruptData, "tombstone for %d carries %d bytes", id, length)
		}
	case frameNode:
		if length < bnode.HeaderSize {
			return 0, 0, nil, errors.Wrapf(bnode.ErrCorruptData, "node %d: frame length %d", id, length)
		}
	default:
		return 0, 0, nil, errors.Wrapf(bnode.ErrCorruptData, "unknown frame kind %d", kind)
	}

	if offset+frameSize(length) > limit {
		return 0, 0, nil, errTornFrame
	}

	if kind == frameNode {
		image, err = s.readImage(offset+frameHeaderSize, length)
		if err != nil {
			return 0, 0, nil, errors.Wrapf(err, "node %d", id)
		}
	}

	var trailer [frameTrailerSize]byte
	if err := s.readFull(trailer[:], offset+frameHeaderSize+int64(length)); err != nil {
		return 0, 0, nil, err
	}
	digest := xxhash.New()
	digest.Write(hdr[:])
	digest.Write(image)
	if binary.LittleEndian.Uint64(trailer[:]) != digest.Sum64() {
		return 0, 0, nil, errors.Wrapf(ErrChecksumMismatch, "node %d at offset %d", id, offset)
	}

	return id, kind, image, nil
}

// readImage reads one node image in two steps: the fixed header, then a
// buffer sized exactly by bnode.ReadNodeSize. The node's own size must
// agree with the frame length.
func (s *FileStore) readImage(offset int64, length int) ([]byte, error) {
	var prefix [bnode.HeaderSize]byte
	if err := s.readFull(prefix[:], offset); err != nil {
		return nil, err
	}

	size, err := bnode.ReadNodeSize(prefix[:])
	if err != nil {
		return nil, err
	}
	if size != length {
		return nil, errors.Wrapf(bnode.ErrCorruptData, "node size %d, frame length %d", size, length)
	}

	image := make([]byte, size)
	copy(image, prefix[:])
	if err := s.readFull(image[bnode.HeaderSize:], offset+bnode.HeaderSize); err != nil {
		return nil, err
	}
	return image, nil
}

// readFull fills buf from offset. Callers have already checked the range
// against the known end of the file.
func (s *FileStore) readFull(buf []byte, offset int64) error {
	n, err := s.f.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// frameSize returns the on-disk size of a frame carrying length image bytes.
func frameSize(length int) int64 {
	return frameHeaderSize + int64(length) + frameTrailerSize
}

// encodeFrame lays out a frame around image, which the caller has already
// written at frame[frameHeaderSize:].
func encodeFrame(frame []byte, id bnode.ChildRef, kind uint32, length int) {
	binary.LittleEndian.PutUint64(frame[0:], uint64(id))
	binary.LittleEndian.PutUint32(frame[8:], kind)
	binary.LittleEndian.PutUint32(frame[12:], uint32(length))
	binary.LittleEndian.PutUint64(frame[frameHeaderSumOffset:], xxhash.Sum64(frame[:frameHeaderSumOffset]))

	end := frameHeaderSize + length
	binary.LittleEndian.PutUint64(frame[end:], xxhash.Sum64(frame[:end]))
}

// Put appends a new image of n under id.
func (s *FileStore) Put(id bnode.ChildRef, n *bnode.Bnode) error {
	if err := validID(id); err != nil {
		return err
	}

	size := n.NodeSize()
	frame := make([]byte, frameSize(size))
	if _, err := n.ExportRaw(frame[frameHeaderSize : frameHeaderSize+size]); err != nil {
		return err
	}
	encodeFrame(frame, id, frameNode, size)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	offset, err := s.append(frame)
	if err != nil {
		return err
	}
	s.index[id] = frameRef{offset: offset, size: size}
	s.cache.add(id, frame[frameHeaderSize:frameHeaderSize+size:frameHeaderSize+size])

	s.logger.Debug("node stored", "id", id, "size", size, "entries", n.Nentry())
	return nil
}

// Get reads the latest image stored under id.
func (s *FileStore) Get(id bnode.ChildRef, copyData bool) (*bnode.Bnode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	ref, ok := s.index[id]
	if !ok {
		return nil, errors.Wrapf(ErrNodeNotFound, "%d", id)
	}

	image, cached := s.cache.get(id)
	if !cached {
		_, kind, frameImage, err := s.readFrame(ref.offset, s.end)
		if err != nil {
			return nil, errors.Wrapf(err, "read node %d", id)
		}
		if kind != frameNode || len(frameImage) != ref.size {
			return nil, errors.Wrapf(bnode.ErrCorruptData, "node %d: frame kind %d size %d, indexed size %d", id, kind, len(frameImage), ref.size)
		}
		image = frameImage
		s.cache.add(id, image)
	}

	n := bnode.NewLeaf(s.opts.NodeOptions...)
	if err := n.ImportRaw(image, copyData); err != nil {
		return nil, errors.Wrapf(err, "import node %d", id)
	}
	return n, nil
}

// Delete appends a tombstone for id.
func (s *FileStore) Delete(id bnode.ChildRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.index[id]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "%d", id)
	}

	frame := make([]byte, frameSize(0))
	encodeFrame(frame, id, frameTombstone, 0)

	if _, err := s.append(frame); err != nil {
		return err
	}
	delete(s.index, id)
	s.cache.remove(id)

	s.logger.Debug("node deleted", "id", id)
	return nil
}

// IDs returns the stored node ids in ascending order.
func (s *FileStore) IDs() ([]bnode.ChildRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	ids := make([]bnode.ChildRef, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Size returns the number of bytes in the node file.
func (s *FileStore) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.end
}

// Close syncs and closes the file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return errors.Wrapf(err, "sync %s", s.path)
	}
	if err := s.f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", s.path)
	}

	s.logger.Info("node store closed", "nodes", len(s.index), "cached", s.cache.len())
	return nil
}

// append writes frame at the end of the file and returns its offset.
// Caller holds s.mu.
func (s *FileStore) append(frame []byte) (int64, error) {
	offset := s.end
	if _, err := s.f.WriteAt(frame, offset); err != nil {
		return 0, errors.Wrapf(err, "write frame at %d", offset)
	}
	if err := s.sync(); err != nil {
		return 0, err
	}
	s.end += int64(len(frame))
	return offset, nil
}

func (s *FileStore) sync() error {
	if !s.opts.Sync {
		return nil
	}
	if err := s.f.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", s.path)
	}
	return nil
}
