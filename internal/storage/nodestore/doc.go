// Package nodestore persists serialized B+ tree nodes keyed by ChildRef.
//
// Two backends are provided:
//
//   - FileStore appends node images to a single file. Each frame is
//     [id u64][kind u32][length u32][header xxhash64 u64][node image]
//     [xxhash64 u64]; deletes append a tombstone frame. On open only a
//     frame whose header verifies but which runs past the end of the file
//     is treated as torn and cut away. Any other damage fails the open. Reads use the node's self-describing header: a fixed
//     prefix is read first, bnode.ReadNodeSize says how long the image is,
//     and exactly that many bytes are fetched. Recently read images are
//     kept in an LRU cache bounded by Options.CacheBytes.
//   - PebbleStore keeps one pebble key per node (big-endian id) whose value
//     is the node image.
//
// Both guard their state with a sync.RWMutex and may be shared between
// goroutines; the nodes they return may not.
package nodestore
