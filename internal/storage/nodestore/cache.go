package nodestore

import (
	"container/list"
	"sync"

	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// imageCache keeps recently read node images in LRU order, bounded by the
// total image bytes it holds. Cached images are never modified, so a
// borrowed node may alias one directly.
type imageCache struct {
	mu       sync.Mutex
	list     *list.List
	entries  map[bnode.ChildRef]*list.Element
	size     int
	capacity int
}

type cacheEntry struct {
	id    bnode.ChildRef
	image []byte
}

func newImageCache(capacity int) *imageCache {
	return &imageCache{
		list:     list.New(),
		entries:  make(map[bnode.ChildRef]*list.Element),
		capacity: capacity,
	}
}

// get returns the cached image for id and marks it most recently used.
func (c *imageCache) get(id bnode.ChildRef) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.list.MoveToFront(elem)
	return elem.Value.(*cacheEntry).image, true
}

// add caches image under id, evicting from the back until it fits.
// Images larger than the whole cache are not kept.
func (c *imageCache) add(id bnode.ChildRef, image []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drop(id)
	if len(image) > c.capacity {
		return
	}

	for c.size+len(image) > c.capacity {
		c.drop(c.list.Back().Value.(*cacheEntry).id)
	}

	c.entries[id] = c.list.PushFront(&cacheEntry{id: id, image: image})
	c.size += len(image)
}

// remove drops id from the cache if present.
func (c *imageCache) remove(id bnode.ChildRef) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop(id)
}

// drop removes id. Caller holds c.mu.
func (c *imageCache) drop(id bnode.ChildRef) {
	if elem, ok := c.entries[id]; ok {
		c.list.Remove(elem)
		delete(c.entries, id)
		c.size -= len(elem.Value.(*cacheEntry).image)
	}
}

func (c *imageCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}
