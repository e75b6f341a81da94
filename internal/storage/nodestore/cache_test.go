package nodestore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

func TestImageCacheEviction(t *testing.T) {
	c := newImageCache(10)

	c.add(1, []byte("aaaa"))
	c.add(2, []byte("bbbb"))
	if c.len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.len())
	}

	// Touch 1 so 2 becomes the eviction candidate.
	if _, ok := c.get(1); !ok {
		t.Fatal("expected id 1 to be cached")
	}
	c.add(3, []byte("cccc"))

	if _, ok := c.get(2); ok {
		t.Error("expected id 2 to be evicted")
	}
	if image, ok := c.get(1); !ok || string(image) != "aaaa" {
		t.Errorf("expected id 1 to survive, got %q %v", image, ok)
	}
	if c.size != 8 {
		t.Errorf("expected 8 cached bytes, got %d", c.size)
	}
}

func TestImageCacheReplaceAndOversize(t *testing.T) {
	c := newImageCache(10)

	c.add(1, []byte("aaaa"))
	c.add(1, []byte("aaaaaa"))
	if c.len() != 1 || c.size != 6 {
		t.Errorf("expected one 6 byte entry, got %d entries %d bytes", c.len(), c.size)
	}

	c.add(2, bytes.Repeat([]byte("z"), 11))
	if _, ok := c.get(2); ok {
		t.Error("oversized image should not be cached")
	}

	c.remove(1)
	if c.len() != 0 || c.size != 0 {
		t.Errorf("expected empty cache, got %d entries %d bytes", c.len(), c.size)
	}
}

func TestImageCacheNil(t *testing.T) {
	var c *imageCache
	c.add(1, []byte("x"))
	c.remove(1)
	if _, ok := c.get(1); ok {
		t.Error("nil cache should never hit")
	}
	if c.len() != 0 {
		t.Errorf("expected 0, got %d", c.len())
	}
}

func TestFileStoreCache(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "nodes.db"), Options{CacheBytes: 1 << 16})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	if err := s.Put(1, testNode(t, 20, "v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if s.cache.len() != 1 {
		t.Errorf("expected Put to populate the cache, got %d entries", s.cache.len())
	}

	borrowed, err := s.Get(1, false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Mutating a borrowed node must not reach the cached image.
	if err := borrowed.AddKv([]byte("k9999999"), []byte("new"), bnode.NoChild, true); err != nil {
		t.Fatalf("AddKv failed: %v", err)
	}
	again, err := s.Get(1, true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again.Nentry() != 20 {
		t.Errorf("expected cached image to be unchanged, got %d entries", again.Nentry())
	}

	if err := s.Put(1, testNode(t, 2, "v2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	latest, _ := s.Get(1, true)
	if string(latest.Meta()) != "v2" {
		t.Errorf("expected cache to hold the latest image, got meta %q", latest.Meta())
	}

	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.cache.len() != 0 {
		t.Errorf("expected Delete to evict, got %d entries", s.cache.len())
	}
	if _, err := s.Get(1, true); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}
