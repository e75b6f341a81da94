package bnode

import (
	"bytes"
	"testing"
)

// buildTens returns a leaf with keys k0000000, k0000010, ... k0000990 and
// values v0000000, v0000100, ...
func buildTens(t *testing.T) *Bnode {
	t.Helper()
	n := NewLeaf()
	for i := 0; i < 100; i++ {
		if err := n.AddKv(testKey(i*10), testValue(i*100), NoChild, true); err != nil {
			t.Fatalf("AddKv(%d) failed: %v", i, err)
		}
	}
	return n
}

func expectKv(t *testing.T, it *Iterator, key, value []byte) {
	t.Helper()
	kv, ok := it.Kv()
	if !ok {
		t.Fatalf("expected entry %q, iterator is on a sentinel", key)
	}
	if !bytes.Equal(kv.Key, key) {
		t.Errorf("expected key %q, got %q", key, kv.Key)
	}
	if value != nil && !bytes.Equal(kv.Value, value) {
		t.Errorf("expected value %q, got %q", value, kv.Value)
	}
}

func TestIteratorForward(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)

	i := 0
	for {
		kv, ok := it.Kv()
		if !ok {
			break
		}
		if !bytes.Equal(kv.Key, testKey(i*10)) || !bytes.Equal(kv.Value, testValue(i*100)) {
			t.Fatalf("position %d: got %q=%q", i, kv.Key, kv.Value)
		}
		i++
		if !it.Next() {
			break
		}
	}
	if i != 100 {
		t.Errorf("expected 100 entries, visited %d", i)
	}
	if it.Valid() {
		t.Error("iterator should be exhausted")
	}
	if it.Next() {
		t.Error("Next after the last entry should keep returning false")
	}
}

func TestIteratorBackward(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)
	if !it.End() {
		t.Fatal("End on a populated node should succeed")
	}

	i := 100
	for {
		kv, ok := it.Kv()
		if !ok {
			break
		}
		i--
		if !bytes.Equal(kv.Key, testKey(i*10)) || !bytes.Equal(kv.Value, testValue(i*100)) {
			t.Fatalf("position %d: got %q=%q", i, kv.Key, kv.Value)
		}
		if !it.Prev() {
			break
		}
	}
	if i != 0 {
		t.Errorf("expected to stop at 0, stopped at %d", i)
	}
	if it.Prev() {
		t.Error("Prev before the first entry should keep returning false")
	}
}

func TestIteratorStartKeyGreater(t *testing.T) {
	n := buildTens(t)

	// k0000505 lies between k0000500 and k0000510.
	it := NewIteratorGreater(n, testKey(505))
	expectKv(t, it, testKey(510), testValue(5100))

	i := 51
	for ok := it.Valid(); ok; ok = it.Next() {
		expectKv(t, it, testKey(i*10), testValue(i*100))
		i++
	}
	if i != 100 {
		t.Errorf("expected to reach 100, reached %d", i)
	}
}

func TestIteratorSeekGreaterExactMatch(t *testing.T) {
	n := buildTens(t)

	it := NewIteratorGreater(n, testKey(500))
	expectKv(t, it, testKey(510), nil)

	if NewIteratorGreater(n, testKey(990)).Valid() {
		t.Error("seek past the last key should land after the last entry")
	}

	it = NewIteratorGreater(n, []byte("a"))
	expectKv(t, it, testKey(0), nil)
}

func TestIteratorSeekSmallerOrEqual(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)

	// k0000495 lies between k0000490 and k0000500.
	if !it.SeekSmallerOrEqual(testKey(495)) {
		t.Fatal("SeekSmallerOrEqual should find an entry")
	}
	expectKv(t, it, testKey(490), testValue(4900))

	i := 49
	for ok := it.Valid(); ok; ok = it.Next() {
		expectKv(t, it, testKey(i*10), nil)
		i++
	}
	if i != 100 {
		t.Errorf("expected to reach 100, reached %d", i)
	}

	if !it.SeekSmallerOrEqual(testKey(500)) {
		t.Fatal("exact match should be found")
	}
	expectKv(t, it, testKey(500), nil)

	if !it.SeekSmallerOrEqual([]byte("z")) {
		t.Fatal("key above all entries should land on the last entry")
	}
	expectKv(t, it, testKey(990), nil)

	if it.SeekSmallerOrEqual([]byte("a")) {
		t.Error("key below all entries should land before the first entry")
	}
	if it.Valid() {
		t.Error("iterator should be on the before-first sentinel")
	}
	if !it.Next() {
		t.Fatal("Next from before-first should reach the first entry")
	}
	expectKv(t, it, testKey(0), nil)
}

func TestIteratorSeek(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)

	if !it.Seek(testKey(500)) {
		t.Fatal("Seek on an existing key should succeed")
	}
	expectKv(t, it, testKey(500), nil)

	if !it.Seek(testKey(505)) {
		t.Fatal("Seek between keys should land on the next key")
	}
	expectKv(t, it, testKey(510), nil)

	if it.Seek([]byte("z")) {
		t.Error("Seek past the end should fail")
	}
	if !it.Prev() {
		t.Fatal("Prev from after-last should reach the last entry")
	}
	expectKv(t, it, testKey(990), nil)
}

func TestIteratorEmptyNode(t *testing.T) {
	n := NewLeaf()
	it := NewIterator(n)

	if it.Valid() {
		t.Error("iterator over empty node should not be valid")
	}
	if _, ok := it.Kv(); ok {
		t.Error("Kv on empty node should report no entry")
	}
	if it.Next() || it.Prev() {
		t.Error("movement on empty node should fail")
	}
	if it.End() {
		t.Error("End on empty node should fail")
	}
	if it.Begin() {
		t.Error("Begin on empty node should fail")
	}
	if it.Seek([]byte("a")) || it.SeekGreater([]byte("a")) || it.SeekSmallerOrEqual([]byte("a")) {
		t.Error("seeks on empty node should fail")
	}
}

func TestIteratorBeginEndRoundTrip(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)

	if !it.End() {
		t.Fatal("End failed")
	}
	if it.Next() {
		t.Error("Next from the last entry should fail")
	}
	if !it.Prev() {
		t.Fatal("Prev from after-last should land on the last entry")
	}
	expectKv(t, it, testKey(990), nil)

	if !it.Begin() {
		t.Fatal("Begin failed")
	}
	if it.Prev() {
		t.Error("Prev from the first entry should fail")
	}
	if !it.Next() {
		t.Fatal("Next from before-first should land on the first entry")
	}
	expectKv(t, it, testKey(0), nil)
}

func TestIteratorKvDoesNotMove(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)

	for i := 0; i < 3; i++ {
		expectKv(t, it, testKey(0), nil)
	}
}

func TestIteratorStaysInBoundsAfterShrink(t *testing.T) {
	n := buildTens(t)
	it := NewIterator(n)
	it.End()

	// Unsupported usage: the node shrinks under a live iterator.
	for i := 50; i < 100; i++ {
		if err := n.RemoveKv(testKey(i * 10)); err != nil {
			t.Fatalf("RemoveKv failed: %v", err)
		}
	}

	if _, ok := it.Kv(); ok {
		t.Error("stale position past the end should not yield an entry")
	}
	if it.Next() {
		t.Error("Next from a stale position past the end should fail")
	}

	it.End()
	for i := 0; i < 49; i++ {
		n.RemoveKv(testKey(i * 10))
	}
	if !it.Prev() {
		t.Fatal("Prev from a stale position should land on the last entry")
	}
	expectKv(t, it, testKey(490), nil)
}

func TestIteratorInternalNode(t *testing.T) {
	n := buildInternal(t, 10)
	it := NewIterator(n)

	// Routing primitive: the rightmost entry whose key is <= the search key.
	if !it.SeekSmallerOrEqual(testKey(35)) {
		t.Fatal("SeekSmallerOrEqual failed")
	}
	kv, _ := it.Kv()
	if kv.Child != 1003 {
		t.Errorf("expected child 1003, got %d", kv.Child)
	}
}
