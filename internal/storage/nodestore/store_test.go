package nodestore

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

func testNode(t *testing.T, count int, meta string) *bnode.Bnode {
	t.Helper()
	n := bnode.NewLeaf()
	for i := 0; i < count; i++ {
		key := []byte(fmt.Sprintf("k%07d", i))
		value := []byte(fmt.Sprintf("v%07d", i*10))
		if err := n.AddKv(key, value, bnode.NoChild, true); err != nil {
			t.Fatalf("AddKv(%d) failed: %v", i, err)
		}
	}
	if err := n.SetMeta([]byte(meta)); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	return n
}

func assertNodeEqual(t *testing.T, want, got *bnode.Bnode) {
	t.Helper()
	wantImage, _ := want.MarshalBinary()
	gotImage, _ := got.MarshalBinary()
	// The borrowed hint may differ; compare everything past the flags.
	if !bytes.Equal(wantImage[8:], gotImage[8:]) || !bytes.Equal(wantImage[:4], gotImage[:4]) {
		t.Errorf("node images differ")
	}
}

type storeFactory struct {
	name string
	open func(t *testing.T, opts Options) Store
}

func factories() []storeFactory {
	return []storeFactory{
		{"file", func(t *testing.T, opts Options) Store {
			s, err := OpenFile(filepath.Join(t.TempDir(), "nodes.db"), opts)
			if err != nil {
				t.Fatalf("OpenFile failed: %v", err)
			}
			return s
		}},
		{"pebble", func(t *testing.T, opts Options) Store {
			opts.PebbleOptions = &pebble.Options{FS: vfs.NewMem()}
			s, err := OpenPebble("nodes", opts)
			if err != nil {
				t.Fatalf("OpenPebble failed: %v", err)
			}
			return s
		}},
	}
}

func TestStorePutGet(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t, Options{})
			defer s.Close()

			n := testNode(t, 100, "meta_data")
			if err := s.Put(7, n); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			for _, copyData := range []bool{true, false} {
				got, err := s.Get(7, copyData)
				if err != nil {
					t.Fatalf("Get(copy=%v) failed: %v", copyData, err)
				}
				want := bnode.ModeBorrowed
				if copyData {
					want = bnode.ModeOwned
				}
				if got.Mode() != want {
					t.Errorf("expected mode %s, got %s", want, got.Mode())
				}
				assertNodeEqual(t, n, got)

				value, _, err := got.FindKv([]byte("k0000042"))
				if err != nil || string(value) != "v0000420" {
					t.Errorf("expected v0000420, got %q (err %v)", value, err)
				}
			}
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t, Options{})
			defer s.Close()

			if err := s.Put(1, testNode(t, 10, "old")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			updated := testNode(t, 3, "new")
			if err := s.Put(1, updated); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := s.Get(1, true)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Nentry() != 3 || string(got.Meta()) != "new" {
				t.Errorf("expected latest image, got %d entries meta %q", got.Nentry(), got.Meta())
			}
		})
	}
}

func TestStoreDeleteAndIDs(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t, Options{})
			defer s.Close()

			for _, id := range []bnode.ChildRef{30, 10, 20} {
				if err := s.Put(id, testNode(t, 2, "m")); err != nil {
					t.Fatalf("Put(%d) failed: %v", id, err)
				}
			}

			ids, err := s.IDs()
			if err != nil {
				t.Fatalf("IDs failed: %v", err)
			}
			if fmt.Sprint(ids) != "[10 20 30]" {
				t.Errorf("expected [10 20 30], got %v", ids)
			}

			if err := s.Delete(20); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Get(20, true); !errors.Is(err, ErrNodeNotFound) {
				t.Errorf("expected ErrNodeNotFound after delete, got %v", err)
			}
			if err := s.Delete(20); !errors.Is(err, ErrNodeNotFound) {
				t.Errorf("expected ErrNodeNotFound on second delete, got %v", err)
			}

			ids, _ = s.IDs()
			if fmt.Sprint(ids) != "[10 30]" {
				t.Errorf("expected [10 30], got %v", ids)
			}
		})
	}
}

func TestStoreErrors(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t, Options{})

			if err := s.Put(bnode.NoChild, testNode(t, 1, "")); !errors.Is(err, ErrInvalidID) {
				t.Errorf("expected ErrInvalidID, got %v", err)
			}
			if _, err := s.Get(99, true); !errors.Is(err, ErrNodeNotFound) {
				t.Errorf("expected ErrNodeNotFound, got %v", err)
			}

			if err := s.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("second Close should be a no-op, got %v", err)
			}
			if err := s.Put(1, testNode(t, 1, "")); !errors.Is(err, ErrClosed) {
				t.Errorf("expected ErrClosed from Put, got %v", err)
			}
			if _, err := s.Get(1, true); !errors.Is(err, ErrClosed) {
				t.Errorf("expected ErrClosed from Get, got %v", err)
			}
			if _, err := s.IDs(); !errors.Is(err, ErrClosed) {
				t.Errorf("expected ErrClosed from IDs, got %v", err)
			}
		})
	}
}

func TestStoreNodeOptions(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t, Options{NodeOptions: []bnode.Option{bnode.WithMaxNodeSize(512)}})
			defer s.Close()

			if err := s.Put(5, testNode(t, 4, "")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := s.Get(5, false)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.MaxNodeSize() != 512 {
				t.Errorf("expected max node size 512, got %d", got.MaxNodeSize())
			}
		})
	}
}

func TestStoreInternalNode(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t, Options{})
			defer s.Close()

			n := bnode.New(1)
			for i := 0; i < 5; i++ {
				if err := n.AddKv([]byte{byte('a' + i)}, nil, bnode.ChildRef(100+i), true); err != nil {
					t.Fatalf("AddKv failed: %v", err)
				}
			}
			if err := s.Put(2, n); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := s.Get(2, true)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Level() != 1 {
				t.Errorf("expected level 1, got %d", got.Level())
			}
			_, child, err := got.FindKv([]byte("c"))
			if err != nil || child != 102 {
				t.Errorf("expected child 102, got %d (err %v)", child, err)
			}
		})
	}
}
