package checksum

import (
	"errors"
	"testing"
	"time"
)

func TestStoreOpenClose(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStoreGetPut(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	entry := &Entry{
		Digest: "0d9f2f3c5bb1d5f1",
		Size:   4096,
		Mtime:  time.Now().UnixNano(),
	}

	if err := store.Put("/images/alpha.img", entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("/images/alpha.img")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Digest != entry.Digest {
		t.Errorf("Digest = %q, want %q", got.Digest, entry.Digest)
	}
	if got.Size != entry.Size {
		t.Errorf("Size = %d, want %d", got.Size, entry.Size)
	}
	if got.Mtime != entry.Mtime {
		t.Errorf("Mtime = %d, want %d", got.Mtime, entry.Mtime)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.Get("/images/missing.img")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	entry := &Entry{Digest: "aa", Size: 100, Mtime: time.Now().UnixNano()}

	if err := store.Put("/images/beta.img", entry); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("/images/beta.img"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err = store.Get("/images/beta.img")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreClearAndCount(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, path := range []string{"/a.img", "/b.img", "/c.img"} {
		if err := store.Put(path, &Entry{Digest: "x", Size: 1}); err != nil {
			t.Fatal(err)
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	count, err = store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after Clear = %d, want 0", count)
	}
}

func TestMakeKey(t *testing.T) {
	key := MakeKey("/images/alpha.img")
	want := "sha256\x00/images/alpha.img"
	if string(key) != want {
		t.Errorf("MakeKey() = %q, want %q", key, want)
	}

	if got := ParseKey(key); got != "/images/alpha.img" {
		t.Errorf("ParseKey() = %q, want %q", got, "/images/alpha.img")
	}
}

func TestEntryValid(t *testing.T) {
	entry := &Entry{Digest: "d", Size: 1024, Mtime: 42}

	tests := []struct {
		name  string
		size  int64
		mtime int64
		want  bool
	}{
		{"identical", 1024, 42, true},
		{"size changed", 2048, 42, false},
		{"mtime changed", 1024, 43, false},
		{"both changed", 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.Valid(tt.size, tt.mtime); got != tt.want {
				t.Errorf("Valid(%d, %d) = %v, want %v", tt.size, tt.mtime, got, tt.want)
			}
		})
	}
}

func TestEntryEncodeDecode(t *testing.T) {
	entry := &Entry{Digest: "deadbeef", Size: 1 << 30, Mtime: time.Now().UnixNano()}

	data, err := entry.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got Entry
	if err := got.Decode(data); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got != *entry {
		t.Errorf("round trip = %+v, want %+v", got, *entry)
	}
}
