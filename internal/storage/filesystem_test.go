package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreWriteRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	data := []byte{0xFF, 0xD8, 0xFF}
	key, err := store.Write(context.Background(), "originals/run-1.jpg", data)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if key != "originals/run-1.jpg" {
		t.Fatalf("key = %q", key)
	}
	if _, err := os.Stat(filepath.Join(dir, "originals", "run-1.jpg")); err != nil {
		t.Fatalf("file not on disk: %v", err)
	}

	got, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Read = %v, want %v", got, data)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	for _, key := range []string{"../outside.bin", "a/../../outside.bin", " ", ""} {
		if _, err := store.Write(context.Background(), key, []byte{1}); err == nil {
			t.Fatalf("Write(%q) accepted a bad key", key)
		}
	}
}

func TestFileStoreHonorsCancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "originals/run-1.jpg", []byte{1}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
