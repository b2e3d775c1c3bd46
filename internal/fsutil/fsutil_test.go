package fsutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnsureDir(t *testing.T) {
	tmp := t.TempDir()

	nested := filepath.Join(tmp, "a", "b")
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("create nested: %v", err)
	}
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("second call must be a no-op: %v", err)
	}

	file := filepath.Join(tmp, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(file); !errors.Is(err, ErrNotDir) {
		t.Fatalf("expected ErrNotDir, got %v", err)
	}
}

func TestCheckRegularFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "urls.txt")
	if err := os.WriteFile(file, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckRegularFile(file); err != nil {
		t.Fatalf("regular file rejected: %v", err)
	}
	if err := CheckRegularFile(tmp); err == nil {
		t.Fatalf("expected directory to be rejected")
	}
	if err := CheckRegularFile(filepath.Join(tmp, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	tmp := t.TempDir()
	dest := filepath.Join(tmp, "clip.txt")
	if err := WriteFileAtomic(dest, []byte("first"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(dest, []byte("second"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err := os.ReadFile(dest)
	if err != nil || string(b) != "second" {
		t.Fatalf("unexpected content %q, %v", b, err)
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestLockDir_Exclusive(t *testing.T) {
	tmp := t.TempDir()
	first, err := LockDir(context.Background(), tmp, ".lock")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if _, err := LockDir(ctx, tmp, ".lock"); err == nil {
		t.Fatalf("expected second lock to wait and fail while the first is held")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	second, err := LockDir(context.Background(), tmp, ".lock")
	if err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
	_ = second.Unlock()
}

func TestCheckWritableDir(t *testing.T) {
	if err := CheckWritableDir(t.TempDir()); err != nil {
		t.Fatalf("temp dir should be writable: %v", err)
	}
}
