package fsutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// EnsureDir creates path (and parents) when missing. An existing non-directory
// at path is reported as ErrNotDir.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", path, ErrNotDir)
		}
		return nil
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("stat %s: %w", path, err)
	}
}

var ErrNotDir = errors.New("not a directory")

// CheckRegularFile verifies that path exists and is a regular file.
func CheckRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to destPath and renames it
// into place, so readers never observe a half-written file.
func WriteFileAtomic(destPath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return fmt.Errorf("rename tmp -> dest: %w", err)
	}
	return nil
}

// DirLock is an exclusive advisory lock on a lock file inside a directory.
type DirLock struct {
	lock *flock.Flock
}

const lockRetryDelay = 100 * time.Millisecond

// LockDir waits until the lock file name inside dir is held exclusively or
// ctx is done.
func LockDir(ctx context.Context, dir, name string) (*DirLock, error) {
	l := flock.New(filepath.Join(dir, name))
	ok, err := l.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", l.Path())
	}
	return &DirLock{lock: l}, nil
}

func (d *DirLock) Unlock() error {
	if d == nil || d.lock == nil {
		return nil
	}
	return d.lock.Unlock()
}
