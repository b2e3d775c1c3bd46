//go:build !unix

package fsutil

import (
	"fmt"
	"os"
)

// CheckWritableDir verifies that the current user can create entries in dir.
func CheckWritableDir(dir string) error {
	f, err := os.CreateTemp(dir, ".ycsp-probe-*")
	if err != nil {
		return fmt.Errorf("%s: insufficient permissions: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
