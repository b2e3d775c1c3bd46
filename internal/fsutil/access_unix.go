//go:build unix

package fsutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckWritableDir verifies that the current user can create entries in dir.
func CheckWritableDir(dir string) error {
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%s: insufficient permissions: %w", dir, err)
	}
	return nil
}
