//go:build unix

package csvfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// checkWritable verifies the storage root is a mounted, writable directory.
func checkWritable(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return unix.Access(root, unix.W_OK|unix.X_OK)
}
