//go:build !unix

package csvfile

import (
	"errors"
	"os"
)

func checkWritable(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	if info.Mode().Perm()&0o200 == 0 {
		return errors.New("read-only")
	}
	return nil
}
