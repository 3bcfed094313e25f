//go:build !unix && !windows

package inode

import (
	"errors"
	"os"
)

func fileID(f *os.File) (uint64, error) {
	return 0, errors.ErrUnsupported
}
