// Package inode resolves the filesystem identity of open files.
//
// An inode identifies a physical file independently of its path, so two
// observations of the same path with different inodes mean the path was
// rotated in between.
package inode

import (
	"fmt"
	"os"
)

// Of returns the inode of an open file.
// The handle is queried directly so a rename between open and stat cannot
// produce a mismatched identity.
func Of(f *os.File) (uint64, error) {
	ino, err := fileID(f)
	if err != nil {
		return 0, fmt.Errorf("failed to get inode of %s: %w", f.Name(), err)
	}
	return ino, nil
}

// OfPath opens path just long enough to read its inode.
func OfPath(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return Of(f)
}
