//go:build unix

package inode

import (
	"os"

	"golang.org/x/sys/unix"
)

func fileID(f *os.File) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return 0, err
	}
	return uint64(st.Ino), nil
}
