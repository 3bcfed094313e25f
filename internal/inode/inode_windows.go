//go:build windows

package inode

import (
	"os"

	"golang.org/x/sys/windows"
)

// On NTFS the file index plays the role of an inode.
func fileID(f *os.File) (uint64, error) {
	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(windows.Handle(f.Fd()), &info); err != nil {
		return 0, err
	}
	return uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow), nil
}
