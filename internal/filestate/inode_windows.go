//go:build windows

package filestate

import (
	"os"

	"golang.org/x/sys/windows"
)

// Inode returns a stable per-file identifier on Windows, combining
// the NTFS file index's high and low 32 bits the same way
// GetFileInformationByHandle exposes them. Windows has no inode in
// the POSIX sense, but this identifier changes exactly when a log
// rotator replaces the file at path, which is what rotation detection
// needs.
func Inode(f *os.File) (uint64, error) {
	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(windows.Handle(f.Fd()), &info); err != nil {
		return 0, err
	}
	return uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow), nil
}
