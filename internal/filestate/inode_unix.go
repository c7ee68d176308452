//go:build !windows

package filestate

import (
	"fmt"
	"os"
	"syscall"
)

// Inode returns the inode number of the already-open file f, used to
// detect rotation: a log rotator atomically replaces the file at path
// with a new inode, and the Tailer compares against the stored value
// on every pass.
func Inode(f *os.File) (uint64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("filestate: unsupported stat_t on this platform")
	}
	return uint64(st.Ino), nil
}
