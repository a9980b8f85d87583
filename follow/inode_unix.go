//go:build !windows

package follow

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number used for rotation detection (§4.L:
// "if size shrank or inode changed, reopen from offset 0").
func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return st.Ino
}
