//go:build !windows

package collector

import (
	"os"
	"syscall"
)

// statFile reads the device, inode and link count from the raw stat result.
func statFile(info os.FileInfo) (fileID, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{
		dev:   uint64(st.Dev), //nolint:unconvert // Dev width differs per platform
		inode: st.Ino,
		nlink: uint64(st.Nlink), //nolint:unconvert // Nlink width differs per platform
	}, true
}
