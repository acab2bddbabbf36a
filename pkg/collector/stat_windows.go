//go:build windows

package collector

import "os"

// statFile is not available from os.FileInfo on Windows; link counts are
// reported unresolved and hardlinks are never collapsed.
func statFile(os.FileInfo) (fileID, bool) {
	return fileID{}, false
}
