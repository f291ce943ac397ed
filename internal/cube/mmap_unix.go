//go:build unix

package cube

import (
	"os"
	"syscall"
)

// mapFile memory-maps f read-only. The file can be closed after mapping.
func mapFile(f *os.File, size int) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_PRIVATE)
}

// unmapFile releases a mapping created by mapFile.
func unmapFile(data []byte) error {
	return syscall.Munmap(data)
}
