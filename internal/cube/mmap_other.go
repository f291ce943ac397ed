//go:build !unix

package cube

import (
	"io"
	"os"
)

// mapFile reads f into memory on platforms without mmap.
func mapFile(f *os.File, size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

// unmapFile is a no-op on platforms without mmap.
func unmapFile(data []byte) error {
	return nil
}
