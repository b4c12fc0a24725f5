//go:build !unix

package table

import (
	"io"
	"os"
)

// Platforms without mmap read the file once; lookups are unchanged.
func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
