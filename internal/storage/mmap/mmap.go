// Package mmap maps table files into memory for read-only access.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type MmapStore struct {
	file *os.File
	data []byte
}

// NewMmapStore opens the file and maps it into memory.
// An empty file is valid and yields a store with no data.
func NewMmapStore(path string) (*MmapStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := fi.Size()

	// mmap of length 0 is EINVAL.
	if size == 0 {
		return &MmapStore{file: f}, nil
	}
	if int64(int(size)) != size {
		f.Close()
		return nil, fmt.Errorf("file too large to map: %d bytes", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap: %w", err)
	}

	return &MmapStore{
		file: f,
		data: data,
	}, nil
}

// Bytes returns the whole mapping. The slice is only valid until Close.
func (m *MmapStore) Bytes() []byte {
	return m.data
}

// ReadAt returns a view of length bytes starting at offset.
func (m *MmapStore) ReadAt(offset int, length int) ([]byte, error) {
	if m.data == nil {
		return nil, fmt.Errorf("storage is empty/closed")
	}

	if offset < 0 || length < 0 || offset+length > len(m.data) {
		return nil, fmt.Errorf("out of bounds: len=%d, req_off=%d, req_len=%d", len(m.data), offset, length)
	}

	return m.data[offset : offset+length], nil
}

func (m *MmapStore) Size() int64 {
	return int64(len(m.data))
}

// Close unmaps the data and closes the file handle.
func (m *MmapStore) Close() error {
	if len(m.data) > 0 {
		if err := unix.Munmap(m.data); err != nil {
			m.file.Close()
			return fmt.Errorf("munmap failed: %w", err)
		}
		m.data = nil
	}

	return m.file.Close()
}
