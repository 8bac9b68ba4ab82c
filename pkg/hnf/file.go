package hnf

import (
	"bytes"
	"io"
	"os"
)

// handle is the single read handle one validation run owns.
type handle struct {
	io.ReadSeeker
	close func() error
}

func (h *handle) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	err := h.close()
	h.close = nil
	return err
}

// openHandle maps path read-only where mmap is available and falls back to
// the plain file otherwise. The returned handle must be closed.
func openHandle(path string) (*handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	size := stat.Size()
	if size > 0 && size <= int64(int(^uint(0)>>1)) {
		if data, unmap, err := mmapFile(f, int(size)); err == nil {
			// The mapping outlives the descriptor.
			_ = f.Close()
			return &handle{ReadSeeker: bytes.NewReader(data), close: unmap}, nil
		}
	}
	return &handle{ReadSeeker: f, close: f.Close}, nil
}
