package hnf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
)

// maxPayloadSize caps JSON payload reads. Real manifests are in the MBs.
const maxPayloadSize = 256 << 20

func rangesOverlap(a0, a1, b0, b1 uint64) bool {
	// half-open ranges [a0,a1) and [b0,b1)
	return a0 < b1 && b0 < a1
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// sourceSize returns the byte length of r and leaves the offset at the start.
func sourceSize(r io.Seeker) (int64, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// readRange seeks to offset and reads exactly size bytes. The range is
// checked against the real source length before anything is allocated.
func readRange(r io.ReadSeeker, offset, size uint64) ([]byte, error) {
	if size > maxPayloadSize {
		return nil, fmt.Errorf("range of %d bytes exceeds %d byte limit", size, maxPayloadSize)
	}
	if offset+size < offset || offset+size > 1<<63-1 {
		return nil, fmt.Errorf("range %d+%d overflows", offset, size)
	}
	srcLen, err := sourceSize(r)
	if err != nil {
		return nil, err
	}
	if offset+size > uint64(srcLen) {
		avail := uint64(0)
		if offset < uint64(srcLen) {
			avail = uint64(srcLen) - offset
		}
		return nil, fmt.Errorf("short read at offset %d: got %d of %d bytes", offset, avail, size)
	}
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if isShortRead(err) {
			return nil, fmt.Errorf("short read at offset %d: got %d of %d bytes", offset, n, size)
		}
		return nil, err
	}
	return buf, nil
}

// isJSONKind reports whether the JSON value in raw starts with delim.
func isJSONKind(raw []byte, delim byte) bool {
	raw = bytes.TrimLeft(raw, " \t\r\n")
	return len(raw) > 0 && raw[0] == delim
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
