package hnf

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/zeebo/xxh3"
)

// ChecksumResult is the outcome of recomputing one stored checksum.
type ChecksumResult struct {
	// Region is "header" or a block name.
	Region   string `json:"region"`
	Stored   uint64 `json:"stored"`
	Computed uint64 `json:"computed"`
	// Err is set when the region could not be read; Computed is zero then.
	Err string `json:"error,omitempty"`
}

// Match reports whether the recomputed value equals the stored one.
func (c ChecksumResult) Match() bool {
	return c.Err == "" && c.Stored == c.Computed
}

// HeaderChecksum recomputes the header CRC-32 the way the reference encoder
// produces it: over the header as first written (flags, manifest range, file
// size, checksum and reserved still zero) followed by the final block table.
func HeaderChecksum(h FileHeader, t *BlockTable) uint32 {
	pre := h
	pre.Flags = 0
	pre.ManifestOffset = 0
	pre.ManifestSize = 0
	pre.FileSize = 0
	pre.Checksum = 0
	pre.Reserved = 0

	var buf [HeaderSize + BlockTableSize]byte
	encodeHeader(buf[:HeaderSize], pre)
	encodeBlockTable(buf[HeaderSize:], t)
	return crc32.ChecksumIEEE(buf[:])
}

// BlockChecksum streams the block's bytes through XXH3-64.
func BlockChecksum(r io.ReadSeeker, desc BlockDescriptor) (uint64, error) {
	if !desc.Active() {
		return 0, nil
	}
	if desc.Offset > 1<<63-1 || desc.Size > 1<<63-1 {
		return 0, fmt.Errorf("range %d+%d out of range", desc.Offset, desc.Size)
	}
	if _, err := r.Seek(int64(desc.Offset), io.SeekStart); err != nil {
		return 0, err
	}
	h := xxh3.New()
	n, err := io.CopyN(h, r, int64(desc.Size))
	if err != nil {
		if isShortRead(err) {
			return 0, fmt.Errorf("short read: got %d of %d bytes", n, desc.Size)
		}
		return 0, err
	}
	return h.Sum64(), nil
}

// verifyChecksums recomputes the header checksum and every active block
// checksum. Unused slots are skipped.
func verifyChecksums(r io.ReadSeeker, h FileHeader, t *BlockTable) []ChecksumResult {
	out := make([]ChecksumResult, 0, 1+BlockCount)
	out = append(out, ChecksumResult{
		Region:   "header",
		Stored:   uint64(h.Checksum),
		Computed: uint64(HeaderChecksum(h, t)),
	})
	for i := range t {
		d := t[i]
		if !d.Active() {
			continue
		}
		res := ChecksumResult{Region: d.Name, Stored: d.Checksum}
		sum, err := BlockChecksum(r, d)
		if err != nil {
			res.Err = err.Error()
		} else {
			res.Computed = sum
		}
		out = append(out, res)
	}
	return out
}
