package hnf

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// MagicBytes is the raw 8-byte tag at the start of a file.
type MagicBytes [8]byte

// Valid reports whether m is the HNF v9 magic.
func (m MagicBytes) Valid() bool {
	return string(m[:]) == Magic
}

func (m MagicBytes) String() string {
	return strconv.Quote(string(m[:]))
}

// MarshalText renders the tag with non-printable bytes escaped.
func (m MagicBytes) MarshalText() ([]byte, error) {
	q := strconv.Quote(string(m[:]))
	return []byte(q[1 : len(q)-1]), nil
}

// UnmarshalText accepts the MarshalText form.
func (m *MagicBytes) UnmarshalText(text []byte) error {
	s, err := strconv.Unquote(`"` + string(text) + `"`)
	if err != nil {
		return fmt.Errorf("magic: %w", err)
	}
	if len(s) != len(m) {
		return fmt.Errorf("magic: need %d bytes, have %d", len(m), len(s))
	}
	copy(m[:], s)
	return nil
}

// FileHeader is the decoded 64-byte header. Offsets are absolute.
type FileHeader struct {
	Magic            MagicBytes `json:"magic"`
	VersionMajor     uint16     `json:"version_major"`
	VersionMinor     uint16     `json:"version_minor"`
	Flags            Flags      `json:"flags"`
	BlockCount       uint32     `json:"block_count"`
	HeaderSize       uint32     `json:"header_size"`
	BlockTableOffset uint64     `json:"block_table_offset"`
	ManifestOffset   uint64     `json:"manifest_offset"`
	ManifestSize     uint64     `json:"manifest_size"`
	FileSize         uint64     `json:"file_size"`
	Checksum         uint32     `json:"checksum"`
	Reserved         uint32     `json:"-"`
}

// Version formats the header version as "major.minor".
func (h FileHeader) Version() string {
	return fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor)
}

// ManifestEnd returns the exclusive end of the manifest range. ok is false
// when offset+size overflows.
func (h FileHeader) ManifestEnd() (end uint64, ok bool) {
	end = h.ManifestOffset + h.ManifestSize
	return end, end >= h.ManifestOffset
}

// DecodeHeader decodes the first HeaderSize bytes of b. Out-of-range field
// values are not errors here; only a short buffer is.
func DecodeHeader(b []byte) (FileHeader, error) {
	if len(b) < HeaderSize {
		return FileHeader{}, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedHeader, HeaderSize, len(b))
	}
	le := binary.LittleEndian
	var h FileHeader
	copy(h.Magic[:], b[0:8])
	h.VersionMajor = le.Uint16(b[8:10])
	h.VersionMinor = le.Uint16(b[10:12])
	h.Flags = Flags(le.Uint32(b[12:16]))
	h.BlockCount = le.Uint32(b[16:20])
	h.HeaderSize = le.Uint32(b[20:24])
	h.BlockTableOffset = le.Uint64(b[24:32])
	h.ManifestOffset = le.Uint64(b[32:40])
	h.ManifestSize = le.Uint64(b[40:48])
	h.FileSize = le.Uint64(b[48:56])
	h.Checksum = le.Uint32(b[56:60])
	h.Reserved = le.Uint32(b[60:64])
	return h, nil
}

// encodeHeader is the inverse of DecodeHeader. It backs header checksum
// recomputation; nothing in this package writes files.
func encodeHeader(dst []byte, h FileHeader) bool {
	if len(dst) < HeaderSize {
		return false
	}
	le := binary.LittleEndian
	copy(dst[0:8], h.Magic[:])
	le.PutUint16(dst[8:10], h.VersionMajor)
	le.PutUint16(dst[10:12], h.VersionMinor)
	le.PutUint32(dst[12:16], uint32(h.Flags))
	le.PutUint32(dst[16:20], h.BlockCount)
	le.PutUint32(dst[20:24], h.HeaderSize)
	le.PutUint64(dst[24:32], h.BlockTableOffset)
	le.PutUint64(dst[32:40], h.ManifestOffset)
	le.PutUint64(dst[40:48], h.ManifestSize)
	le.PutUint64(dst[48:56], h.FileSize)
	le.PutUint32(dst[56:60], h.Checksum)
	le.PutUint32(dst[60:64], h.Reserved)
	return true
}

// ReadHeader seeks to the start of r and decodes the header.
func ReadHeader(r io.ReadSeeker) (FileHeader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FileHeader{}, fmt.Errorf("seek header: %w", err)
	}
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if isShortRead(err) {
			return FileHeader{}, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedHeader, HeaderSize, n)
		}
		return FileHeader{}, fmt.Errorf("read header: %w", err)
	}
	return DecodeHeader(buf[:])
}
