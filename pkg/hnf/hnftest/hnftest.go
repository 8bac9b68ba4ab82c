// Package hnftest builds small, well-formed HNF images for tests in other
// packages.
package hnftest

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/xxh3"

	"github.com/samcharles93/hnfcheck/pkg/hnf"
)

// DefaultManifest names two text tensors, both correctly prefixed.
const DefaultManifest = `{"tensors":[{"name":"text.embed","block":"text_model"},{"name":"text.lm_head","block":"text_model"}]}`

// DefaultHints uses the nested layout with a llama text model.
const DefaultHints = `{"text_enabled":true,"text":{"arch":"llama","num_hidden_layers":32,"hidden_size":4096}}`

// File describes an image. Blocks maps a slot index to its payload.
type File struct {
	Blocks   map[int][]byte
	Manifest []byte
	Flags    hnf.Flags
}

// New returns a valid image with a text_model payload, execution hints and
// DefaultManifest.
func New() *File {
	return &File{
		Blocks: map[int][]byte{
			hnf.BlockTextModel: make([]byte, 100),
			hnf.BlockExecHints: []byte(DefaultHints),
		},
		Manifest: []byte(DefaultManifest),
	}
}

// Bytes encodes the image with aligned blocks, valid checksums and the
// manifest at EOF.
func (f *File) Bytes() []byte {
	le := binary.LittleEndian
	var table [hnf.BlockTableSize]byte
	data := make([]byte, hnf.DataStart)
	for i := range hnf.BlockCount {
		e := table[i*hnf.BlockEntrySize : (i+1)*hnf.BlockEntrySize]
		le.PutUint32(e[0:4], uint32(i))
		payload := f.Blocks[i]
		if len(payload) == 0 {
			continue
		}
		for len(data)%hnf.Alignment != 0 {
			data = append(data, 0)
		}
		le.PutUint64(e[8:16], uint64(len(data)))
		le.PutUint64(e[16:24], uint64(len(payload)))
		le.PutUint64(e[24:32], xxh3.Hash(payload))
		data = append(data, payload...)
	}
	copy(data[hnf.HeaderSize:hnf.DataStart], table[:])

	h := data[:hnf.HeaderSize]
	copy(h[0:8], hnf.Magic)
	le.PutUint16(h[8:10], hnf.VersionMajor)
	le.PutUint16(h[10:12], hnf.VersionMinor)
	le.PutUint32(h[16:20], hnf.BlockCount)
	le.PutUint32(h[20:24], hnf.HeaderSize)
	le.PutUint64(h[24:32], hnf.BlockTableOffset)
	// The checksum covers the header before the trailing fields are patched.
	le.PutUint32(h[56:60], crc32.ChecksumIEEE(data[:hnf.DataStart]))

	le.PutUint32(h[12:16], uint32(f.Flags))
	le.PutUint64(h[32:40], uint64(len(data)))
	le.PutUint64(h[40:48], uint64(len(f.Manifest)))
	data = append(data, f.Manifest...)
	le.PutUint64(data[48:56], uint64(len(data)))
	return data
}

// Write stores the image in a temp dir and returns its path.
func (f *File) Write(tb testing.TB, name string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return path
}
