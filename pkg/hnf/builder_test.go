package hnf

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/xxh3"
)

// testFile assembles an HNF image the way the reference encoder lays it out:
// header, table, 32-byte aligned blocks, manifest at EOF.
type testFile struct {
	blocks   map[int][]byte
	manifest []byte
	flags    Flags

	// mutate runs on the finished header and table before they are encoded.
	mutate func(h *FileHeader, t *BlockTable)
}

func newTestFile() *testFile {
	return &testFile{
		blocks: map[int][]byte{
			BlockTextModel: bytes.Repeat([]byte{0xAB}, 100),
			BlockExecHints: []byte(`{"text_enabled":true,"text":{"arch":"llama","num_hidden_layers":32,"hidden_size":4096}}`),
		},
		manifest: []byte(`{"tensors":[{"name":"text.embed","block":"text_model"},{"name":"text.lm_head","block":"text_model"}]}`),
	}
}

func (tf *testFile) build() []byte {
	var table BlockTable
	data := make([]byte, DataStart)
	for i := range table {
		table[i] = BlockDescriptor{Index: i, Name: BlockNames[i], ID: uint32(i)}
		payload, ok := tf.blocks[i]
		if !ok || len(payload) == 0 {
			continue
		}
		for len(data)%Alignment != 0 {
			data = append(data, 0)
		}
		table[i].Offset = uint64(len(data))
		table[i].Size = uint64(len(payload))
		table[i].Checksum = xxh3.Hash(payload)
		data = append(data, payload...)
	}

	h := FileHeader{
		VersionMajor:     VersionMajor,
		VersionMinor:     VersionMinor,
		BlockCount:       BlockCount,
		HeaderSize:       HeaderSize,
		BlockTableOffset: BlockTableOffset,
	}
	copy(h.Magic[:], Magic)

	var pre [HeaderSize + BlockTableSize]byte
	encodeHeader(pre[:HeaderSize], h)
	encodeBlockTable(pre[HeaderSize:], &table)
	h.Checksum = crc32.ChecksumIEEE(pre[:])

	h.Flags = tf.flags
	h.ManifestOffset = uint64(len(data))
	h.ManifestSize = uint64(len(tf.manifest))
	data = append(data, tf.manifest...)
	h.FileSize = uint64(len(data))

	if tf.mutate != nil {
		tf.mutate(&h, &table)
	}
	encodeHeader(data[:HeaderSize], h)
	encodeBlockTable(data[HeaderSize:DataStart], &table)
	return data
}

func (tf *testFile) reader() *bytes.Reader {
	return bytes.NewReader(tf.build())
}

func writeTestFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.hnf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func putU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}
