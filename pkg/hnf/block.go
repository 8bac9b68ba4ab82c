package hnf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BlockDescriptor is one fixed-position block table entry. A zero Size marks
// an unused slot; Offset is meaningless then.
type BlockDescriptor struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	ID       uint32 `json:"id"`
	Type     uint32 `json:"type"`
	Offset   uint64 `json:"offset"`
	Size     uint64 `json:"size"`
	Checksum uint64 `json:"checksum"`
}

// Active reports whether the slot holds a payload.
func (b BlockDescriptor) Active() bool {
	return b.Size > 0
}

// End returns the exclusive end offset. ok is false on overflow.
func (b BlockDescriptor) End() (end uint64, ok bool) {
	end = b.Offset + b.Size
	return end, end >= b.Offset
}

// BlockTable holds the 16 descriptors in table order.
type BlockTable [BlockCount]BlockDescriptor

// Active returns the descriptors with a non-zero size, in table order.
func (t *BlockTable) Active() []BlockDescriptor {
	var out []BlockDescriptor
	for i := range t {
		if t[i].Active() {
			out = append(out, t[i])
		}
	}
	return out
}

// ByName returns the descriptor bound to a canonical slot name.
func (t *BlockTable) ByName(name string) (BlockDescriptor, bool) {
	for i, n := range BlockNames {
		if n == name {
			return t[i], true
		}
	}
	return BlockDescriptor{}, false
}

// DecodeBlockTable decodes BlockTableSize bytes into 16 descriptors, each
// annotated with the name bound to its position. It does no cross-checking.
func DecodeBlockTable(b []byte) (BlockTable, error) {
	var t BlockTable
	if len(b) < BlockTableSize {
		return t, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedBlockTable, BlockTableSize, len(b))
	}
	le := binary.LittleEndian
	for i := range t {
		e := b[i*BlockEntrySize : (i+1)*BlockEntrySize]
		t[i] = BlockDescriptor{
			Index:    i,
			Name:     BlockNames[i],
			ID:       le.Uint32(e[0:4]),
			Type:     le.Uint32(e[4:8]),
			Offset:   le.Uint64(e[8:16]),
			Size:     le.Uint64(e[16:24]),
			Checksum: le.Uint64(e[24:32]),
		}
	}
	return t, nil
}

func encodeBlockTable(dst []byte, t *BlockTable) bool {
	if len(dst) < BlockTableSize {
		return false
	}
	le := binary.LittleEndian
	for i := range t {
		e := dst[i*BlockEntrySize : (i+1)*BlockEntrySize]
		le.PutUint32(e[0:4], t[i].ID)
		le.PutUint32(e[4:8], t[i].Type)
		le.PutUint64(e[8:16], t[i].Offset)
		le.PutUint64(e[16:24], t[i].Size)
		le.PutUint64(e[24:32], t[i].Checksum)
	}
	return true
}

// ReadBlockTable reads the table that immediately follows the header.
func ReadBlockTable(r io.ReadSeeker) (BlockTable, error) {
	if _, err := r.Seek(BlockTableOffset, io.SeekStart); err != nil {
		return BlockTable{}, fmt.Errorf("seek block table: %w", err)
	}
	buf := make([]byte, BlockTableSize)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if isShortRead(err) {
			return BlockTable{}, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedBlockTable, BlockTableSize, n)
		}
		return BlockTable{}, fmt.Errorf("read block table: %w", err)
	}
	return DecodeBlockTable(buf)
}
