// Package hnf reads and validates HNF model containers.
//
// An HNF file packs a multi-modal model into one artifact: a 64-byte header,
// a fixed table of 16 block descriptors, per-modality block payloads and a
// JSON tensor manifest. This package only reads; it never interprets tensor
// bytes.
package hnf

// HNF global constants must never change.
const (
	// Magic identifies the HNF v9 family: "HNFv9" followed by zero padding.
	Magic = "HNFv9\x00\x00\x00"

	// VersionMajor is the only major version this reader understands.
	VersionMajor uint16 = 9
	// VersionMinor is the newest minor version written by the reference encoder.
	VersionMinor uint16 = 1

	// HeaderSize is the fixed on-disk size of the file header.
	HeaderSize = 64
	// BlockCount is the fixed number of block table entries.
	BlockCount = 16
	// BlockEntrySize is the on-disk size of one block descriptor.
	BlockEntrySize = 32
	// BlockTableSize is the on-disk size of the whole block table.
	BlockTableSize = BlockCount * BlockEntrySize
	// BlockTableOffset is where the block table starts.
	BlockTableOffset = HeaderSize
	// DataStart is the first offset available to block payloads.
	DataStart = HeaderSize + BlockTableSize

	// Alignment is the offset alignment the reference encoder uses for block payloads.
	Alignment = 32
)

// Block slot indices. Slot identity is part of the format, not file content.
const (
	BlockTextModel    = 0x0
	BlockVision       = 0x1
	BlockAudio        = 0x2
	BlockVideo        = 0x3
	BlockSpatial3D    = 0x4
	BlockPersonality  = 0x5
	BlockMemory       = 0x6
	BlockCortex       = 0x7
	BlockCodeExec     = 0x8
	BlockTools        = 0x9
	BlockExecHints    = 0xA
	BlockExpertRouter = 0xB
	BlockReserved0    = 0xC
	BlockReserved1    = 0xD
	BlockReserved2    = 0xE
	BlockReserved3    = 0xF
)

// BlockNames maps a table index to its canonical modality name.
var BlockNames = [BlockCount]string{
	"text_model",
	"vision",
	"audio",
	"video",
	"spatial_3d",
	"personality",
	"memory",
	"cortex",
	"code_exec",
	"tools",
	"exec_hints",
	"expert_router",
	"reserved_0",
	"reserved_1",
	"reserved_2",
	"reserved_3",
}

// Size ceilings enforced on bounded blocks.
const (
	MaxPersonalitySize = 20 << 20
	MaxMemorySize      = 50 << 20
)

// Flags is the opaque header bitfield. Validation never depends on it; the
// names only exist for display.
type Flags uint32

const (
	FlagHasVision Flags = 1 << iota
	FlagHasAudio
	FlagHasVideo
	FlagHasSpatial
	FlagHasPersonality
	FlagHasMemory
	FlagHasCortex
	FlagHasCodeExec
	FlagHasTokenizer
	FlagHasExecHintsBin
	FlagHasTools
	FlagHasExpertRouter
	FlagIsMoE
	FlagIsMultimodal
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagHasVision, "vision"},
	{FlagHasAudio, "audio"},
	{FlagHasVideo, "video"},
	{FlagHasSpatial, "spatial"},
	{FlagHasPersonality, "personality"},
	{FlagHasMemory, "memory"},
	{FlagHasCortex, "cortex"},
	{FlagHasCodeExec, "code_exec"},
	{FlagHasTokenizer, "tokenizer"},
	{FlagHasExecHintsBin, "exec_hints_bin"},
	{FlagHasTools, "tools"},
	{FlagHasExpertRouter, "expert_router"},
	{FlagIsMoE, "moe"},
	{FlagIsMultimodal, "multimodal"},
}

// Has reports whether every bit in f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Names lists the known flag names set in f, in bit order.
func (f Flags) Names() []string {
	var out []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			out = append(out, fn.name)
		}
	}
	return out
}
