package hnf

import (
	"slices"
	"strings"
)

// PrefixRule binds a modality block to the tensor-name prefix it requires.
type PrefixRule struct {
	Block  string
	Prefix string
}

// PrefixRules lists the modalities whose tensors must carry a name prefix,
// in reporting order.
var PrefixRules = []PrefixRule{
	{Block: "text_model", Prefix: "text."},
	{Block: "cortex", Prefix: "cortex."},
	{Block: "code_exec", Prefix: "code."},
	{Block: "vision", Prefix: "vision."},
	{Block: "audio", Prefix: "audio."},
}

// unknownBlock labels tensors whose manifest entry has no block value.
const unknownBlock = "unknown"

// TensorCount is the number of manifest tensors naming one block value.
type TensorCount struct {
	Block string `json:"block"`
	Count int    `json:"count"`
}

// PrefixCheck is the prefix result for one tracked modality that has at
// least one tensor. Sample is the first tensor of the group in manifest order.
type PrefixCheck struct {
	Block         string `json:"block"`
	Prefix        string `json:"prefix"`
	Tensors       int    `json:"tensors"`
	Missing       int    `json:"missing"`
	Sample        string `json:"sample"`
	FirstOffender string `json:"first_offender,omitempty"`
}

// OK reports whether every tensor in the group carries the prefix.
func (p PrefixCheck) OK() bool {
	return p.Missing == 0
}

func countTensors(m *Manifest) []TensorCount {
	counts := make(map[string]int)
	for _, t := range m.Tensors {
		b := t.Block
		if b == "" {
			b = unknownBlock
		}
		counts[b]++
	}
	out := make([]TensorCount, 0, len(counts))
	for _, b := range sortedKeys(counts) {
		out = append(out, TensorCount{Block: b, Count: counts[b]})
	}
	return out
}

// groupByModality buckets tensor names by their literal block value, keeping
// only the tracked modalities, in one pass.
func groupByModality(m *Manifest) map[string][]string {
	groups := make(map[string][]string, len(PrefixRules))
	for _, rule := range PrefixRules {
		groups[rule.Block] = nil
	}
	for _, t := range m.Tensors {
		if _, tracked := groups[t.Block]; tracked {
			groups[t.Block] = append(groups[t.Block], t.Name)
		}
	}
	return groups
}

// checkPrefixes warns once per modality whose group has a tensor lacking the
// required prefix. Older manifests predate the convention, so it never fails
// the file.
func checkPrefixes(c *collector, m *Manifest) []PrefixCheck {
	groups := groupByModality(m)
	out := []PrefixCheck{}
	for _, rule := range PrefixRules {
		names := groups[rule.Block]
		if len(names) == 0 {
			continue
		}
		pc := PrefixCheck{
			Block:   rule.Block,
			Prefix:  rule.Prefix,
			Tensors: len(names),
			Sample:  names[0],
		}
		for _, n := range names {
			if strings.HasPrefix(n, rule.Prefix) {
				continue
			}
			if pc.Missing == 0 {
				pc.FirstOffender = n
			}
			pc.Missing++
		}
		if !pc.OK() {
			c.warnf("%s tensors missing %q prefix: %d of %d (first offender: %s, sample: %s)",
				rule.Block, rule.Prefix, pc.Missing, pc.Tensors, pc.FirstOffender, pc.Sample)
		}
		out = append(out, pc)
	}
	return out
}

func checkHeader(c *collector, h FileHeader, size int64) {
	if !h.Magic.Valid() {
		c.errorf("invalid magic %s (expected %q)", h.Magic, Magic)
	}
	if h.VersionMajor != VersionMajor {
		c.structuralf("unsupported version %s (expected major %d)", h.Version(), VersionMajor)
	}
	if h.BlockCount != BlockCount {
		c.structuralf("block_count is %d (expected %d)", h.BlockCount, BlockCount)
	}
	if h.HeaderSize != HeaderSize {
		c.structuralf("header_size is %d (expected %d)", h.HeaderSize, HeaderSize)
	}
	if h.BlockTableOffset != BlockTableOffset {
		c.structuralf("block_table_offset is %d (expected %d)", h.BlockTableOffset, BlockTableOffset)
	}
	if h.FileSize != uint64(size) {
		c.structuralf("file_size is %d but the file has %d bytes", h.FileSize, size)
	}
	if end, ok := h.ManifestEnd(); !ok {
		c.structuralf("manifest range %d+%d overflows", h.ManifestOffset, h.ManifestSize)
	} else if end != h.FileSize {
		c.structuralf("manifest ends at %d, not at file_size %d", end, h.FileSize)
	}
}

func checkBlocks(c *collector, h FileHeader, t *BlockTable, size int64) {
	active := t.Active()
	if len(active) == 0 {
		c.errorf("no active blocks found")
	}

	for i := range t {
		d := t[i]
		if d.ID != uint32(i) {
			c.structuralf("block %d (%s): id is %d", i, d.Name, d.ID)
		}
		if !d.Active() && d.Checksum != 0 {
			c.structuralf("block %d (%s): empty block with non-zero checksum %#x", i, d.Name, d.Checksum)
		}
	}

	limit := uint64(size)
	for _, d := range active {
		end, ok := d.End()
		switch {
		case !ok:
			c.structuralf("block %s: range %d+%d overflows", d.Name, d.Offset, d.Size)
			continue
		case d.Offset < DataStart || end > limit:
			c.structuralf("block %s: range [%d, %d) outside [%d, %d)", d.Name, d.Offset, end, DataStart, limit)
		}
		if d.Offset%Alignment != 0 {
			c.warnf("block %s: offset %d is not %d-byte aligned", d.Name, d.Offset, Alignment)
		}
	}

	checkOverlaps(c, h, active)

	if d := t[BlockPersonality]; d.Size > MaxPersonalitySize {
		c.structuralf("block %s: %d bytes exceeds %d byte limit", d.Name, d.Size, MaxPersonalitySize)
	}
	if d := t[BlockMemory]; d.Size > MaxMemorySize {
		c.structuralf("block %s: %d bytes exceeds %d byte limit", d.Name, d.Size, MaxMemorySize)
	}
}

// checkOverlaps reports every pair of active blocks whose ranges intersect,
// and every block intersecting the manifest range.
func checkOverlaps(c *collector, h FileHeader, active []BlockDescriptor) {
	type span struct {
		name       string
		start, end uint64
	}
	spans := make([]span, 0, len(active)+1)
	for _, d := range active {
		end, ok := d.End()
		if !ok {
			continue
		}
		spans = append(spans, span{name: d.Name, start: d.Offset, end: end})
	}
	if mEnd, ok := h.ManifestEnd(); ok && h.ManifestSize > 0 {
		spans = append(spans, span{name: "manifest", start: h.ManifestOffset, end: mEnd})
	}
	slices.SortStableFunc(spans, func(a, b span) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		}
		return 0
	})
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[j].start >= spans[i].end {
				break
			}
			if rangesOverlap(spans[i].start, spans[i].end, spans[j].start, spans[j].end) {
				c.structuralf("%s [%d, %d) overlaps %s [%d, %d)",
					spans[i].name, spans[i].start, spans[i].end,
					spans[j].name, spans[j].start, spans[j].end)
			}
		}
	}
}
