package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/hnfcheck/pkg/hnf"
)

const (
	bannerPassed   = "VALIDATION PASSED"
	bannerWarnings = "VALIDATION PASSED WITH WARNINGS"
	bannerFailed   = "VALIDATION FAILED"
)

type printer struct {
	w io.Writer
}

func (p printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p printer) section(title string) {
	line := strings.Repeat("-", len(title)+8)
	p.printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func (p printer) row(label, value string) {
	if value == "" {
		return
	}
	p.printf("%-24s %s\n", label+":", value)
}

// renderText writes the human-readable report. banner adds the findings and
// the pass/fail line; inspect leaves them out.
func renderText(w io.Writer, res fileResult, banner bool) {
	p := printer{w: w}
	p.printf("File: %s", res.Path)
	if res.Compressed {
		p.printf(" (zstd)")
	}
	p.printf("\n")

	if res.Err != nil {
		p.printf("FATAL: %v\n", res.Err)
		if banner {
			p.printf("\n%s\n", bannerFailed)
		}
		return
	}

	rep := res.Report
	p.row("Size", formatBytes(uint64(rep.Size)))
	p.row("Digest", res.Digest)

	printHeader(p, rep)
	printBlocks(p, rep)
	printHints(p, rep.Hints)
	printManifest(p, rep)
	printPrefixes(p, rep.Prefixes)
	printChecksums(p, rep.Checksums)

	if !banner {
		return
	}
	if len(rep.Errors)+len(rep.Warnings) > 0 {
		p.section("FINDINGS")
		for _, e := range rep.Errors {
			p.printf("ERROR    %s\n", e)
		}
		for _, wn := range rep.Warnings {
			p.printf("WARNING  %s\n", wn)
		}
	}
	p.printf("\n%s\n", bannerFor(rep))
}

func bannerFor(rep *hnf.Report) string {
	switch {
	case !rep.OK():
		return bannerFailed
	case len(rep.Warnings) > 0:
		return bannerWarnings
	default:
		return bannerPassed
	}
}

func printHeader(p printer, rep *hnf.Report) {
	h := rep.Header
	p.section("HEADER")
	magic := h.Magic.String()
	if !h.Magic.Valid() {
		magic += " (invalid)"
	}
	p.row("magic", magic)
	p.row("version", h.Version())
	flags := fmt.Sprintf("%#010x", uint32(h.Flags))
	if names := h.Flags.Names(); len(names) > 0 {
		flags += " (" + strings.Join(names, ", ") + ")"
	}
	p.row("flags", flags)
	p.row("block_count", fmt.Sprint(h.BlockCount))
	p.row("header_size", fmt.Sprint(h.HeaderSize))
	p.row("block_table_offset", fmt.Sprint(h.BlockTableOffset))
	p.row("manifest", fmt.Sprintf("offset=%d size=%s", h.ManifestOffset, formatBytes(h.ManifestSize)))
	fileSize := fmt.Sprint(h.FileSize)
	if h.FileSize != uint64(rep.Size) {
		fileSize += fmt.Sprintf(" (actual %d)", rep.Size)
	}
	p.row("file_size", fileSize)
	p.row("checksum", fmt.Sprintf("%#010x", h.Checksum))
}

func printBlocks(p printer, rep *hnf.Report) {
	p.section("BLOCK TABLE")
	active := rep.Blocks.Active()
	if len(active) == 0 {
		p.printf("(no active blocks)\n")
		return
	}
	p.printf("%-4s %-14s %-12s %-12s %s\n", "idx", "name", "offset", "size", "checksum")
	for _, d := range active {
		p.printf("%-4s %-14s %-12d %-12s %#018x\n",
			fmt.Sprintf("0x%X", d.Index), d.Name, d.Offset, formatBytes(d.Size), d.Checksum)
	}
	p.printf("%d of %d slots active\n", len(active), hnf.BlockCount)
}

func printHints(p printer, h *hnf.ExecutionHints) {
	p.section("EXECUTION HINTS")
	if h == nil {
		p.printf("(none)\n")
		return
	}
	p.row("layout", string(h.TextLayout))
	p.row("enabled", enabledModalities(h))
	p.row("text", summarizeModel(h.Text))
	if h.Vision != nil {
		parts := []string{}
		parts = appendStr(parts, "arch", h.Vision.Arch)
		parts = appendInt(parts, "image_size", h.Vision.ImageSize)
		parts = appendInt(parts, "patch_size", h.Vision.PatchSize)
		p.row("vision", strings.Join(parts, " "))
	}
	if h.Cortex != nil {
		p.row("cortex", summarizeModel(h.Cortex))
	}
	if h.Code != nil {
		p.row("code", summarizeModel(h.Code))
	}
}

func enabledModalities(h *hnf.ExecutionHints) string {
	var on []string
	for _, m := range []struct {
		name string
		on   bool
	}{
		{"text", h.TextEnabled},
		{"vision", h.VisionEnabled},
		{"cortex", h.CortexEnabled},
		{"code", h.CodeEnabled},
	} {
		if m.on {
			on = append(on, m.name)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ", ")
}

func summarizeModel(c *hnf.ModelConfig) string {
	if c.Empty() {
		return "(no fields)"
	}
	var parts []string
	parts = appendStr(parts, "arch", c.Arch)
	parts = appendInt(parts, "layers", c.NumHiddenLayers)
	parts = appendInt(parts, "hidden", c.HiddenSize)
	parts = appendInt(parts, "vocab", c.VocabSize)
	parts = appendStr(parts, "attention", c.AttentionType)
	parts = appendStr(parts, "qkv", c.QKVLayout)
	parts = appendStr(parts, "mlp", c.MLPType)
	if c.PartialRotaryFactor != nil {
		parts = append(parts, fmt.Sprintf("partial_rotary=%g", *c.PartialRotaryFactor))
	}
	if rs := c.RopeScaling; rs != nil {
		s := "rope=" + rs.Type
		if rs.Factor != nil {
			s += fmt.Sprintf("x%g", *rs.Factor)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func appendStr(parts []string, key, v string) []string {
	if v == "" {
		return parts
	}
	return append(parts, key+"="+v)
}

func appendInt(parts []string, key string, v *int64) []string {
	if v == nil {
		return parts
	}
	return append(parts, fmt.Sprintf("%s=%d", key, *v))
}

func printManifest(p printer, rep *hnf.Report) {
	p.section("MANIFEST")
	if rep.Manifest == nil {
		p.printf("(unavailable)\n")
		return
	}
	p.row("tensors", fmt.Sprint(len(rep.Manifest.Tensors)))
	for _, tc := range rep.TensorCounts {
		p.printf("  %-22s %d\n", tc.Block, tc.Count)
	}
}

func printPrefixes(p printer, checks []hnf.PrefixCheck) {
	p.section("PREFIX CHECK")
	if len(checks) == 0 {
		p.printf("(no tracked modalities)\n")
		return
	}
	for _, pc := range checks {
		status := "ok"
		if !pc.OK() {
			status = fmt.Sprintf("%d missing, first: %s", pc.Missing, pc.FirstOffender)
		}
		p.printf("%-12s %-9s %d tensors  %s\n", pc.Block, pc.Prefix, pc.Tensors, status)
	}
}

func printChecksums(p printer, results []hnf.ChecksumResult) {
	if len(results) == 0 {
		return
	}
	p.section("CHECKSUMS")
	for _, cr := range results {
		switch {
		case cr.Err != "":
			p.printf("%-14s unreadable: %s\n", cr.Region, cr.Err)
		case cr.Match():
			p.printf("%-14s ok %#x\n", cr.Region, cr.Stored)
		default:
			p.printf("%-14s MISMATCH stored=%#x computed=%#x\n", cr.Region, cr.Stored, cr.Computed)
		}
	}
}

type jsonResult struct {
	File       string      `json:"file"`
	OK         bool        `json:"ok"`
	Compressed bool        `json:"compressed,omitempty"`
	Digest     string      `json:"digest,omitempty"`
	Error      string      `json:"error,omitempty"`
	Report     *hnf.Report `json:"report,omitempty"`
}

// renderJSON writes one array with an entry per input, in input order.
func renderJSON(w io.Writer, results []fileResult) error {
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		jr := jsonResult{
			File:       res.Path,
			Compressed: res.Compressed,
			Digest:     res.Digest,
			Report:     res.Report,
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		} else {
			jr.OK = res.Report.OK()
		}
		out = append(out, jr)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
