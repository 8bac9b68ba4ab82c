package hnf

import (
	"context"
	"fmt"
	"io"

	"github.com/samcharles93/hnfcheck/internal/logger"
)

// Options selects the optional validation modes. The zero value reproduces
// the legacy validator's pass/fail behaviour.
type Options struct {
	// Strict promotes structural diagnostics (size fields, descriptor ids,
	// block bounds and overlap, size ceilings) from warnings to errors.
	Strict bool
	// VerifyChecksums recomputes the header CRC-32 and every active block's
	// XXH3-64 and reports mismatches as errors.
	VerifyChecksums bool
}

// Report is the result of one validation run. It holds no references to the
// source and is safe to keep after the handle is closed.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	// Size is the actual byte length of the source.
	Size     int64           `json:"size"`
	Header   FileHeader      `json:"header"`
	Blocks   BlockTable      `json:"blocks"`
	Hints    *ExecutionHints `json:"hints,omitempty"`
	Manifest *Manifest       `json:"manifest,omitempty"`

	TensorCounts []TensorCount    `json:"tensor_counts"`
	Prefixes     []PrefixCheck    `json:"prefix_checks"`
	Checksums    []ChecksumResult `json:"checksums,omitempty"`
}

// OK reports whether validation found no errors. Warnings never fail a file.
func (r *Report) OK() bool {
	return r != nil && len(r.Errors) == 0
}

type collector struct {
	rep    *Report
	strict bool
}

func (c *collector) errorf(format string, args ...any) {
	c.rep.Errors = append(c.rep.Errors, fmt.Sprintf(format, args...))
}

func (c *collector) warnf(format string, args ...any) {
	c.rep.Warnings = append(c.rep.Warnings, fmt.Sprintf(format, args...))
}

// structuralf records a diagnostic that only fails the file in strict mode.
func (c *collector) structuralf(format string, args ...any) {
	if c.strict {
		c.errorf(format, args...)
		return
	}
	c.warnf(format, args...)
}

// ValidateFile opens path, validates it and releases the handle on every
// return path.
func ValidateFile(ctx context.Context, path string, opts Options) (*Report, error) {
	h, err := openHandle(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()
	return Validate(ctx, h, opts)
}

// Validate runs every check against r in a fixed order: header, block table,
// execution hints, manifest. Findings are collected into the report; only a
// truncated header or block table, or an I/O failure on r, returns an error.
func Validate(ctx context.Context, r io.ReadSeeker, opts Options) (*Report, error) {
	log := logger.FromContext(ctx).With("component", "hnf")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size, err := sourceSize(r)
	if err != nil {
		return nil, fmt.Errorf("probe source size: %w", err)
	}

	rep := &Report{
		Errors:       []string{},
		Warnings:     []string{},
		Size:         size,
		TensorCounts: []TensorCount{},
		Prefixes:     []PrefixCheck{},
	}
	c := &collector{rep: rep, strict: opts.Strict}

	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	rep.Header = hdr
	log.Debug("header decoded", "version", hdr.Version(), "flags", uint32(hdr.Flags), "file_size", hdr.FileSize)
	checkHeader(c, hdr, size)

	table, err := ReadBlockTable(r)
	if err != nil {
		return nil, err
	}
	rep.Blocks = table
	log.Debug("block table decoded", "active", len(table.Active()))
	checkBlocks(c, hdr, &table, size)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hints, err := ReadExecutionHints(r, table[BlockExecHints])
	switch {
	case err != nil:
		c.warnf("execution hints ignored: %v", err)
	case hints == nil:
		c.warnf("no execution hints block")
	default:
		rep.Hints = hints
		log.Debug("execution hints parsed", "layout", string(hints.TextLayout), "arch", hints.Text.Arch)
	}

	manifest, err := ReadManifest(r, hdr.ManifestOffset, hdr.ManifestSize)
	if err != nil {
		c.errorf("manifest: %v", err)
	} else {
		rep.Manifest = manifest
		rep.TensorCounts = countTensors(manifest)
		rep.Prefixes = checkPrefixes(c, manifest)
		log.Debug("manifest parsed", "tensors", len(manifest.Tensors))
	}

	if opts.VerifyChecksums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep.Checksums = verifyChecksums(r, hdr, &table)
		for _, cr := range rep.Checksums {
			switch {
			case cr.Err != "":
				c.errorf("checksum for %s not verified: %s", cr.Region, cr.Err)
			case !cr.Match():
				c.errorf("checksum mismatch for %s: stored %#x, computed %#x", cr.Region, cr.Stored, cr.Computed)
			}
		}
	}

	log.Debug("validation finished", "errors", len(rep.Errors), "warnings", len(rep.Warnings))
	return rep, nil
}
