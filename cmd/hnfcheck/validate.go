package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/hnfcheck/internal/logger"
	"github.com/samcharles93/hnfcheck/internal/source"
	"github.com/samcharles93/hnfcheck/pkg/hnf"
)

// fileResult is the outcome for one input path. Err is set when no report
// could be produced.
type fileResult struct {
	Path       string
	Report     *hnf.Report
	Digest     string
	Compressed bool
	Err        error
}

func (r fileResult) exitCode() int {
	switch {
	case r.Err != nil:
		return exitFatal
	case !r.Report.OK():
		return exitFailed
	default:
		return exitOK
	}
}

type validateParams struct {
	opts     hnf.Options
	jobs     int
	format   string
	digest   bool
	maxBytes int64
}

func validateCmd() *cli.Command {
	var (
		jobs       int
		format     string
		withDigest bool
	)

	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate one or more .hnf files (.hnf.zst is decoded first)",
		ArgsUsage: "FILE...",
		Flags: append(checkFlags(),
			maxBytesFlag(),
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"o"},
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &format,
			},
			&cli.IntFlag{
				Name:        "jobs",
				Aliases:     []string{"j"},
				Usage:       "files validated concurrently",
				Value:       runtime.GOMAXPROCS(0),
				Destination: &jobs,
			},
			&cli.BoolFlag{
				Name:        "digest",
				Usage:       "include the sha256 digest of each artifact",
				Destination: &withDigest,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("error: validate needs at least one FILE", exitFatal)
			}
			applyValidateConfig(cmd, appConfig, &jobs, &format)

			code, err := runValidate(ctx, os.Stdout, paths, validateParams{
				opts:     hnf.Options{Strict: strict, VerifyChecksums: verifyChecksums},
				jobs:     jobs,
				format:   format,
				digest:   withDigest,
				maxBytes: maxBytes,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), exitFatal)
			}
			if code != exitOK {
				return cli.Exit("", code)
			}
			return nil
		},
	}
}

// runValidate validates paths, renders every result in input order and
// returns the worst exit code.
func runValidate(ctx context.Context, w io.Writer, paths []string, p validateParams) (int, error) {
	if p.format != "text" && p.format != "json" {
		return exitFatal, fmt.Errorf("unknown output format %q (want text or json)", p.format)
	}

	results := validateFiles(ctx, paths, p)

	if p.format == "json" {
		if err := renderJSON(w, results); err != nil {
			return exitFatal, err
		}
	} else {
		for i, res := range results {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			renderText(w, res, true)
		}
	}

	code := exitOK
	for _, res := range results {
		code = max(code, res.exitCode())
	}
	return code, nil
}

func validateFiles(ctx context.Context, paths []string, p validateParams) []fileResult {
	results := make([]fileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(max(p.jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = checkFile(ctx, path, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func checkFile(ctx context.Context, path string, p validateParams) fileResult {
	log := logger.FromContext(ctx).With("file", path)
	res := fileResult{Path: path}

	src, err := source.Open(path, p.maxBytes)
	if err != nil {
		log.Error("open failed", "error", err)
		res.Err = err
		return res
	}
	res.Compressed = src.Compressed

	rep, err := src.Validate(logger.WithContext(ctx, log), p.opts)
	if err != nil {
		log.Error("decode failed", "error", err)
		res.Err = err
		return res
	}
	res.Report = rep

	if p.digest {
		d, err := src.Digest()
		if err != nil {
			res.Err = fmt.Errorf("digest: %w", err)
			return res
		}
		res.Digest = d.String()
	}
	log.Info("validated", "errors", len(rep.Errors), "warnings", len(rep.Warnings))
	return res
}
