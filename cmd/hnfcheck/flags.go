package main

import (
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hnfcheck/internal/logger"
)

var (
	configFile string
	appConfig  Config

	logLevel  string
	logFormat string
	debug     bool

	strict          bool
	verifyChecksums bool
	maxBytes        int64
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// checkFlags select the optional validator modes.
func checkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "treat structural findings (sizes, bounds, overlap, ids) as errors",
			Destination: &strict,
		},
		&cli.BoolFlag{
			Name:        "verify-checksums",
			Aliases:     []string{"checksums"},
			Usage:       "recompute the header CRC-32 and block XXH3-64 checksums",
			Destination: &verifyChecksums,
		},
	}
}

func maxBytesFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "max-bytes",
		Usage:       "limit on the decoded size of a compressed artifact (0 = no limit)",
		Value:       4 << 30,
		Destination: &maxBytes,
	}
}

func newLogger(w io.Writer) (logger.Logger, error) {
	level := slog.LevelDebug
	if !debug {
		var err error
		if level, err = logger.ParseLevel(logLevel); err != nil {
			return nil, err
		}
	}
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return nil, err
	}
	return logger.Open(format, w, level), nil
}
