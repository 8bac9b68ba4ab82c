package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hnfcheck/internal/logger"
)

// Process exit codes.
const (
	exitOK     = 0
	exitFailed = 1 // at least one report has errors
	exitFatal  = 2 // a file could not be decoded or opened, or bad usage
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().Run(ctx, os.Args)
	if err == nil {
		return
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := err.Error(); msg != "" {
			_, _ = fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(ec.ExitCode())
	}
	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(exitFatal)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "hnfcheck",
		Usage: "Validate HNF multi-modal model containers",
		Flags: append(loggingFlags(), &cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/hnfcheck/config.yaml)",
			Sources:     cli.EnvVars("HNFCHECK_CONFIG"),
			Destination: &configFile,
		}),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			validateCmd(),
			inspectCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

// setup loads the config file and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), exitFatal)
	}
	appConfig = cfg
	applyLoggingConfig(cmd, cfg)

	log, err := newLogger(os.Stderr)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), exitFatal)
	}
	return logger.WithContext(ctx, log), nil
}
