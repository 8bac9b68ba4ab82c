package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func inspectCmd() *cli.Command {
	var (
		format     string
		withDigest bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the header, block table, hints and tensor counts of an .hnf file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"o"},
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &format,
			},
			&cli.BoolFlag{
				Name:        "digest",
				Usage:       "include the sha256 digest of the artifact",
				Destination: &withDigest,
			},
			maxBytesFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("error: inspect needs exactly one FILE", exitFatal)
			}
			applyMaxBytesConfig(cmd, appConfig)
			applyFormatConfig(cmd, appConfig, &format)

			res := checkFile(ctx, cmd.Args().First(), validateParams{digest: withDigest, maxBytes: maxBytes})
			switch format {
			case "json":
				if err := renderJSON(os.Stdout, []fileResult{res}); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), exitFatal)
				}
			case "text":
				renderText(os.Stdout, res, false)
			default:
				return cli.Exit(fmt.Sprintf("error: unknown output format %q", format), exitFatal)
			}
			if res.Err != nil {
				return cli.Exit("", exitFatal)
			}
			return nil
		},
	}
}
