package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hnfcheck/internal/version"
)

func versionCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the build identity as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := writeVersion(os.Stdout, version.Resolve(), asJSON); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), exitFatal)
			}
			return nil
		},
	}
}

// writeVersion renders info as aligned key/value lines, skipping unknown
// fields, or as one JSON object.
func writeVersion(w io.Writer, info version.Info, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, kv := range [][2]string{
		{"hnfcheck", info.Version},
		{"commit", info.Commit},
		{"built", info.BuildTime},
		{"go", info.GoVersion},
	} {
		if kv[1] != "" {
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", kv[0], kv[1])
		}
	}
	return tw.Flush()
}
