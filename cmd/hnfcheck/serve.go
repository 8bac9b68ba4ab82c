package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hnfcheck/internal/api"
	"github.com/samcharles93/hnfcheck/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr           string
		readTimeout    time.Duration
		maxUploadBytes int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the validation REST API",
		Flags: append(checkFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-upload-bytes",
				Usage:       "largest decoded artifact accepted per request",
				Value:       api.DefaultMaxUploadBytes,
				Destination: &maxUploadBytes,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, appConfig, &addr, &maxUploadBytes)
			log := logger.FromContext(ctx)

			server := api.NewServer(api.Config{
				MaxUploadBytes:  maxUploadBytes,
				Strict:          strict,
				VerifyChecksums: verifyChecksums,
			}, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "max_upload_bytes", maxUploadBytes)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
