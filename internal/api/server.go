// Package api serves HNF validation over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/hnfcheck/internal/logger"
	"github.com/samcharles93/hnfcheck/internal/source"
	"github.com/samcharles93/hnfcheck/internal/version"
	"github.com/samcharles93/hnfcheck/pkg/hnf"
)

// DefaultMaxUploadBytes bounds the decoded artifact size of one request.
const DefaultMaxUploadBytes = 1 << 30

type Config struct {
	// MaxUploadBytes caps the decoded body. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// Strict and VerifyChecksums are defaults a request can only turn on.
	Strict          bool
	VerifyChecksums bool
}

type Server struct {
	cfg   Config
	log   logger.Logger
	clock func() time.Time
	newID func() string
}

func NewServer(cfg Config, log logger.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		cfg:   cfg,
		log:   log.With("component", "api"),
		clock: time.Now,
		newID: newValidationID,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/blocks", s.handleBlocks)
	e.POST("/v1/validate", s.handleValidate)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleBlocks(c *echo.Context) error {
	prefixes := make(map[string]string, len(hnf.PrefixRules))
	for _, r := range hnf.PrefixRules {
		prefixes[r.Block] = r.Prefix
	}
	data := make([]BlockInfo, 0, hnf.BlockCount)
	for i, name := range hnf.BlockNames {
		info := BlockInfo{Index: i, Name: name, Prefix: prefixes[name]}
		switch i {
		case hnf.BlockPersonality:
			info.MaxSize = hnf.MaxPersonalitySize
		case hnf.BlockMemory:
			info.MaxSize = hnf.MaxMemorySize
		}
		data = append(data, info)
	}
	return c.JSON(http.StatusOK, BlocksResponse{Object: "list", Data: data})
}

func (s *Server) handleValidate(c *echo.Context) error {
	id := s.newID()
	c.Response().Header().Set(headerRequestID, id)
	log := s.log.With("id", id)

	strict, err := boolQuery(c, "strict")
	if err != nil {
		return writeBadRequest(c, id, fmt.Sprintf("strict: %v", err))
	}
	checksums, err := boolQuery(c, "checksums")
	if err != nil {
		return writeBadRequest(c, id, fmt.Sprintf("checksums: %v", err))
	}
	opts := hnf.Options{
		Strict:          strict || s.cfg.Strict,
		VerifyChecksums: checksums || s.cfg.VerifyChecksums,
	}

	req := c.Request()
	data, compressed, err := source.Decode(req.Body, req.Header.Get("Content-Encoding"), s.cfg.MaxUploadBytes)
	switch {
	case errors.Is(err, source.ErrTooLarge):
		return writeError(c, http.StatusRequestEntityTooLarge, id, "invalid_request_error",
			fmt.Sprintf("artifact exceeds %d bytes", s.cfg.MaxUploadBytes), "too_large")
	case err != nil:
		return writeBadRequest(c, id, err.Error())
	case len(data) == 0:
		return writeBadRequest(c, id, "empty request body")
	}

	src := source.FromBytes(id, data, compressed)
	ctx := logger.WithContext(req.Context(), log)
	rep, err := src.Validate(ctx, opts)
	if err != nil {
		if errors.Is(err, hnf.ErrMalformedHeader) || errors.Is(err, hnf.ErrMalformedBlockTable) {
			return writeError(c, http.StatusUnprocessableEntity, id, "decode_error", err.Error(), "malformed")
		}
		log.Error("validation failed", "error", err)
		return writeError(c, http.StatusInternalServerError, id, "server_error", err.Error(), "")
	}
	dgst, err := src.Digest()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, id, "server_error", err.Error(), "")
	}

	log.Info("validated artifact",
		"size", len(data),
		"compressed", compressed,
		"errors", len(rep.Errors),
		"warnings", len(rep.Warnings),
	)
	return c.JSON(http.StatusOK, ValidateResponse{
		ID:         id,
		Object:     "validation",
		Created:    s.clock().Unix(),
		OK:         rep.OK(),
		Digest:     dgst.String(),
		Size:       int64(len(data)),
		Compressed: compressed,
		Options:    OptionsDTO{Strict: opts.Strict, VerifyChecksums: opts.VerifyChecksums},
		Report:     rep,
	})
}
