package api

import (
	"github.com/samcharles93/hnfcheck/pkg/hnf"
)

// ValidateResponse is the body of a completed validation, whether or not the
// artifact passed.
type ValidateResponse struct {
	ID         string      `json:"id"`
	Object     string      `json:"object"`
	Created    int64       `json:"created_at"`
	OK         bool        `json:"ok"`
	Digest     string      `json:"digest"`
	Size       int64       `json:"size"`
	Compressed bool        `json:"compressed"`
	Options    OptionsDTO  `json:"options"`
	Report     *hnf.Report `json:"report"`
}

// OptionsDTO echoes the modes a validation ran with.
type OptionsDTO struct {
	Strict          bool `json:"strict"`
	VerifyChecksums bool `json:"verify_checksums"`
}

// BlockInfo describes one fixed block slot.
type BlockInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Prefix  string `json:"tensor_prefix,omitempty"`
	MaxSize uint64 `json:"max_size,omitempty"`
}

type BlocksResponse struct {
	Object string      `json:"object"`
	Data   []BlockInfo `json:"data"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	ID    string        `json:"id"`
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}
