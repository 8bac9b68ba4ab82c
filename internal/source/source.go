// Package source opens HNF artifacts for validation. Plain files go to the
// engine's mapped reader; zstd-compressed artifacts are decoded into memory
// first.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/samcharles93/hnfcheck/pkg/hnf"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var (
	// ErrTooLarge means the (decoded) artifact exceeds the configured limit.
	ErrTooLarge = errors.New("artifact exceeds size limit")
	// ErrUnsupportedEncoding means a content encoding other than identity or zstd.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
	// ErrCorrupt means a zstd stream failed to decode.
	ErrCorrupt = errors.New("corrupt zstd stream")
)

// Source is one artifact ready for validation.
type Source struct {
	// Name is the path, or a caller-chosen label for in-memory artifacts.
	Name string
	// Compressed is true when the artifact was zstd-encoded on input.
	Compressed bool

	path string
	data []byte
	mem  bool
}

// Open inspects path. zstd artifacts, detected by frame magic or a ".zst"
// suffix, are decoded into memory up to maxBytes (0 means no limit). Plain
// files are not read until validation.
func Open(path string, maxBytes int64) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var head [4]byte
	n, err := io.ReadFull(f, head[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.Equal(head[:n], zstdMagic) && !strings.HasSuffix(path, ".zst") {
		return &Source{Name: path, path: path}, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := decodeZstd(f, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Source{Name: path, Compressed: true, data: data, mem: true}, nil
}

// FromBytes wraps an already decoded artifact.
func FromBytes(name string, data []byte, compressed bool) *Source {
	return &Source{Name: name, Compressed: compressed, data: data, mem: true}
}

// Size is the decoded length for in-memory artifacts and -1 otherwise.
func (s *Source) Size() int64 {
	if !s.mem {
		return -1
	}
	return int64(len(s.data))
}

// Validate runs the engine over the artifact.
func (s *Source) Validate(ctx context.Context, opts hnf.Options) (*hnf.Report, error) {
	if s.mem {
		return hnf.Validate(ctx, bytes.NewReader(s.data), opts)
	}
	return hnf.ValidateFile(ctx, s.path, opts)
}

// Digest is the sha256 of the decoded artifact.
func (s *Source) Digest() (digest.Digest, error) {
	if s.mem {
		return digest.FromBytes(s.data), nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return digest.Canonical.FromReader(f)
}

// Decode reads an HTTP body according to its Content-Encoding. An identity
// body that starts with a zstd frame is decoded as well.
func Decode(r io.Reader, encoding string, maxBytes int64) (data []byte, compressed bool, err error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		raw, err := readLimited(r, maxBytes)
		if err != nil {
			return nil, false, err
		}
		if bytes.HasPrefix(raw, zstdMagic) {
			data, err := decodeZstd(bytes.NewReader(raw), maxBytes)
			return data, true, err
		}
		return raw, false, nil
	case "zstd":
		data, err := decodeZstd(r, maxBytes)
		return data, true, err
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

func decodeZstd(r io.Reader, maxBytes int64) ([]byte, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	data, err := readLimited(dec, maxBytes)
	switch {
	case errors.Is(err, ErrTooLarge):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}

// readLimited reads r fully, failing with ErrTooLarge past maxBytes.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
