package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v5"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/hnfcheck/pkg/hnf"
	"github.com/samcharles93/hnfcheck/pkg/hnf/hnftest"
)

func newTestEcho(cfg Config) *echo.Echo {
	server := NewServer(cfg, nil)
	server.clock = func() time.Time { return time.Unix(1700000000, 0) }
	e := echo.New()
	server.Register(e)
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestValidateWellFormed(t *testing.T) {
	t.Parallel()

	image := hnftest.New().Bytes()
	e := newTestEcho(Config{})
	rec := doRequest(t, e, http.MethodPost, "/v1/validate?checksums=true", bytes.NewReader(image), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[ValidateResponse](t, rec)
	assert.True(t, strings.HasPrefix(resp.ID, "val_"))
	assert.Equal(t, resp.ID, rec.Header().Get(headerRequestID))
	assert.Equal(t, "validation", resp.Object)
	assert.EqualValues(t, 1700000000, resp.Created)
	assert.True(t, resp.OK)
	assert.False(t, resp.Compressed)
	assert.Equal(t, digest.FromBytes(image).String(), resp.Digest)
	assert.EqualValues(t, len(image), resp.Size)
	assert.Equal(t, OptionsDTO{VerifyChecksums: true}, resp.Options)
	require.NotNil(t, resp.Report)
	assert.Empty(t, resp.Report.Errors)
	assert.Len(t, resp.Report.Checksums, 3)
	require.NotNil(t, resp.Report.Hints)
	assert.Equal(t, "llama", resp.Report.Hints.Text.Arch)
}

func TestValidateReportErrorsKeepStatusOK(t *testing.T) {
	t.Parallel()

	f := hnftest.New()
	f.Manifest = []byte(`{"tensors": 7}`)
	e := newTestEcho(Config{})
	rec := doRequest(t, e, http.MethodPost, "/v1/validate", bytes.NewReader(f.Bytes()), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[ValidateResponse](t, rec)
	assert.False(t, resp.OK)
	require.Len(t, resp.Report.Errors, 1)
	assert.Contains(t, resp.Report.Errors[0], "manifest")
}

func TestValidateStrictQuery(t *testing.T) {
	t.Parallel()

	f := hnftest.New()
	f.Blocks[hnf.BlockMemory] = []byte("m")
	image := f.Bytes()
	// Break the declared file size; a structural finding.
	image[48]++

	e := newTestEcho(Config{})
	lenient := decodeBody[ValidateResponse](t, doRequest(t, e, http.MethodPost, "/v1/validate", bytes.NewReader(image), nil))
	assert.True(t, lenient.OK)
	assert.NotEmpty(t, lenient.Report.Warnings)

	strict := decodeBody[ValidateResponse](t, doRequest(t, e, http.MethodPost, "/v1/validate?strict=1", bytes.NewReader(image), nil))
	assert.False(t, strict.OK)
	assert.True(t, strict.Options.Strict)

	// Server defaults apply even when the query is absent.
	e = newTestEcho(Config{Strict: true})
	forced := decodeBody[ValidateResponse](t, doRequest(t, e, http.MethodPost, "/v1/validate", bytes.NewReader(image), nil))
	assert.False(t, forced.OK)
}

func TestValidateZstdBody(t *testing.T) {
	t.Parallel()

	image := hnftest.New().Bytes()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	packed := enc.EncodeAll(image, nil)
	require.NoError(t, enc.Close())

	e := newTestEcho(Config{})
	rec := doRequest(t, e, http.MethodPost, "/v1/validate", bytes.NewReader(packed),
		map[string]string{"Content-Encoding": "zstd"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[ValidateResponse](t, rec)
	assert.True(t, resp.OK)
	assert.True(t, resp.Compressed)
	assert.EqualValues(t, len(image), resp.Size)
	assert.Equal(t, digest.FromBytes(image).String(), resp.Digest)
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	image := hnftest.New().Bytes()
	tests := []struct {
		name     string
		path     string
		body     []byte
		headers  map[string]string
		cfg      Config
		status   int
		errType  string
		contains string
	}{
		{
			name:     "truncated header",
			path:     "/v1/validate",
			body:     image[:40],
			status:   http.StatusUnprocessableEntity,
			errType:  "decode_error",
			contains: "malformed HNF header",
		},
		{
			name:     "truncated table",
			path:     "/v1/validate",
			body:     image[:200],
			status:   http.StatusUnprocessableEntity,
			errType:  "decode_error",
			contains: "block table",
		},
		{
			name:    "too large",
			path:    "/v1/validate",
			body:    image,
			cfg:     Config{MaxUploadBytes: 128},
			status:  http.StatusRequestEntityTooLarge,
			errType: "invalid_request_error",
		},
		{
			name:     "empty body",
			path:     "/v1/validate",
			body:     nil,
			status:   http.StatusBadRequest,
			contains: "empty",
		},
		{
			name:     "bad query",
			path:     "/v1/validate?strict=maybe",
			body:     image,
			status:   http.StatusBadRequest,
			contains: "strict",
		},
		{
			name:     "bad encoding",
			path:     "/v1/validate",
			body:     image,
			headers:  map[string]string{"Content-Encoding": "br"},
			status:   http.StatusBadRequest,
			contains: "unsupported content encoding",
		},
		{
			name:     "corrupt zstd",
			path:     "/v1/validate",
			body:     []byte("definitely not zstd"),
			headers:  map[string]string{"Content-Encoding": "zstd"},
			status:   http.StatusBadRequest,
			contains: "zstd",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEcho(tc.cfg)
			rec := doRequest(t, e, http.MethodPost, tc.path, bytes.NewReader(tc.body), tc.headers)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			resp := decodeBody[ErrorResponse](t, rec)
			assert.True(t, strings.HasPrefix(resp.ID, "val_"))
			if tc.errType != "" {
				assert.Equal(t, tc.errType, resp.Error.Type)
			}
			if tc.contains != "" {
				assert.Contains(t, resp.Error.Message, tc.contains)
			}
		})
	}
}

func TestBlocks(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doRequest(t, e, http.MethodGet, "/v1/blocks", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[BlocksResponse](t, rec)
	require.Len(t, resp.Data, hnf.BlockCount)
	assert.Equal(t, BlockInfo{Index: 0, Name: "text_model", Prefix: "text."}, resp.Data[0])
	assert.Equal(t, "exec_hints", resp.Data[hnf.BlockExecHints].Name)
	assert.EqualValues(t, hnf.MaxMemorySize, resp.Data[hnf.BlockMemory].MaxSize)
	assert.Empty(t, resp.Data[hnf.BlockReserved3].Prefix)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doRequest(t, e, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Version)
}
